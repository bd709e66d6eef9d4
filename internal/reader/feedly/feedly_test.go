package feedly

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/storage"
)

const feedID = "feed/http://a.example/rss"

type fakeFeedly struct {
	*httptest.Server
	validToken string
	issued     string
	refreshes  atomic.Int32
	apiCalls   atomic.Int32
	routes     map[string]http.HandlerFunc
}

func newFakeFeedly(t *testing.T) *fakeFeedly {
	f := &fakeFeedly{validToken: "fresh", routes: map[string]http.HandlerFunc{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v3/auth/token" {
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "client", req["client_id"])
			switch req["grant_type"] {
			case "refresh_token":
				f.refreshes.Add(1)
				assert.Equal(t, "refresh-1", req["refresh_token"])
				issued := f.validToken
				if f.issued != "" {
					issued = f.issued
				}
				fmt.Fprintf(w, `{"access_token":%q}`, issued)
			case "authorization_code":
				assert.Equal(t, "code-1", req["code"])
				assert.Equal(t, "https://app.example/callback", req["redirect_uri"])
				_, _ = w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","id":"u1"}`))
			default:
				w.WriteHeader(http.StatusBadRequest)
			}
			return
		}

		f.apiCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		route, ok := f.routes[r.URL.EscapedPath()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		route(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeFeedly) adaptor(access string) *Adaptor {
	return New(reader.ProviderConfig{
		URL:          f.URL + "/v3",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "https://app.example/callback",
	}, reader.Token{AccessToken: access, RefreshToken: "refresh-1"})
}

func respond(s string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(s))
	}
}

func unreadItems(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"id":"%s%d","unread":true,"published":%d,"originId":"https://a.example/%s%d"}`, prefix, i, 1700000000000+int64(i)*1000, prefix, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

const streamPathA = "/v3/streams/feed%2Fhttp%3A%2F%2Fa.example%2Frss/contents"

func TestLoginUsesJSON(t *testing.T) {
	f := newFakeFeedly(t)
	token, err := f.adaptor("").Login(context.Background(), reader.Credentials{AuthorizationCode: "code-1"})
	require.NoError(t, err)
	assert.Equal(t, reader.Token{AccessToken: "access-1", RefreshToken: "refresh-1"}, token)
}

func TestUserAndRefresh(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/profile"] = respond(`{"id":"c805fcbf","email":"jane@example.com","fullName":"Jane Doe"}`)

	res, err := f.adaptor("fresh").User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reader.ExternalUser{ID: "c805fcbf", UserName: "jane@example.com", DisplayName: "Jane Doe"}, res.Value)
	assert.EqualValues(t, 0, f.refreshes.Load())

	res, err = f.adaptor("old").User(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.refreshes.Load())
	require.True(t, res.Refreshed())
	assert.Equal(t, "fresh", res.Token.AccessToken)
}

func TestFeedsAcceptsSingleObject(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/subscriptions"] = respond(`{"id":"feed/1","title":"Only","categories":[{"id":"c/1","label":"news"}]}`)

	res, err := f.adaptor("fresh").Feeds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []reader.ExternalFeed{{FeedID: "feed/1", Title: "Only", Categories: []string{"news"}}}, res.Value)
}

func TestFeedsArray(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/subscriptions"] = respond(`[{"id":"feed/1","title":"One"},{"id":"feed/2","title":"Two","categories":[]}]`)

	res, err := f.adaptor("fresh").Feeds(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	assert.Nil(t, res.Value[0].Categories)
	assert.Equal(t, []string{}, res.Value[1].Categories)
}

func TestUnreadCapsAtHundred(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/markers/counts"] = respond(`{"unreadcounts":[{"id":"` + feedID + `","count":250}]}`)
	var pages int
	f.routes[streamPathA] = func(w http.ResponseWriter, r *http.Request) {
		pages++
		c := r.URL.Query().Get("continuation")
		fmt.Fprintf(w, `{"items":%s,"continuation":"next-%s"}`, unreadItems("p"+c, 60), c)
	}

	res, err := f.adaptor("fresh").Unread(context.Background(), []string{feedID})
	require.NoError(t, err)
	assert.Len(t, res.Value[feedID], 100)
	assert.Equal(t, 2, pages)
}

func TestUnreadSinglePageNoContinuation(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/markers/counts"] = respond(`{"unreadcounts":[{"id":"` + feedID + `","count":2}]}`)
	var pages int
	f.routes[streamPathA] = func(w http.ResponseWriter, r *http.Request) {
		pages++
		fmt.Fprintf(w, `{"items":%s}`, unreadItems("a", 2))
	}

	res, err := f.adaptor("fresh").Unread(context.Background(), []string{feedID})
	require.NoError(t, err)
	assert.Len(t, res.Value[feedID], 2)
	assert.Equal(t, 1, pages)
}

func TestUnreadContinuationOrder(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/markers/counts"] = respond(`{"unreadcounts":[{"id":"` + feedID + `","count":10}]}`)
	f.routes[streamPathA] = func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("continuation") {
		case "":
			fmt.Fprintf(w, `{"items":%s,"continuation":"A"}`, unreadItems("x", 2))
		case "A":
			fmt.Fprintf(w, `{"items":%s,"continuation":"B"}`, unreadItems("y", 2))
		case "B":
			fmt.Fprintf(w, `{"items":%s}`, unreadItems("z", 1))
		}
	}

	res, err := f.adaptor("fresh").Unread(context.Background(), []string{feedID})
	require.NoError(t, err)
	var ids []string
	for _, e := range res.Value[feedID] {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"x0", "x1", "y0", "y1", "z0"}, ids)
}

func TestUnreadSkipsReadAndURLLessItems(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/markers/counts"] = respond(`{"unreadcounts":[{"id":"` + feedID + `","count":5},{"id":"feed/empty","count":0}]}`)
	f.routes[streamPathA] = respond(`{"items":[
		{"id":"read","unread":false,"originId":"https://a.example/read"},
		{"id":"missing-flag","originId":"https://a.example/missing"},
		{"id":"no-url","unread":true,"originId":"tag:a.example,2024:1"},
		{"id":"alt","unread":true,"originId":"tag:a.example,2024:2","alternate":[{"href":"https://a.example/alt","type":"text/html"}],"summary":{"content":"s"}},
		{"id":"origin","unread":true,"originId":"https://a.example/origin","content":{"content":"c"},"summary":{"content":"s"}}
	]}`)

	res, err := f.adaptor("fresh").Unread(context.Background(), []string{feedID, "feed/empty"})
	require.NoError(t, err)
	entries := res.Value[feedID]
	require.Len(t, entries, 2)
	assert.Equal(t, "https://a.example/alt", entries[0].URL)
	assert.Equal(t, "s", entries[0].Content)
	assert.Equal(t, "https://a.example/origin", entries[1].URL)
	assert.Equal(t, "c", entries[1].Content)
	assert.Empty(t, res.Value["feed/empty"])
}

func TestMarkers(t *testing.T) {
	f := newFakeFeedly(t)
	var bodies []map[string]any
	f.routes["/v3/markers"] = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		bodies = append(bodies, body)
	}
	a := f.adaptor("fresh")
	ctx := context.Background()

	for _, call := range []func() (reader.Result[bool], error){
		func() (reader.Result[bool], error) { return a.MarkArticleRead(ctx, []string{"e1"}) },
		func() (reader.Result[bool], error) { return a.MarkArticleUnread(ctx, []string{"e1"}) },
		func() (reader.Result[bool], error) { return a.SaveArticle(ctx, []string{"e1"}) },
		func() (reader.Result[bool], error) { return a.MarkFeedRead(ctx, []string{"feed/1", "feed/2"}, 1700000000123) },
	} {
		res, err := call()
		require.NoError(t, err)
		assert.True(t, res.Value)
	}

	require.Len(t, bodies, 4)
	assert.Equal(t, "markAsRead", bodies[0]["action"])
	assert.Equal(t, "entries", bodies[0]["type"])
	assert.Equal(t, []any{"e1"}, bodies[0]["entryIds"])
	assert.Equal(t, "keepUnread", bodies[1]["action"])
	assert.Equal(t, "markAsSaved", bodies[2]["action"])
	assert.Equal(t, "feeds", bodies[3]["type"])
	assert.Equal(t, float64(1700000000123), bodies[3]["asOf"])
	assert.Equal(t, []any{"feed/1", "feed/2"}, bodies[3]["feedIds"])
}

func TestSecondRejectionStops(t *testing.T) {
	f := newFakeFeedly(t)
	f.issued = "also-rejected"

	_, err := f.adaptor("old").MarkArticleRead(context.Background(), []string{"e1"})
	require.Error(t, err)
	assert.True(t, reader.NeedsReauth(err))
	assert.EqualValues(t, 1, f.refreshes.Load())
	assert.EqualValues(t, 2, f.apiCalls.Load())
}

func TestUnreadPublishedIsMilliseconds(t *testing.T) {
	f := newFakeFeedly(t)
	f.routes["/v3/markers/counts"] = respond(`{"unreadcounts":[{"id":"` + feedID + `","count":1}]}`)
	f.routes[streamPathA] = respond(`{"items":[
		{"id":"ms","unread":true,"published":1700000000123,"originId":"https://a.example/ms"}
	]}`)

	res, err := f.adaptor("fresh").Unread(context.Background(), []string{feedID})
	require.NoError(t, err)
	require.Len(t, res.Value[feedID], 1)
	published := res.Value[feedID][0].Published
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), published)
	assert.Equal(t, 2023, published.Year())

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.SaveEntries("feedly:u", res.Value)
	require.NoError(t, err)
}

func TestArticleURLRequiresWebOrigin(t *testing.T) {
	alternate := []link{{Href: "https://a.example/alt", Type: "text/html"}}

	assert.Equal(t, "https://a.example/o", articleURL(item{OriginID: "https://a.example/o", Alternate: alternate}))
	assert.Equal(t, "http://a.example/o", articleURL(item{OriginID: "http://a.example/o", Alternate: alternate}))
	assert.Equal(t, "https://a.example/alt", articleURL(item{OriginID: "ftp://a.example/o", Alternate: alternate}))
	assert.Equal(t, "", articleURL(item{OriginID: "file:///tmp/o"}))
}
