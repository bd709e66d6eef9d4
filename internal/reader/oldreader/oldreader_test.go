package oldreader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/readerlink/internal/reader"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func adaptorFor(srv *httptest.Server, token string) *Adaptor {
	return New(reader.ProviderConfig{
		URL:     srv.URL + "/reader/api/0",
		AuthURL: srv.URL + "/accounts/ClientLogin",
	}, reader.Token{AccessToken: token})
}

func TestLogin(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/accounts/ClientLogin", r.URL.Path)
		assert.Equal(t, "readerlink", r.PostForm.Get("client"))
		assert.Equal(t, "HOSTED_OR_GOOGLE", r.PostForm.Get("accountType"))
		assert.Equal(t, "reader", r.PostForm.Get("service"))
		assert.Equal(t, "jane@example.com", r.PostForm.Get("Email"))
		switch r.PostForm.Get("Passwd") {
		case "secret":
			_, _ = w.Write([]byte("SID=none\nLSID=none\nAuth=abc123\n"))
		case "odd":
			_, _ = w.Write([]byte("SID=none\nLSID=none\n"))
		case "blank":
			_, _ = w.Write([]byte("SID=none\nAuth=\n"))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Error=BadAuthentication"))
		}
	})
	a := adaptorFor(srv, "")
	ctx := context.Background()

	token, err := a.Login(ctx, reader.Credentials{Username: "jane@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, reader.Token{AccessToken: "abc123"}, token)

	_, err = a.Login(ctx, reader.Credentials{Username: "jane@example.com", Password: "odd"})
	apiErr, ok := reader.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Contains(t, apiErr.Body, "LSID=none")

	_, err = a.Login(ctx, reader.Credentials{Username: "jane@example.com", Password: "blank"})
	apiErr, ok = reader.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	_, err = a.Login(ctx, reader.Credentials{Username: "jane@example.com", Password: "wrong"})
	apiErr, ok = reader.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
}

func TestExtractAuth(t *testing.T) {
	token, ok := extractAuth("SID=x\r\nAuth=tok\r\n")
	assert.True(t, ok)
	assert.Equal(t, "tok", token)

	_, ok = extractAuth("Auth=a=b")
	assert.False(t, ok)

	_, ok = extractAuth("SID=x\nAuth=\n")
	assert.False(t, ok)
}

func TestRequestsUseGoogleLoginAndJSONOutput(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GoogleLogin auth=abc123", r.Header.Get("Authorization"))
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		switch r.URL.Path {
		case "/reader/api/0/user-info":
			_, _ = w.Write([]byte(`{"userId":"5a0c","userName":"jane","userEmail":"jane@example.com"}`))
		case "/reader/api/0/unread-count":
			_, _ = w.Write([]byte(`{"unreadcounts":[{"id":"feed/00157a17b192950b65be3791","count":1}]}`))
		case "/reader/api/0/stream/contents/feed/00157a17b192950b65be3791":
			assert.Equal(t, "user/-/state/com.google/read", r.URL.Query().Get("xt"))
			_, _ = w.Write([]byte(`{"items":[{"id":"tag:google.com,2005:reader/item/1","title":"t","published":1700000000,"canonical":[{"href":"https://b.example/1"}]}]}`))
		default:
			http.NotFound(w, r)
		}
	})
	a := adaptorFor(srv, "abc123")

	user, err := a.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5a0c", user.Value.ID)

	unread, err := a.Unread(context.Background(), []string{"feed/00157a17b192950b65be3791"})
	require.NoError(t, err)
	entries := unread.Value["feed/00157a17b192950b65be3791"]
	require.Len(t, entries, 1)
	assert.Equal(t, "https://b.example/1", entries[0].URL)
	assert.False(t, unread.Refreshed())
}

func TestUnauthorizedIsTerminal(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		var calls atomic.Int32
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		})

		res, err := adaptorFor(srv, "stale").Feeds(context.Background())
		require.Error(t, err)
		assert.True(t, reader.NeedsReauth(err))
		assert.False(t, res.Refreshed())
		assert.EqualValues(t, 1, calls.Load())
	}
}

func TestMarkFeedReadUsesNanoseconds(t *testing.T) {
	var forms []string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reader/api/0/mark-all-as-read", r.URL.Path)
		require.NoError(t, r.ParseForm())
		forms = append(forms, r.PostForm.Get("s")+"@"+r.PostForm.Get("ts"))
		_, _ = w.Write([]byte("OK"))
	})

	res, err := adaptorFor(srv, "abc123").MarkFeedRead(context.Background(), []string{"feed/1"}, 1700000000123)
	require.NoError(t, err)
	assert.True(t, res.Value)
	assert.Equal(t, []string{"feed/1@1700000000123000000"}, forms)
}

func TestMarkFeedReadReportsFailure(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := adaptorFor(srv, "abc123").MarkFeedRead(context.Background(), []string{"feed/1"}, 1)
	assert.Error(t, err)
}

func TestEditTagForm(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reader/api/0/edit-tag", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user/-/state/com.google/starred", r.PostForm.Get("a"))
		assert.Equal(t, []string{"x", "y"}, r.PostForm["i"])
		_, _ = w.Write([]byte("OK"))
	})

	res, err := adaptorFor(srv, "abc123").SaveArticle(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.True(t, res.Value)
}
