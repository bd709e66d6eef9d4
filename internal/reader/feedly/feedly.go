// Package feedly implements the reader.Adaptor for the Feedly cloud API.
package feedly

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/pders01/readerlink/internal/debuglog"
	"github.com/pders01/readerlink/internal/reader"
)

type Adaptor struct {
	cfg    reader.ProviderConfig
	client *reader.Client
	token  reader.Token
}

var _ reader.Adaptor = (*Adaptor)(nil)

func New(cfg reader.ProviderConfig, token reader.Token) *Adaptor {
	return &Adaptor{
		cfg:    cfg,
		client: reader.NewClient(reader.Feedly, cfg),
		token:  token,
	}
}

func (a *Adaptor) Provider() reader.Provider { return reader.Feedly }

func (a *Adaptor) Token() reader.Token { return a.token }

func (a *Adaptor) WithToken(token reader.Token) reader.Adaptor {
	return &Adaptor{cfg: a.cfg, client: a.client, token: token}
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (a *Adaptor) tokenEndpoint() string {
	return a.cfg.URL + "/auth/token"
}

func (a *Adaptor) Login(ctx context.Context, creds reader.Credentials) (reader.Token, error) {
	resp, err := a.client.Expect(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.tokenEndpoint(),
		JSON: tokenRequest{
			GrantType:    "authorization_code",
			ClientID:     a.cfg.ClientID,
			ClientSecret: a.cfg.ClientSecret,
			Code:         creds.AuthorizationCode,
			RedirectURI:  a.cfg.RedirectURL,
		},
	})
	if err != nil {
		return reader.Token{}, err
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return reader.Token{}, err
	}
	return reader.Token{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken}, nil
}

func (a *Adaptor) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := a.client.Expect(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.tokenEndpoint(),
		JSON: tokenRequest{
			GrantType:    "refresh_token",
			ClientID:     a.cfg.ClientID,
			ClientSecret: a.cfg.ClientSecret,
			RefreshToken: refreshToken,
		},
	})
	if err != nil {
		return "", err
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return "", err
	}
	return tr.AccessToken, nil
}

func (a *Adaptor) get(ctx context.Context, s *reader.Session, path string, query url.Values) (*reader.Response, error) {
	return a.client.Authorized(ctx, s, a.refresh, func(accessToken string) *reader.Request {
		return &reader.Request{
			URL:    a.cfg.URL + path,
			Query:  query,
			Header: reader.Bearer(accessToken),
		}
	})
}

func (a *Adaptor) getJSON(ctx context.Context, s *reader.Session, path string, query url.Values, v any) error {
	resp, err := a.get(ctx, s, path, query)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

func (a *Adaptor) post(ctx context.Context, s *reader.Session, path string, body any) error {
	_, err := a.client.Authorized(ctx, s, a.refresh, func(accessToken string) *reader.Request {
		return &reader.Request{
			Method: http.MethodPost,
			URL:    a.cfg.URL + path,
			JSON:   body,
			Header: reader.Bearer(accessToken),
		}
	})
	return err
}

func (a *Adaptor) User(ctx context.Context) (reader.Result[reader.ExternalUser], error) {
	s := reader.NewSession(a.token)
	var p profile
	if err := a.getJSON(ctx, s, "/profile", nil, &p); err != nil {
		return reader.Fail[reader.ExternalUser](s, err)
	}
	return reader.Finish(s, p.toUser()), nil
}

func (a *Adaptor) Feeds(ctx context.Context) (reader.Result[[]reader.ExternalFeed], error) {
	s := reader.NewSession(a.token)
	resp, err := a.get(ctx, s, "/subscriptions", nil)
	if err != nil {
		return reader.Fail[[]reader.ExternalFeed](s, err)
	}
	subs, err := decodeSubscriptions(resp.Body)
	if err != nil {
		return reader.Fail[[]reader.ExternalFeed](s, err)
	}
	return reader.Finish(s, toFeeds(subs)), nil
}

func (a *Adaptor) unreadCounts(ctx context.Context, s *reader.Session, feedIDs []string) (map[string]int, error) {
	var counts markerCounts
	if err := a.getJSON(ctx, s, "/markers/counts", nil, &counts); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, c := range counts.UnreadCounts {
		if slices.Contains(feedIDs, c.ID) {
			n, _ := strconv.Atoi(c.Count.String())
			out[c.ID] = n
		}
	}
	return out, nil
}

func (a *Adaptor) UnreadCount(ctx context.Context, feedIDs []string) (reader.Result[map[string]int], error) {
	s := reader.NewSession(a.token)
	counts, err := a.unreadCounts(ctx, s, feedIDs)
	if err != nil {
		return reader.Fail[map[string]int](s, err)
	}
	return reader.Finish(s, counts), nil
}

// Unread fetches at most MaxArticlesPerFeed unread entries per feed. Feeds
// without unread entries are returned empty without a stream request.
func (a *Adaptor) Unread(ctx context.Context, feedIDs []string) (reader.Result[map[string][]reader.FeedEntry], error) {
	s := reader.NewSession(a.token)
	counts, err := a.unreadCounts(ctx, s, feedIDs)
	if err != nil {
		return reader.Fail[map[string][]reader.FeedEntry](s, err)
	}

	unread := make(map[string][]reader.FeedEntry, len(counts))
	for feedID, count := range counts {
		target := reader.Cap(count)
		if target <= 0 {
			unread[feedID] = []reader.FeedEntry{}
			continue
		}
		if count > target {
			debuglog.WithFields(map[string]any{"feed": feedID, "unread": count}).
				Infof("feedly feed exceeds the per-feed cap of %d", reader.MaxArticlesPerFeed)
		}

		entries, err := a.stream(ctx, s, feedID, target)
		if err != nil {
			return reader.Fail[map[string][]reader.FeedEntry](s, err)
		}
		unread[feedID] = entries
	}
	return reader.Finish(s, unread), nil
}

func (a *Adaptor) stream(ctx context.Context, s *reader.Session, feedID string, target int) ([]reader.FeedEntry, error) {
	path := streamPath(feedID)
	pagination := reader.Pagination{Target: target, Truncate: true}
	return reader.Collect(ctx, pagination, func(ctx context.Context, cursor string, _ int) (reader.Page, error) {
		var query url.Values
		if cursor != "" {
			query = url.Values{"continuation": {cursor}}
		}

		var page streamContents
		if err := a.getJSON(ctx, s, path, query, &page); err != nil {
			return reader.Page{}, err
		}
		if page.Items == nil {
			return reader.Page{}, nil
		}
		return reader.Page{Entries: toEntries(*page.Items), Next: page.Continuation.String()}, nil
	})
}

type entryMarker struct {
	Action   string   `json:"action"`
	Type     string   `json:"type"`
	EntryIDs []string `json:"entryIds"`
}

type feedMarker struct {
	Action  string   `json:"action"`
	AsOf    int64    `json:"asOf"`
	Type    string   `json:"type"`
	FeedIDs []string `json:"feedIds"`
}

// MarkFeedRead marks all feeds in one request. asOf is in milliseconds.
func (a *Adaptor) MarkFeedRead(ctx context.Context, feedIDs []string, timestampMs int64) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	marker := feedMarker{Action: "markAsRead", AsOf: timestampMs, Type: "feeds", FeedIDs: feedIDs}
	if err := a.post(ctx, s, "/markers", marker); err != nil {
		return reader.Fail[bool](s, err)
	}
	return reader.Finish(s, true), nil
}

func (a *Adaptor) MarkArticleRead(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.markEntries(ctx, "markAsRead", ids)
}

func (a *Adaptor) MarkArticleUnread(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.markEntries(ctx, "keepUnread", ids)
}

func (a *Adaptor) SaveArticle(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.markEntries(ctx, "markAsSaved", ids)
}

func (a *Adaptor) markEntries(ctx context.Context, action string, ids []string) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	if err := a.post(ctx, s, "/markers", entryMarker{Action: action, Type: "entries", EntryIDs: ids}); err != nil {
		return reader.Fail[bool](s, err)
	}
	return reader.Finish(s, true), nil
}
