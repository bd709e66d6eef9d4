// Package inoreader implements the reader.Adaptor for Inoreader's OAuth2
// protected Google Reader style API.
package inoreader

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/reader/greader"
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
		client: reader.NewClient(reader.Inoreader, cfg),
		token:  token,
	}
}

func (a *Adaptor) Provider() reader.Provider { return reader.Inoreader }

func (a *Adaptor) Token() reader.Token { return a.token }

func (a *Adaptor) WithToken(token reader.Token) reader.Adaptor {
	return &Adaptor{cfg: a.cfg, client: a.client, token: token}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges an OAuth authorization code for a token pair.
func (a *Adaptor) Login(ctx context.Context, creds reader.Credentials) (reader.Token, error) {
	resp, err := a.client.Expect(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.cfg.AuthURL,
		Form: url.Values{
			"code":          {creds.AuthorizationCode},
			"redirect_uri":  {a.cfg.RedirectURL},
			"client_id":     {a.cfg.ClientID},
			"client_secret": {a.cfg.ClientSecret},
			"scope":         {"write"},
			"grant_type":    {"authorization_code"},
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

// refresh trades the refresh token for a new access token. A 400 naming an
// invalid refresh token is reported as 401 so callers ask for a new login.
func (a *Adaptor) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := a.client.Do(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.cfg.AuthURL,
		Form: url.Values{
			"client_id":     {a.cfg.ClientID},
			"client_secret": {a.cfg.ClientSecret},
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		},
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		body := string(resp.Body)
		if isInvalidRefreshToken(resp.Status, body) {
			return "", reader.NewAPIError(http.StatusUnauthorized, body)
		}
		return "", resp.Err()
	}

	var tr tokenResponse
	if err := resp.Decode(&tr); err != nil {
		return "", err
	}
	return tr.AccessToken, nil
}

func isInvalidRefreshToken(status int, body string) bool {
	return status == http.StatusBadRequest && strings.Contains(body, "Invalid refresh token")
}

func (a *Adaptor) get(s *reader.Session) greader.GetFunc {
	return func(ctx context.Context, path string, query url.Values) (*reader.Response, error) {
		return a.client.Authorized(ctx, s, a.refresh, func(accessToken string) *reader.Request {
			return &reader.Request{
				URL:    a.cfg.URL + path,
				Query:  query,
				Header: reader.Bearer(accessToken),
			}
		})
	}
}

func (a *Adaptor) api(s *reader.Session) greader.API {
	return greader.API{Get: a.get(s), EscapeFeedID: reader.PathSegmentEscape}
}

func (a *Adaptor) User(ctx context.Context) (reader.Result[reader.ExternalUser], error) {
	s := reader.NewSession(a.token)
	user, err := a.api(s).User(ctx)
	if err != nil {
		return reader.Fail[reader.ExternalUser](s, err)
	}
	return reader.Finish(s, user), nil
}

func (a *Adaptor) Feeds(ctx context.Context) (reader.Result[[]reader.ExternalFeed], error) {
	s := reader.NewSession(a.token)
	feeds, err := a.api(s).Feeds(ctx)
	if err != nil {
		return reader.Fail[[]reader.ExternalFeed](s, err)
	}
	return reader.Finish(s, feeds), nil
}

func (a *Adaptor) UnreadCount(ctx context.Context, feedIDs []string) (reader.Result[map[string]int], error) {
	s := reader.NewSession(a.token)
	counts, err := a.api(s).UnreadCount(ctx, feedIDs)
	if err != nil {
		return reader.Fail[map[string]int](s, err)
	}
	return reader.Finish(s, counts), nil
}

func (a *Adaptor) Unread(ctx context.Context, feedIDs []string) (reader.Result[map[string][]reader.FeedEntry], error) {
	s := reader.NewSession(a.token)
	unread, err := a.api(s).Unread(ctx, feedIDs)
	if err != nil {
		return reader.Fail[map[string][]reader.FeedEntry](s, err)
	}
	return reader.Finish(s, unread), nil
}

// MarkFeedRead issues one mark-all-as-read per feed. Inoreader expects the
// cutoff in microseconds.
func (a *Adaptor) MarkFeedRead(ctx context.Context, feedIDs []string, timestampMs int64) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	get := a.get(s)
	for _, feedID := range feedIDs {
		query := url.Values{
			"s":  {feedID},
			"ts": {strconv.FormatInt(timestampMs*1000, 10)},
		}
		if _, err := get(ctx, "/mark-all-as-read", query); err != nil {
			return reader.Fail[bool](s, err)
		}
	}
	return reader.Finish(s, true), nil
}

func (a *Adaptor) MarkArticleRead(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.editTag(ctx, "a", greader.TagRead, ids)
}

func (a *Adaptor) MarkArticleUnread(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.editTag(ctx, "r", greader.TagRead, ids)
}

func (a *Adaptor) SaveArticle(ctx context.Context, ids []string) (reader.Result[bool], error) {
	return a.editTag(ctx, "a", greader.TagStarred, ids)
}

// editTag sends the tag and ids in the query string with an empty text
// body.
func (a *Adaptor) editTag(ctx context.Context, action, tag string, ids []string) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	empty := ""
	query := url.Values{action: {tag}, "i": ids}
	_, err := a.client.Authorized(ctx, s, a.refresh, func(accessToken string) *reader.Request {
		return &reader.Request{
			Method: http.MethodPost,
			URL:    a.cfg.URL + "/edit-tag",
			Query:  query,
			Header: reader.Bearer(accessToken),
			Text:   &empty,
		}
	})
	if err != nil {
		return reader.Fail[bool](s, err)
	}
	return reader.Finish(s, true), nil
}
