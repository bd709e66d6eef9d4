// Package oldreader implements the reader.Adaptor for The Old Reader. It
// authenticates with ClientLogin and has no refresh token, so a rejected
// token always requires a new login.
package oldreader

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/reader/greader"
)

// ClientName identifies this application at login.
const ClientName = "readerlink"

type Adaptor struct {
	cfg    reader.ProviderConfig
	client *reader.Client
	token  reader.Token
}

var _ reader.Adaptor = (*Adaptor)(nil)

func New(cfg reader.ProviderConfig, token reader.Token) *Adaptor {
	return &Adaptor{
		cfg:    cfg,
		client: reader.NewClient(reader.OldReader, cfg),
		token:  token,
	}
}

func (a *Adaptor) Provider() reader.Provider { return reader.OldReader }

func (a *Adaptor) Token() reader.Token { return a.token }

func (a *Adaptor) WithToken(token reader.Token) reader.Adaptor {
	return &Adaptor{cfg: a.cfg, client: a.client, token: token}
}

// Login posts the username and password to ClientLogin. The response is
// a key=value list; a body without an Auth line is reported as 503.
func (a *Adaptor) Login(ctx context.Context, creds reader.Credentials) (reader.Token, error) {
	resp, err := a.client.Expect(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.cfg.AuthURL,
		Form: url.Values{
			"client":      {ClientName},
			"accountType": {"HOSTED_OR_GOOGLE"},
			"service":     {"reader"},
			"Email":       {creds.Username},
			"Passwd":      {creds.Password},
		},
	})
	if err != nil {
		return reader.Token{}, err
	}

	body := string(resp.Body)
	token, ok := extractAuth(body)
	if !ok {
		return reader.Token{}, reader.NewAPIError(http.StatusServiceUnavailable, body)
	}
	return reader.Token{AccessToken: token}, nil
}

func extractAuth(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		parts := strings.Split(strings.TrimRight(line, "\r"), "=")
		if len(parts) == 2 && parts[0] == "Auth" && parts[1] != "" {
			return parts[1], true
		}
	}
	return "", false
}

func authHeader(accessToken string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "GoogleLogin auth="+accessToken)
	return h
}

// request adds output=json to every call and never refreshes.
func (a *Adaptor) request(ctx context.Context, s *reader.Session, method, path string, query, form url.Values) (*reader.Response, error) {
	q := url.Values{"output": {"json"}}
	for k, vs := range query {
		q[k] = vs
	}
	return a.client.Authorized(ctx, s, nil, func(accessToken string) *reader.Request {
		return &reader.Request{
			Method: method,
			URL:    a.cfg.URL + path,
			Query:  q,
			Form:   form,
			Header: authHeader(accessToken),
		}
	})
}

func (a *Adaptor) api(s *reader.Session) greader.API {
	return greader.API{
		Get: func(ctx context.Context, path string, query url.Values) (*reader.Response, error) {
			return a.request(ctx, s, http.MethodGet, path, query, nil)
		},
	}
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

// MarkFeedRead posts mark-all-as-read per feed with the cutoff in
// nanoseconds.
func (a *Adaptor) MarkFeedRead(ctx context.Context, feedIDs []string, timestampMs int64) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	for _, feedID := range feedIDs {
		form := url.Values{
			"s":  {feedID},
			"ts": {strconv.FormatInt(timestampMs*1000000, 10)},
		}
		if _, err := a.request(ctx, s, http.MethodPost, "/mark-all-as-read", nil, form); err != nil {
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

func (a *Adaptor) editTag(ctx context.Context, action, tag string, ids []string) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	form := url.Values{action: {tag}, "i": ids}
	if _, err := a.request(ctx, s, http.MethodPost, "/edit-tag", nil, form); err != nil {
		return reader.Fail[bool](s, err)
	}
	return reader.Finish(s, true), nil
}
