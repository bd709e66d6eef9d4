// Package newsblur implements the reader.Adaptor for NewsBlur. NewsBlur
// tokens are not refreshed: a rejected token requires a new login.
package newsblur

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pders01/readerlink/internal/debuglog"
	"github.com/pders01/readerlink/internal/reader"
)

// DefaultTimeout is NewsBlur's request timeout when none is configured.
const DefaultTimeout = 5 * time.Second

type Adaptor struct {
	cfg    reader.ProviderConfig
	client *reader.Client
	token  reader.Token
}

var _ reader.Adaptor = (*Adaptor)(nil)

func New(cfg reader.ProviderConfig, token reader.Token) *Adaptor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Adaptor{
		cfg:    cfg,
		client: reader.NewClient(reader.Newsblur, cfg),
		token:  token,
	}
}

func (a *Adaptor) Provider() reader.Provider { return reader.Newsblur }

func (a *Adaptor) Token() reader.Token { return a.token }

func (a *Adaptor) WithToken(token reader.Token) reader.Adaptor {
	return &Adaptor{cfg: a.cfg, client: a.client, token: token}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (a *Adaptor) Login(ctx context.Context, creds reader.Credentials) (reader.Token, error) {
	resp, err := a.client.Expect(ctx, &reader.Request{
		Method: http.MethodPost,
		URL:    a.cfg.URL + "/oauth/token",
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

// getJSON decodes a GET response into v. A 200 carrying
// "authenticated": false is reported as 401.
func (a *Adaptor) getJSON(ctx context.Context, s *reader.Session, path string, query url.Values, v any) error {
	resp, err := a.client.Authorized(ctx, s, nil, func(accessToken string) *reader.Request {
		return &reader.Request{
			URL:    a.cfg.URL + path,
			Query:  query,
			Header: reader.Bearer(accessToken),
		}
	})
	if err != nil {
		return err
	}

	var state authState
	if err := resp.Decode(&state); err != nil {
		return err
	}
	if state.Authenticated != nil && !*state.Authenticated {
		return reader.NewAPIError(http.StatusUnauthorized, "not authenticated")
	}
	return resp.Decode(v)
}

func (a *Adaptor) post(ctx context.Context, s *reader.Session, path string, form url.Values) error {
	_, err := a.client.Authorized(ctx, s, nil, func(accessToken string) *reader.Request {
		return &reader.Request{
			Method: http.MethodPost,
			URL:    a.cfg.URL + path,
			Form:   form,
			Header: reader.Bearer(accessToken),
		}
	})
	return err
}

// User reads the social profile. The e-mail address comes from the payment
// history when available; failing to read it only keeps the username.
func (a *Adaptor) User(ctx context.Context) (reader.Result[reader.ExternalUser], error) {
	s := reader.NewSession(a.token)
	var p socialProfile
	if err := a.getJSON(ctx, s, "/social/profile", nil, &p); err != nil {
		return reader.Fail[reader.ExternalUser](s, err)
	}
	user := reader.ExternalUser{
		ID:          p.UserID.String(),
		UserName:    p.UserProfile.Username,
		DisplayName: p.UserProfile.Username,
	}

	var history paymentHistory
	if err := a.getJSON(ctx, s, "/profile/payment_history", nil, &history); err != nil {
		debuglog.Warnf("newsblur: could not read e-mail of user %s: %v", user.ID, err)
	} else if history.Statistics != nil && history.Statistics.Email != nil {
		user.UserName = *history.Statistics.Email
	}
	return reader.Finish(s, user), nil
}

func (a *Adaptor) Feeds(ctx context.Context) (reader.Result[[]reader.ExternalFeed], error) {
	s := reader.NewSession(a.token)
	var resp feedsResponse
	if err := a.getJSON(ctx, s, "/reader/feeds", nil, &resp); err != nil {
		return reader.Fail[[]reader.ExternalFeed](s, err)
	}
	infos, err := decodeFeeds(resp.Feeds)
	if err != nil {
		return reader.Fail[[]reader.ExternalFeed](s, err)
	}

	folders := folderMembership(resp.Folders)
	feeds := make([]reader.ExternalFeed, 0, len(infos))
	for _, info := range infos {
		id := info.ID.String()
		feeds = append(feeds, reader.ExternalFeed{
			FeedID:     id,
			Title:      info.Title,
			Categories: folders[id],
		})
	}
	return reader.Finish(s, feeds), nil
}

func (a *Adaptor) unreadCounts(ctx context.Context, s *reader.Session, feedIDs []string) (map[string]int, error) {
	var resp refreshFeeds
	if err := a.getJSON(ctx, s, "/reader/refresh_feeds", nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, id := range feedIDs {
		if feed, ok := resp.Feeds[id]; ok {
			out[id] = feed.NT
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

// Unread pages through /reader/feed/{id} from page 1 until the capped
// unread count is reached or a page has no stories.
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
		entries, err := a.stories(ctx, s, feedID, target)
		if err != nil {
			return reader.Fail[map[string][]reader.FeedEntry](s, err)
		}
		unread[feedID] = entries
	}
	return reader.Finish(s, unread), nil
}

func (a *Adaptor) stories(ctx context.Context, s *reader.Session, feedID string, target int) ([]reader.FeedEntry, error) {
	path := "/reader/feed/" + reader.PathSegmentEscape(feedID)
	pagination := reader.Pagination{Target: target, First: "1", Truncate: true}
	return reader.Collect(ctx, pagination, func(ctx context.Context, cursor string, _ int) (reader.Page, error) {
		var page storiesPage
		if err := a.getJSON(ctx, s, path, url.Values{"page": {cursor}}, &page); err != nil {
			return reader.Page{}, err
		}
		if page.Stories == nil || len(*page.Stories) == 0 {
			return reader.Page{}, nil
		}

		var entries []reader.FeedEntry
		for _, st := range *page.Stories {
			if st.unread() {
				entries = append(entries, st.toEntry())
			}
		}
		n, _ := strconv.Atoi(cursor)
		return reader.Page{Entries: entries, Next: strconv.Itoa(n + 1)}, nil
	})
}

// MarkFeedRead marks each feed read up to the cutoff, given to NewsBlur
// in seconds.
func (a *Adaptor) MarkFeedRead(ctx context.Context, feedIDs []string, timestampMs int64) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	for _, feedID := range feedIDs {
		form := url.Values{
			"feed_id":          {feedID},
			"cutoff_timestamp": {strconv.FormatInt(timestampMs/1000, 10)},
		}
		if err := a.post(ctx, s, "/reader/mark_feed_as_read", form); err != nil {
			return reader.Fail[bool](s, err)
		}
	}
	return reader.Finish(s, true), nil
}

// Article ids are NewsBlur story hashes.
func (a *Adaptor) MarkArticleRead(ctx context.Context, hashes []string) (reader.Result[bool], error) {
	return a.markStories(ctx, "/reader/mark_story_hashes_as_read", hashes)
}

func (a *Adaptor) MarkArticleUnread(ctx context.Context, hashes []string) (reader.Result[bool], error) {
	return a.markStories(ctx, "/reader/mark_story_hash_as_unread", hashes)
}

func (a *Adaptor) SaveArticle(ctx context.Context, hashes []string) (reader.Result[bool], error) {
	return a.markStories(ctx, "/reader/mark_story_hash_as_starred", hashes)
}

func (a *Adaptor) markStories(ctx context.Context, path string, hashes []string) (reader.Result[bool], error) {
	s := reader.NewSession(a.token)
	if err := a.post(ctx, s, path, url.Values{"story_hash": hashes}); err != nil {
		return reader.Fail[bool](s, err)
	}
	return reader.Finish(s, true), nil
}
