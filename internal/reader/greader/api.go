package greader

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pders01/readerlink/internal/reader"
)

// GetFunc issues an authenticated GET against path below the provider's
// API root. It owns the provider's auth scheme and refresh policy.
type GetFunc func(ctx context.Context, path string, query url.Values) (*reader.Response, error)

// API implements the read side shared by Google Reader style providers.
type API struct {
	Get GetFunc
	// EscapeFeedID prepares a feed id for use as a path segment. Nil keeps
	// the id as is.
	EscapeFeedID func(string) string
}

func (a API) User(ctx context.Context) (reader.ExternalUser, error) {
	var u userInfo
	if err := a.getJSON(ctx, "/user-info", nil, &u); err != nil {
		return reader.ExternalUser{}, err
	}
	return toUser(u), nil
}

func (a API) Feeds(ctx context.Context) ([]reader.ExternalFeed, error) {
	var list subscriptionList
	if err := a.getJSON(ctx, "/subscription/list", nil, &list); err != nil {
		return nil, err
	}
	return toFeeds(list), nil
}

func (a API) UnreadCount(ctx context.Context, feedIDs []string) (map[string]int, error) {
	var counts unreadCounts
	if err := a.getJSON(ctx, "/unread-count", nil, &counts); err != nil {
		return nil, err
	}
	return toUnreadCounts(counts, feedIDs), nil
}

// Unread fetches every feed's unread entries up to its unread count. The
// per-feed article cap is not applied here and a page is never truncated.
func (a API) Unread(ctx context.Context, feedIDs []string) (map[string][]reader.FeedEntry, error) {
	counts, err := a.UnreadCount(ctx, feedIDs)
	if err != nil {
		return nil, err
	}

	unread := make(map[string][]reader.FeedEntry, len(counts))
	for feedID, count := range counts {
		entries, err := a.Stream(ctx, feedID, count)
		if err != nil {
			return nil, fmt.Errorf("fetching unread for %s: %w", feedID, err)
		}
		unread[feedID] = entries
	}
	return unread, nil
}

type streamContents struct {
	Items        *[]Item           `json:"items"`
	Continuation reader.FlexString `json:"continuation"`
}

// Stream walks /stream/contents for one feed, excluding read items, until
// target entries are collected or the continuation runs out.
func (a API) Stream(ctx context.Context, feedID string, target int) ([]reader.FeedEntry, error) {
	id := feedID
	if a.EscapeFeedID != nil {
		id = a.EscapeFeedID(feedID)
	}
	path := "/stream/contents/" + id

	return reader.Collect(ctx, reader.Pagination{Target: target}, func(ctx context.Context, cursor string, _ int) (reader.Page, error) {
		query := url.Values{"xt": {TagRead}}
		if cursor != "" {
			query.Set("c", cursor)
		}

		var page streamContents
		if err := a.getJSON(ctx, path, query, &page); err != nil {
			return reader.Page{}, err
		}
		if page.Items == nil {
			return reader.Page{}, nil
		}

		entries := make([]reader.FeedEntry, 0, len(*page.Items))
		for _, item := range *page.Items {
			entries = append(entries, ToEntry(item))
		}
		return reader.Page{Entries: entries, Next: page.Continuation.String()}, nil
	})
}

func (a API) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := a.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}
