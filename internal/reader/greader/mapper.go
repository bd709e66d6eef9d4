// Package greader maps the Google Reader style API shared by Inoreader
// and The Old Reader onto the canonical reader models.
package greader

import (
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/pders01/readerlink/internal/reader"
)

// Tag values understood by /edit-tag.
const (
	TagRead    = "user/-/state/com.google/read"
	TagStarred = "user/-/state/com.google/starred"
)

type Link struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type Text struct {
	Content *string `json:"content"`
}

// Item is one entry of /stream/contents.
type Item struct {
	ID        reader.FlexString `json:"id"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	Published reader.UnixTime   `json:"published"`
	Alternate []Link            `json:"alternate"`
	Canonical []Link            `json:"canonical"`
	Content   *Text             `json:"content"`
	Summary   *Text             `json:"summary"`
}

type userInfo struct {
	UserID    reader.FlexString `json:"userId"`
	UserEmail string            `json:"userEmail"`
	UserName  string            `json:"userName"`
}

type subscriptionList struct {
	Subscriptions []struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Categories []struct {
			Label string `json:"label"`
		} `json:"categories"`
	} `json:"subscriptions"`
}

type unreadCounts struct {
	UnreadCounts []struct {
		ID    string            `json:"id"`
		Count reader.FlexString `json:"count"`
	} `json:"unreadcounts"`
}

// ArticleURL returns the first text/html alternate link, else the first
// canonical link, else "".
func ArticleURL(item Item) string {
	if link, ok := lo.Find(item.Alternate, func(l Link) bool { return l.Type == "text/html" }); ok {
		return link.Href
	}
	if len(item.Canonical) > 0 {
		return item.Canonical[0].Href
	}
	return ""
}

// Content prefers content.content over summary.content.
func Content(item Item) string {
	if item.Content != nil && item.Content.Content != nil {
		return *item.Content.Content
	}
	if item.Summary != nil && item.Summary.Content != nil {
		return *item.Summary.Content
	}
	return ""
}

func ToEntry(item Item) reader.FeedEntry {
	return reader.FeedEntry{
		ID:        item.ID.String(),
		URL:       ArticleURL(item),
		Title:     item.Title,
		Author:    item.Author,
		Published: item.Published.Time,
		Content:   Content(item),
	}
}

func toUser(u userInfo) reader.ExternalUser {
	return reader.ExternalUser{
		ID:          u.UserID.String(),
		UserName:    u.UserEmail,
		DisplayName: u.UserName,
	}
}

func toFeeds(list subscriptionList) []reader.ExternalFeed {
	feeds := make([]reader.ExternalFeed, 0, len(list.Subscriptions))
	for _, sub := range list.Subscriptions {
		feed := reader.ExternalFeed{FeedID: sub.ID, Title: sub.Title}
		if sub.Categories != nil {
			feed.Categories = make([]string, 0, len(sub.Categories))
			for _, c := range sub.Categories {
				feed.Categories = append(feed.Categories, c.Label)
			}
		}
		feeds = append(feeds, feed)
	}
	return feeds
}

// toUnreadCounts keeps only the requested feeds. Counts that are not
// integers read as 0.
func toUnreadCounts(counts unreadCounts, feedIDs []string) map[string]int {
	out := make(map[string]int)
	for _, c := range counts.UnreadCounts {
		if !slices.Contains(feedIDs, c.ID) {
			continue
		}
		n, _ := strconv.Atoi(c.Count.String())
		out[c.ID] = n
	}
	return out
}
