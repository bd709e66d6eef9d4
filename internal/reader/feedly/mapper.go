package feedly

import (
	"bytes"
	"encoding/json"
	"net/url"

	"github.com/samber/lo"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/validation"
)

type profile struct {
	ID       reader.FlexString `json:"id"`
	Email    string            `json:"email"`
	FullName string            `json:"fullName"`
}

type subscription struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Categories []struct {
		Label string `json:"label"`
	} `json:"categories"`
}

type markerCounts struct {
	UnreadCounts []struct {
		ID    string            `json:"id"`
		Count reader.FlexString `json:"count"`
	} `json:"unreadcounts"`
}

type link struct {
	Href string `json:"href"`
	Type string `json:"type"`
}

type text struct {
	Content *string `json:"content"`
}

type item struct {
	ID        reader.FlexString    `json:"id"`
	OriginID  string               `json:"originId"`
	Title     string               `json:"title"`
	Author    string               `json:"author"`
	Published reader.UnixMilliTime `json:"published"`
	Unread    bool                 `json:"unread"`
	Alternate []link               `json:"alternate"`
	Content   *text                `json:"content"`
	Summary   *text                `json:"summary"`
}

type streamContents struct {
	Items        *[]item           `json:"items"`
	Continuation reader.FlexString `json:"continuation"`
}

func (p profile) toUser() reader.ExternalUser {
	return reader.ExternalUser{
		ID:          p.ID.String(),
		UserName:    p.Email,
		DisplayName: p.FullName,
	}
}

// decodeSubscriptions accepts either an array of subscriptions or a
// single subscription object.
func decodeSubscriptions(data []byte) ([]subscription, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var subs []subscription
		if err := json.Unmarshal(data, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	}
	var sub subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, err
	}
	return []subscription{sub}, nil
}

func toFeeds(subs []subscription) []reader.ExternalFeed {
	return lo.Map(subs, func(sub subscription, _ int) reader.ExternalFeed {
		feed := reader.ExternalFeed{FeedID: sub.ID, Title: sub.Title}
		if sub.Categories != nil {
			feed.Categories = make([]string, 0, len(sub.Categories))
			for _, c := range sub.Categories {
				feed.Categories = append(feed.Categories, c.Label)
			}
		}
		return feed
	})
}

// articleURL prefers an originId that is itself a web URL, then the first
// text/html alternate link.
func articleURL(it item) string {
	if validation.IsWebURL(it.OriginID) {
		return it.OriginID
	}
	alt, _ := lo.Find(it.Alternate, func(l link) bool { return l.Type == "text/html" })
	return alt.Href
}

func content(it item) string {
	if it.Content != nil && it.Content.Content != nil {
		return *it.Content.Content
	}
	if it.Summary != nil && it.Summary.Content != nil {
		return *it.Summary.Content
	}
	return ""
}

// toEntries keeps unread items that resolve to an article URL.
func toEntries(items []item) []reader.FeedEntry {
	entries := make([]reader.FeedEntry, 0, len(items))
	for _, it := range items {
		if !it.Unread {
			continue
		}
		u := articleURL(it)
		if u == "" {
			continue
		}
		entries = append(entries, reader.FeedEntry{
			ID:        it.ID.String(),
			URL:       u,
			Title:     it.Title,
			Author:    it.Author,
			Published: it.Published.Time,
			Content:   content(it),
		})
	}
	return entries
}

// streamPath embeds the query-escaped feed id as a path segment.
func streamPath(feedID string) string {
	return "/streams/" + url.QueryEscape(feedID) + "/contents"
}
