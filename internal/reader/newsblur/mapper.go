package newsblur

import (
	"encoding/json"
	"fmt"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/validation"
)

type authState struct {
	Authenticated *bool `json:"authenticated"`
}

type socialProfile struct {
	UserID      reader.FlexString `json:"user_id"`
	UserProfile struct {
		Username string `json:"username"`
	} `json:"user_profile"`
}

type paymentHistory struct {
	Statistics *struct {
		Email *string `json:"email"`
	} `json:"statistics"`
}

type feedInfo struct {
	ID    reader.FlexString `json:"id"`
	Title string            `json:"feed_title"`
}

type feedsResponse struct {
	Feeds   json.RawMessage   `json:"feeds"`
	Folders []json.RawMessage `json:"folders"`
}

type refreshFeeds struct {
	Feeds map[string]struct {
		NT int `json:"nt"`
	} `json:"feeds"`
}

type story struct {
	ID         reader.FlexString `json:"id"`
	Hash       string            `json:"story_hash"`
	Title      string            `json:"story_title"`
	Authors    string            `json:"story_authors"`
	Permalink  string            `json:"story_permalink"`
	Timestamp  reader.UnixTime   `json:"story_timestamp"`
	Content    string            `json:"story_content"`
	ReadStatus int               `json:"read_status"`
}

type storiesPage struct {
	Stories *[]story `json:"stories"`
}

func (s story) unread() bool {
	return s.ReadStatus == 0
}

// toEntry uses the story id as URL when it is an absolute URI, else the
// permalink.
func (s story) toEntry() reader.FeedEntry {
	u := s.Permalink
	if validation.HasSchemeAndHost(s.ID.String()) {
		u = s.ID.String()
	}
	return reader.FeedEntry{
		ID:        s.Hash,
		URL:       u,
		Title:     s.Title,
		Author:    s.Authors,
		Published: s.Timestamp.Time,
		Content:   s.Content,
	}
}

// decodeFeeds reads the feeds object in document order.
func decodeFeeds(raw json.RawMessage) ([]feedInfo, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("decoding feeds: %w", err)
	}
	keys, err := objectKeys(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding feeds: %w", err)
	}

	feeds := make([]feedInfo, 0, len(keys))
	for _, key := range keys {
		var f feedInfo
		if err := json.Unmarshal(byID[key], &f); err != nil {
			return nil, fmt.Errorf("decoding feed %s: %w", key, err)
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

// folderMembership maps feed ids to the names of the folders that contain
// them. A folder is an object of name to children; children are feed ids
// or nested folders.
func folderMembership(folders []json.RawMessage) map[string][]string {
	out := make(map[string][]string)
	var walk func(items []json.RawMessage)
	walk = func(items []json.RawMessage) {
		for _, item := range items {
			var folder map[string][]json.RawMessage
			if err := json.Unmarshal(item, &folder); err != nil {
				continue
			}
			names, _ := objectKeys(item)
			for _, name := range names {
				children := folder[name]
				for _, child := range children {
					var id reader.FlexString
					if err := json.Unmarshal(child, &id); err == nil && id != "" {
						out[id.String()] = append(out[id.String()], name)
					}
				}
				walk(children)
			}
		}
	}
	walk(folders)
	return out
}
