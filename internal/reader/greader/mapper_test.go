package greader

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeItem(t *testing.T, raw string) Item {
	t.Helper()
	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))
	return item
}

func TestToEntry(t *testing.T) {
	item := decodeItem(t, `{
		"id": "tag:google.com,2005:reader/item/00000000f7a7e1e3",
		"title": "Go 1.24 is released",
		"author": "The Go Team",
		"published": 1739318400,
		"alternate": [
			{"href": "https://go.dev/blog/go1.24.rss", "type": "application/rss+xml"},
			{"href": "https://go.dev/blog/go1.24", "type": "text/html"}
		],
		"canonical": [{"href": "https://go.dev/canonical"}],
		"summary": {"content": "summary"},
		"content": {"content": "<p>full</p>"}
	}`)

	entry := ToEntry(item)
	assert.Equal(t, "tag:google.com,2005:reader/item/00000000f7a7e1e3", entry.ID)
	assert.Equal(t, "https://go.dev/blog/go1.24", entry.URL)
	assert.Equal(t, "Go 1.24 is released", entry.Title)
	assert.Equal(t, "The Go Team", entry.Author)
	assert.Equal(t, time.Unix(1739318400, 0).UTC(), entry.Published)
	assert.Equal(t, "<p>full</p>", entry.Content)
}

func TestArticleURLFallbacks(t *testing.T) {
	canonical := decodeItem(t, `{"canonical":[{"href":"https://a.example/1"},{"href":"https://a.example/2"}]}`)
	assert.Equal(t, "https://a.example/1", ArticleURL(canonical))

	noHTML := decodeItem(t, `{"alternate":[{"href":"https://a.example/feed","type":"application/atom+xml"}],"canonical":[{"href":"https://a.example/c"}]}`)
	assert.Equal(t, "https://a.example/c", ArticleURL(noHTML))

	none := decodeItem(t, `{"id":"x"}`)
	assert.Empty(t, ArticleURL(none))
}

func TestContentFallsBackToSummary(t *testing.T) {
	summaryOnly := decodeItem(t, `{"summary":{"content":"short"}}`)
	assert.Equal(t, "short", Content(summaryOnly))

	emptyContent := decodeItem(t, `{"content":{},"summary":{"content":"short"}}`)
	assert.Equal(t, "short", Content(emptyContent))

	assert.Empty(t, Content(decodeItem(t, `{}`)))
}

func TestToFeedsKeepsCategoryOrder(t *testing.T) {
	var list subscriptionList
	require.NoError(t, json.Unmarshal([]byte(`{"subscriptions":[
		{"id":"feed/1","title":"One","categories":[{"label":"tech"},{"label":"go"}]},
		{"id":"feed/2","title":"Two"}
	]}`), &list))

	feeds := toFeeds(list)
	require.Len(t, feeds, 2)
	assert.Equal(t, []string{"tech", "go"}, feeds[0].Categories)
	assert.Nil(t, feeds[1].Categories)
}

func TestToUnreadCountsFilters(t *testing.T) {
	var counts unreadCounts
	require.NoError(t, json.Unmarshal([]byte(`{"unreadcounts":[
		{"id":"feed/1","count":5},
		{"id":"feed/2","count":"7"},
		{"id":"user/-/state/com.google/reading-list","count":12}
	]}`), &counts))

	assert.Equal(t, map[string]int{"feed/1": 5, "feed/2": 7}, toUnreadCounts(counts, []string{"feed/1", "feed/2", "feed/3"}))
}
