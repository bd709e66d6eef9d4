package reader

import "context"

// Page is one response of a paginated unread stream. Next is the cursor of
// the following page; empty ends the stream.
type Page struct {
	Entries []FeedEntry
	Next    string
}

// PageFunc fetches the page at cursor. remaining is how many entries the
// caller still wants.
type PageFunc func(ctx context.Context, cursor string, remaining int) (Page, error)

// Pagination describes how a stream is walked.
type Pagination struct {
	// Target is the number of entries wanted. The first page is always
	// requested, later pages only while fewer than Target were collected.
	Target int
	// First is the cursor of the first page.
	First string
	// Truncate drops entries beyond Target. Without it a page is kept
	// whole, so the result can exceed Target.
	Truncate bool
}

// Collect walks pages in order until the stream ends or Target is reached.
func Collect(ctx context.Context, p Pagination, fetch PageFunc) ([]FeedEntry, error) {
	var (
		entries []FeedEntry
		cursor  = p.First
	)
	for {
		page, err := fetch(ctx, cursor, p.Target-len(entries))
		if err != nil {
			return entries, err
		}
		for _, e := range page.Entries {
			if p.Truncate && len(entries) >= p.Target {
				break
			}
			entries = append(entries, e)
		}
		if len(entries) >= p.Target || page.Next == "" {
			break
		}
		cursor = page.Next
	}
	if entries == nil {
		entries = []FeedEntry{}
	}
	return entries, nil
}
