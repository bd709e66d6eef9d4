package search

import "github.com/pders01/readerlink/internal/storage"

// Result is a cached entry matching a query.
type Result struct {
	Entry   *storage.Entry
	Score   float64
	Matches []Match
}

// Match records which field matched and a snippet of it.
type Match struct {
	Field  string // "title", "author", "content", "url"
	Text   string
	Weight float64
}

// Searcher is the search API used by the CLI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// UpdateListener can be implemented by search engines that maintain
// an external index and want to be notified about fetched entries.
type UpdateListener interface {
	OnEntriesUpdated(entries []*storage.Entry)
}

// DeleteListener can be implemented to get notified when an account is removed.
type DeleteListener interface {
	OnAccountDeleted(accountID string)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}
