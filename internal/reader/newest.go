package reader

import (
	"cmp"
	"slices"
)

// Newest keeps the n most recently published entries across all feeds.
// Entries keep their original order within a feed, and feeds left with no
// entries are dropped from the result. Ties on the publication time are
// broken by feed id, then entry id, then position, so the result is stable
// for a given input. n <= 0 yields an empty map.
func Newest(feeds map[string][]FeedEntry, n int) map[string][]FeedEntry {
	out := make(map[string][]FeedEntry)
	if n <= 0 {
		return out
	}

	type ref struct {
		feedID string
		index  int
		entry  *FeedEntry
	}
	var all []ref
	for feedID, entries := range feeds {
		for i := range entries {
			all = append(all, ref{feedID: feedID, index: i, entry: &entries[i]})
		}
	}

	slices.SortFunc(all, func(a, b ref) int {
		if c := b.entry.Published.Compare(a.entry.Published); c != 0 {
			return c
		}
		if c := cmp.Compare(a.feedID, b.feedID); c != 0 {
			return c
		}
		if c := cmp.Compare(a.entry.ID, b.entry.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.index, b.index)
	})
	if len(all) > n {
		all = all[:n]
	}

	keep := make(map[string][]int)
	for _, r := range all {
		keep[r.feedID] = append(keep[r.feedID], r.index)
	}
	for feedID, indexes := range keep {
		slices.Sort(indexes)
		entries := make([]FeedEntry, 0, len(indexes))
		for _, i := range indexes {
			entries = append(entries, feeds[feedID][i])
		}
		out[feedID] = entries
	}
	return out
}

// Count returns the total number of entries across feeds.
func Count(feeds map[string][]FeedEntry) int {
	total := 0
	for _, entries := range feeds {
		total += len(entries)
	}
	return total
}
