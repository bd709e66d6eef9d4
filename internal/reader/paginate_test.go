package reader

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesN(prefix string, n int) []FeedEntry {
	out := make([]FeedEntry, n)
	for i := range out {
		out[i] = FeedEntry{ID: prefix + strconv.Itoa(i)}
	}
	return out
}

func TestCollectFollowsCursorsInOrder(t *testing.T) {
	pages := map[string]Page{
		"":  {Entries: entriesN("a", 2), Next: "A"},
		"A": {Entries: entriesN("b", 2), Next: "B"},
		"B": {Entries: entriesN("c", 1)},
	}
	var cursors []string
	got, err := Collect(context.Background(), Pagination{Target: 10}, func(ctx context.Context, cursor string, remaining int) (Page, error) {
		cursors = append(cursors, cursor)
		return pages[cursor], nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"", "A", "B"}, cursors)
	assert.Equal(t, []string{"a0", "a1", "b0", "b1", "c0"}, ids(got))
}

func TestCollectStopsAtTarget(t *testing.T) {
	var calls int
	fetch := func(ctx context.Context, cursor string, remaining int) (Page, error) {
		calls++
		return Page{Entries: entriesN(cursor, 3), Next: cursor + "x"}, nil
	}

	got, err := Collect(context.Background(), Pagination{Target: 5, Truncate: true}, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, 2, calls)

	calls = 0
	got, err = Collect(context.Background(), Pagination{Target: 5}, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 6)
	assert.Equal(t, 2, calls)
}

func TestCollectRemainingShrinks(t *testing.T) {
	var remaining []int
	_, err := Collect(context.Background(), Pagination{Target: 7, First: "1"}, func(ctx context.Context, cursor string, left int) (Page, error) {
		remaining = append(remaining, left)
		n, _ := strconv.Atoi(cursor)
		return Page{Entries: entriesN(cursor, 3), Next: strconv.Itoa(n + 1)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 4, 1}, remaining)
}

func TestCollectEmptyAndErrors(t *testing.T) {
	got, err := Collect(context.Background(), Pagination{Target: 3}, func(ctx context.Context, cursor string, remaining int) (Page, error) {
		return Page{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	boom := errors.New("boom")
	_, err = Collect(context.Background(), Pagination{Target: 3}, func(ctx context.Context, cursor string, remaining int) (Page, error) {
		return Page{}, boom
	})
	assert.ErrorIs(t, err, boom)
}
