package search

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/readerlink/internal/debuglog"
	"github.com/pders01/readerlink/internal/storage"
)

// BleveEngine keeps a full text index of cached entries next to the database.
type BleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every cached entry.
func NewBleveEngine(store *storage.Store, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name
	author.Store = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name
	url.Store = true

	account := bleve.NewTextFieldMapping()
	account.Analyzer = keyword.Name
	account.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("url", url)
	dm.AddFieldMappingsAt("account_id", account)

	im.DefaultMapping = dm
	return im
}

func document(e *storage.Entry) map[string]any {
	return map[string]any{
		"account_id": e.AccountID,
		"feed_id":    e.FeedID,
		"title":      e.Title,
		"author":     e.Author,
		"content":    e.Content,
		"url":        e.URL,
	}
}

func (b *BleveEngine) reindexAll() error {
	batch := b.idx.NewBatch()
	err := b.store.ForEachEntry(func(e *storage.Entry) error {
		return batch.Index(e.Key(), document(e))
	})
	if err != nil {
		return err
	}
	return b.idx.Batch(batch)
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range []struct {
			name  string
			boost float64
		}{
			{"title", 4.0},
			{"author", 2.0},
			{"content", 1.0},
			{"url", 0.5},
		} {
			qm := bleve.NewMatchQuery(tok)
			qm.SetField(f.name)
			qm.SetBoost(f.boost)
			qp := bleve.NewPrefixQuery(tok)
			qp.SetField(f.name)
			qp.SetBoost(f.boost * 0.8)
			qs = append(qs, qm, qp)
		}
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		entry, err := b.store.GetEntry(h.ID)
		if err != nil {
			// stale document; the entry left the cache
			debuglog.Debugf("search: dropping stale hit %q: %v", h.ID, err)
			_ = b.idx.Delete(h.ID)
			continue
		}
		out = append(out, &Result{Entry: entry, Score: h.Score})
	}
	return out, nil
}

// OnEntriesUpdated indexes freshly fetched entries.
func (b *BleveEngine) OnEntriesUpdated(entries []*storage.Entry) {
	batch := b.idx.NewBatch()
	for _, e := range entries {
		_ = batch.Index(e.Key(), document(e))
	}
	if err := b.idx.Batch(batch); err != nil {
		debuglog.Warnf("search: indexing %d entries: %v", len(entries), err)
	}
}

// OnAccountDeleted removes every document of the account.
func (b *BleveEngine) OnAccountDeleted(accountID string) {
	tq := bleve.NewTermQuery(accountID)
	tq.SetField("account_id")

	const size = 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, size, 0, false)
		res, err := b.idx.Search(req)
		if err != nil || res == nil || len(res.Hits) == 0 {
			return
		}
		batch := b.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := b.idx.Batch(batch); err != nil {
			debuglog.Warnf("search: deleting documents of %s: %v", accountID, err)
			return
		}
		if len(res.Hits) < size {
			return
		}
	}
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}
