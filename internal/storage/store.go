package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/readerlink/internal/reader"
)

var (
	accountsBucket = []byte("accounts")
	feedsBucket    = []byte("feeds")
	entriesBucket  = []byte("entries")
)

var ErrNotFound = errors.New("not found")

// key parts are joined with NUL, which cannot occur in provider ids
const sep = "\x00"

func feedKey(accountID, feedID string) string {
	return accountID + sep + feedID
}

func entryKey(accountID, feedID, entryID string) string {
	return accountID + sep + feedID + sep + entryID
}

func prefix(parts ...string) []byte {
	return []byte(strings.Join(parts, sep) + sep)
}

type Store struct {
	db *bolt.DB
}

// NewStore opens or creates the database. A zero timeout waits at most
// one second for the file lock.
func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{accountsBucket, feedsBucket, entriesBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func put(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

// SaveAccount inserts or replaces an account, keeping its creation time.
func (s *Store) SaveAccount(account *Account) error {
	if account.ID == "" {
		account.ID = AccountID(account.Provider, account.ProviderUserID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		now := time.Now()
		if existing := b.Get([]byte(account.ID)); existing != nil {
			var old Account
			if err := json.Unmarshal(existing, &old); err == nil {
				account.CreatedAt = old.CreatedAt
			}
		}
		if account.CreatedAt.IsZero() {
			account.CreatedAt = now
		}
		account.UpdatedAt = now
		return put(b, account.ID, account)
	})
}

func (s *Store) GetAccount(id string) (*Account, error) {
	var account Account
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(accountsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &account)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetAllAccounts returns accounts ordered by ID.
func (s *Store) GetAllAccounts() ([]*Account, error) {
	var accounts []*Account
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(_ []byte, v []byte) error {
			var account Account
			if err := json.Unmarshal(v, &account); err != nil {
				return err
			}
			accounts = append(accounts, &account)
			return nil
		})
	})
	return accounts, err
}

// UpdateToken persists a token returned by a refreshing call.
func (s *Store) UpdateToken(id string, token reader.Token) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(accountsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		var account Account
		if err := json.Unmarshal(data, &account); err != nil {
			return err
		}
		account.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			account.RefreshToken = token.RefreshToken
		}
		account.UpdatedAt = time.Now()
		return put(b, id, &account)
	})
}

// DeleteAccount removes the account with its feeds and cached entries.
func (s *Store) DeleteAccount(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(accountsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		for _, name := range [][]byte{feedsBucket, entriesBucket} {
			if err := deletePrefix(tx.Bucket(name), prefix(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func deletePrefix(b *bolt.Bucket, p []byte) error {
	c := b.Cursor()
	for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Seek(p) {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// SaveFeeds replaces the stored subscriptions of an account.
func (s *Store) SaveFeeds(accountID string, feeds []reader.ExternalFeed) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedsBucket)
		if err := deletePrefix(b, prefix(accountID)); err != nil {
			return err
		}
		now := time.Now()
		for _, f := range feeds {
			feed := Feed{AccountID: accountID, ExternalFeed: f, UpdatedAt: now}
			if err := put(b, feedKey(accountID, f.FeedID), &feed); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetFeeds returns an account's feeds sorted by title, falling back to id.
func (s *Store) GetFeeds(accountID string) ([]*Feed, error) {
	var feeds []*Feed
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(feedsBucket).Cursor()
		p := prefix(accountID)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var feed Feed
			if err := json.Unmarshal(v, &feed); err != nil {
				return err
			}
			feeds = append(feeds, &feed)
		}
		return nil
	})
	sort.Slice(feeds, func(i, j int) bool {
		ti, tj := feeds[i].Title, feeds[j].Title
		if ti == "" {
			ti = feeds[i].FeedID
		}
		if tj == "" {
			tj = feeds[j].FeedID
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return feeds, err
}

// SaveEntries caches fetched unread entries. Entries already cached keep
// their local read and starred flags.
func (s *Store) SaveEntries(accountID string, unread map[string][]reader.FeedEntry) ([]*Entry, error) {
	var saved []*Entry
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		now := time.Now()
		for feedID, entries := range unread {
			for _, fe := range entries {
				entry := &Entry{AccountID: accountID, FeedID: feedID, FeedEntry: fe, FetchedAt: now}
				if existing := b.Get([]byte(entry.Key())); existing != nil {
					var old Entry
					if err := json.Unmarshal(existing, &old); err == nil {
						entry.Read = old.Read
						entry.Starred = old.Starred
					}
				}
				if err := put(b, entry.Key(), entry); err != nil {
					return err
				}
				saved = append(saved, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetEntries returns cached entries newest first. An empty feedID selects
// every feed of the account; limit <= 0 means no limit.
func (s *Store) GetEntries(accountID, feedID string, limit int) ([]*Entry, error) {
	p := prefix(accountID)
	if feedID != "" {
		p = prefix(accountID, feedID)
	}

	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(entriesBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Published.After(entries[j].Published)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, err
}

// GetEntry looks up a cached entry by its Key.
func (s *Store) GetEntry(key string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("entry: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarkEntries applies fn to every cached entry of the account whose id is
// in ids, across feeds. Unknown ids are ignored.
func (s *Store) MarkEntries(accountID string, ids []string, fn func(*Entry)) error {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(entriesBucket)
		c := b.Cursor()
		p := prefix(accountID)
		var changed []*Entry
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if want[entry.ID] {
				fn(&entry)
				changed = append(changed, &entry)
			}
		}
		for _, entry := range changed {
			if err := put(b, entry.Key(), entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// ForEachEntry walks every cached entry of every account.
func (s *Store) ForEachEntry(fn func(*Entry) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(entriesBucket).ForEach(func(_ []byte, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			return fn(&entry)
		})
	})
}
