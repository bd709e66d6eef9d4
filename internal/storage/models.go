package storage

import (
	"time"

	"github.com/pders01/readerlink/internal/reader"
)

// Account is a connected provider account. ID is "<provider>:<user id>".
type Account struct {
	ID             string          `json:"id"`
	Provider       reader.Provider `json:"provider"`
	ProviderUserID string          `json:"provider_user_id"`
	UserName       string          `json:"user_name"`
	DisplayName    string          `json:"display_name"`
	AccessToken    string          `json:"access_token"`
	RefreshToken   string          `json:"refresh_token,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Token returns the stored credential pair.
func (a *Account) Token() reader.Token {
	return reader.Token{AccessToken: a.AccessToken, RefreshToken: a.RefreshToken}
}

// Feed is a subscription of an account as last reported by the provider.
type Feed struct {
	AccountID string `json:"account_id"`
	reader.ExternalFeed
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is a cached unread entry.
type Entry struct {
	AccountID string `json:"account_id"`
	FeedID    string `json:"feed_id"`
	reader.FeedEntry
	Read      bool      `json:"read"`
	Starred   bool      `json:"starred"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Key identifies the entry across accounts and feeds.
func (e *Entry) Key() string {
	return entryKey(e.AccountID, e.FeedID, e.ID)
}

func AccountID(p reader.Provider, userID string) string {
	return p.Key() + ":" + userID
}
