package reader

import "time"

// Token is the credential pair a provider hands out after login.
// Refreshed is set on tokens returned from an operation that had to
// exchange the refresh token; those must be persisted by the caller.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Refreshed    bool   `json:"-"`
}

// Credentials carry either an OAuth authorization code or a
// username/password pair, depending on the provider.
type Credentials struct {
	AuthorizationCode string
	Username          string
	Password          string
}

// ExternalUser is the provider's view of the logged-in user.
type ExternalUser struct {
	ID          string `json:"id"`
	UserName    string `json:"user_name"`
	DisplayName string `json:"display_name"`
}

// ExternalFeed is a subscription. Categories keep provider order and may
// repeat across feeds.
type ExternalFeed struct {
	FeedID     string   `json:"feed_id"`
	Title      string   `json:"title"`
	Categories []string `json:"categories,omitempty"`
}

// FeedEntry is the canonical unread article. ID is only unique within a
// single feed's unread set; URL may be empty when no extraction rule matched.
type FeedEntry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	Published time.Time `json:"published"`
	Content   string    `json:"content,omitempty"`
}
