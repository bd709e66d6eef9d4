// Package reader defines the provider-agnostic contract every feed-reading
// service adaptor implements, the canonical models they produce and the
// HTTP plumbing they share.
package reader

import (
	"context"
	"time"
)

// MaxArticlesPerFeed caps unread entries per feed for the Feedly and
// Newsblur adaptors. The Google Reader style adaptors do not apply it.
const MaxArticlesPerFeed = 100

// DefaultTimeout applies when a provider config leaves Timeout unset.
const DefaultTimeout = 10 * time.Second

// Adaptor is the uniform view of one provider account.
//
// Adaptors are immutable: operations never modify the adaptor's token.
// When an operation refreshes the access token, the new token is returned
// in the Result (also on error, if the refresh itself succeeded) and the
// caller switches to it with WithToken.
type Adaptor interface {
	Provider() Provider
	Token() Token
	WithToken(token Token) Adaptor

	Login(ctx context.Context, creds Credentials) (Token, error)

	User(ctx context.Context) (Result[ExternalUser], error)
	Feeds(ctx context.Context) (Result[[]ExternalFeed], error)
	UnreadCount(ctx context.Context, feedIDs []string) (Result[map[string]int], error)
	Unread(ctx context.Context, feedIDs []string) (Result[map[string][]FeedEntry], error)

	// MarkFeedRead marks everything in the feeds older than timestampMs
	// (milliseconds since the epoch) as read.
	MarkFeedRead(ctx context.Context, feedIDs []string, timestampMs int64) (Result[bool], error)
	MarkArticleRead(ctx context.Context, ids []string) (Result[bool], error)
	MarkArticleUnread(ctx context.Context, ids []string) (Result[bool], error)
	SaveArticle(ctx context.Context, ids []string) (Result[bool], error)
}

// ProviderConfig holds the endpoints and OAuth client settings of one
// provider.
type ProviderConfig struct {
	URL          string
	AuthURL      string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
	UserAgent    string
}

// Cap returns the per-feed target for capped adaptors.
func Cap(unread int) int {
	return min(unread, MaxArticlesPerFeed)
}
