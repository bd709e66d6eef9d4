package reader

import (
	"fmt"
	"strings"
)

// Provider identifies a third-party feed-reading service.
type Provider string

const (
	Inoreader Provider = "INOREADER"
	OldReader Provider = "OLDREADER"
	Newsblur  Provider = "NEWSBLUR"
	Feedly    Provider = "FEEDLY"
)

// Providers returns every known provider in a stable order.
func Providers() []Provider {
	return []Provider{Inoreader, OldReader, Newsblur, Feedly}
}

func (p Provider) String() string {
	return string(p)
}

// Key returns the lower-case form used in config sections and account IDs.
func (p Provider) Key() string {
	return strings.ToLower(string(p))
}

// ParseProvider accepts a provider name in any case.
func ParseProvider(s string) (Provider, error) {
	candidate := Provider(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range Providers() {
		if p == candidate {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}
