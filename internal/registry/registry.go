// Package registry maps providers to adaptor constructors and builds
// adaptors from credentials, persisted tokens or stored accounts.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/pders01/readerlink/internal/config"
	"github.com/pders01/readerlink/internal/debuglog"
	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/reader/feedly"
	"github.com/pders01/readerlink/internal/reader/inoreader"
	"github.com/pders01/readerlink/internal/reader/newsblur"
	"github.com/pders01/readerlink/internal/reader/oldreader"
	"github.com/pders01/readerlink/internal/storage"
)

// ErrUnknownProvider is returned for providers that are not registered,
// including those disabled in the configuration.
var ErrUnknownProvider = errors.New("provider not registered")

// Constructor builds an adaptor for one provider.
type Constructor func(cfg reader.ProviderConfig, token reader.Token) reader.Adaptor

type entry struct {
	cfg  reader.ProviderConfig
	ctor Constructor
}

type Registry struct {
	entries map[reader.Provider]entry
}

func New() *Registry {
	return &Registry{entries: make(map[reader.Provider]entry)}
}

// Constructors returns the built-in adaptor constructors.
func Constructors() map[reader.Provider]Constructor {
	return map[reader.Provider]Constructor{
		reader.Inoreader: func(cfg reader.ProviderConfig, t reader.Token) reader.Adaptor { return inoreader.New(cfg, t) },
		reader.OldReader: func(cfg reader.ProviderConfig, t reader.Token) reader.Adaptor { return oldreader.New(cfg, t) },
		reader.Newsblur:  func(cfg reader.ProviderConfig, t reader.Token) reader.Adaptor { return newsblur.New(cfg, t) },
		reader.Feedly:    func(cfg reader.ProviderConfig, t reader.Token) reader.Adaptor { return feedly.New(cfg, t) },
	}
}

// FromConfig registers every provider enabled in cfg. An enabled provider
// with an invalid endpoint fails the whole registry.
func FromConfig(cfg *config.Config) (*Registry, error) {
	r := New()
	ctors := Constructors()
	for _, p := range reader.Providers() {
		pc, enabled, err := cfg.Provider(p)
		if err != nil {
			return nil, fmt.Errorf("configuring %s: %w", p.Key(), err)
		}
		if !enabled {
			debuglog.Debugf("registry: %s disabled", p.Key())
			continue
		}
		r.Register(p, pc, ctors[p])
	}
	return r, nil
}

// Register adds or replaces the constructor for p.
func (r *Registry) Register(p reader.Provider, cfg reader.ProviderConfig, ctor Constructor) {
	r.entries[p] = entry{cfg: cfg, ctor: ctor}
}

// Providers lists the registered providers in declaration order.
func (r *Registry) Providers() []reader.Provider {
	return lo.Filter(reader.Providers(), func(p reader.Provider, _ int) bool {
		_, ok := r.entries[p]
		return ok
	})
}

func (r *Registry) lookup(p reader.Provider) (entry, error) {
	e, ok := r.entries[p]
	if !ok {
		registered := lo.Map(r.Providers(), func(p reader.Provider, _ int) string { return p.Key() })
		return entry{}, fmt.Errorf("%w: %s (registered: %v)", ErrUnknownProvider, p, registered)
	}
	return e, nil
}

// FromToken builds an adaptor around a persisted token without logging in.
func (r *Registry) FromToken(p reader.Provider, token reader.Token) (reader.Adaptor, error) {
	e, err := r.lookup(p)
	if err != nil {
		return nil, err
	}
	return e.ctor(e.cfg, token), nil
}

// FromCredentials logs in and returns an adaptor holding the minted token.
func (r *Registry) FromCredentials(ctx context.Context, p reader.Provider, creds reader.Credentials) (reader.Adaptor, error) {
	e, err := r.lookup(p)
	if err != nil {
		return nil, err
	}
	adaptor := e.ctor(e.cfg, reader.Token{})
	token, err := adaptor.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%s login: %w", p.Key(), err)
	}
	return adaptor.WithToken(token), nil
}

// FromAccount builds an adaptor for a stored account.
func (r *Registry) FromAccount(account *storage.Account) (reader.Adaptor, error) {
	return r.FromToken(account.Provider, account.Token())
}
