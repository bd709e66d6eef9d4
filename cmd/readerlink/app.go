package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/pders01/readerlink/internal/config"
	"github.com/pders01/readerlink/internal/debuglog"
	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/registry"
	"github.com/pders01/readerlink/internal/search"
	"github.com/pders01/readerlink/internal/storage"
	"github.com/pders01/readerlink/internal/validation"
)

// app bundles what every provider command needs.
type app struct {
	cfg      *config.Config
	store    *storage.Store
	registry *registry.Registry
	searcher search.Searcher
}

func openApp(opts *options) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.Database.Path = opts.dbPath
	}

	level := cfg.Log.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	if err := debuglog.Setup(debuglog.ParseLogLevel(level), cfg.Log.File); err != nil {
		return nil, err
	}

	dbPath, err := validation.EnsureParentDir(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStore(dbPath, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}

	reg, err := registry.FromConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, registry: reg}, nil
}

func (a *app) Close() {
	if c, ok := a.searcher.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	_ = a.store.Close()
	_ = debuglog.Close()
}

// searchEngine returns the bleve index, or a cache scan when the index is not
// configured or cannot be opened.
func (a *app) searchEngine() search.Searcher {
	if a.searcher != nil {
		return a.searcher
	}
	if a.cfg.Database.SearchIndex != "" {
		engine, err := search.NewBleveEngine(a.store, a.cfg.Database.SearchIndex)
		if err == nil {
			a.searcher = engine
			return engine
		}
		debuglog.Warnf("search index unavailable, scanning cache: %v", err)
	}
	a.searcher = search.NewEngine(a.store)
	return a.searcher
}

func (a *app) indexEntries(entries []*storage.Entry) {
	if l, ok := a.searchEngine().(search.UpdateListener); ok {
		l.OnEntriesUpdated(entries)
	}
}

func (a *app) forgetAccount(accountID string) {
	if l, ok := a.searchEngine().(search.DeleteListener); ok {
		l.OnAccountDeleted(accountID)
	}
}

// account resolves the --account flag. An empty selector is accepted when
// exactly one account is stored; a provider name selects that provider's
// only account.
func (a *app) account(selector string) (*storage.Account, error) {
	accounts, err := a.store.GetAllAccounts()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errors.New("no accounts, run `readerlink login` first")
	}

	candidates := accounts
	if selector != "" {
		if p, perr := reader.ParseProvider(selector); perr == nil {
			candidates = lo.Filter(accounts, func(acc *storage.Account, _ int) bool { return acc.Provider == p })
		} else {
			candidates = lo.Filter(accounts, func(acc *storage.Account, _ int) bool { return acc.ID == selector })
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return nil, fmt.Errorf("no account matches %q", selector)
	default:
		ids := lo.Map(candidates, func(acc *storage.Account, _ int) string { return acc.ID })
		return nil, fmt.Errorf("several accounts match, pick one with --account: %s", strings.Join(ids, ", "))
	}
}

// call runs one adaptor operation for account and persists a refreshed
// token, also when the operation failed after refreshing.
func call[T any](ctx context.Context, a *app, account *storage.Account, op func(context.Context, reader.Adaptor) (reader.Result[T], error)) (T, error) {
	adaptor, err := a.registry.FromAccount(account)
	if err != nil {
		var zero T
		return zero, err
	}

	res, err := op(ctx, adaptor)
	if res.Token != nil {
		if uerr := a.store.UpdateToken(account.ID, *res.Token); uerr != nil {
			debuglog.Errorf("persisting refreshed token for %s: %v", account.ID, uerr)
		} else {
			debuglog.Infof("persisted refreshed token for %s", account.ID)
			account.AccessToken = res.Token.AccessToken
		}
	}
	if err != nil && reader.NeedsReauth(err) {
		return res.Value, fmt.Errorf("%w (run `readerlink login %s` again)", err, account.Provider.Key())
	}
	return res.Value, err
}

// feedIDs returns ids when given, otherwise every subscribed feed of the
// account, refreshing the stored feed list on the way.
func (a *app) feedIDs(ctx context.Context, account *storage.Account, ids []string) ([]string, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	feeds, err := call(ctx, a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[[]reader.ExternalFeed], error) {
		return ad.Feeds(ctx)
	})
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveFeeds(account.ID, feeds); err != nil {
		return nil, err
	}
	return lo.Map(feeds, func(f reader.ExternalFeed, _ int) string { return f.FeedID }), nil
}
