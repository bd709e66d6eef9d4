package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/pders01/readerlink/internal/reader"
	"github.com/pders01/readerlink/internal/storage"
)

// withApp opens the application for the duration of one command.
func withApp(opts *options, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(opts)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func newLoginCmd(opts *options) *cobra.Command {
	var creds reader.Credentials
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Connect an account (inoreader, feedly: --code; oldreader, newsblur: --username/--password)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			p, err := reader.ParseProvider(args[0])
			if err != nil {
				return err
			}
			if creds.Password == "" {
				creds.Password = os.Getenv("READERLINK_PASSWORD")
			}
			ctx := cmd.Context()

			adaptor, err := a.registry.FromCredentials(ctx, p, creds)
			if err != nil {
				return err
			}
			userRes, err := adaptor.User(ctx)
			token := adaptor.Token()
			if userRes.Token != nil {
				token = *userRes.Token
			}
			if err != nil {
				return fmt.Errorf("fetching user: %w", err)
			}

			user := userRes.Value
			account := &storage.Account{
				Provider:       p,
				ProviderUserID: user.ID,
				UserName:       user.UserName,
				DisplayName:    user.DisplayName,
				AccessToken:    token.AccessToken,
				RefreshToken:   token.RefreshToken,
			}
			if err := a.store.SaveAccount(account); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Logged in as "+account.ID))
			return nil
		}),
	}
	cmd.Flags().StringVar(&creds.AuthorizationCode, "code", "", "OAuth authorization code")
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "Username or email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "Password (or READERLINK_PASSWORD)")
	return cmd
}

func newAccountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List connected accounts",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			accounts, err := a.store.GetAllAccounts()
			if err != nil {
				return err
			}
			renderAccounts(cmd.OutOrStdout(), accounts)
			return nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <account-id>",
		Short: "Forget an account with its cached feeds and entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if _, err := a.store.GetAccount(args[0]); err != nil {
				return err
			}
			if err := a.store.DeleteAccount(args[0]); err != nil {
				return err
			}
			a.forgetAccount(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Removed "+args[0]))
			return nil
		}),
	})
	return cmd
}

func newFeedsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			account, err := a.account(opts.account)
			if err != nil {
				return err
			}
			feeds, err := call(cmd.Context(), a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[[]reader.ExternalFeed], error) {
				return ad.Feeds(ctx)
			})
			if err != nil {
				return err
			}
			if err := a.store.SaveFeeds(account.ID, feeds); err != nil {
				return err
			}
			renderFeeds(cmd.OutOrStdout(), account, feeds)
			return nil
		}),
	}
}

// feedTitles maps feed ids to the titles last stored for the account.
func (a *app) feedTitles(accountID string) map[string]string {
	feeds, err := a.store.GetFeeds(accountID)
	if err != nil {
		return map[string]string{}
	}
	return lo.SliceToMap(feeds, func(f *storage.Feed) (string, string) {
		return f.FeedID, feedTitle(f.ExternalFeed)
	})
}

func newCountCmd(opts *options) *cobra.Command {
	var feedIDs []string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Show unread counts per feed",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			account, err := a.account(opts.account)
			if err != nil {
				return err
			}
			ids, err := a.feedIDs(cmd.Context(), account, feedIDs)
			if err != nil {
				return err
			}
			counts, err := call(cmd.Context(), a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[map[string]int], error) {
				return ad.UnreadCount(ctx, ids)
			})
			if err != nil {
				return err
			}
			renderCounts(cmd.OutOrStdout(), counts, a.feedTitles(account.ID))
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&feedIDs, "feed", "f", nil, "Feed ID (repeatable, default all)")
	return cmd
}

func newUnreadCmd(opts *options) *cobra.Command {
	var (
		feedIDs []string
		newest  int
	)
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Fetch unread entries, cache and index them",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			account, err := a.account(opts.account)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("newest") {
				newest = a.cfg.Delivery.MaxArticles
			}

			ids, err := a.feedIDs(cmd.Context(), account, feedIDs)
			if err != nil {
				return err
			}
			unread, err := call(cmd.Context(), a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[map[string][]reader.FeedEntry], error) {
				return ad.Unread(ctx, ids)
			})
			if err != nil {
				return err
			}
			if newest > 0 {
				unread = reader.Newest(unread, newest)
			}

			saved, err := a.store.SaveEntries(account.ID, unread)
			if err != nil {
				return err
			}
			a.indexEntries(saved)

			renderEntries(cmd.OutOrStdout(), unread, a.feedTitles(account.ID))
			return nil
		}),
	}
	cmd.Flags().StringSliceVarP(&feedIDs, "feed", "f", nil, "Feed ID (repeatable, default all)")
	cmd.Flags().IntVarP(&newest, "newest", "n", 0, "Keep only the newest N entries across feeds, 0 keeps all (default delivery.max_articles)")
	return cmd
}

func newMarkCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark entries or feeds on the provider",
	}

	entryAction := func(use, short string, op func(reader.Adaptor) func(context.Context, []string) (reader.Result[bool], error), local func(*storage.Entry)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <entry-id>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(opts, func(cmd *cobra.Command, a *app, ids []string) error {
				account, err := a.account(opts.account)
				if err != nil {
					return err
				}
				ok, err := call(cmd.Context(), a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[bool], error) {
					return op(ad)(ctx, ids)
				})
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("provider did not accept the change")
				}
				if err := a.store.MarkEntries(account.ID, ids, local); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Marked %d entries %s", len(ids), use)))
				return nil
			}),
		}
	}

	cmd.AddCommand(
		entryAction("read", "Mark entries as read",
			func(ad reader.Adaptor) func(context.Context, []string) (reader.Result[bool], error) { return ad.MarkArticleRead },
			func(e *storage.Entry) { e.Read = true }),
		entryAction("unread", "Mark entries as unread",
			func(ad reader.Adaptor) func(context.Context, []string) (reader.Result[bool], error) { return ad.MarkArticleUnread },
			func(e *storage.Entry) { e.Read = false }),
		entryAction("save", "Save (star) entries",
			func(ad reader.Adaptor) func(context.Context, []string) (reader.Result[bool], error) { return ad.SaveArticle },
			func(e *storage.Entry) { e.Starred = true }),
		newMarkFeedCmd(opts),
	)
	return cmd
}

func newMarkFeedCmd(opts *options) *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "feed <feed-id>...",
		Short: "Mark everything in the feeds as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, feedIDs []string) error {
			cutoff := time.Now()
			if before != "" {
				t, err := time.Parse(time.RFC3339, before)
				if err != nil {
					return fmt.Errorf("invalid --before: %w", err)
				}
				cutoff = t
			}

			account, err := a.account(opts.account)
			if err != nil {
				return err
			}
			ok, err := call(cmd.Context(), a, account, func(ctx context.Context, ad reader.Adaptor) (reader.Result[bool], error) {
				return ad.MarkFeedRead(ctx, feedIDs, cutoff.UnixMilli())
			})
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("provider did not accept the change")
			}

			for _, feedID := range feedIDs {
				cached, err := a.store.GetEntries(account.ID, feedID, 0)
				if err != nil {
					return err
				}
				older := lo.FilterMap(cached, func(e *storage.Entry, _ int) (string, bool) {
					return e.ID, !e.Published.After(cutoff)
				})
				if err := a.store.MarkEntries(account.ID, older, func(e *storage.Entry) {
					if e.FeedID == feedID {
						e.Read = true
					}
				}); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Marked %d feeds read", len(feedIDs))))
			return nil
		}),
	}
	cmd.Flags().StringVar(&before, "before", "", "Cutoff as RFC 3339 time (default now)")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search cached unread entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			results, err := a.searchEngine().Search(args[0], limit)
			if err != nil {
				return err
			}
			renderResults(cmd.OutOrStdout(), args[0], results)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum results")
	return cmd
}
