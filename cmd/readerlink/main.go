package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/readerlink/internal/config"
)

// Version is the version of the application, set at build time
var Version = "dev"

type options struct {
	configPath string
	dbPath     string
	logLevel   string
	account    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "readerlink",
		Short:         "Read unread articles from Inoreader, The Old Reader, Newsblur and Feedly",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Path to database file (overrides config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	root.PersistentFlags().StringVarP(&opts.account, "account", "a", "", "Account ID or provider name")

	root.AddCommand(
		newVersionCmd(),
		newGenerateConfigCmd(),
		newLoginCmd(opts),
		newAccountsCmd(opts),
		newFeedsCmd(opts),
		newCountCmd(opts),
		newUnreadCmd(opts),
		newMarkCmd(opts),
		newSearchCmd(opts),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "readerlink %s\n", Version)
			fmt.Fprintln(out, "Feed reader service client")
			fmt.Fprintln(out, "github.com/pders01/readerlink")
		},
	}
}

func newGenerateConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			abs, _ := filepath.Abs(path)
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Destination (default ~/.config/readerlink/config.toml)")
	return cmd
}
