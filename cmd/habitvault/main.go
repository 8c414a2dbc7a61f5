package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"habitvault/internal/app"
	"habitvault/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "habitvault",
		Short:         "Habit Vault tasks and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", config.PathFromEnv(), "path to config yaml")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(newServeCommand(load), newRemindCommand(load), newWatchCommand(load))
	return wrapErrors(root)
}

// wrapErrors prints command errors once, in red, since cobra's own output is silenced.
func wrapErrors(root *cobra.Command) *cobra.Command {
	for _, c := range root.Commands() {
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("error: %v", err))
			}
			return err
		}
	}
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live reminder sessions and the dispatch schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return app.Serve(ctx, cfg)
		},
	}
}

func newRemindCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send deadline reminder emails once and print the summary",
		Long: `Runs one dispatch: every active DEADLINE task due within the lookahead
window that has not been reminded yet gets an email and is marked reminded.

Exits non-zero only when the candidate query fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			summary, err := app.RemindOnce(ctx, cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}

func newWatchCommand(load func() (*config.Config, error)) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Alert in this terminal when a user's tasks come due",
		Long: `Polls the user's active tasks and alerts at the minute each one is due:
a terminal bell, a colored line and, when the user has linked Telegram,
a Telegram message. Stops on Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			log.Printf("[watch] watching tasks of %s (Ctrl+C to stop)", userID)
			return app.Watch(ctx, cfg, userID, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id whose tasks to watch")
	return cmd
}
