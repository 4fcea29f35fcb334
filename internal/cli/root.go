// Package cli is the dialerctl operator command line. The recurring trigger runs
// `dialerctl dispatch` and `dialerctl followups run` per tenant.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dialer-platform/internal/app"
	"dialer-platform/internal/config"
	"dialer-platform/pkg/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version can be overridden at build time via:
// go build -ldflags "-X dialer-platform/internal/cli.version=1.2.3"
var version = "0.1.0"

var (
	flagTenant string
	flagJSON   bool
)

var errTenantRequired = errors.New("--tenant is required")

var rootCmd = &cobra.Command{
	Use:           "dialerctl",
	Short:         "Operate the outbound dialer",
	Long:          color.CyanString("dialerctl") + "\nRuns dispatch, follow-up and maintenance passes against the dialer database.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command and prints any error in red.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagTenant, "tenant", "", "tenant id the command acts on")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dispatchCmd)
	rootCmd.AddCommand(cleanupStuckCmd)
	rootCmd.AddCommand(followUpsCmd)
	rootCmd.AddCommand(seedDispositionsCmd)
}

// withApp loads configuration, opens the app and runs fn under a signal-aware context.
// Logs go to stderr so stdout stays clean for results.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.App.Env, "dialerctl")
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(logger.With(ctx, log), a)
}

func requireTenant() (string, error) {
	if flagTenant == "" {
		return "", errTenantRequired
	}
	return flagTenant, nil
}
