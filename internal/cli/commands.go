package cli

import (
	"context"
	"os"
	"time"

	"dialer-platform/internal/app"
	"dialer-platform/internal/config"
	"dialer-platform/pkg/utils"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader(os.Stdout, "dialerctl")
		printKV(os.Stdout, "Version", version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			applied, err := a.Migrate(ctx)
			if err != nil {
				return err
			}
			return renderMigrations(os.Stdout, applied, flagJSON)
		})
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Run one dispatcher pass for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := requireTenant()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			t, err := a.Tenants.Resolve(tid)
			if err != nil {
				return err
			}
			res, err := a.Dispatcher.Dispatch(ctx, t)
			if err != nil {
				return err
			}
			return renderDispatch(os.Stdout, res, flagJSON)
		})
	},
}

var cleanupStuckCmd = &cobra.Command{
	Use:   "cleanup-stuck",
	Short: "Close calls that stayed open past the stuck threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := requireTenant()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			t, err := a.Tenants.Resolve(tid)
			if err != nil {
				return err
			}
			res, err := a.Dispatcher.CleanupStuckCalls(ctx, t)
			if err != nil {
				return err
			}
			return renderCleanup(os.Stdout, res, flagJSON)
		})
	},
}

var followUpsCmd = &cobra.Command{
	Use:   "followups",
	Short: "Inspect or execute scheduled follow-ups",
}

var followUpsDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List follow-ups that are due now",
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := requireTenant()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			due, err := a.FollowUps.DueNow(ctx, tid)
			if err != nil {
				return err
			}
			return renderDue(os.Stdout, due, flagJSON)
		})
	},
}

var followUpsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute every due follow-up",
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := requireTenant()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.FollowUps.RunDue(ctx, tid)
			if err != nil {
				return err
			}
			return renderRunDue(os.Stdout, res, flagJSON)
		})
	},
}

var seedDispositionsCmd = &cobra.Command{
	Use:   "seed-dispositions",
	Short: "Install the default disposition catalog for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := requireTenant()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app.App) error {
			res, err := a.Dispositions.SeedDefaults(ctx, tid)
			if err != nil {
				return err
			}
			return renderSeed(os.Stdout, res, flagJSON)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and dependency health",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printHeader(os.Stdout, "dialerctl status")
		printKV(os.Stdout, "Version", version)
		printKV(os.Stdout, "Env", cfg.App.Env)
		printCheck(os.Stdout, "Retell key", cfg.Retell.APIKey != "", "RETELL_API_KEY not set")
		printCheck(os.Stdout, "Kafka", len(cfg.Kafka.Brokers) > 0, "no brokers, events are logged")
		printCheck(os.Stdout, "Twilio signatures", cfg.Twilio.VerifySignatures, "verification disabled")

		return withApp(func(ctx context.Context, a *app.App) error {
			dbErr := utils.HealthCheck(ctx, a.DB, 2*time.Second)
			printCheck(os.Stdout, "Postgres", dbErr == nil, errText(dbErr))
			redisErr := a.Redis.Ping(ctx).Err()
			printCheck(os.Stdout, "Redis", redisErr == nil, errText(redisErr))

			if flagTenant == "" {
				return nil
			}
			t, err := a.Tenants.Resolve(flagTenant)
			if err != nil {
				return err
			}
			stats, err := a.Dispatcher.QueueStatus(ctx, t)
			if err != nil {
				return err
			}
			return renderQueue(os.Stdout, stats, flagJSON)
		})
	},
}

func init() {
	followUpsCmd.AddCommand(followUpsDueCmd)
	followUpsCmd.AddCommand(followUpsRunCmd)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
