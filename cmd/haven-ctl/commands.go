package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/database"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/common/logger"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/app"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/config"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/scheduler"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/store"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/migrations"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const commandTimeout = 10 * time.Minute

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Reminder engine operations",
	}
	cmd.AddCommand(runScheduledCmd(), generateBirthdaysCmd(), sweepCmd(), lastRunCmd())
	return cmd
}

// run-scheduled 供外部 cron 调用；同一天重复调用时不重复执行
func runScheduledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-scheduled",
		Short: "Run scheduled birthday and payment generation plus the expiry sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.Scheduler.RunOnce(ctx, scheduler.TriggerCLI, force)
				if errors.Is(err, scheduler.ErrAlreadyRan) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Scheduled generation already ran today, use --force to run again.")
					return writeJSON(cmd.OutOrStdout(), map[string]any{"remindersCreated": 0})
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"remindersCreated": summary.RemindersCreated,
					"swept":            summary.Swept,
				})
			})
		},
	}
	cmd.Flags().Bool("force", false, "Ignore the once-per-day lock")
	return cmd
}

func generateBirthdaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-birthdays",
		Short: "Generate birthday reminders using the on-demand window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Reminders.RunOnDemandBirthdayGeneration(ctx, a.Scheduler.Today())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"created": res.RemindersCreated})
			})
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired pending birthday reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				deleted, err := a.Reminders.SweepExpiredBirthdayReminders(ctx, a.Scheduler.Today())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": deleted})
			})
		},
	}
}

func lastRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last-run",
		Short: "Show the summary of the last scheduled run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.Scheduler.LastRun(ctx)
				if errors.Is(err, store.ErrMiss) {
					return writeJSON(cmd.OutOrStdout(), nil)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "haven-ctl")
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.NewPostgresDB(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			applied, err := migrations.Apply(ctx, db, log)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", v)
			}
			return nil
		},
	})
	return cmd
}

// withApp 连接依赖后执行；CLI 总是使用真实数据库，不可达时直接失败
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	cfg.DBEnabled = true
	cfg.MQTT.ClientID = cfg.MQTT.ClientID + "-ctl"

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "haven-ctl")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		log.Error("Command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
		return err
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
