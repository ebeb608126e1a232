package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/safeview/safeviewdb/internal/config"
	"github.com/safeview/safeviewdb/internal/database"
	"github.com/safeview/safeviewdb/internal/domain"
	"github.com/safeview/safeviewdb/internal/logger"
	"github.com/safeview/safeviewdb/internal/migration"
	"github.com/safeview/safeviewdb/internal/notification"
	"github.com/safeview/safeviewdb/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <phase1|phase2>",
	Short:     "Migrate legacy JSON state into the catalog database",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(domain.Phase1), string(domain.Phase2)},
	Long: `Migrate the legacy flat-file JSON state of a SafeView installation into
the embedded catalog database. Phase 1 covers sources, videos, watch
history, and favorites, and snapshots every legacy document into a
timestamped backup directory first. Phase 2 covers usage logs, time
limits, time grants, and settings.

Each phase is safe to re-run; already-migrated installations are left
untouched. Units are isolated: one failing table does not block the
others, and the printed summary reports every unit's outcome.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := logger.NewLoggerFromConfig(cfg.LogLevel)
		paths := domain.NewPaths(cfg.DataDir)

		db, err := database.NewDB(cfg.DataDir, log)
		if err != nil {
			return err
		}
		defer db.Close()

		legacy := repository.NewLegacyStore(log, paths)
		notifier := notification.NewService(log, cfg.DiscordWebhookURL)
		engine := migration.NewEngine(log, db, legacy, paths, notifier)

		var summary *domain.PhaseSummary
		switch domain.Phase(args[0]) {
		case domain.Phase1:
			summary, err = engine.RunPhase1(cmd.Context())
		case domain.Phase2:
			summary, err = engine.RunPhase2(cmd.Context())
		}

		if summary != nil {
			printSummary(summary)
		}
		if err != nil {
			return errors.Wrapf(err, "migration %s could not run", args[0])
		}
		if summary.Status == domain.StatusFailed {
			return errors.Errorf("migration %s finished with %d failed unit(s)", args[0], summary.TotalErrors)
		}

		return nil
	},
}

func printSummary(summary *domain.PhaseSummary) {
	fmt.Printf("\nMigration %s: %s\n", summary.Phase, summary.Status)
	if summary.BackupPath != "" {
		fmt.Printf("  Backup: %s\n", summary.BackupPath)
	}
	for _, u := range summary.UnitStatuses {
		if u.Error != "" {
			fmt.Printf("  %-24s %s (%s)\n", u.Name, u.Status, u.Error)
			continue
		}
		fmt.Printf("  %-24s %s, %d records\n", u.Name, u.Status, u.RecordsProcessed)
	}
	fmt.Printf("  Total: %d records, %d errors\n\n", summary.TotalRecordsProcessed, summary.TotalErrors)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
