package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/safeview/safeviewdb/internal/config"
	"github.com/safeview/safeviewdb/internal/database"
	"github.com/safeview/safeviewdb/internal/domain"
	"github.com/safeview/safeviewdb/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:       "validate <phase1|phase2>",
	Short:     "Validate the database schema against an expected phase",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(domain.Phase1), string(domain.Phase2)},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log := logger.NewLoggerFromConfig(cfg.LogLevel)

		db, err := database.NewDB(cfg.DataDir, log)
		if err != nil {
			return err
		}
		defer db.Close()

		result := db.Validate(cmd.Context(), domain.Phase(args[0]))

		fmt.Printf("\nSchema validation against %s\n", result.ExpectedPhase)
		fmt.Printf("  Stored phase: %q (match: %v)\n", result.StoredPhase, result.PhaseMatches)
		for _, t := range result.MissingTables {
			fmt.Printf("  missing table: %s\n", t)
		}
		for _, i := range result.MissingIndexes {
			fmt.Printf("  missing index: %s\n", i)
		}
		for _, v := range result.ForeignKeyViolations {
			fmt.Printf("  foreign key violation: %s\n", v)
		}
		for _, e := range result.Errors {
			fmt.Printf("  probe error: %s\n", e)
		}

		if !result.IsValid() {
			return errors.Errorf("schema does not match %s", args[0])
		}

		fmt.Printf("  Schema is valid.\n\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
