package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/backup"
	"github.com/safeview/safeviewdb/internal/database"
	"github.com/safeview/safeviewdb/internal/domain"
	"github.com/safeview/safeviewdb/internal/repository"
)

// Engine drives schema-phase migrations as an ordered list of independent
// units. Each unit loads legacy data, transforms it, and writes it in one
// transaction; the unit boundary is the atomicity boundary, not the phase.
// Dependencies are injected; the engine never opens its own handle.
type Engine struct {
	log      zerolog.Logger
	db       *database.DB
	legacy   *repository.LegacyStore
	paths    *domain.Paths
	notifier domain.NotificationService

	sources  *database.SourceRepo
	videos   *database.VideoRepo
	history  *database.HistoryRepo
	usage    *database.UsageRepo
	settings *database.SettingsRepo

	retryCfg database.RetryConfig
}

// NewEngine creates a migration engine. notifier may be nil.
func NewEngine(log zerolog.Logger, db *database.DB, legacy *repository.LegacyStore, paths *domain.Paths, notifier domain.NotificationService) *Engine {
	engineLog := log.With().Str("module", "migration").Logger()
	return &Engine{
		log:      engineLog,
		db:       db,
		legacy:   legacy,
		paths:    paths,
		notifier: notifier,
		sources:  database.NewSourceRepo(log, db),
		videos:   database.NewVideoRepo(log, db),
		history:  database.NewHistoryRepo(log, db),
		usage:    database.NewUsageRepo(log, db),
		settings: database.NewSettingsRepo(log, db),
		retryCfg: database.RetryConfig{
			MaxAttempts:   2,
			BaseDelay:     time.Second,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2,
		},
	}
}

// unit is one independent migration step targeting one logical table. Its
// run function returns the number of records processed; an empty legacy
// document reports 0 and succeeds.
type unit struct {
	name string
	run  func(ctx context.Context) (int, error)
}

// RunPhase1 backs up all legacy documents, initializes the phase-1 schema,
// and executes the phase-1 units in order. The summary is always complete;
// a non-nil error additionally means the phase itself could not run (backup
// or schema failure), as opposed to individual units failing.
func (e *Engine) RunPhase1(ctx context.Context) (*domain.PhaseSummary, error) {
	summary := newSummary(domain.Phase1)
	e.log.Info().Msg("starting phase 1 migration")

	backupPath, err := backup.Create(e.log, e.paths)
	if err != nil {
		return e.phaseFatal(ctx, summary, errors.Wrap(err, "legacy document backup failed"))
	}
	summary.BackupPath = backupPath

	if err := e.db.EnsureInitialized(ctx, domain.Phase1); err != nil {
		return e.phaseFatal(ctx, summary, errors.Wrap(err, "schema initialization failed"))
	}

	e.runUnits(ctx, summary, []unit{
		{name: "migrate-sources", run: e.migrateSources},
		{name: "migrate-videos", run: e.migrateVideos},
		{name: "migrate-view-records", run: e.migrateViewRecords},
		{name: "migrate-favorites", run: e.migrateFavorites},
		{name: "migrate-youtube-cache", run: e.migrateYouTubeCache},
	})

	e.finish(ctx, summary)
	return summary, nil
}

// RunPhase2 initializes the phase-2 schema and executes the phase-2 units.
// No backup step; the phase-1 run already snapshotted every legacy
// document.
func (e *Engine) RunPhase2(ctx context.Context) (*domain.PhaseSummary, error) {
	summary := newSummary(domain.Phase2)
	e.log.Info().Msg("starting phase 2 migration")

	if err := e.db.EnsureInitialized(ctx, domain.Phase2); err != nil {
		return e.phaseFatal(ctx, summary, errors.Wrap(err, "schema initialization failed"))
	}

	e.runUnits(ctx, summary, []unit{
		{name: "migrate-usage-logs", run: e.migrateUsageLogs},
		{name: "migrate-time-limits", run: e.migrateTimeLimits},
		{name: "migrate-usage-extras", run: e.migrateUsageExtras},
		{name: "migrate-settings", run: e.migrateSettings},
	})

	e.finish(ctx, summary)
	return summary, nil
}

// runUnits executes every unit in order. A failed unit never stops the
// ones after it; one bad table must not block migrating the others.
func (e *Engine) runUnits(ctx context.Context, summary *domain.PhaseSummary, units []unit) {
	for _, u := range units {
		status := e.runUnit(ctx, u)
		summary.UnitStatuses = append(summary.UnitStatuses, status)
		summary.TotalRecordsProcessed += status.RecordsProcessed
		if status.Status == domain.StatusFailed {
			summary.TotalErrors++
		}
	}
}

// runUnit wraps one unit in the retry policy and converts every failure
// mode, including a panic inside the unit function, into a failed status.
func (e *Engine) runUnit(ctx context.Context, u unit) (status domain.UnitStatus) {
	status = domain.UnitStatus{
		Name:      u.name,
		Status:    domain.StatusInProgress,
		StartTime: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			status.Status = domain.StatusFailed
			status.Error = fmt.Sprintf("unit panic: %v", r)
			e.log.Error().Str("unit", u.name).Str("error", status.Error).Msg("migration unit panicked")
		}
		status.EndTime = time.Now()
	}()

	result := database.ExecuteWithRetry(ctx, e.log, e.retryCfg, u.name, u.run)
	if result.Success {
		status.Status = domain.StatusCompleted
		status.RecordsProcessed = result.Result
		e.log.Info().
			Str("unit", u.name).
			Int("records", result.Result).
			Int("attempts", result.Attempts).
			Msg("migration unit completed")
	} else {
		status.Status = domain.StatusFailed
		status.Error = result.Err.Error()
		e.log.Error().
			Str("unit", u.name).
			Int("attempts", result.Attempts).
			Str("error", status.Error).
			Msg("migration unit failed")
	}

	return status
}

// phaseFatal records a failure of the phase itself, notifies, and hands the
// error back so callers can tell "some units failed" apart from "the phase
// could not run".
func (e *Engine) phaseFatal(ctx context.Context, summary *domain.PhaseSummary, err error) (*domain.PhaseSummary, error) {
	summary.Status = domain.StatusFailed
	summary.TotalErrors++
	summary.EndTime = time.Now()

	e.log.Error().Err(err).Str("phase", string(summary.Phase)).Msg("migration phase could not run")

	if e.notifier != nil {
		if notifyErr := e.notifier.SendError(ctx, summary.Phase, err); notifyErr != nil {
			e.log.Warn().Err(notifyErr).Msg("failed to send error notification")
		}
	}

	return summary, err
}

func (e *Engine) finish(ctx context.Context, summary *domain.PhaseSummary) {
	summary.Status = domain.StatusCompleted
	if summary.TotalErrors > 0 {
		summary.Status = domain.StatusFailed
	}
	summary.EndTime = time.Now()

	e.log.Info().
		Str("phase", string(summary.Phase)).
		Str("status", string(summary.Status)).
		Int("records", summary.TotalRecordsProcessed).
		Int("errors", summary.TotalErrors).
		Msg("migration phase finished")

	if e.notifier != nil {
		if err := e.notifier.SendSummary(ctx, summary); err != nil {
			e.log.Warn().Err(err).Msg("failed to send summary notification")
		}
	}
}

func newSummary(phase domain.Phase) *domain.PhaseSummary {
	return &domain.PhaseSummary{
		Phase:     phase,
		Status:    domain.StatusInProgress,
		StartTime: time.Now(),
	}
}
