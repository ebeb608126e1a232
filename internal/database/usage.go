package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safeview/safeviewdb/internal/domain"
)

// timeLimitsID is the fixed primary key of the singleton time_limits row,
// matched by the table's check constraint.
const timeLimitsID = 1

// UsageRepo persists usage logs, the singleton time-limit policy, and the
// append-only usage-extra audit trail.
type UsageRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewUsageRepo creates a new usage repository
func NewUsageRepo(log zerolog.Logger, db *DB) *UsageRepo {
	return &UsageRepo{
		log: log.With().Str("repo", "usage").Logger(),
		db:  db,
	}
}

// UpsertUsageLogs writes all logs in one transaction, one row per date, and
// returns the number of records processed.
func (r *UsageRepo) UpsertUsageLogs(ctx context.Context, logs []domain.UsageLog) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, l := range logs {
		queryBuilder := r.db.squirrel.
			Insert("usage_logs").
			Columns("date", "seconds_used").
			Values(l.Date, l.SecondsUsed).
			Suffix("ON CONFLICT (date) DO UPDATE SET seconds_used = excluded.seconds_used")

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertUsageLogs")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error upserting usage log %s", l.Date)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing usage logs")
	}

	return len(logs), nil
}

// GetUsageLog returns seconds used on one date, zero when absent.
func (r *UsageRepo) GetUsageLog(ctx context.Context, date string) (float64, error) {
	queryBuilder := r.db.squirrel.
		Select("seconds_used").
		From("usage_logs").
		Where(sq.Eq{"date": date})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	var seconds float64
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&seconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "error scanning usage log")
	}

	return seconds, nil
}

// UpsertTimeLimits writes the time-limit policy. The upsert always targets
// the singleton row; there is never a second one.
func (r *UsageRepo) UpsertTimeLimits(ctx context.Context, limits domain.TimeLimits) error {
	now := time.Now().UTC().Format(time.RFC3339)

	queryBuilder := r.db.squirrel.
		Insert("time_limits").
		Columns("id", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"warning_threshold", "countdown_threshold", "audio_threshold",
			"time_up_message", "use_custom_beeps", "custom_beep_sound", "updated_at").
		Values(timeLimitsID, limits.Monday, limits.Tuesday, limits.Wednesday, limits.Thursday,
			limits.Friday, limits.Saturday, limits.Sunday,
			limits.WarningThreshold, limits.CountdownThreshold, limits.AudioThreshold,
			limits.TimeUpMessage, limits.UseCustomBeeps, nullIfEmpty(limits.CustomBeepSound), now).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			monday = excluded.monday,
			tuesday = excluded.tuesday,
			wednesday = excluded.wednesday,
			thursday = excluded.thursday,
			friday = excluded.friday,
			saturday = excluded.saturday,
			sunday = excluded.sunday,
			warning_threshold = excluded.warning_threshold,
			countdown_threshold = excluded.countdown_threshold,
			audio_threshold = excluded.audio_threshold,
			time_up_message = excluded.time_up_message,
			use_custom_beeps = excluded.use_custom_beeps,
			custom_beep_sound = excluded.custom_beep_sound,
			updated_at = excluded.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", query).Interface("args", args).Msg("UpsertTimeLimits")

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

// GetTimeLimits returns the singleton policy row, or nil when not yet
// configured.
func (r *UsageRepo) GetTimeLimits(ctx context.Context) (*domain.TimeLimits, error) {
	queryBuilder := r.db.squirrel.
		Select("monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"warning_threshold", "countdown_threshold", "audio_threshold",
			"time_up_message", "use_custom_beeps", "custom_beep_sound").
		From("time_limits").
		Where(sq.Eq{"id": timeLimitsID})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	limits := &domain.TimeLimits{}
	var beepSound sql.NullString
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(
		&limits.Monday, &limits.Tuesday, &limits.Wednesday, &limits.Thursday,
		&limits.Friday, &limits.Saturday, &limits.Sunday,
		&limits.WarningThreshold, &limits.CountdownThreshold, &limits.AudioThreshold,
		&limits.TimeUpMessage, &limits.UseCustomBeeps, &beepSound)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error scanning time limits")
	}
	limits.CustomBeepSound = beepSound.String

	return limits, nil
}

// ReplaceUsageExtras rewrites the audit trail from legacy data inside one
// transaction, so a re-run of the migration does not duplicate history.
func (r *UsageRepo) ReplaceUsageExtras(ctx context.Context, extras []domain.UsageExtra) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM usage_extras"); err != nil {
		return 0, errors.Wrap(err, "error clearing usage extras")
	}

	for _, e := range extras {
		query, args, err := r.usageExtraInsert(e).ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("ReplaceUsageExtras")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error inserting usage extra for %s", e.Date)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing usage extras")
	}

	return len(extras), nil
}

// AppendUsageExtra adds one grant or revocation to the audit trail.
// Multiple rows per date are expected and meaningful.
func (r *UsageRepo) AppendUsageExtra(ctx context.Context, extra domain.UsageExtra) error {
	query, args, err := r.usageExtraInsert(extra).ToSql()
	if err != nil {
		return errors.Wrap(err, "error building query")
	}

	_, err = r.db.handler.ExecContext(ctx, query, args...)
	return errors.Wrap(err, "error executing query")
}

func (r *UsageRepo) usageExtraInsert(e domain.UsageExtra) sq.InsertBuilder {
	return r.db.squirrel.
		Insert("usage_extras").
		Columns("date", "minutes_added", "reason", "added_by").
		Values(e.Date, e.MinutesAdded, nullIfEmpty(e.Reason), nullIfEmpty(e.AddedBy))
}

// ListUsageExtras returns the full audit trail for one date in insertion
// order.
func (r *UsageRepo) ListUsageExtras(ctx context.Context, date string) ([]domain.UsageExtra, error) {
	queryBuilder := r.db.squirrel.
		Select("date", "minutes_added", "reason", "added_by").
		From("usage_extras").
		Where(sq.Eq{"date": date}).
		OrderBy("id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var extras []domain.UsageExtra
	for rows.Next() {
		var e domain.UsageExtra
		var reason, addedBy sql.NullString
		if err := rows.Scan(&e.Date, &e.MinutesAdded, &reason, &addedBy); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		e.Reason = reason.String
		e.AddedBy = addedBy.String
		extras = append(extras, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return extras, nil
}
