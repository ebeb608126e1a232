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

// SettingsRepo persists the namespaced key/value settings store.
type SettingsRepo struct {
	log zerolog.Logger
	db  *DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(log zerolog.Logger, db *DB) *SettingsRepo {
	return &SettingsRepo{
		log: log.With().Str("repo", "settings").Logger(),
		db:  db,
	}
}

// ReplaceAll writes all settings in one transaction and returns the number
// of records processed. Keys are replaced wholesale; the settings table has
// no dependents.
func (r *SettingsRepo) ReplaceAll(ctx context.Context, settings []domain.Setting) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, s := range settings {
		queryBuilder := r.db.squirrel.
			Replace("settings").
			Columns("key", "value", "type", "description", "updated_at").
			Values(s.Key, s.Value, string(s.Type), s.Description, now)

		query, args, err := queryBuilder.ToSql()
		if err != nil {
			return 0, errors.Wrap(err, "error building query")
		}

		r.log.Trace().Str("query", query).Interface("args", args).Msg("ReplaceAll")

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, errors.Wrapf(err, "error writing setting %s", s.Key)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "error committing settings")
	}

	return len(settings), nil
}

// Get returns one setting by its "<namespace>.<name>" key, or nil.
func (r *SettingsRepo) Get(ctx context.Context, key string) (*domain.Setting, error) {
	queryBuilder := r.db.squirrel.
		Select("key", "value", "type", "description").
		From("settings").
		Where(sq.Eq{"key": key})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	s := &domain.Setting{}
	var settingType string
	err = r.db.handler.QueryRowContext(ctx, query, args...).Scan(&s.Key, &s.Value, &settingType, &s.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "error scanning setting")
	}
	s.Type = domain.SettingType(settingType)

	return s, nil
}

// ListNamespace returns all settings whose key starts with the namespace
// prefix, ordered by key.
func (r *SettingsRepo) ListNamespace(ctx context.Context, namespace string) ([]domain.Setting, error) {
	queryBuilder := r.db.squirrel.
		Select("key", "value", "type", "description").
		From("settings").
		Where(sq.Like{"key": namespace + ".%"}).
		OrderBy("key")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "error building query")
	}

	rows, err := r.db.handler.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var s domain.Setting
		var settingType string
		if err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Description); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		s.Type = domain.SettingType(settingType)
		settings = append(settings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return settings, nil
}

// Count returns the number of settings rows.
func (r *SettingsRepo) Count(ctx context.Context) (int, error) {
	return r.db.countRows(ctx, "settings", nil)
}
