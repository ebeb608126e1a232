package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/safeview/safeviewdb/internal/domain"
)

// EnsureInitialized brings the schema up to the given phase inside one
// transaction and stamps schema_version. When the stored phase already
// covers the target this is a true no-op; the stamp is not rewritten.
func (db *DB) EnsureInitialized(ctx context.Context, phase domain.Phase) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if domain.PhaseRank(phase) == 0 {
		return errors.Errorf("unknown schema phase: %s", phase)
	}

	current, err := db.storedPhase(ctx)
	if err != nil {
		return err
	}

	if domain.PhaseRank(current) >= domain.PhaseRank(phase) {
		db.log.Debug().Str("phase", string(current)).Msg("schema already initialized")
		return nil
	}

	db.log.Info().Str("from", string(current)).Str("to", string(phase)).Msg("initializing schema")

	tx, err := db.handler.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, phase1Schema); err != nil {
		return errors.Wrap(err, "failed to execute phase1 schema")
	}
	if phase == domain.Phase2 {
		if _, err := tx.ExecContext(ctx, phase2Schema); err != nil {
			return errors.Wrap(err, "failed to execute phase2 schema")
		}
	}

	if _, err := tx.ExecContext(ctx, seedSources); err != nil {
		return errors.Wrap(err, "failed to seed placeholder source")
	}

	stamp := `
INSERT INTO schema_version (id, version, phase, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	version = excluded.version,
	phase = excluded.phase,
	updated_at = excluded.updated_at;`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, stamp, domain.PhaseRank(phase), string(phase), now); err != nil {
		return errors.Wrap(err, "failed to stamp schema version")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema initialization")
	}

	db.log.Info().Str("phase", string(phase)).Msg("schema initialized")
	return nil
}

// SchemaVersion returns the stored version stamp. Version 0 and empty phase
// mean the schema is absent.
func (db *DB) SchemaVersion(ctx context.Context) (version int, phase domain.Phase, updatedAt string, err error) {
	exists, err := db.tableExists(ctx, "schema_version")
	if err != nil || !exists {
		return 0, "", "", err
	}

	row := db.handler.QueryRowContext(ctx, "SELECT version, phase, updated_at FROM schema_version WHERE id = 1")
	var p string
	if err := row.Scan(&version, &p, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", "", nil
		}
		return 0, "", "", errors.Wrap(err, "failed to read schema version")
	}

	return version, domain.Phase(p), updatedAt, nil
}

// Validate compares the installation against the expected phase. Findings
// are collected into the result; probe failures land in result.Errors
// rather than aborting the check.
func (db *DB) Validate(ctx context.Context, phase domain.Phase) *domain.ValidationResult {
	db.lock.RLock()
	defer db.lock.RUnlock()

	result := &domain.ValidationResult{ExpectedPhase: phase}

	stored, err := db.storedPhase(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.StoredPhase = stored
	result.PhaseMatches = stored == phase

	for _, table := range expectedTables(phase) {
		exists, err := db.tableExists(ctx, table)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if !exists {
			result.MissingTables = append(result.MissingTables, table)
		}
	}

	for _, index := range expectedIndexes(phase) {
		exists, err := db.indexExists(ctx, index)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if !exists {
			result.MissingIndexes = append(result.MissingIndexes, index)
		}
	}

	violations, err := db.foreignKeyViolations(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}
	result.ForeignKeyViolations = violations

	return result
}

// DropAll drops every non-system table. Foreign-key enforcement is
// suspended for the drop because the pragma cannot change inside a
// transaction. Test teardown only.
func (db *DB) DropAll(ctx context.Context) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	rows, err := db.handler.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate tables")
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return errors.Wrap(err, "error scanning table name")
		}
		// Dropping the videos_search virtual table removes its shadow
		// tables; they must not be dropped directly.
		if strings.HasPrefix(name, "videos_search_") {
			continue
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "error iterating tables")
	}

	if _, err := db.handler.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "failed to disable foreign keys")
	}
	defer db.handler.ExecContext(ctx, "PRAGMA foreign_keys = ON")

	tx, err := db.handler.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS "`+table+`"`); err != nil {
			return errors.Wrapf(err, "failed to drop table %s", table)
		}
	}

	return tx.Commit()
}

func (db *DB) storedPhase(ctx context.Context) (domain.Phase, error) {
	_, phase, _, err := db.SchemaVersion(ctx)
	return phase, err
}

func (db *DB) tableExists(ctx context.Context, name string) (bool, error) {
	return db.masterObjectExists(ctx, "table", name)
}

func (db *DB) indexExists(ctx context.Context, name string) (bool, error) {
	return db.masterObjectExists(ctx, "index", name)
}

func (db *DB) masterObjectExists(ctx context.Context, objectType, name string) (bool, error) {
	queryBuilder := db.squirrel.
		Select("COUNT(*)").
		From("sqlite_master").
		Where(sq.Eq{"type": objectType, "name": name})

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return false, errors.Wrap(err, "error building query")
	}

	var n int
	if err := db.handler.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "failed to probe %s %s", objectType, name)
	}

	return n > 0, nil
}

func (db *DB) foreignKeyViolations(ctx context.Context) ([]string, error) {
	rows, err := db.handler.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return nil, errors.Wrap(err, "failed to run foreign_key_check")
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var table, parent string
		var rowid, fkid sql.NullInt64
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return violations, errors.Wrap(err, "error scanning foreign_key_check row")
		}
		violations = append(violations, table+" -> "+parent)
	}

	return violations, errors.Wrap(rows.Err(), "error iterating foreign_key_check")
}

func expectedTables(phase domain.Phase) []string {
	tables := append([]string{}, phase1Tables...)
	if phase == domain.Phase2 {
		tables = append(tables, phase2Tables...)
	}
	return tables
}

func expectedIndexes(phase domain.Phase) []string {
	indexes := append([]string{}, phase1Indexes...)
	if phase == domain.Phase2 {
		indexes = append(indexes, phase2Indexes...)
	}
	return indexes
}
