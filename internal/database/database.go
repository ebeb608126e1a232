package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DBFileName is the name of the catalog database file inside the data
// directory.
const DBFileName = "safeview.db"

// DB owns the single database handle for the process. Foreign-key
// enforcement is a session-level toggle in SQLite, so it is switched on in
// the DSN for every connection the pool opens.
type DB struct {
	handler  *sql.DB
	log      zerolog.Logger
	lock     sync.RWMutex
	squirrel sq.StatementBuilderType
}

// NewDB opens (or creates) the catalog database in dir. The schema is not
// touched here; callers run EnsureInitialized explicitly.
func NewDB(dir string, log zerolog.Logger) (*DB, error) {
	db := &DB{
		log:      log.With().Str("module", "database").Logger(),
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}

	DSN := filepath.Join(dir, DBFileName) +
		"?_pragma=busy_timeout%3d1000&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

	var err error
	db.handler, err = sql.Open("sqlite", DSN)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open database")
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if _, err := db.handler.Exec(`PRAGMA optimize;`); err != nil {
		return errors.Wrap(err, "query planner optimization")
	}

	return db.handler.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	return db.handler.Ping()
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.handler.BeginTx(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}

	return tx, nil
}

// ForeignKeysEnabled reports whether foreign-key enforcement is active on
// the connection.
func (db *DB) ForeignKeysEnabled(ctx context.Context) (bool, error) {
	var on int
	if err := db.handler.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on); err != nil {
		return false, errors.Wrap(err, "failed to query foreign_keys pragma")
	}
	return on == 1, nil
}

// countRows counts rows of one of the fixed catalog tables, optionally
// filtered.
func (db *DB) countRows(ctx context.Context, table string, pred any) (int, error) {
	queryBuilder := db.squirrel.Select("COUNT(*)").From(table)
	if pred != nil {
		queryBuilder = queryBuilder.Where(pred)
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "error building query")
	}

	var n int
	if err := db.handler.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "error counting rows of %s", table)
	}

	return n, nil
}
