package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// migrations is an ordered list of SQL statements applied on startup.
// Each entry is idempotent (IF NOT EXISTS) so re-running is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS startups (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		id             TEXT UNIQUE NOT NULL,
		at             TEXT NOT NULL,
		action         TEXT NOT NULL,
		library_path   TEXT NOT NULL DEFAULT '',
		version        INTEGER NOT NULL,
		version_string TEXT NOT NULL DEFAULT '',
		threading      TEXT NOT NULL DEFAULT '',
		acknowledged   TEXT NOT NULL DEFAULT '',
		passed         INTEGER NOT NULL,
		defects        TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT '',
		prev_hash      TEXT NOT NULL,
		hash           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS startups_at ON startups (at)`,
}

const startupColumns = `seq, id, at, action, library_path, version, version_string,
	threading, acknowledged, passed, defects, error, prev_hash, hash`

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite handles one writer at a time.

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) RecordStartup(ctx context.Context, r *StartupRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var prev string
	err = tx.QueryRowContext(ctx, `SELECT hash FROM startups ORDER BY seq DESC LIMIT 1`).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	r.At = r.At.UTC()
	r.PrevHash = prev
	r.Hash = recordHash(prev, r)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO startups (id, at, action, library_path, version, version_string,
			threading, acknowledged, passed, defects, error, prev_hash, hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.At.Format(time.RFC3339Nano), string(r.Action), r.LibraryPath,
		int64(r.Version), r.VersionString, r.Threading, r.Acknowledged, r.Passed,
		strings.Join(r.Defects, ","), r.Error, r.PrevHash, r.Hash)
	if err != nil {
		return fmt.Errorf("insert startup: %w", err)
	}
	if r.Seq, err = res.LastInsertId(); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListStartups(ctx context.Context, limit int) ([]*StartupRecord, error) {
	query := `SELECT ` + startupColumns + ` FROM startups ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryStartups(ctx, query, args...)
}

func (s *SQLiteStore) VerifyChain(ctx context.Context) error {
	recs, err := s.queryStartups(ctx, `SELECT `+startupColumns+` FROM startups ORDER BY seq ASC`)
	if err != nil {
		return err
	}
	prev := ""
	for _, r := range recs {
		if r.PrevHash != prev {
			return fmt.Errorf("%w: record %d does not follow its predecessor", ErrChainBroken, r.Seq)
		}
		if want := recordHash(prev, r); r.Hash != want {
			return fmt.Errorf("%w: record %d was modified", ErrChainBroken, r.Seq)
		}
		prev = r.Hash
	}
	return nil
}

func (s *SQLiteStore) queryStartups(ctx context.Context, query string, args ...any) ([]*StartupRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var recs []*StartupRecord
	for rows.Next() {
		r, err := scanStartup(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func scanStartup(rows *sql.Rows) (*StartupRecord, error) {
	var r StartupRecord
	var at, action, defects string
	var version int64
	if err := rows.Scan(&r.Seq, &r.ID, &at, &action, &r.LibraryPath, &version, &r.VersionString,
		&r.Threading, &r.Acknowledged, &r.Passed, &defects, &r.Error, &r.PrevHash, &r.Hash); err != nil {
		return nil, err
	}
	var err error
	if r.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
		return nil, fmt.Errorf("startup %d: parse at: %w", r.Seq, err)
	}
	r.Action = Action(action)
	r.Version = uint64(version)
	if defects != "" {
		r.Defects = strings.Split(defects, ",")
	}
	return &r, nil
}

var _ Store = (*SQLiteStore)(nil)
