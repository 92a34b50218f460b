package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/logtrap/logtrap/internal/model"
)

// The on-disk layout is identified by fixed constants, not runtime
// configuration: a single log table plus a timestamp index, versioned
// through PRAGMA user_version so future structural changes can migrate on
// open without data loss.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp   INTEGER NOT NULL,
	level       TEXT NOT NULL,
	message     TEXT NOT NULL,
	stack_trace TEXT,
	metadata    TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);
`

// Store owns the single connection to the embedded SQLite database holding
// all LogRecords. It is the single source of truth: nothing else in the
// process caches or mutates records, so observer state is always derivable
// by re-reading the store after a mutation.
//
// The connection is created lazily on first use and reused for the life of
// the process. Access goes through a pool of size one, so operations from
// different goroutines serialize on the connection rather than running
// transactions in parallel.
type Store struct {
	path   string
	logger zerolog.Logger

	initOnce sync.Once
	initErr  error
	pool     *sqlitex.Pool

	opens atomic.Int32 // engine opens performed; read by tests
}

// New returns a Store for the database file at path. The engine is not
// opened until the first operation (or an explicit Initialize).
func New(path string, logger zerolog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Initialize opens the embedded engine and brings the schema up to the
// expected version. It is idempotent: once a connection exists it returns
// immediately, and concurrent callers collapse onto the single in-flight
// open, all observing its result. A failed open is sticky for the life of
// the Store, the same way a cached rejected initialization would be.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.open(ctx)
		if s.initErr == nil {
			s.opens.Add(1)
			s.logger.Debug().Str("path", s.path).Msg("log store opened")
		}
	})
	return s.initErr
}

func (s *Store) open(ctx context.Context) error {
	pool, err := sqlitex.NewPool(s.path, sqlitex.PoolOptions{
		PoolSize: 1,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout=5000", nil)
		},
	})
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrOpen, s.path, err)
	}

	// Connections are created lazily, so the first Take is where a bad
	// path actually surfaces.
	conn, err := pool.Take(ctx)
	if err != nil {
		pool.Close()
		return fmt.Errorf("%w: opening %s: %w", ErrOpen, s.path, err)
	}
	defer pool.Put(conn)

	if err := migrate(conn); err != nil {
		pool.Close()
		return fmt.Errorf("%w: migrating %s: %w", ErrOpen, s.path, err)
	}

	s.pool = pool
	return nil
}

// migrate creates or upgrades the schema when the on-disk version is
// absent or older than schemaVersion. ExecuteScript runs inside a
// savepoint, so a partial upgrade never reaches disk.
func migrate(conn *sqlite.Conn) error {
	var version int
	err := sqlitex.ExecuteTransient(conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return err
	}
	if version >= schemaVersion {
		return nil
	}

	script := schemaSQL + fmt.Sprintf("PRAGMA user_version = %d;", schemaVersion)
	return sqlitex.ExecuteScript(conn, script, nil)
}

// Insert appends a record draft inside a write transaction and returns the
// assigned id. Ids come from the AUTOINCREMENT sequence: unique across the
// lifetime of the database, monotonically increasing, never reissued even
// after Clear.
func (s *Store) Insert(ctx context.Context, draft model.LogRecord) (id int64, err error) {
	if err := s.Initialize(ctx); err != nil {
		return 0, err
	}

	var stackTrace any
	if draft.StackTrace != nil {
		stackTrace = *draft.StackTrace
	}
	var metadata any
	if draft.Metadata != nil {
		data, err := json.Marshal(draft.Metadata)
		if err != nil {
			return 0, fmt.Errorf("%w: marshal metadata: %w", ErrWrite, err)
		}
		metadata = string(data)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: acquire connection: %w", ErrWrite, err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %w", ErrWrite, err)
	}
	defer func() {
		endTransaction(&err)
		if err != nil && !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: commit: %w", ErrWrite, err)
		}
	}()

	err = sqlitex.Execute(conn,
		`INSERT INTO logs (timestamp, level, message, stack_trace, metadata)
		 VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{draft.Timestamp, string(draft.Level), draft.Message, stackTrace, metadata},
		})
	if err != nil {
		err = fmt.Errorf("%w: insert: %w", ErrWrite, err)
		return 0, err
	}

	return conn.LastInsertRowID(), nil
}

// ScanAll returns every record ordered newest first. Ties on timestamp
// break by id descending, which is stable across repeated scans of an
// unchanged store. This is a full scan; pagination and filtering are not
// part of the contract.
func (s *Store) ScanAll(ctx context.Context) ([]model.LogRecord, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %w", ErrRead, err)
	}
	defer s.pool.Put(conn)

	var records []model.LogRecord
	err = sqlitex.Execute(conn,
		`SELECT id, timestamp, level, message, stack_trace, metadata
		 FROM logs ORDER BY timestamp DESC, id DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record := model.LogRecord{
					ID:        stmt.ColumnInt64(0),
					Timestamp: stmt.ColumnInt64(1),
					Level:     model.Level(stmt.ColumnText(2)),
					Message:   stmt.ColumnText(3),
				}
				if !stmt.ColumnIsNull(4) {
					stackTrace := stmt.ColumnText(4)
					record.StackTrace = &stackTrace
				}
				if !stmt.ColumnIsNull(5) {
					if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &record.Metadata); err != nil {
						return fmt.Errorf("unmarshal metadata: %w", err)
					}
				}
				records = append(records, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %w", ErrRead, err)
	}
	return records, nil
}

// Clear removes every record in a single write transaction. The id
// sequence is left untouched, so records inserted afterwards still get
// fresh unique ids.
func (s *Store) Clear(ctx context.Context) (err error) {
	if err := s.Initialize(ctx); err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("%w: acquire connection: %w", ErrWrite, err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrWrite, err)
	}
	defer func() {
		endTransaction(&err)
		if err != nil && !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: commit: %w", ErrWrite, err)
		}
	}()

	if err = sqlitex.Execute(conn, "DELETE FROM logs", nil); err != nil {
		err = fmt.Errorf("%w: clear: %w", ErrWrite, err)
		return err
	}
	return nil
}

// Close releases the connection. Normal operation never calls it; it
// exists for process shutdown and tests.
func (s *Store) Close() error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Close()
}
