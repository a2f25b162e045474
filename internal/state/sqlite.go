package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/mapdone/internal/highlight"
)

const (
	busyTimeout       = 5000 // ms
	walAutoCheckpoint = 1000 // pages
	maxOpenConns      = 1
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id                TEXT    PRIMARY KEY,
	file_path         TEXT    NOT NULL UNIQUE,
	metadata          TEXT    NOT NULL,
	highlights        TEXT    NOT NULL,
	progress          REAL    NOT NULL CHECK(progress >= 0 AND progress <= 1),
	duration_ms       INTEGER NOT NULL,
	duration_source   TEXT    NOT NULL,
	mod_time_ms       INTEGER NOT NULL,
	audio_path        TEXT    NOT NULL DEFAULT '',
	audio_mod_time_ms INTEGER NOT NULL DEFAULT 0,
	object_count      INTEGER NOT NULL DEFAULT 0,
	status            TEXT    NOT NULL,
	due_date          INTEGER,
	added_at          INTEGER NOT NULL,
	completed_at      INTEGER
);
CREATE INDEX IF NOT EXISTS idx_items_status ON items(status, added_at);
CREATE TABLE IF NOT EXISTS library_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const itemColumns = `id, file_path, metadata, highlights, progress, duration_ms, duration_source,
	mod_time_ms, audio_path, audio_mod_time_ms, object_count, status, due_date, added_at, completed_at`

// SQLiteStore keeps the library in a SQLite database in WAL mode.
// Highlights are stored as the same JSON tuples the file backend writes.
type SQLiteStore struct {
	memory
	db       *sql.DB
	dbPath   string
	upsertPS *sql.Stmt
	allPS    *sql.Stmt
}

// NewSQLiteStore opens or creates the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_synchronous=NORMAL&_wal_autocheckpoint=%d&_busy_timeout=%d",
		filepath.ToSlash(dbPath),
		walAutoCheckpoint,
		busyTimeout,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema creation failed: %w", err)
	}

	upsert, err := db.Prepare(`INSERT OR REPLACE INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	all, err := db.Prepare(`SELECT ` + itemColumns + ` FROM items`)
	if err != nil {
		upsert.Close()
		db.Close()
		return nil, fmt.Errorf("failed to prepare select: %w", err)
	}

	return &SQLiteStore{
		memory:   memory{lib: NewLibrary()},
		db:       db,
		dbPath:   dbPath,
		upsertPS: upsert,
		allPS:    all,
	}, nil
}

// Load reads every item row into memory
func (s *SQLiteStore) Load() error {
	lib := NewLibrary()

	meta, err := s.readMeta()
	if err != nil {
		return err
	}
	if v, ok := meta["version"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n != LibraryFileVersion {
			return fmt.Errorf("unsupported state database version %s (expected %d)", v, LibraryFileVersion)
		}
	}
	if v, ok := meta["last_scan"]; ok && v != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			lib.LastScan = ts
		}
	}

	rows, err := s.allPS.Query()
	if err != nil {
		return fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return err
		}
		lib.Items[it.ID] = it
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read items: %w", err)
	}
	lib.reindex()

	s.mu.Lock()
	s.lib = lib
	s.mu.Unlock()
	return nil
}

// Save replaces the stored rows with the in-memory library in one transaction
func (s *SQLiteStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	upsert := tx.Stmt(s.upsertPS)
	for _, it := range s.lib.Items {
		args, err := itemArgs(it)
		if err != nil {
			return err
		}
		if _, err := upsert.Exec(args...); err != nil {
			return fmt.Errorf("failed to write item %s: %w", it.ID, err)
		}
	}

	meta := map[string]string{
		"version":   strconv.Itoa(s.lib.Version),
		"last_scan": s.lib.LastScan.Format(time.RFC3339Nano),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO library_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// Close releases the prepared statements and the database handle
func (s *SQLiteStore) Close() error {
	s.upsertPS.Close()
	s.allPS.Close()
	return s.db.Close()
}

func (s *SQLiteStore) readMeta() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM library_meta`)
	if err != nil {
		return nil, fmt.Errorf("failed to query library metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to read library metadata: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func itemArgs(it *Item) ([]any, error) {
	meta, err := json.Marshal(it.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata for %s: %w", it.ID, err)
	}
	hl, err := highlight.Encode(it.Highlights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode highlights for %s: %w", it.ID, err)
	}
	return []any{
		it.ID,
		it.FilePath,
		string(meta),
		string(hl),
		it.Progress,
		it.DurationMs,
		string(it.DurationSource),
		it.ModTime,
		it.AudioPath,
		it.AudioModTime,
		it.ObjectCount,
		string(it.Status),
		nullableTime(it.DueDate),
		it.AddedAt.UnixNano(),
		nullableTime(it.CompletedAt),
	}, nil
}

func scanItem(rows *sql.Rows) (*Item, error) {
	var (
		it                  Item
		meta, hl            string
		source, status      string
		addedAt             int64
		dueDate, completeAt sql.NullInt64
	)
	err := rows.Scan(
		&it.ID,
		&it.FilePath,
		&meta,
		&hl,
		&it.Progress,
		&it.DurationMs,
		&source,
		&it.ModTime,
		&it.AudioPath,
		&it.AudioModTime,
		&it.ObjectCount,
		&status,
		&dueDate,
		&addedAt,
		&completeAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan item row: %w", err)
	}

	if err := json.Unmarshal([]byte(meta), &it.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", it.ID, err)
	}
	if it.Highlights, err = highlight.Decode([]byte(hl)); err != nil {
		return nil, fmt.Errorf("failed to decode highlights for %s: %w", it.ID, err)
	}
	it.DurationSource = DurationSource(source)
	it.Status = Status(status)
	it.AddedAt = time.Unix(0, addedAt)
	it.DueDate = fromNullable(dueDate)
	it.CompletedAt = fromNullable(completeAt)
	return &it, nil
}

func nullableTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullable(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64).UTC()
}
