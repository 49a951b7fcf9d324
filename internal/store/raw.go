package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thrashr888/cortex/internal/cortexerr"

	_ "modernc.org/sqlite"
)

// RawStore owns one raw.db: episodic observations plus their FTS index.
type RawStore struct {
	db *sql.DB
}

// OpenRaw opens (creating if absent) the raw database at path, applying the
// teacher's pragma set (WAL, NORMAL sync, busy_timeout, foreign_keys) and
// running migrations.
func OpenRaw(path string) (*RawStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cortex: create raw db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open raw db: %v", cortexerr.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("%w: pragma %q: %v", cortexerr.ErrStoreUnavailable, pragma, err)
		}
	}

	s := &RawStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("%w: raw migration: %v", cortexerr.ErrStoreUnavailable, err)
	}
	return s, nil
}

func (s *RawStore) Close() error { return s.db.Close() }

func (s *RawStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS raw_memories (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			content      TEXT    NOT NULL,
			kind         TEXT    NOT NULL,
			created_at   TEXT    NOT NULL,
			consolidated INTEGER NOT NULL DEFAULT 0,
			session_id   TEXT    NOT NULL DEFAULT '',
			access_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_raw_consolidated ON raw_memories(consolidated);
		CREATE INDEX IF NOT EXISTS idx_raw_created      ON raw_memories(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_raw_dedupe        ON raw_memories(kind, content, consolidated);
		CREATE INDEX IF NOT EXISTS idx_raw_session       ON raw_memories(session_id);

		CREATE VIRTUAL TABLE IF NOT EXISTS raw_fts USING fts5(
			content,
			kind,
			content='raw_memories',
			content_rowid='id',
			tokenize='porter unicode61'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='raw_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER raw_fts_insert AFTER INSERT ON raw_memories BEGIN
				INSERT INTO raw_fts(rowid, content, kind) VALUES (new.id, new.content, new.kind);
			END;

			CREATE TRIGGER raw_fts_delete AFTER DELETE ON raw_memories BEGIN
				INSERT INTO raw_fts(raw_fts, rowid, content, kind) VALUES ('delete', old.id, old.content, old.kind);
			END;

			CREATE TRIGGER raw_fts_update AFTER UPDATE ON raw_memories BEGIN
				INSERT INTO raw_fts(raw_fts, rowid, content, kind) VALUES ('delete', old.id, old.content, old.kind);
				INSERT INTO raw_fts(rowid, content, kind) VALUES (new.id, new.content, new.kind);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// InsertRaw records one episodic observation. content is trimmed; empty
// content or an unrecognized kind is a ValidationError.
func (s *RawStore) InsertRaw(content, kind, sessionID string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("%w: content must not be empty", cortexerr.ErrValidation)
	}
	if !ValidKind(kind) {
		return 0, fmt.Errorf("%w: unknown kind %q", cortexerr.ErrValidation, kind)
	}

	res, err := s.db.Exec(
		`INSERT INTO raw_memories (content, kind, created_at, session_id) VALUES (?, ?, ?, ?)`,
		content, kind, formatTime(time.Now()), sessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("cortex: insert raw: %w", err)
	}
	return res.LastInsertId()
}

// MarkConsolidated idempotently flips consolidated=true for the given ids.
// Ids that do not exist are silently ignored.
func (s *RawStore) MarkConsolidated(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cortex: mark consolidated: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE raw_memories SET consolidated = 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("cortex: mark consolidated: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("cortex: mark consolidated: %w", err)
		}
	}
	return tx.Commit()
}

// UnconsolidatedCount returns count(raw where consolidated = false).
func (s *RawStore) UnconsolidatedCount() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_memories WHERE consolidated = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("cortex: unconsolidated count: %w", err)
	}
	return n, nil
}

// RawCount returns the total raw row count.
func (s *RawStore) RawCount() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_memories`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("cortex: raw count: %w", err)
	}
	return n, nil
}

// Unconsolidated returns the unconsolidated backlog, oldest first, capped
// at limit (0 means unbounded).
func (s *RawStore) Unconsolidated(limit int) ([]RawMemory, error) {
	q := `SELECT id, content, kind, created_at, consolidated, session_id, access_count
	      FROM raw_memories WHERE consolidated = 0 ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(q, args...)
}

// Recent returns the most recently created raw rows, newest first.
func (s *RawStore) Recent(limit int) ([]RawMemory, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.query(
		`SELECT id, content, kind, created_at, consolidated, session_id, access_count
		 FROM raw_memories ORDER BY created_at DESC LIMIT ?`, limit)
}

// RecentSince returns raw rows created within the trailing window, newest
// first — used by Retrieval to fold recent raw into recall results.
func (s *RawStore) RecentSince(cutoff string, limit int) ([]RawMemory, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(
		`SELECT id, content, kind, created_at, consolidated, session_id, access_count
		 FROM raw_memories WHERE created_at >= ? ORDER BY created_at DESC LIMIT ?`, cutoff, limit)
}

// SearchFTS runs a prefix-term FTS5 match over raw content, falling back to
// (ok=false) when the expression is malformed so the caller can degrade to
// recency mode.
func (s *RawStore) SearchFTS(ftsQuery string, limit int) (results []RawMemory, ok bool, err error) {
	if limit <= 0 {
		limit = 20
	}
	rows, qerr := s.db.Query(
		`SELECT m.id, m.content, m.kind, m.created_at, m.consolidated, m.session_id, m.access_count
		 FROM raw_fts f JOIN raw_memories m ON f.rowid = m.id
		 WHERE raw_fts MATCH ? ORDER BY rank LIMIT ?`, ftsQuery, limit)
	if qerr != nil {
		return nil, false, nil
	}
	defer rows.Close()

	out, err := scanRaw(rows)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// BumpAccess increments access_count for id. Best-effort: errors are
// returned but callers may ignore them under contention per the spec's
// "updated best-effort" policy.
func (s *RawStore) BumpAccess(id int64) error {
	_, err := s.db.Exec(`UPDATE raw_memories SET access_count = access_count + 1 WHERE id = ?`, id)
	return err
}

// DeleteMany removes raw rows by id.
func (s *RawStore) DeleteMany(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cortex: delete raw: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM raw_memories WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("cortex: delete raw: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("cortex: delete raw: %w", err)
		}
	}
	return tx.Commit()
}

// ExactDuplicateGroups returns, for the unconsolidated set, groups of ids
// sharing identical (kind, content), each group ordered oldest-first. Used
// by the micro pass's collapse step.
func (s *RawStore) ExactDuplicateGroups() (map[string][]RawMemory, error) {
	rows, err := s.query(
		`SELECT id, content, kind, created_at, consolidated, session_id, access_count
		 FROM raw_memories WHERE consolidated = 0 ORDER BY kind, content, created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]RawMemory)
	for _, m := range rows {
		key := m.Kind + "\x00" + m.Content
		groups[key] = append(groups[key], m)
	}
	return groups, nil
}

// ExactMatchIDs returns, for each unconsolidated raw row whose content
// case-insensitively matches an existing consolidated row's content, that
// raw row's id — used by the micro pass step 4. lowerContents must already
// be lowercased.
func (s *RawStore) ExactMatchIDs(lowerContents map[string]bool) ([]int64, error) {
	rows, err := s.db.Query(`SELECT id, content FROM raw_memories WHERE consolidated = 0`)
	if err != nil {
		return nil, fmt.Errorf("cortex: exact match scan: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		var content string
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("cortex: exact match scan: %w", err)
		}
		if lowerContents[strings.ToLower(content)] {
			ids = append(ids, id)
		}
	}
	return ids, rows.Err()
}

// DecayStale deletes unconsolidated rows older than cutoff with
// access_count == 0.
func (s *RawStore) DecayStale(cutoff string) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM raw_memories WHERE consolidated = 0 AND access_count = 0 AND created_at < ?`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("cortex: decay stale raw: %w", err)
	}
	return res.RowsAffected()
}

func (s *RawStore) query(q string, args ...any) ([]RawMemory, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("cortex: query raw: %w", err)
	}
	defer rows.Close()
	return scanRaw(rows)
}

func scanRaw(rows *sql.Rows) ([]RawMemory, error) {
	var out []RawMemory
	for rows.Next() {
		var m RawMemory
		var createdAt string
		var consolidated int
		if err := rows.Scan(&m.ID, &m.Content, &m.Kind, &createdAt, &consolidated, &m.SessionID, &m.AccessCount); err != nil {
			return nil, fmt.Errorf("cortex: scan raw: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		m.Consolidated = consolidated != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
