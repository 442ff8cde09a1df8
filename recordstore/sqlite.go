// Package recordstore archives the cleaned text of every ingested record in
// an embedded SQLite database. The archive backs record listings and lets
// the corpus registry detect changed files across restarts; losing it never
// loses the ability to answer queries, only the ability to skip re-ingestion.
package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mantravadi/granthalaya/corpus"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	record_id  TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	filename   TEXT NOT NULL DEFAULT '',
	crc        INTEGER NOT NULL DEFAULT 0,
	content    TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_filename ON records(filename);
`

// Record is one archived ingestion.
type Record struct {
	RecordID  string    `json:"record_id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Crc       uint32    `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// FileState is the registry's view of an ingested corpus file.
type FileState struct {
	Filename string
	Crc      uint32
	RecordID string
}

type Store struct {
	db *sql.DB
}

// Open creates or opens the archive database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening records database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating records schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRecord upserts the cleaned text of a record. Satisfies the pipeline's
// archiver contract.
func (s *Store) SaveRecord(ctx context.Context, meta corpus.Metadata, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (record_id, title, filename, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			title = excluded.title,
			filename = excluded.filename,
			content = excluded.content`,
		meta.RecordID, meta.Title, meta.Filename, content, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("saving record %s: %w", meta.RecordID, err)
	}
	return nil
}

// SetFileState records which corpus file and content checksum a record was
// ingested from, so directory sync can skip unchanged files.
func (s *Store) SetFileState(ctx context.Context, recordID, filename string, crc uint32) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (record_id, filename, crc, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			filename = excluded.filename,
			crc = excluded.crc`,
		recordID, filename, crc, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("updating file state for %s: %w", recordID, err)
	}
	return nil
}

// List returns all archived records, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, title, filename, crc, content, created_at
		FROM records ORDER BY created_at DESC, record_id`)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created int64
		if err := rows.Scan(&r.RecordID, &r.Title, &r.Filename, &r.Crc, &r.Content, &created); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

// IngestedFiles returns the file state of every record that came from a
// corpus file.
func (s *Store) IngestedFiles(ctx context.Context) ([]FileState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, filename, crc FROM records WHERE filename != ''`)
	if err != nil {
		return nil, fmt.Errorf("listing ingested files: %w", err)
	}
	defer rows.Close()

	var files []FileState
	for rows.Next() {
		var f FileState
		if err := rows.Scan(&f.RecordID, &f.Filename, &f.Crc); err != nil {
			return nil, fmt.Errorf("scanning file state: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// Delete removes a record from the archive.
func (s *Store) Delete(ctx context.Context, recordID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", recordID, err)
	}
	return nil
}
