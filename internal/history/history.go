// Package history keeps a local SQLite ledger of publish runs and the assets
// each run uploaded.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neostalgic/obsidian-strapi-uploader/internal/sync"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS publishes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note        TEXT NOT NULL,
	collection  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	stage       TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	entry_id    INTEGER NOT NULL DEFAULT 0,
	document_id TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS publish_assets (
	publish_id INTEGER NOT NULL REFERENCES publishes(id) ON DELETE CASCADE,
	local_path TEXT NOT NULL,
	remote_id  INTEGER NOT NULL,
	name       TEXT NOT NULL,
	url        TEXT NOT NULL,
	mime       TEXT NOT NULL,
	reused     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_publish_assets_remote_id ON publish_assets(remote_id);
`

// Publish is one recorded publish run.
type Publish struct {
	ID         int64
	Note       string
	Collection string
	Status     string
	Stage      string
	Error      string
	EntryID    int64
	DocumentID string
	StartedAt  time.Time
	FinishedAt time.Time
	Assets     int
}

// Asset is a remote file uploaded during a publish run.
type Asset struct {
	PublishID int64
	Note      string
	LocalPath string
	RemoteID  int64
	Name      string
	URL       string
	Mime      string
	Reused    bool
}

// Store is the publish ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY from the pool.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize history database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordPublish implements sync.Recorder.
func (s *Store) RecordPublish(ctx context.Context, rec sync.PublishRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	status, errText := StatusSucceeded, ""
	if rec.Err != nil {
		status, errText = StatusFailed, rec.Err.Error()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO publishes (note, collection, status, stage, error, entry_id, document_id, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Note, rec.Collection, status, string(rec.Stage), errText,
		rec.Entry.ID, rec.Entry.DocumentID,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert publish: %w", err)
	}
	publishID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read publish id: %w", err)
	}

	for _, upload := range rec.Uploads {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO publish_assets (publish_id, local_path, remote_id, name, url, mime, reused)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			publishID, upload.Local.Path, upload.Remote.ID, upload.Remote.Name,
			upload.Remote.URL, upload.Remote.Mime, upload.Reused,
		); err != nil {
			return fmt.Errorf("insert publish asset %s: %w", upload.Local.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit history transaction: %w", err)
	}
	return nil
}

// List returns the most recent publish runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Publish, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.note, p.collection, p.status, p.stage, p.error, p.entry_id, p.document_id,
		       p.started_at, p.finished_at,
		       (SELECT COUNT(*) FROM publish_assets a WHERE a.publish_id = p.id)
		FROM publishes p
		ORDER BY p.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list publishes: %w", err)
	}
	defer rows.Close()

	var out []Publish
	for rows.Next() {
		var p Publish
		var started, finished string
		if err := rows.Scan(&p.ID, &p.Note, &p.Collection, &p.Status, &p.Stage, &p.Error,
			&p.EntryID, &p.DocumentID, &started, &finished, &p.Assets); err != nil {
			return nil, fmt.Errorf("scan publish: %w", err)
		}
		p.StartedAt = parseTime(started)
		p.FinishedAt = parseTime(finished)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Orphans returns assets uploaded by failed runs that no successful run has
// since used. They exist on the remote but no entry references them.
func (s *Store) Orphans(ctx context.Context) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.publish_id, p.note, a.local_path, a.remote_id, a.name, a.url, a.mime, a.reused
		FROM publish_assets a
		JOIN publishes p ON p.id = a.publish_id
		WHERE p.status = ?
		  AND a.reused = 0
		  AND NOT EXISTS (
			SELECT 1 FROM publish_assets b
			JOIN publishes q ON q.id = b.publish_id
			WHERE b.remote_id = a.remote_id AND q.status = ?
		  )
		ORDER BY a.publish_id, a.local_path`, StatusFailed, StatusSucceeded)
	if err != nil {
		return nil, fmt.Errorf("list orphaned assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.PublishID, &a.Note, &a.LocalPath, &a.RemoteID, &a.Name, &a.URL, &a.Mime, &a.Reused); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ sync.Recorder = (*Store)(nil)
