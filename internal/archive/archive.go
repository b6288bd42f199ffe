// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps a SQLite history of runs and the items each run
// placed in its buckets, so past results can be listed and searched
// without re-reading run directories.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/segmentio/ksuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/pkg/types"
)

const defaultMaxResults = 50

// createdFmt sorts lexically in time order.
const createdFmt = "2006-01-02T15:04:05.000000000Z"

// Archive is the run history database.
type Archive struct {
	db *sql.DB
}

// RunRecord describes one archived run.
type RunRecord struct {
	ID        string
	Name      string
	Dir       string
	CreatedAt time.Time
	Config    types.RunConfig
	Counts    map[pipeline.Bucket]int
}

// Open opens or creates the archive at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a := &Archive{db: db}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			dir TEXT,
			created_at TEXT NOT NULL,
			config TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			bucket TEXT NOT NULL,
			platform TEXT NOT NULL,
			title TEXT NOT NULL,
			position INTEGER NOT NULL,
			summary TEXT,
			attributes TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_run_id ON items(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_items_platform ON items(platform)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun records a run and every item in res under a new run ID, which
// it returns. Items keep their bucket, platform, and position within the
// platform.
func (a *Archive) SaveRun(ctx context.Context, name, dir string, cfg types.RunConfig, res pipeline.Result) (string, error) {
	cfgYAML, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling run config: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := ksuid.New().String()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, dir, created_at, config) VALUES (?, ?, ?, ?, ?)`,
		id, name, dir, now().UTC().Format(createdFmt), string(cfgYAML),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (run_id, bucket, platform, title, position, summary, attributes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range pipeline.Buckets {
		s := res.Store(b)
		if s == nil {
			continue
		}
		for _, platform := range s.Platforms() {
			for pos, title := range s.Titles(platform) {
				item, _ := s.Get(platform, title)
				attrs, err := json.Marshal(item)
				if err != nil {
					return "", fmt.Errorf("encoding %s/%s: %w", platform, title, err)
				}
				if _, err := stmt.ExecContext(ctx,
					id, string(b), platform, title, pos, item.GetString(types.FieldSummary), string(attrs),
				); err != nil {
					return "", fmt.Errorf("inserting item %s/%s: %w", platform, title, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// now is replaced in tests.
var now = time.Now
