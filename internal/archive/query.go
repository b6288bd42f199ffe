// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/source-scout/internal/pipeline"
	"github.com/pdiddy/source-scout/pkg/types"
)

// ErrRunNotFound is returned by Run for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// QueryOptions filters archived items. Zero fields do not filter.
type QueryOptions struct {
	RunID    string
	Bucket   pipeline.Bucket
	Platform string

	// Text matches title or summary as a case-insensitive substring.
	Text string

	// MaxResults limits result count; zero means 50.
	MaxResults int
}

// ItemRecord is one archived item.
type ItemRecord struct {
	RunID    string
	RunName  string
	Bucket   pipeline.Bucket
	Platform string
	Title    string
	Position int
	Summary  string
	Item     *types.Item
}

// ListRuns returns runs newest first with per-bucket item counts. A
// positive limit caps the number returned.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	q := `SELECT id, name, dir, created_at, config FROM runs ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Counts, err = a.counts(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Run returns the run with the given ID. A unique ID prefix is accepted.
func (a *Archive) Run(ctx context.Context, id string) (RunRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, name, dir, created_at, config FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`,
		escapeLike(id)+"%")
	if err != nil {
		return RunRecord{}, fmt.Errorf("looking up run: %w", err)
	}
	var found []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return RunRecord{}, err
		}
		found = append(found, r)
	}
	rows.Close()
	switch {
	case len(found) == 0:
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(found) > 1:
		return RunRecord{}, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
	r := found[0]
	if r.Counts, err = a.counts(ctx, r.ID); err != nil {
		return RunRecord{}, err
	}
	return r, nil
}

// Items returns archived items matching opts, newest run first, then in
// bucket, platform, and position order.
func (a *Archive) Items(ctx context.Context, opts QueryOptions) ([]ItemRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT i.run_id, r.name, i.bucket, i.platform, i.title, i.position, i.summary, i.attributes
		FROM items i
		JOIN runs r ON r.id = i.run_id
		WHERE 1=1`)

	if opts.RunID != "" {
		qb.WriteString(` AND i.run_id = ?`)
		args = append(args, opts.RunID)
	}
	if opts.Bucket != "" {
		qb.WriteString(` AND i.bucket = ?`)
		args = append(args, string(opts.Bucket))
	}
	if opts.Platform != "" {
		qb.WriteString(` AND i.platform = ?`)
		args = append(args, strings.ToLower(opts.Platform))
	}
	if opts.Text != "" {
		pattern := "%" + escapeLike(opts.Text) + "%"
		qb.WriteString(` AND (i.title LIKE ? ESCAPE '\' OR i.summary LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	qb.WriteString(` ORDER BY r.created_at DESC, i.run_id DESC, i.rowid LIMIT ?`)
	args = append(args, maxResults)

	rows, err := a.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	var out []ItemRecord
	for rows.Next() {
		var (
			rec     ItemRecord
			bucket  string
			summary sql.NullString
			attrs   sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &rec.RunName, &bucket, &rec.Platform, &rec.Title,
			&rec.Position, &summary, &attrs); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Bucket = pipeline.Bucket(bucket)
		rec.Summary = summary.String
		rec.Item = types.NewItem()
		if attrs.Valid && attrs.String != "" {
			if err := json.Unmarshal([]byte(attrs.String), rec.Item); err != nil {
				return nil, fmt.Errorf("decoding %s/%s: %w", rec.Platform, rec.Title, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (a *Archive) counts(ctx context.Context, runID string) (map[pipeline.Bucket]int, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT bucket, count(*) FROM items WHERE run_id = ? GROUP BY bucket`, runID)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}
	defer rows.Close()

	out := make(map[pipeline.Bucket]int, len(pipeline.Buckets))
	for _, b := range pipeline.Buckets {
		out[b] = 0
	}
	for rows.Next() {
		var (
			bucket string
			n      int
		)
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		out[pipeline.Bucket(bucket)] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		r       RunRecord
		dir     sql.NullString
		created string
		cfg     sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &dir, &created, &cfg); err != nil {
		return RunRecord{}, fmt.Errorf("scanning run: %w", err)
	}
	r.Dir = dir.String
	t, err := time.Parse(createdFmt, created)
	if err != nil {
		return RunRecord{}, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	if cfg.Valid && cfg.String != "" {
		if err := yaml.Unmarshal([]byte(cfg.String), &r.Config); err != nil {
			return RunRecord{}, fmt.Errorf("run %s: parsing config: %w", r.ID, err)
		}
	}
	return r, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
