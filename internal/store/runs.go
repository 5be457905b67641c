package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// ErrRunNotFound is returned by RunPostings for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the stored summary of one ranking run.
type Run struct {
	ID        string
	StartedAt time.Time
	Profile   string
	Input     int
	Ranked    int
	TopScore  float64
	// Stats is an opaque JSON document with per-stage counts.
	Stats json.RawMessage
}

// SaveRun stores the run and its ranked postings in one transaction. Ranks
// follow the slice order starting at 1.
func (s *Store) SaveRun(ctx context.Context, run Run, ranked []*posting.Posting) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Ranked = len(ranked)
	if len(ranked) > 0 {
		run.TopScore = ranked[0].ScoreValue()
	}
	stats := string(run.Stats)
	if stats == "" {
		stats = "{}"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (id, started_at, profile, input, ranked, top_score, stats)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Profile, run.Input, run.Ranked, run.TopScore, stats,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO ranked_postings (run_id, rank, posting_id, source_id, title, company, location, remote, contract_type,
  description, posted_at, source, url, tech_terms, score, result)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range ranked {
		terms, err := json.Marshal(nonNil(p.TechTerms))
		if err != nil {
			return err
		}
		result, err := json.Marshal(p.Score)
		if err != nil {
			return err
		}

		postedAt := ""
		if !p.PostedAt.IsZero() {
			postedAt = p.PostedAt.UTC().Format(time.RFC3339)
		}

		if _, err := stmt.ExecContext(ctx,
			run.ID, i+1, p.ID, p.SourceID, p.Title, p.Company, p.Location, string(p.Remote), p.ContractType,
			p.Description, postedAt, p.Source, p.URL, string(terms), p.ScoreValue(), string(result),
		); err != nil {
			return fmt.Errorf("insert posting %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("run saved", zap.String(logger.FieldRunID, run.ID), zap.Int("ranked", run.Ranked))
	return nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, started_at, profile, input, ranked, top_score, stats
FROM runs ORDER BY started_at DESC, id LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			stats     string
		)
		if err := rows.Scan(&r.ID, &startedAt, &r.Profile, &r.Input, &r.Ranked, &r.TopScore, &stats); err != nil {
			return nil, err
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		r.Stats = json.RawMessage(stats)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunPostings returns the ranked postings of a run in rank order.
func (s *Store) RunPostings(ctx context.Context, runID string) ([]*posting.Posting, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?;`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT posting_id, source_id, title, company, location, remote, contract_type, description, posted_at, source, url, tech_terms, result
FROM ranked_postings WHERE run_id = ? ORDER BY rank;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*posting.Posting
	for rows.Next() {
		var (
			p        posting.Posting
			remote   string
			postedAt string
			terms    string
			result   string
		)
		if err := rows.Scan(&p.ID, &p.SourceID, &p.Title, &p.Company, &p.Location, &remote, &p.ContractType,
			&p.Description, &postedAt, &p.Source, &p.URL, &terms, &result); err != nil {
			return nil, err
		}

		p.Remote = posting.RemoteType(remote)
		if postedAt != "" {
			if p.PostedAt, err = time.Parse(time.RFC3339, postedAt); err != nil {
				return nil, fmt.Errorf("posting %s: %w", p.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(terms), &p.TechTerms); err != nil {
			return nil, fmt.Errorf("posting %s tech terms: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(result), &p.Score); err != nil {
			return nil, fmt.Errorf("posting %s score: %w", p.ID, err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
