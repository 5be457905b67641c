package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()

	s, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func rankedFixture() []*posting.Posting {
	return []*posting.Posting{
		{
			ID: "a", SourceID: "17", Title: "Backend Engineer", Company: "Acme", Location: "Berlin",
			Remote: posting.RemoteFull, ContractType: "permanent", Description: "Go and Docker",
			PostedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Source: "remoteok",
			URL: "https://acme.example/1", TechTerms: []string{"Docker", "Go"},
			Score: &posting.ScoreResult{
				Score:       72.5,
				Components:  []string{"similarity"},
				Breakdown:   map[string]posting.Breakdown{"similarity": {Raw: 0.5, Normalized: 20, Max: 40}},
				Explanation: "SIMILARITY: Cosine similarity 0.50",
			},
		},
		{ID: "b", Title: "Data Engineer", Company: "Globex", Remote: posting.RemoteUnknown},
	}
}

func TestSaveRunAndRunPostings(t *testing.T) {
	t.Parallel()

	s := openStore(t, filepath.Join(t.TempDir(), "jobfinder.db"))
	ctx := context.Background()

	run := Run{ID: "run-1", Profile: "Jane Doe", Input: 10, Stats: json.RawMessage(`{"scored":2}`)}
	if err := s.SaveRun(ctx, run, rankedFixture()); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := s.RunPostings(ctx, "run-1")
	if err != nil {
		t.Fatalf("run postings: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected postings: %+v", got)
	}

	first := got[0]
	if first.Score == nil || first.Score.Score != 72.5 || first.Score.Breakdown["similarity"].Normalized != 20 {
		t.Fatalf("score result not restored: %+v", first.Score)
	}
	if !first.PostedAt.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected posted_at: %v", first.PostedAt)
	}
	if first.SourceID != "17" || got[1].SourceID != "" {
		t.Fatalf("unexpected source ids: %q, %q", first.SourceID, got[1].SourceID)
	}
	if len(first.TechTerms) != 2 || first.TechTerms[1] != "Go" || first.Remote != posting.RemoteFull {
		t.Fatalf("unexpected posting fields: %+v", first)
	}
	if got[1].Score != nil || !got[1].PostedAt.IsZero() {
		t.Fatalf("expected unscored, undated second posting: %+v", got[1])
	}

	if _, err := s.RunPostings(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	s := openStore(t, filepath.Join(t.TempDir(), "jobfinder.db"))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "middle"} {
		offset := map[string]time.Duration{"old": 0, "middle": time.Hour, "new": 2 * time.Hour}[id]
		run := Run{ID: id, StartedAt: base.Add(offset), Input: i}
		if err := s.SaveRun(ctx, run, rankedFixture()[:1]); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "new" || runs[1].ID != "middle" || runs[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", runs)
	}
	if runs[0].Ranked != 1 || runs[0].TopScore != 72.5 || string(runs[0].Stats) != "{}" {
		t.Fatalf("unexpected run summary: %+v", runs[0])
	}

	limited, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 run, got %d", len(limited))
	}

	if err := s.SaveRun(ctx, Run{ID: "new"}, nil); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}
}

func TestOpenIsExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobfinder.db")
	s := openStore(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if _, err := Open(ctx, path, nil); err == nil {
		t.Fatalf("expected second open to fail while locked")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := Open(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	defer again.Close()

	if err := again.SaveRun(context.Background(), Run{ID: "after-reopen"}, nil); err != nil {
		t.Fatalf("save after reopen: %v", err)
	}
}
