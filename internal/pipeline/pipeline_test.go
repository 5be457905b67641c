package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/filtering"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func loadConfig(t *testing.T) Config {
	t.Helper()

	profile, err := config.LoadProfile("../../configs/profile.example.yaml")
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	profile.Preferences.MinScore = 0

	rules, err := config.LoadRules("../../configs/scoring_rules.yaml")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	return Config{
		Profile: profile,
		Rules:   rules,
		Options: Options{Workers: 2},
		RunID:   "test-run",
		Now:     func() time.Time { return now },
	}
}

func batch() []*posting.Posting {
	mk := func(title, company, url, location string, remote posting.RemoteType, age int, description string) *posting.Posting {
		p := &posting.Posting{
			Title:       title,
			Company:     company,
			URL:         url,
			Location:    location,
			Remote:      remote,
			Description: description,
			PostedAt:    now.Add(-time.Duration(age) * 24 * time.Hour),
		}
		p.EnsureID()
		return p
	}

	return []*posting.Posting{
		mk("Backend Engineer", "Acme", "https://acme.example/1", "Berlin", posting.RemoteFull, 2,
			"Remote-first team building Python and Go services on Docker, Kubernetes and PostgreSQL with REST and gRPC APIs on AWS."),
		mk("Backend Engineer", "Acme", "https://board.example/acme", "Berlin", posting.RemoteFull, 3,
			"Remote-first team building Python and Go services on Docker, Kubernetes and PostgreSQL with REST and gRPC APIs on AWS."),
		mk("SAP Consultant", "Initech", "https://initech.example/sap", "Munich", posting.RemoteOnsite, 1,
			"SAP ABAP consulting for mainframe customers, onsite only in Munich with frequent travel."),
		mk("Data Engineer", "Globex", "https://globex.example/data", "Hamburg", posting.RemoteUnknown, 5,
			"Hybrid with 2 days in the office. Kafka pipelines, Python, Terraform and Redis for analytics workloads."),
		mk("Frontend Developer", "Umbrella", "https://umbrella.example/fe", "Remote", "", 40,
			"React and TypeScript frontend work for an old web shop, 100% remote."),
	}
}

func TestRunRanksBatch(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t)
	cfg.Criteria = filtering.Criteria{MaxAgeDays: 30}

	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	input := batch()
	res, err := p.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := Stats{Input: 5, Classified: 2, Filtered: 4, Unique: 3, Scored: 3, Ranked: 3, CorpusMode: true}
	if res.Stats != want {
		t.Fatalf("unexpected stats:\nwant %+v\ngot  %+v", want, res.Stats)
	}

	for i, r := range res.Ranked {
		if !r.Scored() {
			t.Fatalf("posting %d is not scored", i)
		}
		if r.Score.Score < 0 || r.Score.Score > 100 {
			t.Fatalf("score out of bounds: %v", r.Score.Score)
		}
		if math.Abs(r.Score.Score-r.Score.Sum()) > 1e-6 {
			t.Fatalf("score %v does not match breakdown sum %v", r.Score.Score, r.Score.Sum())
		}
		if i > 0 && res.Ranked[i-1].ScoreValue() < r.ScoreValue() {
			t.Fatalf("ranking not sorted at %d", i)
		}
	}

	if res.Ranked[0].URL != "https://acme.example/1" {
		t.Fatalf("expected the Acme posting first, got %s at %s", res.Ranked[0].Title, res.Ranked[0].Company)
	}
	if len(res.Ranked[0].TechTerms) == 0 {
		t.Fatalf("expected tech terms on ranked postings")
	}
	if last := res.Ranked[len(res.Ranked)-1]; last.Company != "Initech" {
		t.Fatalf("expected the SAP posting last, got %s", last.Company)
	}

	for _, in := range input {
		if in.Scored() || len(in.TechTerms) > 0 {
			t.Fatalf("input posting %s was modified", in.ID)
		}
	}
	if input[3].Remote != posting.RemoteUnknown {
		t.Fatalf("input remote class was modified")
	}
}

func TestRunConcurrentCalls(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t)
	cfg.Criteria = filtering.Criteria{MaxAgeDays: 30}

	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	results := make([]*Result, 4)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range results {
		g.Go(func() error {
			res, err := p.Run(ctx, batch())
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent run: %v", err)
	}

	for i, res := range results {
		if res.Stats != results[0].Stats {
			t.Fatalf("run %d stats differ:\nwant %+v\ngot  %+v", i, results[0].Stats, res.Stats)
		}
		if res.Ranked[0].URL != "https://acme.example/1" {
			t.Fatalf("run %d ranked %s first", i, res.Ranked[0].URL)
		}
	}
}

func TestRunCuts(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t)
	cfg.Options.TopN = 1

	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	res, err := p.Run(context.Background(), batch())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Ranked) != 1 || res.Stats.Ranked != 1 {
		t.Fatalf("expected top-1, got %d", len(res.Ranked))
	}

	cfg = loadConfig(t)
	cfg.Profile.Preferences.MinScore = 100

	core, observed := observer.New(zapcore.WarnLevel)
	p, err = New(cfg, zap.New(core))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	res, err = p.Run(context.Background(), batch())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Ranked) != 0 || res.Stats.BelowMinScore != res.Stats.Scored {
		t.Fatalf("expected every posting below min score, got %+v", res.Stats)
	}
	if observed.FilterMessage("no posting reached the minimum score").Len() != 1 {
		t.Fatalf("expected a min score warning")
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	if _, err := p.Run(context.Background(), nil); !errors.Is(err, ErrNoPostings) {
		t.Fatalf("expected ErrNoPostings, got %v", err)
	}

	cfg.Criteria = filtering.Criteria{RoleKeywords: []string{"astronaut"}}
	p, err = New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Run(context.Background(), batch()); !errors.Is(err, ErrNothingScored) {
		t.Fatalf("expected ErrNothingScored, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, err = New(loadConfig(t), nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := p.Run(ctx, batch()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunSmallBatchUsesPairwiseMode(t *testing.T) {
	t.Parallel()

	p, err := New(loadConfig(t), nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	res, err := p.Run(context.Background(), batch()[:1])
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Stats.CorpusMode {
		t.Fatalf("expected pairwise mode for a single posting")
	}
	if res.Ranked[0].Score.Breakdown[config.ComponentSimilarity].Normalized <= 0 {
		t.Fatalf("expected a positive pairwise similarity score")
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	cfg := loadConfig(t)
	cfg.Profile = nil
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error without profile")
	}

	cfg = loadConfig(t)
	cfg.Options.TopN = -1
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for negative top-n")
	}

	cfg = loadConfig(t)
	cfg.Dedup.Threshold = 2
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for dedup threshold")
	}
}
