package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/dedup"
	"github.com/DmtiriyK/Job-finder-V2/internal/extractor"
	"github.com/DmtiriyK/Job-finder-V2/internal/filtering"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/matcher"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
	"github.com/DmtiriyK/Job-finder-V2/internal/scoring"
	"github.com/DmtiriyK/Job-finder-V2/internal/util"
)

var (
	// ErrNoPostings is returned when the run receives no postings at all.
	ErrNoPostings = errors.New("no postings to rank")
	// ErrNothingScored is returned when filtering and deduplication leave
	// nothing to score.
	ErrNothingScored = errors.New("no posting could be scored")
)

// Options are the tunables of a run that do not come from the profile or rules.
type Options struct {
	Workers int `mapstructure:"workers"`
	TopN    int `mapstructure:"top-n"`
}

// Config carries everything a run needs. Profile, Rules and Dictionary are
// shared read-only by all workers.
type Config struct {
	Profile    *config.Profile
	Rules      *config.ScoringRules
	Dictionary *config.Dictionary

	Criteria filtering.Criteria
	Dedup    dedup.Options
	Options  Options

	// Filters overrides the default filter steps when set.
	Filters []filtering.Filter
	RunID   string
	Now     func() time.Time
}

// Stats counts postings after each stage of a run.
type Stats struct {
	Input         int  `json:"input"`
	Classified    int  `json:"classified"`
	Filtered      int  `json:"filtered"`
	Unique        int  `json:"unique"`
	Scored        int  `json:"scored"`
	BelowMinScore int  `json:"below_min_score"`
	Ranked        int  `json:"ranked"`
	CorpusMode    bool `json:"corpus_mode"`
}

// Result is a ranked run. Ranked postings are copies of the input postings
// carrying tech terms and a score.
type Result struct {
	RunID  string
	Ranked []*posting.Posting
	Stats  Stats
}

// Pipeline ranks batches of postings. Run may be called concurrently; the
// filter stage is serialized because filter steps keep state between
// Validate and Apply.
type Pipeline struct {
	cfg       Config
	filterMu  sync.Mutex
	detector  *scoring.RemoteDetector
	extractor *extractor.Extractor
	dedup     *dedup.Deduplicator
	logger    *zap.Logger
}

// New validates the configuration and prepares the stages that do not depend
// on the batch.
func New(cfg Config, log *zap.Logger) (*Pipeline, error) {
	if cfg.Profile == nil {
		return nil, errors.New("pipeline: profile is required")
	}
	if cfg.Rules == nil {
		return nil, errors.New("pipeline: scoring rules are required")
	}
	if err := cfg.Rules.Compile(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if cfg.Dictionary == nil {
		dict, err := config.DefaultDictionary()
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		cfg.Dictionary = dict
	}
	if cfg.Options.Workers <= 0 {
		cfg.Options.Workers = runtime.NumCPU()
	}
	if cfg.Options.TopN < 0 {
		return nil, fmt.Errorf("pipeline: top-n must not be negative, got %d", cfg.Options.TopN)
	}
	if cfg.Filters == nil {
		cfg.Filters = filtering.Default()
	}

	log = logger.WithFields(log, logger.RunFields(cfg.RunID, "")...)

	d, err := dedup.New(cfg.Dedup, log)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	return &Pipeline{
		cfg:       cfg,
		detector:  scoring.NewRemoteDetector(cfg.Rules, log),
		extractor: extractor.New(cfg.Dictionary, log),
		dedup:     d,
		logger:    log,
	}, nil
}

// Run ranks the postings: remote detection, filter, dedup, extraction,
// matcher fit, scoring, then sorting and the min-score and top-N cuts.
func (p *Pipeline) Run(ctx context.Context, postings []*posting.Posting) (*Result, error) {
	res := &Result{RunID: p.cfg.RunID}
	res.Stats.Input = len(postings)
	if len(postings) == 0 {
		return nil, ErrNoPostings
	}

	items := clone(postings)
	res.Stats.Classified = p.detector.Classify(items)

	items, err := p.filter(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	res.Stats.Filtered = len(items)

	items = p.dedup.RemoveDuplicates(items)
	res.Stats.Unique = len(items)
	if len(items) == 0 {
		p.logger.Warn("nothing left to score", zap.Int("input", res.Stats.Input), zap.Int("filtered", res.Stats.Filtered))
		return nil, ErrNothingScored
	}

	if err := p.extract(ctx, items); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	m := matcher.New(p.logger)
	res.Stats.CorpusMode = fitCorpus(m, items) == nil

	agg, err := scoring.New(p.cfg.Profile, p.cfg.Rules, m, p.logger)
	if err != nil {
		return nil, err
	}
	if err := p.score(ctx, agg, items); err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	ranked := items[:0:0]
	for _, it := range items {
		if it.Scored() {
			ranked = append(ranked, it)
		}
	}
	res.Stats.Scored = len(ranked)
	if len(ranked) == 0 {
		return nil, ErrNothingScored
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ScoreValue() > ranked[j].ScoreValue()
	})

	ranked = p.cut(ranked, &res.Stats)
	res.Ranked = ranked
	res.Stats.Ranked = len(ranked)

	p.logRanked(ranked)
	p.logger.Info("ranking complete",
		zap.Int("input", res.Stats.Input),
		zap.Int("classified", res.Stats.Classified),
		zap.Int("filtered", res.Stats.Filtered),
		zap.Int("unique", res.Stats.Unique),
		zap.Int("scored", res.Stats.Scored),
		zap.Int("below_min_score", res.Stats.BelowMinScore),
		zap.Int("ranked", res.Stats.Ranked),
		zap.Bool("corpus_mode", res.Stats.CorpusMode),
	)
	return res, nil
}

func (p *Pipeline) filter(ctx context.Context, items []*posting.Posting) ([]*posting.Posting, error) {
	p.filterMu.Lock()
	defer p.filterMu.Unlock()

	criteria := p.cfg.Criteria
	return filtering.Run(ctx, &criteria, filtering.Deps{
		Logger: logger.WithFields(p.logger, zap.String(logger.FieldStage, "filter")),
		Now:    p.cfg.Now,
	}, p.cfg.Filters, items)
}

func clone(postings []*posting.Posting) []*posting.Posting {
	out := make([]*posting.Posting, 0, len(postings))
	for _, p := range postings {
		if p == nil {
			continue
		}
		cp := *p
		cp.TechTerms = append([]string(nil), p.TechTerms...)
		cp.Score = nil
		cp.EnsureID()
		out = append(out, &cp)
	}
	return out
}

func (p *Pipeline) extract(ctx context.Context, items []*posting.Posting) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Options.Workers)

	for _, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.extractor.Annotate(it)
			return nil
		})
	}
	return g.Wait()
}

// fitCorpus fits the matcher on the batch descriptions. A degenerate corpus
// leaves the matcher in pairwise mode.
func fitCorpus(m *matcher.Matcher, items []*posting.Posting) error {
	corpus := make([]string, len(items))
	for i, it := range items {
		corpus[i] = it.Description
	}
	return m.Fit(corpus)
}

func (p *Pipeline) score(ctx context.Context, agg *scoring.Aggregator, items []*posting.Posting) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Options.Workers)

	results := make([]*posting.ScoreResult, len(items))
	for i, it := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = agg.Score(it)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, it := range items {
		it.Score = results[i]
	}
	return nil
}

func (p *Pipeline) cut(ranked []*posting.Posting, stats *Stats) []*posting.Posting {
	minScore := p.cfg.Profile.Preferences.MinScore
	if minScore > 0 {
		kept := ranked[:0:0]
		for _, it := range ranked {
			if it.ScoreValue() >= minScore {
				kept = append(kept, it)
			}
		}
		stats.BelowMinScore = len(ranked) - len(kept)
		ranked = kept
		if len(ranked) == 0 {
			p.logger.Warn("no posting reached the minimum score", zap.Float64("min_score", minScore))
		}
	}

	if n := p.cfg.Options.TopN; n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (p *Pipeline) logRanked(ranked []*posting.Posting) {
	if !p.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	for i, it := range ranked {
		p.logger.Debug("ranked posting",
			zap.Int("rank", i+1),
			logger.Posting(it.ID),
			zap.String("title", util.TruncateForLog(it.Title, 60)),
			zap.String("company", it.Company),
			zap.Float64("score", it.ScoreValue()),
		)
	}
}
