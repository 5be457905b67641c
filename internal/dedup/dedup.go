package dedup

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

const (
	DefaultThreshold            = 0.85
	DefaultDescriptionThreshold = 0.90

	titleWeight   = 0.7
	companyWeight = 0.3
)

// Options control near-duplicate detection.
type Options struct {
	Threshold            float64 `mapstructure:"threshold"`
	CheckDescription     bool    `mapstructure:"check-description"`
	DescriptionThreshold float64 `mapstructure:"description-threshold"`
}

// DefaultOptions returns the title/company threshold of 0.85 with the
// description check off.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, DescriptionThreshold: DefaultDescriptionThreshold}
}

// Validate fills zero thresholds with defaults and rejects values outside (0,1].
func (o *Options) Validate() error {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.DescriptionThreshold == 0 {
		o.DescriptionThreshold = DefaultDescriptionThreshold
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("dedup threshold must be in (0,1], got %g", o.Threshold)
	}
	if o.DescriptionThreshold < 0 || o.DescriptionThreshold > 1 {
		return fmt.Errorf("dedup description threshold must be in (0,1], got %g", o.DescriptionThreshold)
	}
	return nil
}

// Pair is a near-duplicate pair found by FindDuplicates.
type Pair struct {
	A, B       *posting.Posting
	Similarity float64
}

// Stats summarizes duplicates in a batch without removing anything.
type Stats struct {
	Total           int     `json:"total"`
	ExactDuplicates int     `json:"exact_duplicates"`
	SimilarPairs    int     `json:"similar_pairs"`
	EstimatedUnique int     `json:"estimated_unique"`
	Threshold       float64 `json:"threshold"`
}

type Deduplicator struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, log *zap.Logger) (*Deduplicator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Deduplicator{opts: opts, logger: logger.WithFields(log)}, nil
}

// RemoveDuplicates returns the unique postings with the default options.
func RemoveDuplicates(postings []*posting.Posting, threshold float64) []*posting.Posting {
	opts := DefaultOptions()
	opts.Threshold = threshold
	d, err := New(opts, nil)
	if err != nil {
		d, _ = New(DefaultOptions(), nil)
	}
	return d.RemoveDuplicates(postings)
}

type signature struct {
	title   string
	company string
}

func signatureOf(p *posting.Posting) signature {
	return signature{
		title:   strings.ToLower(strings.TrimSpace(p.Title)),
		company: strings.ToLower(strings.TrimSpace(p.Company)),
	}
}

// Similarity returns the weighted title/company similarity of two postings.
func Similarity(a, b *posting.Posting) float64 {
	return signatureSimilarity(signatureOf(a), signatureOf(b))
}

func signatureSimilarity(a, b signature) float64 {
	return titleWeight*Ratio(a.title, b.title) + companyWeight*Ratio(a.company, b.company)
}

// bucketKey is the first token of the company, or of the title when the
// company is empty.
func bucketKey(s signature) string {
	isSep := func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
	if fields := strings.FieldsFunc(s.company, isSep); len(fields) > 0 {
		return "c:" + fields[0]
	}
	if fields := strings.FieldsFunc(s.title, isSep); len(fields) > 0 {
		return "t:" + fields[0]
	}
	return ""
}

// prefer reports whether candidate should replace kept: only when both are
// scored and candidate scores higher. Otherwise the earlier posting stays.
func prefer(candidate, kept *posting.Posting) bool {
	return candidate.Scored() && kept.Scored() && candidate.Score.Score > kept.Score.Score
}

func (d *Deduplicator) isDuplicate(a, b *posting.Posting, sa, sb signature) (float64, bool) {
	sim := signatureSimilarity(sa, sb)
	if sim < d.opts.Threshold {
		return sim, false
	}
	if d.opts.CheckDescription && Ratio(a.Description, b.Description) < d.opts.DescriptionThreshold {
		return sim, false
	}
	return sim, true
}

type entry struct {
	p   *posting.Posting
	sig signature
}

// RemoveDuplicates drops exact duplicates by content key, then near duplicates by
// title and company similarity. The input slice is not modified and the
// survivors keep their relative order.
func (d *Deduplicator) RemoveDuplicates(postings []*posting.Posting) []*posting.Posting {
	if len(postings) == 0 {
		return nil
	}

	exact := d.removeExact(postings)
	unique := d.removeSimilar(exact)

	d.logger.Info("deduplication complete",
		zap.Int("initial", len(postings)),
		zap.Int("exact_dropped", len(postings)-len(exact)),
		zap.Int("similar_dropped", len(exact)-len(unique)),
		zap.Int("left", len(unique)),
	)
	return unique
}

func (d *Deduplicator) removeExact(postings []*posting.Posting) []*posting.Posting {
	seen := make(map[string]int, len(postings))
	out := make([]*posting.Posting, 0, len(postings))
	for _, p := range postings {
		if p == nil {
			continue
		}
		id := p.ContentKey()
		if i, ok := seen[id]; ok {
			if prefer(p, out[i]) {
				out[i] = p
			}
			continue
		}
		seen[id] = len(out)
		out = append(out, p)
	}
	return out
}

func (d *Deduplicator) removeSimilar(postings []*posting.Posting) []*posting.Posting {
	kept := make([]*entry, 0, len(postings))
	buckets := make(map[string][]int)

	for _, p := range postings {
		e := &entry{p: p, sig: signatureOf(p)}
		key := bucketKey(e.sig)

		var matches []int
		for _, i := range buckets[key] {
			k := kept[i]
			if k == nil {
				continue
			}
			if sim, dup := d.isDuplicate(p, k.p, e.sig, k.sig); dup {
				d.logger.Debug("duplicate found",
					logger.Posting(p.ID),
					zap.String("duplicate_of", k.p.ID),
					zap.String("title", p.Title),
					zap.String("company", p.Company),
					zap.Float64("similarity", sim),
				)
				matches = append(matches, i)
			}
		}

		if len(matches) == 0 {
			buckets[key] = append(buckets[key], len(kept))
			kept = append(kept, e)
			continue
		}

		wins := true
		for _, i := range matches {
			if !prefer(p, kept[i].p) {
				wins = false
				break
			}
		}
		if !wins {
			continue
		}

		kept[matches[0]] = e
		for _, i := range matches[1:] {
			kept[i] = nil
		}
	}

	out := make([]*posting.Posting, 0, len(kept))
	for _, e := range kept {
		if e != nil {
			out = append(out, e.p)
		}
	}
	return out
}

// FindDuplicates reports every near-duplicate pair without removing any.
func (d *Deduplicator) FindDuplicates(postings []*posting.Posting) []Pair {
	sigs := make([]signature, len(postings))
	for i, p := range postings {
		sigs[i] = signatureOf(p)
	}

	var pairs []Pair
	for i := range postings {
		for j := i + 1; j < len(postings); j++ {
			if sim, dup := d.isDuplicate(postings[i], postings[j], sigs[i], sigs[j]); dup {
				pairs = append(pairs, Pair{A: postings[i], B: postings[j], Similarity: sim})
			}
		}
	}
	return pairs
}

// Stats counts exact and near duplicates in postings.
func (d *Deduplicator) Stats(postings []*posting.Posting) Stats {
	seen := make(map[string]struct{}, len(postings))
	exact := 0
	for _, p := range postings {
		key := p.ContentKey()
		if _, ok := seen[key]; ok {
			exact++
			continue
		}
		seen[key] = struct{}{}
	}

	similar := len(d.FindDuplicates(postings))
	unique := len(postings) - exact - similar
	if unique < 0 {
		unique = 0
	}

	return Stats{
		Total:           len(postings),
		ExactDuplicates: exact,
		SimilarPairs:    similar,
		EstimatedUnique: unique,
		Threshold:       d.opts.Threshold,
	}
}
