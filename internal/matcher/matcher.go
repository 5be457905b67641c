package matcher

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/DmtiriyK/Job-finder-V2/internal/logger"

	"go.uber.org/zap"
)

// ErrDegenerateCorpus is returned by Fit when the corpus is too small or
// every term was pruned. The matcher stays in pairwise mode.
var ErrDegenerateCorpus = errors.New("degenerate corpus")

const minCorpusSize = 3

// Term is a weighted term of a single document.
type Term struct {
	Term   string
	Weight float64
}

// Ranked is a corpus document index with its similarity to a query.
type Ranked struct {
	Index int
	Score float64
}

// Matcher computes TF-IDF cosine similarity. Without a fitted corpus every
// comparison fits a vectorizer on the two texts being compared.
type Matcher struct {
	mu      sync.RWMutex
	corpus  *vectorizer
	vectors []vector
	logger  *zap.Logger
}

func New(log *zap.Logger) *Matcher {
	return &Matcher{logger: logger.WithFields(log, zap.String("component", "matcher"))}
}

// Fit computes document frequencies over the corpus. On failure any previous
// fit is discarded.
func (m *Matcher) Fit(corpus []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.corpus, m.vectors = nil, nil

	if len(corpus) < minCorpusSize {
		m.logger.Warn("corpus too small, using pairwise mode", zap.Int("documents", len(corpus)))
		return ErrDegenerateCorpus
	}

	v := fitVectorizer(corpus, CorpusOptions())
	if v.size() == 0 {
		m.logger.Warn("empty vocabulary after pruning, using pairwise mode", zap.Int("documents", len(corpus)))
		return ErrDegenerateCorpus
	}

	vectors := make([]vector, len(corpus))
	for i, doc := range corpus {
		vectors[i] = v.transform(doc)
	}
	m.corpus, m.vectors = v, vectors

	m.logger.Info("fitted corpus", zap.Int("documents", len(corpus)), zap.Int("features", v.size()))
	return nil
}

// Fitted reports whether the matcher runs in corpus mode.
func (m *Matcher) Fitted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.corpus != nil
}

// Reset drops the fitted corpus.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpus, m.vectors = nil, nil
}

// Similarity returns the cosine similarity of two texts in [0,1]. Empty
// text yields 0.
func (m *Matcher) Similarity(a, b string) float64 {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0
	}

	m.mu.RLock()
	v := m.corpus
	m.mu.RUnlock()

	if v == nil {
		return pairwise(a, b)
	}
	return cosine(v.transform(a), v.transform(b))
}

func pairwise(a, b string) float64 {
	v := fitVectorizer([]string{a, b}, PairwiseOptions())
	if v.size() == 0 {
		return 0
	}
	return cosine(v.transform(a), v.transform(b))
}

// SimilarityToCorpus scores text against each corpus document. A non-nil
// corpus is fitted first; a degenerate one is compared pairwise. A nil
// corpus reuses the fitted one.
func (m *Matcher) SimilarityToCorpus(text string, corpus []string) []float64 {
	if corpus != nil {
		if err := m.Fit(corpus); err != nil {
			out := make([]float64, len(corpus))
			for i, doc := range corpus {
				out[i] = m.Similarity(text, doc)
			}
			return out
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]float64, len(m.vectors))
	if m.corpus == nil || strings.TrimSpace(text) == "" {
		return out
	}
	q := m.corpus.transform(text)
	for i, vec := range m.vectors {
		out[i] = cosine(q, vec)
	}
	return out
}

// MostSimilar returns up to k corpus documents ordered by similarity.
// Equal scores keep corpus order.
func (m *Matcher) MostSimilar(text string, corpus []string, k int) []Ranked {
	scores := m.SimilarityToCorpus(text, corpus)

	ranked := make([]Ranked, len(scores))
	for i, s := range scores {
		ranked[i] = Ranked{Index: i, Score: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if k >= 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// TopTerms returns the n highest weighted terms of text on its own.
func TopTerms(text string, n int) []Term {
	if strings.TrimSpace(text) == "" || n <= 0 {
		return nil
	}

	v := fitVectorizer([]string{text}, PairwiseOptions())
	vec := v.transform(text)

	out := make([]Term, 0, len(vec.idx))
	for k, i := range vec.idx {
		out = append(out, Term{Term: v.terms[i], Weight: vec.val[k]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Term < out[j].Term
	})

	if n < len(out) {
		out = out[:n]
	}
	return out
}
