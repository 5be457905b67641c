package matcher

import (
	"math"
	"sort"
)

// Options control vocabulary pruning when fitting a vectorizer.
type Options struct {
	// MaxFeatures keeps the most frequent terms across the corpus. Zero keeps all.
	MaxFeatures int
	// MinDF drops terms found in fewer documents.
	MinDF int
	// MaxDF drops terms found in more than this share of documents.
	MaxDF float64
}

// CorpusOptions suit fitting over a batch of postings.
func CorpusOptions() Options {
	return Options{MaxFeatures: 1000, MinDF: 1, MaxDF: 0.9}
}

// PairwiseOptions suit fitting on one or two documents, where document
// frequency pruning would drop every shared term.
func PairwiseOptions() Options {
	return Options{MaxFeatures: 1000, MinDF: 1, MaxDF: 1.0}
}

type vectorizer struct {
	vocab map[string]int
	terms []string
	idf   []float64
}

// vector is a sparse L2-normalized vector with indices in ascending order.
type vector struct {
	idx []int
	val []float64
}

func (v vector) empty() bool { return len(v.idx) == 0 }

func fitVectorizer(docs []string, opts Options) *vectorizer {
	n := len(docs)
	df := make(map[string]int)
	tf := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, t := range terms(doc) {
			tf[t]++
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	maxCount := opts.MaxDF * float64(n)
	kept := make([]string, 0, len(df))
	for t, d := range df {
		if d < opts.MinDF || float64(d) > maxCount {
			continue
		}
		kept = append(kept, t)
	}

	if opts.MaxFeatures > 0 && len(kept) > opts.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if tf[kept[i]] != tf[kept[j]] {
				return tf[kept[i]] > tf[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:opts.MaxFeatures]
	}
	sort.Strings(kept)

	v := &vectorizer{
		vocab: make(map[string]int, len(kept)),
		terms: kept,
		idf:   make([]float64, len(kept)),
	}
	for i, t := range kept {
		v.vocab[t] = i
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
	return v
}

func (v *vectorizer) size() int { return len(v.terms) }

func (v *vectorizer) transform(text string) vector {
	counts := make(map[int]float64)
	for _, t := range terms(text) {
		if i, ok := v.vocab[t]; ok {
			counts[i]++
		}
	}

	out := vector{idx: make([]int, 0, len(counts)), val: make([]float64, 0, len(counts))}
	for i := range counts {
		out.idx = append(out.idx, i)
	}
	sort.Ints(out.idx)

	var norm float64
	for _, i := range out.idx {
		w := counts[i] * v.idf[i]
		out.val = append(out.val, w)
		norm += w * w
	}
	if norm == 0 {
		return vector{}
	}
	norm = math.Sqrt(norm)
	for k := range out.val {
		out.val[k] /= norm
	}
	return out
}

// cosine of two normalized vectors, clamped to [0,1].
func cosine(a, b vector) float64 {
	var dot float64
	i, j := 0, 0
	for i < len(a.idx) && j < len(b.idx) {
		switch {
		case a.idx[i] == b.idx[j]:
			dot += a.val[i] * b.val[j]
			i++
			j++
		case a.idx[i] < b.idx[j]:
			i++
		default:
			j++
		}
	}
	return math.Max(0, math.Min(1, dot))
}
