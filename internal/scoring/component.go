package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// ComponentScore is the outcome of one component for one posting.
type ComponentScore struct {
	Score       float64
	Raw         float64
	Max         float64
	Explanation string
	Details     map[string]any
}

// Component scores one aspect of a posting. Implementations never modify the
// posting or the profile.
type Component interface {
	Name() string
	Max() float64
	Calculate(p *posting.Posting, profile *config.Profile) ComponentScore
}

// TextMatcher compares two texts and returns a similarity in [0,1].
type TextMatcher interface {
	Similarity(a, b string) float64
}

// normalize maps raw from [lo,hi] onto [0,max], clamping raw into range
// first. With a flat range every table score earns max and anything below it
// earns nothing.
func normalize(raw, lo, hi, max float64) float64 {
	if hi == lo {
		if raw >= hi {
			return max
		}
		return 0
	}
	raw = clamp(raw, lo, hi)
	return clamp((raw-lo)/(hi-lo)*max, 0, max)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

type hit struct {
	term  string
	score float64
}

// sortHits orders by absolute points, strongest first, then by name.
func sortHits(hits []hit) {
	sort.Slice(hits, func(i, j int) bool {
		ai, aj := math.Abs(hits[i].score), math.Abs(hits[j].score)
		if ai != aj {
			return ai > aj
		}
		return hits[i].term < hits[j].term
	})
}

func formatHits(hits []hit, limit int) string {
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("%s (%+.0f)", h.term, h.score))
	}
	return strings.Join(parts, ", ")
}

func sign(x float64, pos, neg, zero string) string {
	switch {
	case x > 0:
		return pos
	case x < 0:
		return neg
	default:
		return zero
	}
}
