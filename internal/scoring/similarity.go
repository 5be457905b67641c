package scoring

import (
	"fmt"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/matcher"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

const sharedTermsLimit = 5

// SimilarityComponent awards points for textual closeness of the posting
// description to the profile narrative.
type SimilarityComponent struct {
	max     float64
	matcher TextMatcher
}

func NewSimilarity(max float64, m TextMatcher) *SimilarityComponent {
	return &SimilarityComponent{max: max, matcher: m}
}

func (c *SimilarityComponent) Name() string { return config.ComponentSimilarity }
func (c *SimilarityComponent) Max() float64 { return c.max }

func (c *SimilarityComponent) Calculate(p *posting.Posting, profile *config.Profile) ComponentScore {
	if strings.TrimSpace(p.Description) == "" {
		return ComponentScore{Max: c.max, Explanation: "No description to compare."}
	}
	if strings.TrimSpace(profile.Narrative) == "" {
		return ComponentScore{Max: c.max, Explanation: "Profile narrative is empty."}
	}

	sim := clamp(c.matcher.Similarity(p.Description, profile.Narrative), 0, 1)
	shared := sharedTerms(p.Description, profile.Narrative, sharedTermsLimit)

	explanation := fmt.Sprintf("Cosine similarity %.2f (%s).", sim, similarityLevel(sim))
	if len(shared) > 0 {
		explanation += " Shared terms: " + strings.Join(shared, ", ") + "."
	}

	return ComponentScore{
		Score:       sim * c.max,
		Raw:         sim,
		Max:         c.max,
		Explanation: explanation,
		Details:     map[string]any{"similarity": sim, "shared_terms": shared},
	}
}

func similarityLevel(sim float64) string {
	switch {
	case sim >= 0.7:
		return "high"
	case sim >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

// sharedTerms lists the strongest description terms that also occur in the
// narrative.
func sharedTerms(description, narrative string, limit int) []string {
	inNarrative := make(map[string]bool)
	for _, t := range matcher.TopTerms(narrative, 1000) {
		inNarrative[t.Term] = true
	}

	var out []string
	for _, t := range matcher.TopTerms(description, 1000) {
		if !inNarrative[t.Term] {
			continue
		}
		out = append(out, t.Term)
		if len(out) == limit {
			break
		}
	}
	return out
}
