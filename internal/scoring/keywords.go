package scoring

import (
	"sort"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// KeywordsComponent sums points for keywords found in the title or
// description.
type KeywordsComponent struct {
	max      float64
	scores   map[string]float64
	keywords []string
}

func NewKeywords(max float64, rules *config.ScoringRules) *KeywordsComponent {
	scores := rules.KeywordScores()
	keywords := make([]string, 0, len(scores))
	for k := range scores {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	return &KeywordsComponent{max: max, scores: scores, keywords: keywords}
}

func (c *KeywordsComponent) Name() string { return config.ComponentKeywords }
func (c *KeywordsComponent) Max() float64 { return c.max }

func (c *KeywordsComponent) Calculate(p *posting.Posting, _ *config.Profile) ComponentScore {
	text := strings.ToLower(p.Title + " " + p.Description)

	var (
		raw       float64
		positives []hit
		negatives []hit
	)
	matched := make(map[string]float64)
	for _, k := range c.keywords {
		if !strings.Contains(text, k) {
			continue
		}
		s := c.scores[k]
		raw += s
		matched[k] = s
		if s >= 0 {
			positives = append(positives, hit{term: k, score: s})
		} else {
			negatives = append(negatives, hit{term: k, score: s})
		}
	}
	sortHits(positives)
	sortHits(negatives)

	explanation := "No significant keywords matched."
	if len(matched) > 0 {
		var parts []string
		if len(positives) > 0 {
			parts = append(parts, "Positive: "+formatHits(positives, 3))
		}
		if len(negatives) > 0 {
			parts = append(parts, "Negative: "+formatHits(negatives, 2))
		}
		explanation = strings.Join(parts, "; ") + "."
	}

	return ComponentScore{
		Score:       clamp(raw, 0, c.max),
		Raw:         raw,
		Max:         c.max,
		Explanation: explanation,
		Details:     map[string]any{"matched": matched},
	}
}
