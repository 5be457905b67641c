package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// TechStackComponent sums rule points for the extracted technology terms.
type TechStackComponent struct {
	max    float64
	scores map[string]float64
}

func NewTechStack(max float64, rules *config.ScoringRules) *TechStackComponent {
	return &TechStackComponent{max: max, scores: rules.TechScores()}
}

func (c *TechStackComponent) Name() string { return config.ComponentTechStack }
func (c *TechStackComponent) Max() float64 { return c.max }

func (c *TechStackComponent) Calculate(p *posting.Posting, profile *config.Profile) ComponentScore {
	var (
		raw  float64
		hits []hit
		pos  int
		neg  int
	)
	for _, term := range p.TechTerms {
		s, ok := c.scores[strings.ToLower(term)]
		if !ok {
			continue
		}
		raw += s
		hits = append(hits, hit{term: strings.ToLower(term), score: s})
		if s > 0 {
			pos++
		} else if s < 0 {
			neg++
		}
	}
	sortHits(hits)

	var explanation string
	if len(hits) == 0 {
		explanation = fmt.Sprintf("No scored technologies matched. Posting lists %d technologies.", len(p.TechTerms))
	} else {
		explanation = fmt.Sprintf("Matched %d/%d technologies (%d positive, %d negative). Top matches: %s.",
			len(hits), len(p.TechTerms), pos, neg, formatHits(hits, 3))
	}

	skills, covered := profileOverlap(p.TechTerms, profile)
	if len(skills) > 0 {
		explanation += fmt.Sprintf(" Profile skills covered: %d/%d", len(covered), len(skills))
		if len(covered) > 0 {
			explanation += " (" + strings.Join(covered, ", ") + ")"
		}
		explanation += "."
	}

	matched := make(map[string]float64, len(hits))
	for _, h := range hits {
		matched[h.term] = h.score
	}

	return ComponentScore{
		Score:       clamp(raw, 0, c.max),
		Raw:         raw,
		Max:         c.max,
		Explanation: explanation,
		Details: map[string]any{
			"matched":              matched,
			"total":                len(p.TechTerms),
			"total_profile_skills": len(skills),
			"profile_matches":      covered,
		},
	}
}

// profileOverlap returns the profile's skill names and the ones the posting
// mentions, both lowercase. Skills listed in several categories count once.
func profileOverlap(terms []string, profile *config.Profile) ([]string, []string) {
	if profile == nil {
		return nil, nil
	}

	inPosting := make(map[string]bool, len(terms))
	for _, t := range terms {
		inPosting[strings.ToLower(t)] = true
	}

	seen := make(map[string]bool)
	var skills, covered []string
	for _, name := range profile.SkillNames() {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		skills = append(skills, name)
		if inPosting[name] {
			covered = append(covered, name)
		}
	}
	sort.Strings(covered)
	return skills, covered
}
