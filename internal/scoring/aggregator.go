package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"

	"go.uber.org/zap"
)

const maxTotal = 100

// Aggregator runs every component against a posting and sums their points.
// It is safe for concurrent use.
type Aggregator struct {
	profile    *config.Profile
	components []Component
	logger     *zap.Logger
}

// New builds the five standard components from the rules, in evaluation
// order: similarity, tech_stack, remote, keywords, contract.
func New(profile *config.Profile, rules *config.ScoringRules, m TextMatcher, log *zap.Logger) (*Aggregator, error) {
	if err := rules.Compile(); err != nil {
		return nil, fmt.Errorf("scoring rules: %w", err)
	}

	components := []Component{
		NewSimilarity(rules.Weight(config.ComponentSimilarity), m),
		NewTechStack(rules.Weight(config.ComponentTechStack), rules),
		NewRemote(rules.Weight(config.ComponentRemote), rules),
		NewKeywords(rules.Weight(config.ComponentKeywords), rules),
		NewContract(rules.Weight(config.ComponentContract), rules),
	}
	return NewWithComponents(profile, components, log), nil
}

// NewWithComponents builds an aggregator over an explicit component list.
func NewWithComponents(profile *config.Profile, components []Component, log *zap.Logger) *Aggregator {
	return &Aggregator{
		profile:    profile,
		components: components,
		logger:     logger.WithFields(log, zap.String("component", "aggregator")),
	}
}

func (a *Aggregator) Components() []Component { return a.components }

// Score evaluates the posting. A component that panics or reports an out of
// range value contributes zero points and a warning.
func (a *Aggregator) Score(p *posting.Posting) *posting.ScoreResult {
	result := &posting.ScoreResult{
		Breakdown:  make(map[string]posting.Breakdown, len(a.components)),
		Components: make([]string, 0, len(a.components)),
	}

	lines := make([]string, 0, len(a.components))
	for _, c := range a.components {
		cs := a.calculate(c, p)

		result.Components = append(result.Components, c.Name())
		result.Breakdown[c.Name()] = posting.Breakdown{Raw: cs.Raw, Normalized: cs.Score, Max: cs.Max}
		result.Score += cs.Score
		lines = append(lines, strings.ToUpper(c.Name())+": "+cs.Explanation)
	}

	result.Score = math.Min(result.Score, maxTotal)
	result.Explanation = strings.Join(lines, "\n")
	return result
}

func (a *Aggregator) calculate(c Component, p *posting.Posting) (cs ComponentScore) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("component failed, scoring zero",
				zap.String("name", c.Name()),
				zap.String("posting_id", p.ID),
				zap.Any("panic", r),
			)
			cs = ComponentScore{Max: c.Max(), Explanation: fmt.Sprintf("Error: %v", r)}
		}
	}()

	cs = c.Calculate(p, a.profile)
	cs.Max = c.Max()

	if math.IsNaN(cs.Score) || math.IsInf(cs.Score, 0) {
		a.logger.Warn("component returned an invalid score, scoring zero",
			zap.String("name", c.Name()),
			zap.String("posting_id", p.ID),
		)
		cs.Score = 0
	}
	cs.Score = clamp(cs.Score, 0, cs.Max)
	return cs
}
