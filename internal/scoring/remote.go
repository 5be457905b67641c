package scoring

import (
	"fmt"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// RemoteComponent rates how well the posting's remote policy fits a profile
// that wants remote work.
type RemoteComponent struct {
	max      float64
	rules    *config.ScoringRules
	detector *RemoteDetector
	lo, hi   float64
}

func NewRemote(max float64, rules *config.ScoringRules) *RemoteComponent {
	lo, hi := rules.RemoteRange()
	return &RemoteComponent{
		max:      max,
		rules:    rules,
		detector: NewRemoteDetector(rules, nil),
		lo:       lo,
		hi:       hi,
	}
}

func (c *RemoteComponent) Name() string { return config.ComponentRemote }
func (c *RemoteComponent) Max() float64 { return c.max }

func (c *RemoteComponent) Calculate(p *posting.Posting, profile *config.Profile) ComponentScore {
	if !profile.IsRemotePreferred() {
		return ComponentScore{
			Score:       normalize(0, c.lo, c.hi, c.max),
			Max:         c.max,
			Explanation: "Remote work not specified as preference in profile.",
			Details:     map[string]any{"remote_preferred": false},
		}
	}

	class := p.Remote
	if !class.Known() {
		class, _ = c.detector.Detect(p)
	}

	var (
		raw     float64
		matched = "unknown (neutral)"
	)
	if s, ok := c.rules.RemoteScore(class); ok && class.Known() {
		raw = s
		matched = string(class)
	}

	return ComponentScore{
		Score: normalize(raw, c.lo, c.hi, c.max),
		Raw:   raw,
		Max:   c.max,
		Explanation: fmt.Sprintf("Remote type: %s (%s, %+.0f raw score).",
			matched, sign(raw, "positive", "negative", "neutral"), raw),
		Details: map[string]any{"matched_type": matched, "remote_preferred": true},
	}
}
