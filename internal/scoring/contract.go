package scoring

import (
	"fmt"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// ContractComponent maps the contract type onto the ordered contract table.
type ContractComponent struct {
	max    float64
	table  []config.ContractRule
	lo, hi float64
}

func NewContract(max float64, rules *config.ScoringRules) *ContractComponent {
	lo, hi := rules.ContractRange()
	return &ContractComponent{max: max, table: rules.Contract, lo: lo, hi: hi}
}

func (c *ContractComponent) Name() string { return config.ComponentContract }
func (c *ContractComponent) Max() float64 { return c.max }

func (c *ContractComponent) Calculate(p *posting.Posting, _ *config.Profile) ComponentScore {
	contract := strings.ToLower(strings.TrimSpace(p.ContractType))
	if contract == "" {
		return ComponentScore{Max: c.max, Explanation: "No contract type given."}
	}
	if len(c.table) == 0 {
		return ComponentScore{Max: c.max, Explanation: "No contract rules configured."}
	}

	raw, matched, ok := c.match(contract)
	if !ok {
		raw, matched, ok = c.match(strings.ToLower(p.Title + " " + p.Description))
	}
	if !ok {
		matched = "unrecognized (" + contract + ")"
	}

	return ComponentScore{
		Score: normalize(raw, c.lo, c.hi, c.max),
		Raw:   raw,
		Max:   c.max,
		Explanation: fmt.Sprintf("Contract type: %s (%s, %+.0f raw score).",
			matched, sign(raw, "favorable", "unfavorable", "neutral"), raw),
		Details: map[string]any{"matched_type": matched, "contract_type": p.ContractType},
	}
}

// match returns the first table entry contained in text.
func (c *ContractComponent) match(text string) (float64, string, bool) {
	for _, rule := range c.table {
		name := strings.ToLower(strings.TrimSpace(rule.Name))
		if strings.Contains(text, name) {
			return rule.Score, name, true
		}
	}
	return 0, "", false
}
