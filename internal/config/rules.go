package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// Component names, in the order the aggregator evaluates them.
const (
	ComponentSimilarity = "similarity"
	ComponentTechStack  = "tech_stack"
	ComponentRemote     = "remote"
	ComponentKeywords   = "keywords"
	ComponentContract   = "contract"
)

var ComponentOrder = []string{
	ComponentSimilarity,
	ComponentTechStack,
	ComponentRemote,
	ComponentKeywords,
	ComponentContract,
}

// ErrInvalidWeights is returned when component weights do not add up to 100.
var ErrInvalidWeights = errors.New("invalid scoring weights")

const weightTolerance = 1e-6

func DefaultWeights() map[string]float64 {
	return map[string]float64{
		ComponentSimilarity: 40,
		ComponentTechStack:  30,
		ComponentRemote:     15,
		ComponentKeywords:   10,
		ComponentContract:   5,
	}
}

// RemoteDetectionOrder is the order remote classes are tried when matching
// patterns. Restrictive classes go first so "remote possible, 3 days in the
// office" is not read as fully remote.
var RemoteDetectionOrder = []posting.RemoteType{
	posting.RemoteOnsite,
	posting.RemoteHybridHeavy,
	posting.RemoteHybridLight,
	posting.RemoteFull,
}

// DefaultRemote is used when the rules document has no remote table.
func DefaultRemote() map[string]RemoteClass {
	return map[string]RemoteClass{
		string(posting.RemoteFull): {
			Score:    5,
			Patterns: []string{`\b100\s*%\s*remote\b`, `\bfully[\s-]remote\b`, `\bremote[\s-]first\b`, `\bremote\b`, `\bhome\s*office\b`, `\bwork from home\b`},
		},
		string(posting.RemoteHybridLight): {
			Score:    3,
			Patterns: []string{`\bhybrid\b.{0,40}\b1\s*(day|tag)`, `\b1\s*(day|tag)\b.{0,40}\b(office|büro)`, `\bmostly remote\b`},
		},
		string(posting.RemoteHybridHeavy): {
			Score:    0,
			Patterns: []string{`\bhybrid\b.{0,40}\b[2-4]\s*(days|tage)`, `\b[2-4]\s*(days|tage)\b.{0,40}\b(office|büro)`},
		},
		string(posting.RemoteOnsite): {
			Score:    -3,
			Patterns: []string{`\bon[\s-]?site\s+only\b`, `\bno remote\b`, `\bvor ort\b`, `\bpräsenz`, `\bonsite required\b`},
		},
	}
}

type TermScore struct {
	Term  string  `mapstructure:"term"`
	Score float64 `mapstructure:"score"`
}

type RemoteClass struct {
	Score    float64  `mapstructure:"score"`
	Patterns []string `mapstructure:"patterns"`
}

type ContractRule struct {
	Name  string  `mapstructure:"name"`
	Score float64 `mapstructure:"score"`
}

// ScoringRules holds the component weights and the per-signal point tables.
// Term and keyword tables are grouped by arbitrary labels (for example
// high_priority or negative); the labels carry no meaning beyond readability.
type ScoringRules struct {
	Weights   map[string]float64     `mapstructure:"weights"`
	TechStack map[string][]TermScore `mapstructure:"tech_stack"`
	Keywords  map[string][]TermScore `mapstructure:"keywords"`
	Remote    map[string]RemoteClass `mapstructure:"remote"`
	Contract  []ContractRule         `mapstructure:"contract"`

	compiled       bool
	techScores     map[string]float64
	keywordScores  map[string]float64
	remotePatterns map[posting.RemoteType][]*regexp.Regexp
}

// LoadRules reads, validates and compiles a scoring rules document.
func LoadRules(path string) (*ScoringRules, error) {
	var r ScoringRules
	if err := decodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("load scoring rules: %w", err)
	}
	if err := r.Compile(); err != nil {
		return nil, fmt.Errorf("invalid scoring rules %s: %w", path, err)
	}
	return &r, nil
}

// ParseRules decodes, validates and compiles rules from raw YAML.
func ParseRules(data []byte) (*ScoringRules, error) {
	var r ScoringRules
	if err := decodeYAML(data, &r); err != nil {
		return nil, fmt.Errorf("parse scoring rules: %w", err)
	}
	if err := r.Compile(); err != nil {
		return nil, fmt.Errorf("invalid scoring rules: %w", err)
	}
	return &r, nil
}

// Compile fills defaults, validates the rules and builds the lookup tables
// used by the scoring components. It is safe to call more than once.
func (r *ScoringRules) Compile() error {
	if r.compiled {
		return nil
	}
	if len(r.Weights) == 0 {
		r.Weights = DefaultWeights()
	}
	if len(r.Remote) == 0 {
		r.Remote = DefaultRemote()
	}

	if v := r.Validate(); !v.OK() {
		return v.Err()
	}

	r.techScores = flattenTerms(r.TechStack)
	r.keywordScores = flattenTerms(r.Keywords)
	r.remotePatterns = make(map[posting.RemoteType][]*regexp.Regexp, len(r.Remote))
	for name, class := range r.Remote {
		for _, p := range class.Patterns {
			// Validate already compiled every pattern once.
			r.remotePatterns[posting.RemoteType(name)] = append(r.remotePatterns[posting.RemoteType(name)], regexp.MustCompile("(?i)"+p))
		}
	}
	r.compiled = true
	return nil
}

func (r *ScoringRules) Validate() Validation {
	var res Validation

	var sum float64
	for name, w := range r.Weights {
		if !slices.Contains(ComponentOrder, name) {
			res.addErr("weights: unknown component %q", name)
			continue
		}
		if w < 0 {
			res.addErr("%w: weights.%s must not be negative", ErrInvalidWeights, name)
		}
		sum += w
	}
	if math.Abs(sum-100) > weightTolerance {
		res.addErr("%w: weights sum to %g, want 100", ErrInvalidWeights, sum)
	}

	validateTerms := func(section string, groups map[string][]TermScore) {
		for _, group := range sortedKeys(groups) {
			for i, t := range groups[group] {
				if strings.TrimSpace(t.Term) == "" {
					res.addErr("%s.%s[%d]: term is required", section, group, i)
				}
			}
		}
	}
	validateTerms("tech_stack", r.TechStack)
	validateTerms("keywords", r.Keywords)

	for _, name := range sortedKeys(r.Remote) {
		rt := posting.RemoteType(name)
		if !slices.Contains(posting.RemoteTypes, rt) {
			res.addErr("remote: unknown class %q", name)
			continue
		}
		if len(r.Remote[name].Patterns) == 0 {
			res.addWarn("remote.%s has no patterns; it can only match classified postings", name)
		}
		for i, p := range r.Remote[name].Patterns {
			if _, err := regexp.Compile("(?i)" + p); err != nil {
				res.addErr("remote.%s.patterns[%d]: %v", name, i, err)
			}
		}
	}

	for i, c := range r.Contract {
		if strings.TrimSpace(c.Name) == "" {
			res.addErr("contract[%d]: name is required", i)
		}
	}

	return res
}

// Weight returns the max points of a component.
func (r *ScoringRules) Weight(component string) float64 {
	return r.Weights[component]
}

// TechScores maps lowercase tech terms to points.
func (r *ScoringRules) TechScores() map[string]float64 { return r.techScores }

// KeywordScores maps lowercase keywords to points.
func (r *ScoringRules) KeywordScores() map[string]float64 { return r.keywordScores }

// RemotePatterns returns the compiled detection patterns of a class.
func (r *ScoringRules) RemotePatterns(class posting.RemoteType) []*regexp.Regexp {
	return r.remotePatterns[class]
}

// RemoteScore returns the raw points of a class.
func (r *ScoringRules) RemoteScore(class posting.RemoteType) (float64, bool) {
	c, ok := r.Remote[string(class)]
	return c.Score, ok
}

// RemoteRange returns the lowest and highest raw scores of the remote table.
func (r *ScoringRules) RemoteRange() (float64, float64) {
	scores := make([]float64, 0, len(r.Remote))
	for _, c := range r.Remote {
		scores = append(scores, c.Score)
	}
	return minMax(scores)
}

// ContractRange returns the lowest and highest raw scores of the contract table.
func (r *ScoringRules) ContractRange() (float64, float64) {
	scores := make([]float64, 0, len(r.Contract))
	for _, c := range r.Contract {
		scores = append(scores, c.Score)
	}
	return minMax(scores)
}

func (r *ScoringRules) Compiled() bool { return r.compiled }

// flattenTerms merges term groups into a single lowercase lookup. Groups are
// visited in sorted order so a term listed twice resolves deterministically.
func flattenTerms(groups map[string][]TermScore) map[string]float64 {
	out := make(map[string]float64)
	for _, group := range sortedKeys(groups) {
		for _, t := range groups[group] {
			out[strings.ToLower(strings.TrimSpace(t.Term))] = t.Score
		}
	}
	return out
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
