package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"

	"go.uber.org/zap"
)

// OtherCategory collects canonical names that the dictionary does not list.
const OtherCategory = "other"

// Terms whose spelling breaks plain token matching. They are left out of the
// automaton and detected by the patterns below instead. The first group of
// each pattern is the term itself; automaton hits inside it are dropped, so
// "c sharp" never also yields C.
var specialRules = []struct {
	canonical string
	pattern   string
}{
	{canonical: "C#", pattern: `(?:^|[^a-z0-9_.#+])(c\s?#|c-?sharp|c sharp)(?:$|[^a-z0-9_#+])`},
	{canonical: "C++", pattern: `(?:^|[^a-z0-9_.#+])(c\s?\+\+|cpp)(?:$|[^a-z0-9_#+])`},
	{canonical: "F#", pattern: `(?:^|[^a-z0-9_.#+])(f\s?#|f-?sharp|f sharp)(?:$|[^a-z0-9_#+])`},
	{canonical: ".NET", pattern: `(?:^|[^a-z0-9_])(\.net(?:\s+core|\s+framework|\s+\d+)?|dotnet)(?:$|[^a-z0-9_#+])`},
	{canonical: "Node.js", pattern: `(?:^|[^a-z0-9_.#+])(node(?:\.js|js|\s+js)?)(?:$|[^a-z0-9_#+])`},
	{canonical: "Vue.js", pattern: `(?:^|[^a-z0-9_.#+])(vue(?:\.js|js)?)(?:$|[^a-z0-9_#+])`},
}

type specialRule struct {
	canonical string
	re        *regexp.Regexp
}

// Extractor tags free text with canonical technology names.
// It is safe for concurrent use once built.
type Extractor struct {
	dict      *config.Dictionary
	ac        *automaton
	canonical []string
	lengths   []int
	special   []specialRule
	logger    *zap.Logger
}

// New builds the automaton from every surface form in the dictionary.
func New(dict *config.Dictionary, log *zap.Logger) *Extractor {
	e := &Extractor{
		dict:   dict,
		logger: logger.WithFields(log, zap.String("component", "extractor")),
	}

	skip := make(map[string]bool, len(specialRules))
	for _, r := range specialRules {
		skip[r.canonical] = true
		e.special = append(e.special, specialRule{canonical: r.canonical, re: regexp.MustCompile(r.pattern)})
	}

	var patterns []string
	for _, category := range dict.Categories() {
		terms := dict.Terms(category)
		names := make([]string, 0, len(terms))
		for name := range terms {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if skip[name] {
				continue
			}
			for _, variant := range terms[name] {
				patterns = append(patterns, variant)
				e.canonical = append(e.canonical, name)
				e.lengths = append(e.lengths, len(variant))
			}
		}
	}
	e.ac = newAutomaton(patterns)

	e.logger.Debug("extractor ready",
		zap.Int("terms", dict.Len()),
		zap.Int("surface_forms", len(patterns)),
		zap.Int("special_rules", len(e.special)),
	)

	return e
}

// Extract returns the set of canonical names found in text.
func (e *Extractor) Extract(text string) map[string]struct{} {
	found := make(map[string]struct{})

	lower := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if lower == "" {
		return found
	}

	var claimed [][2]int
	for _, r := range e.special {
		for _, loc := range r.re.FindAllStringSubmatchIndex(lower, -1) {
			found[r.canonical] = struct{}{}
			claimed = append(claimed, [2]int{loc[2], loc[3]})
		}
	}

	e.ac.find(lower, e.lengths, func(m match) {
		if !isTokenStart(lower, m.start) || !isTokenEnd(lower, m.end) {
			return
		}
		if m.end-m.start == 1 && !isLetterBoundary(lower, m.start, m.end) {
			return
		}
		if overlaps(claimed, m.start, m.end) {
			return
		}
		found[e.canonical[m.pattern]] = struct{}{}
	})

	return found
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

// ExtractByCategory groups the extracted names by dictionary category.
// Empty categories are omitted.
func (e *Extractor) ExtractByCategory(text string) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{})
	for name := range e.Extract(text) {
		category, ok := e.dict.CategoryOf(name)
		if !ok {
			category = OtherCategory
		}
		if out[category] == nil {
			out[category] = make(map[string]struct{})
		}
		out[category][name] = struct{}{}
	}
	return out
}

// Annotate sets the tech terms of a posting from its title and description.
func (e *Extractor) Annotate(p *posting.Posting) {
	p.SetTechTerms(e.Extract(p.Title + "\n" + p.Description))
}

// A surface form must not start right after a letter, digit or one of the
// symbols that glue language names together ("node.js", "c#", "c++").
func isTokenStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	c := s[i-1]
	return !isWordByte(c) && c != '.' && c != '#' && c != '+'
}

func isTokenEnd(s string, i int) bool {
	if i == len(s) {
		return true
	}
	c := s[i]
	return !isWordByte(c) && c != '#' && c != '+'
}

// Single-letter names ("C", "R") also reject hyphens, apostrophes and
// ampersands around them: "c-level", "r&d" and "let's" are not languages.
func isLetterBoundary(s string, start, end int) bool {
	glued := func(c byte) bool { return c == '-' || c == '\'' || c == '&' || c == '.' }
	if start > 0 && glued(s[start-1]) {
		return false
	}
	if end < len(s) && glued(s[end]) && end+1 < len(s) && s[end+1] != ' ' {
		return false
	}
	return true
}

// Bytes of multi-byte runes count as word characters so "gö" never yields "g".
func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c >= 0x80
}
