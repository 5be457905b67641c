package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes text and drops combining marks, so "Café" and
// "cafe" produce the same tokens.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// tokenize lowercases and accent-strips text, splits it into word tokens of
// at least two characters and removes English stop words.
func tokenize(text string) []string {
	text = stripAccents(strings.ToLower(text))

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := englishStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// ngrams returns unigrams followed by bigrams of adjacent tokens.
func ngrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(tokens)-1)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

func terms(text string) []string {
	return ngrams(tokenize(text))
}
