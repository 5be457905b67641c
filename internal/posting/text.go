package posting

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// CleanDescription strips markup from connector descriptions. Block elements
// are separated by spaces so list items do not run together.
func CleanDescription(s string) string {
	if !strings.Contains(s, "<") {
		return CleanText(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CleanText(s)
	}
	doc.Find("script, style").Remove()
	doc.Find("p, div, li, br, tr, td, h1, h2, h3, h4, h5, h6").AfterHtml(" ")

	return CleanText(doc.Text())
}

func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
