package config

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed tech_dictionary.yaml
var defaultDictionary []byte

// Dictionary maps categories to canonical technology names and their
// lowercase surface forms. Categories are whatever keys the document uses.
type Dictionary struct {
	terms    map[string]map[string][]string
	category map[string]string
}

// DefaultDictionary returns the dictionary embedded in the binary.
func DefaultDictionary() (*Dictionary, error) {
	d, err := ParseDictionary(defaultDictionary)
	if err != nil {
		return nil, fmt.Errorf("embedded dictionary: %w", err)
	}
	return d, nil
}

// LoadDictionary reads a dictionary file. An empty path selects the embedded
// default.
func LoadDictionary(path string) (*Dictionary, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDictionary()
	}

	var terms map[string]map[string][]string
	if err := decodeFile(path, &terms); err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	return NewDictionary(terms)
}

// ParseDictionary decodes a dictionary from raw YAML.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var terms map[string]map[string][]string
	if err := decodeYAML(data, &terms); err != nil {
		return nil, fmt.Errorf("parse dictionary: %w", err)
	}
	return NewDictionary(terms)
}

// NewDictionary validates the category tables and builds a Dictionary.
// Every canonical term needs at least one surface form.
func NewDictionary(terms map[string]map[string][]string) (*Dictionary, error) {
	var res Validation

	d := &Dictionary{
		terms:    make(map[string]map[string][]string, len(terms)),
		category: make(map[string]string),
	}
	for _, cat := range sortedKeys(terms) {
		category := strings.ToLower(strings.TrimSpace(cat))
		if category == "" {
			res.addErr("dictionary: empty category name")
			continue
		}
		if d.terms[category] == nil {
			d.terms[category] = make(map[string][]string)
		}

		for _, canonical := range sortedKeys(terms[cat]) {
			name := strings.TrimSpace(canonical)
			variants := trimList(terms[cat][canonical])
			if name == "" {
				res.addErr("dictionary: %s has an entry with an empty name", category)
				continue
			}
			if len(variants) == 0 {
				res.addErr("dictionary: %s.%s has no variants", category, name)
				continue
			}
			if prev, ok := d.category[name]; ok {
				res.addErr("dictionary: %s is listed in both %s and %s", name, prev, category)
				continue
			}

			lowered := make([]string, 0, len(variants))
			for _, v := range variants {
				lowered = append(lowered, strings.ToLower(v))
			}
			d.terms[category][name] = lowered
			d.category[name] = category
		}
	}

	if !res.OK() {
		return nil, res.Err()
	}
	return d, nil
}

// Categories returns the category keys in sorted order.
func (d *Dictionary) Categories() []string {
	return sortedKeys(d.terms)
}

// Terms returns canonical names mapped to their surface forms for a category.
func (d *Dictionary) Terms(category string) map[string][]string {
	return d.terms[category]
}

// CategoryOf returns the category of a canonical name.
func (d *Dictionary) CategoryOf(canonical string) (string, bool) {
	c, ok := d.category[canonical]
	return c, ok
}

// Len returns the number of canonical terms.
func (d *Dictionary) Len() int {
	return len(d.category)
}
