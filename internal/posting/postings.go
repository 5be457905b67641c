package posting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

type Postings struct {
	Items []*Posting
}

// record is the connector-facing shape of a posting. Dates stay strings so a
// malformed timestamp degrades to zero instead of failing the whole file.
type record struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	Remote       string `json:"remote"`
	ContractType string `json:"contract_type"`
	Description  string `json:"description"`
	PostedAt     string `json:"posted_at"`
	Source       string `json:"source"`
	URL          string `json:"url"`
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
}

// ParseDate parses the timestamp formats connectors are known to emit.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", s)
}

// LoadFile reads a JSON array of postings produced by source connectors.
func LoadFile(path string) (*Postings, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// Load decodes and normalizes postings. Descriptions are reduced to plain
// text and every posting gets a derived ID; the connector id is kept as
// SourceID.
func Load(r io.Reader) (*Postings, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}

	postings := &Postings{Items: make([]*Posting, 0, len(records))}
	for _, rec := range records {
		p := &Posting{
			SourceID:     strings.TrimSpace(rec.ID),
			Title:        CleanText(rec.Title),
			Company:      CleanText(rec.Company),
			Location:     NormalizeLocation(rec.Location),
			Remote:       ParseRemoteType(rec.Remote),
			ContractType: CleanText(rec.ContractType),
			Description:  CleanDescription(rec.Description),
			Source:       CleanText(rec.Source),
			URL:          strings.TrimSpace(rec.URL),
		}
		if t, err := ParseDate(rec.PostedAt); err == nil {
			p.PostedAt = t
		}
		p.EnsureID()
		postings.Items = append(postings.Items, p)
	}
	return postings, nil
}

func (v *Postings) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Items)
}

func (v *Postings) FindByID(id string) *Posting {
	for _, p := range v.Items {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// IDs returns the identifiers in list order.
func (v *Postings) IDs() []string {
	ids := make([]string, 0, v.Len())
	for _, p := range v.Items {
		ids = append(ids, p.ID)
	}
	return ids
}

func (v *Postings) DumpToFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return v.encode(file)
}

func (v *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := v.encode(file); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (v *Postings) encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v.Items)
}

// ReportByCompany groups postings by company for a quick overview.
func (v *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, p := range v.Items {
		key := p.Company
		if key == "" {
			key = "(unknown company)"
		}
		entry := map[string]string{
			"title":    p.Title,
			"url":      p.URL,
			"location": p.Location,
			"remote":   string(p.Remote),
			"source":   p.Source,
		}
		if len(p.TechTerms) > 0 {
			entry["tech"] = strings.Join(p.TechTerms, ", ")
		}
		if p.Scored() {
			entry["score"] = fmt.Sprintf("%.1f", p.Score.Score)
		}
		report[key] = append(report[key], entry)
	}
	return report
}
