package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

// Report is the JSON document written by ToJSON.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Profile     string             `json:"profile,omitempty"`
	Count       int                `json:"count"`
	Postings    []*posting.Posting `json:"postings"`
}

// ToJSON encodes the ranked postings with their score results.
func ToJSON(w io.Writer, ranked []*posting.Posting, profile *config.Profile) error {
	report := Report{GeneratedAt: time.Now().UTC(), Count: len(ranked), Postings: ranked}
	if profile != nil {
		report.Profile = profile.Name
	}
	if report.Postings == nil {
		report.Postings = []*posting.Posting{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteJSON writes the ToJSON document to path.
func WriteJSON(path string, ranked []*posting.Posting, profile *config.Profile) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ToJSON(file, ranked, profile); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}
