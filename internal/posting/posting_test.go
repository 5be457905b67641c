package posting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDeriveIDIsStable(t *testing.T) {
	a := DeriveID("Backend Engineer", "Acme", "https://acme.io/jobs/1")
	b := DeriveID("  backend   engineer ", "ACME", "https://acme.io/jobs/1/")
	if a != b {
		t.Fatalf("expected normalized inputs to share an ID, got %s and %s", a, b)
	}

	c := DeriveID("Backend Engineer", "Acme", "https://acme.io/jobs/2")
	if a == c {
		t.Fatalf("expected different URLs to produce different IDs")
	}
}

func TestParseRemoteType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect RemoteType
	}{
		{input: "", expect: RemoteUnknown},
		{input: "fully-remote", expect: RemoteFull},
		{input: "Remote", expect: RemoteFull},
		{input: "100% Homeoffice", expect: RemoteFull},
		{input: "home office", expect: RemoteFull},
		{input: "homeoffice", expect: RemoteFull},
		{input: "Remote, office in Berlin", expect: RemoteFull},
		{input: "in office", expect: RemoteOnsite},
		{input: "On-site, no remote", expect: RemoteOnsite},
		{input: "100% on-site", expect: RemoteOnsite},
		{input: "100%", expect: RemoteFull},
		{input: "Hybrid", expect: RemoteHybridLight},
		{input: "hybrid (2 days in office)", expect: RemoteHybridHeavy},
		{input: "On-site", expect: RemoteOnsite},
		{input: "something else", expect: RemoteUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseRemoteType(tt.input); got != tt.expect {
				t.Fatalf("ParseRemoteType(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestLoadNormalizesRecords(t *testing.T) {
	input := `[
	  {
	    "id": "rok-42",
	    "title": "  Go   Developer ",
	    "company": "Acme",
	    "location": "Berlin, berlin, Germany",
	    "remote": "remote",
	    "description": "<p>We use <b>Go</b></p><ul><li>Docker</li><li>Kubernetes</li></ul>",
	    "posted_at": "2026-10-01",
	    "source": "remoteok",
	    "url": "https://acme.io/jobs/1"
	  },
	  {
	    "title": "Broken date",
	    "company": "Globex",
	    "posted_at": "yesterday",
	    "url": "https://globex.io/1"
	  }
	]`

	postings, err := Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if postings.Len() != 2 {
		t.Fatalf("expected 2 postings, got %d", postings.Len())
	}

	first := postings.Items[0]
	if first.Title != "Go Developer" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Location != "Berlin, Germany" {
		t.Fatalf("unexpected location %q", first.Location)
	}
	if first.Remote != RemoteFull {
		t.Fatalf("unexpected remote type %q", first.Remote)
	}
	if first.Description != "We use Go Docker Kubernetes" {
		t.Fatalf("unexpected description %q", first.Description)
	}
	if !first.PostedAt.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected posted_at %v", first.PostedAt)
	}
	if first.ID != DeriveID("Go Developer", "Acme", "https://acme.io/jobs/1") {
		t.Fatalf("expected derived ID, got %q", first.ID)
	}
	if first.SourceID != "rok-42" {
		t.Fatalf("expected connector id to be kept as source id, got %q", first.SourceID)
	}

	second := postings.Items[1]
	if !second.PostedAt.IsZero() {
		t.Fatalf("expected malformed date to degrade to zero, got %v", second.PostedAt)
	}
	if _, ok := second.Age(time.Now()); ok {
		t.Fatalf("expected unknown age for malformed date")
	}
}

func TestDumpToFileRoundTrip(t *testing.T) {
	postings := &Postings{Items: []*Posting{
		{ID: "1", Title: "Go Developer", Company: "Acme", Remote: RemoteFull},
	}}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := postings.DumpToFile(path); err != nil {
		t.Fatalf("dump: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"remote": "fully-remote"`) {
		t.Fatalf("unexpected dump content: %s", data)
	}
}

func TestReportByCompanyIncludesScores(t *testing.T) {
	postings := &Postings{
		Items: []*Posting{
			{
				ID:        "1",
				Title:     "Go Developer",
				Company:   "Acme",
				URL:       "https://example.com",
				Location:  "Berlin",
				Remote:    RemoteFull,
				TechTerms: []string{"Docker", "Go"},
				Score:     &ScoreResult{Score: 81.25},
			},
			{
				ID:    "2",
				Title: "Python Developer",
			},
		},
	}

	report := postings.ReportByCompany()

	entries, ok := report["Acme"]
	if !ok {
		t.Fatalf("expected company key in report")
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["score"] != "81.2" && entry["score"] != "81.3" {
		t.Fatalf("unexpected score %q", entry["score"])
	}
	if entry["tech"] != "Docker, Go" {
		t.Fatalf("unexpected tech %q", entry["tech"])
	}

	unknown := report["(unknown company)"]
	if len(unknown) != 1 {
		t.Fatalf("expected unknown company bucket, got %d", len(unknown))
	}
	if _, ok := unknown[0]["score"]; ok {
		t.Fatalf("did not expect a score for an unscored posting")
	}
}

func TestCleanDescriptionPlainText(t *testing.T) {
	if got := CleanDescription("  plain\n\ttext  "); got != "plain text" {
		t.Fatalf("unexpected %q", got)
	}
}
