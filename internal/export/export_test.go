package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

func rankedFixture() []*posting.Posting {
	result := func(score float64) *posting.ScoreResult {
		return &posting.ScoreResult{
			Score:      score,
			Components: []string{config.ComponentSimilarity, config.ComponentTechStack},
			Breakdown: map[string]posting.Breakdown{
				config.ComponentSimilarity: {Normalized: score / 2, Max: 40},
				config.ComponentTechStack:  {Normalized: score / 2, Max: 30},
			},
		}
	}

	return []*posting.Posting{
		{
			ID: "a", Title: "Backend Engineer", Company: "Acme", Location: "Berlin",
			Remote: posting.RemoteFull, ContractType: "permanent",
			TechTerms: []string{"Docker", "Go"}, PostedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			URL: "https://acme.example/1", Source: "remoteok", Score: result(84),
		},
		{
			ID: "b", Title: "Data Engineer", Company: "Globex", Location: "Hamburg",
			Remote: posting.RemoteHybridHeavy, TechTerms: []string{"Go", "Kafka"},
			URL: "https://globex.example/2", Source: "hn", Score: result(61.26),
		},
		{ID: "c", Title: "SAP Consultant", Company: "Initech", Remote: posting.RemoteOnsite, Score: result(10)},
	}
}

func TestToExcel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranked")
	written, err := ToExcel(rankedFixture(), &config.Profile{Name: "Jane Doe"}, path)
	if err != nil {
		t.Fatalf("ToExcel() failed: %v", err)
	}
	if written != path+".xlsx" {
		t.Fatalf("expected .xlsx extension, got %s", written)
	}
	if _, err := os.Stat(written); err != nil {
		t.Fatalf("expected file at %s: %v", written, err)
	}

	f, err := excelize.OpenFile(written)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(RankedSheet)
	if err != nil {
		t.Fatalf("read ranked sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	for i, h := range Headers {
		if rows[0][i] != h {
			t.Fatalf("header %d: expected %q, got %q", i, h, rows[0][i])
		}
	}

	first := rows[1]
	checks := map[int]string{
		0: "2026-03-01",
		1: "Backend Engineer",
		4: "fully-remote",
		6: "Docker, Go",
		7: "84",
		8: "similarity:42.0, tech_stack:42.0",
		9: "https://acme.example/1",
	}
	for col, want := range checks {
		if first[col] != want {
			t.Fatalf("column %s: expected %q, got %q", Headers[col], want, first[col])
		}
	}
	if rows[2][7] != "61.3" {
		t.Fatalf("expected rounded score, got %q", rows[2][7])
	}

	strong, _ := f.GetCellStyle(RankedSheet, "H2")
	good, _ := f.GetCellStyle(RankedSheet, "H3")
	other, _ := f.GetCellStyle(RankedSheet, "H4")
	if strong == good || good == other || strong == other {
		t.Fatalf("expected distinct score styles, got %d %d %d", strong, good, other)
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("read summary sheet: %v", err)
	}
	if summary[1][1] != "Jane Doe" || summary[3][1] != "3" {
		t.Fatalf("unexpected summary rows: %v", summary[:4])
	}
}

func TestToExcelEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.xlsx")
	written, err := ToExcel(nil, nil, path)
	if err != nil {
		t.Fatalf("ToExcel() failed: %v", err)
	}
	if written != path {
		t.Fatalf("expected existing extension to be preserved, got %s", written)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(rankedFixture(), 1)
	if s.Total != 3 || s.Strong != 1 || s.Good != 1 || s.Other != 1 {
		t.Fatalf("unexpected bands: %+v", s)
	}
	if s.Highest != 84 || s.Lowest != 10 {
		t.Fatalf("unexpected range: %+v", s)
	}
	if len(s.TopTech) != 1 || s.TopTech[0] != (TechCount{Term: "Go", Count: 2}) {
		t.Fatalf("unexpected top tech: %+v", s.TopTech)
	}

	if empty := Summarize(nil, 5); empty.Total != 0 || empty.Average != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestBreakdown(t *testing.T) {
	t.Parallel()

	if got := Breakdown(nil); got != "" {
		t.Fatalf("expected empty breakdown, got %q", got)
	}
	if got := Breakdown(rankedFixture()[2].Score); got != "similarity:5.0, tech_stack:5.0" {
		t.Fatalf("unexpected breakdown: %q", got)
	}
}

func TestToJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := ToJSON(&buf, rankedFixture(), &config.Profile{Name: "Jane Doe"}); err != nil {
		t.Fatalf("ToJSON() failed: %v", err)
	}

	var report Report
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Count != 3 || report.Profile != "Jane Doe" || len(report.Postings) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Postings[0].Score == nil || report.Postings[0].Score.Score != 84 {
		t.Fatalf("expected score result in report")
	}

	path := filepath.Join(t.TempDir(), "ranked.json")
	if err := WriteJSON(path, nil, nil); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(data, []byte(`"postings": []`)) {
		t.Fatalf("expected empty postings array, got %s", data)
	}
}
