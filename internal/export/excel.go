package export

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

const (
	RankedSheet  = "Ranked Postings"
	SummarySheet = "Summary"

	strongScore = 80
	goodScore   = 60
)

// Headers are the columns of the ranked sheet.
var Headers = []string{
	"Date Found",
	"Title",
	"Company",
	"Location",
	"Remote",
	"Contract",
	"Tech Stack",
	"Score",
	"Breakdown",
	"URL",
	"Source",
	"Applied?",
	"Notes",
}

var columnWidths = []float64{12, 40, 25, 20, 14, 14, 40, 8, 60, 45, 14, 10, 30}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// ToExcel writes the ranked postings and a summary sheet to path. A missing
// .xlsx extension is added.
func ToExcel(ranked []*posting.Posting, profile *config.Profile, path string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RankedSheet); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return "", err
	}

	if err := writeRanked(f, ranked); err != nil {
		return "", fmt.Errorf("ranked sheet: %w", err)
	}
	if err := writeSummary(f, ranked, profile); err != nil {
		return "", fmt.Errorf("summary sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func fillStyle(f *excelize.File, color string) (int, error) {
	style := &excelize.Style{Border: thinBorder}
	if color != "" {
		style.Fill = excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
	}
	return f.NewStyle(style)
}

func writeRanked(f *excelize.File, ranked []*posting.Posting) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}

	strong, err := fillStyle(f, "D9FFD9")
	if err != nil {
		return err
	}
	good, err := fillStyle(f, "FFFFD9")
	if err != nil {
		return err
	}
	plain, err := fillStyle(f, "")
	if err != nil {
		return err
	}

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(RankedSheet, col, col, width); err != nil {
			return err
		}
	}

	for i, h := range Headers {
		if err := f.SetCellValue(RankedSheet, cell(i+1, 1), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(RankedSheet, cell(1, 1), cell(len(Headers), 1), headerStyle); err != nil {
		return err
	}

	for i, p := range ranked {
		row := i + 2
		for col, value := range Row(p) {
			if err := f.SetCellValue(RankedSheet, cell(col+1, row), value); err != nil {
				return err
			}
		}
		if p.URL != "" {
			if err := f.SetCellHyperLink(RankedSheet, cell(10, row), p.URL, "External"); err != nil {
				return err
			}
		}

		style := plain
		switch score := p.ScoreValue(); {
		case score >= strongScore:
			style = strong
		case score >= goodScore:
			style = good
		}
		if err := f.SetCellStyle(RankedSheet, cell(1, row), cell(len(Headers), row), style); err != nil {
			return err
		}
	}

	if len(ranked) > 0 {
		ref := fmt.Sprintf("A1:%s", cell(len(Headers), len(ranked)+1))
		if err := f.AutoFilter(RankedSheet, ref, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.SetPanes(RankedSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// Row returns the ranked-sheet cells of a posting in Headers order.
func Row(p *posting.Posting) []any {
	date := ""
	if !p.PostedAt.IsZero() {
		date = p.PostedAt.Format("2006-01-02")
	}

	var score any = ""
	if p.Scored() {
		score = round1(p.Score.Score)
	}

	return []any{
		date,
		p.Title,
		p.Company,
		p.Location,
		string(p.Remote),
		p.ContractType,
		strings.Join(p.TechTerms, ", "),
		score,
		Breakdown(p.Score),
		p.URL,
		p.Source,
		"",
		"",
	}
}

// Breakdown formats the normalized component points as
// "similarity:20.0, tech_stack:26.0, ...".
func Breakdown(r *posting.ScoreResult) string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Components))
	for _, name := range r.Components {
		parts = append(parts, fmt.Sprintf("%s:%.1f", name, r.Breakdown[name].Normalized))
	}
	return strings.Join(parts, ", ")
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Summary aggregates the ranked postings for the summary sheet.
type Summary struct {
	Total   int
	Average float64
	Highest float64
	Lowest  float64
	Strong  int
	Good    int
	Other   int
	TopTech []TechCount
}

type TechCount struct {
	Term  string
	Count int
}

// Summarize computes score statistics and the most frequent technologies.
func Summarize(ranked []*posting.Posting, topTech int) Summary {
	s := Summary{Total: len(ranked)}
	counts := map[string]int{}

	for i, p := range ranked {
		score := p.ScoreValue()
		s.Average += score
		if i == 0 || score > s.Highest {
			s.Highest = score
		}
		if i == 0 || score < s.Lowest {
			s.Lowest = score
		}
		switch {
		case score >= strongScore:
			s.Strong++
		case score >= goodScore:
			s.Good++
		default:
			s.Other++
		}
		for _, t := range p.TechTerms {
			counts[t]++
		}
	}
	if s.Total > 0 {
		s.Average /= float64(s.Total)
	}

	for term, n := range counts {
		s.TopTech = append(s.TopTech, TechCount{Term: term, Count: n})
	}
	sort.Slice(s.TopTech, func(i, j int) bool {
		if s.TopTech[i].Count != s.TopTech[j].Count {
			return s.TopTech[i].Count > s.TopTech[j].Count
		}
		return s.TopTech[i].Term < s.TopTech[j].Term
	})
	if len(s.TopTech) > topTech {
		s.TopTech = s.TopTech[:topTech]
	}
	return s
}

func writeSummary(f *excelize.File, ranked []*posting.Posting, profile *config.Profile) error {
	if err := f.SetColWidth(SummarySheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 40); err != nil {
		return err
	}

	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	name := ""
	if profile != nil {
		name = profile.Name
	}
	s := Summarize(ranked, 10)

	rows := [][2]any{
		{"Job Finder Report", ""},
		{"Profile:", name},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Postings ranked:", s.Total},
		{"Average score:", round1(s.Average)},
		{"Highest score:", round1(s.Highest)},
		{"Lowest score:", round1(s.Lowest)},
		{fmt.Sprintf("Strong (>= %d):", strongScore), s.Strong},
		{fmt.Sprintf("Good (%d-%d):", goodScore, strongScore-1), s.Good},
		{fmt.Sprintf("Other (< %d):", goodScore), s.Other},
		{"", ""},
		{"Top technologies", "Postings"},
	}
	for _, tc := range s.TopTech {
		rows = append(rows, [2]any{tc.Term, tc.Count})
	}

	for i, r := range rows {
		row := i + 1
		if err := f.SetCellValue(SummarySheet, cell(1, row), r[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(SummarySheet, cell(2, row), r[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, cell(1, row), cell(1, row), label); err != nil {
			return err
		}
	}
	return nil
}
