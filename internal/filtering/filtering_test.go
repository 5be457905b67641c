package filtering

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testDeps(log *zap.Logger) Deps {
	return Deps{Logger: log, Now: func() time.Time { return fixedNow }}
}

func daysAgo(n int) time.Time {
	return fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func ids(postings []*posting.Posting) string {
	out := make([]string, 0, len(postings))
	for _, p := range postings {
		out = append(out, p.ID)
	}
	return strings.Join(out, ",")
}

func TestRunMaxAge(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{
		{ID: "old", Title: "Go Developer", PostedAt: daysAgo(10)},
		{ID: "fresh", Title: "Go Developer", PostedAt: daysAgo(2)},
		{ID: "undated", Title: "Go Developer"},
		{ID: "edge", Title: "Go Developer", PostedAt: daysAgo(7)},
	}

	core, observed := observer.New(zapcore.WarnLevel)
	got, err := Run(context.Background(), &Criteria{MaxAgeDays: 7}, testDeps(zap.New(core)), Default(), postings)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if ids(got) != "fresh,undated,edge" {
		t.Fatalf("unexpected postings: %s", ids(got))
	}

	if observed.FilterMessage("keeping postings without a posting date").Len() != 1 {
		t.Fatalf("expected a warning about undated postings, got %v", observed.All())
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{
		{ID: "a", Title: "Senior Go Engineer"},
		{ID: "b", Title: "Go Engineer"},
		{ID: "c", Title: "Lead Backend Developer"},
	}

	got, err := Apply(postings, Criteria{ExcludeSeniority: true}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if ids(got) != "b" {
		t.Fatalf("unexpected postings: %s", ids(got))
	}
	if ids(postings) != "a,b,c" {
		t.Fatalf("input was modified: %s", ids(postings))
	}
}

func TestRunEmptyCriteriaKeepsEverything(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{{ID: "a"}, {ID: "b"}}
	got, err := Apply(postings, Criteria{}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ids(got) != "a,b" {
		t.Fatalf("unexpected postings: %s", ids(got))
	}
}

func TestSteps(t *testing.T) {
	t.Parallel()

	postings := []*posting.Posting{
		{ID: "berlin", Title: "Backend Engineer", Location: "Berlin, Germany", Remote: posting.RemoteHybridLight, Description: "We build Go services for payments.", ContractType: "Full-time"},
		{ID: "remote", Title: "Go Developer", Location: "Anywhere", Remote: posting.RemoteFull, Description: "Remote first team using Kubernetes.", ContractType: "Contract"},
		{ID: "munich", Title: "Senior Java Developer", Location: "Munich", Remote: posting.RemoteOnsite, Description: "Java and SAP consulting.", ContractType: "Internship"},
		{ID: "wfh", Title: "Data Engineer", Location: "Work from home", Remote: posting.RemoteUnknown, Description: "Short"},
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     string
	}{
		{
			name:     "locations",
			criteria: Criteria{Locations: []string{"berlin"}},
			want:     "berlin",
		},
		{
			name:     "locations accept remote",
			criteria: Criteria{Locations: []string{"Berlin", "Remote"}},
			want:     "berlin,remote",
		},
		{
			name:     "description length",
			criteria: Criteria{MinDescriptionLength: 20},
			want:     "berlin,remote,munich",
		},
		{
			name:     "role keywords",
			criteria: Criteria{RoleKeywords: []string{"backend", "go "}},
			want:     "berlin,remote",
		},
		{
			name:     "exclude keywords",
			criteria: Criteria{ExcludeKeywords: []string{"SAP"}},
			want:     "berlin,remote,wfh",
		},
		{
			name:     "seniority",
			criteria: Criteria{ExcludeSeniority: true},
			want:     "berlin,remote,wfh",
		},
		{
			name:     "remote only",
			criteria: Criteria{RemoteOnly: true},
			want:     "remote,wfh",
		},
		{
			name:     "contract types keep unknown contract",
			criteria: Criteria{ContractTypes: []string{"full-time", "contract"}},
			want:     "berlin,remote,wfh",
		},
		{
			name:     "combined",
			criteria: Criteria{Locations: []string{"remote", "berlin"}, ExcludeSeniority: true, MinDescriptionLength: 20},
			want:     "berlin,remote",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Apply(postings, tt.criteria, nil)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if ids(got) != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, ids(got))
			}
		})
	}
}

func TestRunLogsSteps(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.InfoLevel)
	postings := []*posting.Posting{
		{ID: "a", Title: "Senior Go Engineer"},
		{ID: "b", Title: "Go Engineer"},
	}

	if _, err := Run(context.Background(), &Criteria{ExcludeSeniority: true}, testDeps(zap.New(core)), Default(), postings); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries := observed.FilterMessage("filter step").All()
	if len(entries) != 1 {
		t.Fatalf("expected one step log, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["name"] != "seniority" || ctx["initial"] != int64(2) || ctx["dropped"] != int64(1) || ctx["left"] != int64(1) {
		t.Fatalf("unexpected step fields: %v", ctx)
	}
}

func TestRunRejectsNegativeValues(t *testing.T) {
	t.Parallel()

	if _, err := Apply(nil, Criteria{MaxAgeDays: -1}, nil); err == nil || !strings.Contains(err.Error(), "max_age") {
		t.Fatalf("expected max_age error, got %v", err)
	}
	if _, err := Apply(nil, Criteria{MinDescriptionLength: -5}, nil); err == nil {
		t.Fatalf("expected description length error")
	}
}

func TestDisableByNameAndDescribe(t *testing.T) {
	t.Parallel()

	steps := Default()
	DisableByName(steps, "seniority", "disabled by flag")

	postings := []*posting.Posting{{ID: "a", Title: "Senior Go Engineer"}}
	got, err := Run(context.Background(), &Criteria{ExcludeSeniority: true, MaxAgeDays: 3}, testDeps(nil), steps, postings)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ids(got) != "a" {
		t.Fatalf("disabled step still ran: %s", ids(got))
	}

	statuses := Describe(steps)
	if len(statuses) != len(steps) {
		t.Fatalf("expected %d statuses, got %d", len(steps), len(statuses))
	}

	byName := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s
	}

	if s := byName["seniority"]; s.Enabled || s.Reason != "disabled by flag" {
		t.Fatalf("unexpected seniority status: %+v", s)
	}
	if s := byName["max_age"]; !s.Enabled || s.Details["max_age_days"] != "3" {
		t.Fatalf("unexpected max_age status: %+v", s)
	}
	if s := byName["locations"]; s.Enabled || s.Reason != notConfiguredMsg {
		t.Fatalf("unexpected locations status: %+v", s)
	}
}
