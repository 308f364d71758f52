package filtering

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-matcher/internal/headhunter"
)

func testVacancies() *headhunter.Vacancies {
	v := &headhunter.Vacancies{Items: []*headhunter.Vacancy{
		{ID: "1"},
		{ID: "2", HasTest: true},
		{ID: "3", Archived: true},
		{ID: "4"},
		{ID: "5"},
	}}
	v.Items[3].Employer.ID = "blocked"
	return v
}

func ids(v *headhunter.Vacancies) []string {
	out := make([]string, 0, v.Len())
	for _, item := range v.Items {
		out = append(out, item.ID)
	}
	sort.Strings(out)
	return out
}

func TestRunFilters(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "exclude.txt")
	if err := os.WriteFile(excludeFile, []byte("# already seen\n5\n\n"), 0o644); err != nil {
		t.Fatalf("write exclude file: %v", err)
	}

	core, observed := observer.New(zapcore.InfoLevel)
	f := New([]Filter{
		NewWithTest(),
		NewArchived(),
		NewExcludedEmployers([]string{"blocked"}),
		NewExcludeFile(excludeFile),
	}, zap.New(core))

	left, err := f.RunFilters(context.Background(), testVacancies())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ids(left); len(got) != 1 || got[0] != "1" {
		t.Fatalf("unexpected vacancies left: %v", got)
	}

	entries := observed.FilterMessage("filter step").All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 step entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["name"] != "with_test" || entries[0].ContextMap()["dropped"] != int64(1) {
		t.Fatalf("unexpected first step entry: %v", entries[0].ContextMap())
	}
}

func TestRunFiltersStopsWhenEmpty(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	f := New([]Filter{NewExcludedEmployers([]string{"", "blocked"}), NewWithTest()}, zap.New(core))

	left, err := f.RunFilters(context.Background(), testVacancies())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if left.Len() != 0 {
		t.Fatalf("expected no vacancies, got %v", ids(left))
	}
	if n := observed.Len(); n != 1 {
		t.Fatalf("expected a single step entry, got %d", n)
	}
}

func TestExcludeFileMissingIsNotAnError(t *testing.T) {
	f := NewExcludeFile(filepath.Join(t.TempDir(), "missing.txt"))

	left, step, err := f.Apply(context.Background(), testVacancies())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 0 || left.Len() != 5 {
		t.Fatalf("expected nothing dropped, got %+v", step)
	}
}

func TestRunFiltersHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New([]Filter{NewWithTest()}, nil).RunFilters(ctx, testVacancies()); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestNames(t *testing.T) {
	f := New([]Filter{NewWithTest(), NewArchived(), NewExcludeFile("")}, nil)
	names := f.Names()
	if len(names) != 3 || names[0] != "with_test" || names[2] != "exclude_file" {
		t.Fatalf("unexpected names: %v", names)
	}
}
