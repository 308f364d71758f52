package headhunter

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadVacancies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "dump format",
			content: `{"Items": [{"id": "1", "name": "Go Developer"}, {"id": "2", "name": "SRE"}]}`,
			want:    []string{"1", "2"},
		},
		{
			name:    "bare list",
			content: `[{"id": "3"}]`,
			want:    []string{"3"},
		},
		{
			name:    "empty file",
			content: "  \n",
			want:    nil,
		},
		{
			name:    "broken json",
			content: `{"Items": [`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vacancies, err := LoadVacancies(writeFile(t, "vacancies.json", tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if vacancies.Len() != len(tt.want) {
				t.Fatalf("expected %d vacancies, got %d", len(tt.want), vacancies.Len())
			}
			for i, id := range tt.want {
				if vacancies.Items[i].ID != id {
					t.Fatalf("expected id %s at %d, got %s", id, i, vacancies.Items[i].ID)
				}
			}
		})
	}
}

func TestDumpToTmpFileRoundTrip(t *testing.T) {
	vacancies := &Vacancies{Items: []*Vacancy{{ID: "42", Name: "Backend"}}}

	path, err := vacancies.DumpToTmpFile()
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	defer os.Remove(path)

	loaded, err := LoadVacancies(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.FindByID("42") == nil {
		t.Fatalf("expected vacancy 42 after reload")
	}
}

func TestExcludeArchived(t *testing.T) {
	vacancies := &Vacancies{Items: []*Vacancy{
		{ID: "1"},
		{ID: "2", Archived: true},
		{ID: "3"},
		{ID: "4", Archived: true},
	}}

	excluded := vacancies.ExcludeArchived()
	sort.Strings(excluded)

	if len(excluded) != 2 || excluded[0] != "2" || excluded[1] != "4" {
		t.Fatalf("unexpected excluded ids: %v", excluded)
	}
	if vacancies.Len() != 2 || vacancies.FindByID("1") == nil || vacancies.FindByID("3") == nil {
		t.Fatalf("unexpected remaining vacancies: %+v", vacancies.Items)
	}
}

func TestExcludeByField(t *testing.T) {
	newVacancies := func() *Vacancies {
		v := &Vacancies{Items: []*Vacancy{{ID: "1"}, {ID: "2", HasTest: true}, {ID: "3"}}}
		v.Items[0].Employer.ID = "emp1"
		v.Items[2].Employer.ID = "emp2"
		return v
	}

	vacancies := newVacancies()
	if excluded := vacancies.Exclude(VacancyEmployerIDField, []string{"emp2", "unknown"}); len(excluded) != 1 || excluded[0] != "3" {
		t.Fatalf("unexpected excluded by employer: %v", excluded)
	}

	vacancies = newVacancies()
	if excluded := vacancies.Exclude(VacancyIDField, []string{"1", "2"}); len(excluded) != 2 || vacancies.Len() != 1 {
		t.Fatalf("unexpected excluded by id: %v, left %d", excluded, vacancies.Len())
	}

	vacancies = newVacancies()
	if excluded := vacancies.ExcludeWithTest(); len(excluded) != 1 || excluded[0] != "2" {
		t.Fatalf("unexpected excluded with test: %v", excluded)
	}
}
