package headhunter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Vacancies struct {
	Items []*Vacancy
}

type IDName struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
		URL  string `json:"url,omitempty"`
	} `json:"area,omitempty"`
	HasTest bool `json:"has_test,omitempty"`
	Salary  struct {
		From     int    `json:"from,omitempty"`
		To       int    `json:"to,omitempty"`
		Currency string `json:"currency,omitempty"`
		Gross    bool   `json:"gross,omitempty"`
	} `json:"salary,omitempty"`
	Experience IDName   `json:"experience,omitempty"`
	Schedule   IDName   `json:"schedule,omitempty"`
	WorkFormat []IDName `json:"work_format,omitempty"`
	Employment IDName   `json:"employment,omitempty"`
	Employer   struct {
		ID           string `json:"id,omitempty"`
		Name         string `json:"name,omitempty"`
		AlternateURL string `json:"alternate_url,omitempty"`
	} `json:"employer,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	AlternateURL      string   `json:"alternate_url,omitempty"`
	Description       string   `json:"description,omitempty"`
	KeySkills         []IDName `json:"key_skills,omitempty"`
	Archived          bool     `json:"archived,omitempty"`
	AcceptRelocation  bool     `json:"accept_relocation,omitempty"`
	Snipet            Snippet  `json:"snippet,omitempty"`
	ProfessionalRoles []IDName `json:"professional_roles,omitempty"`
	PublishedAt       string   `json:"published_at,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

// LoadVacancies reads a vacancies dump: either {"Items": [...]} as written by
// DumpToTmpFile or a bare JSON list.
func LoadVacancies(path string) (*Vacancies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Vacancies{}, nil
	}

	if data[0] == '[' {
		var items []*Vacancy
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode vacancies %s: %w", path, err)
		}
		return &Vacancies{Items: items}, nil
	}

	var vacancies Vacancies
	if err := json.Unmarshal(data, &vacancies); err != nil {
		return nil, fmt.Errorf("decode vacancies %s: %w", path, err)
	}
	return &vacancies, nil
}

func (v *Vacancies) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "vacancies_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}

const (
	VacancyIDField         = "ID"
	VacancyEmployerIDField = "EmployerID"
)

func (va *Vacancy) GetStringField(name string) string {
	switch name {
	case VacancyIDField:
		return va.ID
	case VacancyEmployerIDField:
		return va.Employer.ID
	default:
		return ""
	}
}

// Exclude removes every vacancy whose field equals one of targets and returns
// the removed ids. Order is not preserved.
func (v *Vacancies) Exclude(name string, targets []string) []string {
	drop := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		drop[target] = struct{}{}
	}
	return v.excludeBy(func(va *Vacancy) bool {
		_, ok := drop[va.GetStringField(name)]
		return ok
	})
}

// ExcludeWithTest removes vacancies that require a test before applying.
func (v *Vacancies) ExcludeWithTest() []string {
	return v.excludeBy(func(va *Vacancy) bool { return va.HasTest })
}

// ExcludeArchived removes archived vacancies and returns their ids. Order is not preserved.
func (v *Vacancies) ExcludeArchived() []string {
	return v.excludeBy(func(va *Vacancy) bool { return va.Archived })
}

// excludeBy removes nil vacancies and those matching drop.
func (v *Vacancies) excludeBy(drop func(*Vacancy) bool) []string {
	var excluded []string
	for idx := 0; idx < len(v.Items); {
		va := v.Items[idx]
		if va == nil || drop(va) {
			if va != nil {
				excluded = append(excluded, va.ID)
			}
			v.RemoveByIndex(idx)
			continue
		}
		idx++
	}
	return excluded
}

// RemoveByIndex remove vacancy from list by index. Do not preserve order.
func (v *Vacancies) RemoveByIndex(idx int) {
	v.Items[idx] = v.Items[len(v.Items)-1]
	v.Items = v.Items[:len(v.Items)-1]
}

// Summary is a short human readable label used in interactive menus.
func (va *Vacancy) Summary() string {
	parts := []string{va.Name}
	if va.Employer.Name != "" {
		parts = append(parts, va.Employer.Name)
	}
	if va.Area.Name != "" {
		parts = append(parts, va.Area.Name)
	}
	return strings.Join(parts, " / ")
}
