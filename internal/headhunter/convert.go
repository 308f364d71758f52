package headhunter

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/spigell/hh-matcher/internal/matching"
)

// hh.ru dictionary ids.
const (
	scheduleRemote   = "remote"
	scheduleFlexible = "flexible"

	workFormatRemote = "REMOTE"
	workFormatHybrid = "HYBRID"
	workFormatOnSite = "ON_SITE"
)

// ToPosting converts a vacancy into a matching record.
func (va *Vacancy) ToPosting() matching.Posting {
	description := HTMLToText(va.Description)
	if description == "" {
		description = strings.TrimSpace(HTMLToText(va.Snipet.Requirement) + "\n" + HTMLToText(va.Snipet.Responsibility))
	}

	skills := make([]string, 0, len(va.KeySkills))
	for _, s := range va.KeySkills {
		if name := strings.TrimSpace(s.Name); name != "" {
			skills = append(skills, name)
		}
	}

	return matching.Posting{
		ID:          va.ID,
		Description: description,
		Attributes: matching.Attributes{
			Title:      va.Name,
			Experience: va.Experience.ID,
			WorkFormat: va.workFormat(),
			Area:       va.Area.Name,
			Salary:     salaryRange(va.Salary.From, va.Salary.To),
		},
		Skills:            skills,
		RelocationAllowed: va.AcceptRelocation,
	}
}

// ToPostings converts every vacancy, skipping nil entries.
func (v *Vacancies) ToPostings() []matching.Posting {
	postings := make([]matching.Posting, 0, len(v.Items))
	for _, vacancy := range v.Items {
		if vacancy == nil {
			continue
		}
		postings = append(postings, vacancy.ToPosting())
	}
	return postings
}

func (va *Vacancy) workFormat() string {
	if len(va.WorkFormat) > 0 {
		formats := make(map[string]bool, len(va.WorkFormat))
		for _, f := range va.WorkFormat {
			formats[strings.ToUpper(f.ID)] = true
		}
		switch {
		case formats[workFormatHybrid], formats[workFormatRemote] && formats[workFormatOnSite]:
			return matching.WorkFormatHybrid
		case formats[workFormatRemote]:
			return matching.WorkFormatRemote
		default:
			return matching.WorkFormatOffice
		}
	}

	switch va.Schedule.ID {
	case "":
		return ""
	case scheduleRemote:
		return matching.WorkFormatRemote
	case scheduleFlexible:
		return matching.WorkFormatHybrid
	default:
		return matching.WorkFormatOffice
	}
}

func salaryRange(from, to int) *matching.SalaryRange {
	if from <= 0 && to <= 0 {
		return nil
	}
	return &matching.SalaryRange{From: max(from, 0), To: max(to, 0)}
}

// HTMLToText strips markup from an hh.ru description. Block elements become
// line breaks; invalid markup is returned trimmed as is.
func HTMLToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(text)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	return strings.TrimSpace(b.String())
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "br", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
		return true
	default:
		return false
	}
}

type hhResume struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Age   *int   `json:"age"`
	Area  struct {
		Name string `json:"name"`
	} `json:"area"`
	Salary *struct {
		Amount int `json:"amount"`
	} `json:"salary"`
	TotalExperience *struct {
		Months int `json:"months"`
	} `json:"total_experience"`
	Education struct {
		Level IDName `json:"level"`
	} `json:"education"`
	SkillSet   []string `json:"skill_set"`
	Skills     string   `json:"skills"`
	Schedules  []IDName `json:"schedules"`
	Experience []struct {
		Position    string `json:"position"`
		Description string `json:"description"`
	} `json:"experience"`
}

// ResumeToProfile converts a raw hh.ru resume into a matching record.
func ResumeToProfile(raw map[string]any) (matching.Profile, error) {
	var r hhResume
	if err := decodeJSONTagged(raw, &r); err != nil {
		return matching.Profile{}, fmt.Errorf("decode resume: %w", err)
	}

	profile := matching.Profile{
		ID:     r.ID,
		Skills: r.SkillSet,
		Attributes: matching.Attributes{
			Title:      r.Title,
			Education:  r.Education.Level.ID,
			Area:       r.Area.Name,
			WorkFormat: resumeWorkFormat(r.Schedules),
		},
	}

	if r.TotalExperience != nil {
		profile.Attributes.Experience = experienceBucket(r.TotalExperience.Months)
	}
	if r.Salary != nil && r.Salary.Amount > 0 {
		profile.Attributes.Salary = &matching.SalaryRange{From: r.Salary.Amount, To: r.Salary.Amount}
	}
	if r.Age != nil {
		age := strconv.Itoa(*r.Age)
		profile.Attributes.Age = matching.AgeRange{From: age, To: age}
	}

	parts := []string{r.Title, HTMLToText(r.Skills)}
	if len(r.SkillSet) > 0 {
		parts = append(parts, strings.Join(r.SkillSet, ", "))
	}
	for _, e := range r.Experience {
		parts = append(parts, e.Position, HTMLToText(e.Description))
	}
	profile.Description = joinNonEmpty(parts, "\n")

	return profile, nil
}

// experienceBucket maps total months onto hh.ru experience dictionary ids.
func experienceBucket(months int) string {
	switch {
	case months < 12:
		return "noExperience"
	case months < 36:
		return "between1And3"
	case months < 72:
		return "between3And6"
	default:
		return "moreThan6"
	}
}

func resumeWorkFormat(schedules []IDName) string {
	var remote, office bool
	for _, s := range schedules {
		switch s.ID {
		case scheduleRemote:
			remote = true
		case scheduleFlexible:
			return matching.WorkFormatHybrid
		case "":
		default:
			office = true
		}
	}
	switch {
	case remote && office:
		return matching.WorkFormatHybrid
	case remote:
		return matching.WorkFormatRemote
	case office:
		return matching.WorkFormatOffice
	default:
		return ""
	}
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
