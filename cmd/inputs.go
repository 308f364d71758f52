package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/filtering"
	"github.com/spigell/hh-matcher/internal/headhunter"
	"github.com/spigell/hh-matcher/internal/matching"
	"github.com/spigell/hh-matcher/internal/records"
	"github.com/spigell/hh-matcher/internal/secrets"
)

var errNoDirection = errors.New("either --posting with --profiles, or a profile (--profile or --hh-resume) with postings (--postings, --hh-vacancies or --hh-search) is required")

// inputs holds one side of the match and the records it is compared with.
type inputs struct {
	posting  *matching.Posting
	profiles []matching.Profile

	profile  *matching.Profile
	postings []matching.Posting

	// vacancies is set when postings came from hh.ru.
	vacancies *headhunter.Vacancies
}

func (in *inputs) describe(postingID string) string {
	if in.vacancies == nil {
		return ""
	}
	if v := in.vacancies.FindByID(postingID); v != nil {
		return v.Summary()
	}
	return ""
}

func loadInputs(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (*inputs, error) {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}

	if path := flag("posting"); path != "" {
		posting, err := records.LoadPosting(path)
		if err != nil {
			return nil, err
		}
		profilesPath := flag("profiles")
		if profilesPath == "" {
			return nil, errNoDirection
		}
		profiles, err := records.LoadProfiles(profilesPath)
		if err != nil {
			return nil, err
		}
		return &inputs{posting: &posting, profiles: profiles}, nil
	}

	in := &inputs{}
	hhSearch, _ := cmd.Flags().GetBool("hh-search")

	var hh *headhunter.Client
	client := func() (*headhunter.Client, error) {
		if hh != nil {
			return hh, nil
		}
		var err error
		hh, err = newHHClient(config, logger)
		return hh, err
	}

	switch {
	case flag("profile") != "":
		profile, err := records.LoadProfile(flag("profile"))
		if err != nil {
			return nil, err
		}
		in.profile = &profile
	case strings.TrimSpace(config.HH.Resume) != "":
		hh, err := client()
		if err != nil {
			return nil, err
		}
		profile, err := resumeProfile(ctx, hh, config.HH.Resume, logger)
		if err != nil {
			return nil, err
		}
		in.profile = &profile
	default:
		return nil, errNoDirection
	}

	switch {
	case flag("postings") != "":
		postings, err := records.LoadPostings(flag("postings"))
		if err != nil {
			return nil, err
		}
		in.postings = postings
		return in, nil
	case flag("hh-vacancies") != "":
		vacancies, err := headhunter.LoadVacancies(flag("hh-vacancies"))
		if err != nil {
			return nil, err
		}
		in.vacancies = vacancies
	case hhSearch:
		hh, err := client()
		if err != nil {
			return nil, err
		}
		details, _ := cmd.Flags().GetBool("hh-details")
		vacancies, err := getVacancies(ctx, hh, config, details, logger)
		if err != nil {
			return nil, err
		}
		in.vacancies = vacancies
	default:
		return nil, errNoDirection
	}

	filtered, err := prepareFilters(config, logger).RunFilters(ctx, in.vacancies)
	if err != nil {
		return nil, fmt.Errorf("filtering vacancies: %w", err)
	}
	in.vacancies = filtered
	in.postings = filtered.ToPostings()

	return in, nil
}

func newHHClient(config *Config, logger *zap.Logger) (*headhunter.Client, error) {
	token, err := secrets.Load(secrets.Source{
		Name: "headhunter token",
		File: strings.TrimSpace(config.HH.TokenFile),
		Env:  "HH_TOKEN",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set HH_TOKEN_FILE or hh.token-file)", err)
	}

	hh := headhunter.New(logger, token)
	if config.HH.UserAgent != "" {
		hh.UserAgent = config.HH.UserAgent
	}
	return hh, nil
}

func resumeProfile(ctx context.Context, hh *headhunter.Client, title string, logger *zap.Logger) (matching.Profile, error) {
	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		return matching.Profile{}, fmt.Errorf("getting mine resumes: %w", err)
	}

	logger.Info("getting mine resumes", zap.Int("count", resumes.Len()))

	selected := resumes.FindByTitle(title)
	if selected == nil {
		return matching.Profile{}, fmt.Errorf("resume %q not found, existing titles: %s", title, strings.Join(resumes.Titles(), ", "))
	}

	details, err := hh.GetResumeDetails(ctx, selected.ID)
	if err != nil {
		return matching.Profile{}, fmt.Errorf("getting resume %s: %w", selected.ID, err)
	}

	return details.Profile()
}

// getVacancies returns the vacancies found by the configured search.
func getVacancies(ctx context.Context, hh *headhunter.Client, config *Config, details bool, logger *zap.Logger) (*headhunter.Vacancies, error) {
	if config.HH.Search != nil {
		logger.Info("starting the search", zap.String("search", config.HH.Search.Text))
	}

	results, err := hh.Search(ctx, config.HH.Search)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	logger.Info("getting vacancies", zap.Int("count", results.Len()))

	if details && results.Len() > 0 {
		if err := hh.FetchDetails(ctx, results); err != nil {
			return nil, fmt.Errorf("fetching vacancy details: %w", err)
		}
	}

	return results, nil
}

func prepareFilters(config *Config, logger *zap.Logger) *filtering.Filtering {
	steps := []filtering.Filter{
		filtering.NewWithTest(),
		filtering.NewArchived(),
		filtering.NewExcludedEmployers(config.HH.ExcludeEmployers),
		filtering.NewExcludeFile(config.HH.ExcludeFile),
	}

	return filtering.New(steps, logger)
}
