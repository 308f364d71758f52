package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/matching"
)

const (
	PromptShowMatches     = "Show matches"
	PromptShowFailures    = "Show failures"
	PromptDumpToFile      = "Dump results to file"
	PromptVacanciesToFile = "Dump vacancies to file"
	PromptExit            = "Exit"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score profiles against a posting, or postings against a profile",
	Example: `  hh-matcher match --posting posting.yaml --profiles candidates.yaml
  hh-matcher match --profile me.yaml --postings postings.json
  hh-matcher match --hh-resume "Go developer" --hh-search`,
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	addMatchFlags(matchCmd)

	viper.BindPFlag("matching.threshold", matchCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("matching.mode", matchCmd.Flags().Lookup("mode"))
	viper.BindPFlag("matching.workers", matchCmd.Flags().Lookup("workers"))
	viper.BindPFlag("hh.exclude-file", matchCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("hh.resume", matchCmd.Flags().Lookup("hh-resume"))
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("posting", "", "file with one posting to rank profiles against")
	cmd.Flags().String("profiles", "", "file with candidate profiles")
	cmd.Flags().String("profile", "", "file with one profile to rank postings for")
	cmd.Flags().String("postings", "", "file with postings")
	cmd.Flags().String("hh-vacancies", "", "hh.ru vacancies dump to use as postings")
	cmd.Flags().Bool("hh-search", false, "search hh.ru with the hh.search config and use the results as postings")
	cmd.Flags().Bool("hh-details", true, "fetch full vacancy descriptions for hh.ru search results")
	cmd.Flags().String("hh-resume", "", "title of your hh.ru resume to use as the profile")
	cmd.Flags().Float64P("threshold", "t", 0, "drop matches scoring below this value")
	cmd.Flags().StringP("mode", "m", "", "aggregation mode: full or two-factor")
	cmd.Flags().IntP("workers", "w", 0, "pairs scored concurrently (default is the number of CPUs)")
	cmd.Flags().StringP("exclude-file", "e", "", "file with hh.ru vacancy ids to skip, one per line")
	cmd.Flags().BoolP("auto-approve", "y", false, "print matches and exit without the interactive menu")
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	if err := runMatch(ctx, cmd, logger); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// openOracle is replaced in tests.
var openOracle = newOracle

func runMatch(ctx context.Context, cmd *cobra.Command, logger *zap.Logger) error {
	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	logger.Info("starting the hh-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	mode, err := matching.ParseMode(config.Matching.Mode)
	if err != nil {
		return fmt.Errorf("parsing matching mode: %w", err)
	}
	weights := matching.ParseWeights(config.Matching.Weights)

	sim, closeOracle, err := openOracle(ctx, config.Oracle, logger)
	if err != nil {
		return fmt.Errorf("building the similarity oracle: %w", err)
	}
	defer closeOracle()

	vocabulary := newVocabulary(config.Matching)
	logger.Debug("skill vocabulary",
		zap.Strings("terms", vocabulary.Terms()),
		zap.Bool("whole_words", vocabulary.WholeWords()),
	)

	engine := matching.New(sim,
		matching.WithLogger(logger),
		matching.WithWorkers(config.Matching.Workers),
		matching.WithPairTimeout(config.Matching.PairTimeout),
		matching.WithVocabulary(vocabulary),
	)

	in, err := loadInputs(ctx, cmd, config, logger)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	var batch *matching.MatchBatch
	switch {
	case in.posting != nil:
		logger.Info("ranking profiles for posting",
			zap.String("posting_id", in.posting.ID),
			zap.Int("profiles", len(in.profiles)),
		)
		batch, err = engine.MatchBatch(ctx, in.profiles, *in.posting, config.Matching.Threshold, mode, weights)
	default:
		logger.Info("ranking postings for profile",
			zap.String("profile_id", in.profile.ID),
			zap.Int("postings", len(in.postings)),
		)
		batch, err = engine.MatchPostings(ctx, *in.profile, in.postings, config.Matching.Threshold, mode, weights)
	}
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	if batch.Len() == 0 && len(batch.Failures) == 0 {
		logger.Info("exiting", zap.String("reason", "no matches above threshold"), zap.Int("dropped", batch.Dropped))
		return nil
	}

	if autoApprove, _ := cmd.Flags().GetBool("auto-approve"); autoApprove {
		showMatches(logger, batch, in)
		showFailures(logger, batch)
		return nil
	}

	prompt := promptui.Select{
		Label: "What next?",
		Items: menuItems(in),
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}

		if err := handleAction(action, logger, batch, in); err != nil {
			return err
		}
	}
}

// newVocabulary returns the configured skill vocabulary, falling back to the
// built-in terms.
func newVocabulary(cfg MatchingConfig) matching.Vocabulary {
	terms := cfg.Vocabulary
	if len(terms) == 0 {
		terms = matching.DefaultVocabulary.Terms()
	}

	var opts []matching.VocabularyOption
	if cfg.WholeWords {
		opts = append(opts, matching.WithWholeWords())
	}
	return matching.NewVocabulary(terms, opts...)
}

func menuItems(in *inputs) []string {
	items := []string{PromptShowMatches, PromptShowFailures, PromptDumpToFile}
	if in.vacancies != nil {
		items = append(items, PromptVacanciesToFile)
	}
	return append(items, PromptExit)
}

func handleAction(action string, logger *zap.Logger, batch *matching.MatchBatch, in *inputs) error {
	switch action {
	case PromptShowMatches:
		showMatches(logger, batch, in)
		return nil
	case PromptShowFailures:
		showFailures(logger, batch)
		return nil
	case PromptDumpToFile:
		filename, err := batch.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptVacanciesToFile:
		if in.vacancies == nil {
			return errors.New("no hh.ru vacancies loaded")
		}
		filename, err := in.vacancies.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump vacancies to file: %w", err)
		}
		logger.Info("dumping vacancies to file", zap.String("filename", filename), zap.Int("count", in.vacancies.Len()))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showMatches(l *zap.Logger, batch *matching.MatchBatch, in *inputs) {
	for _, r := range batch.Results {
		fields := []zap.Field{
			zap.Int("rank", r.Rank),
			zap.Float64("total_score", r.TotalScore),
		}
		fields = append(fields, logger.PairFields(r.ProfileID, r.PostingID)...)
		if summary := in.describe(r.PostingID); summary != "" {
			fields = append(fields, zap.String("posting", summary))
		}
		for _, s := range r.Breakdown {
			fields = append(fields, zap.Float64(string(s.Label), s.Value))
		}
		if r.OracleFailed() {
			fields = append(fields, zap.Bool("oracle_failed", true))
		}
		l.Info("match", fields...)
	}

	summary := []zap.Field{
		zap.String("batch_id", batch.ID),
		zap.Int("ranked", batch.Len()),
		zap.Int("dropped", batch.Dropped),
		zap.Int("failed", len(batch.Failures)),
	}
	if batch.Cancelled {
		summary = append(summary, zap.Bool("cancelled", true), zap.Int("skipped", batch.Skipped))
	}
	l.Info("current list of matches", summary...)
}

func showFailures(l *zap.Logger, batch *matching.MatchBatch) {
	if len(batch.Failures) == 0 {
		l.Info("no failed pairs")
		return
	}
	for _, f := range batch.Failures {
		l.Warn("pair failed",
			append(logger.PairFields(f.ProfileID, f.PostingID),
				zap.String("kind", string(f.Kind)),
				zap.String("message", f.Message),
			)...,
		)
	}
}
