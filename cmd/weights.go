package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-matcher/internal/matching"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Validate and print the weight table used for matching",
	Long: `Validate and print the weight table used for matching.

The table comes from matching.weights in the config file, or the built-in
defaults when none is configured. --set overrides single labels.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		overrides, err := cmd.Flags().GetStringToString("set")
		if err != nil {
			return err
		}
		return printWeights(cmd.OutOrStdout(), viper.GetString("matching.mode"), viper.GetStringMap("matching.weights"), overrides)
	},
}

func init() {
	rootCmd.AddCommand(weightsCmd)

	weightsCmd.Flags().StringToString("set", nil, "override weights, e.g. --set semantic=0.4,skills=0.05")
}

func printWeights(w io.Writer, rawMode string, configured map[string]any, overrides map[string]string) error {
	mode, err := matching.ParseMode(rawMode)
	if err != nil {
		return err
	}

	weights, err := mergeWeights(configured, overrides)
	if err != nil {
		return err
	}

	agg, err := matching.NewAggregator(mode, weights)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "mode: %s\n", agg.Mode())
	table := agg.Table()
	for _, label := range matching.Labels {
		fmt.Fprintf(w, "  %-12s %.4f\n", label, table.Weight(label))
	}
	return nil
}

// mergeWeights returns nil when nothing is configured so that the defaults apply.
func mergeWeights(configured map[string]any, overrides map[string]string) (matching.Weights, error) {
	if len(configured) == 0 && len(overrides) == 0 {
		return nil, nil
	}

	raw := make(map[string]float64, len(configured)+len(overrides))
	if len(configured) == 0 {
		for label, weight := range matching.DefaultWeights {
			raw[string(label)] = weight
		}
	}
	for key, value := range configured {
		f, err := strconv.ParseFloat(strings.TrimSpace(fmt.Sprint(value)), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %s: %w", key, err)
		}
		raw[strings.ToLower(strings.TrimSpace(key))] = f
	}
	for key, value := range overrides {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %s: %w", key, err)
		}
		raw[strings.ToLower(strings.TrimSpace(key))] = f
	}

	return matching.ParseWeights(raw), nil
}
