package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hh-matcher/internal/headhunter"
)

const (
	app = "hh-matcher"
)

type Config struct {
	Matching MatchingConfig `mapstructure:"matching"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	HH       HHConfig       `mapstructure:"hh"`
}

type MatchingConfig struct {
	Mode        string             `mapstructure:"mode" validate:"omitempty,oneof=full full-field two-factor two_factor text"`
	Threshold   float64            `mapstructure:"threshold" validate:"gte=0,lte=1"`
	Workers     int                `mapstructure:"workers" validate:"gte=0"`
	Weights     map[string]float64 `mapstructure:"weights"`
	Vocabulary  []string           `mapstructure:"vocabulary"`
	WholeWords  bool               `mapstructure:"whole-words"`
	PairTimeout time.Duration      `mapstructure:"pair-timeout" validate:"gte=0"`
}

type OracleConfig struct {
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=lexical gemini"`
	Lexical  LexicalConfig `mapstructure:"lexical"`
	Gemini   GeminiConfig  `mapstructure:"gemini"`
	Store    StoreConfig   `mapstructure:"store"`
}

type LexicalConfig struct {
	StopWords []string `mapstructure:"stop-words"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api-key" json:"-"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	MaxRetries        int     `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength      int     `mapstructure:"max-log-length" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second" validate:"gte=0"`
}

// StoreConfig enables the persistent similarity cache when Path is set.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type HHConfig struct {
	TokenFile        string                   `mapstructure:"token-file"`
	UserAgent        string                   `mapstructure:"user-agent"`
	Search           *headhunter.SearchParams `mapstructure:"search"`
	ExcludeFile      string                   `mapstructure:"exclude-file"`
	ExcludeEmployers []string                 `mapstructure:"exclude-employers"`
	Resume           string                   `mapstructure:"resume"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hh-matcher scores candidate profiles against job postings and ranks the matches",
	}

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("hh.token-file", "HH_TOKEN_FILE"); err != nil {
		log.Fatalf("binding HH_TOKEN_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("oracle.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hh-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("matching.mode", "full")
	v.SetDefault("matching.pair-timeout", 30*time.Second)
	v.SetDefault("oracle.provider", "lexical")
	v.SetDefault("oracle.gemini.max-retries", 3)
	v.SetDefault("oracle.gemini.max-log-length", 200)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a flag or a default, so the config file is optional
	// unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &config, nil
}
