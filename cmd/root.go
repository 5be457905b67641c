package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/DmtiriyK/Job-finder-V2/internal/dedup"
	"github.com/DmtiriyK/Job-finder-V2/internal/filtering"
	"github.com/DmtiriyK/Job-finder-V2/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "jobfinder"
)

type Config struct {
	Profile    string             `mapstructure:"profile"`
	Rules      string             `mapstructure:"rules"`
	Dictionary string             `mapstructure:"dictionary"`
	Postings   string             `mapstructure:"postings"`
	Pipeline   pipeline.Options   `mapstructure:"pipeline"`
	Filter     filtering.Criteria `mapstructure:"filter"`
	Dedup      dedup.Options      `mapstructure:"dedup"`
	Export     *ExportConfig      `mapstructure:"export"`
	Store      *StoreConfig       `mapstructure:"store"`
}

type ExportConfig struct {
	Excel string `mapstructure:"excel"`
	JSON  string `mapstructure:"json"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobfinder ranks collected job postings against your profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"profile":    "JOBFINDER_PROFILE",
		"rules":      "JOBFINDER_RULES",
		"dictionary": "JOBFINDER_DICTIONARY",
		"postings":   "JOBFINDER_POSTINGS",
		"store.path": "JOBFINDER_STORE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("profile", "configs/profile.example.yaml")
	viper.SetDefault("rules", "configs/scoring_rules.yaml")
	viper.SetDefault("postings", "postings.json")
	viper.SetDefault("dedup.threshold", dedup.DefaultThreshold)
	viper.SetDefault("store.path", app+".db")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobfinder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("configs")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing default config falls back to defaults and env; anything else is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	config.Profile = strings.TrimSpace(config.Profile)
	config.Rules = strings.TrimSpace(config.Rules)
	config.Postings = strings.TrimSpace(config.Postings)

	return config, nil
}
