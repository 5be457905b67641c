package cmd

import (
	"log"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the profile, scoring rules and tech dictionary",
	Run: func(_ *cobra.Command, _ []string) {
		validate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validate() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	in, err := loadInputs(config, logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration is valid",
		zap.String("profile", in.profile.Name),
		zap.Strings("roles", in.profile.Roles),
		zap.Strings("skill_categories", in.profile.SkillCategories()),
		zap.Any("weights", weights(in.rules)),
		zap.Int("dictionary_terms", in.dictionary.Len()),
	)
}

func weights(rules *config.ScoringRules) map[string]float64 {
	out := make(map[string]float64, len(config.ComponentOrder))
	for _, name := range config.ComponentOrder {
		out[name] = rules.Weight(name)
	}
	return out
}
