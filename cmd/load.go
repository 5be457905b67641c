package cmd

import (
	"fmt"

	"github.com/DmtiriyK/Job-finder-V2/internal/config"

	"go.uber.org/zap"
)

// inputs are the validated documents a ranking run needs.
type inputs struct {
	profile    *config.Profile
	rules      *config.ScoringRules
	dictionary *config.Dictionary
}

// loadInputs loads the profile, scoring rules and dictionary. Any
// configuration defect fails here, before a posting is read.
func loadInputs(cfg *Config, logger *zap.Logger) (*inputs, error) {
	profile, err := config.LoadProfile(cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	for _, w := range profile.Validate().Warnings {
		logger.Warn("profile", zap.String("warning", w), zap.String("path", cfg.Profile))
	}

	rules, err := config.LoadRules(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("scoring rules: %w", err)
	}
	for _, w := range rules.Validate().Warnings {
		logger.Warn("scoring rules", zap.String("warning", w), zap.String("path", cfg.Rules))
	}

	dictionary, err := config.LoadDictionary(cfg.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("tech dictionary: %w", err)
	}

	logger.Debug("configuration loaded",
		zap.String("profile", profile.Name),
		zap.Int("skills", len(profile.SkillNames())),
		zap.Int("tech_terms", len(rules.TechScores())),
		zap.Int("keywords", len(rules.KeywordScores())),
		zap.Int("dictionary_terms", dictionary.Len()),
		zap.Strings("categories", dictionary.Categories()),
	)

	return &inputs{profile: profile, rules: rules, dictionary: dictionary}, nil
}
