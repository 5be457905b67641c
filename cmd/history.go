package cmd

import (
	"context"
	"log"
	"time"

	"github.com/DmtiriyK/Job-finder-V2/internal/export"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved ranking runs",
	Run: func(cmd *cobra.Command, _ []string) {
		history(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "l", 10, "how many runs to list (0 lists all)")
	historyCmd.Flags().StringP("run", "r", "", "show the ranked postings of a run")
}

func history(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := app + ".db"
	if config.Store != nil && config.Store.Path != "" {
		path = config.Store.Path
	}

	lockCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.Open(lockCtx, path, logger)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("path", path))
	}
	defer st.Close()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		ranked, err := st.RunPostings(ctx, runID)
		if err != nil {
			logger.Fatal("reading run", zap.Error(err), zap.String("run_id", runID))
		}
		for i, p := range ranked {
			logger.Info("ranked posting",
				zap.Int("rank", i+1),
				zap.Float64("score", p.ScoreValue()),
				zap.String("title", p.Title),
				zap.String("company", p.Company),
				zap.String("breakdown", export.Breakdown(p.Score)),
				zap.String("url", p.URL),
			)
		}
		return
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		logger.Fatal("listing runs", zap.Error(err))
	}
	if len(runs) == 0 {
		logger.Info("no saved runs", zap.String("path", path))
		return
	}

	for _, r := range runs {
		logger.Info("run",
			zap.String("run_id", r.ID),
			zap.Time("started_at", r.StartedAt),
			zap.String("profile", r.Profile),
			zap.Int("input", r.Input),
			zap.Int("ranked", r.Ranked),
			zap.Float64("top_score", r.TopScore),
			zap.String("stats", string(r.Stats)),
		)
	}
}
