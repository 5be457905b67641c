package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/DmtiriyK/Job-finder-V2/internal/export"
	"github.com/DmtiriyK/Job-finder-V2/internal/filtering"
	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
	"github.com/DmtiriyK/Job-finder-V2/internal/pipeline"
	"github.com/DmtiriyK/Job-finder-V2/internal/posting"
	"github.com/DmtiriyK/Job-finder-V2/internal/store"
	"github.com/DmtiriyK/Job-finder-V2/internal/util"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptExportExcel      = "Export spreadsheet"
	PromptDumpJSON         = "Dump ranked postings to JSON"
	PromptReportByCompany  = "Report by company"
	PromptPostingsToFile   = "Dump ranked postings to tmp file"
	PromptSaveToStore      = "Save run to store"
	PromptExit             = "Exit"
	defaultExcelPath       = "ranked.xlsx"
	defaultJSONPath        = "ranked.json"
	explanationLogMaxRunes = 400
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptExportExcel, PromptDumpJSON, PromptReportByCompany, PromptPostingsToFile, PromptSaveToStore, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank collected postings against the profile",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("postings", "p", "", "JSON file with postings produced by the connectors")
	rankCmd.Flags().IntP("top-n", "n", 0, "keep only the N best postings (0 keeps all)")
	rankCmd.Flags().BoolP("auto-approve", "y", false, "do not ask, run the configured exports and save the run")
	rankCmd.Flags().StringSlice("disable-filter", nil, "filter steps to skip, e.g. max_age,seniority")

	viper.BindPFlag("postings", rankCmd.Flags().Lookup("postings"))
	viper.BindPFlag("pipeline.top-n", rankCmd.Flags().Lookup("top-n"))
}

// run state shared by the menu actions.
type session struct {
	config *Config
	in     *inputs
	result *pipeline.Result
	logger *zap.Logger
	saved  bool
}

// rank is the main command for the cli.
func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	runID := uuid.NewString()
	base := logger
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("starting the jobfinder", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	in, err := loadInputs(config, logger)
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}

	postings, err := posting.LoadFile(config.Postings)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err), zap.String("path", config.Postings))
	}
	logger.Info("loaded postings", zap.Int("count", postings.Len()), zap.String("path", config.Postings))

	filters := filtering.Default()
	disabled, _ := cmd.Flags().GetStringSlice("disable-filter")
	for _, name := range disabled {
		filtering.DisableByName(filters, strings.TrimSpace(name), "disabled by flag")
	}

	p, err := pipeline.New(pipeline.Config{
		Profile:    in.profile,
		Rules:      in.rules,
		Dictionary: in.dictionary,
		Criteria:   config.Filter,
		Dedup:      config.Dedup,
		Options:    config.Pipeline,
		Filters:    filters,
		RunID:      runID,
	}, base)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	for _, status := range filtering.Describe(filters) {
		logger.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	result, err := p.Run(ctx, postings.Items)
	if err != nil {
		logger.Fatal("ranking failed", zap.Error(err))
	}

	if len(result.Ranked) == 0 {
		logger.Info("exiting", zap.String("reason", "no posting reached the minimum score"))
		return
	}

	logRanking(logger, result.Ranked)

	s := &session{config: config, in: in, result: result, logger: logger}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		if err := s.autoApprove(ctx); err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func logRanking(logger *zap.Logger, ranked []*posting.Posting) {
	for i, p := range ranked {
		logger.Info("ranked posting",
			zap.Int("rank", i+1),
			zap.Float64("score", p.ScoreValue()),
			zap.String("title", p.Title),
			zap.String("company", p.Company),
			zap.String("remote", string(p.Remote)),
			zap.String("url", p.URL),
		)
		if p.Scored() {
			logger.Debug("score explanation",
				zap.String("posting_id", p.ID),
				zap.String("explanation", util.TruncateForLog(p.Score.Explanation, explanationLogMaxRunes)),
			)
		}
	}
}

func (s *session) handleAction(ctx context.Context, action string) error {
	ranked := s.result.Ranked

	switch action {
	case PromptExportExcel:
		return s.exportExcel(pathOr(s.excelPath(), defaultExcelPath))
	case PromptDumpJSON:
		return s.dumpJSON(pathOr(s.jsonPath(), defaultJSONPath))
	case PromptReportByCompany:
		report := (&posting.Postings{Items: ranked}).ReportByCompany()
		pretty, _ := json.MarshalIndent(report, "", "  ")
		s.logger.Info(string(pretty), zap.Int("postings count", len(ranked)))
		return nil
	case PromptPostingsToFile:
		filename, err := (&posting.Postings{Items: ranked}).DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptSaveToStore:
		return s.save(ctx)
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// autoApprove runs every configured output: spreadsheet, JSON and store.
func (s *session) autoApprove(ctx context.Context) error {
	if path := s.excelPath(); path != "" {
		if err := s.exportExcel(path); err != nil {
			return err
		}
	}
	if path := s.jsonPath(); path != "" {
		if err := s.dumpJSON(path); err != nil {
			return err
		}
	}
	if s.config.Store != nil && s.config.Store.Path != "" {
		return s.save(ctx)
	}
	return nil
}

func (s *session) exportExcel(path string) error {
	written, err := export.ToExcel(s.result.Ranked, s.in.profile, path)
	if err != nil {
		return fmt.Errorf("export spreadsheet: %w", err)
	}
	s.logger.Info("exported spreadsheet", zap.String("filename", written), zap.Int("count", len(s.result.Ranked)))
	return nil
}

func (s *session) dumpJSON(path string) error {
	if err := export.WriteJSON(path, s.result.Ranked, s.in.profile); err != nil {
		return fmt.Errorf("dump json: %w", err)
	}
	s.logger.Info("dumped ranked postings", zap.String("filename", path), zap.Int("count", len(s.result.Ranked)))
	return nil
}

func (s *session) save(ctx context.Context) error {
	if s.saved {
		s.logger.Info("run already saved", zap.String("run_id", s.result.RunID))
		return nil
	}

	path := app + ".db"
	if s.config.Store != nil && s.config.Store.Path != "" {
		path = s.config.Store.Path
	}

	lockCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.Open(lockCtx, path, s.logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	stats, _ := json.Marshal(s.result.Stats)
	run := store.Run{
		ID:      s.result.RunID,
		Profile: s.in.profile.Name,
		Input:   s.result.Stats.Input,
		Stats:   stats,
	}
	if err := st.SaveRun(ctx, run, s.result.Ranked); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	s.saved = true
	return nil
}

func (s *session) excelPath() string {
	if s.config.Export == nil {
		return ""
	}
	return s.config.Export.Excel
}

func (s *session) jsonPath() string {
	if s.config.Export == nil {
		return ""
	}
	return s.config.Export.JSON
}

func pathOr(path, fallback string) string {
	if strings.TrimSpace(path) == "" {
		return fallback
	}
	return path
}
