package cmd

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/example/flashstack/internal/ai"
	"github.com/example/flashstack/internal/config"
	"github.com/example/flashstack/internal/database"
	"github.com/example/flashstack/internal/logger"
	"github.com/example/flashstack/internal/masterytest"
	"github.com/example/flashstack/internal/review"
	"github.com/example/flashstack/internal/spaced_repetition"
	"github.com/example/flashstack/internal/streak"
	"github.com/example/flashstack/internal/sweep"
)

// app holds the wired components shared by the commands
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *sqlx.DB
	repos  *database.Repositories
	engine *streak.Engine
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Connect(cfg.DBType, cfg.DSN())
	if err != nil {
		return nil, err
	}
	log.Info("database connected", "type", cfg.DBType)

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		repos:  database.NewRepositories(db),
		engine: streak.NewEngine(cfg.DailyGoal, cfg.Location()),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("close database", "error", err)
	}
	a.log.Sync()
}

func (a *app) runner(notifier sweep.Notifier) *sweep.Runner {
	return sweep.NewRunner(sweep.NewSQLStore(a.db), a.engine, notifier, a.log.With("component", "sweep"))
}

func (a *app) reviewService() *review.Service {
	return review.NewService(a.repos, spaced_repetition.NewSM2(), a.engine, a.cfg.MasteryThreshold,
		a.log.With("component", "review"))
}

func (a *app) testModule() *masterytest.Module {
	var grader masterytest.AnswerGrader
	gpt, err := ai.New(ai.Config{APIKey: a.cfg.OpenAIAPIKey, Model: a.cfg.OpenAIModel})
	switch {
	case err == nil:
		grader = gpt
	case errors.Is(err, ai.ErrGraderUnavailable):
		a.log.Info("ai grading disabled: OPENAI_API_KEY not set")
	default:
		a.log.Warn("ai grading disabled", "error", err)
	}
	return masterytest.NewModule(a.repos, a.engine, grader, a.cfg.TestPassRatio, a.log.With("component", "masterytest"))
}
