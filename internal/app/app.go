package app

import (
	"fmt"

	"github.com/goalpal/goalpal/internal/config"
	"github.com/goalpal/goalpal/internal/db"
	"github.com/goalpal/goalpal/internal/llm"
	"github.com/goalpal/goalpal/internal/plangen"
	"github.com/goalpal/goalpal/internal/repository"
	"github.com/goalpal/goalpal/internal/service"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	RosterService    *service.RosterService
	WizardService    *service.WizardService
	GoalGroupService *service.GoalGroupService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	goGetterRepository := repository.NewGoGetterRepository(database)
	targetRepository := repository.NewTargetRepository(database)
	planRepository := repository.NewPlanRepository(database)
	goalGroupRepository := repository.NewGoalGroupRepository(database)
	wizardRepository := repository.NewWizardRepository(database)

	// Plan generation
	client := llm.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	generator := plangen.NewLLMGenerator(client)

	// Services
	rosterService := service.NewRosterService(goGetterRepository, targetRepository)
	feasibility := service.NewFeasibilityEngine(planRepository, goalGroupRepository, client, cfg.DailyMinutesLimit)
	wizardService := service.NewWizardService(
		wizardRepository,
		targetRepository,
		planRepository,
		goalGroupRepository,
		goGetterRepository,
		feasibility,
		generator,
		cfg.WizardTTL,
		cfg.GenerateTimeout,
	)
	goalGroupService := service.NewGoalGroupService(
		goalGroupRepository,
		targetRepository,
		planRepository,
		goGetterRepository,
		generator,
		cfg.ChangeCooldown,
		cfg.GenerateTimeout,
	)

	return &App{
		Cfg:              cfg,
		DB:               database,
		RosterService:    rosterService,
		WizardService:    wizardService,
		GoalGroupService: goalGroupService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
