package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/account"
	"venture-backend/internal/agent"
	agentopenai "venture-backend/internal/agent/openai"
	"venture-backend/internal/analyses"
	googleauth "venture-backend/internal/auth"
	"venture-backend/internal/businesses"
	"venture-backend/internal/owners"
	"venture-backend/internal/shared/config"
	"venture-backend/internal/shared/server"
	"venture-backend/internal/shared/storage/db"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	BusinessRepo    businesses.Repo
	OwnersRepo      owners.Repo
	Agent           agent.Agent
	BusinessService *businesses.Service
	AnalysisService *analyses.Service
	AccountService  *account.Service
	OwnersService   *owners.Service
	BusinessHandler *businesses.Handler
	AnalysisHandler *analyses.Handler
	AccountHandler  *account.Handler
	OwnersHandler   *owners.Handler
	GoogleAuth      *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          app.Config,
		BusinessHandler: app.BusinessHandler,
		AnalysisHandler: app.AnalysisHandler,
		AccountHandler:  app.AccountHandler,
		OwnerHandler:    app.OwnersHandler,
		GoogleAuth:      app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var businessRepo businesses.Repo
	var ownerRepo owners.Repo
	if app.DB != nil {
		businessRepo = &businesses.PGRepo{DB: app.DB}
		ownerRepo = &owners.PGRepo{DB: app.DB}
	} else {
		businessRepo = businesses.NewMemoryRepo()
		ownerRepo = owners.NewMemoryRepo()
	}

	analysisAgent := agent.Agent(agent.Placeholder{})
	if app.Config.AgentProvider == "openai" {
		client, err := agentopenai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.AgentModel, app.Config.AgentTimeout)
		if err != nil {
			return err
		}
		analysisAgent = client
	}

	analysisSvc := analyses.NewService(businessRepo, analysisAgent)
	businessSvc := &businesses.Service{
		Repo:         businessRepo,
		Runner:       analysisSvc,
		KickoffDelay: app.Config.AnalysisKickoff,
	}
	ownerSvc := owners.NewService(ownerRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		ownerSvc,
	)

	app.BusinessRepo = businessRepo
	app.OwnersRepo = ownerRepo
	app.Agent = analysisAgent
	app.BusinessService = businessSvc
	app.AnalysisService = analysisSvc
	app.AccountService = account.NewService(businessRepo)
	app.OwnersService = ownerSvc
	app.BusinessHandler = businesses.NewHandler(businessSvc)
	app.AnalysisHandler = analyses.NewHandler(analysisSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.OwnersHandler = owners.NewHandler(ownerSvc)
	app.GoogleAuth = googleAuthSvc

	return nil
}
