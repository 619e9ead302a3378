package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jwaygroup/voc-backend/internal/cache"
	"github.com/jwaygroup/voc-backend/internal/db"
	vochttp "github.com/jwaygroup/voc-backend/internal/http"
	httpH "github.com/jwaygroup/voc-backend/internal/http/handlers"
	"github.com/jwaygroup/voc-backend/internal/pkg/logger"
	"github.com/jwaygroup/voc-backend/internal/repos"
	"github.com/jwaygroup/voc-backend/internal/services"
	"github.com/jwaygroup/voc-backend/internal/workflow"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Services Services
}

type Services struct {
	Idea       services.IdeaService
	Submission services.SubmissionService
}

type Handlers struct {
	Health      *httpH.HealthHandler
	Idea        *httpH.IdeaHandler
	Diagnostics *httpH.DiagnosticsHandler
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	// The server stays up without a reachable database so /test-db can
	// report what is wrong; data routes answer 500 until it recovers.
	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Warn("Postgres init failed", "error", err)
	}
	theDB := pg.DB()

	ideaRepo := repos.NewIdeaRepo(theDB, log)

	log.Info("Wiring services...")
	ideaService := services.NewIdeaService(log, ideaRepo)
	workflowClient := workflow.NewClient(log)

	var candidateCache services.CandidateCache
	if store, cacheErr := cache.NewCandidateStore(log); cacheErr != nil {
		log.Warn("Candidate cache unavailable, results will not persist", "error", cacheErr)
	} else {
		candidateCache = store
	}
	submissionService := services.NewSubmissionService(log, workflowClient, candidateCache)

	serviceset := Services{
		Idea:       ideaService,
		Submission: submissionService,
	}

	handlerset := wireHandlers(log, serviceset, pg)
	router := wireRouter(log, handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Services: serviceset,
	}, nil
}

func wireHandlers(log *logger.Logger, serviceset Services, pg *db.PostgresService) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(),
		Idea:        httpH.NewIdeaHandler(log, serviceset.Idea),
		Diagnostics: httpH.NewDiagnosticsHandler(log, pg),
	}
}

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	return vochttp.NewRouter(vochttp.RouterConfig{
		Log:                log,
		HealthHandler:      handlerset.Health,
		IdeaHandler:        handlerset.Idea,
		DiagnosticsHandler: handlerset.Diagnostics,
	})
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
