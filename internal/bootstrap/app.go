package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docanalyzer/internal/auth"
	"docanalyzer/internal/documents"
	"docanalyzer/internal/extract"
	"docanalyzer/internal/lifecycle"
	"docanalyzer/internal/llm"
	openai "docanalyzer/internal/llm/openai"
	"docanalyzer/internal/ocr"
	"docanalyzer/internal/queue"
	"docanalyzer/internal/services/health"
	"docanalyzer/internal/shared/auth"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/server"
	"docanalyzer/internal/shared/storage/db"
	"docanalyzer/internal/shared/storage/object"
	localstore "docanalyzer/internal/shared/storage/object/local"
	s3store "docanalyzer/internal/shared/storage/object/s3"
	"docanalyzer/internal/shared/telemetry"
	"docanalyzer/internal/workerproc"
)

// App holds shared dependencies for the API and the workers.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Queue            queue.Client
	LocalQueue       *queue.LocalQueue
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	Extractor        *extract.Orchestrator
	LLM              llm.Client
	Coordinator      *lifecycle.Coordinator
	Dispatcher       *lifecycle.Dispatcher
	Signer           *auth.Signer
	DocumentsHandler *documents.Handler
	GoogleAuth       *googleauth.GoogleService
	Health           *health.Service
}

// Build prepares every dependency and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, dialect, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env, auth.WithTTL(cfg.JWTTTL))
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		LLM:    llmClient,
		Signer: signer,
	}

	if sqlDB != nil {
		app.DocumentsRepo = &documents.SQLRepo{DB: sqlDB}
		telemetry.Info("bootstrap.repository", map[string]any{"dialect": string(dialect)})
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
	}
	app.DocumentsService = &documents.Service{
		Store:           store,
		Repo:            app.DocumentsRepo,
		StorageProvider: cfg.ObjectStoreType,
	}

	app.Extractor = buildExtractor(cfg)
	app.Coordinator = &lifecycle.Coordinator{
		Repo:      app.DocumentsRepo,
		Store:     store,
		Extractor: app.Extractor,
		LLM:       llmClient,
	}

	if err := buildQueue(ctx, app); err != nil {
		return nil, err
	}
	app.Dispatcher = lifecycle.NewDispatcher(app.Coordinator, app.Queue)

	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, app.Dispatcher, cfg.MaxUploadBytes)
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, signer)
	app.Health = health.NewService(sqlDB, map[string]string{
		"converter": cfg.ConverterPath,
		"ocr":       cfg.TesseractPath,
	})

	app.Router = server.NewRouter(server.RouterDeps{
		Config:     cfg,
		Signer:     signer,
		Documents:  app.DocumentsHandler,
		GoogleAuth: app.GoogleAuth,
		Health:     app.Health,
	})

	return app, nil
}

// Shutdown drains the in-process queue and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.LocalQueue != nil {
		if err := a.LocalQueue.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain queue: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, db.Dialect, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database", map[string]any{"message": "DATABASE_URL empty; using in-memory repository"})
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("DATABASE_URL is required")
	}

	profile := db.ProfileServer
	if db.IsLambdaRuntime() {
		profile = db.ProfileLambda
	}
	sqlDB, target, err := db.Open(ctx, cfg.DatabaseURL, profile)
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB, target.Dialect)
		if err != nil && profile != db.ProfileLambda {
			_ = sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database", map[string]any{
				"message": "database unavailable; using in-memory repository",
				"error":   err.Error(),
			})
			return nil, "", nil
		}
		return nil, "", err
	}

	return sqlDB, target.Dialect, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.llm", map[string]any{
				"message": "language service not configured; analysis will fail",
				"error":   err.Error(),
			})
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return client, nil
}

func buildExtractor(cfg config.Config) *extract.Orchestrator {
	runner := ocr.ExecRunner{}
	rasterizer := ocr.NewRasterizer(ocr.RasterizerConfig{
		ConverterPath: cfg.ConverterPath,
		DPI:           cfg.RasterizeDPI,
		SettleDelay:   cfg.RasterizeSettleDelay,
	}, runner)
	recognizer := ocr.NewRecognizer(ocr.RecognizerConfig{
		Binary:    cfg.TesseractPath,
		Languages: cfg.OCRLanguages,
	}, runner)
	return extract.NewOrchestrator(extract.PDFTextReader{}, rasterizer, recognizer, extract.Options{
		RasterizeTimeout: cfg.RasterizeTimeout,
		OCRTimeout:       cfg.OCRTimeout,
	})
}

func buildQueue(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.QueueBackend {
	case "local":
		coord := app.Coordinator
		lq := queue.NewLocalQueue(func(ctx context.Context, msg queue.Message) error {
			return workerproc.Process(ctx, coord, msg)
		},
			queue.WithWorkers(cfg.QueueWorkers),
			queue.WithQueueSize(cfg.QueueSize),
			queue.WithProcessTimeout(cfg.ProcessTimeout),
		)
		app.LocalQueue = lq
		app.Queue = lq
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		app.Queue = client
	default:
		app.Queue = nil
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
