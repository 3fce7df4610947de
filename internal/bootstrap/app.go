package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"traveldocs-backend/internal/account"
	googleauth "traveldocs-backend/internal/auth"
	"traveldocs-backend/internal/chat"
	"traveldocs-backend/internal/dashboard"
	"traveldocs-backend/internal/documents"
	"traveldocs-backend/internal/export"
	"traveldocs-backend/internal/extraction"
	"traveldocs-backend/internal/files"
	"traveldocs-backend/internal/llm"
	openai "traveldocs-backend/internal/llm/openai"
	"traveldocs-backend/internal/queue"
	"traveldocs-backend/internal/reminders"
	"traveldocs-backend/internal/shared/config"
	"traveldocs-backend/internal/shared/resilience"
	"traveldocs-backend/internal/shared/server"
	"traveldocs-backend/internal/shared/storage/cache"
	"traveldocs-backend/internal/shared/storage/db"
	"traveldocs-backend/internal/shared/storage/object"
	localstore "traveldocs-backend/internal/shared/storage/object/local"
	s3store "traveldocs-backend/internal/shared/storage/object/s3"
	"traveldocs-backend/internal/usage"
	"traveldocs-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Redis  *redis.Client
	Store  object.ObjectStore
	Queue  queue.Client

	DocumentsService *documents.Service
	RemindersService *reminders.Service
	DashboardService *dashboard.Service
	UsageService     *usage.Service
	AccountService   *account.Service
	UsersService     *users.Service
}

// Build connects infrastructure, wires services and handlers, and builds the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := BuildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := buildRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}
	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  rdb,
		Store:  store,
		Queue:  queueClient,
	}
	routes, devRoutes, err := buildServices(app)
	if err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:    cfg,
		Routes:    routes,
		DevRoutes: devRoutes,
		Health:    app.health,
	})
	return app, nil
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if nc, ok := a.Queue.(*queue.NATSClient); ok {
		nc.Close()
	}
}

func (a *App) health() map[string]any {
	return map[string]any{
		"database": a.DB != nil,
		"redis":    a.Redis != nil,
		"storage":  a.Config.ObjectStoreType,
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

// BuildStore returns the object store selected by OBJECT_STORE.
func BuildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir, cfg.PublicBaseURL, cfg.FileSigningSecret), nil
	}
}

func buildRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unavailable; using in-process cache: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return client, nil
}

// buildQueue returns the cleanup queue publisher, or nil when no backend is configured.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	switch cfg.QueueBackend {
	case "sqs":
		return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
	case "nats":
		return queue.NewNATSClient(cfg.NATSURL, cfg.NATSSubject)
	default:
		return nil, nil
	}
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	if cfg.LLMProvider != "openai" || strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Printf("bootstrap: llm provider %q not configured; extraction and chat are disabled", cfg.LLMProvider)
		return llm.Unconfigured{}, nil
	}
	exec := resilience.NewExecutor(resilience.DefaultConfig())
	return openai.NewClient(cfg.LLMBaseURL, cfg.OpenAIAPIKey, cfg.LLMModel, exec)
}

func buildServices(app *App) ([]server.RouteRegistrar, []server.DevRouteRegistrar, error) {
	cfg := app.Config

	var (
		docRepo  documents.Repo
		remRepo  reminders.Repo
		userRepo users.Repo
		usageSvc *usage.Service
	)
	policy := usage.Policy{Limit: cfg.UsageLimit}
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		remRepo = &reminders.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
		usageSvc = usage.NewPostgresService(usage.NewPGStore(app.DB, policy))
	} else {
		mem := reminders.NewMemoryRepo()
		remRepo = mem
		docRepo = documents.NewMemoryRepo(mem)
		userRepo = users.NewMemoryRepo()
		usageSvc = usage.NewService(policy)
	}

	var (
		store  cache.Store
		locker cache.Locker
	)
	if app.Redis != nil {
		store = cache.NewRedisStore(app.Redis)
		locker = cache.NewLock(app.Redis)
	} else {
		store = cache.NewMemoryStore()
	}

	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := extraction.New(completer)
	if err != nil {
		return nil, nil, err
	}

	dashSvc := dashboard.NewService(docRepo, remRepo, store)
	remSvc := reminders.NewService(remRepo, dashSvc)
	docSvc := documents.NewService(documents.Deps{
		Repo:            docRepo,
		Reminders:       remRepo,
		Store:           app.Store,
		Extractor:       extractor,
		Quota:           usageSvc,
		Locker:          locker,
		Queue:           app.Queue,
		Cache:           dashSvc,
		SignedURLTTL:    cfg.SignedURLTTL,
		DefaultLanguage: cfg.DefaultLanguage,
	})
	chatSvc, err := chat.NewService(completer, docRepo, remRepo)
	if err != nil {
		return nil, nil, err
	}
	exportSvc := export.NewService(docRepo, remRepo)
	accountSvc := account.NewService(docSvc, remRepo, usageSvc)
	userSvc := users.NewService(userRepo)
	googleSvc := googleauth.NewGoogleService(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.GoogleRedirectURL,
		cfg.UIRedirectURL,
		store,
		userSvc,
	)

	app.DocumentsService = docSvc
	app.RemindersService = remSvc
	app.DashboardService = dashSvc
	app.UsageService = usageSvc
	app.AccountService = accountSvc
	app.UsersService = userSvc

	usageHandler := usage.NewHandler(usageSvc)
	routes := []server.RouteRegistrar{
		googleSvc,
		users.NewHandler(userSvc),
		documents.NewHandler(docSvc),
		reminders.NewHandler(remSvc),
		dashboard.NewHandler(dashSvc),
		chat.NewHandler(chatSvc),
		export.NewHandler(exportSvc),
		usageHandler,
		account.NewHandler(accountSvc),
	}
	if local, ok := app.Store.(*localstore.Store); ok {
		routes = append(routes, files.NewHandler(local))
	}
	return routes, []server.DevRouteRegistrar{usageHandler}, nil
}
