package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"study_companion_backend/internal/ai"
	"study_companion_backend/internal/config"
	"study_companion_backend/internal/controller"
	"study_companion_backend/internal/repository"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/configwatcher"
	"study_companion_backend/pkg/database"
	"study_companion_backend/pkg/logger"
	"study_companion_backend/pkg/monitoring"
	"study_companion_backend/pkg/security"
	"study_companion_backend/pkg/tracing"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	session     *repository.SessionRepository
	streak      *repository.StreakRepository
	quiz        *repository.QuizRepository
	flashcard   *repository.FlashcardRepository
	badge       *repository.BadgeRepository
	document    *repository.DocumentRepository
	chat        *repository.ChatRepository
	activityLog *repository.ActivityLogRepository
}

type services struct {
	auth       *service.AuthService
	user       *service.UserService
	streak     *service.StreakService
	badge      *service.BadgeService
	session    *service.SessionService
	quiz       *service.QuizService
	flashcard  *service.FlashcardService
	stats      *service.StatsService
	ingest     *service.IngestService
	chat       *service.ChatService
	document   *service.DocumentService
	dispatcher *service.NotificationDispatcher
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	session   *controller.SessionController
	quiz      *controller.QuizController
	flashcard *controller.FlashcardController
	badge     *controller.BadgeController
	stats     *controller.StatsController
	event     *controller.EventController
	chat      *controller.ChatController
	document  *controller.DocumentController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		session:     repository.NewSessionRepository(db),
		streak:      repository.NewStreakRepository(db),
		quiz:        repository.NewQuizRepository(db),
		flashcard:   repository.NewFlashcardRepository(db),
		badge:       repository.NewBadgeRepository(db),
		document:    repository.NewDocumentRepository(db),
		chat:        repository.NewChatRepository(db),
		activityLog: repository.NewActivityLogRepository(db),
	}
}

// initNotifiers 日志和活动记录始终启用，Redis 可选
func (a *App) initNotifiers(repos *repositories, cfg *config.Config, rdb *redis.Client) *service.NotificationDispatcher {
	sinks := []service.Notifier{
		service.LogNotifier{},
		service.NewActivityLogSink(repos.activityLog),
	}
	if rdb != nil {
		sinks = append(sinks, service.NewRedisNotifier(rdb, cfg.Notification.Channel))
	}
	return service.NewNotificationDispatcher(cfg.Notification.Timeout, sinks...)
}

func initGenerator(cfg *config.Config) ai.Generator {
	provider, err := ai.NewProvider(cfg.AI)
	if errors.Is(err, ai.ErrDisabled) {
		logger.Log.Info("Content generation disabled")
		return nil
	}
	if err != nil {
		logger.Log.Error("Failed to initialize content generation, continuing without it", zap.Error(err))
		return nil
	}
	logger.Log.Info("Content generation enabled", zap.String("provider", cfg.AI.Provider), zap.String("model", provider.ModelID()))
	return ai.NewTutorGenerator(provider, cfg.AI.MaxTokens)
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &services{}
	locks := service.NewLearnerLocks()
	s.dispatcher = a.initNotifiers(repos, cfg, rdb)
	generator := initGenerator(cfg)

	metrics := &service.LearnerMetrics{
		Sessions:   repos.session,
		Streaks:    repos.streak,
		Quizzes:    repos.quiz,
		Flashcards: repos.flashcard,
		Documents:  repos.document,
	}
	catalog := service.NewBadgeCatalog(service.CreateInitialBadges())

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.streak = service.NewStreakService(repos.streak, repos.user, loc)
	s.badge = service.NewBadgeService(catalog, repos.badge, metrics, locks, s.dispatcher)
	s.session = service.NewSessionService(repos.session, s.streak, s.badge, locks, s.dispatcher)
	s.quiz = service.NewQuizService(repos.quiz, s.badge, locks, s.dispatcher)
	s.flashcard = service.NewFlashcardService(repos.flashcard, s.badge, locks, s.dispatcher, generator, cfg)
	s.stats = service.NewStatsService(repos.session, repos.streak, repos.quiz, repos.flashcard, repos.badge, repos.document)
	s.ingest = service.NewIngestService(s.session, s.quiz, s.flashcard)
	s.chat = service.NewChatService(repos.chat, repos.user, generator, service.NewRetryPolicy(cfg.AI))
	s.document = service.NewDocumentService(repos.document, service.NewStorageProvider(cfg), s.badge, s.dispatcher)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.user),
		session:   controller.NewSessionController(s.session),
		quiz:      controller.NewQuizController(s.quiz),
		flashcard: controller.NewFlashcardController(s.flashcard),
		badge:     controller.NewBadgeController(s.badge),
		stats:     controller.NewStatsController(s.stats, s.streak),
		event:     controller.NewEventController(s.ingest),
		chat:      controller.NewChatController(s.chat),
		document:  controller.NewDocumentController(s.document),
		health:    controller.NewHealthController(db, rdb),
	}
}

func rateWindow(cfg *config.Config) time.Duration {
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg))
	a.limiter.StartCleanup(a.stop)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// migrate 非 release 模式或显式指定时执行迁移
func migrate(db *gorm.DB, cfg *config.Config) error {
	if cfg.Server.Mode == "release" && !cfg.ForceMigrate {
		logger.Log.Info("Skipping database migration in release mode")
		return nil
	}
	return database.Migrate(db)
}

func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully", zap.String("level", logger.Level().String()))

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, errors.Wrap(err, "initialize database")
	}

	if err := migrate(db, cfg); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}

	app := &App{
		Config: cfg,
		DB:     db,
		stop:   make(chan struct{}),
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "initialize redis")
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, db, rdb)
	controller.RegisterValidators()

	// 徽章目录写入数据库，失败不影响启动，内存目录仍然生效
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := services.badge.SyncCatalog(ctx); err != nil {
		logger.Log.Warn("Failed to sync badge catalog", zap.Error(err))
	}
	cancel()

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, errors.Wrap(err, "initialize tracing")
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.EffectiveLogLevel())
		app.limiter.Update(newCfg.RateLimit.MaxRequests, rateWindow(newCfg))
		logger.Log.Info("Runtime settings updated",
			zap.String("level", logger.Level().String()),
			zap.Int("rateLimit", newCfg.RateLimit.MaxRequests),
		)
	})

	return app, nil
}

func (a *App) reload(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.Config.FilePath != "" {
		go func() {
			if err := configwatcher.WatchConfig(watchCtx, a.Config.FilePath, a.reload); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return errors.Wrap(err, "listen")
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放后台任务和外部连接
func (a *App) Close(ctx context.Context) {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
