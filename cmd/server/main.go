package main // Entry point package

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/refstore/referral-engine/internal/commission"
	"github.com/refstore/referral-engine/internal/config"
	"github.com/refstore/referral-engine/internal/database"
	"github.com/refstore/referral-engine/internal/handler"
	"github.com/refstore/referral-engine/internal/health"
	"github.com/refstore/referral-engine/internal/logging"
	"github.com/refstore/referral-engine/internal/middleware"
	"github.com/refstore/referral-engine/internal/notify"
	"github.com/refstore/referral-engine/internal/queue"
	"github.com/refstore/referral-engine/internal/referral"
	"github.com/refstore/referral-engine/internal/repository"
	"github.com/refstore/referral-engine/internal/router"
	queue_publisher "github.com/refstore/referral-engine/internal/service"
	"github.com/refstore/referral-engine/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		logger.Fatal("migrate failed", zap.Error(err))
	}
	cancel()

	// Redis is optional; rate limiting and response caching disable
	// themselves when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	orders := repository.NewOrderRepo(db)
	ledger := repository.NewLedgerRepo(db)
	network := repository.NewNetworkRepo(db)
	errLog := repository.NewErrorLogRepo(db)
	operators := repository.NewOperatorRepo(db)

	bootstrapOperator(cfg, operators, logger)

	// Domain services, wired explicitly rather than through globals.
	resolver := referral.NewResolver(users, logger)
	var publish commission.PublishFunc
	if cfg.RabbitMQURL != "" {
		publish = queue_publisher.PublishCommissionCredited
	} else {
		logger.Warn("rabbitmq url unset, credited events disabled")
	}
	engine := commission.NewEngine(users, orders, ledger, resolver, publish, logger)
	monitor := health.NewMonitor(users, ledger, errLog, network, logger)

	// Notification consumer runs for as long as the process lives.
	if cfg.RabbitMQURL != "" {
		consumer := &queue.Consumer{
			Notifier: notify.NewTelegram(cfg.TelegramBotToken, logger),
			Errors:   errLog,
			Log:      logger,
		}
		go consumer.Start()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Error(v.Error))
			return nil
		},
	}))

	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, operators))
	router.RegisterReferral(e,
		handler.NewCommissionHandler(engine, errLog, logger),
		handler.NewReferralHandler(users, ledger, network),
		rateLimit)
	router.RegisterAdmin(e, cfg.JWTSecret,
		handler.NewNetworkHandler(users, network, resolver, logger),
		handler.NewHealthReportHandler(monitor),
		handler.NewErrorLogHandler(errLog),
		cache)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// bootstrapOperator seeds the first admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD when the operators table is empty, so a fresh
// deployment can log in without manual SQL.
func bootstrapOperator(cfg config.Config, operators *repository.OperatorRepo, logger *zap.Logger) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := operators.Count(ctx)
	if err != nil || n > 0 {
		return
	}
	hash, err := utils.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		logger.Warn("operator bootstrap hash failed", zap.Error(err))
		return
	}
	if _, err := operators.Create(ctx, email, hash, "ADMIN"); err != nil {
		logger.Warn("operator bootstrap insert failed", zap.Error(err))
		return
	}
	logger.Info("seeded initial operator", zap.String("email", email))
}
