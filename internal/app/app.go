package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudguard/internal/api/handlers"
	"fraudguard/internal/api/middlew"
	"fraudguard/internal/cache"
	"fraudguard/internal/config"
	"fraudguard/internal/db"
	"fraudguard/internal/kafka"
	"fraudguard/internal/models"
	"fraudguard/internal/scorer"
	"fraudguard/internal/server"
	"fraudguard/internal/service"
	"fraudguard/internal/storage/postgres"
	"fraudguard/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	log             *slog.Logger
	server          *server.Server
	pool            *pgxpool.Pool
	logWriter       *logger.LoggerWithFile
	cfg             *config.Config
	authService     service.Auth
	transferService *service.TransferService
	fraudScorer     scorer.Scorer
	scoreCache      cache.ScoreCache
	kafkaProducer   kafka.Producer
}

func NewApp() (*App, error) {
	loggerWithFile := logger.NewLoggerWithFile("fraudguard.log")
	log := loggerWithFile.Logger
	log.Info("инициализация приложения")

	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации конфига: %w", err)
	}
	log.Info("конфигурация загружена", slog.String("port", cfg.HTTPPort))

	log.Info("выполнение миграций базы данных")
	if err := db.RunMigrations(cfg.DB.MigrationURL(), "migrations"); err != nil {
		return nil, fmt.Errorf("ошибка выполнения миграций: %w", err)
	}
	log.Info("миграции успешно применены")

	poolCfg := db.PoolConfig{
		MaxConns:          200,
		MinConns:          10,
		HealthCheckPeriod: 30 * time.Second,
		PoolTimeout:       5 * time.Second,
		RetryAttempts:     5,
		RetryDelay:        1 * time.Second,
	}

	pool, err := db.NewPool(context.Background(), cfg.DB.DSN(), poolCfg, log)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}
	log.Info("подключение к базе данных установлено")

	log.Info("инициализация fraud scorer", slog.String("model", cfg.Scorer.Model))
	fraudScorer := scorer.NewGeminiClient(
		cfg.Scorer.APIURL,
		cfg.Scorer.APIKey,
		cfg.Scorer.Model,
		cfg.Scorer.Timeout,
		log,
	)

	var kafkaProducer kafka.Producer
	if cfg.Kafka.Enabled {
		log.Info("инициализация kafka producer", slog.Any("brokers", cfg.Kafka.Brokers))
		kafkaProducer, err = kafka.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации kafka: %w", err)
		}
	} else {
		log.Info("kafka отключен в конфигурации")
		kafkaProducer = kafka.NewNoOpProducer(log)
	}

	var scoreCache cache.ScoreCache
	if cfg.Redis.Enabled {
		log.Info("инициализация redis кэша", slog.String("addr", cfg.Redis.Addr))
		scoreCache, err = cache.NewRedisScoreCache(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, log)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к redis: %w", err)
		}
	} else {
		log.Info("redis отключен в конфигурации")
		scoreCache = cache.NewNoOpScoreCache()
	}

	srv := server.NewServer(cfg.HTTPPort)
	log.Info("сервер инициализирован", slog.String("port", cfg.HTTPPort))
	srv.Router.Use(middleware.RequestID)
	srv.Router.Use(middlew.WithLogger(log))
	srv.Router.Use(middleware.RealIP)
	srv.Router.Use(middleware.Recoverer)
	srv.RegisterSwagger()

	return &App{
		log:           log,
		server:        srv,
		pool:          pool,
		logWriter:     loggerWithFile,
		cfg:           cfg,
		fraudScorer:   fraudScorer,
		scoreCache:    scoreCache,
		kafkaProducer: kafkaProducer,
	}, nil
}

func (a *App) BuildAuthLayer() {
	txManager := service.NewPgxTxManager(a.pool)
	userRepo := postgres.NewUserRepository(a.pool)
	accountRepo := postgres.NewAccountRepository(a.pool)

	a.authService = service.NewAuthService(
		userRepo,
		accountRepo,
		txManager,
		a.cfg.JWT.Secret,
		a.cfg.JWT.Expiration,
		models.AmountToMinorUnits(a.cfg.Transfer.InitialBalance),
		a.log,
	)

	authHandler := handlers.NewAuthHandler(a.authService)

	a.server.Router.Post("/api/v1/register", authHandler.Register)
	a.server.Router.Post("/api/v1/login", authHandler.Login)

	a.log.Info("слой 'auth' собран и маршруты зарегистрированы")
}

func (a *App) BuildTransferLayer() error {
	if a.authService == nil {
		err := errors.New("authService not initialized, call BuildAuthLayer first")
		a.log.Error(err.Error())
		return err
	}
	if a.fraudScorer == nil {
		err := errors.New("fraudScorer not initialized")
		a.log.Error(err.Error())
		return err
	}
	if a.kafkaProducer == nil {
		err := errors.New("kafkaProducer not initialized")
		a.log.Error(err.Error())
		return err
	}

	txManager := service.NewPgxTxManager(a.pool)
	userRepo := postgres.NewUserRepository(a.pool)
	accountRepo := postgres.NewAccountRepository(a.pool)
	txnRepo := postgres.NewTransactionRepository(a.pool)

	a.transferService = service.NewTransferService(
		accountRepo,
		txnRepo,
		userRepo,
		txManager,
		a.fraudScorer,
		a.kafkaProducer,
		a.cfg.Transfer.LargeTransactionThreshold,
		a.cfg.Transfer.FraudScoreThreshold,
		a.log,
	)

	transferHandler := handlers.NewTransferHandler(a.transferService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.authService))

		r.Post("/api/v1/transfers", transferHandler.CreateTransfer)
		r.Get("/api/v1/balance", transferHandler.GetBalance)
		r.Get("/api/v1/transactions", transferHandler.ListTransactions)
		r.Get("/api/v1/transactions/{transactionID}", transferHandler.GetTransaction)
		r.Post("/api/v1/transfers/{transactionID}/approve", transferHandler.ApproveTransfer)
		r.Post("/api/v1/transfers/{transactionID}/cancel", transferHandler.CancelTransfer)
	})

	a.log.Info("слой 'transfer' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) BuildScoringLayer() error {
	if a.authService == nil {
		err := errors.New("authService not initialized, call BuildAuthLayer first")
		a.log.Error(err.Error())
		return err
	}
	if a.fraudScorer == nil {
		err := errors.New("fraudScorer not initialized")
		a.log.Error(err.Error())
		return err
	}

	scoringService := service.NewScoringService(a.fraudScorer, a.scoreCache, a.log)
	scoringHandler := handlers.NewScoringHandler(scoringService)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireAuth(a.authService))
		r.Post("/api/v1/fraud-check", scoringHandler.CheckFraud)
	})

	a.log.Info("слой 'scoring' собран и маршруты зарегистрированы")
	return nil
}

func (a *App) Run() error {
	a.log.Info("сервер запускается")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-shutdownChan:
		a.log.Info("получен сигнал завершения", slog.String("signal", sig.String()))
	}

	a.log.Info("приложение останавливается")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.transferService != nil {
		a.log.Info("остановка transfer service")
		if err := a.transferService.Shutdown(ctx); err != nil {
			a.log.Error("ошибка при остановке transfer service", slog.String("error", err.Error()))
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("ошибка при остановке http сервера", slog.String("error", err.Error()))
	}

	if a.kafkaProducer != nil {
		a.log.Info("закрытие kafka producer")
		if err := a.kafkaProducer.Close(); err != nil {
			a.log.Error("ошибка при закрытии kafka producer", slog.String("error", err.Error()))
		}
	}

	if a.scoreCache != nil {
		if err := a.scoreCache.Close(); err != nil {
			a.log.Error("ошибка при закрытии redis", slog.String("error", err.Error()))
		}
	}

	a.log.Info("закрытие соединения с базой данных")
	a.pool.Close()

	a.log.Info("закрытие файла логов")
	if a.logWriter != nil {
		if err := a.logWriter.Close(); err != nil {
			a.log.Error("ошибка при закрытии файла логов", slog.String("error", err.Error()))
		}
	}

	a.log.Info("приложение остановлено")
	return nil
}
