// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"subpass-service/internal/config"
	"subpass-service/internal/db"
	"subpass-service/internal/events"
	authHandler "subpass-service/internal/handlers/auth"
	dashboardHandler "subpass-service/internal/handlers/dashboard"
	planHandler "subpass-service/internal/handlers/plans"
	subscriptionHandler "subpass-service/internal/handlers/subscription"
	walletHandler "subpass-service/internal/handlers/wallet"
	wsHandler "subpass-service/internal/handlers/websocket"
	"subpass-service/internal/ledger"
	"subpass-service/internal/metrics"
	"subpass-service/internal/middleware"
	"subpass-service/internal/pkg/jwt"
	"subpass-service/internal/pkg/session"
	authService "subpass-service/internal/service/auth"
	dashboardService "subpass-service/internal/service/dashboard"
	planService "subpass-service/internal/service/plans"
	subscriptionService "subpass-service/internal/service/subscription"
	vaultService "subpass-service/internal/service/vault"
	"subpass-service/internal/store"
	"subpass-service/internal/store/memory"
	"subpass-service/internal/store/postgres"
	"subpass-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	store      store.Store
	producer   events.Producer
	cancelHub  context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- Storage -----
	st, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = st

	// ----- Redis -----
	redisClient, err := db.ConnectRedis(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT / sessions -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Ledger -----
	manager, err := ledger.NewManager(st, ledger.Config{
		FeeRecipient:   s.cfg.FeeRecipient,
		ManagerAddress: s.cfg.ManagerAddress,
		Policy:         s.cfg.RenewalPolicy,
		Tokens:         s.cfg.Tokens,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build ledger: %w", err)
	}

	// ----- Events -----
	producer, err := s.openProducer(logger)
	if err != nil {
		return err
	}
	s.producer = producer

	// ----- Metrics -----
	m := metrics.New()

	// ----- WebSocket hub -----
	hub := websocket.NewHub(logger)
	hubCtx, cancelHub := context.WithCancel(context.Background())
	s.cancelHub = cancelHub
	go hub.Run(hubCtx)

	// ----- Services -----
	authSvc := authService.NewAuthService(
		jwtManager,
		sessionManager,
		rateLimiter,
		s.cfg.AdminAddress,
		s.cfg.AdminPasswordHash,
		logger,
	)
	planSvc := planService.NewPlanService(manager, st, hub, producer, m, logger)
	subSvc := subscriptionService.NewSubscriptionService(manager, st, hub, producer, m, logger)
	vaultSvc := vaultService.NewVaultService(manager, st, logger)
	dashSvc := dashboardService.NewDashboardService(st, logger)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:         authHandler.NewAuthHandler(authSvc),
		PlanHandler:         planHandler.NewPlanHandler(planSvc),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subSvc),
		WalletHandler:       walletHandler.NewWalletHandler(vaultSvc),
		DashboardHandler:    dashboardHandler.NewDashboardHandler(dashSvc, planSvc),
		WSHandler:           wsHandler.NewWSHandler(hub, authSvc, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(authSvc),
		RateLimit:           middleware.NewRateLimitMiddleware(rateLimiter, logger),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	SetupRouter(s.engine, m, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	logger.Info("server running",
		zap.String("addr", s.cfg.HTTPAddr),
		zap.String("storage", s.cfg.StorageDriver),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and releases backing resources.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.cancelHub != nil {
		s.cancelHub()
	}
	if s.producer != nil {
		if err := s.producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.store != nil {
		s.store.Close()
	}
	return firstErr
}

func (s *Server) openStore(ctx context.Context) (store.Store, error) {
	switch s.cfg.StorageDriver {
	case "memory":
		s.logger.Warn("using in-memory storage, data will not survive restarts")
		return memory.New(), nil
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		pool, err := db.ConnectDB(connectCtx, s.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		s.logger.Info("connected to postgres")
		return postgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", s.cfg.StorageDriver)
	}
}

func (s *Server) openProducer(logger *zap.Logger) (events.Producer, error) {
	if len(s.cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, events stay in-process")
		return events.NopProducer{}, nil
	}
	producer, err := events.NewKafkaProducer(s.cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	logger.Info("connected to kafka", zap.Strings("brokers", s.cfg.KafkaBrokers))
	return producer, nil
}
