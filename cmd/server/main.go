package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/config"
	"github.com/iliyamo/rolegate/internal/database"
	"github.com/iliyamo/rolegate/internal/handler"
	"github.com/iliyamo/rolegate/internal/logger"
	"github.com/iliyamo/rolegate/internal/memstore"
	"github.com/iliyamo/rolegate/internal/metrics"
	"github.com/iliyamo/rolegate/internal/middleware"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/router"
	"github.com/iliyamo/rolegate/internal/service"
)

// stores bundles the storage contracts behind one backend.
type stores struct {
	accounts service.AccountStore
	tokens   service.TokenStore
	courses  service.CourseStore
	rides    service.RideStore
	orders   service.WorkOrderStore
	projects service.ProjectStore
	db       *sql.DB
}

func openStores(ctx context.Context, cfg config.Config, lg *zap.Logger) (stores, error) {
	if cfg.DBDriver == config.DriverMemory {
		lg.Warn("using in-memory store; data is lost on exit")
		m := memstore.New()
		return stores{accounts: m, tokens: m, courses: m, rides: m, orders: m, projects: m}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		lg.Info("schema migrated")
	}
	return stores{
		accounts: repository.NewAccountRepo(db),
		tokens:   repository.NewTokenRepo(db),
		courses:  repository.NewCourseRepo(db),
		rides:    repository.NewRideRepo(db),
		orders:   repository.NewWorkOrderRepo(db),
		projects: repository.NewProjectRepo(db),
		db:       db,
	}, nil
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	cfg := config.Load() // Load environment config

	lg := logger.New(cfg.Env, cfg.LogLevel, "rolegate")
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("open storage", zap.Error(err))
	}
	if st.db != nil {
		defer func() { _ = st.db.Close() }()
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		lg.Warn("redis unreachable; rate limiting is per process and the catalog is uncached")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub = queue.NewAMQPPublisher(cfg.AMQPURL)
		if cfg.EventsConsumer {
			consumer := queue.NewConsumer(cfg.AMQPURL, lg.Named("consumer"))
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Error("event consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	m := metrics.New("rolegate")

	accounts, err := service.NewAccountService(st.accounts, pub, lg, cfg.BcryptCost)
	if err != nil {
		lg.Fatal("init account service", zap.Error(err))
	}
	tokens := service.NewTokenService(st.accounts, st.tokens, service.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	})
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, lg)

	health := handler.Health(nil)
	if st.db != nil {
		health = handler.Health(st.db)
	}

	e := router.New(router.Handlers{
		Auth:     handler.NewAuthHandler(accounts, tokens, m),
		Account:  handler.NewAccountHandler(accounts),
		Courses:  handler.NewCourseHandler(service.NewCourseService(st.courses, pub, lg), cache),
		Rides:    handler.NewRideHandler(service.NewRideService(st.rides, pub, lg)),
		Orders:   handler.NewWorkOrderHandler(service.NewWorkOrderService(st.orders, st.accounts, pub, lg)),
		Projects: handler.NewProjectHandler(service.NewProjectService(st.projects, pub, lg)),
		Health:   health,
	}, router.Options{
		Log:           lg,
		Metrics:       m,
		Authenticator: service.NewResolver(tokens, st.accounts),
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg),
		Cache:         cache,
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}
