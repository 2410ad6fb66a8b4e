package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/cache"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/sixcities/internal/infrastructure/persistence/redis"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/internal/interfaces/http/handlers"
	"github.com/turtacn/sixcities/internal/interfaces/http/router"
	"github.com/turtacn/sixcities/pkg/constants"
	"github.com/turtacn/sixcities/pkg/logger"
)

func main() {
	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if cfg.Log.Level != string(constants.LogLevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal(context.Background(), "Server exited with error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	shutdownTracer, err := monitoring.InitTracer(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			appLogger.Warn(flushCtx, "Failed to flush spans", logger.Error(err))
		}
	}()

	// Database
	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Shared store: the handle is built without dialing; Run keeps the
	// liveness flag current and Start below reacts to it.
	redisConn, err := redis.NewConnection(redis.ConfigFromSettings(&cfg.Redis), appLogger)
	if err != nil {
		return err
	}
	defer redisConn.Close()
	go redisConn.Run(ctx, cfg.RateLimit.HealthInterval)

	store := redis.NewRedisStore(redisConn, redis.StoreOptions{OpTimeout: cfg.RateLimit.StoreTimeout}, appLogger)

	// Cache and repositories
	caches := cache.NewHelpers(cache.NewService(store, appLogger, metrics), cfg.Cache)

	cityRepo := postgres.NewCityRepository(db.DB(), appLogger)
	userRepo := postgres.NewUserRepository(db.DB(), appLogger)
	offerRepo := postgres.NewOfferRepository(db.DB(), appLogger)
	commentRepo := postgres.NewCommentRepository(db.DB(), appLogger)
	favoriteRepo := postgres.NewFavoriteRepository(db.DB())

	// Application services
	cities := service.NewCityService(cityRepo, caches.Cities, caches.Offers, appLogger)
	users := service.NewUserService(userRepo, caches.Users, appLogger)
	offers := service.NewOfferService(offerRepo, cityRepo, userRepo, favoriteRepo, caches.Offers, caches.Comments, appLogger)
	comments := service.NewCommentService(commentRepo, offerRepo, userRepo, caches.Comments, caches.Offers, appLogger)

	tokens := crypto.NewJWTManager(cfg.JWT, appLogger)
	if !tokens.Enabled() {
		appLogger.Warn(ctx, "jwt.secret is empty: sign-in is disabled and every request is anonymous")
	}

	// Rate limiter: constructed synchronously, ready once the store is.
	var (
		limiter      *ratelimit.Limiter
		limiterState handlers.LimiterStateReporter
	)
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.NewLimiter(ratelimit.ConfigFromSettings(&cfg.RateLimit), store, appLogger, metrics)
		if err != nil {
			return err
		}
		defer limiter.Close()
		limiter.Start(ctx, redisConn)
		limiterState = limiter
	} else {
		appLogger.Warn(ctx, "Rate limiting is disabled")
	}

	r := router.New(router.Deps{
		Server:      cfg.Server,
		Logger:      appLogger,
		Metrics:     metrics,
		Tracer:      monitoring.NewTracer(),
		Tokens:      tokens,
		Revocations: crypto.NewRevocations(store, appLogger),
		Limiter:     limiter,
		Resolver:    ratelimit.NewIdentityResolver(tokens, cfg.RateLimit.TrustForwardedFor, cfg.RateLimit.IPv6Prefix),
		Cities:      cities,
		Offers:      offers,
		Comments:    comments,
		Users:       users,
		Health:      handlers.NewHealthHandler(db, redisConn, limiterState),
	})
	return r.Start(ctx)
}
