// Package router assembles the gin engine: middleware chain, routes and the
// HTTP server lifecycle.
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/config"
	"github.com/turtacn/sixcities/internal/infrastructure/crypto"
	"github.com/turtacn/sixcities/internal/infrastructure/monitoring"
	"github.com/turtacn/sixcities/internal/infrastructure/ratelimit"
	"github.com/turtacn/sixcities/internal/interfaces/http/handlers"
	"github.com/turtacn/sixcities/internal/interfaces/http/middleware"
	"github.com/turtacn/sixcities/pkg/constants"
	apperrors "github.com/turtacn/sixcities/pkg/errors"
	"github.com/turtacn/sixcities/pkg/logger"
)

const defaultShutdownTimeout = 30 * time.Second

// Deps carries everything the router wires together.
type Deps struct {
	Server  config.ServerConfig
	Logger  logger.Logger
	Metrics *monitoring.Metrics
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
	Tracer   trace.Tracer
	Tokens   *crypto.JWTManager
	// Revocations may be nil; tokens then stay valid until they expire.
	Revocations *crypto.Revocations

	// Limiter may be nil, which disables rate limiting.
	Limiter  *ratelimit.Limiter
	Resolver *ratelimit.IdentityResolver

	Cities   service.CityService
	Offers   service.OfferService
	Comments service.CommentService
	Users    service.UserService
	Health   *handlers.HealthHandler
}

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	deps   Deps
	logger logger.Logger
	server *http.Server
}

// New builds the engine and registers every route.
func New(deps Deps) *Router {
	r := &Router{
		engine: gin.New(),
		deps:   deps,
		logger: deps.Logger.WithComponent("http_server"),
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	d := r.deps
	e := r.engine

	// 全局中间件
	e.Use(gin.Recovery(), middleware.RequestID())
	if d.Tracer != nil {
		e.Use(middleware.Observability(d.Tracer, d.Metrics))
	}
	e.Use(middleware.AccessLog(d.Logger))
	e.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, constants.HeaderRetryAfter, constants.HeaderRateLimitLimit, constants.HeaderRateLimitRemaining, constants.HeaderRateLimitReset},
		MaxAge:        12 * time.Hour,
	}))

	// 健康检查与指标，不限流
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.Ready)
	e.GET("/metrics", gin.WrapH(r.metricsHandler()))
	if d.Server.EnablePprof {
		pprof.Register(e)
	}

	guard := []gin.HandlerFunc{middleware.Principal(d.Tokens, d.Revocations, d.Logger)}
	if d.Limiter != nil {
		guard = append(guard, middleware.RateLimit(d.Limiter, d.Resolver, d.Logger))
	}
	auth := middleware.RequireAuth()

	cities := handlers.NewCityHandler(d.Cities)
	offers := handlers.NewOfferHandler(d.Offers)
	comments := handlers.NewCommentHandler(d.Comments)
	users := handlers.NewUserHandler(d.Users, d.Tokens, d.Revocations, d.Logger)

	v1 := e.Group("/api/v1", guard...)
	{
		u := v1.Group("/users")
		u.POST("/register", users.Register)
		u.POST("/login", users.Login)
		u.DELETE("/logout", auth, users.Logout)
		u.GET("/:id", users.Get)
		u.PUT("/:id/avatar", auth, users.UpdateAvatar)

		c := v1.Group("/cities")
		c.GET("", cities.List)
		c.GET("/by-name/:name", cities.GetByName)
		c.GET("/:id", cities.Get)
		c.GET("/:id/offers", offers.ListByCity)
		c.GET("/:id/premium", offers.Premium)
		c.POST("", auth, cities.Create)
		c.PATCH("/:id", auth, cities.Update)
		c.DELETE("/:id", auth, cities.Delete)

		o := v1.Group("/offers")
		o.GET("", offers.List)
		o.GET("/:id", offers.Get)
		o.POST("", auth, offers.Create)
		o.PATCH("/:id", auth, offers.Update)
		o.DELETE("/:id", auth, offers.Delete)
		o.GET("/:id/comments", comments.List)
		o.POST("/:id/comments", auth, comments.Create)

		f := v1.Group("/favorites", auth)
		f.GET("", offers.Favorites)
		f.POST("/:id", offers.AddFavorite)
		f.DELETE("/:id", offers.RemoveFavorite)
	}

	// Unknown paths still count against the public budget.
	notFound := append(append([]gin.HandlerFunc(nil), guard...), func(c *gin.Context) {
		dto.SendError(c, apperrors.ErrNotFound.WithMessage("route %s %s not found", c.Request.Method, c.Request.URL.Path))
	})
	e.NoRoute(notFound...)
}

func (r *Router) metricsHandler() http.Handler {
	if r.deps.Gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})
}

// Engine exposes the gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start serves until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
// Start 启动 HTTP 服务器，ctx 取消后优雅关闭。
func (r *Router) Start(ctx context.Context) error {
	cfg := r.deps.Server
	r.server = &http.Server{
		Addr:           cfg.Addr(),
		Handler:        r.engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info(ctx, "Starting HTTP server", logger.String("address", cfg.Addr()))
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r.logger.Info(shutdownCtx, "Shutting down HTTP server...")
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(shutdownCtx, "Server forced to shutdown", err)
		return err
	}
	r.logger.Info(shutdownCtx, "HTTP server stopped")
	return nil
}
