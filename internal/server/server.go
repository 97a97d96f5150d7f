package server

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/wrbnet/wrbhost/internal/api/http"
	"github.com/wrbnet/wrbhost/internal/api/middleware"
	"github.com/wrbnet/wrbhost/internal/infrastructure/logging"
	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
	"github.com/wrbnet/wrbhost/internal/runtime"
)

// Config contains debug server settings.
type Config struct {
	Addr string
}

// Server is the optional local debug surface. It never mutates the page;
// every route reads runtime state or Prometheus counters.
type Server struct {
	engine  *gin.Engine
	httpSrv *nethttp.Server
	log     *logging.Logger
}

// New wires the debug router over the runtime.
func New(cfg Config, rt *runtime.Runtime, metrics *monitoring.Metrics, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	handlers := apihttp.NewDebugHandlers(rt, metrics)

	engine.GET("/health", handlers.Health)

	state := engine.Group("/state")
	{
		state.GET("/snapshot", handlers.Snapshot)
		state.GET("/viewports", handlers.Viewports)
		state.GET("/sessions", handlers.Sessions)
		state.GET("/last_error", handlers.LastError)
		state.GET("/ops", handlers.Ops)
	}

	if metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			metrics.Registry(),
			promhttp.HandlerOpts{},
		)))
	}

	return &Server{
		engine: engine,
		httpSrv: &nethttp.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() nethttp.Handler {
	return s.engine
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("debug server listening", zap.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, nethttp.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("debug server shutting down")
	return s.httpSrv.Shutdown(ctx)
}
