// Package apihttp serves the desk API: decision history, portfolio state,
// backtest results and a manual cycle trigger.
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"alphadesk/internal/logger"
	"alphadesk/internal/portfolio"
	"alphadesk/internal/runner"
	"alphadesk/internal/store/decisionlog"
	"alphadesk/internal/store/gormstore"

	"github.com/gin-gonic/gin"
)

// ServerConfig describes the server's dependencies. Decisions and State are
// required; Backtests and Cycles are optional and their routes go 503 when
// absent.
type ServerConfig struct {
	Addr      string
	Decisions *decisionlog.Store
	State     *portfolio.State
	Backtests *gormstore.Store
	Cycles    *runner.Runner
}

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Decisions == nil {
		return nil, errors.New("api server requires a decision log store")
	}
	if cfg.State == nil {
		return nil, errors.New("api server requires portfolio state")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9880"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := NewRouter(cfg.Decisions, cfg.State, cfg.Backtests, cfg.Cycles)
	api.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx cancellation or a listener error.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
