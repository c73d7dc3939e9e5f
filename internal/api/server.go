// Package api exposes a small read-only HTTP view over the ledger and
// the retry schedule, for dashboards and quick curl checks.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/config"
	"github.com/khaothykus/fieldmap-bot/internal/infrastructure/storage"
	"github.com/khaothykus/fieldmap-bot/internal/retry"
)

const defaultListLimit = 100

// Server is the HTTP status server. It never mutates anything: writes
// stay with the ledger CLI.
type Server struct {
	cfg        config.APIConfig
	retryState string
	repo       storage.MaintenanceRepository
	logger     *slog.Logger
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg config.APIConfig, retryStatePath string, repo storage.MaintenanceRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		cfg:        cfg,
		retryState: retryStatePath,
		repo:       repo,
		logger:     logger,
		router:     router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	{
		api.GET("/ledger/files", s.listFiles)
		api.GET("/ledger/semantic", s.listSemantic)
		api.GET("/ledger/stats", s.stats)
		api.GET("/retry/state", s.retrySchedule)
	}
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status api listening", "port", s.cfg.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listFiles(c *gin.Context) {
	if term := c.Query("q"); term != "" {
		records, err := s.repo.FindFiles(term)
		if err != nil {
			s.serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": records})
		return
	}

	records, err := s.repo.ListFiles(limitParam(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": records})
}

func (s *Server) listSemantic(c *gin.Context) {
	if term := c.Query("q"); term != "" {
		records, err := s.repo.FindSemantic(term)
		if err != nil {
			s.serverError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": records})
		return
	}

	records, err := s.repo.ListSemantic(limitParam(c))
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": records})
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.repo.Stats()
	if err != nil {
		s.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) retrySchedule(c *gin.Context) {
	st := retry.LoadState(s.retryState)
	c.JSON(http.StatusOK, gin.H{"entries": st})
}

func (s *Server) serverError(c *gin.Context, err error) {
	s.logger.Error("api request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func limitParam(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	return limit
}
