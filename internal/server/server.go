package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/menta2k/detect-cropper/internal/logger"
	"github.com/menta2k/detect-cropper/internal/metrics"
	"github.com/menta2k/detect-cropper/pkg/form"
)

// Server exposes the form controller over HTTP
type Server struct {
	ctrl    *form.Controller
	metrics *metrics.Metrics
	router  *gin.Engine
}

// New builds the router. A nil m disables /metrics.
func New(ctrl *form.Controller, m *metrics.Metrics) *Server {
	s := &Server{ctrl: ctrl, metrics: m}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/labels", s.labels)
	r.GET("/api/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": s.ctrl.State()})
	})
	r.POST("/api/jobs", s.submit)
	r.GET("/api/jobs/:id", s.job)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	s.router = r
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log().Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Log().Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) labels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.ctrl.Labels().Names()})
}

func (s *Server) submit(c *gin.Context) {
	var in form.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.ctrl.Submit(in)
	switch {
	case errors.Is(err, form.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, form.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": job.Status()})
}

func (s *Server) job(c *gin.Context) {
	job, ok := s.ctrl.Job(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": job.Status()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log().Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
