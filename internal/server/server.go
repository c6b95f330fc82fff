package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/mcjob/internal/job"
	"github.com/roach88/mcjob/internal/merge"
)

// shutdownTimeout bounds the graceful shutdown after ctx ends.
const shutdownTimeout = 5 * time.Second

// SetupRouter builds the routes for j.
func SetupRouter(j *job.Job, merger *merge.Merger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := NewJobHandler(j, merger)
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	{
		api.GET("/status", h.Status)
		api.GET("/status/:task", h.TaskStatus)
		api.GET("/results", h.Results)
		api.GET("/results/:task", h.TaskResults)
	}
	return r
}

// requestLogger logs every request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
