package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"storefront-backend/pkg/container"
	"storefront-backend/pkg/logger"
)

// Server owns the HTTP listener lifecycle: startup, signal handling,
// graceful drain.
type Server struct {
	container *container.Container
	engine    *gin.Engine
}

func NewServer(c *container.Container) *Server {
	if c.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	setupRouter(engine, c)

	return &Server{container: c, engine: engine}
}

// Run starts the listener and blocks until SIGINT/SIGTERM, then drains
// in-flight requests.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              ":" + s.container.Config.App.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", map[string]interface{}{
			"port": s.container.Config.App.Port,
			"env":  s.container.Config.App.Environment,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped", nil)
	return nil
}
