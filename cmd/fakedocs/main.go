package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhandras/kixsync/internal/config"
	"github.com/bhandras/kixsync/internal/fakedocs"
	"github.com/bhandras/kixsync/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	fs := flag.NewFlagSet("fakedocs", flag.ContinueOnError)
	port := fs.String("port", cfg.Port, "Listen port")
	docID := fs.String("doc", "demo", "Id of the document to serve")
	content := fs.String("content", "", "Initial document body")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := fakedocs.New(fakedocs.Config{
		PollWindow: cfg.PollWindow,
		Debug:      cfg.Debug,
	})
	srv.CreateDocument(*docID, *content)

	httpSrv := &http.Server{
		Addr:              ":" + *port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Fake document service on http://localhost:%s/document/d/%s/edit", *port, *docID)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
