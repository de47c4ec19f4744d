package main

import (
	"context"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/config"
	httphandler "github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/http"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/logging"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/middleware"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/service"
	"github.com/himanshu-paliwal-277/tinylink-url-shortener/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// The redirect server only serves the hot path; the link management API is
// deployed separately via cmd/api.
func main() {
	cfg := config.Load()
	logger := logging.NewLogger(logging.LogLevel(cfg.LogLevel))
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn(ctx, "database not reachable at startup", "error", err.Error())
	}
	cancel()

	linkStorage := storage.NewPostgresLinkStorage(pool)
	linkService := service.NewLinkService(linkStorage, logger, service.Options{
		CodeLength:        cfg.CodeLength,
		ReuseDeletedCodes: cfg.CodeReuse,
	})
	handler := httphandler.NewHandler(linkService, cfg.AppEnv)

	r := chi.NewRouter()
	r.Use(middleware.Correlate)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Get("/healthz", handler.HealthCheck)
	r.Get("/{code:[A-Za-z0-9]{6,8}}", handler.Redirect)

	server := &stdhttp.Server{Addr: ":" + cfg.RedirectPort, Handler: r}

	go func() {
		logger.Info(ctx, "starting redirect server", "port", cfg.RedirectPort, "environment", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "shutdown error", "error", err.Error())
	}
	logger.Info(ctx, "server stopped")
}
