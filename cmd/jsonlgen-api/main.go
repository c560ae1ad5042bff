package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmrzaf/jsonlgen/internal/api"
	"github.com/mmrzaf/jsonlgen/internal/app"
	"github.com/mmrzaf/jsonlgen/internal/config"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/runs"
	"github.com/mmrzaf/jsonlgen/internal/infra/repos/schemas"
	"github.com/mmrzaf/jsonlgen/internal/logging"
	"github.com/mmrzaf/jsonlgen/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger("error").Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "config"})
		os.Exit(1)
	}

	runsDB := flag.String("runs-db", cfg.RunsDB, "Run history database (SQLite path or PostgreSQL DSN)")
	bindAddr := flag.String("bind", cfg.BindAddr, "Bind address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level")
	flag.Parse()

	logger := logging.NewLogger(*logLevel).WithComponent("api_main")

	runRepo := runs.Open(*runsDB)
	if err := runRepo.Init(); err != nil {
		logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "init_run_repo"})
		os.Exit(1)
	}
	defer runRepo.Close()

	schemaRepo := schemas.NewFileRepository(logger.WithComponent("schema"))
	runService := app.NewRunService(schemaRepo, runRepo, registry.DefaultGeneratorRegistry(), logger.WithComponent("run_service"))
	handler := api.NewHandler(runService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plan", handler.Plan)
	mux.HandleFunc("POST /api/v1/generate", handler.Generate)
	mux.HandleFunc("GET /api/v1/runs", handler.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", handler.GetRun)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              *bindAddr,
		Handler:           loggingMiddleware(logger.WithComponent("http"), mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("startup.listening", map[string]any{"bind": *bindAddr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("startup.failed", map[string]any{"error": err.Error(), "stage": "listen"})
			runRepo.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("shutdown.incomplete", map[string]any{"error": err.Error()})
		}
		logger.Infow("shutdown.completed", nil)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(started).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if sw.status >= 500 {
			logger.Errorw("request.completed", fields)
			return
		}
		if sw.status >= 400 {
			logger.Warnw("request.completed", fields)
			return
		}
		logger.Infow("request.completed", fields)
	})
}
