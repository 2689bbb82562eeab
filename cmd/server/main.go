// Command server is the task engine's single entrypoint: it wires the
// store, breaker registry, handler registry, runner, and HTTP surface,
// then runs until an interrupt or terminate signal triggers a graceful
// shutdown. Grounded on the teacher's cmd/main.go (env-gated run modes,
// a deferred Close, a bounded shutdown sequence).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/contentforge/taskengine/internal/admin"
	"github.com/contentforge/taskengine/internal/breaker"
	httpapi "github.com/contentforge/taskengine/internal/http"
	"github.com/contentforge/taskengine/internal/handlers"
	"github.com/contentforge/taskengine/internal/notify"
	"github.com/contentforge/taskengine/internal/platform/config"
	"github.com/contentforge/taskengine/internal/platform/logger"
	"github.com/contentforge/taskengine/internal/platform/tracing"
	"github.com/contentforge/taskengine/internal/revert"
	"github.com/contentforge/taskengine/internal/runner"
	"github.com/contentforge/taskengine/internal/runtime"
	"github.com/contentforge/taskengine/internal/store/pgstore"
)

func main() {
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load(log)

	shutdownTracing := tracing.Init(log)
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := pgstore.Migrate(db); err != nil {
		log.Fatal("failed to migrate task engine tables", "error", err)
	}
	taskStore := pgstore.New(db, log)

	breakerOverridesPath := os.Getenv("BREAKER_CONFIG_PATH")
	overrides, err := breaker.LoadOverridesYAML(breakerOverridesPath)
	if err != nil {
		log.Fatal("failed to load breaker overrides", "error", err, "path", breakerOverridesPath)
	}
	breakers := breaker.NewRegistry().WithOverrides(overrides)

	registry := runtime.NewRegistry()
	for _, h := range handlers.NewStubHandlers() {
		if err := registry.Register(h); err != nil {
			log.Fatal("failed to register handler", "error", err, "task_type", h.Type())
		}
	}

	var notifier notify.TaskNotifier = notify.NoopNotifier{}
	if redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); redisAddr != "" {
		rn, err := notify.NewRedisNotifier(redisAddr, os.Getenv("REDIS_TASKS_CHANNEL"), log)
		if err != nil {
			log.Warn("failed to initialize redis notifier, continuing without it", "error", err)
		} else {
			notifier = rn
			defer func() { _ = rn.Close() }()
		}
	}

	taskRunner := runner.New(runner.DefaultConfig(), taskStore, registry, breakers, notifier, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	taskRunner.Start(ctx)
	defer taskRunner.Stop()

	adminSvc := admin.NewService(taskStore, breakers)
	revertSvc := revert.NewService(taskStore)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		TaskHandler:    httpapi.NewTaskHandler(taskStore, adminSvc, revertSvc),
		CircuitHandler: httpapi.NewCircuitHandler(adminSvc),
		CORSOrigins:    cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info("task engine listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received, draining")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown error", "error", err)
	}
}
