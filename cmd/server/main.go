package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alinaaved/snippet-review/internal/config"
	httpapi "github.com/alinaaved/snippet-review/internal/http"
	"github.com/alinaaved/snippet-review/internal/logger"
	"github.com/alinaaved/snippet-review/internal/service"
	"github.com/alinaaved/snippet-review/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	db, err := store.Open(cfg.Database)
	if err != nil {
		lg.Fatal("open database", "driver", cfg.Database.Driver, "error", err)
	}
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(db); err != nil {
			lg.Fatal("migrate database", "error", err)
		}
	}
	lg.Info("database ready", "driver", cfg.Database.Driver, "auto_migrate", cfg.Database.AutoMigrate)

	svc := service.New(store.New(db), lg)
	h := httpapi.NewHandler(svc, lg)
	r := httpapi.NewRouter(h, cfg.CORS, lg)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	go func() {
		lg.Info("listen", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("graceful shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	lg.Info("stopped")
}
