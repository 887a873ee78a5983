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

	"opsboard.dev/internal/audit"
	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/config"
	"opsboard.dev/internal/httpapi"
	"opsboard.dev/internal/migrate"
	"opsboard.dev/internal/obs"
	"opsboard.dev/internal/org"
	"opsboard.dev/internal/store/pg"
	"opsboard.dev/internal/task"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.DatabaseDSN == "" {
		log.Fatal("missing DSN: set OPSBOARD_PG_DSN")
	}
	store, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrate.NewRunner(store.DB(), "migrations").Up(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatalf("migrate up: %v", err)
	}
	cancelMigrate()

	signer, err := auth.NewTokenSigner(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token signer: %v", err)
	}
	directory, err := org.NewDirectory(store)
	if err != nil {
		log.Fatalf("org directory: %v", err)
	}
	recorder, err := audit.NewRecorder(store)
	if err != nil {
		log.Fatalf("audit recorder: %v", err)
	}
	authSvc, err := auth.NewService(store, directory, signer)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	taskSvc, err := task.NewService(store, directory, recorder)
	if err != nil {
		log.Fatalf("task service: %v", err)
	}

	if cfg.SeedDemo {
		seedDemoAccount(authSvc)
	}

	api := httpapi.New(httpapi.Config{
		Ready:   httpapi.ReadyProbe{DB: store.DB()},
		Auth:    authSvc,
		Tokens:  signer,
		Tasks:   taskSvc,
		Audit:   recorder,
		Version: version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting opsboard-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

// seedDemoAccount registers the demo login used by local environments.
// An already-registered demo account is not an error.
func seedDemoAccount(svc *auth.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := svc.Register(ctx, "sai@test.com", "123456", "Sai")
	if err != nil && !errors.Is(err, auth.ErrConflict) {
		log.Printf("seed demo account: %v", err)
	}
}
