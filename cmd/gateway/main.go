package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/quizport/internal/api/http"
	auth "github.com/mind-engage/quizport/internal/auth/middleware"
	"github.com/mind-engage/quizport/internal/bank"
	"github.com/mind-engage/quizport/internal/config"
	"github.com/mind-engage/quizport/internal/db"
	"github.com/mind-engage/quizport/internal/logger"
	"github.com/mind-engage/quizport/internal/quiz"
	"github.com/mind-engage/quizport/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DB.Driver), cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("db open failed: %w", err)
	}
	defer dbh.Close()

	bs, err := storage.NewFSStore(cfg.Blob.BasePath)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	svc := quiz.NewService(quiz.Deps{
		Store:  bank.NewSQLStore(dbh),
		Blobs:  bs,
		IDs:    cfg.Export.IDs(),
		Export: cfg.Export.Options(),
		Logger: log.Named("quiz"),
	})

	// --- Auth (local JWT) ---
	authSvc := auth.NewAuthService(auth.Options{
		Secret:        cfg.Auth.HMACSecret,
		AdminUser:     cfg.Auth.AdminUser,
		AdminPassHash: cfg.Auth.AdminPassHash,
		DevLogin:      cfg.Mode == config.ModeOffline,
	})

	handler := api.NewRouter(api.RouterDeps{
		Service:     svc,
		Auth:        authSvc,
		Blobs:       bs,
		Logger:      log.Named("http"),
		CORSOrigins: cfg.CORSOrigins,
		LocalLogin:  cfg.Auth.EnableLocal,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop, cancelSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()
	errc := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DB.Driver),
		)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-stop.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
