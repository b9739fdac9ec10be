package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/chainsub/orchestrator/internal/api/routes"
	"github.com/chainsub/orchestrator/internal/app"
	"github.com/chainsub/orchestrator/internal/config"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	passphrase := os.Getenv("ORCHESTRATOR_SNAPSHOT_PASSPHRASE")
	if passphrase == "" {
		logrus.Fatal("ORCHESTRATOR_SNAPSHOT_PASSPHRASE must be set")
	}

	a, err := app.New(cfg, passphrase)
	if err != nil {
		logrus.WithError(err).Fatal("failed to construct orchestrator")
	}

	if !app.SnapshotExists(cfg.StateSnapshotPath) {
		logrus.Info("no state snapshot found, bootstrapping a new one")
		if err := a.Bootstrap(); err != nil {
			logrus.WithError(err).Fatal("failed to bootstrap state snapshot")
		}
	}
	if err := a.Postupgrade(); err != nil {
		logrus.WithError(err).Fatal("failed to restore state snapshot")
	}
	logrus.WithField("count", len(a.Subs.List())).Info("restored subscriptions, timers re-armed")

	r := mux.NewRouter()
	routes.Register(r, a)

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: r,
	}

	go func() {
		logrus.Infof("orchestrator listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logrus.Info("shutdown signal received, taking preupgrade snapshot")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http server shutdown did not complete cleanly")
	}

	if err := a.Preupgrade(); err != nil {
		logrus.WithError(err).Error("failed to save state snapshot on shutdown")
	}
	a.Shutdown()

	logrus.Info("shutdown complete")
}
