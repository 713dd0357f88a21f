package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/astralis-game/server/internal/cache"
	"github.com/astralis-game/server/internal/config"
	"github.com/astralis-game/server/internal/constellation"
	"github.com/astralis-game/server/internal/database"
	"github.com/astralis-game/server/internal/server"
)

func main() {
	cfg := config.Load()
	cfg.ConfigureLogging()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The server degrades gracefully without its backing stores: matches run
	// in memory, persistence and the action feed are skipped.
	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		logrus.WithError(err).Warn("running without database")
	} else {
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("schema setup failed")
		}
	}
	if err := cache.Init(ctx, cfg.RedisAddr, cfg.RedisPassword); err != nil {
		logrus.WithError(err).Warn("running without redis")
	}

	catalog := constellation.DefaultCatalog()
	if cfg.CatalogPath != "" {
		loaded, err := constellation.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			logrus.WithError(err).WithField("path", cfg.CatalogPath).
				Fatal("could not load constellation catalog")
		}
		catalog = loaded
	}
	logrus.WithField("cards", catalog.Size()).Info("constellation catalog loaded")

	srv := server.New(cfg, catalog)
	logrus.WithField("addr", cfg.ListenAddr).Info("listening")
	if err := http.ListenAndServe(cfg.ListenAddr, srv.RegisterRoutes()); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
