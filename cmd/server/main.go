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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cine-map/internal/app"
	"github.com/Clark-Hu/cine-map/internal/config"
	httpserver "github.com/Clark-Hu/cine-map/internal/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := app.NewLogger(cfg)

	st, err := app.OpenStore(ctx, cfg, logger, cfg.DBAutoMigrate)
	if err != nil {
		logger.WithError(err).Fatal("server: open store")
	}
	defer st.Close()

	components, err := app.Build(cfg, st, logger)
	if err != nil {
		logger.WithError(err).Fatal("server: build components")
	}

	server := httpserver.New(cfg, httpserver.Deps{
		Store:    st,
		Repo:     components.Repo,
		Catalog:  components.Catalog,
		Importer: components.Pipeline,
		Maps:     components.Maps,
		Logger:   logger.WithField("component", "http"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return components.Worker.Run(gctx)
	})
	g.Go(func() error {
		return server.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server: stopped with error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("server: graceful shutdown")
	}
	logger.Info("server: bye")
}
