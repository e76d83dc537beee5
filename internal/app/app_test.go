package app

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/cine-map/internal/config"
	"github.com/Clark-Hu/cine-map/internal/store"
	"github.com/Clark-Hu/cine-map/internal/store/storetest"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantLevel logrus.Level
		wantText  bool
	}{
		{"production json", config.Config{AppEnv: "production", LogLevel: "warn"}, logrus.WarnLevel, false},
		{"dev text", config.Config{AppEnv: "dev", LogLevel: "DEBUG"}, logrus.DebugLevel, true},
		{"unknown level", config.Config{LogLevel: "chatty"}, logrus.InfoLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.cfg)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			_, isText := logger.Formatter.(*logrus.TextFormatter)
			assert.Equal(t, tt.wantText, isText)
		})
	}
}

func TestBuild(t *testing.T) {
	pool, cleanup := storetest.New(t)
	defer cleanup()

	cfg := config.Config{
		TmdbURL:             "http://127.0.0.1:1/3",
		TmdbAccessToken:     "token",
		TmdbLanguage:        "fr-FR",
		ImageBaseURL:        "https://image.test/p",
		CatalogTimeoutSecs:  1,
		CatalogBatchSize:    5,
		AllocineURL:         "http://127.0.0.1:1",
		AllocineTimeoutSecs: 1,
		MapMinTitleLength:   3,
		MapMinMovies:        3,
		JobWorkers:          2,
		JobPollIntervalMS:   100,
		JobMaxAttempts:      3,
		JobTimeoutSecs:      5,
	}
	logger := logrus.New()
	app, err := Build(cfg, store.NewWithPool(pool, logger), logger)
	require.NoError(t, err)
	assert.NotNil(t, app.Repo)
	assert.NotNil(t, app.Pipeline)
	assert.NotNil(t, app.Maps)
	assert.NotNil(t, app.Worker)

	n, err := app.Worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
