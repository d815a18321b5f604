package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afdelacruz/stock-finder/internal/config"
)

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", humanBytes(512))
	assert.Equal(t, "1.5 KiB", humanBytes(1536))
	assert.Equal(t, "2.0 GiB", humanBytes(2<<30))
}

func TestLoadUniverse(t *testing.T) {
	cfg := config.Default()

	got, label, err := loadUniverse("aapl,msft", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
	assert.Equal(t, "cli", label)

	path := filepath.Join(t.TempDir(), "u.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol\nnvda\n"), 0o644))
	got, label, err = loadUniverse("", path, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, got)
	assert.Equal(t, path, label)

	cfg.Schedule.UniverseFile = path
	got, _, err = loadUniverse("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA"}, got)

	cfg.Schedule.UniverseFile = ""
	got, label, err = loadUniverse("", "", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, "default", label)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	verbose = false
	setupLogging("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	setupLogging("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	verbose = true
	defer func() { verbose = false }()
	setupLogging("error")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestMetricsMux(t *testing.T) {
	srv := httptest.NewServer(metricsMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
