package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/nifty-data/internal/cli"
	"github.com/rickgao/nifty-data/internal/config"
	"github.com/rickgao/nifty-data/internal/model"
)

var today = time.Date(2025, 9, 10, 4, 0, 0, 0, time.UTC)

func TestLoadConfig_ArgsAndFlagsOverride(t *testing.T) {
	opts := options{outDir: t.TempDir(), format: config.SinkCSV, interval: 5}

	cfg, err := loadConfig(opts, []string{"NIFTY BANK", "2025-09-08"}, today)
	require.NoError(t, err)

	assert.Equal(t, "NIFTY BANK", cfg.Backfill.Symbol)
	assert.Equal(t, "2025-09-08", cfg.Backfill.StartDate)
	assert.Equal(t, opts.outDir, cfg.Sink.Dir)
	assert.Equal(t, config.SinkCSV, cfg.Sink.Format)
	assert.Equal(t, 5, cfg.Backfill.Interval)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(options{}, nil, today)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultSymbol, cfg.Backfill.Symbol)
	assert.Equal(t, config.DefaultStartDate, cfg.Backfill.StartDate)
	assert.Equal(t, config.SinkParquet, cfg.Sink.Format)
}

func TestLoadConfig_StartToday(t *testing.T) {
	_, err := loadConfig(options{}, []string{"NIFTY INDEX", "2025-09-10"}, today)
	assert.NoError(t, err)
}

func TestLoadConfig_StartAfterTodayIsConfigError(t *testing.T) {
	_, err := loadConfig(options{}, []string{"NIFTY INDEX", "2025-09-11"}, today)
	require.ErrorIs(t, err, model.ErrStartAfterToday)

	assert.Equal(t, cli.ExitConfig, cli.ExitCode(err))
	assert.Equal(t, cli.ExitConfig, cli.ExitCode(cli.ConfigError(err)))
}

func TestLoadConfig_InvalidFormat(t *testing.T) {
	_, err := loadConfig(options{format: "xlsx"}, nil, today)
	assert.ErrorContains(t, err, "sink.format")
}
