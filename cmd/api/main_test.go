package main

import (
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setConfigDefaults()
	viper.Set("solcast.url", "http://localhost/forecasts")

	var cfg config.Config
	require.NoError(t, viper.Unmarshal(&cfg))

	// two days of half-hour slots
	assert.Equal(t, forecast.MAX_HORIZON_SLOTS, cfg.Forecast.HorizonSlots)
	assert.Equal(t, string(forecast.MODE_ROLLING), cfg.Forecast.Mode)
	assert.Equal(t, 0.5, cfg.Forecast.ProductionScale)
	assert.False(t, cfg.Optimizer.RequireRecharge)
	assert.Equal(t, 5.0, cfg.Optimizer.SafetyMargin)
	assert.False(t, cfg.Controller.AuthorizeWrite)
	require.NoError(t, cfg.Validate())

	opts := cfg.BuilderOptions(nil)
	assert.Equal(t, 96, opts.Slots)
}
