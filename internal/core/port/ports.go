package port

import (
	"context"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/simulator"
	"time"
)

type DischargeControlLogic interface {
	Run(records []forecast.Record, table *consumption.Table, startSoC float64,
		battery simulator.Battery, now time.Time) (optimizer.Outcome, error)
	ShouldWrite(authorized bool, limit float64, current float64) bool
	ResetDay()
	Policy() optimizer.Policy
	SetPolicy(policy optimizer.Policy) error
}

// ForecastProvider fetches the production forecast for the coming periods.
type ForecastProvider interface {
	Fetch(ctx context.Context) ([]forecast.Record, error)
}

// SnapshotStore persists the consumption table and the last fetched forecast.
type SnapshotStore interface {
	LoadHistory() (*consumption.Table, error)
	SaveHistory(table *consumption.Table) error
	LoadForecast() (*forecast.Snapshot, error)
	SaveForecast(snapshot forecast.Snapshot) error
	// KillRequested reports, and consumes, an external stop request.
	KillRequested() (bool, error)
}

type TrajectoryRecorder interface {
	Record(ctx context.Context, outcome optimizer.Outcome, at time.Time) error
	Close()
}
