package portmock

import (
	"context"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockForecastProvider struct {
	mock.Mock
}

var _ port.ForecastProvider = (*MockForecastProvider)(nil)

func (m *MockForecastProvider) Fetch(ctx context.Context) ([]forecast.Record, error) {
	args := m.Called(ctx)
	if records, ok := args.Get(0).([]forecast.Record); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockTrajectoryRecorder struct {
	mock.Mock
}

var _ port.TrajectoryRecorder = (*MockTrajectoryRecorder)(nil)

func (m *MockTrajectoryRecorder) Record(ctx context.Context, outcome optimizer.Outcome, at time.Time) error {
	args := m.Called(ctx, outcome, at)
	return args.Error(0)
}

func (m *MockTrajectoryRecorder) Close() {
	m.Called()
}
