package influx

import (
	"context"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

const (
	DEFAULT_MEASUREMENT = "solcast2mqtt"
	DEFAULT_TIMEOUT     = 5 * time.Second
)

// Recorder writes every optimizer run to InfluxDB: one summary point at the run time and one
// point per simulated period at its period end.
type Recorder struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewRecorder returns nil when no InfluxDB url is configured.
func NewRecorder(cfg config.InfluxDBConfig, logger *zap.Logger) *Recorder {
	if cfg.URL == "" {
		return nil
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = DEFAULT_MEASUREMENT
	}
	timeout := DEFAULT_TIMEOUT
	if cfg.TimeoutMillis > 0 {
		timeout = time.Duration(cfg.TimeoutMillis) * time.Millisecond
	}
	return &Recorder{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
		timeout:     timeout,
		logger:      logger.With(zap.String("component", "influx")),
	}
}

// Ping checks the server is reachable and ready.
func (r *Recorder) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.client.Health(ctx); err != nil {
		return fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	return nil
}

func (r *Recorder) Record(ctx context.Context, out optimizer.Outcome, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	points := r.points(out, at)
	r.logger.Sugar().Debugf("influx: writing %d points", len(points))
	return r.writeAPI.WritePoint(ctx, points...)
}

func (r *Recorder) points(out optimizer.Outcome, at time.Time) []*write.Point {
	state := out.State.String()
	points := make([]*write.Point, 0, len(out.Trajectory.Periods)+1)
	points = append(points, write.NewPoint(
		r.measurement+"_run",
		map[string]string{"state": state},
		map[string]interface{}{
			"limit":          out.Limit,
			"iterations":     out.Iterations,
			"soc_min":        out.Trajectory.SoCMin,
			"soc_max":        out.Trajectory.SoCMax,
			"total_produced": out.Trajectory.TotalProduced,
			"total_consumed": out.Trajectory.TotalConsumed,
		},
		at,
	))
	for _, p := range out.Trajectory.Periods {
		points = append(points, write.NewPoint(
			r.measurement+"_trajectory",
			map[string]string{"state": state},
			map[string]interface{}{
				"battery_soc":   p.SoCEnd,
				"produced":      p.Produced,
				"consumed":      p.Consumed,
				"released":      p.Released,
				"retained":      p.Retained,
				"imported":      p.Imported,
				"exported":      p.Exported,
				"self_consumed": p.SelfConsumed,
			},
			p.PeriodEnd,
		))
	}
	return points
}

func (r *Recorder) Close() {
	r.client.Close()
}

// ensure interface compliance
var _ port.TrajectoryRecorder = (*Recorder)(nil)
