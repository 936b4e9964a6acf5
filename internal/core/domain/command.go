package domain

import (
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"time"
)

// ControllerRequest

type ControllerRequest interface {
	ActorRequest
	ControllerCommand() string
}

type ControllerRequestMixIn struct {
	ActorRequestMixIn
}

func (r ControllerRequestMixIn) ControllerCommand() string {
	return fmt.Sprintf("%T", r)
}

// ControllerResponse

type ControllerResponse interface {
	ActorResponse
	ControllerResponse() string
}

type ControllerResponseMixIn struct {
	ActorResponseMixIn
}

func (r ControllerResponseMixIn) ControllerResponse() string {
	return fmt.Sprintf("%T", r)
}

// Controller commands

type AuthorizeWriteRequest struct {
	ControllerRequestMixIn
	Enable bool
}

type AuthorizeWriteResponse struct {
	ControllerResponseMixIn
	Changed bool
}

// SetSafetyMarginRequest changes the SoC margin kept above the minimum SoC limit.
type SetSafetyMarginRequest struct {
	ControllerRequestMixIn
	Value float64
}

type SetSafetyMarginResponse struct {
	ControllerResponseMixIn
	Changed bool
}

// RefreshForecastRequest fetches a new forecast and runs the optimizer out of schedule.
type RefreshForecastRequest struct {
	ControllerRequestMixIn
}

type RefreshForecastResponse struct {
	ControllerResponseMixIn
	Queued bool
}

type GetStatusRequest struct {
	ControllerRequestMixIn
}

type GetStatusResponse struct {
	ControllerResponseMixIn
	Status ControllerStatus
}

type GetConsumptionRequest struct {
	ControllerRequestMixIn
}

type GetConsumptionResponse struct {
	ControllerResponseMixIn
	Table map[string]float64
	Total float64
}

// ControllerStatus is a snapshot of the controller state served over HTTP.
type ControllerStatus struct {
	State             string             `json:"state"`
	AuthorizeWrite    bool               `json:"authorize_write"`
	LastCommit        *time.Time         `json:"last_commit,omitempty"`
	LastForecast      *time.Time         `json:"last_forecast,omitempty"`
	LastRun           *time.Time         `json:"last_run,omitempty"`
	LastWrittenLimitW *float64           `json:"last_written_limit,omitempty"`
	ForecastRecords   int                `json:"forecast_records"`
	NextForecast      *time.Time         `json:"next_forecast,omitempty"`
	NextCommit        *time.Time         `json:"next_commit,omitempty"`
	Optimizer         *OptimizerStatus   `json:"optimizer,omitempty"`
	Trajectory        *TrajectoryPayload `json:"trajectory,omitempty"`
}

type OptimizerStatus struct {
	Limit      float64 `json:"limit"`
	State      string  `json:"state"`
	Iterations int     `json:"iterations"`
	SoCMin     float64 `json:"soc_min"`
	SoCMax     float64 `json:"soc_max"`
}

func OptimizerStatusFrom(out optimizer.Outcome) *OptimizerStatus {
	return &OptimizerStatus{
		Limit:      out.Limit,
		State:      out.State.String(),
		Iterations: out.Iterations,
		SoCMin:     out.Trajectory.SoCMin,
		SoCMax:     out.Trajectory.SoCMax,
	}
}

// ensure interface compliance
var _ ControllerRequest = (*AuthorizeWriteRequest)(nil)
var _ ControllerRequest = (*SetSafetyMarginRequest)(nil)
var _ ControllerRequest = (*RefreshForecastRequest)(nil)
var _ ControllerRequest = (*GetStatusRequest)(nil)
var _ ControllerRequest = (*GetConsumptionRequest)(nil)
