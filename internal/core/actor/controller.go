package actor

import (
	"context"
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/consumption"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/core/events"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/optimizer"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"github.com/berfenger/solcast2mqtt/internal/core/schedule"
	. "github.com/berfenger/solcast2mqtt/internal/util/actorutil"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	CONTROLLER_MODBUS_TIMEOUT   = 6 * time.Second
	CONTROLLER_FORECAST_TIMEOUT = 30 * time.Second
	CONTROLLER_RECORD_TIMEOUT   = 10 * time.Second
)

var (
	ErrNoForecast        = errors.New("no forecast available")
	ErrReceiveTimeout    = errors.New("receive timeout")
	ErrControllerStopped = errors.New("controller stopped")
)

type pointsPurpose int

const (
	PURPOSE_COMMIT pointsPurpose = iota
	PURPOSE_OPTIMIZE
)

// ControllerActor drives the daily loop: consumption commits, forecast fetches, optimizer runs and
// limit writes. Device reads and writes go through the modbus actor.
type ControllerActor struct {
	ActorWithStates
	scheduler   *scheduler.TimerScheduler
	cancelTick  scheduler.CancelFunc
	stash       *Stash
	modbusActor *actor.PID
	eventStream *eventstream.EventStream
	config      *config.Config
	location    *time.Location
	logic       port.DischargeControlLogic
	provider    port.ForecastProvider
	store       port.SnapshotStore
	recorder    port.TrajectoryRecorder
	now         func() time.Time

	table    *consumption.Table
	tracker  *consumption.Tracker
	planner  *schedule.Planner
	forecast *forecast.Snapshot

	authorizeWrite  bool
	pendingCommit   *time.Time
	pendingForecast bool
	pendingOptimize bool

	lastOutcome *optimizer.Outcome
	lastRun     *time.Time
	lastCommit  *time.Time
	lastWritten *float64

	logger *zap.Logger
}

type controllerTick struct {
}

func (controllerTick) NotInfluenceReceiveTimeout() {}

type pointsRead struct {
	purpose pointsPurpose
	slot    time.Time
	values  domain.PointValues
	err     error
}

type forecastFetched struct {
	records   []forecast.Record
	fetchedAt time.Time
	err       error
}

// recorder may be nil when no time series database is configured.
func NewControllerActor(config *config.Config, modbusActor *actor.PID, eventStream *eventstream.EventStream,
	logic port.DischargeControlLogic, provider port.ForecastProvider, store port.SnapshotStore,
	recorder port.TrajectoryRecorder, logger *zap.Logger) *ControllerActor {
	loc, err := config.Location()
	if err != nil {
		loc = time.Local
	}
	act := &ControllerActor{
		config:         config,
		location:       loc,
		modbusActor:    modbusActor,
		eventStream:    eventStream,
		logic:          logic,
		provider:       provider,
		store:          store,
		recorder:       recorder,
		now:            time.Now,
		authorizeWrite: config.Controller.AuthorizeWrite,
		stash:          &Stash{},
		logger:         ActorLogger(domain.ACTOR_ID_CONTROLLER, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(ControllerStartingState{
		actor: act,
	})
	return act
}

func (state *ControllerActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type ControllerStartingState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerStartingState) Name() string {
	return "starting"
}

func (state ControllerStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("controller@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		if err := state.actor.init(); err != nil {
			state.actor.logger.Error("controller@starting: cannot start", zap.Error(err))
			state.actor.requestShutdown(ctx, err.Error())
			state.actor.Become(ControllerStoppedState{
				actor: state.actor,
			})
			state.actor.stash.UnstashAll(ctx)
			return
		}
		state.actor.publish(events.AuthorizeWriteSwitchUpdateEvent(state.actor.authorizeWrite))
		state.actor.publish(events.SafetyMarginInputNumberUpdateEvent(state.actor.logic.Policy().SafetyMargin))
		interval := state.actor.config.TickInterval()
		state.actor.cancelTick = state.actor.scheduler.RequestRepeatedly(interval, interval, ctx.Self(), controllerTick{})
		state.actor.Become(ControllerIdleState{
			actor: state.actor,
		})
		state.actor.stash.UnstashAll(ctx)
		state.actor.runPending(ctx)
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("controller@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state

type ControllerIdleState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerIdleState) Name() string {
	return "idle"
}

func (state ControllerIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("controller@idle: ActorHealthRequest")
		ctx.Respond(state.actor.health(true))
	case controllerTick:
		state.actor.onTick(ctx)
	case domain.ControllerRequest:
		state.actor.handleCommand(ctx, msg)
	case pointsRead:
		switch msg.purpose {
		case PURPOSE_COMMIT:
			state.actor.onCommitPoints(msg)
		case PURPOSE_OPTIMIZE:
			state.actor.onOptimizePoints(ctx, msg)
		}
	case forecastFetched:
		state.actor.onForecast(msg)
	case domain.WritePointResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("controller@idle: WritePointResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Info("controller@idle: max discharge power written", zap.Float64("limit", msg.Value))
			v := msg.Value
			state.actor.lastWritten = &v
		}
	case domain.ReadPointsResponse:
		// late response after a receive timeout
		state.actor.logger.Debug("controller@idle: late ReadPointsResponse dropped")
	case *actor.Stopping:
		state.actor.stop()
		return
	default:
		state.actor.logger.Debug("controller@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
	if state.actor.StateName() == state.Name() {
		state.actor.runPending(ctx)
	}
}

// Stopped state, reached when the controller cannot run or an external stop was requested.

type ControllerStoppedState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerStoppedState) Name() string {
	return "stopped"
}

func (state ControllerStoppedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("controller@stopped: ActorHealthRequest")
		ctx.Respond(state.actor.health(false))
	case domain.GetStatusRequest:
		ForRequest(msg).RespondIfAsked(ctx, domain.GetStatusResponse{Status: state.actor.status()})
	case domain.ControllerRequest:
		ForRequest(msg).RespondIfAsked(ctx, errorResponseFor(msg, ErrControllerStopped))
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("controller@stopped: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Await device points state

type ControllerAwaitPointsState struct {
	ActorState
	actor   *ControllerActor
	purpose pointsPurpose
	slot    time.Time
}

func (state ControllerAwaitPointsState) Name() string {
	return "awaitPoints"
}

func (state ControllerAwaitPointsState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ReadPointsResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("controller@awaitPoints: ReadPointsResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Debug("controller@awaitPoints: ReadPointsResponse", zap.Int("points", len(msg.Values)))
		}
		state.done(ctx, msg.Values, msg.GetResponseError())
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("controller@awaitPoints: ReceiveTimeout")
		state.done(ctx, nil, ErrReceiveTimeout)
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health(true))
	case controllerTick:
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("controller@awaitPoints: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state ControllerAwaitPointsState) done(ctx actor.Context, values domain.PointValues, err error) {
	ctx.Send(ctx.Self(), pointsRead{
		purpose: state.purpose,
		slot:    state.slot,
		values:  values,
		err:     err,
	})
	state.actor.UnbecomeStacked()
	state.actor.stash.UnstashAll(ctx)
}

func (state ControllerAwaitPointsState) OnEnterAction(ctx actor.Context, names []string) ControllerAwaitPointsState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.modbusActor,
		domain.ReadPointsRequest{Names: names}, CONTROLLER_MODBUS_TIMEOUT),
		func(err error) any {
			return domain.ReadPointsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(CONTROLLER_MODBUS_TIMEOUT + time.Second)
	return state
}

// Await forecast state

type ControllerAwaitForecastState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerAwaitForecastState) Name() string {
	return "awaitForecast"
}

func (state ControllerAwaitForecastState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case forecastFetched:
		ctx.SetReceiveTimeout(0)
		ctx.Send(ctx.Self(), msg)
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("controller@awaitForecast: ReceiveTimeout")
		ctx.Send(ctx.Self(), forecastFetched{err: ErrReceiveTimeout})
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health(true))
	case controllerTick:
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("controller@awaitForecast: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state ControllerAwaitForecastState) OnEnterAction(ctx actor.Context) ControllerAwaitForecastState {
	provider := state.actor.provider
	now := state.actor.now
	NewBackgroundTask(ctx, func() (*forecastFetched, error) {
		c, cancel := context.WithTimeout(context.Background(), CONTROLLER_FORECAST_TIMEOUT)
		defer cancel()
		records, err := provider.Fetch(c)
		if err != nil {
			return nil, err
		}
		return &forecastFetched{records: records, fetchedAt: now()}, nil
	}).Recover(func(err error) forecastFetched {
		return forecastFetched{err: err}
	}).PipeToAsync(ctx.Self())
	ctx.SetReceiveTimeout(CONTROLLER_FORECAST_TIMEOUT + time.Second)
	return state
}

// Await write state

type ControllerAwaitWriteState struct {
	ActorState
	actor *ControllerActor
}

func (state ControllerAwaitWriteState) Name() string {
	return "awaitWrite"
}

func (state ControllerAwaitWriteState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.WritePointResponse:
		ctx.SetReceiveTimeout(0)
		ctx.Send(ctx.Self(), msg)
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("controller@awaitWrite: ReceiveTimeout")
		ctx.Send(ctx.Self(), domain.WritePointResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: ErrReceiveTimeout,
			},
		})
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health(true))
	case controllerTick:
	case *actor.Stopping:
		state.actor.stop()
	default:
		state.actor.logger.Debug("controller@awaitWrite: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state ControllerAwaitWriteState) OnEnterAction(ctx actor.Context, limit float64) ControllerAwaitWriteState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.modbusActor,
		domain.WritePointRequest{Name: gx_modbus.POINT_MAX_DISCHARGE_POWER, Value: limit}, CONTROLLER_MODBUS_TIMEOUT),
		func(err error) any {
			return domain.WritePointResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Name:  gx_modbus.POINT_MAX_DISCHARGE_POWER,
				Value: limit,
			}
		})
	ctx.SetReceiveTimeout(CONTROLLER_MODBUS_TIMEOUT + time.Second)
	return state
}

// Other actor function helpers

func (state *ControllerActor) init() error {
	table, err := state.store.LoadHistory()
	if err != nil {
		return fmt.Errorf("consumption history: %w", err)
	}
	if missing := table.Missing(); len(missing) > 0 {
		state.logger.Warn("consumption history is incomplete", zap.Strings("missing", missing))
	}
	now := state.now()
	planner, err := schedule.NewPlanner(state.config.ScheduleOptions(state.location), now)
	if err != nil {
		return err
	}
	state.table = table
	state.planner = planner
	state.tracker = consumption.NewTracker(domain.MeterPoints())

	snapshot, err := state.store.LoadForecast()
	if err != nil {
		state.logger.Warn("cannot load last forecast", zap.Error(err))
	} else if snapshot != nil && snapshot.IsFresh(now, state.config.SnapshotMaxAge()) {
		state.logger.Info("using stored forecast", zap.Time("fetched_at", snapshot.FetchedAt))
		state.forecast = snapshot
		state.pendingOptimize = true
	}
	return nil
}

func (state *ControllerActor) onTick(ctx actor.Context) {
	kill, err := state.store.KillRequested()
	if err != nil {
		state.logger.Warn("controller: kill file check failed", zap.Error(err))
	}
	if kill {
		state.logger.Info("controller: stop requested")
		state.requestShutdown(ctx, "kill file")
		state.stop()
		state.Become(ControllerStoppedState{
			actor: state,
		})
		return
	}
	due, err := state.planner.Due(state.now())
	if err != nil {
		state.logger.Error("controller: schedule", zap.Error(err))
		return
	}
	for _, d := range due {
		switch d.Job {
		case schedule.JOB_DAY_ROLLOVER:
			state.logger.Debug("controller: day rollover")
			state.logic.ResetDay()
		case schedule.JOB_CONSUMPTION_COMMIT:
			slot := d.Slot.In(state.location)
			state.pendingCommit = &slot
		case schedule.JOB_FORECAST:
			state.pendingForecast = true
		}
	}
}

// runPending starts the next pending job. Commits go first so the slot key matches the boundary.
func (state *ControllerActor) runPending(ctx actor.Context) {
	switch {
	case state.pendingCommit != nil:
		slot := *state.pendingCommit
		state.pendingCommit = nil
		state.BecomeStacked(ControllerAwaitPointsState{
			actor:   state,
			purpose: PURPOSE_COMMIT,
			slot:    slot,
		}.OnEnterAction(ctx, state.tracker.Points()))
	case state.pendingForecast:
		state.pendingForecast = false
		state.BecomeStacked(ControllerAwaitForecastState{
			actor: state,
		}.OnEnterAction(ctx))
	case state.pendingOptimize:
		state.pendingOptimize = false
		if state.forecast == nil {
			state.logger.Debug("controller: optimizer skipped", zap.Error(ErrNoForecast))
			return
		}
		state.BecomeStacked(ControllerAwaitPointsState{
			actor:   state,
			purpose: PURPOSE_OPTIMIZE,
		}.OnEnterAction(ctx, domain.ParameterPoints()))
	}
}

func (state *ControllerActor) onCommitPoints(msg pointsRead) {
	values := msg.values
	if values == nil {
		values = domain.PointValues{}
	}
	u := state.tracker.Update(values)
	key := consumption.SlotKey(msg.slot)
	committed, err := state.table.Commit(key, u)
	if err != nil {
		state.logger.Error("controller: commit", zap.String("slot", key), zap.Error(err))
		return
	}
	if !committed {
		state.logger.Debug("controller: consumption not committed", zap.String("slot", key),
			zap.Int("fresh", u.FreshCount))
		return
	}
	value, _ := state.table.Get(key)
	state.logger.Info("controller: consumption committed", zap.String("slot", key), zap.Float64("kwh", value))
	at := msg.slot
	state.lastCommit = &at
	state.saveHistory()
	for _, ev := range events.ConsumptionUpdateEvents(value, state.table.Total()) {
		state.publish(ev)
	}
}

func (state *ControllerActor) onForecast(msg forecastFetched) {
	if msg.err != nil {
		state.logger.Error("controller: forecast fetch failed, keeping the previous one", zap.Error(msg.err))
		return
	}
	snapshot := forecast.Snapshot{
		FetchedAt: msg.fetchedAt,
		Forecasts: msg.records,
	}
	state.logger.Info("controller: forecast fetched", zap.Int("records", len(msg.records)))
	if err := state.store.SaveForecast(snapshot); err != nil {
		state.logger.Warn("controller: cannot save forecast", zap.Error(err))
	}
	state.forecast = &snapshot
	state.pendingOptimize = true
}

func (state *ControllerActor) onOptimizePoints(ctx actor.Context, msg pointsRead) {
	if msg.err != nil {
		state.logger.Warn("controller: optimizer skipped, device points unavailable", zap.Error(msg.err))
		return
	}
	params, err := domain.OptimizerParametersFrom(msg.values)
	if err != nil {
		state.logger.Warn("controller: optimizer skipped", zap.Error(err))
		return
	}
	if state.forecast == nil {
		return
	}
	now := state.now()
	outcome, err := state.logic.Run(state.forecast.Forecasts, state.table, params.SoC, params.Battery, now)
	if err != nil {
		state.logger.Error("controller: optimizer run failed", zap.Error(err))
		return
	}
	state.logger.Info("controller: optimizer run",
		zap.Float64("limit", outcome.Limit),
		zap.String("state", outcome.State.String()),
		zap.Int("iterations", outcome.Iterations))
	state.lastOutcome = &outcome
	state.lastRun = &now

	for _, ev := range events.OutcomeToUpdateEvents(outcome) {
		state.publish(ev)
	}
	state.publish(events.TrajectoryUpdate(outcome, now))
	state.record(ctx, outcome, now)

	if state.logic.ShouldWrite(state.authorizeWrite, outcome.Limit, params.CurrentLimitW) {
		state.logger.Info("controller: writing max discharge power",
			zap.Float64("current", params.CurrentLimitW), zap.Float64("limit", outcome.Limit))
		state.BecomeStacked(ControllerAwaitWriteState{
			actor: state,
		}.OnEnterAction(ctx, outcome.Limit))
	}
}

func (state *ControllerActor) record(ctx actor.Context, outcome optimizer.Outcome, at time.Time) {
	if state.recorder == nil {
		return
	}
	recorder := state.recorder
	logger := state.logger
	NewBackgroundTaskErr(ctx, func() error {
		c, cancel := context.WithTimeout(context.Background(), CONTROLLER_RECORD_TIMEOUT)
		defer cancel()
		return recorder.Record(c, outcome, at)
	}).OnError(func(err error) {
		logger.Warn("controller: cannot record trajectory", zap.Error(err))
	}).RunAsync()
}

func (state *ControllerActor) handleCommand(ctx actor.Context, req domain.ControllerRequest) {
	switch cmd := req.(type) {
	case domain.AuthorizeWriteRequest:
		state.logger.Sugar().Debugf("controller@%s: cmd authorize write %t", state.StateName(), cmd.Enable)
		changed := state.authorizeWrite != cmd.Enable
		state.authorizeWrite = cmd.Enable
		state.publish(events.AuthorizeWriteSwitchUpdateEvent(cmd.Enable))
		if changed && cmd.Enable {
			state.pendingOptimize = true
		}
		ForRequest(cmd).RespondIfAsked(ctx, domain.AuthorizeWriteResponse{Changed: changed})
	case domain.SetSafetyMarginRequest:
		state.logger.Sugar().Debugf("controller@%s: cmd safety margin %.1f", state.StateName(), cmd.Value)
		policy := state.logic.Policy()
		changed := policy.SafetyMargin != cmd.Value
		policy.SafetyMargin = cmd.Value
		if err := state.logic.SetPolicy(policy); err != nil {
			state.logger.Warn("controller: safety margin rejected", zap.Error(err))
			state.publish(events.SafetyMarginInputNumberUpdateEvent(state.logic.Policy().SafetyMargin))
			ForRequest(cmd).RespondIfAsked(ctx, errorResponseFor(cmd, err))
			return
		}
		state.publish(events.SafetyMarginInputNumberUpdateEvent(cmd.Value))
		if changed {
			state.pendingOptimize = true
		}
		ForRequest(cmd).RespondIfAsked(ctx, domain.SetSafetyMarginResponse{Changed: changed})
	case domain.RefreshForecastRequest:
		state.pendingForecast = true
		ForRequest(cmd).RespondIfAsked(ctx, domain.RefreshForecastResponse{Queued: true})
	case domain.GetStatusRequest:
		ForRequest(cmd).RespondIfAsked(ctx, domain.GetStatusResponse{Status: state.status()})
	case domain.GetConsumptionRequest:
		ForRequest(cmd).RespondIfAsked(ctx, domain.GetConsumptionResponse{
			Table: state.table.Values(),
			Total: state.table.Total(),
		})
	default:
		state.logger.Debug("controller: unknown command", zap.String("type", fmt.Sprintf("%T", cmd)))
	}
}

func errorResponseFor(req domain.ControllerRequest, err error) domain.ActorResponse {
	mixIn := domain.ControllerResponseMixIn{ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err}}
	switch req.(type) {
	case domain.AuthorizeWriteRequest:
		return domain.AuthorizeWriteResponse{ControllerResponseMixIn: mixIn}
	case domain.SetSafetyMarginRequest:
		return domain.SetSafetyMarginResponse{ControllerResponseMixIn: mixIn}
	case domain.RefreshForecastRequest:
		return domain.RefreshForecastResponse{ControllerResponseMixIn: mixIn}
	case domain.GetConsumptionRequest:
		return domain.GetConsumptionResponse{ControllerResponseMixIn: mixIn}
	}
	return domain.GetStatusResponse{ControllerResponseMixIn: mixIn}
}

func (state *ControllerActor) status() domain.ControllerStatus {
	s := domain.ControllerStatus{
		State:             state.StateName(),
		AuthorizeWrite:    state.authorizeWrite,
		LastCommit:        state.lastCommit,
		LastRun:           state.lastRun,
		LastWrittenLimitW: state.lastWritten,
	}
	if state.forecast != nil {
		fetchedAt := state.forecast.FetchedAt
		s.LastForecast = &fetchedAt
		s.ForecastRecords = len(state.forecast.Forecasts)
	}
	if state.planner != nil {
		if next, ok := state.planner.Next(schedule.JOB_FORECAST); ok {
			s.NextForecast = &next
		}
		if next, ok := state.planner.Next(schedule.JOB_CONSUMPTION_COMMIT); ok {
			s.NextCommit = &next
		}
	}
	if state.lastOutcome != nil {
		s.Optimizer = domain.OptimizerStatusFrom(*state.lastOutcome)
		trajectory := events.EncodeTrajectory(*state.lastOutcome, *state.lastRun)
		s.Trajectory = &trajectory
	}
	return s
}

func (state *ControllerActor) health(healthy bool) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CONTROLLER,
		Healthy: healthy,
		State:   state.StateName(),
	}
}

func (state *ControllerActor) publish(event any) {
	if state.eventStream != nil {
		state.eventStream.Publish(event)
	}
}

func (state *ControllerActor) saveHistory() {
	if state.table == nil {
		return
	}
	if err := state.store.SaveHistory(state.table); err != nil {
		state.logger.Error("controller: cannot save consumption history", zap.Error(err))
	}
}

func (state *ControllerActor) requestShutdown(ctx actor.Context, reason string) {
	if ctx.Parent() == nil {
		return
	}
	ctx.Send(ctx.Parent(), domain.ShutdownRequest{
		Reason: reason,
		At:     state.now(),
	})
}

// stop cancels the tick and persists the table. Safe to call more than once.
func (state *ControllerActor) stop() {
	if state.cancelTick != nil {
		state.cancelTick()
		state.cancelTick = nil
		state.saveHistory()
	}
}
