package actor

import (
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"github.com/berfenger/solcast2mqtt/internal/util/actorutil"
	"github.com/berfenger/solcast2mqtt/pkg/gx_modbus"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	MODBUS_ACTOR_ID = "modbus"
	MODBUS_TIMEOUT  = 5 * time.Second
)

var ErrNoPointRead = errors.New("no point could be read")

type ModbusActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   gx_modbus.PointReader
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(reader gx_modbus.PointReader, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		reader:   reader,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(MODBUS_ACTOR_ID, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started")
		if err := state.reader.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.reader.Close()
	default:
		state.logger.Debug("modbus@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      MODBUS_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.ReadPointsRequest:
		state.logger.Debug("modbus@default: ReadPointsRequest", zap.Strings("points", msg.Names))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		names := msg.Names
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.ReadPointsResponse, error) {
			return state.readPoints(names)
		}), mapTaskResult[domain.ReadPointsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadPointsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(MODBUS_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.WritePointRequest:
		state.logger.Debug("modbus@default: WritePointRequest", zap.String("point", msg.Name), zap.Float64("value", msg.Value))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		name, value := msg.Name, msg.Value
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.WritePointResponse, error) {
			if err := state.reader.WritePoint(name, value); err != nil {
				return nil, err
			}
			return &domain.WritePointResponse{Name: name, Value: value}, nil
		}), mapTaskResult[domain.WritePointResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.WritePointResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Name:  name,
					Value: value,
				},
				replyTo: sender,
			}
		}).WithTimeout(MODBUS_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.reader.Close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// readPoints returns the points that could be read. Unreadable points are left out so callers
// see them as unavailable.
func (a *ModbusActor) readPoints(names []string) (*domain.ReadPointsResponse, error) {
	values := domain.PointValues{}
	var lastErr error
	for _, name := range names {
		v, err := a.reader.ReadPoint(name)
		if err != nil {
			a.logger.Warn("modbus: point unavailable", zap.String("point", name), zap.Error(err))
			lastErr = err
			continue
		}
		values[name] = v
	}
	if len(names) > 0 && len(values) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoPointRead, lastErr)
	}
	return &domain.ReadPointsResponse{Values: values}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
