package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/events"
	"github.com/mcastell/chargecap/internal/core/port"
	. "github.com/mcastell/chargecap/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// LimiterActor drives the charge-limit control loop. It samples the battery
// through the power supply actor, feeds the sample to the decision logic and
// gates actuator commands on the charging-suppressed flag so enable/disable
// are only issued on state transitions.
type LimiterActor struct {
	ActorWithStates
	scheduler        *scheduler.TimerScheduler
	stash            *Stash
	powerSupplyActor *actor.PID
	logic            port.LimiterLogic
	eventStream      *eventstream.EventStream

	lowerThreshold int
	upperThreshold int
	suppressed     bool
	cutoffPending  bool
	cancelTick     scheduler.CancelFunc
	nextTickDelay  time.Duration

	logger *zap.Logger
}

type limiterTick struct {
}

func NewLimiterActor(logic port.LimiterLogic, lowerThreshold, upperThreshold int, powerSupplyActor *actor.PID,
	eventStream *eventstream.EventStream, logger *zap.Logger) *LimiterActor {
	act := &LimiterActor{
		logic:            logic,
		powerSupplyActor: powerSupplyActor,
		stash:            &Stash{},
		logger:           ActorLogger(domain.ACTOR_ID_LIMITER, logger),
		eventStream:      eventStream,
		lowerThreshold:   logic.ClampLowerThreshold(lowerThreshold, upperThreshold),
		upperThreshold:   upperThreshold,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.upperThreshold = logic.ClampUpperThreshold(upperThreshold, act.lowerThreshold)
	act.Become(LimiterStoppedState{
		actor: act,
	})
	return act
}

func (state *LimiterActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Stopped state. The loop is not ticking and charging is untouched.

type LimiterStoppedState struct {
	ActorState
	actor *LimiterActor
}

func (state LimiterStoppedState) Name() string {
	return "stopped"
}

func (state LimiterStoppedState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("limiter@stopped started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.updateThresholds()
		state.actor.updateEnabledSwitchState(false)
	case *actor.Restarting:
		if state.actor.cancelTick != nil {
			state.actor.cancelTick()
		}
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("limiter@stopped: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_LIMITER,
			Healthy: true,
			State:   state.Name(),
		})
	case limiterTick:
		// stale tick from a cancelled schedule
	case domain.LimiterRequest:
		switch cmd := msg.(type) {
		case domain.LimiterEnableRequest:
			state.actor.logger.Sugar().Debugf("limiter@stopped: cmd enable %t", cmd.Enable)
			if cmd.Enable {
				state.actor.suppressed = false
				state.actor.cutoffPending = false
				state.actor.cancelTick = state.actor.scheduler.RequestOnce(state.actor.logic.TickInterval(), ctx.Self(), limiterTick{})
				state.actor.Become(LimiterRunningState{
					actor: state.actor,
				})
				state.actor.updateEnabledSwitchState(true)
				ForRequest(cmd).Respond(ctx, domain.LimiterEnableResponse{
					Enabled: true,
					Changed: true,
				})
			} else {
				ForRequest(cmd).Respond(ctx, domain.LimiterEnableResponse{
					Enabled: false,
					Changed: false,
				})
			}
		default:
			state.actor.handleCommonCommand(ctx, msg, false)
		}
	default:
		state.actor.logger.Debug("limiter@stopped: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Running state. Ticks are scheduled and every sample runs the decision logic.

type LimiterRunningState struct {
	ActorState
	actor *LimiterActor
}

func (state LimiterRunningState) Name() string {
	return "running"
}

func (state LimiterRunningState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("limiter@running: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_LIMITER,
			Healthy: true,
			State:   state.Name(),
		})
	case limiterTick:
		state.actor.logger.Debug("limiter@running limiterTick")
		state.actor.BecomeStacked(LimiterAwaitChargeStateState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.GetChargeStateResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			// sensor fault, retry after backoff without touching the actuator
			state.actor.logger.Warn("limiter@running: charge state lookup failed", zap.Error(msg.GetResponseError()))
			state.actor.cancelTick = state.actor.scheduler.RequestOnce(state.actor.logic.FaultBackoff(), ctx.Self(), limiterTick{})
			return
		}
		state.onChargeState(ctx, msg.ChargeState)
	case domain.SetChargingResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			// suppressed flag only flips on actuator success
			state.actor.logger.Error("limiter@running: actuator failed", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.setSuppressed(!msg.Enable)
		}
		state.actor.cancelTick = state.actor.scheduler.RequestOnce(state.actor.nextTickDelay, ctx.Self(), limiterTick{})
	case domain.LimiterRequest:
		switch cmd := msg.(type) {
		case domain.LimiterEnableRequest:
			state.actor.logger.Sugar().Debugf("limiter@running: cmd enable %t", cmd.Enable)
			if cmd.Enable {
				ForRequest(cmd).Respond(ctx, domain.LimiterEnableResponse{
					Enabled: true,
					Changed: false,
				})
			} else {
				if state.actor.cancelTick != nil {
					state.actor.cancelTick()
				}
				state.actor.Become(LimiterStoppingState{
					actor: state.actor,
				}.OnEnterAction(ctx, ForRequest(cmd).ReplyTo(ctx)))
			}
		default:
			state.actor.handleCommonCommand(ctx, msg, true)
		}
	default:
		state.actor.logger.Debug("limiter@running: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state LimiterRunningState) onChargeState(ctx actor.Context, sample domain.ChargeState) {
	act := state.actor
	act.logger.Debug("limiter@running: sample",
		zap.Int("percent", sample.Percent),
		zap.Int("status", int(sample.Status)),
		zap.Bool("usb_present", sample.USBPresent))

	act.publishChargeState(sample)

	result := act.logic.Tick(sample, act.lowerThreshold, act.upperThreshold, act.cutoffPending)
	act.cutoffPending = result.CutoffPending
	act.nextTickDelay = result.NextTick

	switch result.Action {
	case domain.ChargeActionEnable:
		if act.suppressed {
			act.BecomeStacked(LimiterAwaitActuatorState{
				actor: act,
			}.OnEnterAction(ctx, true))
			return
		}
	case domain.ChargeActionDisable:
		if !act.suppressed {
			act.BecomeStacked(LimiterAwaitActuatorState{
				actor: act,
			}.OnEnterAction(ctx, false))
			return
		}
	}
	act.cancelTick = act.scheduler.RequestOnce(result.NextTick, ctx.Self(), limiterTick{})
}

// Stopping state. The loop is being shut down: charging is force-enabled
// best-effort and the requester only gets its reply once the actuator
// exchange has finished.

type LimiterStoppingState struct {
	ActorState
	actor   *LimiterActor
	replyTo *actor.PID
}

func (state LimiterStoppingState) Name() string {
	return "stopping"
}

func (state LimiterStoppingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.SetChargingResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("limiter@stopping: force enable failed", zap.Error(msg.GetResponseError()))
		}
		state.finish(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Error("limiter@stopping: force enable timed out")
		state.finish(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_LIMITER,
			Healthy: true,
			State:   state.Name(),
		})
	case limiterTick:
		// stale tick, the schedule was cancelled on entry
	default:
		state.actor.logger.Debug("limiter@stopping: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state LimiterStoppingState) finish(ctx actor.Context) {
	state.actor.suppressed = false
	state.actor.cutoffPending = false
	state.actor.Become(LimiterStoppedState{
		actor: state.actor,
	})
	state.actor.updateEnabledSwitchState(false)
	state.actor.updateSuppressed(false)
	if state.replyTo != nil {
		ctx.Send(state.replyTo, domain.LimiterEnableResponse{
			Enabled: false,
			Changed: true,
		})
	}
	state.actor.stash.UnstashAll(ctx)
}

func (state LimiterStoppingState) OnEnterAction(ctx actor.Context, replyTo *actor.PID) LimiterStoppingState {
	state.replyTo = replyTo
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.powerSupplyActor,
		domain.SetChargingRequest{Enable: true}, 2*time.Second),
		func(err error) any {
			return domain.SetChargingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Enable: true,
			}
		})
	ctx.SetReceiveTimeout(3 * time.Second)
	return state
}

// Await charge state response state

type LimiterAwaitChargeStateState struct {
	ActorState
	actor *LimiterActor
}

func (state LimiterAwaitChargeStateState) Name() string {
	return "awaitChargeState"
}

func (state LimiterAwaitChargeStateState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetChargeStateResponse:
		ctx.SetReceiveTimeout(0)
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("limiter@awaitChargeState: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.GetChargeStateResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("limiter@awaitChargeState: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state LimiterAwaitChargeStateState) OnEnterAction(ctx actor.Context) LimiterAwaitChargeStateState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.powerSupplyActor,
		domain.GetChargeStateRequest{}, 2*time.Second),
		func(err error) any {
			return domain.GetChargeStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(3 * time.Second)
	return state
}

// Await actuator response state

type LimiterAwaitActuatorState struct {
	ActorState
	actor *LimiterActor
}

func (state LimiterAwaitActuatorState) Name() string {
	return "awaitActuator"
}

func (state LimiterAwaitActuatorState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.SetChargingResponse:
		ctx.SetReceiveTimeout(0)
		ctx.RequestWithCustomSender(ctx.Self(), msg, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("limiter@awaitActuator: ReceiveTimeout")
		ctx.RequestWithCustomSender(ctx.Self(), domain.SetChargingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		}, ctx.Sender())
		state.actor.UnbecomeStacked()
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("limiter@awaitActuator: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state LimiterAwaitActuatorState) OnEnterAction(ctx actor.Context, enable bool) LimiterAwaitActuatorState {
	state.actor.logger.Sugar().Infof("limiter: set charging enabled %t", enable)
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.powerSupplyActor,
		domain.SetChargingRequest{Enable: enable}, 2*time.Second),
		func(err error) any {
			return domain.SetChargingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Enable: enable,
			}
		})
	ctx.SetReceiveTimeout(3 * time.Second)
	return state
}

// Commands shared by the stopped and running states.

func (state *LimiterActor) handleCommonCommand(ctx actor.Context, msg domain.LimiterRequest, enabled bool) {
	switch cmd := msg.(type) {
	case domain.LimiterSetLowerThresholdRequest:
		value := state.logic.ClampLowerThreshold(cmd.Value, state.upperThreshold)
		state.logger.Sugar().Debugf("limiter: cmd setLowerThreshold %d => %d", cmd.Value, value)
		state.lowerThreshold = value
		state.updateThresholds()
		ForRequest(cmd).Respond(ctx, domain.LimiterSetLowerThresholdResponse{
			Value: value,
		})
	case domain.LimiterSetUpperThresholdRequest:
		value := state.logic.ClampUpperThreshold(cmd.Value, state.lowerThreshold)
		state.logger.Sugar().Debugf("limiter: cmd setUpperThreshold %d => %d", cmd.Value, value)
		state.upperThreshold = value
		state.updateThresholds()
		ForRequest(cmd).Respond(ctx, domain.LimiterSetUpperThresholdResponse{
			Value: value,
		})
	case domain.LimiterGetParamsRequest:
		ForRequest(cmd).Respond(ctx, domain.LimiterGetParamsResponse{
			Enabled:        enabled,
			LowerThreshold: state.lowerThreshold,
			UpperThreshold: state.upperThreshold,
			CutoffPending:  state.cutoffPending,
		})
	default:
		state.logger.Debug("limiter: unhandled command", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Event stream helpers

func (state *LimiterActor) setSuppressed(suppressed bool) {
	if state.suppressed != suppressed {
		state.suppressed = suppressed
		state.updateSuppressed(suppressed)
	}
}

func (state *LimiterActor) publishChargeState(sample domain.ChargeState) {
	for _, ev := range events.ChargeStateToUpdateEvents(sample) {
		state.eventStream.Publish(ev)
	}
}

func (state *LimiterActor) updateSuppressed(suppressed bool) {
	state.eventStream.Publish(events.ChargingSuppressedUpdateEvent(suppressed))
}

func (state *LimiterActor) updateEnabledSwitchState(enabled bool) {
	state.eventStream.Publish(events.LimiterEnabledSwitchUpdateEvent(enabled))
}

func (state *LimiterActor) updateThresholds() {
	for _, ev := range events.LimiterThresholdUpdateEvents(state.lowerThreshold, state.upperThreshold) {
		state.eventStream.Publish(ev)
	}
}
