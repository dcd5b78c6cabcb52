package actor

import (
	"fmt"
	"time"

	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/util/actorutil"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

type PowerSupplyActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	registry    powersupply.Registry
	batteryName string
	usbName     string
	logger      *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewPowerSupplyActor(cfg config.PowerSupplyConfig, registry powersupply.Registry, logger *zap.Logger) *PowerSupplyActor {
	act := &PowerSupplyActor{
		registry:    registry,
		batteryName: cfg.BatteryName,
		usbName:     cfg.USBName,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_POWERSUPPLY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *PowerSupplyActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PowerSupplyActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("powersupply@starting started")
		if err := state.registry.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.registry.Close()
	default:
		state.logger.Debug("powersupply@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PowerSupplyActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("powersupply@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POWERSUPPLY,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetChargeStateRequest:
		state.logger.Debug("powersupply@default: GetChargeStateRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getChargeState),
			mapTaskResult[domain.GetChargeStateResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetChargeStateResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSupply)
	case domain.SetChargingRequest:
		state.logger.Debug("powersupply@default: SetChargingRequest", zap.Bool("enable", msg.Enable))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.SetChargingResponse {
			a := state.setCharging(msg.Enable)
			return &a
		}),
			mapTaskResult[domain.SetChargingResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetChargingResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Enable: msg.Enable,
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSupply)
	case domain.GetSupplyInfoRequest:
		state.logger.Debug("powersupply@default: GetSupplyInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getSupplyInfo),
			mapTaskResult[domain.GetSupplyInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetSupplyInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingSupply)
	case *actor.Stopping:
		state.registry.Close()
	default:
		state.logger.Debug("powersupply@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PowerSupplyActor) WaitingSupply(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("powersupply@WaitingSupply backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.registry.Close()
	default:
		state.logger.Debug("powersupply@WaitingSupply stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *PowerSupplyActor) getChargeState() (*domain.GetChargeStateResponse, error) {
	battery, err := a.registry.Lookup(a.batteryName)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	status, err := battery.GetProperty(powersupply.PropertyStatus)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	percent, err := battery.GetProperty(powersupply.PropertyCapacity)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	usbPresent := false
	if a.usbName != "" {
		usb, err := a.registry.Lookup(a.usbName)
		if err != nil {
			logger.Error(err)
			return nil, err
		}
		present, err := usb.GetProperty(powersupply.PropertyPresent)
		if err != nil {
			logger.Error(err)
			return nil, err
		}
		usbPresent = present != 0
	}
	return &domain.GetChargeStateResponse{
		ChargeState: domain.ChargeState{
			Status:     powersupply.Status(status),
			Percent:    percent,
			USBPresent: usbPresent,
		},
	}, nil
}

func (a *PowerSupplyActor) setCharging(enable bool) domain.SetChargingResponse {
	battery, err := a.registry.Lookup(a.batteryName)
	if err != nil {
		logger.Error(err)
		return domain.SetChargingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Enable: enable,
		}
	}
	if err := a.registry.SetChargingEnabled(battery, enable); err != nil {
		logger.Error(err)
		return domain.SetChargingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Enable: enable,
		}
	}
	return domain.SetChargingResponse{
		Enable: enable,
	}
}

func (a *PowerSupplyActor) getSupplyInfo() (*domain.GetSupplyInfoResponse, error) {
	battery, err := a.registry.Lookup(a.batteryName)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	batteryInfo, err := battery.GetInfo()
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	var usbInfo *powersupply.SourceInfo
	if a.usbName != "" {
		usb, err := a.registry.Lookup(a.usbName)
		if err != nil {
			logger.Error(err)
			return nil, err
		}
		usbInfo, err = usb.GetInfo()
		if err != nil {
			logger.Error(err)
			return nil, err
		}
	}
	return &domain.GetSupplyInfoResponse{
		Battery: batteryInfo,
		USB:     usbInfo,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
