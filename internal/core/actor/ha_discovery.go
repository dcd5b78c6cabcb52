package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/events"
	"github.com/mcastell/chargecap/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery payloads once the
// power supply and MQTT actors are up.
type HADiscoveryActor struct {
	config                  *config.Config
	behavior                actor.Behavior
	stash                   *actorutil.Stash
	powerSupplyActor        *actor.PID
	mqttActor               *actor.PID
	powerSupplyActorHealthy bool
	mqttActorHealthy        bool
	healthyRecv             int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, powerSupplyActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:           config,
		powerSupplyActor: powerSupplyActor,
		mqttActor:        mqttActor,
		behavior:         actor.NewBehavior(),
		stash:            &actorutil.Stash{},
		logger:           actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check PowerSupply and MQTT actor healthy
		state.healthyRecv = 0
		state.powerSupplyActorHealthy = false
		state.mqttActorHealthy = false
		// PowerSupply Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.powerSupplyActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POWERSUPPLY,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_POWERSUPPLY:
				state.powerSupplyActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.powerSupplyActorHealthy && state.mqttActorHealthy {
				// Ask PowerSupply GetSupplyInfoRequest
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.powerSupplyActor, domain.GetSupplyInfoRequest{}, 2*time.Second), func(err error) any {
					return domain.GetSupplyInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or PowerSupply Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSupplyInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetSupplyInfoResponse", zap.Any("response", msg))

		var sensors []domain.GenericSensor
		var switches []domain.GenericSwitch
		var inputNumbers []domain.GenericInputNumber

		bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
		bridgeSensors := events.BridgeSensors(bridgeDevice)
		sensors = append(sensors, bridgeSensors...)

		batteryDevice := events.BatteryDevice(msg.Battery)
		batteryDevice.ViaDevice = bridgeDevice.Id
		batterySensors := events.BatterySensors(batteryDevice)
		sensors = append(sensors, batterySensors...)

		switches = append(switches, events.LimiterSwitches(batteryDevice)...)
		inputNumbers = append(inputNumbers, events.LimiterInputNumbers(batteryDevice,
			state.config.Limiter.LowerThreshold, state.config.Limiter.UpperThreshold)...)

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors:      sensors,
			Switches:     switches,
			InputNumbers: inputNumbers,
		})
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
