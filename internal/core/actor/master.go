package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/mcastell/chargecap/internal/adapter/actor"
	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/port"
	. "github.com/mcastell/chargecap/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type PowerSupplyActorProvider func() *adactor.PowerSupplyActor

// MasterActor supervises the actor tree and routes limiter commands coming
// from the HTTP surface and the MQTT command topics.
type MasterActor struct {
	config   config.Config
	logic    port.LimiterLogic
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck       healthCheckResult
	eventStream              *eventstream.EventStream
	powerSupplyActor         *actor.PID
	mqttActor                *actor.PID
	limiterActor             *actor.PID
	powerSupplyActorProvider PowerSupplyActorProvider
	mqttActorProvider        MQTTActorProvider
	logger                   *zap.Logger
}

type healthCheckResult struct {
	powerSupplyActorHealthy bool
	mqttActorHealthy        bool
	limiterActorHealthy     bool
	checksReceived          int
	respondTo               *actor.PID
}

func NewMasterActor(config config.Config, logic port.LimiterLogic, powerSupplyActorProvider PowerSupplyActorProvider,
	mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterActor {
	act := &MasterActor{
		config:                   config,
		logic:                    logic,
		behavior:                 actor.NewBehavior(),
		stash:                    &Stash{},
		logger:                   ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:              &eventstream.EventStream{},
		powerSupplyActorProvider: powerSupplyActorProvider,
		mqttActorProvider:        mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start PowerSupply child
		powerSupplyActorPID, err := state.startPowerSupplyActor(ctx)
		if err != nil {
			panic(err)
		}
		state.powerSupplyActor = powerSupplyActorPID

		// start MQTT child
		if state.config.MQTT.Enabled {
			mqttActorPID, err := state.startMQTTActor(ctx)
			if err != nil {
				panic(err)
			}
			state.mqttActor = mqttActorPID
		}

		// start Limiter child
		limiterActorPID, err := state.startLimiterActor(ctx)
		if err != nil {
			panic(err)
		}
		state.limiterActor = limiterActorPID

		// start HA Discovery
		if state.config.MQTT.Enabled && state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		if state.mqttActor == nil {
			state.currentHealthCheck.mqttActorHealthy = true
			state.currentHealthCheck.checksReceived++
		}
		// PowerSupply Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.powerSupplyActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_POWERSUPPLY,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		if state.mqttActor != nil {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Id:      domain.ACTOR_ID_MQTT,
					Healthy: false,
				}
			})
		}
		// Limiter Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.limiterActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_LIMITER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.LimiterRequest:
		// commands from the HTTP parameter surface
		state.logger.Debug("master@default limiterRequest", zap.String("type", fmt.Sprintf("%T", msg)))
		ctx.Forward(state.limiterActor)
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.LimiterRequest:
					ctx.Send(state.limiterActor, pcmd)
				}
			}
		}
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_POWERSUPPLY) {
			state.logger.Error("master@default powersupply error")
			panic(errors.New("powersupply terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_POWERSUPPLY {
				state.currentHealthCheck.powerSupplyActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_LIMITER {
				state.currentHealthCheck.limiterActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterActor) startPowerSupplyActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	powerSupplyProps := actor.PropsFromProducer(func() actor.Actor {
		return state.powerSupplyActorProvider()
	}, actor.WithSupervisor(supervisor))
	powerSupplyActorPID, err := ctx.SpawnNamed(powerSupplyProps, domain.ACTOR_ID_POWERSUPPLY)
	if err != nil {
		return nil, err
	}

	return powerSupplyActorPID, nil
}

func (state *MasterActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterActor) startLimiterActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	limiterProps := actor.PropsFromProducer(func() actor.Actor {
		return NewLimiterActor(state.logic, state.config.Limiter.LowerThreshold, state.config.Limiter.UpperThreshold,
			state.powerSupplyActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	limiterPID, err := ctx.SpawnNamed(limiterProps, domain.ACTOR_ID_LIMITER)
	if err != nil {
		return nil, err
	}

	return limiterPID, nil
}

func (state *MasterActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.powerSupplyActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *healthCheckResult) reset() {
	state.powerSupplyActorHealthy = false
	state.mqttActorHealthy = false
	state.limiterActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.powerSupplyActorHealthy && state.mqttActorHealthy && state.limiterActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
