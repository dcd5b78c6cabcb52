package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/mcastell/chargecap/internal/adapter/actor"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/service"
	"github.com/mcastell/chargecap/internal/util"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	registry := powersupply.CreateTestRegistry()

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: cfg.Limiter.TickIntervalMillis,
		FaultBackoffMillis: cfg.Limiter.FaultBackoffMillis,
		DebounceMillis:     cfg.Limiter.DebounceMillis,
		Logger:             logger,
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterActor(cfg, logic, func() *adactor.PowerSupplyActor {
			return adactor.NewPowerSupplyActor(cfg.PowerSupply, registry, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// limiter commands are routed through the master
	res, err = context.RequestFuture(pid, domain.LimiterGetParamsRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	params, ok := res.(domain.LimiterGetParamsResponse)
	assert.True(t, ok)
	assert.Equal(t, cfg.Limiter.LowerThreshold, params.LowerThreshold, "lower threshold")
	assert.Equal(t, cfg.Limiter.UpperThreshold, params.UpperThreshold, "upper threshold")

	context.Stop(pid)

	as.Shutdown()
}
