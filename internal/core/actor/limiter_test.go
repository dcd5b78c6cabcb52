package actor

import (
	"errors"
	"testing"
	"time"

	adactor "github.com/mcastell/chargecap/internal/adapter/actor"
	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/core/service"
	"github.com/mcastell/chargecap/internal/util/actorutil"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnLimiterFixture(t *testing.T, registry *powersupply.TestRegistry, logic *service.DefaultLimiterLogic,
	lower, upper int) (*actor.ActorSystem, *actor.RootContext, *actor.PID) {

	logger := zap.Must(zap.NewDevelopment())
	logic.Logger = logger

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	psProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewPowerSupplyActor(config.PowerSupplyConfig{
			BatteryName: "battery",
			USBName:     "usb",
		}, registry, logger)
	})
	psActorPID := context.Spawn(psProps)

	limiterProps := actor.PropsFromProducer(func() actor.Actor {
		return NewLimiterActor(logic, lower, upper, psActorPID, &eventstream.EventStream{}, logger)
	})
	limiterPID := context.Spawn(limiterProps)

	time.Sleep(200 * time.Millisecond)

	return as, context, limiterPID
}

func TestLimiterControlFlow(t *testing.T) {

	registry := powersupply.CreateTestRegistry()
	registry.Set(powersupply.StatusCharging, 70, true)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
		FaultBackoffMillis: 150,
		DebounceMillis:     250,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 60, 90)
	defer as.Shutdown()

	hcr, err := healthCheck(context, limiterPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "stopped", hcr.State, "actor starts stopped")

	// enable the loop
	res, err := context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: true}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	enableResp := res.(domain.LimiterEnableResponse)
	assert.True(t, enableResp.Enabled, "enabled")
	assert.True(t, enableResp.Changed, "changed")

	hcr, err = healthCheck(context, limiterPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, "running", hcr.State, "actor state should be running")

	// in band: no actuator commands
	time.Sleep(400 * time.Millisecond)
	assert.Empty(t, registry.ActuatorCalls(), "no commands in band")

	// above upper threshold: one disable after the debounce tick
	registry.Set(powersupply.StatusCharging, 95, true)
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, []bool{false}, registry.ActuatorCalls(), "single disable")

	// still above: no repeated disables
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []bool{false}, registry.ActuatorCalls(), "disable not repeated")

	// below lower threshold: one enable
	registry.Set(powersupply.StatusDischarging, 50, false)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []bool{false, true}, registry.ActuatorCalls(), "single enable")

	// still below: no repeated enables
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []bool{false, true}, registry.ActuatorCalls(), "enable not repeated")

	// disable the loop: charging is force-enabled before the reply
	res, err = context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: false}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	enableResp = res.(domain.LimiterEnableResponse)
	assert.False(t, enableResp.Enabled, "disabled")
	assert.True(t, enableResp.Changed, "changed")

	calls := registry.ActuatorCalls()
	assert.Equal(t, []bool{false, true, true}, calls, "stop force-enables charging")

	hcr, err = healthCheck(context, limiterPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, "stopped", hcr.State, "actor state should be stopped")

	// ticks no longer run
	registry.Set(powersupply.StatusCharging, 95, true)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, calls, registry.ActuatorCalls(), "no commands while stopped")
}

func TestLimiterCutoffCancelledInBand(t *testing.T) {

	registry := powersupply.CreateTestRegistry()
	registry.Set(powersupply.StatusCharging, 95, true)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
		FaultBackoffMillis: 150,
		DebounceMillis:     500,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 60, 90)
	defer as.Shutdown()

	_, err := context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: true}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	// first tick arms the cutoff, then the sample drops back into the band
	// before the debounce tick fires
	time.Sleep(250 * time.Millisecond)
	registry.Set(powersupply.StatusCharging, 70, true)
	time.Sleep(800 * time.Millisecond)

	assert.Empty(t, registry.ActuatorCalls(), "armed cutoff dropped in band")

	res, err := context.RequestFuture(limiterPID, domain.LimiterGetParamsRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	params := res.(domain.LimiterGetParamsResponse)
	assert.False(t, params.CutoffPending, "cutoff no longer pending")
}

func TestLimiterCutoffRequiresChargingPath(t *testing.T) {

	registry := powersupply.CreateTestRegistry()
	// above upper threshold but neither charging nor on USB
	registry.Set(powersupply.StatusDischarging, 97, false)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
		FaultBackoffMillis: 150,
		DebounceMillis:     200,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 60, 90)
	defer as.Shutdown()

	_, err := context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: true}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, registry.ActuatorCalls(), "no cutoff without charging path")
}

func TestLimiterSensorFault(t *testing.T) {

	registry := powersupply.CreateTestRegistry()
	registry.Set(powersupply.StatusCharging, 95, true)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
		FaultBackoffMillis: 150,
		DebounceMillis:     250,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 60, 90)
	defer as.Shutdown()

	_, err := context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: true}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	// let the cutoff fire first so charging is suppressed when the sensor fails
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, []bool{false}, registry.ActuatorCalls(), "charging suppressed before the fault")

	registry.SetFailLookup(true)
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, []bool{false}, registry.ActuatorCalls(), "no commands on sensor fault")

	hcr, err := healthCheck(context, limiterPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor stays healthy")
	assert.Equal(t, "running", hcr.State, "loop keeps retrying")

	// once the sensor recovers, the loop resumes acting
	registry.SetFailLookup(false)
	registry.Set(powersupply.StatusDischarging, 50, false)
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, []bool{false, true}, registry.ActuatorCalls(), "resume after recovery")
}

func TestLimiterActuatorFaultRetries(t *testing.T) {

	registry := powersupply.CreateTestRegistry()
	registry.Set(powersupply.StatusCharging, 95, true)
	registry.SetFailActuator(true)

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
		FaultBackoffMillis: 150,
		DebounceMillis:     250,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 60, 90)
	defer as.Shutdown()

	_, err := context.RequestFuture(limiterPID, domain.LimiterEnableRequest{Enable: true}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	// the cutoff fires but the actuator rejects it: nothing recorded and
	// charging is still considered not suppressed
	time.Sleep(700 * time.Millisecond)
	assert.Empty(t, registry.ActuatorCalls(), "failed command leaves no trace")

	hcr, err := healthCheck(context, limiterPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(t, "running", hcr.State, "loop keeps running through actuator faults")

	// the disable is retried on a later tick because the suppressed flag only
	// flips on actuator success
	registry.SetFailActuator(false)
	time.Sleep(700 * time.Millisecond)
	assert.Equal(t, []bool{false}, registry.ActuatorCalls(), "disable retried after actuator recovery")
}

func TestLimiterThresholdCommands(t *testing.T) {

	registry := powersupply.CreateTestRegistry()

	logic := &service.DefaultLimiterLogic{
		TickIntervalMillis: 100,
	}

	as, context, limiterPID := spawnLimiterFixture(t, registry, logic, 95, 100)
	defer as.Shutdown()

	// lower threshold cannot reach the upper threshold
	res, err := context.RequestFuture(limiterPID, domain.LimiterSetLowerThresholdRequest{Value: 100}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	lowerResp := res.(domain.LimiterSetLowerThresholdResponse)
	assert.Equal(t, 95, lowerResp.Value, "lower pushed below upper")

	// upper threshold write below the lower threshold gets repaired
	res, err = context.RequestFuture(limiterPID, domain.LimiterSetUpperThresholdRequest{Value: 90}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	upperResp := res.(domain.LimiterSetUpperThresholdResponse)
	assert.Equal(t, 100, upperResp.Value, "upper pushed above lower")

	// out of range values clamp to the percent scale
	res, err = context.RequestFuture(limiterPID, domain.LimiterSetLowerThresholdRequest{Value: -3}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	lowerResp = res.(domain.LimiterSetLowerThresholdResponse)
	assert.Equal(t, 0, lowerResp.Value, "negative write clamps to 0")

	res, err = context.RequestFuture(limiterPID, domain.LimiterGetParamsRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	params := res.(domain.LimiterGetParamsResponse)
	assert.False(t, params.Enabled, "loop still stopped")
	assert.Equal(t, 0, params.LowerThreshold, "stored lower threshold")
	assert.Equal(t, 100, params.UpperThreshold, "stored upper threshold")
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
