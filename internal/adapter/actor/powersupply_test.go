package actor

import (
	"testing"
	"time"

	"github.com/mcastell/chargecap/internal/config"
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/internal/util/actorutil"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testPowerSupplyConfig() config.PowerSupplyConfig {
	return config.PowerSupplyConfig{
		BatteryName: "battery",
		USBName:     "usb",
	}
}

func TestGetChargeStatePowerSupplyActor(t *testing.T) {

	assert := assert.New(t)

	registry := powersupply.CreateTestRegistry()
	registry.Set(powersupply.StatusCharging, 72, true)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPowerSupplyActor(testPowerSupplyConfig(), registry, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.GetChargeStateRequest{}
	result, err := context.RequestFuture(pid, msg, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetChargeStateResponse)

	assert.False(resp.HasResponseError(), "no error")
	assert.Equal(powersupply.StatusCharging, resp.ChargeState.Status, "status")
	assert.Equal(72, resp.ChargeState.Percent, "percent")
	assert.True(resp.ChargeState.USBPresent, "usb present")

	context.Stop(pid)

	as.Shutdown()
}

func TestSetChargingPowerSupplyActor(t *testing.T) {

	assert := assert.New(t)

	registry := powersupply.CreateTestRegistry()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPowerSupplyActor(testPowerSupplyConfig(), registry, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	result, err := context.RequestFuture(pid, domain.SetChargingRequest{Enable: false}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.SetChargingResponse)

	assert.False(resp.HasResponseError(), "no error")
	assert.False(resp.Enable, "enable echo")
	assert.Equal([]bool{false}, registry.ActuatorCalls(), "actuator calls")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetChargeStateFaultPowerSupplyActor(t *testing.T) {

	assert := assert.New(t)

	registry := powersupply.CreateTestRegistry()
	registry.SetFailLookup(true)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPowerSupplyActor(testPowerSupplyConfig(), registry, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	result, err := context.RequestFuture(pid, domain.GetChargeStateRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetChargeStateResponse)

	assert.True(resp.HasResponseError(), "lookup fault surfaces as response error")
	assert.Empty(registry.ActuatorCalls(), "no actuator calls")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetSupplyInfoPowerSupplyActor(t *testing.T) {

	assert := assert.New(t)

	registry := powersupply.CreateTestRegistry()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPowerSupplyActor(testPowerSupplyConfig(), registry, logger)
	})
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	result, err := context.RequestFuture(pid, domain.GetSupplyInfoRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetSupplyInfoResponse)

	assert.False(resp.HasResponseError(), "no error")
	assert.Equal("battery", resp.Battery.Name, "battery name")
	assert.Equal("usb", resp.USB.Name, "usb name")

	context.Stop(pid)

	as.Shutdown()
}
