package domain

import "github.com/mcastell/chargecap/pkg/powersupply"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_POWERSUPPLY  = "powersupply"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_LIMITER      = "limiter"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// ChargeState is one sample of the inputs the limiter decides on.
type ChargeState struct {
	Status     powersupply.Status
	Percent    int
	USBPresent bool
}

type GetChargeStateRequest struct {
	ActorRequestMixIn
}

type GetChargeStateResponse struct {
	ActorResponseMixIn
	ChargeState ChargeState
}

type SetChargingRequest struct {
	ActorRequestMixIn
	Enable bool
}

type SetChargingResponse struct {
	ActorResponseMixIn
	Enable bool
}

type GetSupplyInfoRequest struct {
	ActorRequestMixIn
}

type GetSupplyInfoResponse struct {
	ActorResponseMixIn
	Battery *powersupply.SourceInfo
	USB     *powersupply.SourceInfo
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
