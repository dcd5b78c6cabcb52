package events

import (
	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/pkg/powersupply"
)

// ChargeStateToUpdateEvents maps a sampled charge state to the sensor update
// events it feeds.
func ChargeStateToUpdateEvents(state domain.ChargeState) []domain.SensorUpdateEvent {
	return []domain.SensorUpdateEvent{
		domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_SOC,
			},
			Value:    float64(state.Percent),
			Decimals: 0,
		},
		domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_BATTERY_STATUS,
			},
			Value: powersupply.StatusToString(state.Status),
		},
		domain.BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_USB_PRESENT,
			},
			Value: state.USBPresent,
		},
	}
}

func ChargingSuppressedUpdateEvent(suppressed bool) domain.SensorUpdateEvent {
	return domain.BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: SENSOR_ID_CHARGING_SUPPRESSED,
		},
		Value: suppressed,
	}
}

func LimiterEnabledSwitchUpdateEvent(enabled bool) domain.SensorUpdateEvent {
	return domain.SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: SWITCH_ID_LIMITER_ENABLED,
		},
		Value: enabled,
	}
}

func LimiterThresholdUpdateEvents(lower, upper int) []domain.SensorUpdateEvent {
	return []domain.SensorUpdateEvent{
		domain.InputNumberSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: INPUT_NUMBER_ID_LOWER_THRESHOLD,
			},
			Value:    float64(lower),
			Decimals: 0,
		},
		domain.InputNumberSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: INPUT_NUMBER_ID_UPPER_THRESHOLD,
			},
			Value:    float64(upper),
			Decimals: 0,
		},
	}
}
