package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/mcastell/chargecap/internal/core/domain"
	"github.com/mcastell/chargecap/pkg/powersupply"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE            = "bridge"
	SENSOR_ID_BATTERY_SOC             = "battery_soc"
	SENSOR_ID_BATTERY_STATUS          = "battery_status"
	SENSOR_ID_USB_PRESENT             = "usb_present"
	SENSOR_ID_CHARGING_SUPPRESSED     = "charging_suppressed"
	SWITCH_ID_LIMITER_ENABLED         = "limiter_enabled"
	INPUT_NUMBER_ID_LOWER_THRESHOLD   = "lower_threshold"
	INPUT_NUMBER_ID_UPPER_THRESHOLD   = "upper_threshold"
	STATE_CLASS_MEASUREMENT           = "measurement"
	DEVICE_CLASS_BATTERY              = "battery"
	DEVICE_CLASS_CONNECTIVITY         = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC           = "diagnostic"
	ENTITY_CLASS_CONFIG               = "config"
	SENSOR_TYPE_SENSOR                = "sensor"
	SENSOR_TYPE_BINARY                = "binary_sensor"
	INPUT_NUMBER_MODE_BOX             = "box"
)

func BridgeDevice(baseTopic string) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("chargecap_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "MCastell",
		Model:        "Chargecap",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Chargecap %s", md5HashShort(baseTopic)),
	}
}

func BatteryDevice(info *powersupply.SourceInfo) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("cc_battery_%s", md5HashShort(info.Name)),
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         fmt.Sprintf("Battery %s", info.Name),
	}
}

func IdDevice(device domain.Device) domain.Device {
	return domain.Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice domain.Device) []domain.GenericSensor {
	return []domain.GenericSensor{
		{
			Device:      bridgeDevice,
			Id:          SENSOR_ID_BRIDGE_STATE,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Chargecap bridge state",
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,
			UniqueId:    uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

func BatterySensors(batteryDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	// Battery state of charge
	sensors = append(sensors, domain.GenericSensor{
		Device:            batteryDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery state of charge",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	// Battery charging status
	sensors = append(sensors, domain.GenericSensor{
		Device:     IdDevice(batteryDevice),
		Id:         SENSOR_ID_BATTERY_STATUS,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Battery charging status",
		UniqueId:   uniqueId(batteryDevice.Id, SENSOR_ID_BATTERY_STATUS),
	})

	// USB charger present
	sensors = append(sensors, domain.GenericSensor{
		Device:     IdDevice(batteryDevice),
		Id:         SENSOR_ID_USB_PRESENT,
		SensorType: SENSOR_TYPE_BINARY,
		Name:       "USB charger present",
		UniqueId:   uniqueId(batteryDevice.Id, SENSOR_ID_USB_PRESENT),
	})

	// Charging path suppressed by the limiter
	sensors = append(sensors, domain.GenericSensor{
		Device:         IdDevice(batteryDevice),
		Id:             SENSOR_ID_CHARGING_SUPPRESSED,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Charging suppressed",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(batteryDevice.Id, SENSOR_ID_CHARGING_SUPPRESSED),
	})

	return sensors
}

func LimiterSwitches(batteryDevice domain.Device) []domain.GenericSwitch {
	return []domain.GenericSwitch{
		{
			Device:   IdDevice(batteryDevice),
			Id:       SWITCH_ID_LIMITER_ENABLED,
			Name:     "Charge limiter",
			Icon:     "mdi:battery-lock",
			UniqueId: uniqueId(batteryDevice.Id, SWITCH_ID_LIMITER_ENABLED),
		},
	}
}

func LimiterInputNumbers(batteryDevice domain.Device, lowerThreshold, upperThreshold int) []domain.GenericInputNumber {
	return []domain.GenericInputNumber{
		{
			Device:       IdDevice(batteryDevice),
			Id:           INPUT_NUMBER_ID_LOWER_THRESHOLD,
			Name:         "Charge resume threshold",
			Icon:         "mdi:battery-arrow-up",
			UniqueId:     uniqueId(batteryDevice.Id, INPUT_NUMBER_ID_LOWER_THRESHOLD),
			Min:          0,
			Max:          100,
			Step:         1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: float64(lowerThreshold),
		},
		{
			Device:       IdDevice(batteryDevice),
			Id:           INPUT_NUMBER_ID_UPPER_THRESHOLD,
			Name:         "Charge cutoff threshold",
			Icon:         "mdi:battery-arrow-down",
			UniqueId:     uniqueId(batteryDevice.Id, INPUT_NUMBER_ID_UPPER_THRESHOLD),
			Min:          0,
			Max:          100,
			Step:         1,
			Mode:         INPUT_NUMBER_MODE_BOX,
			InitialValue: float64(upperThreshold),
		},
	}
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(value string) string {
	hash := md5.Sum([]byte(value))
	return hex.EncodeToString(hash[:])[:8]
}
