package util

import (
	"github.com/mcastell/chargecap/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		PowerSupply: config.PowerSupplyConfig{
			SysfsPath:   "/sys/class/power_supply",
			BatteryName: "battery",
			USBName:     "usb",
		},
		MQTT: config.MQTTConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    1883,
		},
		Limiter: config.LimiterConfig{
			Enabled:            false,
			LowerThreshold:     95,
			UpperThreshold:     100,
			TickIntervalMillis: 1000,
			FaultBackoffMillis: 5000,
			DebounceMillis:     10000,
		},
		Port: 8080,
	}
}
