package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel    zapcore.Level
	PowerSupply PowerSupplyConfig `mapstructure:"power_supply"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`

	Limiter LimiterConfig `mapstructure:"limiter"`
	Port    uint          `mapstructure:"port"`
	HttpLog bool          `mapstructure:"http_log"`
}

type PowerSupplyConfig struct {
	SysfsPath   string `mapstructure:"sysfs_path"`
	BatteryName string `mapstructure:"battery_name"`
	USBName     string `mapstructure:"usb_name"`
}

type LimiterConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	LowerThreshold     int    `mapstructure:"lower_threshold"`
	UpperThreshold     int    `mapstructure:"upper_threshold"`
	TickIntervalMillis uint32 `mapstructure:"tick_interval_millis"`
	FaultBackoffMillis uint32 `mapstructure:"fault_backoff_millis"`
	DebounceMillis     uint32 `mapstructure:"debounce_millis"`
}

type MQTTConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
