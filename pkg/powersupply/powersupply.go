package powersupply

import "errors"

// Property kinds readable from a power source. The integer codings follow the
// Linux power_supply class, which is the usual producer of these values.
type PropertyKind int

const (
	PropertyStatus PropertyKind = iota
	PropertyCapacity
	PropertyPresent
)

// Status is the integer-coded charging status of a battery-like source.
type Status int

const (
	StatusUnknown Status = iota
	StatusCharging
	StatusDischarging
	StatusNotCharging
	StatusFull
)

func StatusToString(s Status) string {
	switch s {
	case StatusCharging:
		return "charging"
	case StatusDischarging:
		return "discharging"
	case StatusNotCharging:
		return "not_charging"
	case StatusFull:
		return "full"
	default:
		return "unknown"
	}
}

var ErrSourceNotFound = errors.New("power source not found")

var ErrPropertyNotSupported = errors.New("property not supported")

type SourceInfo struct {
	Name         string
	Manufacturer string
	Model        string
}

// Source is a single power supply device exposing integer-coded properties.
type Source interface {
	Name() string
	GetInfo() (*SourceInfo, error)
	// GetProperty returns the raw integer value of a property:
	// Status code for PropertyStatus, 0-100 for PropertyCapacity,
	// 0/1 for PropertyPresent.
	GetProperty(kind PropertyKind) (int, error)
}

// Registry resolves power sources by name and owns the charging-enable
// actuator for sources that support it.
type Registry interface {
	Open() error
	Close() error
	Lookup(name string) (Source, error)
	SetChargingEnabled(source Source, enable bool) error
}
