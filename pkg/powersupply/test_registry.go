package powersupply

import (
	"fmt"
	"sync"
)

func CreateTestRegistry() *TestRegistry {
	return &TestRegistry{
		BatteryName: "battery",
		USBName:     "usb",
		Status:      StatusDischarging,
		Capacity:    50,
		USBPresent:  false,
	}
}

// TestRegistry is a scriptable in-memory Registry. Tests mutate the exported
// fields between ticks and inspect the recorded actuator calls.
type TestRegistry struct {
	mu sync.Mutex

	BatteryName string
	USBName     string

	Status     Status
	Capacity   int
	USBPresent bool

	FailLookup   bool
	FailActuator bool

	actuatorCalls []bool
}

func (r *TestRegistry) Open() error {
	return nil
}

func (r *TestRegistry) Close() error {
	return nil
}

func (r *TestRegistry) Lookup(name string) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailLookup {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	switch name {
	case r.BatteryName, r.USBName:
		return &testSource{registry: r, name: name}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
}

func (r *TestRegistry) SetChargingEnabled(source Source, enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailActuator {
		return fmt.Errorf("actuator fault on %s", source.Name())
	}
	r.actuatorCalls = append(r.actuatorCalls, enable)
	return nil
}

// ActuatorCalls returns a copy of the enable/disable commands issued so far,
// in order. true means "enable charging".
func (r *TestRegistry) ActuatorCalls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]bool, len(r.actuatorCalls))
	copy(calls, r.actuatorCalls)
	return calls
}

func (r *TestRegistry) Set(status Status, capacity int, usbPresent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Capacity = capacity
	r.USBPresent = usbPresent
}

func (r *TestRegistry) SetFailLookup(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailLookup = fail
}

func (r *TestRegistry) SetFailActuator(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailActuator = fail
}

type testSource struct {
	registry *TestRegistry
	name     string
}

func (s *testSource) Name() string {
	return s.name
}

func (s *testSource) GetInfo() (*SourceInfo, error) {
	return &SourceInfo{
		Name:         s.name,
		Manufacturer: "Chargecap",
		Model:        "Test Supply",
	}, nil
}

func (s *testSource) GetProperty(kind PropertyKind) (int, error) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	if s.name == s.registry.USBName {
		if kind == PropertyPresent {
			if s.registry.USBPresent {
				return 1, nil
			}
			return 0, nil
		}
		return 0, fmt.Errorf("%w: kind %d on %s", ErrPropertyNotSupported, kind, s.name)
	}
	switch kind {
	case PropertyStatus:
		return int(s.registry.Status), nil
	case PropertyCapacity:
		return s.registry.Capacity, nil
	case PropertyPresent:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: kind %d on %s", ErrPropertyNotSupported, kind, s.name)
	}
}
