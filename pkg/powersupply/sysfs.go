package powersupply

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultSysfsPath = "/sys/class/power_supply"

// CreateSysfsRegistry builds a Registry over a Linux power_supply class
// directory. Every property read goes straight to sysfs so values are never
// stale; lookups fail when the named device directory is absent.
func CreateSysfsRegistry(root string) Registry {
	if root == "" {
		root = DefaultSysfsPath
	}
	return &sysfsRegistry{root: root}
}

type sysfsRegistry struct {
	root string
}

func (r *sysfsRegistry) Open() error {
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("power_supply class unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("power_supply path %s is not a directory", r.root)
	}
	return nil
}

func (r *sysfsRegistry) Close() error {
	return nil
}

func (r *sysfsRegistry) Lookup(name string) (Source, error) {
	dir := filepath.Join(r.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
	}
	return &sysfsSource{name: name, dir: dir}, nil
}

func (r *sysfsRegistry) SetChargingEnabled(source Source, enable bool) error {
	src, ok := source.(*sysfsSource)
	if !ok {
		return fmt.Errorf("source %s is not a sysfs device", source.Name())
	}
	payload := "0"
	if enable {
		payload = "1"
	}
	path := filepath.Join(src.dir, "charging_enabled")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("set charging_enabled on %s: %w", src.name, err)
	}
	return nil
}

type sysfsSource struct {
	name string
	dir  string
}

func (s *sysfsSource) Name() string {
	return s.name
}

func (s *sysfsSource) GetInfo() (*SourceInfo, error) {
	info := &SourceInfo{Name: s.name}
	// both attributes are optional in the power_supply class
	if v, err := s.readAttr("manufacturer"); err == nil {
		info.Manufacturer = v
	}
	if v, err := s.readAttr("model_name"); err == nil {
		info.Model = v
	}
	return info, nil
}

func (s *sysfsSource) GetProperty(kind PropertyKind) (int, error) {
	switch kind {
	case PropertyStatus:
		raw, err := s.readAttr("status")
		if err != nil {
			return 0, err
		}
		return int(parseStatus(raw)), nil
	case PropertyCapacity:
		return s.readIntAttr("capacity")
	case PropertyPresent:
		// usb-like sources report "online" instead of "present"
		if v, err := s.readIntAttr("present"); err == nil {
			return v, nil
		}
		return s.readIntAttr("online")
	default:
		return 0, fmt.Errorf("%w: kind %d on %s", ErrPropertyNotSupported, kind, s.name)
	}
}

func (s *sysfsSource) readAttr(attr string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, attr))
	if err != nil {
		return "", fmt.Errorf("%w: %s/%s", ErrPropertyNotSupported, s.name, attr)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s *sysfsSource) readIntAttr(attr string) (int, error) {
	raw, err := s.readAttr(attr)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("attribute %s/%s is not numeric: %w", s.name, attr, err)
	}
	return value, nil
}

func parseStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case "charging":
		return StatusCharging
	case "discharging":
		return StatusDischarging
	case "not charging":
		return StatusNotCharging
	case "full":
		return StatusFull
	default:
		return StatusUnknown
	}
}
