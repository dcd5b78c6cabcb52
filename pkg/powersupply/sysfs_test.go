package powersupply

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeSysfsDevice(t *testing.T, root, name string, attrs map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for attr, value := range attrs {
		if err := os.WriteFile(filepath.Join(dir, attr), []byte(value+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSysfsLookupAndProperties(t *testing.T) {

	assert := assert.New(t)

	root := t.TempDir()
	writeSysfsDevice(t, root, "battery", map[string]string{
		"status":   "Charging",
		"capacity": "97",
		"present":  "1",
	})
	writeSysfsDevice(t, root, "usb", map[string]string{
		"online": "1",
	})

	reg := CreateSysfsRegistry(root)
	assert.NoError(reg.Open())

	batt, err := reg.Lookup("battery")
	if err != nil {
		t.Fatal(err)
	}

	status, err := batt.GetProperty(PropertyStatus)
	assert.NoError(err)
	assert.Equal(int(StatusCharging), status, "status code")

	capacity, err := batt.GetProperty(PropertyCapacity)
	assert.NoError(err)
	assert.Equal(97, capacity, "capacity percent")

	usb, err := reg.Lookup("usb")
	if err != nil {
		t.Fatal(err)
	}
	present, err := usb.GetProperty(PropertyPresent)
	assert.NoError(err)
	assert.Equal(1, present, "usb present falls back to online attr")
}

func TestSysfsLookupMissingSource(t *testing.T) {

	reg := CreateSysfsRegistry(t.TempDir())

	_, err := reg.Lookup("battery")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSysfsStatusParsing(t *testing.T) {

	assert := assert.New(t)

	root := t.TempDir()
	cases := map[string]Status{
		"Charging":     StatusCharging,
		"Discharging":  StatusDischarging,
		"Not charging": StatusNotCharging,
		"Full":         StatusFull,
		"Unknown":      StatusUnknown,
	}
	for raw, want := range cases {
		writeSysfsDevice(t, root, "battery", map[string]string{"status": raw})
		reg := CreateSysfsRegistry(root)
		src, err := reg.Lookup("battery")
		if err != nil {
			t.Fatal(err)
		}
		status, err := src.GetProperty(PropertyStatus)
		assert.NoError(err)
		assert.Equal(int(want), status, raw)
	}
}

func TestSysfsSetChargingEnabled(t *testing.T) {

	assert := assert.New(t)

	root := t.TempDir()
	writeSysfsDevice(t, root, "battery", map[string]string{
		"charging_enabled": "1",
	})

	reg := CreateSysfsRegistry(root)
	src, err := reg.Lookup("battery")
	if err != nil {
		t.Fatal(err)
	}

	assert.NoError(reg.SetChargingEnabled(src, false))
	raw, err := os.ReadFile(filepath.Join(root, "battery", "charging_enabled"))
	assert.NoError(err)
	assert.Equal("0", string(raw), "disable writes 0")

	assert.NoError(reg.SetChargingEnabled(src, true))
	raw, err = os.ReadFile(filepath.Join(root, "battery", "charging_enabled"))
	assert.NoError(err)
	assert.Equal("1", string(raw), "enable writes 1")
}

func TestSysfsPropertyNotSupported(t *testing.T) {

	root := t.TempDir()
	writeSysfsDevice(t, root, "battery", map[string]string{"status": "Full"})

	reg := CreateSysfsRegistry(root)
	src, err := reg.Lookup("battery")
	if err != nil {
		t.Fatal(err)
	}

	_, err = src.GetProperty(PropertyCapacity)
	assert.ErrorIs(t, err, ErrPropertyNotSupported)
}
