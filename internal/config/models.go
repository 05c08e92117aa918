package config

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// CurrentVersion is the configuration file format version.
const CurrentVersion = 1

// Output formats understood by the CLI.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatCompact = "compact"
	FormatCBOR    = "cbor"
)

// BroadcastTarget addresses every device.
const BroadcastTarget = "000000000000"

// Config represents the entire user configuration file.
type Config struct {
	Version  int                `yaml:"version"`
	Source   uint32             `yaml:"source"`              // Source identifier stamped on packed frames
	Target   string             `yaml:"target,omitempty"`    // Default target serial or nickname
	Format   string             `yaml:"format"`              // Output format for unpacked messages
	LogLevel string             `yaml:"log_level,omitempty"` // Overrides LUMEN_LOG_LEVEL when set
	Devices  map[string]*Device `yaml:"devices,omitempty"`   // Keyed by device serial
}

// Device represents user-defined metadata for a single device.
type Device struct {
	Nickname string `yaml:"nickname,omitempty"`
	Product  string `yaml:"product,omitempty"` // Free text, e.g. "LIFX Z"
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Source:  2,
		Target:  BroadcastTarget,
		Format:  FormatJSON,
		Devices: make(map[string]*Device),
	}
}

// Validate checks the fields that the CLI relies on.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	switch c.Format {
	case FormatJSON, FormatYAML, FormatCompact, FormatCBOR:
	default:
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	for serial := range c.Devices {
		if err := validSerial(serial); err != nil {
			return err
		}
	}
	return nil
}

func validSerial(serial string) error {
	b, err := hex.DecodeString(serial)
	if err != nil || len(b) == 0 || len(b) > 8 {
		return fmt.Errorf("invalid device serial %q: expected up to 8 bytes of hex", serial)
	}
	return nil
}

// GetDevice retrieves device metadata by serial number.
// Returns nil if the device is unknown.
func (c *Config) GetDevice(serial string) *Device {
	return c.Devices[strings.ToLower(serial)]
}

// EnsureDevice ensures a device entry exists and returns it.
func (c *Config) EnsureDevice(serial string) *Device {
	if c.Devices == nil {
		c.Devices = make(map[string]*Device)
	}
	serial = strings.ToLower(serial)
	if device, exists := c.Devices[serial]; exists {
		return device
	}
	device := &Device{}
	c.Devices[serial] = device
	return device
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (c *Config) SetDeviceNickname(serial, nickname string) {
	c.EnsureDevice(serial).Nickname = nickname
}

// ResolveTarget turns a nickname or serial into a serial. An empty name
// resolves to the configured default target.
func (c *Config) ResolveTarget(name string) (string, error) {
	if name == "" {
		name = c.Target
	}
	if name == "" {
		return BroadcastTarget, nil
	}
	for serial, device := range c.Devices {
		if device != nil && device.Nickname != "" && strings.EqualFold(device.Nickname, name) {
			return serial, nil
		}
	}
	if err := validSerial(name); err != nil {
		return "", fmt.Errorf("unknown target %q: not a nickname or serial", name)
	}
	return strings.ToLower(name), nil
}
