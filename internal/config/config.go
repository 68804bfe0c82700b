// Package config loads the host tool configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"olinuxino-go/fixup"
	"olinuxino-go/identity"
	"olinuxino-go/panel"
)

// Config is the top-level configuration of the olinuxino tool.
type Config struct {
	// Identity locates the board identity EEPROM.
	Identity Device `yaml:"identity"`

	// Panel locates the LCD panel EEPROM. An empty image means no panel is
	// attached.
	Panel Device `yaml:"panel"`

	// EnvFile holds the boot environment as name=value lines. Loaded before
	// and saved after every command that touches the environment.
	EnvFile string `yaml:"env_file"`

	FDT FDT `yaml:"fdt"`

	// SID is the SoC security id used to derive fallback MAC addresses.
	// Empty disables the fallback.
	SID []uint32 `yaml:"sid"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Device is an EEPROM behind a simulated bus, backed by an image file.
type Device struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// Image is the file holding the EEPROM content.
	Image string `yaml:"image"`
	// Settle is the write-cycle delay after every page.
	Settle time.Duration `yaml:"settle"`
}

type FDT struct {
	// Limit caps the blob size after growth; 0 means no cap.
	Limit int `yaml:"limit"`
	// SPIMTDParts overrides the SPI flash partition layout.
	SPIMTDParts string `yaml:"spi_mtdparts"`
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	return &Config{
		Identity: Device{
			Bus:     identity.BusDefault,
			Address: identity.AddressDefault,
			Image:   "identity.bin",
			Settle:  5 * time.Millisecond,
		},
		Panel: Device{
			Bus:     panel.Bus,
			Address: panel.Address,
		},
		EnvFile:  "uboot.env",
		LogLevel: "info",
	}
}

// Load reads a YAML file over Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Defaults.
func Parse(data []byte) (*Config, error) {
	c := Defaults()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return c, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Identity.validate("identity"); err != nil {
		return err
	}
	if c.Identity.Image == "" {
		return fmt.Errorf("identity: image is required")
	}
	if err := c.Panel.validate("panel"); err != nil {
		return err
	}
	if c.Identity.Image == c.Panel.Image && c.Identity.Bus == c.Panel.Bus && c.Identity.Address == c.Panel.Address {
		return fmt.Errorf("panel: same device as identity")
	}
	if c.FDT.Limit < 0 {
		return fmt.Errorf("fdt: limit must not be negative")
	}
	if c.FDT.SPIMTDParts != "" {
		if _, err := fixup.ParseMTDParts(c.FDT.SPIMTDParts, 16<<20); err != nil {
			return fmt.Errorf("fdt: spi_mtdparts: %w", err)
		}
	}
	if len(c.SID) != 0 && len(c.SID) != 4 {
		return fmt.Errorf("sid: want 4 words, got %d", len(c.SID))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q (supported: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func (d Device) validate(name string) error {
	if d.Bus == "" {
		return fmt.Errorf("%s: bus is required", name)
	}
	// 7-bit addresses outside the reserved ranges.
	if d.Address < 0x08 || d.Address > 0x77 {
		return fmt.Errorf("%s: address 0x%02x out of range", name, d.Address)
	}
	if d.Settle < 0 {
		return fmt.Errorf("%s: settle must not be negative", name)
	}
	return nil
}
