// Package config loads and validates guardloop configuration files.
//
// Files are YAML. ${VAR} and $VAR references are expanded from the
// environment before parsing, so values can come from a .env file loaded
// by the CLI. Unknown keys are rejected. After decoding, the configuration
// is checked against the embedded CUE schema and the controller's own
// threshold rules.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/guardloop/internal/controller"
)

// Config is the root configuration document.
type Config struct {
	LogLevel   string     `yaml:"log_level" json:"log_level"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	Simulation Simulation `yaml:"simulation" json:"simulation"`
	Journal    Journal    `yaml:"journal" json:"journal"`
	Tracing    bool       `yaml:"tracing" json:"tracing"`
}

// Thresholds mirrors controller.Thresholds.
type Thresholds struct {
	MinMicroVolts int32 `yaml:"min_microvolts" json:"min_microvolts"`
	MaxMicroVolts int32 `yaml:"max_microvolts" json:"max_microvolts"`
	VoltageRange  int32 `yaml:"voltage_range" json:"voltage_range"`
	RangeMeters   int32 `yaml:"range_meters" json:"range_meters"`
	Tolerance     int32 `yaml:"tolerance" json:"tolerance"`
}

// Simulation configures the simulated plant used by the run command.
type Simulation struct {
	// Sensor1 and Sensor2 are replayed one reading per controller step;
	// the last reading is held.
	Sensor1 []int32 `yaml:"sensor1" json:"sensor1,omitempty"`
	Sensor2 []int32 `yaml:"sensor2" json:"sensor2,omitempty"`

	// Pace is the wait between lifecycle cycles, e.g. "1ms".
	Pace string `yaml:"pace" json:"pace"`

	// Race starts the controller in RUNNING_RACE.
	Race bool `yaml:"race" json:"race"`
}

// Journal configures the SQLite run journal.
type Journal struct {
	Path string `yaml:"path" json:"path,omitempty"`
}

// Default returns the configuration used for omitted keys.
func Default() Config {
	th := controller.DefaultThresholds()
	return Config{
		LogLevel: "info",
		Thresholds: Thresholds{
			MinMicroVolts: th.MinMicroVolts,
			MaxMicroVolts: th.MaxMicroVolts,
			VoltageRange:  th.VoltageRange,
			RangeMeters:   th.RangeMeters,
			Tolerance:     th.Tolerance,
		},
		Simulation: Simulation{
			Sensor1: []int32{1500000},
			Sensor2: []int32{1500000},
			Pace:    "1ms",
		},
	}
}

// Load reads, expands, decodes and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}
	return Parse(data)
}

// Parse expands environment references in data, decodes it over Default
// and validates the result.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the schema and the controller's threshold
// rules. A failure is returned as *ValidationErrors.
func (c Config) Validate() error {
	errs := validateSchema(c)
	if len(errs) == 0 {
		if err := c.ControllerThresholds().Validate(); err != nil {
			errs = append(errs, ValidationError{Field: "thresholds", Message: err.Error(), Code: ErrCodeThresholds})
		}
		if _, err := time.ParseDuration(c.Simulation.Pace); err != nil {
			errs = append(errs, ValidationError{Field: "simulation.pace", Message: err.Error(), Code: ErrCodeSchema})
		}
	}
	if len(errs) > 0 {
		return &ValidationErrors{Errors: errs}
	}
	return nil
}

// ControllerThresholds converts the thresholds section.
func (c Config) ControllerThresholds() controller.Thresholds {
	return controller.Thresholds{
		MinMicroVolts: c.Thresholds.MinMicroVolts,
		MaxMicroVolts: c.Thresholds.MaxMicroVolts,
		VoltageRange:  c.Thresholds.VoltageRange,
		RangeMeters:   c.Thresholds.RangeMeters,
		Tolerance:     c.Thresholds.Tolerance,
	}
}

// PaceDuration returns the parsed simulation pace. Validate guarantees it
// parses.
func (c Config) PaceDuration() time.Duration {
	d, _ := time.ParseDuration(c.Simulation.Pace)
	return d
}

// HashFields returns the configuration as a plain map for ir.ConfigHash.
func (c Config) HashFields() map[string]any {
	toAny := func(in []int32) []any {
		out := make([]any, len(in))
		for i, v := range in {
			out[i] = v
		}
		return out
	}
	return map[string]any{
		"log_level": c.LogLevel,
		"thresholds": map[string]any{
			"min_microvolts": c.Thresholds.MinMicroVolts,
			"max_microvolts": c.Thresholds.MaxMicroVolts,
			"voltage_range":  c.Thresholds.VoltageRange,
			"range_meters":   c.Thresholds.RangeMeters,
			"tolerance":      c.Thresholds.Tolerance,
		},
		"simulation": map[string]any{
			"sensor1": toAny(c.Simulation.Sensor1),
			"sensor2": toAny(c.Simulation.Sensor2),
			"pace":    c.Simulation.Pace,
			"race":    c.Simulation.Race,
		},
		"tracing": c.Tracing,
	}
}
