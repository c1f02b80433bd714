package cliconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/sigresume/pkg/guard"
)

// Log formats accepted by Config.LogFormat.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// stateSuffix is appended to the output path when no state file is configured.
const stateSuffix = ".checkpoint"

// Config holds CLI configuration for sigresume.
type Config struct {
	StateFile string
	Input     string
	Output    string

	BatchSize int
	StepDelay time.Duration

	Signals []string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BatchSize: 100,
		StepDelay: 0,
		Signals:   []string{"INT", "TERM"},
		LogLevel:  "info",
		LogFormat: LogFormatConsole,
	}
}

// Validate checks the configuration and derives StateFile from Output when unset.
func (c *Config) Validate() error {
	if c.StateFile == "" && c.Output != "" {
		c.StateFile = c.Output + stateSuffix
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("step delay must not be negative")
	}
	if _, err := c.GuardSignals(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", LogFormatConsole, LogFormatJSON, c.LogFormat)
	}
	return nil
}

// RequireJob checks the settings the run command needs.
func (c *Config) RequireJob() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if c.Input == c.Output {
		return fmt.Errorf("input and output must differ")
	}
	return c.RequireState()
}

// RequireState checks that a state file is known.
func (c *Config) RequireState() error {
	if c.StateFile == "" {
		return fmt.Errorf("state-file is required (or output, to derive it)")
	}
	return nil
}

// GuardSignals resolves the configured signal names.
func (c *Config) GuardSignals() ([]os.Signal, error) {
	if len(c.Signals) == 0 {
		return nil, fmt.Errorf("at least one signal is required")
	}
	return guard.ParseSignals(c.Signals)
}

// configSetter applies values only when the matching flag was not set
// explicitly, so flags always win.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if not zero and flag not changed. Negative values
// are kept so Validate rejects them.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a positive int and sets the destination.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return fmt.Errorf("%s must be positive, got %d", flag, i)
	}
	*dst = i
	return nil
}

// setStringsFromString splits a comma-separated list, e.g. "INT,TERM,HUP".
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	s.setStrings(flag, out, dst)
}
