package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML-friendly types.
type FileConfig struct {
	StateFile string   `toml:"state_file"`
	Input     string   `toml:"input"`
	Output    string   `toml:"output"`
	BatchSize int      `toml:"batch_size"`
	StepDelay string   `toml:"step_delay"`
	Signals   []string `toml:"signals"`
	LogLevel  string   `toml:"log_level"`
	LogFormat string   `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file. Unknown keys are errors,
// so a typo does not silently fall back to a default.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	f, err := os.Open(path)
	if err != nil {
		return fc, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.sigresume/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".sigresume", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to cfg, skipping flags in changed.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-file", fc.StateFile, &cfg.StateFile)
	s.setString("input", fc.Input, &cfg.Input)
	s.setString("output", fc.Output, &cfg.Output)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setStrings("signals", fc.Signals, &cfg.Signals)

	if err := s.setDuration("step-delay", fc.StepDelay, &cfg.StepDelay); err != nil {
		return err
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
