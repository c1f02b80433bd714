package cliconfig

import "os"

// EnvPrefix prefixes every environment variable sigresume reads.
const EnvPrefix = "SIGRESUME_"

// ApplyEnvConfig applies SIGRESUME_* variables to cfg, skipping flags in changed.
// Env values override the config file; explicit flags override both.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-file", os.Getenv(EnvPrefix+"STATE_FILE"), &cfg.StateFile)
	s.setString("input", os.Getenv(EnvPrefix+"INPUT"), &cfg.Input)
	s.setString("output", os.Getenv(EnvPrefix+"OUTPUT"), &cfg.Output)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvPrefix+"LOG_FORMAT"), &cfg.LogFormat)

	s.setStringsFromString("signals", os.Getenv(EnvPrefix+"SIGNALS"), &cfg.Signals)

	if err := s.setIntFromString("batch-size", os.Getenv(EnvPrefix+"BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setDuration("step-delay", os.Getenv(EnvPrefix+"STEP_DELAY"), &cfg.StepDelay); err != nil {
		return err
	}
	return nil
}
