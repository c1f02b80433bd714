package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/sigresume/internal/cliconfig"
	"github.com/bft-labs/sigresume/pkg/guard"
)

const longHelp = `Run a batch job that survives Ctrl-C.

sigresume copies an input file into an output file in batches, numbering each
record. After every batch the output is synced and a checkpoint is reported.
When SIGINT or SIGTERM arrives the job stops at the next checkpoint, saves it
to the state file and exits 75. Running the same command again resumes from
the saved position; a run that finishes removes the state file.

Exit codes:
  0      completed
  1      error
  75     interrupted, checkpoint saved (rerun to resume)
  128+n  interrupted by signal n before any checkpoint`

var exampleUsage = strings.TrimSpace(`
  sigresume run --input records.txt --output numbered.txt --batch-size 500
  sigresume run --config $HOME/.sigresume/config.toml --signals INT,TERM,HUP
  sigresume state show --output numbered.txt
  sigresume state watch --state-file /var/lib/job.checkpoint
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app is shared by all subcommands: the merged configuration and the logger
// built from it.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
	stdout  io.Writer
	stderr  io.Writer

	// extra options for every guard, used by tests
	guardOpts []guard.Option
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer, opts ...guard.Option) int {
	a := &app{
		cfg:       cliconfig.DefaultConfig(),
		log:       cliconfig.NewLogger(stderr, "info", cliconfig.LogFormatConsole),
		stdout:    stdout,
		stderr:    stderr,
		guardOpts: opts,
	}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	code := guard.ExitCode(err)

	var ie *guard.InterruptedError
	switch {
	case err == nil:
	case errors.As(err, &ie):
		a.log.Warn().Err(err).Int("exit_code", code).Msg(guard.ExitCodeName(code))
	default:
		a.log.Error().Err(err).Msg("sigresume")
	}
	return code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sigresume",
		Short:         "Run a batch job that checkpoints on SIGINT/SIGTERM and resumes on the next run",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.sigresume/config.toml)")
	root.PersistentFlags().StringVar(&a.cfg.StateFile, "state-file", a.cfg.StateFile, "checkpoint file (default: <output>.checkpoint)")
	root.PersistentFlags().StringVar(&a.cfg.Output, "output", a.cfg.Output, "output file")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format (console or json)")

	root.AddCommand(a.runCmd(), a.stateCmd())
	return root
}

// loadConfig merges the config file, SIGRESUME_* variables and flags, in
// increasing precedence, then builds the logger.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file %s not found", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = cliconfig.NewLogger(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")
	return nil
}
