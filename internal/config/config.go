// Package config acquires the Config struct described in spec.md §6. Flag
// and file parsing are an external collaborator per spec.md §1, so this
// package owns the whole acquisition pipeline — the ring runtime itself
// only ever consumes the already-populated, already-validated Config value
// cmd/ring builds from it.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	flag "github.com/spf13/pflag"
)

// ErrInvalidSize marks a Load failure caused by a missing, unparseable or
// out-of-range (< 1) positional size argument, distinct from every other
// config parse failure
// — run() maps it to ExitMissingSize (2) instead of ExitConfigParseError (1).
var ErrInvalidSize = errors.New("missing or invalid size argument")

// Config is the full set of externally supplied knobs from spec.md §6.
type Config struct {
	Size int `validate:"gte=1"`

	ConfigFile string

	NumberOfElections int           `env:"NUMBER_OF_ELECTIONS" env-default:"0"`
	Sleep             int           `env:"SLEEP_MS" env-default:"5000"`
	WorkerSleep       int           `env:"WORKER_SLEEP_MS" env-default:"500"`
	CommandLine       bool          `env:"COMMAND_LINE" env-default:"false"`
	LogConsole        bool          `env:"LOG_CONSOLE" env-default:"false"`
	LogFile           string        `env:"LOG_FILE"`
	LogDate           bool          `env:"LOG_DATE" env-default:"false"`
	LogLevel          int           `env:"LOG_LEVEL_NUM" env-default:"2" validate:"gte=0,lte=5"`
	NoConfigLog       bool          `env:"NO_CONFIG_LOG" env-default:"false"`

	EnableNats  bool   `env:"ENABLE_NATS" env-default:"false"`
	NatsURL     string `env:"NATS_URL" env-default:"nats://localhost:4222"`
	NatsSubject string `env:"NATS_SUBJECT" env-default:"ring.events"`
}

// ExitCode mirrors the codes spec.md §6 assigns to configuration failures.
type ExitCode int

const (
	ExitOK                ExitCode = 0
	ExitConfigParseError  ExitCode = 1
	ExitMissingSize       ExitCode = 2
	ExitSinkCreateFailure ExitCode = 3
)

// Load resolves cfg from, in ascending priority: the env-default tags
// above, then cfg.ConfigFile/env vars via cleanenv, then any CLI flag the
// operator actually passed — matching the layering spec.md §6 describes
// ("flags override the environment"). Because cleanenv.ReadEnv applies its
// defaults unconditionally whenever the corresponding env var is absent, it
// must run BEFORE the flags are parsed: doing it after would silently
// overwrite an explicit --flag value the moment that flag's env var wasn't
// also set. A throwaway pre-scan picks up --config/-c early so the config
// file (if any) can be loaded before the flag defaults are registered.
func Load(args []string, cfg *Config) error {
	cfg.ConfigFile = scanConfigFlag(args)
	if cfg.ConfigFile != "" {
		if err := cleanenv.ReadConfig(cfg.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read env config: %w", err)
	}

	fs := flag.NewFlagSet("ring-election", flag.ContinueOnError)

	fs.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "optional configuration file")
	fs.IntVarP(&cfg.NumberOfElections, "number-of-elections", "n", cfg.NumberOfElections, "number of elections to run (0 = infinite unless --command-line)")
	fs.IntVar(&cfg.Sleep, "sleep", cfg.Sleep, "post-election sleep in ms")
	fs.IntVar(&cfg.WorkerSleep, "worker-sleep", cfg.WorkerSleep, "per-worker pacing sleep in ms")
	fs.BoolVar(&cfg.LogConsole, "log-console", cfg.LogConsole, "log to the console")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log to this file")
	fs.BoolVar(&cfg.LogDate, "log-date", cfg.LogDate, "include the date in log lines")
	fs.IntVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level 0=trace .. 5=critical")
	fs.BoolVar(&cfg.NoConfigLog, "no-config-log", cfg.NoConfigLog, "don't log the resolved configuration")
	fs.BoolVar(&cfg.CommandLine, "command-line", cfg.CommandLine, "enable the interactive operator console")
	fs.BoolVar(&cfg.EnableNats, "nats", cfg.EnableNats, "publish events to nats in addition to the console")
	fs.StringVar(&cfg.NatsURL, "nats-url", cfg.NatsURL, "nats server url")
	fs.StringVar(&cfg.NatsSubject, "nats-subject", cfg.NatsSubject, "nats subject to publish events on")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	positional := fs.Args()
	if len(positional) < 1 {
		return fmt.Errorf("missing required positional argument: size: %w", ErrInvalidSize)
	}
	if _, err := fmt.Sscanf(positional[0], "%d", &cfg.Size); err != nil {
		return fmt.Errorf("invalid size %q: %w", positional[0], ErrInvalidSize)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.StructField() == "Size" {
					return fmt.Errorf("invalid size %d: %w", cfg.Size, ErrInvalidSize)
				}
			}
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// scanConfigFlag looks for a --config/-c value in args without the full
// pflag machinery, so the config file can be loaded before flag defaults
// are registered (see Load).
func scanConfigFlag(args []string) string {
	for i, a := range args {
		switch {
		case a == "--config" || a == "-c":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		case strings.HasPrefix(a, "-c="):
			return strings.TrimPrefix(a, "-c=")
		}
	}
	return ""
}
