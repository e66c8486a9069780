package appconf

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Load builds the configuration from the environment and the given
// command-line arguments (without the program name). Flags override the
// environment, the environment overrides defaults.
func Load(args []string) (Config, error) {
	cfg := DefaultConfig()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyFlags(&cfg, args, flag.CommandLine.Output()); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		env, err := EnvFromString(v)
		if err != nil {
			return fmt.Errorf("APP_ENV: %w", err)
		}
		cfg.Env = env
	}
	if v := os.Getenv("ZI_DATA_FETCH_ENDPOINT"); v != "" {
		cfg.DataFetchEndpoint = v
	}
	if v := os.Getenv("ZI_DATA_FETCH_INTERVAL"); v != "" {
		interval, err := ParseTimeframe(v)
		if err != nil {
			return fmt.Errorf("ZI_DATA_FETCH_INTERVAL: %w", err)
		}
		cfg.DataFetchInterval = interval
	}
	if v := os.Getenv("ZI_SCHEDULE_FETCH_ENDPOINT"); v != "" {
		cfg.ScheduleFetchEndpoint = v
	}
	if v := os.Getenv("ZI_SCHEDULE_FETCH_INTERVAL"); v != "" {
		interval, err := ParseTimeframe(v)
		if err != nil {
			return fmt.Errorf("ZI_SCHEDULE_FETCH_INTERVAL: %w", err)
		}
		cfg.ScheduleFetchInterval = interval
	}
	if v := os.Getenv("ZI_SCHEDULE_CACHE_PATH"); v != "" {
		cfg.ScheduleCachePath = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}
	return nil
}

func applyFlags(cfg *Config, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.IntVar(&cfg.Port, "port", cfg.Port, "listener port")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "bind address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel,
		"log level directives, e.g. \"gtfs=debug,request=info,warn\"")
	envName := fs.String("env", cfg.Env.String(), "environment: test, development or production")
	fs.StringVar(&cfg.DataFetchEndpoint, "data-fetch-endpoint", cfg.DataFetchEndpoint,
		"GTFS-Realtime feed URL")
	fs.Var(&cfg.DataFetchInterval, "data-fetch-interval",
		"realtime fetch period, e.g. 2s")
	fs.StringVar(&cfg.ScheduleFetchEndpoint, "schedule-fetch-endpoint", cfg.ScheduleFetchEndpoint,
		"GTFS schedule ZIP URL")
	fs.Var(&cfg.ScheduleFetchInterval, "schedule-fetch-interval",
		"schedule fetch period, e.g. 2min")
	fs.StringVar(&cfg.ScheduleCachePath, "schedule-cache", cfg.ScheduleCachePath,
		"path to the warm-start schedule cache (empty disables it)")
	fs.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir,
		"directory with the front-end bundle (empty disables it)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := EnvFromString(*envName)
	if err != nil {
		return err
	}
	cfg.Env = env
	return nil
}
