// Package appconf holds the application configuration: listener address,
// upstream feed endpoints and intervals, log-level directives, and the
// optional warm-start cache and static bundle paths. Configuration is read
// from flags and environment variables; flags win over the environment,
// the environment wins over defaults.
package appconf

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Environment determines runtime behavior such as log format and whether
// the debug page is served.
type Environment int

const (
	Test Environment = iota
	Development
	Production
)

// String returns the canonical name of the environment.
func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Development:
		return "development"
	case Production:
		return "production"
	}
	return "unknown"
}

// EnvFromString parses an environment name, accepting short forms.
func EnvFromString(s string) (Environment, error) {
	switch s {
	case "test":
		return Test, nil
	case "development", "dev", "":
		return Development, nil
	case "production", "prod":
		return Production, nil
	}
	return Development, fmt.Errorf("unknown environment %q", s)
}

// Default endpoints for the ZET Zagreb feeds.
const (
	DefaultDataFetchEndpoint     = "https://www.zet.hr/gtfs-rt-protobuf"
	DefaultScheduleFetchEndpoint = "https://www.zet.hr/gtfs-scheduled/latest"
)

// Config is the full application configuration.
type Config struct {
	Env      Environment
	Host     string
	Port     int
	LogLevel string

	DataFetchEndpoint     string
	DataFetchInterval     Timeframe
	ScheduleFetchEndpoint string
	ScheduleFetchInterval Timeframe

	ScheduleCachePath string
	StaticDir         string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Env:                   Development,
		Host:                  "0.0.0.0",
		Port:                  9011,
		DataFetchEndpoint:     DefaultDataFetchEndpoint,
		DataFetchInterval:     Timeframe(2 * time.Second),
		ScheduleFetchEndpoint: DefaultScheduleFetchEndpoint,
		ScheduleFetchInterval: Timeframe(2 * time.Minute),
	}
}

// Addr returns the listener address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if err := validateEndpoint("data fetch endpoint", c.DataFetchEndpoint); err != nil {
		return err
	}
	if err := validateEndpoint("schedule fetch endpoint", c.ScheduleFetchEndpoint); err != nil {
		return err
	}
	if c.DataFetchInterval <= 0 {
		return fmt.Errorf("data fetch interval must be positive")
	}
	if c.ScheduleFetchInterval <= 0 {
		return fmt.Errorf("schedule fetch interval must be positive")
	}
	return nil
}

func validateEndpoint(name, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", name)
	}
	return nil
}
