package appconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"2s", 2 * time.Second},
		{"6 seconds", 6 * time.Second},
		{"5mins", 5 * time.Minute},
		{"2min", 2 * time.Minute},
		{"2 minutes", 2 * time.Minute},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"2 weeks", 14 * 24 * time.Hour},
		{"3 months", 90 * 24 * time.Hour},
		{"1mo", 30 * 24 * time.Hour},
		{" 10 s ", 10 * time.Second},
		{"0s", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tf, err := ParseTimeframe(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tf.Duration())
		})
	}
}

func TestParseTimeframe_Invalid(t *testing.T) {
	tests := []string{
		"",
		"s",
		"2",
		"2m", // ambiguous: minutes or months
		"-5s",
		"five seconds",
		"2 fortnights",
		"99999999999999999999s",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTimeframe(input)
			assert.Error(t, err)
		})
	}
}

func TestTimeframe_String(t *testing.T) {
	tests := []struct {
		tf       Timeframe
		expected string
	}{
		{Timeframe(2 * time.Second), "2s"},
		{Timeframe(2 * time.Minute), "2min"},
		{Timeframe(90 * time.Second), "90s"},
		{Timeframe(4 * time.Hour), "4h"},
		{Timeframe(14 * 24 * time.Hour), "2w"},
		{Timeframe(60 * 24 * time.Hour), "2mo"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.tf.String())
	}
}

func TestTimeframe_RoundTrip(t *testing.T) {
	for _, input := range []string{"2s", "5min", "4h", "1d", "2w", "3mo"} {
		tf, err := ParseTimeframe(input)
		require.NoError(t, err)

		back, err := ParseTimeframe(tf.String())
		require.NoError(t, err)
		assert.Equal(t, tf, back)
	}
}

func TestEnvFromString(t *testing.T) {
	for input, expected := range map[string]Environment{
		"test":        Test,
		"development": Development,
		"dev":         Development,
		"":            Development,
		"production":  Production,
		"prod":        Production,
	} {
		env, err := EnvFromString(input)
		require.NoError(t, err)
		assert.Equal(t, expected, env, "input %q", input)
	}

	_, err := EnvFromString("staging")
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	// Shield the test from ambient environment.
	for _, name := range []string{
		"PORT", "HOST", "LOG_LEVEL", "APP_ENV",
		"ZI_DATA_FETCH_ENDPOINT", "ZI_DATA_FETCH_INTERVAL",
		"ZI_SCHEDULE_FETCH_ENDPOINT", "ZI_SCHEDULE_FETCH_INTERVAL",
		"ZI_SCHEDULE_CACHE_PATH", "STATIC_DIR",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 9011, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, Development, cfg.Env)
	assert.Equal(t, DefaultDataFetchEndpoint, cfg.DataFetchEndpoint)
	assert.Equal(t, 2*time.Second, cfg.DataFetchInterval.Duration())
	assert.Equal(t, DefaultScheduleFetchEndpoint, cfg.ScheduleFetchEndpoint)
	assert.Equal(t, 2*time.Minute, cfg.ScheduleFetchInterval.Duration())
	assert.Empty(t, cfg.ScheduleCachePath)
	assert.Equal(t, "0.0.0.0:9011", cfg.Addr())
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("LOG_LEVEL", "gtfs=debug")
	t.Setenv("APP_ENV", "production")
	t.Setenv("ZI_DATA_FETCH_ENDPOINT", "https://example.com/rt")
	t.Setenv("ZI_DATA_FETCH_INTERVAL", "10s")
	t.Setenv("ZI_SCHEDULE_FETCH_ENDPOINT", "https://example.com/gtfs.zip")
	t.Setenv("ZI_SCHEDULE_FETCH_INTERVAL", "1h")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, "gtfs=debug", cfg.LogLevel)
	assert.Equal(t, Production, cfg.Env)
	assert.Equal(t, "https://example.com/rt", cfg.DataFetchEndpoint)
	assert.Equal(t, 10*time.Second, cfg.DataFetchInterval.Duration())
	assert.Equal(t, "https://example.com/gtfs.zip", cfg.ScheduleFetchEndpoint)
	assert.Equal(t, time.Hour, cfg.ScheduleFetchInterval.Duration())
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ZI_DATA_FETCH_INTERVAL", "10s")

	cfg, err := Load([]string{
		"--port", "9999",
		"--data-fetch-interval", "30s",
		"--env", "test",
	})
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.DataFetchInterval.Duration())
	assert.Equal(t, Test, cfg.Env)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad port env", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		_, err := Load(nil)
		assert.Error(t, err)
	})

	t.Run("bad interval env", func(t *testing.T) {
		t.Setenv("ZI_DATA_FETCH_INTERVAL", "2m")
		_, err := Load(nil)
		assert.Error(t, err)
	})

	t.Run("bad endpoint flag", func(t *testing.T) {
		_, err := Load([]string{"--data-fetch-endpoint", "ftp://example.com/feed"})
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		_, err := Load([]string{"--port", "70000"})
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	assert.NoError(t, valid.Validate())

	noHost := DefaultConfig()
	noHost.Host = ""
	assert.Error(t, noHost.Validate())

	zeroInterval := DefaultConfig()
	zeroInterval.ScheduleFetchInterval = 0
	assert.Error(t, zeroInterval.Validate())

	emptyEndpoint := DefaultConfig()
	emptyEndpoint.DataFetchEndpoint = ""
	assert.Error(t, emptyEndpoint.Validate())
}
