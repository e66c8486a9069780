package gtfs

import (
	"log/slog"
	"sync"
	"time"

	"zetlive.dev/internal/clock"
	"zetlive.dev/internal/metrics"
)

// Feed label values for the fetch metrics.
const (
	feedRealtime = "realtime"
	feedSchedule = "schedule"
)

// SchedulePersister receives every accepted schedule so it can be written
// through to a warm-start cache. A zero modified time or empty etag means the
// upstream response lacked that header.
type SchedulePersister interface {
	SaveSchedule(snapshot *ScheduleSnapshot, modified time.Time, etag string) error
}

// Config holds the manager's fetch configuration and collaborators.
type Config struct {
	DataFetchEndpoint     string
	DataFetchInterval     time.Duration
	ScheduleFetchEndpoint string
	ScheduleFetchInterval time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   clock.Clock

	// Persister is optional; when set it is called after each accepted
	// schedule parse.
	Persister SchedulePersister
}

// Manager owns the two fetch loops and publishes into the schedule and feed
// stores. Ticks within one loop are strictly serial, the two loops are
// independent of each other.
type Manager struct {
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   clock.Clock

	schedule *ScheduleStore
	feed     *FeedStore

	// conditional is the remembered (Last-Modified, ETag) pair of the last
	// accepted schedule response. Only the schedule loop touches it after
	// Start.
	conditional conditionalPair

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewManager wires a manager to its stores. Call Start to begin fetching.
func NewManager(config Config, schedule *ScheduleStore, feed *FeedStore) *Manager {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{
		config:       config,
		logger:       logger,
		metrics:      config.Metrics,
		clock:        clk,
		schedule:     schedule,
		feed:         feed,
		shutdownChan: make(chan struct{}),
	}
}

// SeedConditional primes the remembered conditional pair, used when a cached
// schedule from a previous run has already been published. Must be called
// before Start.
func (m *Manager) SeedConditional(modified time.Time, etag string) {
	m.conditional = conditionalPair{
		modified:    modified,
		hasModified: !modified.IsZero(),
		etag:        etag,
		hasETag:     etag != "",
	}
}

// Start launches both fetch loops. Each performs its first fetch immediately,
// then keeps its own cadence.
func (m *Manager) Start() {
	m.wg.Add(2)
	go m.realtimeLoop()
	go m.scheduleLoop()
}

// Shutdown stops both loops and waits for them to exit. Safe to call more
// than once.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		close(m.shutdownChan)
	})
	m.wg.Wait()
}

func (m *Manager) recordFetch(feed, result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.FeedFetchesTotal.WithLabelValues(feed, result).Inc()
}

func (m *Manager) observeFeedTimestamp(feed string, ts int64) {
	if m.metrics == nil {
		return
	}
	m.metrics.FeedLastTimestampSeconds.WithLabelValues(feed).Set(float64(ts))
}

func (m *Manager) observeScheduleCounts(counts map[string]int) {
	if m.metrics == nil {
		return
	}
	for collection, count := range counts {
		m.metrics.ScheduleEntities.WithLabelValues(collection).Set(float64(count))
	}
}
