package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"zetlive.dev/internal/logging"
	"zetlive.dev/internal/metrics"
)

const (
	scheduleFetchTimeout = 60 * time.Second
	maxScheduleBody      = 250 * 1024 * 1024
)

// scheduleHTTPClient is the dedicated client for the schedule bundle, with a
// longer timeout since the ZIP runs to tens of megabytes.
var scheduleHTTPClient = newFeedHTTPClient(scheduleFetchTimeout)

// conditionalPair is the (Last-Modified, ETag) pair of a schedule response.
type conditionalPair struct {
	modified    time.Time
	hasModified bool
	etag        string
	hasETag     bool
}

func conditionalFrom(h http.Header) conditionalPair {
	var p conditionalPair
	if lm := h.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			p.modified = t
			p.hasModified = true
		}
	}
	if etag := h.Get("ETag"); etag != "" {
		p.etag = etag
		p.hasETag = true
	}
	return p
}

// fresh reports whether a response carrying next should be treated as new
// content. A response is skipped only when both pairs are fully known, the
// Last-Modified is not strictly newer and the ETag is unchanged; any absent
// header errs toward re-fetch.
func (prev conditionalPair) fresh(next conditionalPair) bool {
	known := prev.hasModified && next.hasModified && prev.hasETag && next.hasETag
	if !known {
		return true
	}
	return next.modified.After(prev.modified) || next.etag != prev.etag
}

// fetchScheduleOnce performs one schedule fetch attempt. An unchanged
// conditional pair ends the attempt before the body is read; only an accepted
// parse updates the remembered pair.
func (m *Manager) fetchScheduleOnce(logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), scheduleFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.config.ScheduleFetchEndpoint, nil)
	if err != nil {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("build schedule request: %w", err)
	}

	resp, err := scheduleHTTPClient.Do(req)
	if err != nil {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("fetch schedule: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("fetch schedule: unexpected status %s", resp.Status)
	}

	next := conditionalFrom(resp.Header)
	if !m.conditional.fresh(next) {
		m.recordFetch(feedSchedule, metrics.FetchResultStale)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScheduleBody+1))
	if err != nil {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("read schedule body: %w", err)
	}
	if int64(len(body)) > maxScheduleBody {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("schedule response exceeds size limit of %d bytes", maxScheduleBody)
	}

	snapshot, err := ParseSchedule(body, m.clock.Now(), logger)
	if err != nil {
		m.recordFetch(feedSchedule, metrics.FetchResultError)
		return fmt.Errorf("parse schedule: %w", err)
	}

	m.schedule.Set(snapshot)
	m.conditional = next

	if m.config.Persister != nil {
		if err := m.config.Persister.SaveSchedule(snapshot, next.modified, next.etag); err != nil {
			logging.LogError(logger, "Error writing schedule cache", err)
		}
	}

	m.recordFetch(feedSchedule, metrics.FetchResultOK)
	m.observeFeedTimestamp(feedSchedule, snapshot.CreatedAt.Unix())
	m.observeScheduleCounts(snapshot.Counts())
	logging.LogOperation(logger, "schedule_published",
		slog.Int("routes", len(snapshot.Routes)),
		slog.Int("stops", len(snapshot.Stops)),
		slog.Int("trips", len(snapshot.Trips)),
		slog.Int("shapes", len(snapshot.Shapes)))
	return nil
}

// scheduleLoop fetches immediately on start and then once per interval. A
// failed attempt retries after a fifth of the interval, which shortens the
// cold-start window when the feed is briefly unavailable.
func (m *Manager) scheduleLoop() {
	defer m.wg.Done()

	logger := logging.WithComponent(m.logger, "gtfs")

	for {
		delay := m.config.ScheduleFetchInterval
		if err := m.fetchScheduleOnce(logger); err != nil {
			logging.LogError(logger, "Error updating schedule", err,
				slog.String("url", m.config.ScheduleFetchEndpoint))
			delay = m.config.ScheduleFetchInterval / 5
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-m.shutdownChan:
			timer.Stop()
			logging.LogOperation(logger, "shutting_down_schedule_updates")
			return
		}
	}
}
