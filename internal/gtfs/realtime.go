package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"zetlive.dev/internal/logging"
	"zetlive.dev/internal/metrics"
)

const (
	realtimeFetchTimeout = 10 * time.Second
	maxRealtimeBody      = 25 * 1024 * 1024
)

// realtimeHTTPClient is a dedicated HTTP client for realtime feed fetching,
// configured with explicit timeouts and transport limits to avoid the
// pitfalls of http.DefaultClient (no timeout, shared global state). The
// transport is cloned from http.DefaultTransport to preserve important
// defaults (ProxyFromEnvironment, DialContext, HTTP/2, keepalives).
var realtimeHTTPClient = newFeedHTTPClient(realtimeFetchTimeout)

func newFeedHTTPClient(timeout time.Duration) *http.Client {
	var transport *http.Transport
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = t.Clone()
	} else {
		transport = &http.Transport{}
	}
	transport.MaxIdleConns = 50
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ExpectContinueTimeout = 1 * time.Second

	return &http.Client{
		// Timeout acts as an absolute safety net per request; each fetch
		// also sets a context timeout and the stricter of the two wins.
		Timeout:   timeout,
		Transport: transport,
	}
}

// DecodeFeed decodes a GTFS-Realtime FeedMessage into a FeedSnapshot. The
// protobuf types stay inside this function, the rest of the application sees
// domain records only.
func DecodeFeed(data []byte, fetchedAt time.Time) (*FeedSnapshot, error) {
	var msg gtfsrt.FeedMessage
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}

	snapshot := &FeedSnapshot{
		Timestamp: int64(msg.GetHeader().GetTimestamp()),
		Entities:  make([]FeedEntity, 0, len(msg.GetEntity())),
		fetchedAt: fetchedAt,
	}
	for _, entity := range msg.GetEntity() {
		converted := FeedEntity{ID: entity.GetId()}
		if vp := entity.GetVehicle(); vp != nil {
			if desc := vp.GetVehicle(); desc != nil {
				converted.Vehicle = &VehicleRef{ID: desc.GetId(), Label: desc.GetLabel()}
			}
			if trip := vp.GetTrip(); trip != nil {
				converted.Trip = &TripRef{TripID: trip.GetTripId(), RouteID: trip.GetRouteId()}
			}
			if pos := vp.GetPosition(); pos != nil {
				converted.Position = &Position{
					Lat: float64(pos.GetLatitude()),
					Lon: float64(pos.GetLongitude()),
				}
			}
		}
		snapshot.Entities = append(snapshot.Entities, converted)
	}
	return snapshot, nil
}

// fetchRealtimeOnce performs one realtime fetch attempt. Failures are logged
// and swallowed, a payload no newer than the published one is a silent no-op.
func (m *Manager) fetchRealtimeOnce(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), realtimeFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.config.DataFetchEndpoint, nil)
	if err != nil {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logging.LogError(logger, "Error building realtime request", err,
			slog.String("url", m.config.DataFetchEndpoint))
		return
	}

	resp, err := realtimeHTTPClient.Do(req)
	if err != nil {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logging.LogError(logger, "Error fetching realtime feed", err,
			slog.String("url", m.config.DataFetchEndpoint))
		return
	}
	defer logging.SafeCloseWithLogging(resp.Body, logger, "http_response_body")

	if resp.StatusCode != http.StatusOK {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logger.Warn("realtime feed returned unexpected status",
			slog.String("url", m.config.DataFetchEndpoint),
			slog.String("status", resp.Status))
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRealtimeBody+1))
	if err != nil {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logging.LogError(logger, "Error reading realtime response", err)
		return
	}
	if int64(len(body)) > maxRealtimeBody {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logger.Warn("realtime response exceeds size limit",
			slog.Int("limit_bytes", maxRealtimeBody))
		return
	}

	snapshot, err := DecodeFeed(body, m.clock.Now())
	if err != nil {
		m.recordFetch(feedRealtime, metrics.FetchResultError)
		logging.LogError(logger, "Error decoding realtime feed", err)
		return
	}

	if last, ok := m.feed.Get(); ok && snapshot.Timestamp <= last.Timestamp {
		m.recordFetch(feedRealtime, metrics.FetchResultStale)
		return
	}

	m.feed.Set(snapshot)
	m.recordFetch(feedRealtime, metrics.FetchResultOK)
	m.observeFeedTimestamp(feedRealtime, snapshot.Timestamp)
	logger.Debug("published realtime feed",
		slog.Int64("timestamp", snapshot.Timestamp),
		slog.Int("entities", len(snapshot.Entities)))
}

// realtimeLoop fetches immediately on start and then once per interval until
// shutdown. Ticks are strictly serial.
func (m *Manager) realtimeLoop() {
	defer m.wg.Done()

	logger := logging.WithComponent(m.logger, "gtfs")

	ticker := time.NewTicker(m.config.DataFetchInterval)
	defer ticker.Stop()

	for {
		m.fetchRealtimeOnce(logger)
		select {
		case <-ticker.C:
		case <-m.shutdownChan:
			logging.LogOperation(logger, "shutting_down_realtime_updates")
			return
		}
	}
}
