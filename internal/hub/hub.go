// Package hub is the transport-free core of the websocket broadcast: it keeps
// the latest encoded frame per broadcast kind, coalesces transmissions so a
// slow subscriber only ever sees the newest one, and tracks open connections
// per client IP. The websocket endpoint drives it; nothing in here knows
// about sockets.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"zetlive.dev/internal/metrics"
	"zetlive.dev/internal/watch"
	"zetlive.dev/internal/wire"
)

// ErrClosed is returned by Subscription.Next once the hub has shut down.
var ErrClosed = errors.New("hub closed")

// transmission is one broadcast-to-all event. seq is monotonically increasing
// so a subscriber can tell a fresh transmission from one it already sent.
type transmission struct {
	seq  uint64
	kind wire.Kind
	blob []byte
}

// Hub fans encoded frames out to subscribers.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	// slotMu guards the latest slots and the sequence counter. The slots
	// start out holding encoded empty payloads so a cold-start subscriber
	// still receives its two initial frames.
	slotMu            sync.RWMutex
	seq               uint64
	latestVehicles    []byte
	latestActiveStops []byte

	transmission *watch.Value[transmission]

	connMu      sync.RWMutex
	connections map[string]int

	closed    chan struct{}
	closeOnce sync.Once
}

// New returns a hub whose latest slots hold empty-list frames.
func New(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:            logger,
		metrics:           m,
		latestVehicles:    wire.EmptyVehiclesFrame(),
		latestActiveStops: wire.EmptyActiveStopsFrame(),
		transmission:      watch.NewValue[transmission](),
		connections:       make(map[string]int),
		closed:            make(chan struct{}),
	}
}

// Close wakes every subscriber with ErrClosed so their connections drain
// promptly at shutdown. Publishing after Close is harmless; there is nobody
// left to deliver to.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.closed)
	})
}

// Publish overwrites the latest slot for kind and wakes every subscriber.
// Subscribers that are mid-send simply pick up the newest transmission on
// their next wait; intermediates are skipped, never queued.
func (h *Hub) Publish(kind wire.Kind, blob []byte) {
	h.slotMu.Lock()
	switch kind {
	case wire.KindVehicles:
		h.latestVehicles = blob
	case wire.KindActiveStops:
		h.latestActiveStops = blob
	default:
		h.slotMu.Unlock()
		h.logger.Warn("dropping broadcast of unknown kind", slog.String("kind", string(kind)))
		return
	}
	h.seq++
	h.transmission.Set(transmission{seq: h.seq, kind: kind, blob: blob})
	h.slotMu.Unlock()

	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(string(kind)).Inc()
	}
}

// Subscription is one subscriber's view of the hub. Not safe for concurrent
// use; each connection owns exactly one.
type Subscription struct {
	hub     *Hub
	lastSeq uint64
	initial [][]byte
}

// Subscribe snapshots the latest frames for the initial send. Transmissions
// already covered by those frames are not delivered again by Next.
func (h *Hub) Subscribe() *Subscription {
	h.slotMu.RLock()
	defer h.slotMu.RUnlock()
	return &Subscription{
		hub:     h,
		lastSeq: h.seq,
		initial: [][]byte{h.latestVehicles, h.latestActiveStops},
	}
}

// InitialFrames returns the frames to send on connect: latest vehicles, then
// latest active stops.
func (s *Subscription) InitialFrames() [][]byte {
	return s.initial
}

// Next blocks until a transmission newer than the last one returned, then
// returns its frame. When several arrive while the subscriber is busy, only
// the newest is returned. Returns ErrClosed once the hub shuts down.
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	for {
		ch := s.hub.transmission.Changed()
		if tx, ok := s.hub.transmission.Get(); ok && tx.seq > s.lastSeq {
			s.lastSeq = tx.seq
			return tx.blob, nil
		}
		select {
		case <-ch:
		case <-s.hub.closed:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Register records one new open connection for ip.
func (h *Hub) Register(ip string) {
	h.connMu.Lock()
	h.connections[ip]++
	h.connMu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}
}

// Unregister removes one open connection for ip, dropping the entry when its
// count reaches zero.
func (h *Hub) Unregister(ip string) {
	h.connMu.Lock()
	if n, ok := h.connections[ip]; ok {
		if n <= 1 {
			delete(h.connections, ip)
		} else {
			h.connections[ip] = n - 1
		}
	}
	h.connMu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnections.Dec()
	}
}

// Connections returns a copy of the IP to open-connection-count table.
func (h *Hub) Connections() map[string]int {
	h.connMu.RLock()
	defer h.connMu.RUnlock()

	out := make(map[string]int, len(h.connections))
	for ip, n := range h.connections {
		out[ip] = n
	}
	return out
}
