package restapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"zetlive.dev/internal/hub"
	"zetlive.dev/internal/logging"
)

const (
	// wsWriteWait bounds every frame write so a stalled peer cannot hold a
	// loop forever.
	wsWriteWait = 10 * time.Second

	// Pings go out every pingBase ± pingJitter, the jitter re-drawn each
	// cycle so a herd of clients connected at once drifts apart.
	pingBase   = 30 * time.Second
	pingJitter = 5 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The surface is public and read-only; any origin may subscribe.
	CheckOrigin: func(*http.Request) bool { return true },
}

// drawPingInterval picks the delay until the next ping.
func drawPingInterval() time.Duration {
	jitter := time.Duration((rand.Float64()*2 - 1) * float64(pingJitter))
	return pingBase + jitter
}

// wsHandler upgrades the connection and serves broadcasts until either side
// goes away. Per connection: the peer's count in the connections table is
// incremented, the two latest blobs go out immediately as binary frames,
// then three loops run until the first of them fails, which tears down the
// rest. A subscriber that reads slowly just misses intermediate
// transmissions; lag alone never disconnects it.
func (api *RestAPI) wsHandler(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithComponent(api.Logger, "hub")

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request with an error.
		logging.LogError(logger, "Error upgrading websocket connection", err)
		return
	}

	ip := clientIP(r)
	api.Hub.Register(ip)
	defer api.Hub.Unregister(ip)
	sub := api.Hub.Subscribe()
	logger.Debug("websocket subscriber connected", slog.String("client_ip", ip))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Cancellation is the one close authority: closing the socket is what
	// unblocks the read loop, whichever loop failed first.
	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			logging.SafeCloseWithLogging(conn, logger, "websocket connection")
		})
	}
	defer closeConn()
	go func() {
		<-ctx.Done()
		closeConn()
	}()

	if err := sendInitialFrames(conn, sub); err != nil {
		logger.Debug("websocket subscriber lost during initial frames",
			slog.String("client_ip", ip), slog.String("error", err.Error()))
		return
	}

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		defer cancel()
		transmitLoop(ctx, conn, sub, logger, ip)
	}()
	go func() {
		defer loops.Done()
		defer cancel()
		pingLoop(ctx, conn)
	}()

	// Read loop, on the handler goroutine: client frames are drained and
	// ignored, a read error means the connection is gone.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	loops.Wait()
	logger.Debug("websocket subscriber disconnected", slog.String("client_ip", ip))
}

// sendInitialFrames pushes the latest vehicles and active-stops blobs so a
// new subscriber renders current state without waiting for the next tick.
func sendInitialFrames(conn *websocket.Conn, sub *hub.Subscription) error {
	for _, frame := range sub.InitialFrames() {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return err
		}
	}
	return nil
}

// transmitLoop forwards hub transmissions as binary frames. Next coalesces:
// it hands over only the newest transmission this subscriber has not seen.
func transmitLoop(ctx context.Context, conn *websocket.Conn, sub *hub.Subscription, logger *slog.Logger, ip string) {
	for {
		frame, err := sub.Next(ctx)
		if err != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			logger.Debug("dropping websocket subscriber",
				slog.String("client_ip", ip), slog.String("error", err.Error()))
			return
		}
	}
}

// pingLoop keeps intermediaries from idling the connection out.
// WriteControl is safe to call concurrently with the transmit loop's writes.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	timer := time.NewTimer(drawPingInterval())
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			timer.Reset(drawPingInterval())
		case <-ctx.Done():
			return
		}
	}
}

// wsConnectionsHandler dumps the connections table: open connection counts
// keyed by client IP. Plain JSON, no envelope; this is an operator surface,
// not a data projection.
func (api *RestAPI) wsConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.Hub.Connections()); err != nil {
		logging.LogError(api.Logger, "Error encoding connections response", err)
	}
}
