// Package monitor streams ring fill levels over a WebSocket.
//
// Handler sends one JSON Sample per interval to every connected client;
// Watch is the matching client.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haivivi/rtring/pkg/pump"
)

const (
	writeWait       = 5 * time.Second
	defaultInterval = 250 * time.Millisecond
)

// Source reports the current state of a ring. *pump.Bridge implements it.
type Source interface {
	Status() pump.Status
}

// Sample is one message on the wire.
type Sample struct {
	Ring     string    `json:"ring"`
	Time     time.Time `json:"time"`
	Capacity int       `json:"capacity"`
	Readable int       `json:"readable"`
	Writable int       `json:"writable"`
}

// Handler is an http.Handler that upgrades to WebSocket and streams samples
// until the client goes away.
type Handler struct {
	ring     string
	src      Source
	interval time.Duration
	upgrader websocket.Upgrader
}

// NewHandler returns a Handler sampling src every interval. A non-positive
// interval uses 250ms.
func NewHandler(ring string, src Source, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Handler{
		ring:     ring,
		src:      src,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) sample() Sample {
	st := h.src.Status()
	return Sample{
		Ring:     h.ring,
		Time:     time.Now().UTC(),
		Capacity: st.Capacity,
		Readable: st.Readable,
		Writable: st.Writable,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("monitor: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	slog.Debug("monitor: client connected", "remote", r.RemoteAddr)

	// The reader only notices when the client closes.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		conn.Close()
		<-gone
		slog.Debug("monitor: client disconnected", "remote", r.RemoteAddr)
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.sample()); err != nil {
			return
		}
		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// ErrStop may be returned by a Watch callback to end watching without an
// error.
var ErrStop = errors.New("monitor: stop")

// Watch connects to a Handler at url (ws:// or wss://) and calls fn for
// every sample until ctx is done, the server closes or fn returns an error.
func Watch(ctx context.Context, url string, fn func(Sample) error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-stop:
		}
	}()
	defer func() {
		close(stop)
		<-closed
		conn.Close()
	}()

	for {
		var s Sample
		if err := conn.ReadJSON(&s); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if err := fn(s); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}
