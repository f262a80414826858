package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SignalHub broadcasts freshly emitted Signals to connected ops
// observers. It carries no history and no per-client filtering — this
// is an operability tap, not the dashboard's signal feed.
type SignalHub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan model.Signal
	mutex     sync.Mutex
	log       *logrus.Entry
}

// NewSignalHub constructs an empty hub. Call Run in a goroutine before
// Publish is used.
func NewSignalHub(log *logrus.Entry) *SignalHub {
	return &SignalHub{
		broadcast: make(chan model.Signal, 256),
		clients:   make(map[*websocket.Conn]bool),
		log:       log,
	}
}

// Run drains the broadcast channel, fanning every signal out to every
// connected client. A client whose write fails or times out is dropped.
func (h *SignalHub) Run() {
	for sig := range h.broadcast {
		payload, err := json.Marshal(sig)
		if err != nil {
			h.log.WithError(err).Warn("signal hub: failed to marshal signal")
			continue
		}

		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the request to a websocket and registers the
// connection as a broadcast recipient.
func (h *SignalHub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("signal hub: upgrade failed")
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// Publish enqueues a signal for broadcast. Non-blocking: a full channel
// drops the signal rather than stalling the flush path that produced it.
func (h *SignalHub) Publish(sig model.Signal) {
	select {
	case h.broadcast <- sig:
	default:
		h.log.Warn("signal hub: broadcast channel full, dropping signal")
	}
}
