package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// SignalWSController serves the observer feed of conference events.
type SignalWSController struct {
	Hub        *app.Hub
	Conference *app.ConferenceRegistry
	Limiter    *RateLimiter
	Options    FeedOptions
}

func NewSignalWSController(hub *app.Hub, conf *app.ConferenceRegistry, limiter *RateLimiter) *SignalWSController {
	return &SignalWSController{Hub: hub, Conference: conf, Limiter: limiter}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id := core.ObserverID(uuid.NewString())
	log.Info().Str("module", "signal").Str("observer", string(id)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Options.withDefaults().SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Hub.Subscribe(id, conn)

	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}
