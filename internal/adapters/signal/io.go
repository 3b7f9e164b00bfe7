package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/confdemo/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// FeedOptions tune a single observer connection. Zero fields take the
// package defaults.
type FeedOptions struct {
	PingInterval time.Duration
	WriteWait    time.Duration
	ReadLimit    int64
	SendBuffer   int
}

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteWait    = 5 * time.Second
	defaultReadLimit    = 4 << 10
	defaultSendBuffer   = 32
)

func (o FeedOptions) withDefaults() FeedOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	return o
}

// idleWait is how long a silent observer is kept: two missed pongs.
func (o FeedOptions) idleWait() time.Duration { return 2 * o.PingInterval }

// writePump owns every data write on the socket and pings the observer on
// each tick. Leaving it closes the connection, which ends readPump.
func (ctl *SignalWSController) writePump(ctx context.Context, id core.ObserverID, c *WsSignalConn) {
	opts := ctl.Options.withDefaults()
	ticker := time.NewTicker(opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	logger := log.With().Str("module", "signal").Str("observer", string(id)).Logger()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("feed stopped")
			return
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait)); err != nil {
				logger.Debug().Err(err).Msg("set write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Debug().Err(err).Msg("write frame")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteWait)); err != nil {
				logger.Debug().Err(err).Msg("ping")
				return
			}
		}
	}
}

// readPump handles observer requests until the socket fails, the observer
// goes quiet past idleWait, or a message exceeds ReadLimit.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id core.ObserverID, c *WsSignalConn) {
	opts := ctl.Options.withDefaults()
	defer func() {
		ctl.Hub.Unsubscribe(id)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(id)
		}
		c.Close()
		cancel()
		log.Info().Str("module", "signal").Str("observer", string(id)).Msg("observer left")
	}()

	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(opts.idleWait())) }
	c.conn.SetReadLimit(opts.ReadLimit)
	c.conn.SetPongHandler(func(string) error { return extend() })
	if err := extend(); err != nil {
		return
	}

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("module", "signal").Str("observer", string(id)).Msg("read")
			}
			return
		}
		if err := extend(); err != nil {
			return
		}
		ctl.handleSignal(ctx, id, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, id core.ObserverID, c *WsSignalConn, data []byte) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		ctl.sendError(c, "bad_request")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(id) {
		ctl.sendError(c, "rate_limited")
		return
	}

	switch req.Type {
	case "ping":
		ctl.handlePing(c)
	case "snapshot":
		ctl.handleSnapshot(ctx, c)
	default:
		ctl.sendError(c, "unknown_type")
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, code string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "error": code})
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal reply")
		return
	}
	_ = c.TrySend(b)
}
