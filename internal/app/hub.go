package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure.
type PublishResult struct {
	SendTo  int
	Dropped []core.ObserverID
}

// Hub fans conference events out to observers. It never closes
// adapter-owned connections except when the policy kicks an observer.
// A nil *Hub drops everything.
type Hub struct {
	mu        sync.RWMutex
	observers map[core.ObserverID]core.SignalConnection
	policy    Policy
}

func NewHub(policy Policy) *Hub {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Hub{observers: make(map[core.ObserverID]core.SignalConnection), policy: policy}
}

func (h *Hub) Subscribe(id core.ObserverID, conn core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[id] = conn
	log.Info().Str("module", "app.hub").Str("observer", string(id)).Msg("observer added")
}

func (h *Hub) Unsubscribe(id core.ObserverID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, id)
	log.Info().Str("module", "app.hub").Str("observer", string(id)).Msg("observer removed")
}

func (h *Hub) Count() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) Publish(evt domain.Event) PublishResult {
	res := PublishResult{}
	if h == nil {
		return res
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Msg("marshal event")
		return res
	}

	h.mu.RLock()
	for id, conn := range h.observers {
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	h.mu.RUnlock()

	for _, id := range res.Dropped {
		switch h.policy.OnBackPressure(id) {
		case KickObserver:
			h.kick(id)
		case DropFrame, NoAction:
		}
	}
	log.Debug().Str("module", "app.hub").Str("event", string(evt.Type)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("publish result")
	return res
}

func (h *Hub) kick(id core.ObserverID) {
	h.mu.Lock()
	conn, ok := h.observers[id]
	delete(h.observers, id)
	h.mu.Unlock()
	if ok {
		conn.Close()
		log.Warn().Str("module", "app.hub").Str("observer", string(id)).Msg("kicked slow observer")
	}
}
