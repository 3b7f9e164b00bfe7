package app

import (
	"sync"

	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session   domain.CallSession
	CallerID  string
	Lifecycle *Lifecycle
	Cancel    func()
}

// SessionView is a read-only copy of a table entry.
type SessionView struct {
	ID       domain.ChannelID `json:"id"`
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	CallerID string           `json:"caller_id,omitempty"`
	Stage    string           `json:"stage,omitempty"`
}

// Registry keeps the sessions currently inside the application, keyed by
// channel id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ChannelID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.ChannelID]*sessionEntry)}
}

func (r *Registry) Bind(s domain.CallSession, lc *Lifecycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = &sessionEntry{Session: s, Lifecycle: lc}
	log.Debug().Str("module", "app.registry").Str("channel", string(s.ID)).Str("kind", s.Kind.String()).Msg("bound session")
}

func (r *Registry) Get(id domain.ChannelID) (domain.CallSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Session, true
	}
	return domain.CallSession{}, false
}

func (r *Registry) UpdateCallerID(id domain.ChannelID, callerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	e.CallerID = callerID
	return true
}

// SetCancel stores the release func of a session's DTMF subscription.
// When the session is already gone the func is run immediately.
func (r *Registry) SetCancel(id domain.ChannelID, cancel func()) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.Cancel = cancel
	}
	r.mu.Unlock()
	if !ok && cancel != nil {
		cancel()
	}
}

// Unbind drops the session and releases its subscription.
func (r *Registry) Unbind(id domain.ChannelID) (domain.CallSession, bool) {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return domain.CallSession{}, false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Debug().Str("module", "app.registry").Str("channel", string(id)).Msg("unbind session")
	return e.Session, true
}

func (r *Registry) Snapshot() []SessionView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionView, 0, len(r.sessions))
	for _, e := range r.sessions {
		v := SessionView{
			ID:       e.Session.ID,
			Name:     e.Session.Name,
			Kind:     e.Session.Kind.String(),
			CallerID: e.CallerID,
		}
		if e.Lifecycle != nil {
			v.Stage = e.Lifecycle.Stage()
		}
		out = append(out, v)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
