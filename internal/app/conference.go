package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/dkeye/confdemo/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// ConferenceRegistry owns the single conference bridge of the process.
// The bridge is resolved on first use and kept for the process lifetime.
type ConferenceRegistry struct {
	bridges core.BridgeService
	name    domain.ConferenceName
	kind    string
	metrics *metrics.Collector

	flight singleflight.Group

	mu   sync.RWMutex
	conf core.BridgeRef
}

func NewConferenceRegistry(
	bridges core.BridgeService,
	name domain.ConferenceName,
	kind string,
	m *metrics.Collector,
) *ConferenceRegistry {
	if name == "" {
		name = domain.DefaultConferenceName
	}
	if kind == "" {
		kind = domain.DefaultBridgeType
	}
	return &ConferenceRegistry{bridges: bridges, name: name, kind: kind, metrics: m}
}

func (r *ConferenceRegistry) Name() domain.ConferenceName { return r.name }

// Cached returns the resolved bridge without touching the platform.
func (r *ConferenceRegistry) Cached() (core.BridgeRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conf, r.conf != nil
}

// ResolveOrCreate returns the conference bridge, adopting an existing bridge
// with the conference name or creating one. Concurrent callers share a single
// resolution; a failed resolution is not cached.
func (r *ConferenceRegistry) ResolveOrCreate(ctx context.Context) (core.BridgeRef, error) {
	if conf, ok := r.Cached(); ok {
		return conf, nil
	}
	v, err, shared := r.flight.Do(string(r.name), func() (any, error) {
		if conf, ok := r.Cached(); ok {
			return conf, nil
		}
		conf, err := r.resolve(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.conf = conf
		r.mu.Unlock()
		return conf, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("module", "app.conference").Str("conference", string(r.name)).Msg("joined in-flight resolution")
	}
	return v.(core.BridgeRef), nil
}

func (r *ConferenceRegistry) resolve(ctx context.Context) (core.BridgeRef, error) {
	bridges, err := r.bridges.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bridges: %w", err)
	}
	for _, b := range bridges {
		if b.Name() == string(r.name) {
			log.Info().Str("module", "app.conference").Str("bridge", b.ID()).Str("conference", string(r.name)).Msg("adopted existing bridge")
			return b, nil
		}
	}

	b, err := r.bridges.Create(ctx, r.kind, string(r.name))
	if err != nil {
		return nil, fmt.Errorf("create bridge %s: %w", r.name, err)
	}
	r.metrics.BridgeCreated()
	log.Info().Str("module", "app.conference").Str("bridge", b.ID()).Str("conference", string(r.name)).Str("type", r.kind).Msg("created bridge")
	return b, nil
}

// Snapshot fetches the current state of the conference from the platform.
func (r *ConferenceRegistry) Snapshot(ctx context.Context) (domain.Conference, bool, error) {
	conf, ok := r.Cached()
	if !ok {
		return domain.Conference{}, false, nil
	}
	fresh, err := r.bridges.Get(ctx, conf.ID())
	if err != nil {
		return domain.Conference{}, true, err
	}
	out := domain.Conference{
		ID:      domain.ConferenceID(fresh.ID()),
		Name:    domain.ConferenceName(fresh.Name()),
		Members: make([]domain.ChannelID, 0, len(fresh.Members())),
	}
	for _, m := range fresh.Members() {
		out.Members = append(out.Members, domain.ChannelID(m))
	}
	return out, true, nil
}
