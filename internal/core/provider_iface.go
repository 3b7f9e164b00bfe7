package core

import "context"

// SessionEvents receives channel lifecycle events from a Provider.
// Calls arrive one at a time, in platform order; implementations must not
// block.
type SessionEvents interface {
	SessionStarted(ctx context.Context, s SessionRef)
	SessionEnded(ctx context.Context, s SessionRef)
}

// Provider is the call-control platform as the orchestrator sees it.
type Provider interface {
	ApplicationName() string
	Bridges() BridgeService
	Channels() ChannelService
	// Run dispatches events scoped to the application until ctx is done or
	// the event stream breaks.
	Run(ctx context.Context, h SessionEvents) error
	Close()
}

type BridgeService interface {
	List(ctx context.Context) ([]BridgeRef, error)
	Create(ctx context.Context, kind, name string) (BridgeRef, error)
	// Get fetches the bridge with its current member list.
	Get(ctx context.Context, id string) (BridgeRef, error)
}

type ChannelService interface {
	Get(ctx context.Context, id string) (SessionRef, error)
}

// BridgeRef is a bridge handle. Members reflects the platform state at the
// time the ref was fetched.
type BridgeRef interface {
	ID() string
	Name() string
	Members() []string
	AddMember(ctx context.Context, channelID string) error
	Play(ctx context.Context, media string) (PlaybackRef, error)
}

// PlaybackRef tracks a single playback. Done is closed once the platform
// reports it finished. Stop releases the tracking when the caller no longer
// waits for Done; Done is then never closed.
type PlaybackRef interface {
	ID() string
	Done() <-chan struct{}
	Stop()
}
