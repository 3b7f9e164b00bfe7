package core

import "context"

type Direction string

const (
	DirectionNone Direction = "none"
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionBoth Direction = "both"
)

type SnoopOptions struct {
	Spy     Direction
	Whisper Direction
	// App receives the lifecycle events of the snoop channel.
	App string
}

// SessionRef is a live channel on the platform.
type SessionRef interface {
	ID() string
	Name() string
	GetVariable(ctx context.Context, name string) (string, error)
	Answer(ctx context.Context) error
	// Play starts media on the channel. The finished subscription is in place
	// before the playback begins.
	Play(ctx context.Context, media string) (PlaybackRef, error)
	Hangup(ctx context.Context) error
	// OnDTMF delivers key presses in order until the returned func is called.
	OnDTMF(fn func(digit string)) (unsubscribe func())
	Snoop(ctx context.Context, opts SnoopOptions) (SessionRef, error)
}
