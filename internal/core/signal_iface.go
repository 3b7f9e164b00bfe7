package core

// Frame is a raw payload sent to an observer.
type Frame []byte

type ObserverID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
