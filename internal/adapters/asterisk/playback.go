package asterisk

import (
	"sync"

	"github.com/CyCoreSystems/ari/v5"
	"github.com/google/uuid"
)

type stageFunc func(id string, mediaURI string) (*ari.PlaybackHandle, error)

type playback struct {
	id   string
	done chan struct{}
	stop chan struct{}
	once sync.Once
}

func (pb *playback) ID() string            { return pb.id }
func (pb *playback) Done() <-chan struct{} { return pb.done }

// Stop drops the PlaybackFinished subscription. Safe to call more than once
// and after the playback finished.
func (pb *playback) Stop() {
	pb.once.Do(func() { close(pb.stop) })
}

// startPlayback stages the playback, subscribes to its end and only then
// starts it, so short media cannot finish unseen.
func startPlayback(stage stageFunc, media string) (*playback, error) {
	h, err := stage(uuid.NewString(), media)
	if err != nil {
		return nil, err
	}
	pb := &playback{id: h.ID(), done: make(chan struct{}), stop: make(chan struct{})}
	sub := h.Subscribe(ari.Events.PlaybackFinished)
	go pb.watch(sub)

	if err := h.Exec(); err != nil {
		pb.Stop()
		return nil, err
	}
	return pb, nil
}

func (pb *playback) watch(sub ari.Subscription) {
	defer sub.Cancel()
	select {
	case <-pb.stop:
	case _, ok := <-sub.Events():
		if ok {
			close(pb.done)
		}
	}
}
