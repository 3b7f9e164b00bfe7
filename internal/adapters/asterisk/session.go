package asterisk

import (
	"context"
	"errors"
	"sync"

	"github.com/CyCoreSystems/ari/v5"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/google/uuid"
)

var errNoData = errors.New("no channel data")

type channels struct{ p *Provider }

func (c channels) Get(ctx context.Context, id string) (core.SessionRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := c.p.cl.Channel().Get(ari.NewKey(ari.ChannelKey, id))
	data, err := h.Data()
	if err != nil {
		return nil, core.Platform("channels.get", err)
	}
	if data == nil {
		return nil, core.Platform("channels.get", errNoData)
	}
	return &session{p: c.p, h: h, name: data.Name}, nil
}

type session struct {
	p    *Provider
	h    *ari.ChannelHandle
	name string
}

func (s *session) ID() string   { return s.h.ID() }
func (s *session) Name() string { return s.name }

func (s *session) GetVariable(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.h.GetVariable(name)
	if err != nil {
		return "", core.Platform("channel.get_variable", err)
	}
	return v, nil
}

func (s *session) Answer(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return core.Platform("channel.answer", s.h.Answer())
}

func (s *session) Play(ctx context.Context, media string) (core.PlaybackRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pb, err := startPlayback(s.h.StagePlay, media)
	if err != nil {
		return nil, core.Platform("channel.play", err)
	}
	return pb, nil
}

func (s *session) Hangup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return core.Platform("channel.hangup", s.h.Hangup())
}

func (s *session) OnDTMF(fn func(digit string)) func() {
	sub := s.h.Subscribe(ari.Events.ChannelDtmfReceived)
	stop := make(chan struct{})
	go pumpDTMF(sub, fn, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			sub.Cancel()
		})
	}
}

func (s *session) Snoop(ctx context.Context, opts core.SnoopOptions) (core.SessionRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := s.h.Snoop(uuid.NewString(), &ari.SnoopOptions{
		App:     opts.App,
		Spy:     ari.Direction(opts.Spy),
		Whisper: ari.Direction(opts.Whisper),
	})
	if err != nil {
		return nil, core.Platform("channel.snoop", err)
	}
	out := &session{p: s.p, h: h}
	if data, err := h.Data(); err == nil && data != nil {
		out.name = data.Name
	}
	return out, nil
}

func pumpDTMF(sub ari.Subscription, fn func(string), stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			if v, ok := e.(*ari.ChannelDtmfReceived); ok {
				fn(v.Digit)
			}
		}
	}
}
