package fakeplatform

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/confdemo/internal/core"
)

type bridgeService struct{ p *Platform }

func (s bridgeService) List(ctx context.Context) ([]core.BridgeRef, error) {
	p := s.p
	p.mu.Lock()
	p.lists++
	err := p.fail["bridges.list"]
	delay := p.ListDelay
	var out []core.BridgeRef
	if err == nil {
		for _, id := range p.order {
			out = append(out, p.snapshot(p.bridges[id]))
		}
	}
	p.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s bridgeService) Create(ctx context.Context, kind, name string) (core.BridgeRef, error) {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creates++
	if err := p.fail["bridges.create"]; err != nil {
		return nil, err
	}
	b := &bridgeState{id: p.nextID("bridge"), name: name, kind: kind}
	p.bridges[b.id] = b
	p.order = append(p.order, b.id)
	return p.snapshot(b), nil
}

func (s bridgeService) Get(ctx context.Context, id string) (core.BridgeRef, error) {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail["bridges.get"]; err != nil {
		return nil, err
	}
	b, ok := p.bridges[id]
	if !ok {
		return nil, fmt.Errorf("bridge %s: %w", id, ErrNotFound)
	}
	return p.snapshot(b), nil
}

// snapshot must be called with p.mu held.
func (p *Platform) snapshot(b *bridgeState) *bridgeRef {
	return &bridgeRef{p: p, id: b.id, name: b.name, members: append([]string(nil), b.members...)}
}

type bridgeRef struct {
	p       *Platform
	id      string
	name    string
	members []string
}

func (b *bridgeRef) ID() string        { return b.id }
func (b *bridgeRef) Name() string      { return b.name }
func (b *bridgeRef) Members() []string { return b.members }

func (b *bridgeRef) AddMember(ctx context.Context, channelID string) error {
	if err := b.p.record(b.id, "add:"+channelID, "bridge.add"); err != nil {
		return err
	}
	b.p.mu.Lock()
	defer b.p.mu.Unlock()
	if st, ok := b.p.bridges[b.id]; ok {
		st.members = append(st.members, channelID)
	}
	return nil
}

func (b *bridgeRef) Play(ctx context.Context, media string) (core.PlaybackRef, error) {
	if err := b.p.record(b.id, "play:"+media, "bridge.play"); err != nil {
		return nil, err
	}
	return b.p.newPlayback(b.id, media), nil
}

type channelService struct{ p *Platform }

func (s channelService) Get(ctx context.Context, id string) (core.SessionRef, error) {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail["channels.get"]; err != nil {
		return nil, err
	}
	c, ok := p.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return &channelRef{p: p, id: c.id, name: c.name}, nil
}

type channelRef struct {
	p    *Platform
	id   string
	name string
}

func (c *channelRef) ID() string   { return c.id }
func (c *channelRef) Name() string { return c.name }

func (c *channelRef) GetVariable(ctx context.Context, name string) (string, error) {
	if err := c.p.record(c.id, "getvar:"+name, "channel.getvar"); err != nil {
		return "", err
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	if st, ok := c.p.channels[c.id]; ok {
		return st.vars[name], nil
	}
	return "", fmt.Errorf("channel %s: %w", c.id, ErrNotFound)
}

func (c *channelRef) Answer(ctx context.Context) error {
	return c.p.record(c.id, "answer", "channel.answer")
}

func (c *channelRef) Play(ctx context.Context, media string) (core.PlaybackRef, error) {
	if err := c.p.record(c.id, "play:"+media, "channel.play"); err != nil {
		return nil, err
	}
	return c.p.newPlayback(c.id, media), nil
}

func (c *channelRef) Hangup(ctx context.Context) error {
	if err := c.p.record(c.id, "hangup", "channel.hangup"); err != nil {
		return err
	}
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	for _, b := range c.p.bridges {
		kept := b.members[:0]
		for _, m := range b.members {
			if m != c.id {
				kept = append(kept, m)
			}
		}
		b.members = kept
	}
	return nil
}

func (c *channelRef) OnDTMF(fn func(digit string)) func() {
	_ = c.p.record(c.id, "dtmf:subscribe", "")
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	st, ok := c.p.channels[c.id]
	if !ok {
		return func() {}
	}
	key := st.nextSub
	st.nextSub++
	st.dtmf[key] = fn
	return func() {
		c.p.mu.Lock()
		defer c.p.mu.Unlock()
		delete(st.dtmf, key)
	}
}

func (c *channelRef) Snoop(ctx context.Context, opts core.SnoopOptions) (core.SessionRef, error) {
	op := fmt.Sprintf("snoop:spy=%s:whisper=%s:app=%s", opts.Spy, opts.Whisper, opts.App)
	if err := c.p.record(c.id, op, "channel.snoop"); err != nil {
		return nil, err
	}
	c.p.mu.Lock()
	id := c.p.nextID("snoop")
	name := fmt.Sprintf("Snoop/%s-%08d", c.id, c.p.seq)
	c.p.channels[id] = &channelState{id: id, name: name, vars: map[string]string{}, dtmf: map[int]func(string){}}
	h := c.p.handler
	announce := opts.App == c.p.app
	c.p.mu.Unlock()

	ref := &channelRef{p: c.p, id: id, name: name}
	if h != nil && announce {
		h.SessionStarted(ctx, ref)
	}
	return ref, nil
}
