// Package fakeplatform is an in-memory call-control platform for tests.
// Every operation is recorded against the channel or bridge it touched.
package fakeplatform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/confdemo/internal/core"
)

var ErrNotFound = errors.New("not found")

type bridgeState struct {
	id, name, kind string
	members        []string
}

type channelState struct {
	id, name string
	vars     map[string]string
	dtmf     map[int]func(string)
	nextSub  int
}

type Platform struct {
	// AutoFinish closes every playback as soon as it starts.
	AutoFinish bool
	// ListDelay widens the window in which concurrent resolutions overlap.
	ListDelay time.Duration

	app string

	mu        sync.Mutex
	bridges   map[string]*bridgeState
	order     []string
	channels  map[string]*channelState
	playbacks map[string]*Playback
	ops       map[string][]string
	fail      map[string]error
	creates   int
	lists     int
	seq       int
	handler   core.SessionEvents
}

func New(app string) *Platform {
	return &Platform{
		app:       app,
		bridges:   make(map[string]*bridgeState),
		channels:  make(map[string]*channelState),
		playbacks: make(map[string]*Playback),
		ops:       make(map[string][]string),
		fail:      make(map[string]error),
	}
}

func (p *Platform) ApplicationName() string       { return p.app }
func (p *Platform) Bridges() core.BridgeService   { return bridgeService{p} }
func (p *Platform) Channels() core.ChannelService { return channelService{p} }
func (p *Platform) Close()                        {}

func (p *Platform) Run(ctx context.Context, h core.SessionEvents) error {
	p.Attach(h)
	<-ctx.Done()
	return nil
}

// Attach makes snoop channels announce themselves to h, like the platform
// does for channels tagged with the application name.
func (p *Platform) Attach(h core.SessionEvents) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Fail makes every later call of op return err. A nil err clears it.
func (p *Platform) Fail(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.fail, op)
		return
	}
	p.fail[op] = err
}

func (p *Platform) AddChannel(id, name string, vars map[string]string) core.SessionRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	if vars == nil {
		vars = map[string]string{}
	}
	p.channels[id] = &channelState{id: id, name: name, vars: vars, dtmf: map[int]func(string){}}
	return &channelRef{p: p, id: id, name: name}
}

func (p *Platform) AddBridge(id, name string, members ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bridges[id] = &bridgeState{id: id, name: name, kind: "mixing", members: members}
	p.order = append(p.order, id)
}

func (p *Platform) SetMembers(bridgeID string, members ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bridges[bridgeID]; ok {
		b.members = append([]string(nil), members...)
	}
}

func (p *Platform) Members(bridgeID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bridges[bridgeID]; ok {
		return append([]string(nil), b.members...)
	}
	return nil
}

func (p *Platform) BridgeIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Ops returns the operations recorded against a channel or bridge id.
func (p *Platform) Ops(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops[id]...)
}

// ChannelsNamed returns ids of channels whose name starts with prefix.
func (p *Platform) ChannelsNamed(prefix string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for id, c := range p.channels {
		if len(c.name) >= len(prefix) && c.name[:len(prefix)] == prefix {
			out = append(out, id)
		}
	}
	return out
}

func (p *Platform) Creates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.creates
}

func (p *Platform) Lists() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lists
}

// Start delivers SessionStarted for a known channel to the attached handler.
func (p *Platform) Start(ctx context.Context, id string) {
	p.deliver(ctx, id, true)
}

// End delivers SessionEnded for a known channel to the attached handler.
func (p *Platform) End(ctx context.Context, id string) {
	p.deliver(ctx, id, false)
}

func (p *Platform) deliver(ctx context.Context, id string, started bool) {
	p.mu.Lock()
	h := p.handler
	c, ok := p.channels[id]
	p.mu.Unlock()
	if h == nil || !ok {
		return
	}
	ref := &channelRef{p: p, id: c.id, name: c.name}
	if started {
		h.SessionStarted(ctx, ref)
	} else {
		h.SessionEnded(ctx, ref)
	}
}

// PressDigit runs the channel's DTMF subscribers synchronously.
func (p *Platform) PressDigit(channelID, digit string) {
	p.mu.Lock()
	var fns []func(string)
	if c, ok := p.channels[channelID]; ok {
		for _, fn := range c.dtmf {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(digit)
	}
}

func (p *Platform) Subscribers(channelID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.channels[channelID]; ok {
		return len(c.dtmf)
	}
	return 0
}

// FinishPlayback closes the Done channel of a playback.
func (p *Platform) FinishPlayback(id string) {
	p.mu.Lock()
	pb, ok := p.playbacks[id]
	p.mu.Unlock()
	if ok {
		pb.finish()
	}
}

// Stopped reports whether the tracker of a playback was released.
func (p *Platform) Stopped(id string) bool {
	p.mu.Lock()
	pb, ok := p.playbacks[id]
	p.mu.Unlock()
	return ok && pb.stopped.Load()
}

// PlaybacksOn returns ids of playbacks started on a channel or bridge.
func (p *Platform) PlaybacksOn(target string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for id, pb := range p.playbacks {
		if pb.target == target {
			out = append(out, id)
		}
	}
	return out
}

func (p *Platform) record(id, op, failKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops[id] = append(p.ops[id], op)
	return p.fail[failKey]
}

func (p *Platform) nextID(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s-%d", prefix, p.seq)
}

func (p *Platform) newPlayback(target, media string) *Playback {
	p.mu.Lock()
	pb := &Playback{id: p.nextID("playback"), target: target, Media: media, done: make(chan struct{})}
	p.playbacks[pb.id] = pb
	auto := p.AutoFinish
	p.mu.Unlock()
	if auto {
		pb.finish()
	}
	return pb
}

type Playback struct {
	id      string
	target  string
	Media   string
	once    sync.Once
	done    chan struct{}
	stopped atomic.Bool
}

func (pb *Playback) ID() string            { return pb.id }
func (pb *Playback) Done() <-chan struct{} { return pb.done }
func (pb *Playback) Stop()                 { pb.stopped.Store(true) }
func (pb *Playback) finish()               { pb.once.Do(func() { close(pb.done) }) }
