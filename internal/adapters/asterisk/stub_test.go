package asterisk

import (
	"errors"
	"sync"

	"github.com/CyCoreSystems/ari/v5"
)

// The stubs embed the ari interfaces and override what the adapter calls.
// Anything else panics on the nil embedded value.

type stubClient struct {
	ari.Client
	bus     *stubBus
	bridge  *stubBridge
	channel *stubChannel
	closed  bool
}

func newStubClient() *stubClient {
	return &stubClient{
		bus:     &stubBus{sub: newFakeSub()},
		bridge:  &stubBridge{data: map[string]*ari.BridgeData{}},
		channel: &stubChannel{data: map[string]*ari.ChannelData{}},
	}
}

func (c *stubClient) Bus() ari.Bus         { return c.bus }
func (c *stubClient) Bridge() ari.Bridge   { return c.bridge }
func (c *stubClient) Channel() ari.Channel { return c.channel }
func (c *stubClient) Close()               { c.closed = true }

type stubBus struct {
	ari.Bus
	sub   *fakeSub
	kinds []string
}

func (b *stubBus) Subscribe(key *ari.Key, n ...string) ari.Subscription {
	b.kinds = append(b.kinds, n...)
	return b.sub
}

type stubBridge struct {
	ari.Bridge
	keys []*ari.Key
	data map[string]*ari.BridgeData
}

func (b *stubBridge) List(*ari.Key) ([]*ari.Key, error) { return b.keys, nil }

func (b *stubBridge) Data(key *ari.Key) (*ari.BridgeData, error) {
	d, ok := b.data[key.ID]
	if !ok {
		return nil, errors.New("bridge not found")
	}
	return d, nil
}

func (b *stubBridge) Get(key *ari.Key) *ari.BridgeHandle {
	return ari.NewBridgeHandle(key, b, nil)
}

func (b *stubBridge) add(id, name string, members ...string) {
	b.keys = append(b.keys, ari.NewKey(ari.BridgeKey, id))
	b.data[id] = &ari.BridgeData{ID: id, Name: name, ChannelIDs: members}
}

type snoopCall struct {
	target  string
	snoopID string
	opts    ari.SnoopOptions
}

type stubChannel struct {
	ari.Channel
	mu     sync.Mutex
	data   map[string]*ari.ChannelData
	snoops []snoopCall
}

func (c *stubChannel) Get(key *ari.Key) *ari.ChannelHandle {
	return ari.NewChannelHandle(key, c, nil)
}

func (c *stubChannel) Data(key *ari.Key) (*ari.ChannelData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key.ID]
	if !ok {
		return nil, errors.New("channel not found")
	}
	return d, nil
}

func (c *stubChannel) Snoop(key *ari.Key, snoopID string, opts *ari.SnoopOptions) (*ari.ChannelHandle, error) {
	c.mu.Lock()
	c.snoops = append(c.snoops, snoopCall{target: key.ID, snoopID: snoopID, opts: *opts})
	c.data[snoopID] = &ari.ChannelData{ID: snoopID, Name: "Snoop/" + key.ID + "-00000001"}
	c.mu.Unlock()
	return ari.NewChannelHandle(ari.NewKey(ari.ChannelKey, snoopID), c, nil), nil
}
