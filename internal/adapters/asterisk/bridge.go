package asterisk

import (
	"context"

	"github.com/CyCoreSystems/ari/v5"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type bridges struct{ p *Provider }

func (b bridges) List(ctx context.Context) ([]core.BridgeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := b.p.cl.Bridge().List(nil)
	if err != nil {
		return nil, core.Platform("bridges.list", err)
	}
	out := make([]core.BridgeRef, 0, len(keys))
	for _, key := range keys {
		data, err := b.p.cl.Bridge().Data(key)
		if err != nil {
			// destroyed between list and fetch
			log.Debug().Err(err).Str("module", "asterisk").Str("bridge", key.ID).Msg("skip bridge")
			continue
		}
		out = append(out, b.ref(key, data))
	}
	return out, nil
}

func (b bridges) Create(ctx context.Context, kind, name string) (core.BridgeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := ari.NewKey(ari.BridgeKey, uuid.NewString())
	h, err := b.p.cl.Bridge().Create(key, kind, name)
	if err != nil {
		return nil, core.Platform("bridges.create", err)
	}
	data, err := h.Data()
	if err != nil {
		return nil, core.Platform("bridges.data", err)
	}
	return &bridge{h: h, data: data}, nil
}

func (b bridges) Get(ctx context.Context, id string) (core.BridgeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := ari.NewKey(ari.BridgeKey, id)
	data, err := b.p.cl.Bridge().Data(key)
	if err != nil {
		return nil, core.Platform("bridges.get", err)
	}
	return b.ref(key, data), nil
}

func (b bridges) ref(key *ari.Key, data *ari.BridgeData) *bridge {
	return &bridge{h: b.p.cl.Bridge().Get(key), data: data}
}

type bridge struct {
	h    *ari.BridgeHandle
	data *ari.BridgeData
}

func (b *bridge) ID() string   { return b.data.ID }
func (b *bridge) Name() string { return b.data.Name }

func (b *bridge) Members() []string {
	return append([]string(nil), b.data.ChannelIDs...)
}

func (b *bridge) AddMember(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return core.Platform("bridge.add_channel", b.h.AddChannel(channelID))
}

func (b *bridge) Play(ctx context.Context, media string) (core.PlaybackRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pb, err := startPlayback(b.h.StagePlay, media)
	if err != nil {
		return nil, core.Platform("bridge.play", err)
	}
	return pb, nil
}
