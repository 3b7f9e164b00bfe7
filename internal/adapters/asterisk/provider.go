// Package asterisk implements the call-control provider on top of the
// Asterisk REST Interface.
package asterisk

import (
	"context"
	"fmt"

	"github.com/CyCoreSystems/ari/v5"
	"github.com/CyCoreSystems/ari/v5/client/native"
	"github.com/dkeye/confdemo/internal/config"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/rs/zerolog/log"
)

type Provider struct {
	cl  ari.Client
	app string
}

var _ core.Provider = (*Provider)(nil)

var dial = func(opts *native.Options) (ari.Client, error) {
	return native.Connect(opts)
}

// Connect opens the REST client and the event websocket for the application.
func Connect(ctx context.Context, cfg config.ARIConfig) (*Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cl, err := dial(&native.Options{
		Application:  cfg.Application,
		URL:          cfg.URL,
		WebsocketURL: cfg.WebsocketURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrConnection, cfg.URL, err)
	}
	log.Info().Str("module", "asterisk").Str("url", cfg.URL).Str("app", cfg.Application).Msg("connected")
	return &Provider{cl: cl, app: cfg.Application}, nil
}

func (p *Provider) ApplicationName() string       { return p.app }
func (p *Provider) Bridges() core.BridgeService   { return bridges{p} }
func (p *Provider) Channels() core.ChannelService { return channels{p} }

func (p *Provider) Close() {
	p.cl.Close()
	log.Info().Str("module", "asterisk").Msg("closed")
}

// Run forwards StasisStart and StasisEnd to h in arrival order.
func (p *Provider) Run(ctx context.Context, h core.SessionEvents) error {
	sub := p.cl.Bus().Subscribe(nil, ari.Events.StasisStart, ari.Events.StasisEnd)
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.Events():
			if !ok {
				return core.ErrEventStreamClosed
			}
			switch v := e.(type) {
			case *ari.StasisStart:
				h.SessionStarted(ctx, p.session(v.Key(ari.ChannelKey, v.Channel.ID), v.Channel.Name))
			case *ari.StasisEnd:
				h.SessionEnded(ctx, p.session(v.Key(ari.ChannelKey, v.Channel.ID), v.Channel.Name))
			default:
				log.Debug().Str("module", "asterisk").Str("type", e.GetType()).Msg("unhandled event")
			}
		}
	}
}

func (p *Provider) session(key *ari.Key, name string) *session {
	return &session{p: p, h: p.cl.Channel().Get(key), name: name}
}
