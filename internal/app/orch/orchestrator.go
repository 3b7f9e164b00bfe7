package orch

import (
	"context"
	"time"

	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/dkeye/confdemo/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

const (
	callerIDVariable       = "CALLERID(all)"
	defaultTriggerDigit    = "#"
	defaultPlaybackTimeout = 30 * time.Second
)

type Media struct {
	Beep  string
	Prank string
}

// Orchestrator reacts to platform session events. Every flow runs on its own
// goroutine so a stalled platform call only holds up that flow.
type Orchestrator struct {
	Provider   core.Provider
	Conference *app.ConferenceRegistry
	Registry   *app.Registry
	Targets    app.TargetPolicy
	Hub        *app.Hub
	Metrics    *metrics.Collector

	Media           Media
	TriggerDigit    string
	PlaybackTimeout time.Duration

	flows conc.WaitGroup
}

var _ core.SessionEvents = (*Orchestrator)(nil)

// Run blocks dispatching platform events until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().Str("module", "orch").Str("app", o.Provider.ApplicationName()).Msg("starting")
	return o.Provider.Run(ctx, o)
}

// Wait blocks until every flow started so far has returned.
func (o *Orchestrator) Wait() {
	o.flows.Wait()
}

// SessionStarted classifies the session before anything else touches it.
func (o *Orchestrator) SessionStarted(ctx context.Context, s core.SessionRef) {
	sess := domain.NewCallSession(s.ID(), s.Name())
	o.Metrics.SessionStarted(sess.Kind.String())

	switch sess.Kind {
	case domain.Listener:
		lc := app.NewListenerLifecycle()
		o.Registry.Bind(sess, lc)
		o.spawn("listener", sess, func() { o.playListener(ctx, sess, s, lc) })
	default:
		lc := app.NewAdmissionLifecycle()
		o.Registry.Bind(sess, lc)
		o.spawn("admission", sess, func() { o.admit(ctx, sess, s, lc) })
	}
}

func (o *Orchestrator) SessionEnded(ctx context.Context, s core.SessionRef) {
	log.Info().Str("module", "orch").Str("channel", s.ID()).Str("name", s.Name()).Msg("left the application")

	sess, ok := o.Registry.Unbind(domain.ChannelID(s.ID()))
	if !ok {
		return
	}
	o.Metrics.SessionEnded(sess.Kind.String())
	o.Hub.Publish(domain.Event{
		Type:    domain.EventSessionEnded,
		Channel: sess.ID,
		Name:    sess.Name,
	})
}

func (o *Orchestrator) spawn(flow string, sess domain.CallSession, fn func()) {
	o.flows.Go(func() {
		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			log.Error().
				Err(r.AsError()).
				Str("module", "orch").
				Str("flow", flow).
				Str("channel", string(sess.ID)).
				Msg("flow panicked")
		}
	})
}

func (o *Orchestrator) advance(ctx context.Context, lc *app.Lifecycle, event string) {
	if err := lc.Advance(ctx, event); err != nil {
		log.Debug().Err(err).Str("module", "orch").Str("event", event).Msg("lifecycle")
	}
}

func (o *Orchestrator) triggerDigit() string {
	if o.TriggerDigit == "" {
		return defaultTriggerDigit
	}
	return o.TriggerDigit
}

func (o *Orchestrator) playbackTimeout() time.Duration {
	if o.PlaybackTimeout <= 0 {
		return defaultPlaybackTimeout
	}
	return o.PlaybackTimeout
}

func (o *Orchestrator) targets() app.TargetPolicy {
	if o.Targets == nil {
		return app.RandomPolicy{}
	}
	return o.Targets
}
