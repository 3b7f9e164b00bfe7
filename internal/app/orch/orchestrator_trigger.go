package orch

import (
	"context"

	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnDigit receives every key press of an admitted participant.
func (o *Orchestrator) OnDigit(ctx context.Context, ev domain.TriggerEvent) {
	if ev.Digit != o.triggerDigit() {
		log.Debug().Str("module", "orch").Str("channel", string(ev.From.ID)).Str("digit", ev.Digit).Msg("digit ignored")
		o.Metrics.Trigger("ignored")
		return
	}
	log.Info().Str("module", "orch").Str("channel", string(ev.From.ID)).Str("name", ev.From.Name).Msg("trigger pressed")
	o.spawn("trigger", ev.From, func() { o.trigger(ctx, ev) })
}

// trigger picks a member from the live bridge and attaches a whispering
// snoop channel to it. Failures leave the conference untouched.
func (o *Orchestrator) trigger(ctx context.Context, ev domain.TriggerEvent) {
	logger := log.With().
		Str("module", "orch").
		Str("channel", string(ev.From.ID)).
		Logger()

	conf, ok := o.Conference.Cached()
	if !ok {
		logger.Warn().Msg("trigger without a conference")
		o.Metrics.Trigger("failed")
		return
	}

	// Membership is read from the platform on every press.
	fresh, err := o.Provider.Bridges().Get(ctx, conf.ID())
	if err != nil {
		logger.Error().Err(err).Str("bridge", conf.ID()).Msg("fetch conference members")
		o.Metrics.Trigger("failed")
		return
	}

	target, ok := o.targets().Pick(fresh.Members(), ev.From.ID)
	if !ok {
		logger.Info().Str("bridge", conf.ID()).Msg("no member to pick")
		o.Metrics.Trigger("empty")
		return
	}

	victim, err := o.Provider.Channels().Get(ctx, target)
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("fetch target channel")
		o.Metrics.Trigger("failed")
		return
	}
	callerID, err := victim.GetVariable(ctx, callerIDVariable)
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("fetch target caller id")
		o.Metrics.Trigger("failed")
		return
	}
	logger.Info().
		Str("target", target).
		Str("target_name", victim.Name()).
		Str("target_caller_id", callerID).
		Msg("target chosen")
	o.Hub.Publish(domain.Event{
		Type:     domain.EventTrigger,
		Channel:  ev.From.ID,
		Name:     ev.From.Name,
		Target:   domain.ChannelID(target),
		CallerID: callerID,
	})

	listener, err := victim.Snoop(ctx, core.SnoopOptions{
		Spy:     core.DirectionNone,
		Whisper: core.DirectionOut,
		App:     o.Provider.ApplicationName(),
	})
	if err != nil {
		logger.Error().Err(err).Str("target", target).Msg("snoop target")
		o.Metrics.Trigger("failed")
		return
	}
	o.Metrics.Trigger("spawned")
	o.Hub.Publish(domain.Event{
		Type:    domain.EventListenerSpawned,
		Channel: domain.ChannelID(listener.ID()),
		Name:    listener.Name(),
		Target:  domain.ChannelID(target),
	})
}
