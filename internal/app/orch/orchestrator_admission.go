package orch

import (
	"context"
	"errors"

	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errSessionGone = errors.New("session left before answer")

// admit brings a participant into the conference. Each step needs the
// previous one; on failure the call is left where it stopped.
func (o *Orchestrator) admit(ctx context.Context, sess domain.CallSession, s core.SessionRef, lc *app.Lifecycle) {
	logger := log.With().
		Str("module", "orch").
		Str("channel", string(sess.ID)).
		Str("name", sess.Name).
		Logger()

	callerID, err := s.GetVariable(ctx, callerIDVariable)
	if err != nil {
		o.failAdmission(ctx, &logger, lc, err, nil)
		return
	}
	o.Registry.UpdateCallerID(sess.ID, callerID)
	o.advance(ctx, lc, app.EventIdentify)

	conf, err := o.Conference.ResolveOrCreate(ctx)
	if err != nil {
		o.failAdmission(ctx, &logger, lc, err, nil)
		return
	}
	o.advance(ctx, lc, app.EventResolve)

	// Subscribe before answering so an early key press is not lost.
	unsubscribe := s.OnDTMF(func(digit string) {
		o.OnDigit(ctx, domain.TriggerEvent{Digit: digit, From: sess})
	})
	o.Registry.SetCancel(sess.ID, unsubscribe)
	o.advance(ctx, lc, app.EventSubscribe)

	if _, ok := o.Registry.Get(sess.ID); !ok {
		o.failAdmission(ctx, &logger, lc, errSessionGone, unsubscribe)
		return
	}

	if err := s.Answer(ctx); err != nil {
		o.failAdmission(ctx, &logger, lc, err, unsubscribe)
		return
	}
	o.advance(ctx, lc, app.EventAnswer)

	if err := conf.AddMember(ctx, string(sess.ID)); err != nil {
		o.failAdmission(ctx, &logger, lc, err, unsubscribe)
		return
	}
	o.advance(ctx, lc, app.EventJoin)
	logger.Info().
		Str("caller_id", callerID).
		Str("conference", conf.Name()).
		Msg("added to conference")
	o.Hub.Publish(domain.Event{
		Type:       domain.EventParticipantJoined,
		Channel:    sess.ID,
		Name:       sess.Name,
		CallerID:   callerID,
		Conference: domain.ConferenceName(conf.Name()),
	})

	// The beep is not awaited.
	beep, err := conf.Play(ctx, o.Media.Beep)
	if err != nil {
		logger.Warn().Err(err).Str("media", o.Media.Beep).Msg("join announcement failed")
		o.Metrics.Admission("joined", lc.Stage())
		return
	}
	beep.Stop()
	o.advance(ctx, lc, app.EventAnnounce)
	o.Metrics.Admission("joined", lc.Stage())
}

func (o *Orchestrator) failAdmission(
	ctx context.Context,
	logger *zerolog.Logger,
	lc *app.Lifecycle,
	err error,
	release func(),
) {
	if release != nil {
		release()
	}
	stage := lc.Fail(ctx)
	o.Metrics.Admission("failed", stage)
	logger.Error().Err(err).Str("stage", stage).Msg("admission failed")
}
