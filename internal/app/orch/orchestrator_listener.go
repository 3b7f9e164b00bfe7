package orch

import (
	"context"
	"time"

	"github.com/dkeye/confdemo/internal/app"
	"github.com/dkeye/confdemo/internal/core"
	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog/log"
)

// playListener plays the prank into a snoop channel and hangs it up once the
// playback is over. The wait is bounded by PlaybackTimeout.
func (o *Orchestrator) playListener(ctx context.Context, sess domain.CallSession, s core.SessionRef, lc *app.Lifecycle) {
	logger := log.With().
		Str("module", "orch").
		Str("channel", string(sess.ID)).
		Str("name", sess.Name).
		Logger()

	pb, err := s.Play(ctx, o.Media.Prank)
	if err != nil {
		lc.Fail(ctx)
		o.Metrics.Listener("failed")
		logger.Error().Err(err).Str("media", o.Media.Prank).Msg("listener playback failed")
		return
	}
	o.advance(ctx, lc, app.EventPlay)

	timer := time.NewTimer(o.playbackTimeout())
	defer timer.Stop()

	result := "finished"
	select {
	case <-pb.Done():
		o.advance(ctx, lc, app.EventFinish)
	case <-timer.C:
		result = "timeout"
		logger.Warn().Str("playback", pb.ID()).Dur("timeout", o.playbackTimeout()).Msg("playback did not finish")
	case <-ctx.Done():
		result = "cancelled"
	}
	pb.Stop()

	// The listener is hung up even when the flow is being cancelled.
	if err := s.Hangup(context.WithoutCancel(ctx)); err != nil {
		lc.Fail(ctx)
		o.Metrics.Listener("failed")
		logger.Error().Err(err).Msg("listener hangup failed")
		return
	}
	o.advance(ctx, lc, app.EventHangup)
	o.Metrics.Listener(result)
	logger.Info().Str("result", result).Msg("listener done")
	o.Hub.Publish(domain.Event{
		Type:    domain.EventListenerFinished,
		Channel: sess.ID,
		Name:    sess.Name,
	})
}
