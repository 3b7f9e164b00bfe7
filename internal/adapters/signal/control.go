package signal

import (
	"context"

	"github.com/dkeye/confdemo/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

// handleSnapshot answers with the live bridge membership.
func (ctl *SignalWSController) handleSnapshot(ctx context.Context, conn *WsSignalConn) {
	conf, ok, err := ctl.Conference.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("conference snapshot")
		ctl.sendError(conn, "platform_error")
		return
	}
	resp := struct {
		Type       string             `json:"type"`
		Conference *domain.Conference `json:"conference"`
	}{
		Type: "conference",
	}
	if ok {
		resp.Conference = &conf
	}
	ctl.sendJSON(conn, resp)
}
