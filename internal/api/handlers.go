// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/health"
	"github.com/ManuGH/adpod/internal/player"
)

// sessionCheck reports a finished session as degraded and an unreachable one as unhealthy.
func sessionCheck(session Session) func(context.Context) health.CheckResult {
	return func(ctx context.Context) health.CheckResult {
		snap, err := session.Status(ctx)
		switch {
		case err != nil:
			return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
		case snap.Finished:
			return health.CheckResult{Status: health.StatusDegraded, Message: "playback finished"}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: string(snap.Mode)}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Status(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAdBreaks(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Status(r.Context())
	if err != nil {
		writeServiceUnavailable(w, err)
		return
	}
	breaks := snap.Breaks
	if breaks == nil {
		breaks = []ads.Status{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"adBreaks": breaks})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, "pause", s.session.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, "resume", s.session.Resume)
}

func (s *Server) control(w http.ResponseWriter, r *http.Request, action string, fn func(context.Context) error) {
	err := fn(r.Context())
	switch {
	case errors.Is(err, player.ErrFinished):
		writeConflict(w, err)
		return
	case err != nil:
		writeServiceUnavailable(w, err)
		return
	}
	logger("api").Info().
		Str("event", "api.playback").
		Str("action", action).
		Msg("playback control applied")
	s.handleStatus(w, r)
}
