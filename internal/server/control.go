package server

import (
	"encoding/json"
	"net/http"

	"simtrade/internal/replay"
)

type replayStatusResponse struct {
	Success bool `json:"success"`
	replay.Status
}

// replayOnly guards the control surface. In live mode there is no clock
// to steer, so controls answer 409.
func (s *Server) replayOnly(w http.ResponseWriter) bool {
	if s.clock == nil {
		writeJSON(w, http.StatusConflict, envelope{
			"success": false,
			"error":   "live_mode",
			"message": "replay controls are disabled in live mode",
		})
		return false
	}
	return true
}

func (s *Server) handleReplayStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	if !s.replayOnly(w) {
		return
	}
	writeJSON(w, http.StatusOK, replayStatusResponse{Success: true, Status: s.clock.Status()})
}

func (s *Server) handleReplayPause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !s.replayOnly(w) {
		return
	}
	s.clock.Pause()
	writeJSON(w, http.StatusOK, replayStatusResponse{Success: true, Status: s.clock.Status()})
}

func (s *Server) handleReplayResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !s.replayOnly(w) {
		return
	}
	s.clock.Resume()
	writeJSON(w, http.StatusOK, replayStatusResponse{Success: true, Status: s.clock.Status()})
}

func (s *Server) handleReplaySpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !s.replayOnly(w) {
		return
	}
	var body struct {
		MsPerDay int64 `json:"msPerDay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if err := s.clock.SetSpeed(body.MsPerDay); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replayStatusResponse{Success: true, Status: s.clock.Status()})
}

func (s *Server) handleReplaySeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !s.replayOnly(w) {
		return
	}
	var body struct {
		Date  string `json:"date"`
		Index *int   `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}

	var err error
	switch {
	case body.Date != "":
		err = s.clock.SeekDate(body.Date)
	case body.Index != nil:
		err = s.clock.Seek(*body.Index)
	default:
		writeBadRequest(w, "seek requires a date or an index")
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replayStatusResponse{Success: true, Status: s.clock.Status()})
}
