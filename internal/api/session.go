package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pbel78/scratch2/internal/infrastructure/mqtt"
)

// disconnectWait bounds how long the disconnect handler waits for the
// transport to close before answering.
const disconnectWait = 5 * time.Second

// connectRequest is the body of POST /session/connect.
type connectRequest struct {
	URL        string `json:"url"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	SkipVerify bool   `json:"skip_verify"`
}

// sessionResponse describes the current session.
type sessionResponse struct {
	State   mqtt.State        `json:"state"`
	Session *mqtt.SessionInfo `json:"session,omitempty"`
}

func (s *Server) currentSession() sessionResponse {
	resp := sessionResponse{State: s.sessions.State()}
	if info, ok := s.sessions.Session(); ok {
		resp.Session = &info
	}
	return resp
}

// handleGetSession returns the session state and details.
func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSession())
}

// handleConnect starts a new session. The answer is 202: completion is
// observed through the session state, not this call.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	err := s.sessions.Connect(
		mqtt.Target{URL: req.URL, SkipVerify: req.SkipVerify},
		mqtt.Credentials{Username: req.Username, Password: req.Password},
	)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, s.currentSession())
}

// handleDisconnect closes the session and waits briefly for it to finish.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	done := make(chan struct{})
	s.sessions.Disconnect(func() { close(done) })

	timer := time.NewTimer(disconnectWait)
	defer timer.Stop()

	select {
	case <-done:
		writeJSON(w, http.StatusOK, s.currentSession())
	case <-timer.C:
		writeJSON(w, http.StatusAccepted, s.currentSession())
	case <-r.Context().Done():
	}
}
