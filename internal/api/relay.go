package api

import (
	"encoding/json"
	"net/http"
)

// publishRequest is the body of POST /mqtt/publish.
type publishRequest struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// subscribeRequest is the body of POST /mqtt/subscribe.
type subscribeRequest struct {
	Topic string `json:"topic"`
}

// handlePublish relays a raw message to the broker.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.writeResult(w, s.commands.Send(req.Topic, req.Message))
}

// handleSubscribe asks the broker for messages on a filter. Messages are
// relayed on the mqtt.message WebSocket channel.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.writeResult(w, s.commands.Subscribe(req.Topic))
}
