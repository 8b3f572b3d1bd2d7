package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pbel78/scratch2/internal/bridges/zigbee"
	"github.com/pbel78/scratch2/internal/command"
)

// commandSource tags commands issued through the HTTP API.
const commandSource = "api"

// lampRequest is the body of the lamp endpoints. Brightness and color may be
// given as a raw value, a preset name, or a serialized state; exactly one
// of them applies to the matching endpoint.
type lampRequest struct {
	Transition float64     `json:"transition"`
	Brightness *uint8      `json:"brightness,omitempty"`
	Color      *zigbee.RGB `json:"color,omitempty"`
	Preset     string      `json:"preset,omitempty"`
	State      string      `json:"state,omitempty"`
}

// resultResponse reports a dispatched command.
type resultResponse struct {
	Status    command.Status `json:"status"`
	CommandID string         `json:"command_id"`
	Action    command.Action `json:"action"`
	DeviceID  string         `json:"device_id,omitempty"`
	Topic     string         `json:"topic,omitempty"`
	Payload   string         `json:"payload,omitempty"`
	Pending   bool           `json:"pending,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (s *Server) handlePowerOn(w http.ResponseWriter, r *http.Request) {
	s.handleLamp(w, r, command.ActionPowerOn)
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	s.handleLamp(w, r, command.ActionPowerOff)
}

func (s *Server) handleBrightness(w http.ResponseWriter, r *http.Request) {
	s.handleLamp(w, r, command.ActionSetBrightness)
}

func (s *Server) handleColor(w http.ResponseWriter, r *http.Request) {
	s.handleLamp(w, r, command.ActionSetColor)
}

// lampID returns the decoded device id. chi matches on RawPath when it is
// set, so the parameter is still escaped only in that case.
func lampID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		return unescaped
	}
	return id
}

// handleLamp decodes the body, dispatches the command and reports the result.
func (s *Server) handleLamp(w http.ResponseWriter, r *http.Request, action command.Action) {
	deviceID := lampID(r)

	var req lampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	param, err := lampParameter(action, req)
	if err != nil {
		writeFailure(w, err)
		return
	}

	res := s.commands.Dispatch(command.Command{
		DeviceID:          deviceID,
		Action:            action,
		Parameter:         param,
		TransitionSeconds: req.Transition,
		Source:            commandSource,
	})
	s.writeResult(w, res)
}

// lampParameter resolves the base state for the set actions.
func lampParameter(action command.Action, req lampRequest) (string, error) {
	switch action {
	case command.ActionSetBrightness:
		switch {
		case req.Brightness != nil:
			return zigbee.BrightnessState(*req.Brightness), nil
		case req.Preset != "":
			return zigbee.BrightnessPreset(req.Preset)
		case req.State != "":
			return req.State, nil
		}
		return "", fmt.Errorf("%w: one of brightness, preset or state is required", command.ErrInvalidCommand)
	case command.ActionSetColor:
		switch {
		case req.Color != nil:
			return zigbee.ColorState(*req.Color), nil
		case req.Preset != "":
			return zigbee.ColorPreset(req.Preset)
		case req.State != "":
			return req.State, nil
		}
		return "", fmt.Errorf("%w: one of color, preset or state is required", command.ErrInvalidCommand)
	default:
		return "", nil
	}
}

// writeResult waits briefly for the broker's verdict and writes the result.
// A result still pending after the wait is reported as Sent with pending set.
func (s *Server) writeResult(w http.ResponseWriter, res command.Result) {
	res = res.Await(s.outcomeWait)

	resp := resultResponse{
		Status:    res.Status,
		CommandID: res.CommandID,
		Action:    res.Action,
		DeviceID:  res.DeviceID,
		Topic:     res.Topic,
		Payload:   res.Payload,
		Pending:   res.Outcome != nil,
	}
	status := http.StatusOK
	if res.Err != nil {
		resp.Error = res.Err.Error()
		status, _ = httpStatusFor(res.Err)
	}
	writeJSON(w, status, resp)
}
