package influxdb

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/pbel78/scratch2/internal/command"
)

// Measurement names.
const (
	measurementCommands     = "commands"
	measurementMessages     = "mqtt_messages"
	measurementSessionState = "session_state"
)

// WriteCommand records one dispatched command.
func (c *Client) WriteCommand(rec command.Record) {
	tags := map[string]string{
		"action": string(rec.Action),
		"status": string(rec.Status),
	}
	if rec.DeviceID != "" {
		tags["device_id"] = rec.DeviceID
	}
	if rec.Source != "" {
		tags["source"] = rec.Source
	}

	fields := map[string]any{
		"count":         1,
		"payload_bytes": len(rec.Payload),
	}
	if rec.Error != "" {
		fields["error"] = rec.Error
	}

	at := rec.At
	if at.IsZero() && c != nil {
		at = c.now()
	}
	c.writePoint(measurementCommands, tags, fields, at)
}

// RecordCommand lets the client sit in the dispatcher's recorder list.
func (c *Client) RecordCommand(_ context.Context, rec command.Record) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	c.WriteCommand(rec)
	return nil
}

// WriteMessage records an inbound broker message by topic and size.
func (c *Client) WriteMessage(topic string, payload []byte) {
	c.writePoint(measurementMessages,
		map[string]string{"topic": topic},
		map[string]any{"count": 1, "bytes": len(payload)},
		time.Time{},
	)
}

// WriteSessionState records a session state transition.
func (c *Client) WriteSessionState(sessionID, from, to string) {
	c.writePoint(measurementSessionState,
		map[string]string{"state": to},
		map[string]any{"from": from, "session_id": sessionID},
		time.Time{},
	)
}

// writePoint drops the point when the client is nil or closed. A zero
// timestamp means now.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	if at.IsZero() {
		at = c.now()
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
