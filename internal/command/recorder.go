package command

import (
	"context"
	"time"
)

// Record is what a Recorder receives once a command's fate is known: after
// the broker's outcome, or straight away for a rejected command.
type Record struct {
	CommandID string
	SessionID string
	Action    Action
	DeviceID  string
	Topic     string
	Payload   string
	Status    Status
	Error     string
	Source    string
	At        time.Time
}

// Recorder stores or forwards command records (history log, telemetry).
//
// RecordCommand is called on the goroutine that reported the outcome and
// should return quickly.
type Recorder interface {
	RecordCommand(ctx context.Context, rec Record) error
}
