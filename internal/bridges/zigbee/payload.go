package zigbee

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// TransitionKey is the payload field carrying the fade time in seconds.
const TransitionKey = "transition"

// MaxTransitionSeconds is the longest transition a timer can represent.
const MaxTransitionSeconds = float64(math.MaxInt64 / int64(time.Second))

// Canned base states.
const (
	StateOn  = `{"state":"ON"}`
	StateOff = `{"state":"OFF"}`
)

// RGB is a color triple, one byte per channel.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// BrightnessState returns the base state for a brightness level.
func BrightnessState(level uint8) string {
	return fmt.Sprintf(`{"brightness":%d}`, level)
}

// ColorState returns the base state for an RGB color.
func ColorState(c RGB) string {
	return fmt.Sprintf(`{"color":{"r":%d,"g":%d,"b":%d}}`, c.R, c.G, c.B)
}

// BuildPayload merges a transition into a copy of base and returns the
// compact JSON text.
//
// base must be a JSON object. An existing transition field is overwritten in
// place; otherwise it is appended after the other keys. The transition must
// be a finite, non-negative number of seconds no greater than
// MaxTransitionSeconds.
//
// On any failure the error wraps ErrMalformedCommandPayload and the payload
// is empty.
func BuildPayload(base string, transitionSeconds float64) (string, error) {
	if math.IsNaN(transitionSeconds) || math.IsInf(transitionSeconds, 0) {
		return "", fmt.Errorf("%w: transition is not a finite number", ErrMalformedCommandPayload)
	}
	if transitionSeconds < 0 {
		return "", fmt.Errorf("%w: transition %v is negative", ErrMalformedCommandPayload, transitionSeconds)
	}
	if transitionSeconds > MaxTransitionSeconds {
		return "", fmt.Errorf("%w: transition %v exceeds %v seconds", ErrMalformedCommandPayload, transitionSeconds, MaxTransitionSeconds)
	}
	if transitionSeconds == 0 {
		transitionSeconds = 0 // normalise -0
	}

	if !gjson.Valid(base) {
		return "", fmt.Errorf("%w: base state is not valid JSON", ErrMalformedCommandPayload)
	}
	if !gjson.Parse(base).IsObject() {
		return "", fmt.Errorf("%w: base state is not a JSON object", ErrMalformedCommandPayload)
	}

	compact := string(pretty.Ugly([]byte(base)))

	payload, err := sjson.Set(compact, TransitionKey, transitionSeconds)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedCommandPayload, err)
	}

	return payload, nil
}

// ParseTransition coerces caller-supplied text to a transition in seconds.
// Empty text means 0.
func ParseTransition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: transition %q is not a number", ErrMalformedCommandPayload, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: transition %q must be a non-negative number", ErrMalformedCommandPayload, s)
	}
	if v > MaxTransitionSeconds {
		return 0, fmt.Errorf("%w: transition %q exceeds %v seconds", ErrMalformedCommandPayload, s, MaxTransitionSeconds)
	}
	return v, nil
}

// ValidateBrightnessState checks a caller-supplied brightness base state:
// a JSON object whose "brightness" is an integer 0-255.
func ValidateBrightnessState(state string) error {
	if err := requireObject(state); err != nil {
		return err
	}
	if !isByte(gjson.Get(state, "brightness")) {
		return fmt.Errorf("%w: brightness must be an integer 0-255", ErrMalformedCommandPayload)
	}
	return nil
}

// ValidateColorState checks a caller-supplied color base state: a JSON object
// whose "color" holds integer r, g and b channels 0-255.
func ValidateColorState(state string) error {
	if err := requireObject(state); err != nil {
		return err
	}
	channels := gjson.GetMany(state, "color.r", "color.g", "color.b")
	for i, ch := range channels {
		if !isByte(ch) {
			return fmt.Errorf("%w: color.%c must be an integer 0-255", ErrMalformedCommandPayload, "rgb"[i])
		}
	}
	return nil
}

func requireObject(state string) error {
	if !gjson.Valid(state) || !gjson.Parse(state).IsObject() {
		return fmt.Errorf("%w: base state is not a JSON object", ErrMalformedCommandPayload)
	}
	return nil
}

// isByte reports whether r is an integral JSON number in 0..255.
func isByte(r gjson.Result) bool {
	if r.Type != gjson.Number {
		return false
	}
	return r.Num == math.Trunc(r.Num) && r.Num >= 0 && r.Num <= 255
}
