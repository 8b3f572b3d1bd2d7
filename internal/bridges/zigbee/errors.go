package zigbee

import "errors"

// Domain errors for the zigbee codec.
var (
	// ErrMalformedCommandPayload is returned when a device identifier, base
	// state, or transition cannot be turned into a command message. Nothing
	// should be published on this path.
	ErrMalformedCommandPayload = errors.New("zigbee: malformed command payload")

	// ErrUnknownPreset is returned when a brightness or color preset name is
	// not part of the vocabulary.
	ErrUnknownPreset = errors.New("zigbee: unknown preset")
)
