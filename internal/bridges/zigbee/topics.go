package zigbee

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Topic defaults used by zigbee2mqtt.
const (
	DefaultNamespace = "zigbee2mqtt"
	DefaultSuffix    = "set"

	// maxDeviceIDLength caps a device identifier in bytes.
	maxDeviceIDLength = 256
)

// Topics derives command topics for one gateway installation.
type Topics struct {
	Namespace string
	Suffix    string
}

// DefaultTopics returns the zigbee2mqtt default layout.
func DefaultTopics() Topics {
	return Topics{Namespace: DefaultNamespace, Suffix: DefaultSuffix}
}

// Command returns the topic for sending a command to deviceID:
// <namespace>/<deviceID>/<suffix>.
//
// The same input always yields the same topic.
func (t Topics) Command(deviceID string) (string, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return "", err
	}
	return t.namespace() + "/" + deviceID + "/" + t.suffix(), nil
}

// Device returns the topic zigbee2mqtt publishes deviceID's state on.
func (t Topics) Device(deviceID string) (string, error) {
	if err := ValidateDeviceID(deviceID); err != nil {
		return "", err
	}
	return t.namespace() + "/" + deviceID, nil
}

// AllDevices returns a filter matching every device state topic.
func (t Topics) AllDevices() string {
	return t.namespace() + "/+"
}

func (t Topics) namespace() string {
	if t.Namespace == "" {
		return DefaultNamespace
	}
	return t.Namespace
}

func (t Topics) suffix() string {
	if t.Suffix == "" {
		return DefaultSuffix
	}
	return t.Suffix
}

// ValidateDeviceID checks that id can be used as a single MQTT topic level.
//
// Rules:
//   - not empty, at most 256 bytes, valid UTF-8
//   - no '/', '+' or '#'
//   - no control characters (including NUL)
//
// Spaces are allowed; zigbee2mqtt friendly names often contain them.
func ValidateDeviceID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: device id is empty", ErrMalformedCommandPayload)
	}
	if len(id) > maxDeviceIDLength {
		return fmt.Errorf("%w: device id exceeds %d bytes", ErrMalformedCommandPayload, maxDeviceIDLength)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: device id is not valid UTF-8", ErrMalformedCommandPayload)
	}
	if i := strings.IndexAny(id, "/+#"); i >= 0 {
		return fmt.Errorf("%w: device id %q contains reserved character %q", ErrMalformedCommandPayload, id, id[i])
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: device id %q contains a control character", ErrMalformedCommandPayload, id)
		}
	}
	return nil
}
