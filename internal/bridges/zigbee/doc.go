// Package zigbee builds the MQTT messages a zigbee2mqtt gateway understands.
//
// It is pure: no I/O, no state. Callers get a topic and a payload and hand
// them to the publish gateway.
//
// # Topics
//
// Commands go to <namespace>/<device>/<suffix>, by default
// zigbee2mqtt/<friendly name>/set. The device identifier is checked against
// the MQTT topic grammar first; it may contain spaces but no level
// separators or wildcards.
//
//	topic, err := zigbee.DefaultTopics().Command("Wohnzimmer QRB111 01")
//	// "zigbee2mqtt/Wohnzimmer QRB111 01/set"
//
// # Payloads
//
// A payload is a JSON object describing the target state plus a numeric
// "transition" in seconds:
//
//	payload, err := zigbee.BuildPayload(zigbee.StateOn, 0)
//	// {"state":"ON","transition":0}
//
//	payload, err = zigbee.BuildPayload(`{"brightness":128}`, 3)
//	// {"brightness":128,"transition":3}
//
// Key order of the base object is preserved. Anything that is not a JSON
// object fails with ErrMalformedCommandPayload and no payload.
package zigbee
