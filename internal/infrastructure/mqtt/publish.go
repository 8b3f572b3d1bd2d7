package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends payload to topic at the gateway's QoS, not retained.
//
// Rejections are synchronous and produce no wire traffic:
//   - ErrNotConnected when the session is not Connected
//   - ErrInvalidTopic for an empty topic or one containing wildcards
//   - ErrPayloadTooLarge above 1MB
//
// Otherwise the request is issued and nil is returned; the broker's verdict
// arrives later through cb as an Outcome whose Err matches ErrPublishFailed.
//
// Example:
//
//	err := gw.Publish("zigbee2mqtt/lamp-01/set", []byte(`{"state":"ON","transition":0}`),
//	    func(o mqtt.Outcome) { log.Println(o.OK()) })
func (g *Gateway) Publish(topic string, payload []byte, cb OutcomeFunc) error {
	conn, sessionID, ok := g.manager.connected()
	if !ok {
		return ErrNotConnected
	}
	if err := ValidatePublishTopic(topic); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrPayloadTooLarge, len(payload), maxPayloadSize)
	}

	g.manager.getLogger().Debug("mqtt publish",
		"session_id", sessionID,
		"topic", topic,
		"bytes", len(payload),
	)

	conn.Publish(topic, g.qos, payload, func(err error) {
		g.complete(OpPublish, topic, cb, err)
	})
	return nil
}
