package mqtt

// Subscribe asks the broker for messages matching filter. Matching messages
// are delivered to the manager's message observers.
//
// Topics can include MQTT wildcards:
//   - + (single-level): "zigbee2mqtt/+/availability"
//   - # (multi-level): "zigbee2mqtt/#"
//
// Rejections are synchronous and produce no wire traffic: ErrNotConnected
// when the session is not Connected, ErrInvalidTopic for a malformed filter.
// Subscribing twice to the same filter issues two requests. Subscriptions
// are not restored when a new session is created.
func (g *Gateway) Subscribe(filter string, cb OutcomeFunc) error {
	conn, sessionID, ok := g.manager.connected()
	if !ok {
		return ErrNotConnected
	}
	if err := ValidateTopicFilter(filter); err != nil {
		return err
	}

	g.manager.getLogger().Debug("mqtt subscribe", "session_id", sessionID, "topic", filter)

	conn.Subscribe(filter, g.qos, func(err error) {
		g.complete(OpSubscribe, filter, cb, err)
	})
	return nil
}
