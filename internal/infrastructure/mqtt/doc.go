// Package mqtt owns the bridge's broker session and the publish/subscribe
// gateway on top of it.
//
// This package manages:
//   - One session at a time, driven by an explicit state machine
//   - Transport events (connect, error, close, reconnect, message) as a
//     closed set of Event variants
//   - Publish and subscribe with per-call outcome reporting
//   - A substitutable transport (Dialer/Conn) with a paho implementation
//
// # States
//
//	Disconnected -> Connecting -> Connected
//	Connected    -> Reconnecting -> Connected | Disconnected
//	any          -> Closed (terminal for that session instance)
//
// A connect request always creates a new session instance. An error or close
// event releases the transport handle and leaves the session Disconnected;
// there is no automatic retry of a failed connect.
//
// # Delivery
//
// Publish and subscribe are only issued while Connected. Otherwise they fail
// synchronously with ErrNotConnected and nothing reaches the wire. Commands
// are never queued. QoS comes from config and defaults to 0 (at most once).
//
// # Usage
//
//	manager := mqtt.NewPahoManager(cfg.MQTT, logger)
//	manager.OnMessage(func(topic string, payload []byte) { ... })
//	if err := manager.Connect(mqtt.Target{URL: "wss://myserver:8883"}, creds); err != nil {
//	    return err
//	}
//
//	gw, _ := mqtt.NewGateway(manager, cfg.MQTT.QoS)
//	err := gw.Publish("zigbee2mqtt/lamp-01/set", payload, func(o mqtt.Outcome) { ... })
package mqtt
