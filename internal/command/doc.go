// Package command turns lamp commands into zigbee2mqtt messages and sends
// them through the MQTT gateway.
//
// The Dispatcher is the single entry point for every command source (HTTP
// API, CLI). Each call returns a Result immediately:
//
//   - StatusSent when the publish was issued; the broker's verdict arrives
//     later on Result.Outcome
//   - StatusError when the command was rejected before reaching the wire
//     (invalid command, malformed payload, not connected)
//
// Nothing blocks for a lamp's transition time. When a command with a
// transition is acknowledged, a timer fires TransitionObservers once the
// fade should have finished.
package command
