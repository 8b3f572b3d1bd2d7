// Package api provides the HTTP command source and WebSocket relay for the
// bridge.
//
// Routes live under /api/v1: session control, lamp commands, raw MQTT
// publish/subscribe, command history, the preset vocabulary, health and
// metrics. The WebSocket endpoint streams inbound MQTT messages, session
// state changes and settled transitions to subscribed clients.
//
// An optional handler, the control page, is mounted at "/".
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
