// Package influxdb records bridge telemetry in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library and writes three
// measurements:
//
//	commands        one point per dispatched command (action, status, device)
//	mqtt_messages   one point per inbound broker message (topic, bytes)
//	session_state   one point per session state transition
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    client = nil // every write method is nil-safe
//	}
//	defer client.Close()
//
//	dispatcher.AddRecorder(client)
//
// Writes are batched according to batch_size and flush_interval. Async write
// failures are delivered to the SetOnError callback.
package influxdb
