// Package mqtt is the broker side of the service. It publishes retained
// parameter state and telemetry snapshots under respeaker/, so Home
// Assistant or Node-RED can read microphone-array state without ever
// touching USB, and it accepts parameter writes on the command topics.
//
// The client auto-reconnects, resubscribes after a reconnect, and
// registers a Last Will so subscribers on respeaker/status learn about
// an unclean exit. TLS is available for non-local brokers.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Param("DOAANGLE")
//	client.PublishRetained(topic, []byte(`{"value":"135"}`))
//
// Topic layout lives in topics.go; payload formats in the telemetry
// package that drives this client.
package mqtt
