// Package mqtt publishes connection command messages to the MQTT broker the
// edge gateways listen on.
//
// Connectors on a gateway subscribe to per-connection topics; the
// orchestrator publishes job messages (start, stop, push, pull) and info
// messages there. This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees and context-bounded waits
//   - Last Will and Testament so subscribers can see the service go offline
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, "graylogic/edge/job/filler", payload)
package mqtt
