// Package influxdb provides InfluxDB connectivity for Gray Logic Edge.
//
// It wraps the official influxdb-client-go v2 library. The only data written
// is the orchestrator's anonymous usage metrics: UsageSender turns each event
// into one point in the "usage" measurement and writes it synchronously.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	sender := influxdb.NewUsageSender(client, cfg.Metrics)
//	_ = sender.SendAnonymous(ctx, map[string]string{"event": "provision"}, id)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
