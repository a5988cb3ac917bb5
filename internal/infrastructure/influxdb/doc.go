// Package influxdb writes device telemetry to an InfluxDB v2 server.
//
// The read-only parameters behave like sensors: direction of arrival,
// voice activity, RT60 estimates. Each poll tick lands as one point in
// the "telemetry" measurement so values sampled together stay aligned
// in queries.
//
//	client, err := influxdb.Connect(cfg.Telemetry.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSnapshot(values, time.Now())
//
// Writes are non-blocking and batched (batch_size, flush_interval in
// config.yaml); failed batches surface through SetOnError rather than
// as return values. All methods are safe for concurrent use.
package influxdb
