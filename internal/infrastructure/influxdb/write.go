package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParameter records one sampled parameter value. Non-blocking; the
// point joins the current batch.
//
//	client.WriteParameter("DOAANGLE", 135)
func (c *Client) WriteParameter(name string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"parameters",
		map[string]string{"name": name},
		map[string]any{"value": value},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSnapshot records a full read-only telemetry snapshot as a single
// point with one field per parameter. One point per tick keeps the
// series aligned, so queries can correlate values sampled together
// (DOAANGLE against VOICEACTIVITY, say).
func (c *Client) WriteSnapshot(values map[string]float64, timestamp time.Time) {
	if !c.IsConnected() || len(values) == 0 {
		return
	}

	fields := make(map[string]any, len(values))
	for name, v := range values {
		fields[name] = v
	}

	c.writeAPI.WritePoint(write.NewPoint("telemetry", nil, fields, timestamp))
}
