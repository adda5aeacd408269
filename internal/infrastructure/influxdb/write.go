package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// RecordEvent counts a broker event for telemetry. Writes are non-blocking;
// points are batched and sent asynchronously.
//
// Measurement: broker_events, tagged by event name, value 1 per occurrence.
func (c *Client) RecordEvent(event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"broker_events",
		map[string]string{
			"event": event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// RecordSessionCount gauges the number of live sessions after a lifecycle
// change.
func (c *Client) RecordSessionCount(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sessions",
		nil,
		map[string]interface{}{
			"live": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
