package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementReading = "reading"
	measurementDevice  = "device"
	measurementAlert   = "alert"
)

// WriteReading records one sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - name: Reading name (e.g., "temperature", "daily_usage")
//   - unit: Display unit, tagged when non-empty
//   - value: The numeric value
//   - origin: Which source produced the value ("simulation", "broker", ...)
//   - at: Observation time
//
// Example:
//
//	client.WriteReading("temperature", "°C", 21.5, "simulation", time.Now())
func (c *Client) WriteReading(name, unit string, value float64, origin string, at time.Time) {
	tags := map[string]string{
		"name":   name,
		"origin": origin,
	}
	if unit != "" {
		tags["unit"] = unit
	}
	c.writePoint(measurementReading, tags, map[string]interface{}{"value": value}, at)
}

// WriteDeviceSignal records a catalog device's link quality.
//
// Parameters:
//   - deviceID: Device identifier (e.g., "camera_backyard")
//   - connected: Whether the device is online
//   - signal: Signal strength percentage
//   - battery: Battery percentage, or nil for mains-powered devices
//   - at: Observation time
func (c *Client) WriteDeviceSignal(deviceID string, connected bool, signal int, battery *int, at time.Time) {
	fields := map[string]interface{}{
		"connected":       connected,
		"signal_strength": signal,
	}
	if battery != nil {
		fields["battery_percent"] = *battery
	}
	c.writePoint(measurementDevice, map[string]string{"device_id": deviceID}, fields, at)
}

// WriteAlert records that an alert became active.
func (c *Client) WriteAlert(key, message string, at time.Time) {
	c.writePoint(measurementAlert, map[string]string{"key": key}, map[string]interface{}{"message": message}, at)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//   - at: The time for this data point
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	c.writePoint(measurement, tags, fields, at)
}

// writePoint adds the site tag and queues the point. It is a no-op when
// the client is not connected.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}, at time.Time) {
	if !c.IsConnected() || c.writer == nil {
		return
	}

	if c.siteID != "" {
		if tags == nil {
			tags = make(map[string]string, 1)
		}
		tags["site"] = c.siteID
	}

	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
