// Package influxdb provides optional InfluxDB telemetry for Gray Logic Home.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched point writing, and health monitoring.
//
// # Purpose
//
// This package records time-series data for:
//   - Sensor readings (temperature, humidity, energy usage)
//   - Device link quality (signal strength, battery)
//   - Alert activations
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry is optional
//	}
//	defer client.Close()
//
//	client.WriteReading("temperature", "°C", 21.5, "simulation", time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
