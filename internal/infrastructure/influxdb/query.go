package influxdb

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// maxHistoryWindow bounds how far back ReadingHistory may look.
const maxHistoryWindow = 7 * 24 * time.Hour

// readingNamePattern restricts reading names interpolated into Flux.
var readingNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ReadingPoint is one stored reading value.
type ReadingPoint struct {
	Time   time.Time `json:"time"`
	Value  float64   `json:"value"`
	Origin string    `json:"origin,omitempty"`
}

// ReadingHistory returns the stored values of one reading over the
// trailing window, oldest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - name: Reading name (e.g., "temperature")
//   - window: How far back to look; at most seven days
//
// Returns:
//   - []ReadingPoint: Values in time order
//   - error: ErrNotConnected, ErrInvalidQuery, or the query error
func (c *Client) ReadingHistory(ctx context.Context, name string, window time.Duration) ([]ReadingPoint, error) {
	if !c.IsConnected() || c.client == nil {
		return nil, ErrNotConnected
	}

	query, err := buildReadingQuery(c.bucket, c.siteID, name, window)
	if err != nil {
		return nil, err
	}

	result, err := c.client.QueryAPI(c.org).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying reading history: %w", err)
	}
	defer result.Close()

	var points []ReadingPoint
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			continue
		}
		origin, _ := record.ValueByKey("origin").(string) //nolint:errcheck // absent tag leaves origin empty
		points = append(points, ReadingPoint{
			Time:   record.Time(),
			Value:  value,
			Origin: origin,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading history result: %w", err)
	}

	return points, nil
}

// buildReadingQuery renders the Flux query for one reading's history.
func buildReadingQuery(bucket, siteID, name string, window time.Duration) (string, error) {
	if !readingNamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: reading name %q", ErrInvalidQuery, name)
	}
	if window <= 0 || window > maxHistoryWindow {
		return "", fmt.Errorf("%w: window %s not in (0, %s]", ErrInvalidQuery, window, maxHistoryWindow)
	}

	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: -%ds)
  |> filter(fn: (r) => r._measurement == %q and r._field == "value")
  |> filter(fn: (r) => r.site == %q and r.name == %q)
  |> sort(columns: ["_time"])`,
		bucket, int64(window.Seconds()), measurementReading, siteID, name), nil
}

// toFloat converts a Flux value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
