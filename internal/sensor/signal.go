package sensor

import "github.com/nerrad567/gray-logic-home/internal/infrastructure/config"

// Signal names used across the core.
const (
	Temperature  = "temperature"
	Humidity     = "humidity"
	DailyUsage   = "daily_usage"
	WeeklyTotal  = "weekly_total"
	MonthlyTotal = "monthly_total"
)

// Signal declares the bounds, drift and precision of one simulated reading.
type Signal struct {
	Name      string  `json:"name"`
	Initial   float64 `json:"initial"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Drift     float64 `json:"drift"`
	Precision int     `json:"precision"`
}

// Next advances current by one walk step within the signal's bounds.
func (s Signal) Next(src Source, current float64) float64 {
	return Step(src, current, s.Drift, s.Low, s.High, s.Precision)
}

// Clamp limits v to the signal's bounds and precision.
func (s Signal) Clamp(v float64) float64 {
	return Clamp(Round(Clamp(v, s.Low, s.High), s.Precision), s.Low, s.High)
}

// Contains reports whether v lies within the signal's bounds.
func (s Signal) Contains(v float64) bool {
	return v >= s.Low && v <= s.High
}

// FromConfig builds a Signal from its configuration block.
func FromConfig(name string, cfg config.SignalConfig) Signal {
	return Signal{
		Name:      name,
		Initial:   cfg.Initial,
		Low:       cfg.Low,
		High:      cfg.High,
		Drift:     cfg.Drift,
		Precision: cfg.Precision,
	}
}

// EnergySignals returns the household energy counters. Their initial values
// are drawn from src inside each signal's bounds.
func EnergySignals(src Source) []Signal {
	signals := []Signal{
		{Name: DailyUsage, Low: 8, High: 15, Drift: 0.2, Precision: 2},
		{Name: WeeklyTotal, Low: 50, High: 90, Drift: 0.5, Precision: 1},
		{Name: MonthlyTotal, Low: 180, High: 250, Drift: 1, Precision: 1},
	}
	for i := range signals {
		s := &signals[i]
		s.Initial = Round(s.Low+src.Float64()*(s.High-s.Low), s.Precision)
	}
	return signals
}
