package session

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/device"
)

// signalJitter is the largest per-tick change of a device's signal.
const signalJitter = 2

// Tick advances every simulated signal one step and jitters the signal
// strength of connected catalog devices. Each step reads and writes the
// device state in one mutation, so a broker or operator update is never
// overwritten by a value derived from the state before it. Temperature
// alerts are raised by the device state as readings cross their threshold.
func (s *Session) Tick() {
	s.state.AdvanceReadings(s.sim.Step, device.OriginSimulation)

	s.state.AdjustSignals(func(_ string, signal int) int {
		signal += s.src.Intn(2*signalJitter+1) - signalJitter
		return max(1, min(100, signal))
	}, device.OriginSimulation)
}

// Run calls Tick every interval until ctx is cancelled.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("simulation started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
