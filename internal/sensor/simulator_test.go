package sensor

import (
	"math/rand"
	"testing"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

func testSignals() []Signal {
	return []Signal{
		{Name: Temperature, Initial: 21.5, Low: 15, High: 35, Drift: 0.4, Precision: 1},
		{Name: Humidity, Initial: 42, Low: 20, High: 80, Drift: 1, Precision: 0},
	}
}

func TestSimulator_StepKnownSignals(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1)), testSignals()...)

	readings := sim.Initial()
	for i := 0; i < 500; i++ {
		readings = sim.Step(readings)
		if v := readings[Temperature]; v < 15 || v > 35 {
			t.Fatalf("tick %d: temperature %v out of range", i, v)
		}
		if v := readings[Humidity]; v < 20 || v > 80 {
			t.Fatalf("tick %d: humidity %v out of range", i, v)
		}
	}
}

func TestSimulator_StepIgnoresUnknownAndMissing(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(1)), testSignals()...)

	next := sim.Step(map[string]float64{Temperature: 20, "pressure": 1013})
	if _, ok := next["pressure"]; ok {
		t.Error("unknown reading should not be stepped")
	}
	if _, ok := next[Humidity]; ok {
		t.Error("missing reading should not be produced")
	}
	if _, ok := next[Temperature]; !ok {
		t.Error("temperature should be stepped")
	}
}

func TestSimulator_Signals(t *testing.T) {
	sim := NewSimulator(fixedSource{0.5}, testSignals()...)

	sigs := sim.Signals()
	if len(sigs) != 2 {
		t.Fatalf("Signals() len = %d, want 2", len(sigs))
	}
	if sigs[0].Name != Humidity || sigs[1].Name != Temperature {
		t.Errorf("Signals() not sorted by name: %s, %s", sigs[0].Name, sigs[1].Name)
	}

	if _, ok := sim.Signal("pressure"); ok {
		t.Error("Signal(pressure) should not exist")
	}
	if sim.Source() == nil {
		t.Error("Source() returned nil")
	}
}

func TestSimulator_InitialClamped(t *testing.T) {
	sim := NewSimulator(fixedSource{0.5}, Signal{Name: "x", Initial: 500, Low: 0, High: 100})

	if got := sim.Initial()["x"]; got != 100 {
		t.Errorf("Initial()[x] = %v, want 100", got)
	}
}

func TestEnergySignals(t *testing.T) {
	sigs := EnergySignals(rand.New(rand.NewSource(3)))
	if len(sigs) != 3 {
		t.Fatalf("EnergySignals() len = %d, want 3", len(sigs))
	}
	for _, s := range sigs {
		if !s.Contains(s.Initial) {
			t.Errorf("%s initial %v outside [%v, %v]", s.Name, s.Initial, s.Low, s.High)
		}
	}
}

func TestFromConfig(t *testing.T) {
	sig := FromConfig(Temperature, config.SignalConfig{Initial: 21.5, Low: 15, High: 35, Drift: 0.4, Precision: 1})

	if sig.Name != Temperature || sig.Low != 15 || sig.High != 35 || sig.Precision != 1 {
		t.Errorf("FromConfig() = %+v", sig)
	}
}
