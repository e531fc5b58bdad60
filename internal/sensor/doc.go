// Package sensor simulates the drifting physical environment of the home.
//
// Every simulated signal (temperature, humidity, energy counters, radio
// signal strength) advances by a clamped random walk: a perturbation drawn
// uniformly from [-drift, +drift] is added to the previous value, the result
// is clamped to the signal's bounds and rounded to its declared precision.
//
// Step is a pure function of its inputs and the injected Source. Tests seed
// the source so walks are reproducible:
//
//	src := rand.New(rand.NewSource(42))
//	next := sensor.Step(src, 21.5, 0.4, 15, 35, 1)
//
// The package never sleeps or starts goroutines. The host process decides
// when to tick.
package sensor
