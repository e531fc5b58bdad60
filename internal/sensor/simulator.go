package sensor

import "sort"

// Simulator advances a fixed set of named signals. It holds no reading
// values itself: the caller passes the current readings in and applies the
// returned values through its own mutation path.
type Simulator struct {
	src     Source
	signals map[string]Signal
	order   []string
}

// NewSimulator creates a simulator over the given signals. Later signals
// with a duplicate name replace earlier ones.
func NewSimulator(src Source, signals ...Signal) *Simulator {
	s := &Simulator{
		src:     src,
		signals: make(map[string]Signal, len(signals)),
	}
	for _, sig := range signals {
		if _, exists := s.signals[sig.Name]; !exists {
			s.order = append(s.order, sig.Name)
		}
		s.signals[sig.Name] = sig
	}
	sort.Strings(s.order)
	return s
}

// Source returns the simulator's random source so other simulated
// components can share one seed.
func (s *Simulator) Source() Source {
	return s.src
}

// Signal returns the named signal definition.
func (s *Simulator) Signal(name string) (Signal, bool) {
	sig, ok := s.signals[name]
	return sig, ok
}

// Signals returns all signal definitions sorted by name.
func (s *Simulator) Signals() []Signal {
	out := make([]Signal, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.signals[name])
	}
	return out
}

// Initial returns the starting value of every signal.
func (s *Simulator) Initial() map[string]float64 {
	out := make(map[string]float64, len(s.signals))
	for name, sig := range s.signals {
		out[name] = sig.Clamp(sig.Initial)
	}
	return out
}

// Step advances every known signal present in current by one walk step.
// Readings with no matching signal are ignored. Signals are stepped in
// name order so a seeded source yields reproducible results.
func (s *Simulator) Step(current map[string]float64) map[string]float64 {
	next := make(map[string]float64, len(current))
	for _, name := range s.order {
		v, ok := current[name]
		if !ok {
			continue
		}
		next[name] = s.signals[name].Next(s.src, v)
	}
	return next
}
