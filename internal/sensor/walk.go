package sensor

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source is the random source consumed by the walk and by other simulated
// components. *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64

	// Intn returns a pseudo-random number in [0, n). It panics if n <= 0.
	Intn(n int) int
}

// Step returns the next value of a bounded signal.
//
// A perturbation is drawn uniformly from [-drift, +drift] and added to
// current. The result is clamped to [low, high] and rounded to precision
// decimal places. The returned value always lies within [low, high], even
// when current is already out of range or the bounds are not multiples of
// the precision.
func Step(src Source, current, drift, low, high float64, precision int) float64 {
	if low > high {
		low, high = high, low
	}
	perturbation := (src.Float64()*2 - 1) * math.Abs(drift)
	return Clamp(Round(Clamp(current+perturbation, low, high), precision), low, high)
}

// Clamp limits v to [low, high]. NaN collapses to low.
func Clamp(v, low, high float64) float64 {
	if math.IsNaN(v) || v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// Round rounds v to the given number of decimal places. Negative precision
// is treated as zero.
func Round(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// NewSource returns a seeded source. A zero seed derives one from the clock.
func NewSource(seed int64) *LockedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedSource{rnd: rand.New(rand.NewSource(seed))} //nolint:gosec // simulation, not security
}

// LockedSource serialises access to a *rand.Rand so one source can be shared
// between the tick loop and request handlers.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// Float64 implements Source.
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Intn implements Source.
func (s *LockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}
