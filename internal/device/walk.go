package device

import "math/rand/v2"

// walkStep bounds how far one reading moves from the previous one.
const walkStep = 0.05

// Walk is a bounded random walk in [0, 1] that looks like a slowly
// drifting gas reading. It is not safe for concurrent use.
type Walk struct {
	rng   *rand.Rand
	value float64
}

// NewWalk starts a walk at start, clamped to [0, 1]. A zero seed picks a
// random one; a zero start begins at 0.5.
func NewWalk(seed uint64, start float64) *Walk {
	if seed == 0 {
		seed = rand.Uint64()
	}
	if start == 0 {
		start = 0.5
	}
	return &Walk{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		value: clamp(start),
	}
}

// Next advances the walk by at most walkStep and returns the new value.
func (w *Walk) Next() float64 {
	w.value = clamp(w.value + (w.rng.Float64()*2-1)*walkStep)
	return w.value
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
