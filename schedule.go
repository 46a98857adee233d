package anyenc

import (
	"fmt"
	"math"
)

// A Phase is a stage of a curriculum Schedule.
type Phase int

const (
	Warmup Phase = iota
	Ramping
	Saturated
)

// String returns the name of the phase.
func (p Phase) String() string {
	switch p {
	case Warmup:
		return "warmup"
	case Ramping:
		return "ramping"
	case Saturated:
		return "saturated"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// A Schedule determines the weight of a reinforcement loss
// as a function of the number of completed epochs.
//
// For the first Before epochs, the weight stays at Start.
// After that, it grows exponentially and is clamped to
// [Min, Max].
type Schedule struct {
	Start  float64
	Before int
	Min    float64
	Max    float64
}

// Weight computes the weight after the given number of
// epochs.
func (s Schedule) Weight(epoch int) float64 {
	if epoch < s.Before {
		return s.Start
	}
	w := 1e-3 * (2 * (math.Pow(2, float64(epoch-s.Before)) - 1))
	return math.Max(s.Min, math.Min(s.Max, w))
}

// Phase determines the phase of the schedule after the
// given number of epochs.
func (s Schedule) Phase(epoch int) Phase {
	if epoch < s.Before {
		return Warmup
	}
	if s.Weight(epoch) >= s.Max {
		return Saturated
	}
	return Ramping
}
