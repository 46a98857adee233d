package segment

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// A Composer turns the frames of a segment into a single
// segment vector.
type Composer int

const (
	// MeanComposer averages the frames.
	MeanComposer Composer = iota

	// SumComposer adds the frames.
	SumComposer

	// TailComposer uses the last frame.
	TailComposer
)

// ParseComposer parses a composer name, as returned by
// String.
func ParseComposer(name string) (Composer, error) {
	switch name {
	case "mean":
		return MeanComposer, nil
	case "sum":
		return SumComposer, nil
	case "tail":
		return TailComposer, nil
	default:
		return 0, fmt.Errorf("unknown composer: %s", name)
	}
}

// String returns "mean", "sum" or "tail".
func (c Composer) String() string {
	switch c {
	case MeanComposer:
		return "mean"
	case SumComposer:
		return "sum"
	case TailComposer:
		return "tail"
	default:
		return fmt.Sprintf("Composer(%d)", int(c))
	}
}

// Compose combines a non-empty list of frames.
func (c Composer) Compose(cr anyvec.Creator, frames []anydiff.Res) anydiff.Res {
	if len(frames) == 0 {
		panic("cannot compose an empty segment")
	}
	switch c {
	case TailComposer:
		return frames[len(frames)-1]
	case MeanComposer, SumComposer:
		sum := frames[0]
		for _, f := range frames[1:] {
			sum = anydiff.Add(sum, f)
		}
		if c == MeanComposer && len(frames) > 1 {
			sum = anydiff.Scale(sum, cr.MakeNumeric(1/float64(len(frames))))
		}
		return sum
	default:
		panic("unknown composer: " + c.String())
	}
}
