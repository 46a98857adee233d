package seqrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
)

// A DownsampleMethod determines how consecutive frames
// are merged when a sequence is downsampled.
type DownsampleMethod int

const (
	// Skip keeps the first frame of every group and drops
	// the rest.
	Skip DownsampleMethod = iota

	// Concat concatenates the frames in every group,
	// padding the last group with zeros.
	Concat
)

// ParseDownsampleMethod parses the name of a method, as
// produced by String.
func ParseDownsampleMethod(name string) (DownsampleMethod, error) {
	switch name {
	case "skip":
		return Skip, nil
	case "concat":
		return Concat, nil
	default:
		return 0, fmt.Errorf("unknown downsampling method: %s", name)
	}
}

// String returns "skip" or "concat".
func (d DownsampleMethod) String() string {
	switch d {
	case Skip:
		return "skip"
	case Concat:
		return "concat"
	default:
		return fmt.Sprintf("DownsampleMethod(%d)", int(d))
	}
}

// OutputSize returns the size of a downsampled frame,
// given the size of an input frame.
func (d DownsampleMethod) OutputSize(inSize, factor int) int {
	if d == Concat {
		return inSize * factor
	}
	return inSize
}

// Downsample reduces the length of every sequence in the
// batch by the given factor.
// A sequence of length L becomes ceil(L/factor) frames
// long.
func Downsample(in anyseq.Seq, factor int, method DownsampleMethod) anyseq.Seq {
	if factor < 1 {
		panic("invalid downsampling factor")
	}
	if factor == 1 {
		return in
	}
	c := in.Creator()
	return PerSeq(in, func(seqs [][]anydiff.Res) [][]anydiff.Res {
		res := make([][]anydiff.Res, len(seqs))
		for i, frames := range seqs {
			for start := 0; start < len(frames); start += factor {
				switch method {
				case Skip:
					res[i] = append(res[i], frames[start])
				case Concat:
					end := start + factor
					if end > len(frames) {
						end = len(frames)
					}
					group := append([]anydiff.Res{}, frames[start:end]...)
					if missing := factor - len(group); missing > 0 {
						padSize := missing * frames[start].Output().Len()
						group = append(group, anydiff.NewConst(c.MakeVector(padSize)))
					}
					res[i] = append(res[i], anydiff.Concat(group...))
				default:
					panic("unknown downsampling method: " + method.String())
				}
			}
		}
		return res
	})
}
