// Package enctrain trains encoders with stochastic
// gradient descent.
//
// Each sample maps an input sequence to the desired
// output sequence of the encoder (optionally followed by
// an output layer).
// Encoders which produce a reinforcement loss can receive
// a reward computed from the supervised cost.
package enctrain

import (
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// A Sample is an input sequence with a corresponding
// desired output sequence.
//
// The output must have as many vectors as the encoder
// produces for the input.
// Trainers in CTC mode use Label instead of Output.
type Sample struct {
	Input  []anyvec.Vector
	Output []anyvec.Vector
	Label  []int
}

// A SampleList is an anysgd.SampleList that produces
// encoder samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
	Creator() anyvec.Creator
}

// A SliceSampleList is a SampleList with predetermined
// samples.
type SliceSampleList struct {
	C       anyvec.Creator
	Samples []*Sample
}

// Len returns the number of samples.
func (s *SliceSampleList) Len() int {
	return len(s.Samples)
}

// Swap swaps two samples.
func (s *SliceSampleList) Swap(i, j int) {
	s.Samples[i], s.Samples[j] = s.Samples[j], s.Samples[i]
}

// Slice copies a sub-slice of the list.
func (s *SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return &SliceSampleList{
		C:       s.C,
		Samples: append([]*Sample{}, s.Samples[i:j]...),
	}
}

// GetSample returns the sample at the index.
func (s *SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s.Samples[idx], nil
}

// Creator returns s.C.
func (s *SliceSampleList) Creator() anyvec.Creator {
	return s.C
}
