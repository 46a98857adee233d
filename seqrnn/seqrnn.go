// Package seqrnn implements the recurrent and
// convolutional sequence builders which do the actual
// computation behind anyenc encoders.
//
// Builders come in two shapes.
// A Transducer maps an input sequence straight to an
// output sequence.
// A Starter must first produce an initial state for a
// given batch size, and that state is then used to
// transduce the sequence.
package seqrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/serializer"
)

// A Transducer maps a sequence batch to another sequence
// batch.
type Transducer interface {
	Transduce(in anyseq.Seq) anyseq.Seq
}

// A Starter produces an initial state which can then
// transduce a sequence batch with n sequences.
type Starter interface {
	Start(n int) Transducer
}

// A Builder is a Transducer with learnable parameters and
// an adjustable dropout probability.
//
// Every builder in this package is a Builder.
type Builder interface {
	Transducer
	anynet.Parameterizer
	serializer.Serializer

	// SetDropout sets the probability with which inputs
	// to every layer are dropped.
	SetDropout(p float64)
}

// BatchSize returns the number of sequences in the batch,
// or 0 if the sequence has no timesteps.
func BatchSize(s anyseq.Seq) int {
	out := s.Output()
	if len(out) == 0 {
		return 0
	}
	return len(out[0].Present)
}

// AddSeqs adds two sequences with identical shapes
// timestep by timestep.
func AddSeqs(s1, s2 anyseq.Seq) anyseq.Seq {
	return anyseq.MapN(func(n int, v ...anydiff.Res) anydiff.Res {
		return anydiff.Add(v[0], v[1])
	}, s1, s2)
}
