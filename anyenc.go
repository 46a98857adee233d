// Package anyenc provides composable encoders which map
// sequences of vectors to other sequences of vectors.
//
// Encoders range from the identity to recurrent,
// pyramidal and convolutional stacks.
// They can be chained with a ModularEncoder, and a
// SegmentingEncoder can learn to split its input into
// variable-length segments.
package anyenc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
)

// An Encoder transforms a sequence batch into another
// sequence batch.
type Encoder interface {
	// Transduce encodes the sequences in the batch.
	Transduce(in anyseq.Seq) anyseq.Seq

	// SetTrain switches the encoder and everything it owns
	// between training and evaluation mode.
	SetTrain(train bool)

	// ReinforceLoss computes an auxiliary loss term from a
	// scalar reward.
	// It returns nil if the encoder does not contribute a
	// reinforcement loss.
	ReinforceLoss(reward float64) anydiff.Res
}

// An Epocher is notified when a training epoch ends.
type Epocher interface {
	NewEpoch()
}

// BaseEncoder is an abstract Encoder.
//
// Embedding it provides the default ReinforceLoss.
// Its Transduce and SetTrain panic with an
// *UnimplementedError, so embedders must override them.
type BaseEncoder struct{}

// Transduce panics.
func (b BaseEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	panic(&UnimplementedError{Op: "Transduce", Type: "BaseEncoder"})
}

// SetTrain panics.
func (b BaseEncoder) SetTrain(train bool) {
	panic(&UnimplementedError{Op: "SetTrain", Type: "BaseEncoder"})
}

// ReinforceLoss returns nil.
func (b BaseEncoder) ReinforceLoss(reward float64) anydiff.Res {
	return nil
}
