package anyenc

import (
	"fmt"

	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc/seqrnn"
)

// DelegateKind identifies the calling convention of a
// Delegate.
type DelegateKind int

const (
	NoDelegate DelegateKind = iota
	DirectKind
	StatefulKind
)

// A Delegate wraps the builder which does the actual work
// for a BuilderEncoder.
//
// A direct delegate transduces sequences itself.
// A stateful delegate must first be started for a batch
// size, and the resulting state transduces the sequence.
// The zero Delegate has neither kind.
type Delegate struct {
	Kind     DelegateKind
	Direct   seqrnn.Transducer
	Stateful seqrnn.Starter
}

// DirectDelegate creates a direct Delegate.
func DirectDelegate(t seqrnn.Transducer) Delegate {
	return Delegate{Kind: DirectKind, Direct: t}
}

// StatefulDelegate creates a stateful Delegate.
func StatefulDelegate(s seqrnn.Starter) Delegate {
	return Delegate{Kind: StatefulKind, Stateful: s}
}

// String returns a short description of the delegate.
func (d Delegate) String() string {
	switch d.Kind {
	case DirectKind:
		return fmt.Sprintf("direct(%T)", d.Direct)
	case StatefulKind:
		return fmt.Sprintf("stateful(%T)", d.Stateful)
	default:
		return "none"
	}
}

// BuilderEncoder implements Transduce on top of a
// Delegate.
//
// It does not implement SetTrain, since only the owner of
// the builder knows how to configure it.
type BuilderEncoder struct {
	BaseEncoder
	Delegate Delegate
}

// Transduce runs the delegate on the batch.
//
// It panics with an *UnimplementedError if the delegate
// has neither kind.
// The result is never a sequence without a creator: an
// empty result is replaced with an empty sequence that
// uses the input's creator.
func (b *BuilderEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	var out anyseq.Seq
	switch b.Delegate.Kind {
	case DirectKind:
		if len(in.Output()) == 0 {
			return emptySeq(in)
		}
		out = b.Delegate.Direct.Transduce(in)
	case StatefulKind:
		if len(in.Output()) == 0 {
			return emptySeq(in)
		}
		out = b.Delegate.Stateful.Start(seqrnn.BatchSize(in)).Transduce(in)
	default:
		panic(&UnimplementedError{Op: "Transduce", Type: b.Delegate.String()})
	}
	if out == nil || len(out.Output()) == 0 {
		return emptySeq(in)
	}
	return out
}

func emptySeq(in anyseq.Seq) anyseq.Seq {
	return anyseq.ConstSeqList(in.Creator(), nil)
}
