// Package segment implements a learned segmentation of
// embedded sequences.
//
// A Policy decides, for every frame, whether the current
// segment ends at that frame.
// The decisions are trained with REINFORCE, while the
// composed segment vectors pass gradients back to the
// embedder.
package segment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc/seqrnn"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Policy
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePolicy)
}

// Policy is a boundary policy with a segment Composer.
//
// The network maps a frame to two log-probabilities: the
// first for continuing the segment and the second for
// ending it.
// The network sees a constant copy of every frame, so
// the reinforcement loss only trains the network.
//
// The final frame of every sequence always ends a
// segment.
type Policy struct {
	Net      anynet.Net
	Composer Composer

	// Rand is used to sample decisions in training mode.
	// If nil, the global source is used.
	Rand *rand.Rand

	train      bool
	logProb    anydiff.Res
	boundaries [][]bool
}

// DeserializePolicy deserializes a Policy.
func DeserializePolicy(d []byte) (*Policy, error) {
	var net anynet.Net
	var composer serializer.Int
	if err := serializer.DeserializeAny(d, &net, &composer); err != nil {
		return nil, essentials.AddCtx("deserialize Policy", err)
	}
	return &Policy{Net: net, Composer: Composer(composer)}, nil
}

// NewPolicy creates a Policy with a randomized two-layer
// network.
func NewPolicy(c anyvec.Creator, inDim, hiddenDim int, composer Composer) *Policy {
	return &Policy{
		Net: anynet.Net{
			anynet.NewFC(c, inDim, hiddenDim),
			anynet.Tanh,
			anynet.NewFC(c, hiddenDim, 2),
			anynet.LogSoftmax,
		},
		Composer: composer,
	}
}

// SetTrain switches between sampling decisions and
// taking the most likely ones.
func (p *Policy) SetTrain(train bool) {
	p.train = train
}

// Segment decides where segments end and composes the
// frames of every segment into one vector.
func (p *Policy) Segment(in anyseq.Seq) anyseq.Seq {
	p.logProb = nil
	p.boundaries = nil
	batches := in.Output()
	if len(batches) == 0 {
		return in
	}

	lengths := make([]int, len(batches[0].Present))
	for _, batch := range batches {
		for i, pres := range batch.Present {
			if pres {
				lengths[i]++
			}
		}
	}

	bounds := make([][]bool, len(lengths))
	var chosen []anydiff.Res
	for t, batch := range batches {
		n := batch.NumPresent()
		if n == 0 {
			continue
		}
		logs := p.Net.Apply(anydiff.NewConst(batch.Packed), n)
		values := floats(logs.Output())
		if len(values) != 2*n {
			panic(fmt.Sprintf("policy should output 2 values per frame, not %d",
				len(values)/n))
		}
		var k int
		for i, pres := range batch.Present {
			if !pres {
				continue
			}
			end := true
			if t < lengths[i]-1 {
				end = p.decide(values[2*k], values[2*k+1])
				idx := 2 * k
				if end {
					idx++
				}
				chosen = append(chosen, anydiff.Slice(logs, idx, idx+1))
			}
			bounds[i] = append(bounds[i], end)
			k++
		}
	}
	if len(chosen) > 0 {
		p.logProb = anydiff.Sum(anydiff.Concat(chosen...))
	}
	p.boundaries = bounds

	c := in.Creator()
	return seqrnn.PerSeq(in, func(seqs [][]anydiff.Res) [][]anydiff.Res {
		res := make([][]anydiff.Res, len(seqs))
		for i, frames := range seqs {
			var start int
			for j := range frames {
				if bounds[i][j] {
					res[i] = append(res[i], p.Composer.Compose(c, frames[start:j+1]))
					start = j + 1
				}
			}
		}
		return res
	})
}

// Boundaries returns, for every sequence of the last
// Segment call, which frames ended a segment.
func (p *Policy) Boundaries() [][]bool {
	return p.boundaries
}

// ReinforceLoss computes -weight*reward*log(p), where p is
// the probability of the decisions made by the last call
// to Segment.
//
// It returns nil if Segment has not made any decisions.
func (p *Policy) ReinforceLoss(reward, weight float64) anydiff.Res {
	if p.logProb == nil {
		return nil
	}
	c := p.logProb.Output().Creator()
	return anydiff.Scale(p.logProb, c.MakeNumeric(-weight*reward))
}

// Parameters returns the parameters of the network.
func (p *Policy) Parameters() []*anydiff.Var {
	return p.Net.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a Policy with the serializer package.
func (p *Policy) SerializerType() string {
	return "github.com/unixpickle/anyenc/segment.Policy"
}

// Serialize serializes the Policy.
func (p *Policy) Serialize() ([]byte, error) {
	return serializer.SerializeAny(p.Net, serializer.Int(p.Composer))
}

func (p *Policy) decide(logContinue, logEnd float64) bool {
	if !p.train {
		return logEnd > logContinue
	}
	var r float64
	if p.Rand != nil {
		r = p.Rand.Float64()
	} else {
		r = rand.Float64()
	}
	return r < math.Exp(logEnd)
}

func floats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}
