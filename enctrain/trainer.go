package enctrain

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyctc"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores an input and output batch in a packed
// format.
type Batch struct {
	Inputs  anyseq.Seq
	Outputs anyseq.Seq
	Labels  [][]int
}

// A Trainer creates batches, computes gradients, and adds
// up costs for an encoder.
type Trainer struct {
	Encoder anyenc.Encoder

	// Output, if non-nil, is applied to every output
	// vector of the encoder before the cost.
	Output anynet.Layer

	Cost   anynet.Cost
	Params []*anydiff.Var

	// CTC, if true, scores every output sequence against
	// its sample's Label with anyctc.Cost instead of
	// using Cost.
	// The output vectors should then be log probabilities
	// with the blank symbol last.
	CTC bool

	// Reward, if non-nil, maps the supervised cost of a
	// batch to a reward for the encoder's reinforcement
	// loss, which is added to the total cost.
	Reward func(cost float64) float64

	// Average indicates whether or not the supervised cost
	// should be averaged over the output vectors (or over
	// the sequences in CTC mode).
	// This affects gradients, LastCost, and the output of
	// TotalCost().
	Average bool

	// After every gradient computation, LastCost is set to
	// the total cost from the batch.
	LastCost anyvec.Numeric
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	l := s.(SampleList)
	ins := make([][]anyvec.Vector, l.Len())
	outs := make([][]anyvec.Vector, l.Len())
	labels := make([][]int, l.Len())
	for i := 0; i < l.Len(); i++ {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		ins[i] = sample.Input
		outs[i] = sample.Output
		labels[i] = sample.Label
	}
	res := &Batch{
		Inputs: anyseq.ConstSeqList(l.Creator(), ins),
		Labels: labels,
	}
	if !t.CTC {
		res.Outputs = anyseq.ConstSeqList(l.Creator(), outs)
	}
	return res, nil
}

// TotalCost computes the total cost for the *Batch.
//
// If t.Reward is set, the encoder's reinforcement loss
// for the reward is added to the supervised cost.
func (t *Trainer) TotalCost(batch anysgd.Batch) anydiff.Res {
	b := batch.(*Batch)
	sum, count := t.supervisedCost(b)
	if t.Average && count > 0 {
		scaler := sum.Output().Creator().MakeNumeric(1 / float64(count))
		sum = anydiff.Scale(sum, scaler)
	}
	if t.Reward != nil {
		reward := t.Reward(numericFloat(anyvec.Sum(sum.Output())))
		if loss := t.Encoder.ReinforceLoss(reward); loss != nil {
			sum = anydiff.Add(sum, loss)
		}
	}
	return sum
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// total cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, lc := anysgd.CosterGrad(t, b, t.Params)
	t.LastCost = lc
	return grad
}

// supervisedCost sums the cost over every output vector
// and returns the number of output vectors.
// In CTC mode, it returns the number of sequences.
func (t *Trainer) supervisedCost(b *Batch) (anydiff.Res, int) {
	actual := t.Encoder.Transduce(b.Inputs)
	if t.Output != nil {
		actual = anyseq.Map(actual, t.Output.Apply)
	}

	if t.CTC {
		if len(actual.Output()) == 0 {
			return anydiff.NewConst(actual.Creator().MakeVector(1)), 0
		}
		costs := anyctc.Cost(actual, b.Labels)
		return anydiff.Sum(costs), costs.Output().Len()
	}

	if len(actual.Output()) != len(b.Outputs.Output()) {
		panic("mismatching actual and desired sequence shapes")
	}
	if len(actual.Output()) == 0 {
		return anydiff.NewConst(actual.Creator().MakeVector(1)), 0
	}

	var idx int
	var costCount int
	allCosts := anyseq.Map(actual, func(a anydiff.Res, n int) anydiff.Res {
		batch := b.Outputs.Output()[idx]
		if batch.NumPresent() != n {
			panic("mismatching actual and desired sequence shapes")
		}
		costCount += n
		idx++
		return t.Cost.Cost(anydiff.NewConst(batch.Packed), a, n)
	})
	return anydiff.Sum(anyseq.Sum(allCosts)), costCount
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic("unsupported numeric type")
	}
}
