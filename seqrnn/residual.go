package seqrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r Residual
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeResidual)
}

// Residual is a stack of single-layer builders with skip
// connections between them.
//
// The first layer maps the input to the hidden size.
// Every later layer adds its input to its output, except
// for the final layer, which only does so if ToOutput is
// set.
type Residual struct {
	Layers   []Builder
	ToOutput bool
}

// DeserializeResidual deserializes a Residual.
func DeserializeResidual(d []byte) (*Residual, error) {
	var toOutput serializer.Int
	var layers builderList
	if err := serializer.DeserializeAny(d, &toOutput, &layers); err != nil {
		return nil, essentials.AddCtx("deserialize Residual", err)
	}
	return &Residual{Layers: layers, ToOutput: toOutput != 0}, nil
}

// NewResidual creates a randomized Residual.
//
// If bidir is set, every layer is a single-layer BiRNN.
// Otherwise, every layer is a single-layer RNN.
func NewResidual(c anyvec.Creator, layers, in, hidden int, bidir, toOutput bool) *Residual {
	if layers < 1 {
		panic("Residual needs at least one layer")
	}
	res := &Residual{ToOutput: toOutput}
	for i := 0; i < layers; i++ {
		if bidir {
			res.Layers = append(res.Layers, NewBiRNN(c, 1, in, hidden))
		} else {
			res.Layers = append(res.Layers, NewRNN(c, 1, in, hidden))
		}
		in = hidden
	}
	return res
}

// Transduce applies the stack to the batch.
func (r *Residual) Transduce(in anyseq.Seq) anyseq.Seq {
	out := r.Layers[0].Transduce(in)
	for i := 1; i < len(r.Layers); i++ {
		next := r.Layers[i].Transduce(out)
		if i < len(r.Layers)-1 || r.ToOutput {
			next = AddSeqs(out, next)
		}
		out = next
	}
	return out
}

// SetDropout sets the dropout of every layer.
func (r *Residual) SetDropout(p float64) {
	for _, layer := range r.Layers {
		layer.SetDropout(p)
	}
}

// Parameters returns the parameters of every layer.
func (r *Residual) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, layer := range r.Layers {
		res = append(res, layer.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Residual with the serializer package.
func (r *Residual) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.Residual"
}

// Serialize serializes the Residual.
func (r *Residual) Serialize() ([]byte, error) {
	var toOutput serializer.Int
	if r.ToOutput {
		toOutput = 1
	}
	return serializer.SerializeAny(toOutput, builderList(r.Layers))
}
