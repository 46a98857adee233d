package seqrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Pyramidal
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePyramidal)
}

// Pyramidal is a stack of bi-directional layers which
// downsamples the sequence after every layer.
//
// With n layers and a factor of r, a sequence of length L
// comes out roughly L/r^n timesteps long.
type Pyramidal struct {
	Layers []*BiRNN
	Factor int
	Method DownsampleMethod
}

// DeserializePyramidal deserializes a Pyramidal.
func DeserializePyramidal(d []byte) (*Pyramidal, error) {
	var factor, method serializer.Int
	var layers builderList
	if err := serializer.DeserializeAny(d, &factor, &method, &layers); err != nil {
		return nil, essentials.AddCtx("deserialize Pyramidal", err)
	}
	res := &Pyramidal{Factor: int(factor), Method: DownsampleMethod(method)}
	for _, layer := range layers {
		b, ok := layer.(*BiRNN)
		if !ok {
			return nil, fmt.Errorf("deserialize Pyramidal: not a *BiRNN: %T", layer)
		}
		res.Layers = append(res.Layers, b)
	}
	return res, nil
}

// NewPyramidal creates a randomized Pyramidal.
//
// With the Concat method, every layer after the first
// takes inputs of size hidden*factor.
func NewPyramidal(c anyvec.Creator, layers, in, hidden, factor int,
	method DownsampleMethod) *Pyramidal {
	if layers < 1 {
		panic("Pyramidal needs at least one layer")
	}
	if factor < 1 {
		panic("invalid downsampling factor")
	}
	res := &Pyramidal{Factor: factor, Method: method}
	for i := 0; i < layers; i++ {
		res.Layers = append(res.Layers, NewBiRNN(c, 1, in, hidden))
		in = method.OutputSize(hidden, factor)
	}
	return res
}

// OutputSize returns the size of every output vector.
func (p *Pyramidal) OutputSize(hidden int) int {
	return p.Method.OutputSize(hidden, p.Factor)
}

// Transduce applies every layer and downsamples after
// each one.
func (p *Pyramidal) Transduce(in anyseq.Seq) anyseq.Seq {
	for _, layer := range p.Layers {
		in = Downsample(layer.Transduce(in), p.Factor, p.Method)
	}
	return in
}

// SetDropout sets the dropout of every layer.
func (p *Pyramidal) SetDropout(prob float64) {
	for _, layer := range p.Layers {
		layer.SetDropout(prob)
	}
}

// Parameters returns the parameters of every layer.
func (p *Pyramidal) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, layer := range p.Layers {
		res = append(res, layer.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Pyramidal with the serializer package.
func (p *Pyramidal) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.Pyramidal"
}

// Serialize serializes the Pyramidal.
func (p *Pyramidal) Serialize() ([]byte, error) {
	layers := make(builderList, len(p.Layers))
	for i, layer := range p.Layers {
		layers[i] = layer
	}
	return serializer.SerializeAny(
		serializer.Int(p.Factor),
		serializer.Int(p.Method),
		layers,
	)
}
