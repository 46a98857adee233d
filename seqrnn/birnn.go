package seqrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b BiRNN
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBiRNN)
}

// BiRNN is a stack of bi-directional LSTM layers.
//
// In every layer, a forward LSTM and a backward LSTM are
// run over the layer's input and their outputs are
// concatenated at every timestep.
// The next layer is fed the concatenated outputs.
type BiRNN struct {
	Layers  []*anyrnn.Bidir
	Dropout *Dropout
}

// DeserializeBiRNN deserializes a BiRNN.
func DeserializeBiRNN(d []byte) (*BiRNN, error) {
	objs, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize BiRNN", err)
	}
	if len(objs) < 2 {
		return nil, fmt.Errorf("deserialize BiRNN: expected at least 2 objects but got %d",
			len(objs))
	}
	res := &BiRNN{}
	var ok bool
	if res.Dropout, ok = objs[0].(*Dropout); !ok {
		return nil, fmt.Errorf("deserialize BiRNN: not a *Dropout: %T", objs[0])
	}
	for _, obj := range objs[1:] {
		layer, ok := obj.(*anyrnn.Bidir)
		if !ok {
			return nil, fmt.Errorf("deserialize BiRNN: not a *Bidir: %T", obj)
		}
		res.Layers = append(res.Layers, layer)
	}
	return res, nil
}

// NewBiRNN creates a randomized BiRNN.
//
// The hidden size is the size of the concatenated output.
// The forward LSTM gets hidden/2 units and the backward
// LSTM gets the rest.
func NewBiRNN(c anyvec.Creator, layers, in, hidden int) *BiRNN {
	if layers < 1 {
		panic("BiRNN needs at least one layer")
	}
	res := &BiRNN{Dropout: &Dropout{}}
	for i := 0; i < layers; i++ {
		res.Layers = append(res.Layers, NewBidirLSTM(c, in, hidden))
		in = hidden
	}
	return res
}

// NewBidirLSTM creates a single bi-directional LSTM layer
// with a concatenated output of the given size.
func NewBidirLSTM(c anyvec.Creator, in, hidden int) *anyrnn.Bidir {
	if hidden < 2 {
		panic("bi-directional hidden size must be at least 2")
	}
	forward := hidden / 2
	return &anyrnn.Bidir{
		Forward:  anyrnn.NewLSTM(c, in, forward),
		Backward: anyrnn.NewLSTM(c, in, hidden-forward),
		Mixer:    anynet.ConcatMixer{},
	}
}

// Transduce applies the layers to the sequence batch.
// Dropout is applied to the input of every layer.
func (b *BiRNN) Transduce(in anyseq.Seq) anyseq.Seq {
	for _, layer := range b.Layers {
		in = layer.Apply(b.Dropout.MapSeq(in))
	}
	return in
}

// SetDropout sets the dropout probability.
func (b *BiRNN) SetDropout(p float64) {
	b.Dropout.Prob = p
}

// Parameters returns the parameters of every layer.
func (b *BiRNN) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, layer := range b.Layers {
		res = append(res, layer.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a BiRNN with the serializer package.
func (b *BiRNN) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.BiRNN"
}

// Serialize serializes the BiRNN.
func (b *BiRNN) Serialize() ([]byte, error) {
	objs := []serializer.Serializer{b.Dropout}
	for _, layer := range b.Layers {
		objs = append(objs, layer)
	}
	return serializer.SerializeSlice(objs)
}
