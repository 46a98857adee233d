package seqrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r RNN
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeRNN)
}

// RNN is a stack of uni-directional LSTM layers.
//
// An RNN is a Starter: Start creates the initial state of
// the whole stack, and the state is then mapped over the
// input sequence.
type RNN struct {
	Layers  []*anyrnn.LSTM
	Dropout *Dropout
}

// DeserializeRNN deserializes an RNN.
func DeserializeRNN(d []byte) (*RNN, error) {
	objs, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize RNN", err)
	}
	if len(objs) < 2 {
		return nil, fmt.Errorf("deserialize RNN: expected at least 2 objects but got %d",
			len(objs))
	}
	res := &RNN{}
	var ok bool
	if res.Dropout, ok = objs[0].(*Dropout); !ok {
		return nil, fmt.Errorf("deserialize RNN: not a *Dropout: %T", objs[0])
	}
	for _, obj := range objs[1:] {
		layer, ok := obj.(*anyrnn.LSTM)
		if !ok {
			return nil, fmt.Errorf("deserialize RNN: not an *LSTM: %T", obj)
		}
		res.Layers = append(res.Layers, layer)
	}
	return res, nil
}

// NewRNN creates a randomized RNN.
func NewRNN(c anyvec.Creator, layers, in, hidden int) *RNN {
	if layers < 1 {
		panic("RNN needs at least one layer")
	}
	res := &RNN{Dropout: &Dropout{}}
	for i := 0; i < layers; i++ {
		res.Layers = append(res.Layers, anyrnn.NewLSTM(c, in, hidden))
		in = hidden
	}
	return res
}

// Block returns an anyrnn.Block which applies dropout and
// then an LSTM for every layer.
func (r *RNN) Block() anyrnn.Block {
	var res anyrnn.Stack
	for _, layer := range r.Layers {
		res = append(res, &anyrnn.LayerBlock{Layer: r.Dropout}, layer)
	}
	return res
}

// Start creates the initial state for a batch of n
// sequences.
func (r *RNN) Start(n int) Transducer {
	block := r.Block()
	return &rnnState{Block: block, State: block.Start(n)}
}

// Transduce starts the RNN and applies it to the batch.
func (r *RNN) Transduce(in anyseq.Seq) anyseq.Seq {
	return r.Start(BatchSize(in)).Transduce(in)
}

// SetDropout sets the dropout probability.
func (r *RNN) SetDropout(p float64) {
	r.Dropout.Prob = p
}

// Parameters returns the parameters of every layer.
func (r *RNN) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, layer := range r.Layers {
		res = append(res, layer.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an RNN with the serializer package.
func (r *RNN) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.RNN"
}

// Serialize serializes the RNN.
func (r *RNN) Serialize() ([]byte, error) {
	objs := []serializer.Serializer{r.Dropout}
	for _, layer := range r.Layers {
		objs = append(objs, layer)
	}
	return serializer.SerializeSlice(objs)
}

type rnnState struct {
	Block anyrnn.Block
	State anyrnn.State
}

func (r *rnnState) Transduce(in anyseq.Seq) anyseq.Seq {
	if len(in.Output()) == 0 {
		return anyseq.ConstSeqList(in.Creator(), nil)
	}
	if n := BatchSize(in); n != len(r.State.Present()) {
		panic(fmt.Sprintf("state has batch size %d but sequence has %d",
			len(r.State.Present()), n))
	}
	return anyrnn.MapWithStart(in, r.Block, r.State, r.Block.PropagateStart)
}
