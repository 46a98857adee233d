package anyenc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc/seqrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var l LSTMEncoder
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTMEncoder)
}

// LSTMConfig configures an LSTMEncoder.
//
// Zero dimensions and a zero dropout fall back on the
// Params defaults, and zero layers means one layer.
type LSTMConfig struct {
	InputDim       int
	Layers         int
	HiddenDim      int
	Dropout        float64
	Unidirectional bool
}

func (l LSTMConfig) resolve(p *Params) LSTMConfig {
	l.InputDim = p.layerDim(l.InputDim)
	l.HiddenDim = p.layerDim(l.HiddenDim)
	l.Dropout = p.dropout(l.Dropout)
	if l.Layers == 0 {
		l.Layers = 1
	}
	return l
}

func (l LSTMConfig) serialize() []interface{} {
	return []interface{}{
		serializer.Int(l.InputDim),
		serializer.Int(l.Layers),
		serializer.Int(l.HiddenDim),
		serializer.Float64(l.Dropout),
		boolInt(l.Unidirectional),
	}
}

// LSTMEncoder runs a stack of LSTM layers.
//
// A bidirectional encoder runs a forward and a backward
// LSTM in every layer and concatenates their outputs, so
// that each direction gets half of the hidden units.
// A unidirectional encoder runs a plain stack of LSTMs.
type LSTMEncoder struct {
	BuilderEncoder
	Config  LSTMConfig
	Builder seqrnn.Builder
}

// DeserializeLSTMEncoder deserializes an LSTMEncoder.
func DeserializeLSTMEncoder(d []byte) (*LSTMEncoder, error) {
	var in, layers, hidden, uni serializer.Int
	var dropout serializer.Float64
	var builder seqrnn.Builder
	err := serializer.DeserializeAny(d, &in, &layers, &hidden, &dropout, &uni, &builder)
	if err != nil {
		return nil, essentials.AddCtx("deserialize LSTMEncoder", err)
	}
	cfg := LSTMConfig{
		InputDim:       int(in),
		Layers:         int(layers),
		HiddenDim:      int(hidden),
		Dropout:        float64(dropout),
		Unidirectional: uni != 0,
	}
	res, err := newLSTMEncoder(cfg, builder)
	if err != nil {
		return nil, essentials.AddCtx("deserialize LSTMEncoder", err)
	}
	return res, nil
}

// NewLSTMEncoder creates an LSTMEncoder and registers its
// parameters with p.
func NewLSTMEncoder(p *Params, cfg LSTMConfig) *LSTMEncoder {
	cfg = cfg.resolve(p)
	var builder seqrnn.Builder
	if cfg.Unidirectional {
		builder = seqrnn.NewRNN(p.Creator, cfg.Layers, cfg.InputDim, cfg.HiddenDim)
	} else {
		builder = seqrnn.NewBiRNN(p.Creator, cfg.Layers, cfg.InputDim, cfg.HiddenDim)
	}
	res, err := newLSTMEncoder(cfg, builder)
	if err != nil {
		panic(err)
	}
	p.Add(res.Parameters()...)
	return res
}

func newLSTMEncoder(cfg LSTMConfig, builder seqrnn.Builder) (*LSTMEncoder, error) {
	res := &LSTMEncoder{Config: cfg, Builder: builder}
	if cfg.Unidirectional {
		rnn, ok := builder.(*seqrnn.RNN)
		if !ok {
			return nil, fmt.Errorf("unidirectional builder must be *seqrnn.RNN, not %T", builder)
		}
		res.Delegate = StatefulDelegate(rnn)
	} else {
		res.Delegate = DirectDelegate(builder)
	}
	return res, nil
}

// Transduce applies the LSTM stack.
//
// It panics with a *DimError if the input vectors are not
// of size Config.InputDim.
func (l *LSTMEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	checkInputDim("LSTMEncoder", l.Config.InputDim, in)
	return l.BuilderEncoder.Transduce(in)
}

// SetTrain enables dropout in training mode and disables
// it otherwise.
func (l *LSTMEncoder) SetTrain(train bool) {
	setBuilderTrain(l.Builder, l.Config.Dropout, train)
}

// Parameters returns the builder's parameters.
func (l *LSTMEncoder) Parameters() []*anydiff.Var {
	return l.Builder.Parameters()
}

// SerializerType returns the unique ID used to serialize
// an LSTMEncoder with the serializer package.
func (l *LSTMEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.LSTMEncoder"
}

// Serialize serializes the encoder.
func (l *LSTMEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(append(l.Config.serialize(), l.Builder)...)
}

func setBuilderTrain(b seqrnn.Builder, dropout float64, train bool) {
	if train {
		b.SetDropout(dropout)
	} else {
		b.SetDropout(0)
	}
}

func boolInt(b bool) serializer.Int {
	if b {
		return 1
	}
	return 0
}
