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
	var c ConvBiRNNEncoder
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConvBiRNNEncoder)
}

// ConvConfig configures a ConvBiRNNEncoder.
//
// Every input vector is a frame of InputDim/Channels
// frequency bins with Channels values per bin.
// Unset fields default to 3 channels, 32 filters, 3x3
// filters and a stride of 2 in both directions.
type ConvConfig struct {
	InputDim  int
	Layers    int
	HiddenDim int
	Dropout   float64

	Channels   int
	Filters    int
	FilterTime int
	FilterFreq int
	StrideTime int
	StrideFreq int
}

func (c ConvConfig) resolve(p *Params) ConvConfig {
	lstm := LSTMConfig{
		InputDim:  c.InputDim,
		Layers:    c.Layers,
		HiddenDim: c.HiddenDim,
		Dropout:   c.Dropout,
	}.resolve(p)
	c.InputDim = lstm.InputDim
	c.Layers = lstm.Layers
	c.HiddenDim = lstm.HiddenDim
	c.Dropout = lstm.Dropout
	for _, x := range []struct {
		field *int
		def   int
	}{
		{&c.Channels, 3},
		{&c.Filters, 32},
		{&c.FilterTime, 3},
		{&c.FilterFreq, 3},
		{&c.StrideTime, 2},
		{&c.StrideFreq, 2},
	} {
		if *x.field == 0 {
			*x.field = x.def
		}
	}
	return c
}

// ConvBiRNNEncoder applies a strided convolution over
// time and frequency, followed by a bidirectional LSTM
// stack.
type ConvBiRNNEncoder struct {
	BuilderEncoder
	Config  ConvConfig
	Builder *seqrnn.ConvBiRNN
}

// DeserializeConvBiRNNEncoder deserializes a
// ConvBiRNNEncoder.
func DeserializeConvBiRNNEncoder(d []byte) (*ConvBiRNNEncoder, error) {
	var in, layers, hidden serializer.Int
	var dropout serializer.Float64
	var builder *seqrnn.ConvBiRNN
	err := serializer.DeserializeAny(d, &in, &layers, &hidden, &dropout, &builder)
	if err != nil {
		return nil, essentials.AddCtx("deserialize ConvBiRNNEncoder", err)
	}
	conv := builder.Conv
	cfg := ConvConfig{
		InputDim:   int(in),
		Layers:     int(layers),
		HiddenDim:  int(hidden),
		Dropout:    float64(dropout),
		Channels:   conv.InputDepth,
		Filters:    conv.FilterCount,
		FilterTime: conv.FilterHeight,
		FilterFreq: conv.FilterWidth,
		StrideTime: conv.StrideY,
		StrideFreq: conv.StrideX,
	}
	return newConvBiRNNEncoder(cfg, builder), nil
}

// NewConvBiRNNEncoder creates a ConvBiRNNEncoder and
// registers its parameters with p.
//
// It panics if InputDim is not divisible by Channels.
func NewConvBiRNNEncoder(p *Params, cfg ConvConfig) *ConvBiRNNEncoder {
	cfg = cfg.resolve(p)
	if cfg.InputDim%cfg.Channels != 0 {
		panic(fmt.Sprintf("input dimension %d not divisible by %d channels",
			cfg.InputDim, cfg.Channels))
	}
	shape := seqrnn.ConvShape{
		Freq:       cfg.InputDim / cfg.Channels,
		Channels:   cfg.Channels,
		Filters:    cfg.Filters,
		FilterTime: cfg.FilterTime,
		FilterFreq: cfg.FilterFreq,
		StrideTime: cfg.StrideTime,
		StrideFreq: cfg.StrideFreq,
	}
	builder := seqrnn.NewConvBiRNN(p.Creator, shape, cfg.Layers, cfg.HiddenDim)
	res := newConvBiRNNEncoder(cfg, builder)
	p.Add(res.Parameters()...)
	return res
}

func newConvBiRNNEncoder(cfg ConvConfig, b *seqrnn.ConvBiRNN) *ConvBiRNNEncoder {
	res := &ConvBiRNNEncoder{Config: cfg, Builder: b}
	res.Delegate = DirectDelegate(b)
	return res
}

// Transduce applies the convolution and the LSTM stack.
// A sequence of length L yields
// 1+(L-FilterTime)/StrideTime frames, or none if it is
// shorter than the filter.
func (c *ConvBiRNNEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	checkInputDim("ConvBiRNNEncoder", c.Config.InputDim, in)
	return c.BuilderEncoder.Transduce(in)
}

// SetTrain enables dropout in training mode and disables
// it otherwise.
func (c *ConvBiRNNEncoder) SetTrain(train bool) {
	setBuilderTrain(c.Builder, c.Config.Dropout, train)
}

// Parameters returns the builder's parameters.
func (c *ConvBiRNNEncoder) Parameters() []*anydiff.Var {
	return c.Builder.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a ConvBiRNNEncoder with the serializer package.
func (c *ConvBiRNNEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.ConvBiRNNEncoder"
}

// Serialize serializes the encoder.
func (c *ConvBiRNNEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.Config.InputDim),
		serializer.Int(c.Config.Layers),
		serializer.Int(c.Config.HiddenDim),
		serializer.Float64(c.Config.Dropout),
		c.Builder,
	)
}
