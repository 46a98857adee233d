package anyenc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc/seqrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r ResidualLSTMEncoder
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeResidualLSTMEncoder)
}

// ResidualConfig configures a ResidualLSTMEncoder.
type ResidualConfig struct {
	InputDim       int
	Layers         int
	HiddenDim      int
	Dropout        float64
	Unidirectional bool

	// ResidualToOutput adds a skip connection around the
	// final layer.
	ResidualToOutput bool
}

// ResidualLSTMEncoder is an LSTM stack with skip
// connections between layers.
type ResidualLSTMEncoder struct {
	BuilderEncoder
	Config  ResidualConfig
	Builder *seqrnn.Residual
}

// DeserializeResidualLSTMEncoder deserializes a
// ResidualLSTMEncoder.
func DeserializeResidualLSTMEncoder(d []byte) (*ResidualLSTMEncoder, error) {
	var in, layers, hidden, uni, toOutput serializer.Int
	var dropout serializer.Float64
	var builder *seqrnn.Residual
	err := serializer.DeserializeAny(d, &in, &layers, &hidden, &dropout, &uni, &toOutput,
		&builder)
	if err != nil {
		return nil, essentials.AddCtx("deserialize ResidualLSTMEncoder", err)
	}
	cfg := ResidualConfig{
		InputDim:         int(in),
		Layers:           int(layers),
		HiddenDim:        int(hidden),
		Dropout:          float64(dropout),
		Unidirectional:   uni != 0,
		ResidualToOutput: toOutput != 0,
	}
	return newResidualLSTMEncoder(cfg, builder), nil
}

// NewResidualLSTMEncoder creates a ResidualLSTMEncoder
// and registers its parameters with p.
func NewResidualLSTMEncoder(p *Params, cfg ResidualConfig) *ResidualLSTMEncoder {
	lstm := LSTMConfig{
		InputDim:  cfg.InputDim,
		Layers:    cfg.Layers,
		HiddenDim: cfg.HiddenDim,
		Dropout:   cfg.Dropout,
	}.resolve(p)
	cfg.InputDim = lstm.InputDim
	cfg.Layers = lstm.Layers
	cfg.HiddenDim = lstm.HiddenDim
	cfg.Dropout = lstm.Dropout
	builder := seqrnn.NewResidual(p.Creator, cfg.Layers, cfg.InputDim, cfg.HiddenDim,
		!cfg.Unidirectional, cfg.ResidualToOutput)
	res := newResidualLSTMEncoder(cfg, builder)
	p.Add(res.Parameters()...)
	return res
}

func newResidualLSTMEncoder(cfg ResidualConfig, b *seqrnn.Residual) *ResidualLSTMEncoder {
	res := &ResidualLSTMEncoder{Config: cfg, Builder: b}
	res.Delegate = DirectDelegate(b)
	return res
}

// Transduce applies the residual stack.
func (r *ResidualLSTMEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	checkInputDim("ResidualLSTMEncoder", r.Config.InputDim, in)
	return r.BuilderEncoder.Transduce(in)
}

// SetTrain enables dropout in every layer in training
// mode and disables it otherwise.
func (r *ResidualLSTMEncoder) SetTrain(train bool) {
	setBuilderTrain(r.Builder, r.Config.Dropout, train)
}

// Parameters returns the builder's parameters.
func (r *ResidualLSTMEncoder) Parameters() []*anydiff.Var {
	return r.Builder.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a ResidualLSTMEncoder with the serializer package.
func (r *ResidualLSTMEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.ResidualLSTMEncoder"
}

// Serialize serializes the encoder.
func (r *ResidualLSTMEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(r.Config.InputDim),
		serializer.Int(r.Config.Layers),
		serializer.Int(r.Config.HiddenDim),
		serializer.Float64(r.Config.Dropout),
		boolInt(r.Config.Unidirectional),
		boolInt(r.Config.ResidualToOutput),
		r.Builder,
	)
}
