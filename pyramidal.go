package anyenc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc/seqrnn"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p PyramidalLSTMEncoder
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePyramidalLSTMEncoder)
}

// PyramidalConfig configures a PyramidalLSTMEncoder.
//
// ReduceFactor defaults to 2 and Downsampling defaults to
// "skip".
type PyramidalConfig struct {
	InputDim     int
	Layers       int
	HiddenDim    int
	Dropout      float64
	ReduceFactor int
	Downsampling string
}

// PyramidalLSTMEncoder is a bidirectional LSTM stack which
// shortens the sequence by ReduceFactor after every layer.
type PyramidalLSTMEncoder struct {
	BuilderEncoder
	Config  PyramidalConfig
	Builder *seqrnn.Pyramidal
}

// DeserializePyramidalLSTMEncoder deserializes a
// PyramidalLSTMEncoder.
func DeserializePyramidalLSTMEncoder(d []byte) (*PyramidalLSTMEncoder, error) {
	var in, layers, hidden serializer.Int
	var dropout serializer.Float64
	var builder *seqrnn.Pyramidal
	err := serializer.DeserializeAny(d, &in, &layers, &hidden, &dropout, &builder)
	if err != nil {
		return nil, essentials.AddCtx("deserialize PyramidalLSTMEncoder", err)
	}
	cfg := PyramidalConfig{
		InputDim:     int(in),
		Layers:       int(layers),
		HiddenDim:    int(hidden),
		Dropout:      float64(dropout),
		ReduceFactor: builder.Factor,
		Downsampling: builder.Method.String(),
	}
	return newPyramidalLSTMEncoder(cfg, builder), nil
}

// NewPyramidalLSTMEncoder creates a PyramidalLSTMEncoder
// and registers its parameters with p.
//
// It panics if the downsampling method is unknown.
func NewPyramidalLSTMEncoder(p *Params, cfg PyramidalConfig) *PyramidalLSTMEncoder {
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
	if cfg.ReduceFactor == 0 {
		cfg.ReduceFactor = 2
	}
	if cfg.Downsampling == "" {
		cfg.Downsampling = seqrnn.Skip.String()
	}
	method, err := seqrnn.ParseDownsampleMethod(cfg.Downsampling)
	if err != nil {
		panic(err)
	}
	builder := seqrnn.NewPyramidal(p.Creator, cfg.Layers, cfg.InputDim, cfg.HiddenDim,
		cfg.ReduceFactor, method)
	res := newPyramidalLSTMEncoder(cfg, builder)
	p.Add(res.Parameters()...)
	return res
}

func newPyramidalLSTMEncoder(cfg PyramidalConfig, b *seqrnn.Pyramidal) *PyramidalLSTMEncoder {
	res := &PyramidalLSTMEncoder{Config: cfg, Builder: b}
	res.Delegate = DirectDelegate(b)
	return res
}

// OutputDim returns the size of the output vectors.
func (p *PyramidalLSTMEncoder) OutputDim() int {
	return p.Builder.OutputSize(p.Config.HiddenDim)
}

// Transduce applies the pyramidal stack.
// Each sequence of length L comes out with
// ceil(L/ReduceFactor) frames per layer.
func (p *PyramidalLSTMEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	checkInputDim("PyramidalLSTMEncoder", p.Config.InputDim, in)
	return p.BuilderEncoder.Transduce(in)
}

// SetTrain enables dropout in every layer in training
// mode and disables it otherwise.
func (p *PyramidalLSTMEncoder) SetTrain(train bool) {
	setBuilderTrain(p.Builder, p.Config.Dropout, train)
}

// Parameters returns the builder's parameters.
func (p *PyramidalLSTMEncoder) Parameters() []*anydiff.Var {
	return p.Builder.Parameters()
}

// SerializerType returns the unique ID used to serialize
// a PyramidalLSTMEncoder with the serializer package.
func (p *PyramidalLSTMEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.PyramidalLSTMEncoder"
}

// Serialize serializes the encoder.
func (p *PyramidalLSTMEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(p.Config.InputDim),
		serializer.Int(p.Config.Layers),
		serializer.Int(p.Config.HiddenDim),
		serializer.Float64(p.Config.Dropout),
		p.Builder,
	)
}
