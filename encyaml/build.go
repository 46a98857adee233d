package encyaml

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anyenc/segment"
	"github.com/unixpickle/anyenc/seqrnn"
	"gopkg.in/yaml.v3"
)

type identityNode struct {
	InputDim int `yaml:"input_dim"`
}

type lstmNode struct {
	InputDim         int     `yaml:"input_dim"`
	Layers           int     `yaml:"layers"`
	HiddenDim        int     `yaml:"hidden_dim"`
	Dropout          float64 `yaml:"dropout"`
	Bidirectional    *bool   `yaml:"bidirectional"`
	ResidualToOutput bool    `yaml:"residual_to_output"`
}

type pyramidalNode struct {
	InputDim     int     `yaml:"input_dim"`
	Layers       int     `yaml:"layers"`
	HiddenDim    int     `yaml:"hidden_dim"`
	Dropout      float64 `yaml:"dropout"`
	Method       string  `yaml:"downsampling_method"`
	ReduceFactor int     `yaml:"reduce_factor"`
}

type convNode struct {
	InputDim   int     `yaml:"input_dim"`
	Layers     int     `yaml:"layers"`
	HiddenDim  int     `yaml:"hidden_dim"`
	Dropout    float64 `yaml:"dropout"`
	Channels   int     `yaml:"chn_dim"`
	Filters    int     `yaml:"num_filters"`
	FilterTime int     `yaml:"filter_size_time"`
	FilterFreq int     `yaml:"filter_size_freq"`
	Stride     []int   `yaml:"stride"`
}

type modularNode struct {
	InputDim int         `yaml:"input_dim"`
	Modules  []yaml.Node `yaml:"modules"`
}

type segmentingNode struct {
	Embed     yaml.Node     `yaml:"embed_encoder"`
	Segmenter yaml.Node     `yaml:"segment_transducer"`
	Lambda    *scheduleNode `yaml:"lmbd"`
}

type scheduleNode struct {
	Start  float64 `yaml:"start"`
	Before int     `yaml:"before"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

type policyNode struct {
	InputDim  int    `yaml:"input_dim"`
	HiddenDim int    `yaml:"hidden_dim"`
	Composer  string `yaml:"composer"`
}

var lstmKeys = []string{"input_dim", "layers", "hidden_dim", "dropout", "bidirectional"}

type builder struct {
	params *anyenc.Params
}

// build creates the encoder for a node.
//
// The inDim argument is the input size implied by the
// surrounding encoder, or 0 if there is none.
// The second return value is the output size.
func (b *builder) build(node *yaml.Node, inDim int) (anyenc.Encoder, int, error) {
	node = resolve(node)
	switch node.Tag {
	case IdentityTag:
		var n identityNode
		if err := decode(node, &n, "input_dim"); err != nil {
			return nil, 0, err
		}
		return &anyenc.IdentityEncoder{}, b.dim(n.InputDim, inDim), nil
	case LSTMTag:
		var n lstmNode
		if err := decode(node, &n, lstmKeys...); err != nil {
			return nil, 0, err
		}
		if err := checkLayers(node, n.Layers, n.Dropout); err != nil {
			return nil, 0, err
		}
		enc := anyenc.NewLSTMEncoder(b.params, anyenc.LSTMConfig{
			InputDim:       b.dim(n.InputDim, inDim),
			Layers:         n.Layers,
			HiddenDim:      n.HiddenDim,
			Dropout:        n.Dropout,
			Unidirectional: n.Bidirectional != nil && !*n.Bidirectional,
		})
		return enc, enc.Config.HiddenDim, nil
	case ResidualTag:
		var n lstmNode
		if err := decode(node, &n, append(lstmKeys, "residual_to_output")...); err != nil {
			return nil, 0, err
		}
		if err := checkLayers(node, n.Layers, n.Dropout); err != nil {
			return nil, 0, err
		}
		enc := anyenc.NewResidualLSTMEncoder(b.params, anyenc.ResidualConfig{
			InputDim:         b.dim(n.InputDim, inDim),
			Layers:           n.Layers,
			HiddenDim:        n.HiddenDim,
			Dropout:          n.Dropout,
			Unidirectional:   n.Bidirectional != nil && !*n.Bidirectional,
			ResidualToOutput: n.ResidualToOutput,
		})
		return enc, enc.Config.HiddenDim, nil
	case PyramidalTag:
		return b.buildPyramidal(node, inDim)
	case ConvTag:
		return b.buildConv(node, inDim)
	case ModularTag:
		return b.buildModular(node, inDim)
	case SegmentTag:
		return b.buildSegmenting(node, inDim)
	case "", "!!map", "!!null":
		return nil, 0, errors.Errorf("line %d: missing encoder tag", node.Line)
	default:
		return nil, 0, errors.Errorf("line %d: unknown encoder tag %s", node.Line, node.Tag)
	}
}

func (b *builder) buildPyramidal(node *yaml.Node, inDim int) (anyenc.Encoder, int, error) {
	var n pyramidalNode
	err := decode(node, &n, "input_dim", "layers", "hidden_dim", "dropout",
		"downsampling_method", "reduce_factor")
	if err != nil {
		return nil, 0, err
	}
	if err := checkLayers(node, n.Layers, n.Dropout); err != nil {
		return nil, 0, err
	}
	if n.ReduceFactor < 0 {
		return nil, 0, errors.Errorf("line %d: invalid reduce_factor %d", node.Line,
			n.ReduceFactor)
	}
	if n.Method != "" {
		if _, err := seqrnn.ParseDownsampleMethod(n.Method); err != nil {
			return nil, 0, errors.Wrapf(err, "line %d", node.Line)
		}
	}
	enc := anyenc.NewPyramidalLSTMEncoder(b.params, anyenc.PyramidalConfig{
		InputDim:     b.dim(n.InputDim, inDim),
		Layers:       n.Layers,
		HiddenDim:    n.HiddenDim,
		Dropout:      n.Dropout,
		ReduceFactor: n.ReduceFactor,
		Downsampling: n.Method,
	})
	return enc, enc.OutputDim(), nil
}

func (b *builder) buildConv(node *yaml.Node, inDim int) (anyenc.Encoder, int, error) {
	var n convNode
	err := decode(node, &n, "input_dim", "layers", "hidden_dim", "dropout", "chn_dim",
		"num_filters", "filter_size_time", "filter_size_freq", "stride")
	if err != nil {
		return nil, 0, err
	}
	if err := checkLayers(node, n.Layers, n.Dropout); err != nil {
		return nil, 0, err
	}
	cfg := anyenc.ConvConfig{
		InputDim:   b.dim(n.InputDim, inDim),
		Layers:     n.Layers,
		HiddenDim:  n.HiddenDim,
		Dropout:    n.Dropout,
		Channels:   n.Channels,
		Filters:    n.Filters,
		FilterTime: n.FilterTime,
		FilterFreq: n.FilterFreq,
	}
	if n.Stride != nil {
		if len(n.Stride) != 2 {
			return nil, 0, errors.Errorf("line %d: stride needs 2 values but has %d",
				node.Line, len(n.Stride))
		}
		cfg.StrideTime, cfg.StrideFreq = n.Stride[0], n.Stride[1]
	}
	for _, x := range []int{cfg.Channels, cfg.Filters, cfg.FilterTime, cfg.FilterFreq,
		cfg.StrideTime, cfg.StrideFreq} {
		if x < 0 {
			return nil, 0, errors.Errorf("line %d: negative convolution setting", node.Line)
		}
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 3
	}
	if dim := b.dim(cfg.InputDim, 0); dim%channels != 0 {
		return nil, 0, errors.Errorf("line %d: input_dim %d not divisible by chn_dim %d",
			node.Line, dim, channels)
	}
	enc := anyenc.NewConvBiRNNEncoder(b.params, cfg)
	return enc, enc.Config.HiddenDim, nil
}

func (b *builder) buildModular(node *yaml.Node, inDim int) (anyenc.Encoder, int, error) {
	if err := checkKeys(node, "input_dim", "modules"); err != nil {
		return nil, 0, err
	}
	if err := shareParams(node, (&anyenc.ModularEncoder{}).SharedParams()); err != nil {
		return nil, 0, err
	}
	var n modularNode
	if err := decode(node, &n, "input_dim", "modules"); err != nil {
		return nil, 0, err
	}
	if len(n.Modules) == 0 {
		return nil, 0, errors.Errorf("line %d: no modules", node.Line)
	}
	res := &anyenc.ModularEncoder{InputDim: b.dim(n.InputDim, inDim)}
	dim := res.InputDim
	for i := range n.Modules {
		enc, outDim, err := b.build(&n.Modules[i], dim)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "module %d", i)
		}
		res.Modules = append(res.Modules, enc)
		dim = outDim
	}
	return res, dim, nil
}

func (b *builder) buildSegmenting(node *yaml.Node, inDim int) (anyenc.Encoder, int, error) {
	var n segmentingNode
	err := decode(node, &n, "embed_encoder", "segment_transducer", "lmbd")
	if err != nil {
		return nil, 0, err
	}
	if n.Lambda == nil {
		return nil, 0, errors.Errorf("line %d: missing lmbd", node.Line)
	}
	if n.Embed.Kind == 0 || n.Segmenter.Kind == 0 {
		return nil, 0, errors.Errorf("line %d: need embed_encoder and segment_transducer",
			node.Line)
	}
	embed, dim, err := b.build(&n.Embed, inDim)
	if err != nil {
		return nil, 0, errors.Wrap(err, "embed_encoder")
	}
	policy, err := b.buildPolicy(&n.Segmenter, dim)
	if err != nil {
		return nil, 0, errors.Wrap(err, "segment_transducer")
	}
	sched := anyenc.Schedule{
		Start:  n.Lambda.Start,
		Before: n.Lambda.Before,
		Min:    n.Lambda.Min,
		Max:    n.Lambda.Max,
	}
	if sched.Max < sched.Min {
		return nil, 0, errors.Errorf("line %d: lmbd max %g below min %g", node.Line,
			sched.Max, sched.Min)
	}
	return anyenc.NewSegmentingEncoder(embed, policy, sched), dim, nil
}

func (b *builder) buildPolicy(node *yaml.Node, inDim int) (*segment.Policy, error) {
	node = resolve(node)
	if node.Tag != PolicyTag {
		return nil, errors.Errorf("line %d: unknown segmenter tag %s", node.Line, node.Tag)
	}
	var n policyNode
	if err := decode(node, &n, "input_dim", "hidden_dim", "composer"); err != nil {
		return nil, err
	}
	if n.InputDim != 0 && n.InputDim != inDim {
		return nil, errors.Errorf("line %d: input_dim %d does not match embedding size %d",
			node.Line, n.InputDim, inDim)
	}
	composer := segment.MeanComposer
	if n.Composer != "" {
		var err error
		composer, err = segment.ParseComposer(n.Composer)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", node.Line)
		}
	}
	policy := segment.NewPolicy(b.params.Creator, inDim, b.dim(n.HiddenDim, 0), composer)
	b.params.Add(policy.Parameters()...)
	return policy, nil
}

// dim picks the first non-zero size, ending with the
// default layer size.
func (b *builder) dim(sizes ...int) int {
	for _, s := range sizes {
		if s != 0 {
			return s
		}
	}
	return b.params.Defaults.LayerDim
}

func decode(node *yaml.Node, obj interface{}, keys ...string) error {
	if err := checkKeys(node, keys...); err != nil {
		return err
	}
	plain := *node
	plain.Tag = "!!map"
	if err := plain.Decode(obj); err != nil {
		return errors.Wrapf(err, "decode %s", node.Tag)
	}
	return nil
}

func checkLayers(node *yaml.Node, layers int, dropout float64) error {
	if layers < 0 {
		return errors.Errorf("line %d: invalid layers %d", node.Line, layers)
	}
	if dropout < 0 || dropout >= 1 {
		return errors.Errorf("line %d: invalid dropout %g", node.Line, dropout)
	}
	return nil
}
