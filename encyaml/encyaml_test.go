package encyaml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anyenc/segment"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestLoadDefaults(t *testing.T) {
	params, enc, err := Load(anyvec64.DefaultCreator{}, []byte(`
defaults:
  default_layer_dim: 8
  dropout: 0.3
encoder: !LSTMEncoder
  layers: 2
`))
	require.NoError(t, err)
	lstm, ok := enc.(*anyenc.LSTMEncoder)
	require.True(t, ok, "unexpected type %T", enc)
	expected := anyenc.LSTMConfig{InputDim: 8, Layers: 2, HiddenDim: 8, Dropout: 0.3}
	if diff := cmp.Diff(expected, lstm.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, anyenc.Defaults{LayerDim: 8, Dropout: 0.3}, params.Defaults)
	assert.Equal(t, len(lstm.Parameters()), len(params.Parameters()))
}

func TestLoadUnidirectional(t *testing.T) {
	_, enc, err := Load(anyvec64.DefaultCreator{}, []byte(`
defaults: {default_layer_dim: 4}
encoder: !ResidualLSTMEncoder
  layers: 3
  bidirectional: false
  residual_to_output: true
`))
	require.NoError(t, err)
	expected := anyenc.ResidualConfig{
		InputDim:         4,
		Layers:           3,
		HiddenDim:        4,
		Unidirectional:   true,
		ResidualToOutput: true,
	}
	if diff := cmp.Diff(expected, enc.(*anyenc.ResidualLSTMEncoder).Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadModular(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	params, enc, err := Load(c, []byte(`
defaults: {default_layer_dim: 4}
encoder: !ModularEncoder
  input_dim: 6
  modules:
    - !LSTMEncoder
      hidden_dim: 4
    - !PyramidalLSTMEncoder
      downsampling_method: concat
      reduce_factor: 2
    - !IdentityEncoder {}
    - !ConvBiRNNEncoder
      chn_dim: 2
      num_filters: 2
      filter_size_time: 2
      filter_size_freq: 1
      stride: [1, 1]
`))
	require.NoError(t, err)
	modular := enc.(*anyenc.ModularEncoder)
	require.Len(t, modular.Modules, 4)
	assert.Equal(t, 6, modular.InputDim)
	assert.Equal(t, 6, modular.Modules[0].(*anyenc.LSTMEncoder).Config.InputDim)
	pyramid := modular.Modules[1].(*anyenc.PyramidalLSTMEncoder)
	assert.Equal(t, 4, pyramid.Config.InputDim)
	assert.Equal(t, 8, pyramid.OutputDim())
	conv := modular.Modules[3].(*anyenc.ConvBiRNNEncoder)
	expected := anyenc.ConvConfig{
		InputDim:   8,
		Layers:     1,
		HiddenDim:  4,
		Channels:   2,
		Filters:    2,
		FilterTime: 2,
		FilterFreq: 1,
		StrideTime: 1,
		StrideFreq: 1,
	}
	if diff := cmp.Diff(expected, conv.Config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	var numParams int
	for _, v := range modular.Parameters() {
		numParams += v.Vector.Len()
	}
	assert.Equal(t, numParams, params.NumParams())

	in := anyseq.ConstSeqList(c, [][]anyvec.Vector{
		randomFrames(c, 6, 9),
		randomFrames(c, 6, 4),
	})
	enc.SetTrain(false)
	out := enc.Transduce(in).Output()
	// Lengths 9 and 4 become 5 and 2, then 4 and 1.
	require.Len(t, out, 4)
	assert.Equal(t, []bool{true, true}, out[0].Present)
	assert.Equal(t, []bool{true, false}, out[1].Present)
	assert.Equal(t, 8, out[0].Packed.Len())
}

func TestLoadModularSharedParams(t *testing.T) {
	_, enc, err := Load(anyvec64.DefaultCreator{}, []byte(`
defaults: {default_layer_dim: 4}
encoder: !ModularEncoder
  modules:
    - !LSTMEncoder
      input_dim: 10
`))
	require.NoError(t, err)
	modular := enc.(*anyenc.ModularEncoder)
	assert.Equal(t, 10, modular.InputDim)
	assert.Equal(t, 10, modular.Modules[0].(*anyenc.LSTMEncoder).Config.InputDim)

	_, _, err = Load(anyvec64.DefaultCreator{}, []byte(`
encoder: !ModularEncoder
  input_dim: 6
  modules:
    - !LSTMEncoder
      input_dim: 5
`))
	assert.Error(t, err)

	_, enc, err = Load(anyvec64.DefaultCreator{}, []byte(`
encoder: !ModularEncoder
  input_dim: 6
  modules:
    - !LSTMEncoder
      input_dim: 6
      hidden_dim: 2
`))
	require.NoError(t, err)
	assert.Equal(t, 6, enc.(*anyenc.ModularEncoder).Modules[0].(*anyenc.LSTMEncoder).Config.InputDim)
}

func TestLoadSegmenting(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	params, enc, err := Load(c, []byte(`
defaults: {default_layer_dim: 4}
encoder: !SegmentingEncoder
  embed_encoder: !LSTMEncoder
    input_dim: 3
    hidden_dim: 6
  segment_transducer: !SegmentPolicy
    hidden_dim: 5
    composer: tail
  lmbd: {start: 0.1, before: 2, min: 0, max: 0.5}
`))
	require.NoError(t, err)
	seg := enc.(*anyenc.SegmentingEncoder)
	assert.Equal(t, anyenc.Schedule{Start: 0.1, Before: 2, Max: 0.5}, seg.Schedule)
	assert.Equal(t, 0.1, seg.Weight)
	policy := seg.Segmenter.(*segment.Policy)
	assert.Equal(t, segment.TailComposer, policy.Composer)
	assert.Equal(t, len(seg.Parameters()), len(params.Parameters()))

	in := anyseq.ConstSeqList(c, [][]anyvec.Vector{randomFrames(c, 3, 5)})
	out := enc.Transduce(in).Output()
	require.NotEmpty(t, out)
	assert.Equal(t, 6, out[0].Packed.Len())
}

func TestLoadErrors(t *testing.T) {
	docs := map[string]string{
		"unknown tag": `
encoder: !GRUEncoder
  layers: 2
`,
		"missing tag": `
encoder:
  layers: 2
`,
		"unknown field": `
encoder: !LSTMEncoder
  num_layers: 2
`,
		"unknown top-level field": `
encoder: !IdentityEncoder {}
decoder: !IdentityEncoder {}
`,
		"bad downsampling": `
encoder: !PyramidalLSTMEncoder
  downsampling_method: max
`,
		"bad dropout": `
encoder: !LSTMEncoder
  dropout: 1.5
`,
		"bad stride": `
encoder: !ConvBiRNNEncoder
  input_dim: 6
  stride: [1, 2, 3]
`,
		"bad channels": `
encoder: !ConvBiRNNEncoder
  input_dim: 8
  chn_dim: 3
`,
		"missing lmbd": `
encoder: !SegmentingEncoder
  embed_encoder: !IdentityEncoder {}
  segment_transducer: !SegmentPolicy {}
`,
		"bad composer": `
encoder: !SegmentingEncoder
  embed_encoder: !IdentityEncoder {}
  segment_transducer: !SegmentPolicy {composer: max}
  lmbd: {max: 1}
`,
		"no modules": `
encoder: !ModularEncoder
  input_dim: 3
`,
		"no encoder": `
defaults: {dropout: 0.1}
`,
	}
	for name, doc := range docs {
		_, _, err := Load(anyvec64.DefaultCreator{}, []byte(doc))
		assert.Error(t, err, name)
	}
}

func randomFrames(c anyvec.Creator, size, n int) []anyvec.Vector {
	res := make([]anyvec.Vector, n)
	for i := range res {
		res[i] = c.MakeVector(size)
		anyvec.Rand(res[i], anyvec.Normal, nil)
	}
	return res
}
