// Package encyaml builds encoder graphs from tagged YAML
// documents.
//
// A document looks like this:
//
//	defaults:
//	  default_layer_dim: 256
//	  dropout: 0.2
//	encoder: !ModularEncoder
//	  input_dim: 40
//	  modules:
//	    - !PyramidalLSTMEncoder
//	      layers: 2
//	      reduce_factor: 2
//	    - !LSTMEncoder
//	      bidirectional: false
//
// Hyperparameters which are omitted (or zero) fall back on
// the defaults section.
// After the first module of a ModularEncoder, modules
// without an input_dim take the output size of the
// previous module.
package encyaml

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anyvec"
	"gopkg.in/yaml.v3"
)

// Tags of the supported node types.
const (
	IdentityTag  = "!IdentityEncoder"
	LSTMTag      = "!LSTMEncoder"
	ResidualTag  = "!ResidualLSTMEncoder"
	PyramidalTag = "!PyramidalLSTMEncoder"
	ConvTag      = "!ConvBiRNNEncoder"
	ModularTag   = "!ModularEncoder"
	SegmentTag   = "!SegmentingEncoder"
	PolicyTag    = "!SegmentPolicy"
)

// DefaultLayerDim is used when a document does not set
// default_layer_dim.
const DefaultLayerDim = 512

// Document is the top-level structure of a config.
type Document struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Encoder  yaml.Node      `yaml:"encoder"`
}

// DefaultsConfig holds the model-wide defaults.
type DefaultsConfig struct {
	DefaultLayerDim int     `yaml:"default_layer_dim"`
	Dropout         float64 `yaml:"dropout"`
}

// Load parses a document and builds its encoder.
//
// The returned Params contains the defaults and every
// parameter of the encoder.
func Load(c anyvec.Creator, data []byte) (*anyenc.Params, anyenc.Encoder, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(err, "decode encoder config")
	}
	if doc.Encoder.Kind == 0 {
		return nil, nil, errors.New("encoder config: missing encoder")
	}
	if doc.Defaults.DefaultLayerDim < 0 {
		return nil, nil, errors.Errorf("encoder config: invalid default_layer_dim %d",
			doc.Defaults.DefaultLayerDim)
	}
	if doc.Defaults.Dropout < 0 || doc.Defaults.Dropout >= 1 {
		return nil, nil, errors.Errorf("encoder config: invalid dropout %g",
			doc.Defaults.Dropout)
	}
	if doc.Defaults.DefaultLayerDim == 0 {
		doc.Defaults.DefaultLayerDim = DefaultLayerDim
	}
	params := anyenc.NewParams(c, anyenc.Defaults{
		LayerDim: doc.Defaults.DefaultLayerDim,
		Dropout:  doc.Defaults.Dropout,
	})
	b := &builder{params: params}
	enc, _, err := b.build(&doc.Encoder, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build encoder")
	}
	return params, enc, nil
}

// LoadFile is like Load, but reads the document from a
// file.
func LoadFile(c anyvec.Creator, path string) (*anyenc.Params, anyenc.Encoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read encoder config")
	}
	return Load(c, data)
}
