package anyenc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// Defaults stores the model-wide hyperparameters which
// encoders fall back on when a config leaves them unset.
type Defaults struct {
	LayerDim int
	Dropout  float64
}

// Params is the parameter store shared by the encoders of
// a model.
//
// Encoders register their learnable variables with the
// store when they are constructed, so that a training
// loop can find every variable in one place.
type Params struct {
	Creator  anyvec.Creator
	Defaults Defaults

	vars []*anydiff.Var
	seen map[*anydiff.Var]bool
}

// NewParams creates an empty parameter store.
func NewParams(c anyvec.Creator, d Defaults) *Params {
	return &Params{Creator: c, Defaults: d, seen: map[*anydiff.Var]bool{}}
}

// Add registers variables with the store.
// Variables which are already registered are skipped.
func (p *Params) Add(vars ...*anydiff.Var) {
	if p.seen == nil {
		p.seen = map[*anydiff.Var]bool{}
	}
	for _, v := range vars {
		if !p.seen[v] {
			p.seen[v] = true
			p.vars = append(p.vars, v)
		}
	}
}

// AddAll registers the parameters of every Parameterizer.
//
// This is used to adopt encoders which were deserialized
// rather than constructed.
func (p *Params) AddAll(objs ...interface{}) {
	for _, obj := range objs {
		if param, ok := obj.(anynet.Parameterizer); ok {
			p.Add(param.Parameters()...)
		}
	}
}

// Parameters returns the registered variables in the
// order they were added.
func (p *Params) Parameters() []*anydiff.Var {
	return append([]*anydiff.Var{}, p.vars...)
}

// NumParams returns the total number of scalar values in
// the registered variables.
func (p *Params) NumParams() int {
	var res int
	for _, v := range p.vars {
		res += v.Vector.Len()
	}
	return res
}

func (p *Params) layerDim(dim int) int {
	if dim != 0 {
		return dim
	}
	return p.Defaults.LayerDim
}

func (p *Params) dropout(prob float64) float64 {
	if prob != 0 {
		return prob
	}
	return p.Defaults.Dropout
}
