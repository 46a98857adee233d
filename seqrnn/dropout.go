package seqrnn

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Dropout
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDropout)
}

// A Dropout layer applies inverted dropout.
// Kept inputs are scaled up so that the expected output
// equals the input, meaning that a Dropout with a zero
// probability is exactly the identity.
type Dropout struct {
	// The probability of dropping any given input.
	Prob float64
}

// DeserializeDropout deserializes a Dropout.
func DeserializeDropout(d []byte) (*Dropout, error) {
	var prob serializer.Float64
	if err := serializer.DeserializeAny(d, &prob); err != nil {
		return nil, essentials.AddCtx("deserialize Dropout", err)
	}
	return &Dropout{Prob: float64(prob)}, nil
}

// Apply applies the layer.
func (d *Dropout) Apply(in anydiff.Res, n int) anydiff.Res {
	if d.Prob == 0 {
		return in
	}
	if d.Prob < 0 || d.Prob >= 1 {
		panic("dropout probability must be in [0, 1)")
	}
	c := in.Output().Creator()
	keep := 1 - d.Prob
	mask := c.MakeVector(in.Output().Len())
	anyvec.Rand(mask, anyvec.Uniform, nil)
	anyvec.LessThan(mask, c.MakeNumeric(keep))
	mask.Scale(c.MakeNumeric(1 / keep))
	return anydiff.Mul(in, anydiff.NewConst(mask))
}

// MapSeq applies the layer to every timestep of a
// sequence.
// If dropout is disabled, s is returned as-is.
func (d *Dropout) MapSeq(s anyseq.Seq) anyseq.Seq {
	if d == nil || d.Prob == 0 {
		return s
	}
	return anyseq.Map(s, d.Apply)
}

// SerializerType returns the unique ID used to serialize
// a Dropout with the serializer package.
func (d *Dropout) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.Dropout"
}

// Serialize serializes the Dropout.
func (d *Dropout) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Float64(d.Prob))
}
