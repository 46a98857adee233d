package anyenc

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/serializer"
)

func init() {
	var i IdentityEncoder
	serializer.RegisterTypedDeserializer(i.SerializerType(), DeserializeIdentityEncoder)
}

// IdentityEncoder returns its input unchanged.
type IdentityEncoder struct {
	BaseEncoder
}

// DeserializeIdentityEncoder deserializes an
// IdentityEncoder.
func DeserializeIdentityEncoder(d []byte) (*IdentityEncoder, error) {
	return &IdentityEncoder{}, nil
}

// Transduce returns in.
func (i *IdentityEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	return in
}

// SetTrain does nothing.
func (i *IdentityEncoder) SetTrain(train bool) {
}

// Parameters returns nil.
func (i *IdentityEncoder) Parameters() []*anydiff.Var {
	return nil
}

// SerializerType returns the unique ID used to serialize
// an IdentityEncoder with the serializer package.
func (i *IdentityEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.IdentityEncoder"
}

// Serialize serializes the encoder.
func (i *IdentityEncoder) Serialize() ([]byte, error) {
	return []byte{}, nil
}
