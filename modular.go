package anyenc

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m ModularEncoder
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModularEncoder)
	var l encoderList
	serializer.RegisterTypedDeserializer(l.SerializerType(), deserializeEncoderList)
}

// ModularEncoder chains a list of encoders, feeding the
// output of each module into the next one.
//
// InputDim must equal the input dimension of the first
// module.
// This is enforced by the config loader, not by the
// encoder itself (see SharedParams).
type ModularEncoder struct {
	InputDim int
	Modules  []Encoder
}

// DeserializeModularEncoder deserializes a ModularEncoder.
func DeserializeModularEncoder(d []byte) (*ModularEncoder, error) {
	var inputDim serializer.Int
	var modules encoderList
	if err := serializer.DeserializeAny(d, &inputDim, &modules); err != nil {
		return nil, essentials.AddCtx("deserialize ModularEncoder", err)
	}
	return &ModularEncoder{InputDim: int(inputDim), Modules: modules}, nil
}

// SharedParams returns groups of config keys which must
// hold the same value.
func (m *ModularEncoder) SharedParams() [][]string {
	return [][]string{{"input_dim", "modules.0.input_dim"}}
}

// Transduce applies every module in order.
// With no modules, in is returned as-is.
func (m *ModularEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	for _, module := range m.Modules {
		in = module.Transduce(in)
	}
	return in
}

// SetTrain sets the mode of every module.
func (m *ModularEncoder) SetTrain(train bool) {
	for _, module := range m.Modules {
		module.SetTrain(train)
	}
}

// ReinforceLoss sums the reinforcement losses of the
// modules.
// It returns nil if no module produces a loss.
func (m *ModularEncoder) ReinforceLoss(reward float64) anydiff.Res {
	var res anydiff.Res
	for _, module := range m.Modules {
		loss := module.ReinforceLoss(reward)
		if loss == nil {
			continue
		}
		if res == nil {
			res = loss
		} else {
			res = anydiff.Add(res, loss)
		}
	}
	return res
}

// NewEpoch forwards the end of an epoch to every module
// that implements Epocher.
func (m *ModularEncoder) NewEpoch() {
	for _, module := range m.Modules {
		if e, ok := module.(Epocher); ok {
			e.NewEpoch()
		}
	}
}

// Parameters returns the parameters of every module that
// implements anynet.Parameterizer.
func (m *ModularEncoder) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, module := range m.Modules {
		if p, ok := module.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a ModularEncoder with the serializer package.
func (m *ModularEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.ModularEncoder"
}

// Serialize serializes the encoder.
// This fails if any module is not a
// serializer.Serializer.
func (m *ModularEncoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Int(m.InputDim), encoderList(m.Modules))
}

type encoderList []Encoder

func deserializeEncoderList(d []byte) (encoderList, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	res := make(encoderList, len(slice))
	for i, x := range slice {
		enc, ok := x.(Encoder)
		if !ok {
			return nil, fmt.Errorf("not an Encoder: %T", x)
		}
		res[i] = enc
	}
	return res, nil
}

func (e encoderList) SerializerType() string {
	return "github.com/unixpickle/anyenc.encoderList"
}

func (e encoderList) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(e))
	for i, enc := range e {
		s, ok := enc.(serializer.Serializer)
		if !ok {
			return nil, fmt.Errorf("module %d is not a Serializer: %T", i, enc)
		}
		slice[i] = s
	}
	return serializer.SerializeSlice(slice)
}
