package seqrnn

import (
	"fmt"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var b builderList
	serializer.RegisterTypedDeserializer(b.SerializerType(), deserializeBuilderList)
}

// builderList serializes a list of Builders so that it can
// be nested inside a serializer.SerializeAny call.
type builderList []Builder

func deserializeBuilderList(d []byte) (builderList, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize builder list", err)
	}
	res := make(builderList, len(slice))
	for i, x := range slice {
		b, ok := x.(Builder)
		if !ok {
			return nil, fmt.Errorf("deserialize builder list: not a Builder: %T", x)
		}
		res[i] = b
	}
	return res, nil
}

func (b builderList) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.builderList"
}

func (b builderList) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(b))
	for i, x := range b {
		slice[i] = x
	}
	return serializer.SerializeSlice(slice)
}
