package seqrnn

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c ConvBiRNN
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConvBiRNN)
}

// ConvShape describes the convolution in a ConvBiRNN.
//
// Every input frame is a Freq x Channels tensor stored
// depth-minor.
type ConvShape struct {
	Freq     int
	Channels int

	Filters    int
	FilterTime int
	FilterFreq int
	StrideTime int
	StrideFreq int
}

// ConvBiRNN convolves every sequence over time and
// frequency, then feeds the rows of the result into a
// BiRNN.
//
// The frames of a sequence are stacked into an image whose
// rows are timesteps.
// A sequence with fewer frames than the filter is tall
// produces no output frames.
type ConvBiRNN struct {
	// Conv is a template for the convolution.
	// Its InputHeight is replaced with the length of each
	// sequence.
	Conv *anyconv.Conv

	RNN *BiRNN
}

// DeserializeConvBiRNN deserializes a ConvBiRNN.
func DeserializeConvBiRNN(d []byte) (*ConvBiRNN, error) {
	var res ConvBiRNN
	if err := serializer.DeserializeAny(d, &res.Conv, &res.RNN); err != nil {
		return nil, essentials.AddCtx("deserialize ConvBiRNN", err)
	}
	return &res, nil
}

// NewConvBiRNN creates a randomized ConvBiRNN.
func NewConvBiRNN(c anyvec.Creator, shape ConvShape, layers, hidden int) *ConvBiRNN {
	if shape.StrideTime < 1 || shape.StrideFreq < 1 {
		panic("convolution strides must be positive")
	}
	conv := &anyconv.Conv{
		FilterCount:  shape.Filters,
		FilterWidth:  shape.FilterFreq,
		FilterHeight: shape.FilterTime,
		StrideX:      shape.StrideFreq,
		StrideY:      shape.StrideTime,
		InputWidth:   shape.Freq,
		InputHeight:  shape.FilterTime,
		InputDepth:   shape.Channels,
	}
	conv.InitRand(c)
	rowSize := conv.OutputWidth() * conv.OutputDepth()
	if rowSize == 0 {
		panic("convolution produces empty frames")
	}
	return &ConvBiRNN{
		Conv: conv,
		RNN:  NewBiRNN(c, layers, rowSize, hidden),
	}
}

// OutputLen returns the number of frames produced for a
// sequence of the given length.
func (c *ConvBiRNN) OutputLen(length int) int {
	if length < c.Conv.FilterHeight {
		return 0
	}
	return 1 + (length-c.Conv.FilterHeight)/c.Conv.StrideY
}

// Transduce applies the convolution and then the BiRNN.
func (c *ConvBiRNN) Transduce(in anyseq.Seq) anyseq.Seq {
	frameSize := c.Conv.InputWidth * c.Conv.InputDepth
	convolved := PerSeq(in, func(seqs [][]anydiff.Res) [][]anydiff.Res {
		res := make([][]anydiff.Res, len(seqs))
		for i, frames := range seqs {
			if c.OutputLen(len(frames)) == 0 {
				continue
			}
			if size := frames[0].Output().Len(); size != frameSize {
				panic(fmt.Sprintf("expected frame size %d but got %d", frameSize, size))
			}
			conv := *c.Conv
			conv.InputHeight = len(frames)
			conv.Conver = anyconv.CurrentConverMaker()(conv)
			image := conv.Apply(anydiff.Concat(frames...), 1)
			rowSize := conv.OutputWidth() * conv.OutputDepth()
			for row := 0; row < conv.OutputHeight(); row++ {
				res[i] = append(res[i], anydiff.Slice(image, row*rowSize, (row+1)*rowSize))
			}
		}
		return res
	})
	if len(convolved.Output()) == 0 {
		return convolved
	}
	return c.RNN.Transduce(convolved)
}

// SetDropout sets the dropout of the BiRNN.
func (c *ConvBiRNN) SetDropout(p float64) {
	c.RNN.SetDropout(p)
}

// Parameters returns the convolution parameters followed
// by the BiRNN parameters.
func (c *ConvBiRNN) Parameters() []*anydiff.Var {
	return append(c.Conv.Parameters(), c.RNN.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// a ConvBiRNN with the serializer package.
func (c *ConvBiRNN) SerializerType() string {
	return "github.com/unixpickle/anyenc/seqrnn.ConvBiRNN"
}

// Serialize serializes the ConvBiRNN.
func (c *ConvBiRNN) Serialize() ([]byte, error) {
	return serializer.SerializeAny(c.Conv, c.RNN)
}
