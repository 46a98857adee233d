package anyenc

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
	"k8s.io/klog/v2"
)

func init() {
	var s SegmentingEncoder
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeSegmentingEncoder)
}

// A Segmenter groups the frames of embedded sequences
// into variable-length segments.
//
// Since segment boundaries are discrete, a Segmenter is
// trained with a reinforcement loss rather than with
// back-propagation alone.
type Segmenter interface {
	// Segment produces one vector per segment of every
	// sequence in the batch.
	Segment(in anyseq.Seq) anyseq.Seq

	// SetTrain switches between sampling segmentations and
	// picking the most likely ones.
	SetTrain(train bool)

	// ReinforceLoss computes the loss for the decisions
	// made during the last Segment call.
	// It returns nil if there is nothing to train.
	ReinforceLoss(reward, weight float64) anydiff.Res
}

// SegmentingEncoder embeds its input and then splits the
// embedded sequences into segments.
//
// The reinforcement loss of the Segmenter is weighted
// according to a curriculum Schedule, which is advanced
// by NewEpoch.
type SegmentingEncoder struct {
	Embed     Encoder
	Segmenter Segmenter
	Schedule  Schedule

	// Epoch is the number of completed epochs.
	Epoch int

	// Weight is the current reinforcement loss weight.
	Weight float64
}

// DeserializeSegmentingEncoder deserializes a
// SegmentingEncoder.
func DeserializeSegmentingEncoder(d []byte) (*SegmentingEncoder, error) {
	var res SegmentingEncoder
	var start, min, max, weight serializer.Float64
	var before, epoch serializer.Int
	err := serializer.DeserializeAny(d, &start, &before, &min, &max, &epoch, &weight,
		&res.Embed, &res.Segmenter)
	if err != nil {
		return nil, essentials.AddCtx("deserialize SegmentingEncoder", err)
	}
	res.Schedule = Schedule{
		Start:  float64(start),
		Before: int(before),
		Min:    float64(min),
		Max:    float64(max),
	}
	res.Epoch = int(epoch)
	res.Weight = float64(weight)
	return &res, nil
}

// NewSegmentingEncoder creates a SegmentingEncoder at
// epoch 0, with the weight set to s.Start.
func NewSegmentingEncoder(embed Encoder, seg Segmenter, s Schedule) *SegmentingEncoder {
	return &SegmentingEncoder{
		Embed:     embed,
		Segmenter: seg,
		Schedule:  s,
		Weight:    s.Start,
	}
}

// Transduce embeds and then segments the batch.
func (s *SegmentingEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	return s.Segmenter.Segment(s.Embed.Transduce(in))
}

// SetTrain sets the mode of the embedder and the
// segmenter.
func (s *SegmentingEncoder) SetTrain(train bool) {
	s.Embed.SetTrain(train)
	s.Segmenter.SetTrain(train)
}

// ReinforceLoss computes the segmenter's loss, weighted by
// the current Weight.
func (s *SegmentingEncoder) ReinforceLoss(reward float64) anydiff.Res {
	return s.Segmenter.ReinforceLoss(reward, s.Weight)
}

// NewEpoch increments the epoch counter and recomputes
// the weight from the schedule.
func (s *SegmentingEncoder) NewEpoch() {
	s.SetEpoch(s.Epoch + 1)
}

// SetEpoch sets the epoch counter and recomputes the
// weight from the schedule.
func (s *SegmentingEncoder) SetEpoch(epoch int) {
	s.Epoch = epoch
	old := s.Weight
	s.Weight = s.Schedule.Weight(epoch)
	if s.Weight != old {
		klog.V(1).Infof("segmenting encoder: epoch %d (%s): weight %g -> %g", epoch,
			s.Schedule.Phase(epoch), old, s.Weight)
	}
}

// Parameters returns the parameters of the embedder and
// the segmenter, if they have any.
func (s *SegmentingEncoder) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, obj := range []interface{}{s.Embed, s.Segmenter} {
		if p, ok := obj.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a SegmentingEncoder with the serializer package.
func (s *SegmentingEncoder) SerializerType() string {
	return "github.com/unixpickle/anyenc.SegmentingEncoder"
}

// Serialize serializes the encoder, including its
// progress through the schedule.
// This fails if the embedder or the segmenter is not a
// serializer.Serializer.
func (s *SegmentingEncoder) Serialize() ([]byte, error) {
	embed, ok := s.Embed.(serializer.Serializer)
	if !ok {
		return nil, errors.New("serialize SegmentingEncoder: embedder is not a Serializer")
	}
	seg, ok := s.Segmenter.(serializer.Serializer)
	if !ok {
		return nil, errors.New("serialize SegmentingEncoder: segmenter is not a Serializer")
	}
	return serializer.SerializeAny(
		serializer.Float64(s.Schedule.Start),
		serializer.Int(s.Schedule.Before),
		serializer.Float64(s.Schedule.Min),
		serializer.Float64(s.Schedule.Max),
		serializer.Int(s.Epoch),
		serializer.Float64(s.Weight),
		embed,
		seg,
	)
}
