package anyenc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/unixpickle/anyenc/seqrnn"
)

func TestScheduleWeight(t *testing.T) {
	s := Schedule{Start: 0, Before: 5, Min: 0, Max: 1}
	for epoch, expected := range map[int]float64{
		0:  0,
		4:  0,
		5:  0,
		6:  0.002,
		10: 0.062,
		20: 1,
		50: 1,
	} {
		if actual := s.Weight(epoch); math.Abs(actual-expected) > 1e-9 {
			t.Errorf("epoch %d: expected %f but got %f", epoch, expected, actual)
		}
	}
}

func TestScheduleStartAndMin(t *testing.T) {
	s := Schedule{Start: 0.5, Before: 2, Min: 0.01, Max: 0.1}
	assert.Equal(t, 0.5, s.Weight(0))
	assert.Equal(t, 0.5, s.Weight(1))
	assert.Equal(t, 0.01, s.Weight(2))
	assert.Equal(t, 0.1, s.Weight(30))
}

func TestSchedulePhase(t *testing.T) {
	s := Schedule{Before: 5, Max: 1}
	assert.Equal(t, Warmup, s.Phase(0))
	assert.Equal(t, Warmup, s.Phase(4))
	assert.Equal(t, Ramping, s.Phase(5))
	assert.Equal(t, Ramping, s.Phase(10))
	assert.Equal(t, Saturated, s.Phase(15))
	assert.Equal(t, Saturated, s.Phase(100))
	assert.Equal(t, "ramping", Ramping.String())
}

func TestSegmentingNewEpoch(t *testing.T) {
	s := Schedule{Start: 0, Before: 5, Min: 0, Max: 1}
	enc := NewSegmentingEncoder(&IdentityEncoder{}, &recordingSegmenter{}, s)
	assert.Equal(t, 0, enc.Epoch)
	assert.Equal(t, 0.0, enc.Weight)

	var weights []float64
	for i := 0; i < 30; i++ {
		enc.NewEpoch()
		weights = append(weights, enc.Weight)
	}
	assert.Equal(t, 30, enc.Epoch)
	assert.Equal(t, 0.0, weights[3])
	assert.InDelta(t, 0.002, weights[5], 1e-9)
	assert.InDelta(t, 0.062, weights[9], 1e-9)
	for i := 1; i < len(weights); i++ {
		assert.GreaterOrEqual(t, weights[i], weights[i-1])
	}

	saturated := enc.Weight
	assert.Equal(t, 1.0, saturated)
	enc.NewEpoch()
	assert.Equal(t, saturated, enc.Weight)
}

func TestSegmentingIdempotence(t *testing.T) {
	s := Schedule{Start: 0.3, Before: 3, Min: 0, Max: 0.5}
	for n := 0; n < 15; n++ {
		advanced := NewSegmentingEncoder(&IdentityEncoder{}, &recordingSegmenter{}, s)
		for i := 0; i < n; i++ {
			advanced.NewEpoch()
		}
		direct := NewSegmentingEncoder(&IdentityEncoder{}, &recordingSegmenter{}, s)
		direct.SetEpoch(n)
		assert.Equal(t, direct.Weight, advanced.Weight, "epoch %d", n)
		assert.Equal(t, s.Weight(n), advanced.Weight, "epoch %d", n)
	}
}

func TestSegmentingForwarding(t *testing.T) {
	p := testParams()
	embed := NewLSTMEncoder(p, LSTMConfig{Dropout: 0.2})
	seg := &recordingSegmenter{}
	enc := NewSegmentingEncoder(embed, seg, Schedule{Start: 0.25, Before: 2, Max: 1})

	enc.SetTrain(true)
	assert.True(t, seg.Train)
	assert.Equal(t, 0.2, embed.Builder.(*seqrnn.BiRNN).Dropout.Prob)
	enc.SetTrain(false)
	assert.False(t, seg.Train)

	in := randomSeqs(p.Creator, 4, []int{3, 2})
	out := enc.Transduce(in)
	assert.Equal(t, out, seg.Segmand)
	assert.Equal(t, []int{3, 2}, seqLengths(out))

	assert.Nil(t, enc.ReinforceLoss(3))
	assert.Equal(t, 3.0, seg.Reward)
	assert.Equal(t, 0.25, seg.Weight)

	assert.Equal(t, len(embed.Parameters()), len(enc.Parameters()))
}
