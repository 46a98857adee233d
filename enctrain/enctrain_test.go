package enctrain

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestTrainerCost(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	samples := &SliceSampleList{
		C: c,
		Samples: []*Sample{
			{
				Input:  vecs(c, []float64{1, 2}, []float64{0, 1}),
				Output: vecs(c, []float64{0, 0}, []float64{0, 1}),
			},
			{
				Input:  vecs(c, []float64{3, 1}),
				Output: vecs(c, []float64{2, 1}),
			},
		},
	}
	trainer := &Trainer{
		Encoder: &anyenc.IdentityEncoder{},
		Cost:    anynet.MSE{},
	}
	batch, err := trainer.Fetch(samples)
	if err != nil {
		t.Fatal(err)
	}

	// Per-vector costs are 2.5, 0 and 0.5.
	actual := trainer.TotalCost(batch).Output().Data().([]float64)[0]
	if math.Abs(actual-3) > 1e-8 {
		t.Errorf("expected total 3 but got %f", actual)
	}
	trainer.Average = true
	actual = trainer.TotalCost(batch).Output().Data().([]float64)[0]
	if math.Abs(actual-1) > 1e-8 {
		t.Errorf("expected average 1 but got %f", actual)
	}

	loss, err := (&LossEval{Trainer: trainer, Samples: samples, BatchSize: 1}).Eval()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss-1) > 1e-8 {
		t.Errorf("expected loss 1 but got %f", loss)
	}
}

func TestTrainerFetchEmpty(t *testing.T) {
	trainer := &Trainer{Encoder: &anyenc.IdentityEncoder{}, Cost: anynet.MSE{}}
	_, err := trainer.Fetch(&SliceSampleList{C: anyvec64.DefaultCreator{}})
	if err == nil {
		t.Error("expected error")
	}
}

func TestTrainerReward(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	samples := &SliceSampleList{
		C: c,
		Samples: []*Sample{
			{
				Input:  vecs(c, []float64{1, 2}),
				Output: vecs(c, []float64{0, 0}),
			},
		},
	}
	enc := &rewardEncoder{}
	trainer := &Trainer{
		Encoder: enc,
		Cost:    anynet.MSE{},
		Reward: func(cost float64) float64 {
			return -cost
		},
	}
	batch, err := trainer.Fetch(samples)
	if err != nil {
		t.Fatal(err)
	}
	actual := trainer.TotalCost(batch).Output().Data().([]float64)[0]
	if enc.Reward != -2.5 {
		t.Errorf("expected reward -2.5 but got %f", enc.Reward)
	}
	if expected := 2.5 - 5.0; math.Abs(actual-expected) > 1e-8 {
		t.Errorf("expected cost %f but got %f", expected, actual)
	}
}

func TestLoopEpochs(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := &recordingEncoder{}
	trainer, samples := linearProblem(c, enc)
	var statuses []int
	loop := &Loop{
		Trainer:     trainer,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(0.01),
		Samples:     samples,
		BatchSize:   2,
		Validation:  samples,
		StatusFunc: func(s *EpochStatus) {
			statuses = append(statuses, s.Epoch)
		},
	}
	if err := loop.Run(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(statuses, []int{0, 1, 2}) {
		t.Errorf("unexpected statuses: %v", statuses)
	}
	if loop.NumEpochs != 3 {
		t.Errorf("expected 3 epochs but got %d", loop.NumEpochs)
	}
	var expected []string
	for i := 0; i < 3; i++ {
		expected = append(expected, "train", "eval", "epoch")
	}
	expected = append(expected, "eval")
	if !reflect.DeepEqual(enc.Events, expected) {
		t.Errorf("expected events %v but got %v", expected, enc.Events)
	}
}

func TestLoopLearns(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	trainer, samples := linearProblem(c, &anyenc.IdentityEncoder{})
	eval := &LossEval{Trainer: trainer, Samples: samples}
	initial, err := eval.Eval()
	if err != nil {
		t.Fatal(err)
	}
	loop := &Loop{
		Trainer:     trainer,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(0.05),
		Samples:     samples,
	}
	if err := loop.Run(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	final, err := eval.Eval()
	if err != nil {
		t.Fatal(err)
	}
	if final >= initial/2 {
		t.Errorf("loss went from %f to %f", initial, final)
	}
}

func TestLoopCancel(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := &recordingEncoder{}
	trainer, samples := linearProblem(c, enc)
	loop := &Loop{
		Trainer: trainer,
		Rater:   anysgd.ConstRater(0.01),
		Samples: samples,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loop.Run(ctx, 5); err != context.Canceled {
		t.Errorf("unexpected error: %v", err)
	}
	if loop.NumEpochs != 0 {
		t.Errorf("expected no epochs but got %d", loop.NumEpochs)
	}
	for _, e := range enc.Events {
		if e == "epoch" {
			t.Error("unexpected NewEpoch call")
		}
	}
}

func TestLoopCTC(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	samples := &SliceSampleList{C: c}
	for _, label := range [][]int{{0, 1}, {1}, {1, 0}} {
		var in []anyvec.Vector
		for _, l := range label {
			x := []float64{-1, -1}
			x[l] = 1
			in = append(in, c.MakeVectorData(c.MakeNumericList(x)))
			in = append(in, c.MakeVector(2))
		}
		samples.Samples = append(samples.Samples, &Sample{Input: in, Label: label})
	}
	// Two labels plus a blank.
	net := anynet.Net{anynet.NewFC(c, 2, 3), anynet.LogSoftmax}
	trainer := &Trainer{
		Encoder: &anyenc.IdentityEncoder{},
		Output:  net,
		Params:  net.Parameters(),
		CTC:     true,
		Average: true,
	}
	eval := &LossEval{Trainer: trainer, Samples: samples}
	initial, err := eval.Eval()
	if err != nil {
		t.Fatal(err)
	}
	if initial <= 0 {
		t.Fatalf("expected positive loss but got %f", initial)
	}
	loop := &Loop{
		Trainer:     trainer,
		Transformer: &anysgd.Adam{},
		Rater:       anysgd.ConstRater(0.05),
		Samples:     samples,
	}
	if err := loop.Run(context.Background(), 100); err != nil {
		t.Fatal(err)
	}
	final, err := eval.Eval()
	if err != nil {
		t.Fatal(err)
	}
	if final >= initial/2 {
		t.Errorf("loss went from %f to %f", initial, final)
	}
}

// linearProblem creates a Trainer with a linear output
// layer that should learn to negate its inputs.
func linearProblem(c anyvec.Creator, enc anyenc.Encoder) (*Trainer, *SliceSampleList) {
	samples := &SliceSampleList{C: c}
	for _, seq := range [][][]float64{
		{{1, 2}, {-1, 0.5}, {0.3, 0.2}},
		{{0.5, -1}},
		{{2, 1}, {-0.5, -0.5}},
	} {
		var in, out []anyvec.Vector
		for _, x := range seq {
			in = append(in, c.MakeVectorData(c.MakeNumericList(x)))
			out = append(out, c.MakeVectorData(c.MakeNumericList([]float64{-x[0], -x[1]})))
		}
		samples.Samples = append(samples.Samples, &Sample{Input: in, Output: out})
	}
	layer := anynet.NewFC(c, 2, 2)
	return &Trainer{
		Encoder: enc,
		Output:  layer,
		Cost:    anynet.MSE{},
		Params:  layer.Parameters(),
		Average: true,
	}, samples
}

func vecs(c anyvec.Creator, data ...[]float64) []anyvec.Vector {
	var res []anyvec.Vector
	for _, d := range data {
		res = append(res, c.MakeVectorData(c.MakeNumericList(d)))
	}
	return res
}

type rewardEncoder struct {
	anyenc.IdentityEncoder
	Reward float64
}

// ReinforceLoss returns twice the reward.
func (r *rewardEncoder) ReinforceLoss(reward float64) anydiff.Res {
	r.Reward = reward
	c := anyvec64.DefaultCreator{}
	return anydiff.NewConst(c.MakeVectorData([]float64{2 * reward}))
}

type recordingEncoder struct {
	anyenc.IdentityEncoder
	Events []string
}

func (r *recordingEncoder) Transduce(in anyseq.Seq) anyseq.Seq {
	return in
}

func (r *recordingEncoder) SetTrain(train bool) {
	if train {
		r.Events = append(r.Events, "train")
	} else {
		r.Events = append(r.Events, "eval")
	}
}

func (r *recordingEncoder) NewEpoch() {
	r.Events = append(r.Events, "epoch")
}
