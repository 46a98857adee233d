package enctrain

import (
	"context"

	"github.com/unixpickle/anyenc"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
	"k8s.io/klog/v2"
)

// EpochStatus summarizes a finished epoch.
type EpochStatus struct {
	Epoch int

	// TrainCost is the mean batch cost during the epoch.
	TrainCost float64

	// ValidationLoss is the average loss per output
	// vector on the validation samples, or 0 if there are
	// none.
	ValidationLoss float64
}

// A Loop trains an encoder one epoch at a time.
//
// An epoch is a single pass over the shuffled samples.
// After each epoch, training mode is disabled, the
// validation loss is measured, and the encoder (if it is
// an anyenc.Epocher) is told that a new epoch has begun.
type Loop struct {
	Trainer *Trainer

	// Transformer, if non-nil, is used to transform each
	// gradient before the step.
	Transformer anysgd.Transformer

	Rater   anysgd.Rater
	Samples SampleList

	// BatchSize is the mini-batch size.
	// If it is 0, then the entire sample list is used for
	// every step.
	BatchSize int

	// Validation may be nil.
	Validation SampleList

	// StatusFunc, if non-nil, is called after every epoch.
	StatusFunc func(s *EpochStatus)

	// NumEpochs counts the finished epochs.
	// It is used to compute the epoch for Rater.
	NumEpochs int
}

// Run runs the given number of epochs.
//
// If ctx is done before all the epochs finish, Run stops
// before the next batch and returns ctx.Err().
// An interrupted epoch does not count as finished.
func (l *Loop) Run(ctx context.Context, epochs int) error {
	if l.Samples.Len() == 0 {
		panic("cannot train with empty sample list")
	}
	defer l.Trainer.Encoder.SetTrain(false)
	for i := 0; i < epochs; i++ {
		status, err := l.epoch(ctx)
		if err != nil {
			return err
		}
		klog.V(1).Infof("epoch %d: cost=%f validation=%f", status.Epoch,
			status.TrainCost, status.ValidationLoss)
		if l.StatusFunc != nil {
			l.StatusFunc(status)
		}
	}
	return nil
}

func (l *Loop) epoch(ctx context.Context) (*EpochStatus, error) {
	l.Trainer.Encoder.SetTrain(true)
	anysgd.Shuffle(l.Samples)

	batchSize := l.BatchSize
	if batchSize == 0 {
		batchSize = l.Samples.Len()
	}
	var costSum float64
	var numBatches int
	for i := 0; i < l.Samples.Len(); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(l.Samples.Len(), i+batchSize)
		batch, err := l.Trainer.Fetch(l.Samples.Slice(i, end))
		if err != nil {
			return nil, essentials.AddCtx("train epoch", err)
		}
		grad := l.Trainer.Gradient(batch)
		if l.Transformer != nil {
			grad = l.Transformer.Transform(grad)
		}
		progress := float64(l.NumEpochs) + float64(i)/float64(l.Samples.Len())
		for _, v := range grad {
			grad.Scale(v.Creator().MakeNumeric(-l.Rater.Rate(progress)))
			break
		}
		grad.AddToVars()

		cost := numericFloat(l.Trainer.LastCost)
		klog.V(2).Infof("epoch %d batch %d: cost=%f", l.NumEpochs, numBatches, cost)
		costSum += cost
		numBatches++
	}

	l.Trainer.Encoder.SetTrain(false)
	status := &EpochStatus{
		Epoch:     l.NumEpochs,
		TrainCost: costSum / float64(numBatches),
	}
	if l.Validation != nil && l.Validation.Len() > 0 {
		eval := &LossEval{Trainer: l.Trainer, Samples: l.Validation, BatchSize: l.BatchSize}
		loss, err := eval.eval()
		if err != nil {
			return nil, essentials.AddCtx("train epoch", err)
		}
		status.ValidationLoss = loss
	}

	if e, ok := l.Trainer.Encoder.(anyenc.Epocher); ok {
		e.NewEpoch()
	}
	l.NumEpochs++
	return status, nil
}
