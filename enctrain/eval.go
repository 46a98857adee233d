package enctrain

import (
	"errors"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// LossEval measures the supervised loss of a Trainer on
// held-out samples.
type LossEval struct {
	Trainer *Trainer
	Samples SampleList

	// BatchSize is the number of samples to evaluate at
	// once.
	// If it is 0, all samples are evaluated at once.
	BatchSize int
}

// Eval disables training mode and returns the average
// loss per output vector.
func (l *LossEval) Eval() (float64, error) {
	l.Trainer.Encoder.SetTrain(false)
	return l.eval()
}

func (l *LossEval) eval() (float64, error) {
	if l.Samples.Len() == 0 {
		return 0, errors.New("evaluate loss: no samples")
	}
	batchSize := l.BatchSize
	if batchSize == 0 {
		batchSize = l.Samples.Len()
	}
	var total float64
	var count int
	for i := 0; i < l.Samples.Len(); i += batchSize {
		end := min(l.Samples.Len(), i+batchSize)
		batch, err := l.Trainer.Fetch(l.Samples.Slice(i, end))
		if err != nil {
			return 0, essentials.AddCtx("evaluate loss", err)
		}
		cost, n := l.Trainer.supervisedCost(batch.(*Batch))
		total += numericFloat(anyvec.Sum(cost.Output()))
		count += n
	}
	if count == 0 {
		return 0, errors.New("evaluate loss: no output vectors")
	}
	return total / float64(count), nil
}
