package datasets

import (
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Sequence is a counted view over one split of a dataset.
//
// It is NOT a random-access view: Get ignores its index and always returns the
// batch under the split's cursor, advancing it. Len reports how many batches a
// full pass contains, so a loop of Len calls to Get (or Next) visits every
// batch once, starting wherever the cursor currently is.
type Sequence struct {
	next       func() (*Batch, error)
	numBatches func() int
}

// NewSequence builds a Sequence from a batch puller and a batch counter.
func NewSequence(next func() (*Batch, error), numBatches func() int) *Sequence {
	return &Sequence{next: next, numBatches: numBatches}
}

// Len returns the number of batches in one pass.
func (s *Sequence) Len() int { return s.numBatches() }

// Get returns the next batch. idx is accepted for interface compatibility with
// index based loops and is ignored.
func (s *Sequence) Get(idx int) (*Batch, error) { return s.next() }

// Next returns the next batch.
func (s *Sequence) Next() (*Batch, error) { return s.next() }

// Vectorizer turns preprocessed texts into dense model inputs, one row per text.
type Vectorizer func(texts []string) [][]float32

// TrainDataset is the method set of gomlx's train.Dataset, so batches can be
// fed to GoMLX training loops.
type TrainDataset interface {
	Name() string
	Reset()
	Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error)
}

// TensorDataset adapts a Sequence to gomlx's train.Dataset.
//
// Yield never rewinds the underlying cursor: Reset only clears the yield count
// used when Epoch is enabled. Like Sequence it must have a single consumer.
type TensorDataset struct {
	name      string
	seq       *Sequence
	vectorize Vectorizer

	epoch   bool
	yielded int
}

var _ TrainDataset = &TensorDataset{}

// NewTensorDataset returns an endless TrainDataset over seq. vectorize turns
// the batch texts into the input tensor.
func NewTensorDataset(name string, seq *Sequence, vectorize Vectorizer) *TensorDataset {
	return &TensorDataset{name: name, seq: seq, vectorize: vectorize}
}

// Epoch makes Yield return io.EOF after seq.Len() batches, until Reset.
func (ds *TensorDataset) Epoch(enabled bool) *TensorDataset {
	ds.epoch = enabled
	return ds
}

// Name implements TrainDataset.
func (ds *TensorDataset) Name() string { return ds.name }

// Reset implements TrainDataset.
func (ds *TensorDataset) Reset() { ds.yielded = 0 }

// Yield implements TrainDataset.
func (ds *TensorDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if ds.epoch && ds.yielded >= ds.seq.Len() {
		return nil, nil, nil, io.EOF
	}
	batch, err := ds.seq.Next()
	if err != nil {
		return nil, nil, nil, err
	}
	ds.yielded++

	in, la, err := BatchTensors(batch, ds.vectorize)
	if err != nil {
		return nil, nil, nil, err
	}
	return ds, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// BatchTensors converts a batch into an input tensor shaped [batch, features]
// and a label tensor shaped [batch, num_labels].
func BatchTensors(batch *Batch, vectorize Vectorizer) (*tensors.Tensor, *tensors.Tensor, error) {
	if vectorize == nil {
		return nil, nil, fmt.Errorf("nil vectorizer")
	}
	features := vectorize(batch.X)
	if len(features) != len(batch.Y) {
		return nil, nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(features), len(batch.Y))
	}
	if len(features) == 0 {
		return nil, nil, fmt.Errorf("empty batch")
	}
	dim := len(features[0])
	for i := range features {
		if len(features[i]) != dim {
			return nil, nil, fmt.Errorf("inconsistent input dimensions at example %d: expected %d, got %d",
				i, dim, len(features[i]))
		}
	}
	return tensors.FromAnyValue(features), tensors.FromAnyValue(batch.Y), nil
}
