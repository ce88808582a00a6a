package datasets

// This file defines the contract every text categorization dataset in the
// repository implements, and the arithmetic shared by all of them.
//
// A dataset is split in two layers:
//
// Source
//   - The four data-acquisition primitives: sample count, ordered label list,
//     next train batch and next test batch.
//   - Concrete datasets (LocalDataset) implement it. UnimplementedSource is
//     the empty placeholder whose methods all fail.
//
// Base
//   - Sample and batch arithmetic derived from the Source and the configured
//     batch size / train ratio.
//   - The label <-> index bijection built from the label list.
//   - Sequence views used by training loops.
//
// Batches are pulled through a per-split cursor that wraps silently. None of
// the types in this package are safe for concurrent use: a dataset instance is
// expected to have a single consumer.

import (
	"fmt"
	"math"
)

// Batch is one slice of a split: preprocessed texts and their one-hot labels.
// len(X) == len(Y) and every Y row has length NumLabels().
type Batch struct {
	X []string
	Y [][]float32
}

// Len returns the number of examples in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.X)
}

// Source provides the data-acquisition primitives of a dataset.
type Source interface {
	// NumSamples returns the dataset size after filtering.
	NumSamples() int
	// LabelList returns the ordered, duplicate free label vocabulary.
	LabelList() []string
	// TrainBatch returns the next train batch and advances the train cursor.
	TrainBatch() (*Batch, error)
	// TestBatch returns the next test batch and advances the test cursor.
	TestBatch() (*Batch, error)
}

// UnimplementedSource is a Source with no data. NumSamples and LabelList panic
// with ErrNotImplemented, the batch methods return it.
type UnimplementedSource struct{}

func (UnimplementedSource) NumSamples() int { panic(ErrNotImplemented) }

func (UnimplementedSource) LabelList() []string { panic(ErrNotImplemented) }

func (UnimplementedSource) TrainBatch() (*Batch, error) { return nil, ErrNotImplemented }

func (UnimplementedSource) TestBatch() (*Batch, error) { return nil, ErrNotImplemented }

// DefaultTrainRatio is used by LocalConfig when TrainRatio is left at zero.
const DefaultTrainRatio = 0.8

// Base implements the source independent part of a dataset.
type Base struct {
	// Name is used by String. Defaults to "Base".
	Name string

	src        Source
	batchSize  int
	trainRatio float64
}

// NewBase validates the batching parameters and wraps src.
// trainRatio must be strictly lower than 1.
func NewBase(src Source, batchSize int, trainRatio float64) (*Base, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if !(trainRatio < 1.0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidTrainRatio, trainRatio)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	return &Base{
		Name:       "Base",
		src:        src,
		batchSize:  batchSize,
		trainRatio: trainRatio,
	}, nil
}

// BatchSize returns the configured number of samples per batch.
func (b *Base) BatchSize() int { return b.batchSize }

// TrainRatio returns the configured share of samples used for training.
func (b *Base) TrainRatio() float64 { return b.trainRatio }

// NumSamples forwards to the Source.
func (b *Base) NumSamples() int { return b.src.NumSamples() }

// NumLabels returns the vocabulary size.
func (b *Base) NumLabels() int { return len(b.src.LabelList()) }

// NumTrainSamples returns floor(NumSamples * TrainRatio).
func (b *Base) NumTrainSamples() int {
	return integerFloor(float64(b.src.NumSamples()) * b.trainRatio)
}

// NumTestSamples returns the samples left over once the train split has been
// floored. It is computed from NumTrainSamples and not from (1 - TrainRatio).
func (b *Base) NumTestSamples() int {
	return integerFloor(float64(b.src.NumSamples() - b.NumTrainSamples()))
}

// NumTrainBatches returns the number of full train batches.
func (b *Base) NumTrainBatches() int {
	return integerFloor(float64(b.NumTrainSamples()) / float64(b.batchSize))
}

// NumTestBatches returns the number of full test batches.
func (b *Base) NumTestBatches() int {
	return integerFloor(float64(b.NumTestSamples()) / float64(b.batchSize))
}

// TrainBatch forwards to the Source.
func (b *Base) TrainBatch() (*Batch, error) { return b.src.TrainBatch() }

// TestBatch forwards to the Source.
func (b *Base) TestBatch() (*Batch, error) { return b.src.TestBatch() }

// IndexToLabel maps every vocabulary index to its label.
func (b *Base) IndexToLabel() map[int]string {
	labels := b.src.LabelList()
	m := make(map[int]string, len(labels))
	for i, label := range labels {
		m[i] = label
	}
	return m
}

// LabelToIndex is the inverse of IndexToLabel.
func (b *Base) LabelToIndex() map[string]int {
	indexToLabel := b.IndexToLabel()
	m := make(map[string]int, len(indexToLabel))
	for i, label := range indexToLabel {
		m[label] = i
	}
	return m
}

// ToIndexes converts labels to vocabulary indexes, preserving order. It fails
// on the first label that is not part of the vocabulary.
func (b *Base) ToIndexes(labels []string) ([]int, error) {
	labelToIndex := b.LabelToIndex()
	indexes := make([]int, len(labels))
	for i, label := range labels {
		idx, ok := labelToIndex[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
		}
		indexes[i] = idx
	}
	return indexes, nil
}

// TrainSequence returns a Sequence over the train batches.
func (b *Base) TrainSequence() *Sequence {
	return NewSequence(b.src.TrainBatch, b.NumTrainBatches)
}

// TestSequence returns a Sequence over the test batches.
func (b *Base) TestSequence() *Sequence {
	return NewSequence(b.src.TestBatch, b.NumTestBatches)
}

func (b *Base) String() string {
	return fmt.Sprintf("%s(n_train_samples: %d, n_test_samples: %d, n_labels: %d)",
		b.Name, b.NumTrainSamples(), b.NumTestSamples(), b.NumLabels())
}

func integerFloor(v float64) int {
	return int(math.Floor(v))
}
