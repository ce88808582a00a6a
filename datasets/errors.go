package datasets

import "errors"

var (
	// ErrNotImplemented is reported by UnimplementedSource.
	ErrNotImplemented = errors.New("datasets: not implemented")

	ErrNilSource         = errors.New("datasets: nil source")
	ErrInvalidTrainRatio = errors.New("datasets: train ratio must be < 1.0")
	ErrInvalidBatchSize  = errors.New("datasets: batch size must be > 0")

	// ErrUnknownLabel is returned when a label is not part of the vocabulary.
	ErrUnknownLabel = errors.New("datasets: unknown label")

	// ErrMissingColumns is returned when the CSV header lacks a required column.
	ErrMissingColumns = errors.New("datasets: columns do not match the expected format")

	// ErrNoTrainBatches and ErrNoTestBatches are returned when the batch size
	// is larger than the corresponding split.
	ErrNoTrainBatches = errors.New("datasets: zero train batches")
	ErrNoTestBatches  = errors.New("datasets: zero test batches")
)
