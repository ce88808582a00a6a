package datasets

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/gocarina/gocsv"
)

// RequiredColumns lists the header columns a dataset CSV must contain.
var RequiredColumns = []string{"post_id", "tag_name", "tag_id", "tag_position", "title"}

// Record is one labeled post/tag row of the CSV source.
type Record struct {
	PostID      string `csv:"post_id"`
	TagName     string `csv:"tag_name"`
	TagID       int    `csv:"tag_id"`
	TagPosition int    `csv:"tag_position"`
	Title       string `csv:"title"`
}

// Preprocessor maps a slice of raw titles to model ready texts. It must return
// a slice of the same length, in the same order.
type Preprocessor func(texts []string) []string

// Identity returns a copy of texts.
func Identity(texts []string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	return out
}

// LoadDataset reads the CSV file at filename and keeps the canonical records:
// tag_position == 0, and only for tags seen at least minSamplesPerLabel times
// among those.
func LoadDataset(filename string, minSamplesPerLabel int) ([]Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", filename, err)
	}
	defer file.Close()

	records, err := ParseDataset(file, minSamplesPerLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return records, nil
}

var utf8BOM = []byte("\ufeff")

// ParseDataset is LoadDataset for an already opened CSV stream.
func ParseDataset(r io.Reader, minSamplesPerLabel int) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	// Spreadsheet exports often lead with a UTF-8 byte order mark.
	data = bytes.TrimPrefix(data, utf8BOM)

	header, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(header, RequiredColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrMissingColumns, missing)
	}

	var all []Record
	if err := gocsv.UnmarshalBytes(data, &all); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}

	return filterTagsWithLessThan(minSamplesPerLabel)(filterTagPosition(0)(all)), nil
}

type recordFilter func([]Record) []Record

// filterTagPosition keeps the records at the given tag position.
func filterTagPosition(position int) recordFilter {
	return func(records []Record) []Record {
		out := make([]Record, 0, len(records))
		for _, r := range records {
			if r.TagPosition == position {
				out = append(out, r)
			}
		}
		return out
	}
}

// filterTagsWithLessThan drops records whose tag appears fewer than n times.
func filterTagsWithLessThan(n int) recordFilter {
	return func(records []Record) []Record {
		counts := CountTags(records)
		out := make([]Record, 0, len(records))
		for _, r := range records {
			if counts[r.TagName] >= n {
				out = append(out, r)
			}
		}
		return out
	}
}

// LocalConfig holds the parameters of a LocalDataset.
type LocalConfig struct {
	// BatchSize is the number of samples per batch. Required.
	BatchSize int

	// TrainRatio is the share of samples used for training, must be < 1.
	// Zero selects DefaultTrainRatio.
	TrainRatio float64

	// MinSamplesPerLabel drops tags seen fewer times than this.
	MinSamplesPerLabel int

	// Preprocess is applied to the texts of every batch. Defaults to Identity.
	Preprocess Preprocessor

	// Seed drives the stratified split. If zero, a time-based seed is used.
	Seed int64
}

// LocalDataset is a text categorization dataset read from a CSV file on the
// local filesystem.
//
// The split is computed once at construction. TrainBatch and TestBatch move
// unsynchronized cursors: a LocalDataset must be consumed by a single
// goroutine.
type LocalDataset struct {
	*Base

	filename   string
	preprocess Preprocessor

	records   []Record
	labelList []string

	xTrain, xTest           []string
	yTrain, yTest           [][]float32
	trainLabels, testLabels []int

	trainBatchIndex int
	testBatchIndex  int
}

var _ Source = &LocalDataset{}

// NewLocalDataset loads filename and prepares the train/test split.
func NewLocalDataset(filename string, cfg LocalConfig) (*LocalDataset, error) {
	records, err := LoadDataset(filename, cfg.MinSamplesPerLabel)
	if err != nil {
		return nil, err
	}
	ds, err := newLocalDataset(records, cfg)
	if err != nil {
		return nil, err
	}
	ds.filename = filename
	return ds, nil
}

// NewLocalDatasetFromReader is NewLocalDataset for an already opened CSV stream.
func NewLocalDatasetFromReader(r io.Reader, cfg LocalConfig) (*LocalDataset, error) {
	records, err := ParseDataset(r, cfg.MinSamplesPerLabel)
	if err != nil {
		return nil, err
	}
	return newLocalDataset(records, cfg)
}

func newLocalDataset(records []Record, cfg LocalConfig) (*LocalDataset, error) {
	if cfg.TrainRatio == 0 {
		cfg.TrainRatio = DefaultTrainRatio
	}
	if cfg.Preprocess == nil {
		cfg.Preprocess = Identity
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	ds := &LocalDataset{
		preprocess: cfg.Preprocess,
		records:    records,
	}
	base, err := NewBase(ds, cfg.BatchSize, cfg.TrainRatio)
	if err != nil {
		return nil, err
	}
	base.Name = "LocalDataset"
	ds.Base = base

	if n := ds.NumTrainBatches(); n <= 0 {
		return nil, fmt.Errorf("%w: %d train samples for batch size %d", ErrNoTrainBatches, ds.NumTrainSamples(), cfg.BatchSize)
	}
	if n := ds.NumTestBatches(); n <= 0 {
		return nil, fmt.Errorf("%w: %d test samples for batch size %d", ErrNoTestBatches, ds.NumTestSamples(), cfg.BatchSize)
	}

	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.TagName] {
			seen[r.TagName] = true
			ds.labelList = append(ds.labelList, r.TagName)
		}
	}

	tags := make([]string, len(records))
	for i, r := range records {
		tags[i] = r.TagName
	}
	labels, err := ds.ToIndexes(tags)
	if err != nil {
		return nil, err
	}
	oneHot := toCategorical(labels, len(ds.labelList))

	rng := rand.New(rand.NewSource(cfg.Seed))
	train, test := stratifiedSplit(labels, len(ds.labelList), ds.NumTrainSamples(), ds.NumTestSamples(), rng)

	ds.xTrain, ds.yTrain, ds.trainLabels = ds.gather(train, oneHot, labels)
	ds.xTest, ds.yTest, ds.testLabels = ds.gather(test, oneHot, labels)
	return ds, nil
}

func (d *LocalDataset) gather(positions []int, oneHot [][]float32, labels []int) ([]string, [][]float32, []int) {
	x := make([]string, len(positions))
	y := make([][]float32, len(positions))
	l := make([]int, len(positions))
	for i, p := range positions {
		x[i] = d.records[p].Title
		y[i] = oneHot[p]
		l[i] = labels[p]
	}
	return x, y, l
}

// toCategorical one-hot encodes label indexes.
func toCategorical(labels []int, numClasses int) [][]float32 {
	out := make([][]float32, len(labels))
	for i, label := range labels {
		row := make([]float32, numClasses)
		row[label] = 1
		out[i] = row
	}
	return out
}

// NumSamples implements Source.
func (d *LocalDataset) NumSamples() int { return len(d.records) }

// LabelList implements Source.
func (d *LocalDataset) LabelList() []string { return d.labelList }

// TrainBatch implements Source.
func (d *LocalDataset) TrainBatch() (*Batch, error) {
	batch, err := d.slice(d.xTrain, d.yTrain, d.trainBatchIndex)
	if err != nil {
		return nil, err
	}
	// When we reach the last batch, start anew.
	d.trainBatchIndex = (d.trainBatchIndex + 1) % d.NumTrainBatches()
	return batch, nil
}

// TestBatch implements Source.
func (d *LocalDataset) TestBatch() (*Batch, error) {
	batch, err := d.slice(d.xTest, d.yTest, d.testBatchIndex)
	if err != nil {
		return nil, err
	}
	d.testBatchIndex = (d.testBatchIndex + 1) % d.NumTestBatches()
	return batch, nil
}

// slice copies batch i of a split. The end index is clamped to the split
// size, so a trailing batch may be short.
func (d *LocalDataset) slice(x []string, y [][]float32, i int) (*Batch, error) {
	bs := d.BatchSize()
	start := min(i*bs, len(x))
	end := min((i+1)*bs, len(x))

	texts := d.preprocess(x[start:end])
	if len(texts) != end-start {
		return nil, fmt.Errorf("preprocess returned %d texts for %d inputs", len(texts), end-start)
	}
	labels := make([][]float32, end-start)
	for j := range labels {
		row := make([]float32, len(y[start+j]))
		copy(row, y[start+j])
		labels[j] = row
	}
	return &Batch{X: texts, Y: labels}, nil
}

// Filename returns the CSV path, empty when built from a reader.
func (d *LocalDataset) Filename() string { return d.filename }

// Records returns a copy of the filtered records, in file order.
func (d *LocalDataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// TrainTexts returns a copy of the raw train titles, in split order.
func (d *LocalDataset) TrainTexts() []string { return append([]string(nil), d.xTrain...) }

// TestTexts returns a copy of the raw test titles, in split order.
func (d *LocalDataset) TestTexts() []string { return append([]string(nil), d.xTest...) }

// TrainLabels returns the label index of every train sample.
func (d *LocalDataset) TrainLabels() []int { return append([]int(nil), d.trainLabels...) }

// TestLabels returns the label index of every test sample.
func (d *LocalDataset) TestLabels() []int { return append([]int(nil), d.testLabels...) }
