package simple

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/Noofbiz/textcat/datasets"
)

// Config holds configurable hyperparameters for the classifier and training.
type Config struct {
	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 64 will be used.
	HiddenSizes []int `json:"hidden_sizes"`

	// InputDim is the number of hashed text features. If zero, 1024 is used.
	InputDim int `json:"input_dim"`

	// NumLabels is the size of the label vocabulary (output layer). Required.
	NumLabels int `json:"num_labels"`

	// LearningRate used by SGD (default if 0 will be set by NewModel to 0.05).
	LearningRate float64 `json:"learning_rate"`

	// Epochs to train for (default if 0 will be set by NewModel to 10).
	Epochs int `json:"epochs"`

	// Seed controls RNG for weight init. If zero, time-based seed is used.
	Seed int64 `json:"seed"`
}

// BatchSequence is the minimal interface this package requires from a dataset
// split. datasets.Sequence matches it.
type BatchSequence interface {
	// Len returns the number of batches in one pass.
	Len() int
	// Next returns the next batch of texts and one-hot labels.
	Next() (*datasets.Batch, error)
}

// Model is a small configurable MLP that classifies texts into one of
// NumLabels labels. Texts are turned into features by a HashingVectorizer of
// InputDim buckets; hidden layers use ReLU and the output layer softmax.
// Training is plain mini-batch SGD on the cross-entropy loss.
type Model struct {
	// Config used for training / initialization.
	Config Config

	// Vectorizer turns texts into the input feature vectors.
	Vectorizer *HashingVectorizer

	// layerSizes includes input size, hidden sizes, then output size.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1
	weights [][][]float32

	// biases[l] is a vector of length out for layer l -> l+1
	biases [][]float32

	rng *rand.Rand
}

// NewModel creates a new Model instance with the provided configuration.
// It initializes weights (small random values) and is ready to train.
func NewModel(cfg Config) (*Model, error) {
	if cfg.NumLabels <= 0 {
		return nil, fmt.Errorf("num labels must be > 0, got %d", cfg.NumLabels)
	}
	if cfg.InputDim < 0 {
		return nil, fmt.Errorf("input dim must be >= 0, got %d", cfg.InputDim)
	}
	if cfg.Epochs < 0 {
		return nil, fmt.Errorf("epochs must be >= 0, got %d", cfg.Epochs)
	}
	if cfg.LearningRate < 0 {
		return nil, fmt.Errorf("learning rate must be >= 0, got %v", cfg.LearningRate)
	}
	for _, n := range cfg.HiddenSizes {
		if n <= 0 {
			return nil, fmt.Errorf("hidden sizes must be > 0, got %v", cfg.HiddenSizes)
		}
	}
	// defaults
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64}
	}
	if cfg.InputDim == 0 {
		cfg.InputDim = 1024
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.05
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config:     cfg,
		Vectorizer: NewHashingVectorizer(cfg.InputDim),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, cfg.NumLabels)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float32, L)
	m.biases = make([][]float32, L)
	for l := 0; l < L; l++ {
		in := sizes[l]
		out := sizes[l+1]
		// Xavier/Glorot uniform initialization heuristic
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		mat := make([][]float32, out)
		for j := 0; j < out; j++ {
			row := make([]float32, in)
			for i := 0; i < in; i++ {
				row[i] = (m.rng.Float32()*2.0 - 1.0) * limit
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float32, out)
	}

	return m, nil
}

// activationReLU applies ReLU in-place over the slice.
func activationReLU(x []float32) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

// activationReLUDeriv returns elementwise derivative of ReLU applied to preact.
func activationReLUDeriv(preact []float32) []float32 {
	d := make([]float32, len(preact))
	for i := range preact {
		if preact[i] > 0 {
			d[i] = 1.0
		}
	}
	return d
}

// softmax replaces x with its softmax, shifted by the max for stability.
func softmax(x []float32) {
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for i := range x {
		e := math.Exp(float64(x[i] - maxV))
		x[i] = float32(e)
		sum += e
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / sum)
	}
}

// forwardSingle performs a forward pass for a single input vector, returning:
// - preActivations: list of pre-activation vectors per layer (len = L)
// - activations: list of activation vectors per layer (len = L+1, activations[0] = input)
// The last activation holds the label probabilities.
func (m *Model) forwardSingle(input []float32) (preActs [][]float32, acts [][]float32, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, errors.New("input has incorrect dimension")
	}
	L := len(m.weights)
	acts = make([][]float32, L+1)
	acts[0] = make([]float32, len(input))
	copy(acts[0], input)

	preActs = make([][]float32, L)
	for l := 0; l < L; l++ {
		inVec := acts[l]
		outDim := len(m.biases[l])
		pre := make([]float32, outDim)
		W := m.weights[l]
		b := m.biases[l]
		for j := 0; j < outDim; j++ {
			sum := b[j]
			row := W[j]
			for i, v := range inVec {
				if v != 0 {
					sum += row[i] * v
				}
			}
			pre[j] = sum
		}
		preActs[l] = pre

		act := make([]float32, outDim)
		copy(act, pre)
		if l < L-1 {
			activationReLU(act)
		} else {
			softmax(act)
		}
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// PredictProba returns the label probabilities for a batch of feature vectors.
// The returned [][]float32 has shape [batch][NumLabels].
func (m *Model) PredictProba(inputs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		_, acts, err := m.forwardSingle(in)
		if err != nil {
			return nil, err
		}
		out[i] = acts[len(acts)-1]
	}
	return out, nil
}

// PredictTexts returns, for every text, the indexes of the k most probable
// labels, most probable first.
func (m *Model) PredictTexts(texts []string, k int) ([][]int, error) {
	probs, err := m.PredictProba(m.Vectorizer.Transform(texts))
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(probs))
	for i, p := range probs {
		out[i] = topK(p, k)
	}
	return out, nil
}

// topK returns the indexes of the k largest values, largest first. Ties keep
// the lower index first.
func topK(values []float32, k int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	if k <= 0 || k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

// crossEntropy returns -log(p[label]) for a one-hot label row.
func crossEntropy(probs, oneHot []float32) float64 {
	var loss float64
	for j, y := range oneHot {
		if y > 0 {
			loss -= float64(y) * math.Log(math.Max(float64(probs[j]), 1e-12))
		}
	}
	return loss
}

// TrainWithSequence trains the model for Config.Epochs passes over seq. Each
// pass pulls seq.Len() batches, so it starts wherever the sequence cursor
// currently is. It returns the mean training loss of every epoch.
func (m *Model) TrainWithSequence(seq BatchSequence) ([]float64, error) {
	history := make([]float64, 0, m.Config.Epochs)
	for ep := 0; ep < m.Config.Epochs; ep++ {
		loss, err := m.TrainEpoch(seq)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", ep, err)
		}
		history = append(history, loss)
	}
	return history, nil
}

// TrainEpoch runs one pass of seq.Len() batches and returns the mean loss
// per sample.
func (m *Model) TrainEpoch(seq BatchSequence) (float64, error) {
	if seq == nil {
		return 0, errors.New("sequence is nil")
	}
	numBatches := seq.Len()
	if numBatches == 0 {
		return 0, errors.New("sequence has no batches")
	}

	lr := float32(m.Config.LearningRate)
	var epochLoss float64
	var seen int
	for b := 0; b < numBatches; b++ {
		batch, err := seq.Next()
		if err != nil {
			return 0, fmt.Errorf("failed to read batch %d: %w", b, err)
		}
		loss, err := m.trainBatch(m.Vectorizer.Transform(batch.X), batch.Y, lr)
		if err != nil {
			return 0, err
		}
		epochLoss += loss
		seen += batch.Len()
	}
	if seen > 0 {
		epochLoss /= float64(seen)
	}
	return epochLoss, nil
}

// trainBatch accumulates gradients over the batch and applies one averaged
// SGD update. It returns the summed loss of the batch.
func (m *Model) trainBatch(inputs, labels [][]float32, lr float32) (float64, error) {
	batchN := len(inputs)
	if batchN == 0 {
		return 0, nil
	}
	if len(labels) != batchN {
		return 0, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", batchN, len(labels))
	}

	// Initialize gradient accumulators (same shape as weights / biases)
	L := len(m.weights)
	gradW := make([][][]float32, L)
	gradB := make([][]float32, L)
	for l := 0; l < L; l++ {
		outDim := len(m.biases[l])
		inDim := len(m.weights[l][0])
		gradW[l] = make([][]float32, outDim)
		for j := 0; j < outDim; j++ {
			gradW[l][j] = make([]float32, inDim)
		}
		gradB[l] = make([]float32, outDim)
	}

	var loss float64
	for ex := 0; ex < batchN; ex++ {
		preacts, acts, err := m.forwardSingle(inputs[ex])
		if err != nil {
			return 0, err
		}
		la := labels[ex]
		outAct := acts[len(acts)-1]
		if len(la) != len(outAct) {
			return 0, fmt.Errorf("label row %d has %d entries, model has %d labels", ex, len(la), len(outAct))
		}
		loss += crossEntropy(outAct, la)

		// dLoss/dLogits = softmax - onehot
		delta := make([]float32, len(outAct))
		for j := range outAct {
			delta[j] = outAct[j] - la[j]
		}

		for l := L - 1; l >= 0; l-- {
			inAct := acts[l]
			outDim := len(delta)

			for j := 0; j < outDim; j++ {
				gradB[l][j] += delta[j]
				for i, a := range inAct {
					if a != 0 {
						gradW[l][j][i] += delta[j] * a
					}
				}
			}

			if l > 0 {
				prevLen := len(m.weights[l][0])
				newDelta := make([]float32, prevLen)
				for i := 0; i < prevLen; i++ {
					sum := float32(0.0)
					for j := 0; j < outDim; j++ {
						sum += m.weights[l][j][i] * delta[j]
					}
					newDelta[i] = sum
				}
				deriv := activationReLUDeriv(preacts[l-1])
				for i := 0; i < prevLen; i++ {
					newDelta[i] *= deriv[i]
				}
				delta = newDelta
			}
		}
	}

	// Apply averaged gradients (SGD) over the minibatch
	bInv := float32(1.0 / float64(batchN))
	for l := 0; l < L; l++ {
		for j := range m.biases[l] {
			m.biases[l][j] -= lr * gradB[l][j] * bInv
			row := m.weights[l][j]
			for i := range row {
				row[i] -= lr * gradW[l][j][i] * bInv
			}
		}
	}
	return loss, nil
}

// Evaluate runs one pass over seq and returns the mean cross-entropy loss and
// the top-1 accuracy.
func (m *Model) Evaluate(seq BatchSequence) (loss, accuracy float64, err error) {
	if seq == nil {
		return 0, 0, errors.New("sequence is nil")
	}
	var correct, seen int
	for b := 0; b < seq.Len(); b++ {
		batch, err := seq.Next()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read batch %d: %w", b, err)
		}
		probs, err := m.PredictProba(m.Vectorizer.Transform(batch.X))
		if err != nil {
			return 0, 0, err
		}
		for i, p := range probs {
			loss += crossEntropy(p, batch.Y[i])
			if batch.Y[i][topK(p, 1)[0]] > 0 {
				correct++
			}
			seen++
		}
	}
	if seen == 0 {
		return 0, 0, errors.New("sequence has no samples")
	}
	return loss / float64(seen), float64(correct) / float64(seen), nil
}
