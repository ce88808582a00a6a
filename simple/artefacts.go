package simple

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Artefact file names inside a model directory.
const (
	ParamsFile     = "params.json"
	LabelIndexFile = "labels_index.json"
	WeightsFile    = "model.gob"
)

// ErrUnknownIndex is returned when a predicted index has no label.
var ErrUnknownIndex = errors.New("simple: index not in label map")

// weightsFormat is the gob payload of WeightsFile.
type weightsFormat struct {
	LayerSizes []int
	Weights    [][][]float32
	Biases     [][]float32
}

// SaveArtefacts writes the model parameters, weights and the index -> label
// map into dir, creating it if needed. Every file is written atomically.
func (m *Model) SaveArtefacts(dir string, indexToLabel map[int]string) error {
	if dir == "" {
		return fmt.Errorf("empty artefacts directory")
	}
	if len(indexToLabel) != m.Config.NumLabels {
		return fmt.Errorf("label map has %d entries, model has %d labels", len(indexToLabel), m.Config.NumLabels)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	if err := writeFileAtomic(filepath.Join(dir, ParamsFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m.Config)
	}); err != nil {
		return err
	}

	// Keys are strings so the file reads the same as any JSON label map.
	labels := make(map[string]string, len(indexToLabel))
	for i, label := range indexToLabel {
		labels[strconv.Itoa(i)] = label
	}
	if err := writeFileAtomic(filepath.Join(dir, LabelIndexFile), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(labels)
	}); err != nil {
		return err
	}

	return writeFileAtomic(filepath.Join(dir, WeightsFile), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&weightsFormat{
			LayerSizes: m.layerSizes,
			Weights:    m.weights,
			Biases:     m.biases,
		})
	})
}

// writeFileAtomic writes path through a temp file in the same directory and
// renames it into place once write succeeded.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := write(tmpFile); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file for %s: %w", path, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}

// Predictor serves label predictions from a trained model.
type Predictor struct {
	Model        *Model
	IndexToLabel map[int]string

	// TopK is the number of labels returned per text. Defaults to 5.
	TopK int
}

// LoadArtefacts reads a model directory written by SaveArtefacts.
func LoadArtefacts(dir string) (*Predictor, error) {
	var cfg Config
	if err := readJSON(filepath.Join(dir, ParamsFile), &cfg); err != nil {
		return nil, err
	}
	model, err := NewModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid params in %s: %w", dir, err)
	}

	fh, err := os.Open(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	defer fh.Close()
	var wf weightsFormat
	if err := gob.NewDecoder(fh).Decode(&wf); err != nil {
		return nil, fmt.Errorf("decode weights %s: %w", fh.Name(), err)
	}
	if len(wf.LayerSizes) != len(model.layerSizes) {
		return nil, fmt.Errorf("weights have %d layers, params describe %d", len(wf.LayerSizes), len(model.layerSizes))
	}
	for i := range wf.LayerSizes {
		if wf.LayerSizes[i] != model.layerSizes[i] {
			return nil, fmt.Errorf("layer %d size mismatch: weights=%d params=%d", i, wf.LayerSizes[i], model.layerSizes[i])
		}
	}
	if err := checkWeightShapes(model.layerSizes, wf); err != nil {
		return nil, fmt.Errorf("weights in %s: %w", dir, err)
	}
	model.weights = wf.Weights
	model.biases = wf.Biases

	var raw map[string]string
	if err := readJSON(filepath.Join(dir, LabelIndexFile), &raw); err != nil {
		return nil, err
	}
	indexToLabel := make(map[int]string, len(raw))
	for k, label := range raw {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, err)
		}
		if i < 0 || i >= cfg.NumLabels {
			return nil, fmt.Errorf("label index %d out of range [0, %d)", i, cfg.NumLabels)
		}
		indexToLabel[i] = label
	}
	if len(indexToLabel) != cfg.NumLabels {
		return nil, fmt.Errorf("label map has %d entries, model has %d labels", len(indexToLabel), cfg.NumLabels)
	}

	return &Predictor{Model: model, IndexToLabel: indexToLabel, TopK: 5}, nil
}

// checkWeightShapes verifies every matrix and bias vector matches layerSizes.
func checkWeightShapes(layerSizes []int, wf weightsFormat) error {
	layers := len(layerSizes) - 1
	if len(wf.Weights) != layers || len(wf.Biases) != layers {
		return fmt.Errorf("expected %d layers, got %d weights and %d biases", layers, len(wf.Weights), len(wf.Biases))
	}
	for l := 0; l < layers; l++ {
		in, out := layerSizes[l], layerSizes[l+1]
		if len(wf.Weights[l]) != out || len(wf.Biases[l]) != out {
			return fmt.Errorf("layer %d: expected %d outputs", l, out)
		}
		for _, row := range wf.Weights[l] {
			if len(row) != in {
				return fmt.Errorf("layer %d: expected %d inputs, got %d", l, in, len(row))
			}
		}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Predict returns the TopK label indexes of every text, most probable first.
func (p *Predictor) Predict(texts []string) ([][]int, error) {
	k := p.TopK
	if k <= 0 {
		k = 5
	}
	return p.Model.PredictTexts(texts, k)
}

// Labels resolves label indexes through the index -> label map.
func (p *Predictor) Labels(indexes []int) ([]string, error) {
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		label, ok := p.IndexToLabel[idx]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
		}
		out[i] = label
	}
	return out, nil
}

// LabelList returns the labels ordered by index.
func (p *Predictor) LabelList() []string {
	idx := make([]int, 0, len(p.IndexToLabel))
	for i := range p.IndexToLabel {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for j, i := range idx {
		out[j] = p.IndexToLabel[i]
	}
	return out
}
