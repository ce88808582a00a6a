// Command train fits the reference classifier on a local tagged-posts CSV,
// writes a timestamped artefacts directory and points "latest" at it so
// cmd/predict serves the newest run by default.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"github.com/Noofbiz/textcat/datasets"
	"github.com/Noofbiz/textcat/internal/config"
	"github.com/Noofbiz/textcat/internal/logger"
	"github.com/Noofbiz/textcat/simple"
)

// artefactsLayout names each run directory.
const artefactsLayout = "2006-01-02-15-04-05"

// PredictionsFile holds the per-sample test predictions of a run.
const PredictionsFile = "test_predictions.csv"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	fs *flag.FlagSet

	config       *string
	data         *string
	out          *string
	batchSize    *int
	trainRatio   *float64
	minSamples   *int
	epochs       *int
	learningRate *float64
	hidden       *string
	dims         *int
	seed         *int64
	topK         *int
	plots        *string
}

// newFlags registers the command line flags on fs.
func newFlags(fs *flag.FlagSet) *flags {
	return &flags{
		fs:           fs,
		config:       fs.String("config", "", "path to JSON config file (optional)"),
		data:         fs.String("data", "", "tagged posts CSV, or a directory holding one"),
		out:          fs.String("out", "", "directory receiving the timestamped artefact directories"),
		batchSize:    fs.Int("batch-size", 0, "samples per batch"),
		trainRatio:   fs.Float64("train-ratio", 0, "fraction of samples used for training, in [0, 1)"),
		minSamples:   fs.Int("min-samples", 0, "drop tags with fewer samples than this"),
		epochs:       fs.Int("epochs", 0, "number of training epochs"),
		learningRate: fs.Float64("learning-rate", 0, "SGD learning rate"),
		hidden:       fs.String("hidden", "", "comma separated hidden layer sizes, e.g. 64,32"),
		dims:         fs.Int("dims", 0, "hashed feature dimensions"),
		seed:         fs.Int64("seed", 0, "seed for the split and weight init"),
		topK:         fs.Int("top-k", 0, "labels written per test prediction"),
		plots:        fs.String("plots", "", "output directory for generated plots (empty disables plotting)"),
	}
}

// apply overrides cfg with the flags that were set on the command line.
func (f *flags) apply(cfg *config.Config) error {
	var err error
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.Dataset.Path = *f.data
		case "out":
			cfg.Train.ArtefactsDir = *f.out
		case "batch-size":
			cfg.Dataset.BatchSize = *f.batchSize
		case "train-ratio":
			cfg.Dataset.TrainRatio = *f.trainRatio
		case "min-samples":
			cfg.Dataset.MinSamplesPerLabel = *f.minSamples
		case "epochs":
			cfg.Train.Epochs = *f.epochs
		case "learning-rate":
			cfg.Train.LearningRate = *f.learningRate
		case "hidden":
			var sizes []int
			sizes, err = config.ParseSizes(*f.hidden)
			cfg.Train.HiddenSizes = sizes
		case "dims":
			cfg.Train.InputDim = *f.dims
		case "seed":
			cfg.Dataset.Seed = *f.seed
			cfg.Train.Seed = *f.seed
		case "top-k":
			cfg.Predict.TopK = *f.topK
		case "plots":
			cfg.Train.PlotsDir = *f.plots
		}
	})
	if err != nil {
		return fmt.Errorf("invalid -hidden: %w", err)
	}
	return cfg.Validate()
}

func run() error {
	f := newFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*f.config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := f.apply(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	_, err = trainAndSave(cfg, log)
	return err
}

// trainAndSave runs one training job described by cfg and returns the run
// directory it wrote. The run is also published as cfg.ArtefactsPath().
func trainAndSave(cfg *config.Config, log *zap.Logger) (string, error) {
	dataPath, err := resolveDataPath(cfg.Dataset.Path)
	if err != nil {
		return "", err
	}

	ds, err := datasets.NewLocalDataset(dataPath, datasets.LocalConfig{
		BatchSize:          cfg.Dataset.BatchSize,
		TrainRatio:         cfg.Dataset.TrainRatio,
		MinSamplesPerLabel: cfg.Dataset.MinSamplesPerLabel,
		Seed:               cfg.Dataset.Seed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to load dataset %s: %w", dataPath, err)
	}
	log.Info("Dataset loaded",
		zap.String("file", dataPath),
		zap.Stringer("dataset", ds),
		zap.Int("n_train_batches", ds.NumTrainBatches()),
		zap.Int("n_test_batches", ds.NumTestBatches()),
	)

	model, err := simple.NewModel(simple.Config{
		HiddenSizes:  cfg.Train.HiddenSizes,
		InputDim:     cfg.Train.InputDim,
		NumLabels:    ds.NumLabels(),
		LearningRate: cfg.Train.LearningRate,
		Epochs:       cfg.Train.Epochs,
		Seed:         cfg.Train.Seed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create model: %w", err)
	}

	curves, err := train(model, ds, log)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(cfg.Train.ArtefactsDir, time.Now().Format(artefactsLayout))
	if err := model.SaveArtefacts(dir, ds.IndexToLabel()); err != nil {
		return "", fmt.Errorf("failed to save artefacts: %w", err)
	}
	if err := writePredictions(filepath.Join(dir, PredictionsFile), model, ds, cfg.Predict.TopK); err != nil {
		return "", fmt.Errorf("failed to write predictions: %w", err)
	}
	latest := cfg.ArtefactsPath()
	if err := publishLatest(latest, dir); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", latest, err)
	}
	log.Info("Artefacts written", zap.String("dir", dir), zap.String("latest", latest))

	if cfg.Train.PlotsDir != "" {
		if err := plotCurves(cfg.Train.PlotsDir, curves); err != nil {
			return "", fmt.Errorf("failed to plot training curves: %w", err)
		}
		if err := plotLabelDistribution(cfg.Train.PlotsDir, ds.SplitLabelCounts()); err != nil {
			return "", fmt.Errorf("failed to plot label distribution: %w", err)
		}
		log.Info("Plots written", zap.String("dir", cfg.Train.PlotsDir))
	}
	return dir, nil
}

// publishLatest points the symlink at link to the run directory dir. The link
// is replaced with a rename so readers never see it missing. A link outside
// the runs directory holds an absolute target.
func publishLatest(link, dir string) error {
	target := dir
	if filepath.Dir(link) == filepath.Dir(dir) {
		target = filepath.Base(dir)
	} else if abs, err := filepath.Abs(dir); err == nil {
		target = abs
	}
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.tmp.%d", link, os.Getpid())
	_ = os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, link); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// resolveDataPath accepts a CSV file or a directory containing one.
func resolveDataPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("dataset path: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	found, err := datasets.FindCSVInAssets(path)
	if err != nil {
		return "", fmt.Errorf("no CSV under %s: %w", path, err)
	}
	return found, nil
}

// trainingCurves collects one point per epoch.
type trainingCurves struct {
	TrainLoss    []float64
	TestLoss     []float64
	TestAccuracy []float64
}

func train(model *simple.Model, ds *datasets.LocalDataset, log *zap.Logger) (*trainingCurves, error) {
	trainSeq := ds.TrainSequence()
	testSeq := ds.TestSequence()
	curves := &trainingCurves{}

	start := time.Now()
	for ep := 1; ep <= model.Config.Epochs; ep++ {
		trainLoss, err := model.TrainEpoch(trainSeq)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", ep, err)
		}
		testLoss, acc, err := model.Evaluate(testSeq)
		if err != nil {
			return nil, fmt.Errorf("evaluate epoch %d: %w", ep, err)
		}
		curves.TrainLoss = append(curves.TrainLoss, trainLoss)
		curves.TestLoss = append(curves.TestLoss, testLoss)
		curves.TestAccuracy = append(curves.TestAccuracy, acc)

		log.Info("Epoch completed",
			zap.Int("epoch", ep),
			zap.Int("epochs", model.Config.Epochs),
			zap.Float64("train_loss", trainLoss),
			zap.Float64("test_loss", testLoss),
			zap.Float64("test_accuracy", acc),
		)
	}
	log.Info("Training finished", zap.Duration("elapsed", time.Since(start)))
	return curves, nil
}

// predictionRow is one line of PredictionsFile.
type predictionRow struct {
	Title     string `csv:"title"`
	Label     string `csv:"label"`
	Predicted string `csv:"predicted"`
	TopK      string `csv:"top_k"`
	Correct   bool   `csv:"correct"`
}

// writePredictions ranks every test sample and writes the result as CSV.
func writePredictions(path string, model *simple.Model, ds *datasets.LocalDataset, k int) error {
	texts := ds.TestTexts()
	labels := ds.TestLabels()
	ranked, err := model.PredictTexts(texts, k)
	if err != nil {
		return err
	}
	indexToLabel := ds.IndexToLabel()

	rows := make([]*predictionRow, len(texts))
	for i, text := range texts {
		names := make([]string, len(ranked[i]))
		for j, idx := range ranked[i] {
			names[j] = indexToLabel[idx]
		}
		rows[i] = &predictionRow{
			Title:     text,
			Label:     indexToLabel[labels[i]],
			Predicted: names[0],
			TopK:      strings.Join(names, " "),
			Correct:   ranked[i][0] == labels[i],
		}
	}

	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(&rows, fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
