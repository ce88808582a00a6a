// Package config loads the settings shared by the train and predict commands.
//
// Values are resolved in order: built-in defaults, then an optional JSON file,
// then TEXTCAT_* environment variables. Commands apply their flags last.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEXTCAT_"

// LatestArtefacts is the name, under TrainConfig.ArtefactsDir, that cmd/train
// points at its most recent run.
const LatestArtefacts = "latest"

var (
	serverModes = []string{"debug", "release", "test"}
	logFormats  = []string{"json", "console"}
)

// DefaultInputText is the question served by /predict when none is configured.
const DefaultInputText = "Is it possible to execute the procedure of a function in the scope of the caller?"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `json:"server" envPrefix:"SERVER_"`
	Log     LogConfig     `json:"log" envPrefix:"LOG_"`
	Predict PredictConfig `json:"predict" envPrefix:"PREDICT_"`
	Dataset DatasetConfig `json:"dataset" envPrefix:"DATASET_"`
	Train   TrainConfig   `json:"train" envPrefix:"TRAIN_"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `json:"host" env:"HOST"`
	Port int    `json:"port" env:"PORT"`
	// Mode is the gin mode: debug, release or test.
	Mode string `json:"mode" env:"MODE"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level" env:"LEVEL"`
	Format string `json:"format" env:"FORMAT"` // json or console
}

// PredictConfig configures the prediction endpoint.
type PredictConfig struct {
	// ArtefactsPath is the model directory to serve. Empty means the run
	// published under TrainConfig.ArtefactsDir, see Config.ArtefactsPath.
	ArtefactsPath string `json:"artefacts_path" env:"ARTEFACTS"`
	InputText     string `json:"input_text" env:"TEXT"`
	TopK          int    `json:"top_k" env:"TOP_K"`
}

// DatasetConfig mirrors datasets.LocalConfig plus the CSV path.
type DatasetConfig struct {
	Path               string  `json:"path" env:"PATH"`
	BatchSize          int     `json:"batch_size" env:"BATCH_SIZE"`
	TrainRatio         float64 `json:"train_ratio" env:"TRAIN_RATIO"`
	MinSamplesPerLabel int     `json:"min_samples_per_label" env:"MIN_SAMPLES"`
	Seed               int64   `json:"seed" env:"SEED"`
}

// TrainConfig configures the classifier and where its outputs go.
type TrainConfig struct {
	ArtefactsDir string  `json:"artefacts_dir" env:"ARTEFACTS_DIR"`
	PlotsDir     string  `json:"plots_dir" env:"PLOTS_DIR"`
	Epochs       int     `json:"epochs" env:"EPOCHS"`
	LearningRate float64 `json:"learning_rate" env:"LEARNING_RATE"`
	HiddenSizes  []int   `json:"hidden_sizes" env:"HIDDEN" envSeparator:","`
	InputDim     int     `json:"input_dim" env:"INPUT_DIM"`
	Seed         int64   `json:"seed" env:"SEED"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 5000, Mode: "debug"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Predict: PredictConfig{
			InputText:     DefaultInputText,
			TopK:          5,
		},
		Dataset: DatasetConfig{
			Path:               "train/data/training-data/stackoverflow_posts.csv",
			BatchSize:          32,
			TrainRatio:         0.8,
			MinSamplesPerLabel: 100,
			Seed:               42,
		},
		Train: TrainConfig{
			ArtefactsDir: "train/data/artefacts",
			PlotsDir:     "plots",
			Epochs:       10,
			LearningRate: 0.05,
			HiddenSizes:  []int{64},
			InputDim:     1024,
			Seed:         42,
		},
	}
}

// Load returns the defaults overlaid with the JSON file at path (skipped when
// path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse %s* environment: %w", EnvPrefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if !(c.Dataset.TrainRatio < 1.0) || c.Dataset.TrainRatio < 0 {
		errs = append(errs, fmt.Errorf("dataset.train_ratio must be in [0, 1): %v", c.Dataset.TrainRatio))
	}
	if !slices.Contains(serverModes, c.Server.Mode) {
		errs = append(errs, fmt.Errorf("server.mode must be one of %v: %q", serverModes, c.Server.Mode))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v: %q", logFormats, c.Log.Format))
	}
	if c.Dataset.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("dataset.batch_size must be > 0: %d", c.Dataset.BatchSize))
	}
	if c.Predict.TopK <= 0 {
		errs = append(errs, fmt.Errorf("predict.top_k must be > 0: %d", c.Predict.TopK))
	}
	if c.Train.Epochs < 0 {
		errs = append(errs, fmt.Errorf("train.epochs must be >= 0: %d", c.Train.Epochs))
	}
	if c.Train.LearningRate < 0 {
		errs = append(errs, fmt.Errorf("train.learning_rate must be >= 0: %v", c.Train.LearningRate))
	}
	if c.Train.InputDim < 0 {
		errs = append(errs, fmt.Errorf("train.input_dim must be >= 0: %d", c.Train.InputDim))
	}
	for _, n := range c.Train.HiddenSizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("train.hidden_sizes must be > 0: %v", c.Train.HiddenSizes))
			break
		}
	}
	return errors.Join(errs...)
}

// ArtefactsPath returns the model directory cmd/predict serves: the
// configured predict path, or else the latest run under train.artefacts_dir.
func (c *Config) ArtefactsPath() string {
	if c.Predict.ArtefactsPath != "" {
		return c.Predict.ArtefactsPath
	}
	return filepath.Join(c.Train.ArtefactsDir, LatestArtefacts)
}

// ParseSizes parses a comma separated list of positive layer sizes, e.g. "64,32".
func ParseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("layer size must be > 0: %d", n)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
