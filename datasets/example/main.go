package main

// Example command that loads a tag/title CSV into a LocalDataset, prints the
// split summary and pulls a few batches, converting one of them into gomlx
// tensors.
//
// Usage:
//   go run ./datasets/example -data assets/stackoverflow_posts.csv
//
// If -data points to a directory, the first CSV inside it is used.

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Noofbiz/textcat/datasets"
	"github.com/Noofbiz/textcat/simple"
)

func main() {
	dataFlag := flag.String("data", "assets", "CSV file (or directory containing one) with post_id,tag_name,tag_id,tag_position,title")
	batchSize := flag.Int("batch-size", 8, "samples per batch")
	trainRatio := flag.Float64("train-ratio", datasets.DefaultTrainRatio, "share of samples used for training, must be < 1")
	minSamples := flag.Int("min-samples", 100, "drop tags seen fewer times than this")
	seed := flag.Int64("seed", 42, "split seed")
	flag.Parse()

	path := *dataFlag
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := datasets.FindCSVInAssets(path)
		if err != nil {
			log.Fatalf("failed to find dataset CSV: %v", err)
		}
		path = found
	}

	ds, err := datasets.NewLocalDataset(path, datasets.LocalConfig{
		BatchSize:          *batchSize,
		TrainRatio:         *trainRatio,
		MinSamplesPerLabel: *minSamples,
		Seed:               *seed,
		Preprocess: func(texts []string) []string {
			out := make([]string, len(texts))
			for i, s := range texts {
				out[i] = strings.ToLower(s)
			}
			return out
		},
	})
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	fmt.Printf("Using dataset CSV: %s\n", path)
	fmt.Println(ds)
	fmt.Printf("Train batches: %d, test batches: %d\n", ds.NumTrainBatches(), ds.NumTestBatches())

	fmt.Println("Label distribution (train/test):")
	for _, c := range ds.SplitLabelCounts() {
		fmt.Printf("  %-24s %6d %6d\n", c.Label, c.Train, c.Test)
	}

	// Get ignores its index; batches come out in cursor order.
	seq := ds.TrainSequence()
	n := min(3, seq.Len())
	for i := 0; i < n; i++ {
		batch, err := seq.Get(i)
		if err != nil {
			log.Fatalf("failed to read train batch: %v", err)
		}
		fmt.Printf("Train batch %d: %d texts, first: %q\n", i, batch.Len(), batch.X[0])
	}

	vectorizer := simple.NewHashingVectorizer(256)
	td := datasets.NewTensorDataset("train", ds.TrainSequence(), vectorizer.Transform)
	_, inputs, labels, err := td.Yield()
	if err != nil {
		log.Fatalf("failed to yield tensors: %v", err)
	}
	fmt.Printf("Created tensors: input=%s label=%s\n", inputs[0].Shape(), labels[0].Shape())

	fmt.Println("\nExample completed successfully!")
}
