package main

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/textcat/datasets"
)

// Plot file names inside the plots directory.
const (
	LossPlotFile         = "training_loss.png"
	AccuracyPlotFile     = "test_accuracy.png"
	DistributionPlotFile = "label_distribution.png"
)

var (
	trainColor = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	testColor  = color.RGBA{R: 200, G: 30, B: 30, A: 200}
)

func epochXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i + 1)
		xys[i].Y = v
	}
	return xys
}

// plotCurves writes the train/test loss and the test accuracy per epoch.
func plotCurves(outDir string, curves *trainingCurves) error {
	if err := ensureDir(outDir); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Cross-entropy loss: train (blue), test (red)"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	trainXY := epochXYs(curves.TrainLoss)
	testXY := epochXYs(curves.TestLoss)
	for _, s := range []struct {
		name string
		xys  plotter.XYs
		col  color.Color
	}{
		{"train", trainXY, trainColor},
		{"test", testXY, testColor},
	} {
		line, points, err := plotter.NewLinePoints(s.xys)
		if err != nil {
			return err
		}
		line.Color = s.col
		line.Width = vg.Points(1.2)
		points.GlyphStyle.Color = s.col
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}
	p.Add(plotter.NewGrid())
	xmin, xmax, ymin, ymax := autoRange(append(append(plotter.XYs{}, trainXY...), testXY...))
	p.X.Min, p.X.Max = xmin, xmax
	p.Y.Min, p.Y.Max = math.Max(0, ymin), ymax
	if err := p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(outDir, LossPlotFile)); err != nil {
		return err
	}

	acc := plot.New()
	acc.Title.Text = "Top-1 test accuracy"
	acc.X.Label.Text = "epoch"
	acc.Y.Label.Text = "accuracy"
	accXY := epochXYs(curves.TestAccuracy)
	line, err := plotter.NewLine(accXY)
	if err != nil {
		return err
	}
	line.Color = testColor
	line.Width = vg.Points(1.2)
	acc.Add(line, plotter.NewGrid())
	xmin, xmax, _, _ = autoRange(accXY)
	acc.X.Min, acc.X.Max = xmin, xmax
	acc.Y.Min, acc.Y.Max = 0, 1
	return acc.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(outDir, AccuracyPlotFile))
}

// plotLabelDistribution draws train and test counts per label side by side.
func plotLabelDistribution(outDir string, counts []datasets.LabelCount) error {
	if err := ensureDir(outDir); err != nil {
		return err
	}

	names := make([]string, len(counts))
	trainVals := make(plotter.Values, len(counts))
	testVals := make(plotter.Values, len(counts))
	for i, c := range counts {
		names[i] = c.Label
		trainVals[i] = float64(c.Train)
		testVals[i] = float64(c.Test)
	}

	p := plot.New()
	p.Title.Text = "Samples per label"
	p.Y.Label.Text = "samples"

	width := vg.Points(12)
	trainBars, err := plotter.NewBarChart(trainVals, width)
	if err != nil {
		return err
	}
	trainBars.Color = trainColor
	trainBars.LineStyle.Width = 0
	trainBars.Offset = -width / 2

	testBars, err := plotter.NewBarChart(testVals, width)
	if err != nil {
		return err
	}
	testBars.Color = testColor
	testBars.LineStyle.Width = 0
	testBars.Offset = width / 2

	p.Add(trainBars, testBars, plotter.NewGrid())
	p.Legend.Add("train", trainBars)
	p.Legend.Add("test", testBars)
	p.Legend.Top = true
	p.NominalX(names...)

	w := vg.Length(math.Max(8, float64(len(names))*0.5)) * vg.Inch
	return p.Save(w, 6*vg.Inch, filepath.Join(outDir, DistributionPlotFile))
}

// autoRange computes padded min/max for X and Y for a set of points.
func autoRange(xs plotter.XYs) (xmin, xmax, ymin, ymax float64) {
	if len(xs) == 0 {
		return -1, 1, -1, 1
	}
	xmin, xmax = math.Inf(1), math.Inf(-1)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, p := range xs {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	padx := (xmax - xmin) * 0.06
	pady := (ymax - ymin) * 0.06
	if padx == 0 {
		padx = 1.0
	}
	if pady == 0 {
		pady = 1.0
	}
	return xmin - padx, xmax + padx, ymin - pady, ymax + pady
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
