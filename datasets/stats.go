package datasets

// CountTags returns how many records carry each tag name.
func CountTags(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.TagName]++
	}
	return counts
}

// LabelCount is the number of samples of one label in each split.
type LabelCount struct {
	Label string
	Train int
	Test  int
}

// Total returns Train + Test.
func (c LabelCount) Total() int { return c.Train + c.Test }

// SplitLabelCounts reports the per-label sample counts of both splits, in
// vocabulary order.
func (d *LocalDataset) SplitLabelCounts() []LabelCount {
	out := make([]LabelCount, len(d.labelList))
	for i, label := range d.labelList {
		out[i].Label = label
	}
	for _, l := range d.trainLabels {
		out[l].Train++
	}
	for _, l := range d.testLabels {
		out[l].Test++
	}
	return out
}
