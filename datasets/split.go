package datasets

import (
	"math"
	"math/rand"
	"sort"
)

// stratifiedSplit partitions the sample positions 0..len(labels)-1 into a
// train set of nTrain positions and a test set of nTest positions, keeping the
// per-label proportions of both sets as close to the full set as integer
// counts allow. labels holds the label index of every sample.
//
// Per-label quotas are drawn with approximateMode, first for train then for
// test out of what is left. Each label's positions are shuffled before being
// dealt, and both outputs are shuffled at the end.
func stratifiedSplit(labels []int, numLabels, nTrain, nTest int, rng *rand.Rand) (train, test []int) {
	classIndices := make([][]int, numLabels)
	for pos, label := range labels {
		classIndices[label] = append(classIndices[label], pos)
	}
	classCounts := make([]int, numLabels)
	for i, idx := range classIndices {
		classCounts[i] = len(idx)
	}

	nI := approximateMode(classCounts, nTrain, rng)
	remaining := make([]int, numLabels)
	for i := range classCounts {
		remaining[i] = classCounts[i] - nI[i]
	}
	tI := approximateMode(remaining, nTest, rng)

	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for i, positions := range classIndices {
		perm := rng.Perm(len(positions))
		shuffled := make([]int, len(positions))
		for j, p := range perm {
			shuffled[j] = positions[p]
		}
		train = append(train, shuffled[:nI[i]]...)
		test = append(test, shuffled[nI[i]:nI[i]+tI[i]]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test
}

// approximateMode returns, for each class, how many of nDraws samples it
// receives when drawing proportionally to classCounts without replacement.
// Floors are taken first; the remaining draws go to the classes with the
// largest fractional parts, ties broken at random.
func approximateMode(classCounts []int, nDraws int, rng *rand.Rand) []int {
	total := 0
	for _, c := range classCounts {
		total += c
	}
	floored := make([]int, len(classCounts))
	if total == 0 || nDraws <= 0 {
		return floored
	}

	remainder := make([]float64, len(classCounts))
	needToAdd := nDraws
	for i, c := range classCounts {
		continuous := float64(c) * float64(nDraws) / float64(total)
		f := math.Floor(continuous)
		floored[i] = int(f)
		remainder[i] = continuous - f
		needToAdd -= floored[i]
	}
	if needToAdd <= 0 {
		return floored
	}

	values := uniqueDescending(remainder)
	for _, value := range values {
		var inds []int
		for i, r := range remainder {
			if r == value {
				inds = append(inds, i)
			}
		}
		addNow := min(len(inds), needToAdd)
		rng.Shuffle(len(inds), func(i, j int) { inds[i], inds[j] = inds[j], inds[i] })
		for _, i := range inds[:addNow] {
			floored[i]++
		}
		needToAdd -= addNow
		if needToAdd == 0 {
			break
		}
	}
	return floored
}

func uniqueDescending(values []float64) []float64 {
	seen := make(map[float64]bool, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}
