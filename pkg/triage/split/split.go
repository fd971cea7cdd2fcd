package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Defaults used by training runs.
const (
	DefaultTestFraction = 0.25
	DefaultSeed         = 42
)

// Options configures a stratified split.
type Options struct {
	TestFraction float64 // share of records held out, in (0,1)
	Seed         uint64
}

// DefaultOptions returns the 75/25 split with seed 42.
func DefaultOptions() Options {
	return Options{TestFraction: DefaultTestFraction, Seed: DefaultSeed}
}

// Result holds record indices for both sides of the partition. Indices are in
// ascending order.
type Result struct {
	Train []int
	Test  []int
}

// Stratified partitions record indices so that every label contributes to the
// test side in proportion to its share of the whole.
//
// The test side holds ceil(fraction*n) records. Each label gets
// floor(testSize*count/n); leftover slots go to the labels with the largest
// fractional remainder (ties broken by label order). Records inside a label
// are shuffled with a PCG source seeded from opts.Seed, so identical inputs
// always yield identical partitions.
func Stratified(labels []string, opts Options) (Result, error) {
	n := len(labels)
	if n == 0 {
		return Result{}, errors.New("split: no records")
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		return Result{}, fmt.Errorf("split: test fraction %v out of range (0,1)", opts.TestFraction)
	}

	byLabel := make(map[string][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	classes := make([]string, 0, len(byLabel))
	for l := range byLabel {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	testSize := int(math.Ceil(opts.TestFraction * float64(n)))
	if testSize >= n {
		return Result{}, fmt.Errorf("split: test size %d leaves no training records", testSize)
	}
	if testSize < len(classes) {
		return Result{}, fmt.Errorf("split: test size %d smaller than number of classes %d", testSize, len(classes))
	}

	alloc := allocate(classes, byLabel, testSize, n)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	var res Result
	for _, c := range classes {
		idx := append([]int(nil), byLabel[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		res.Test = append(res.Test, idx[:alloc[c]]...)
		res.Train = append(res.Train, idx[alloc[c]:]...)
	}
	sort.Ints(res.Test)
	sort.Ints(res.Train)
	return res, nil
}

func allocate(classes []string, byLabel map[string][]int, testSize, n int) map[string]int {
	type rem struct {
		class string
		frac  float64
	}

	alloc := make(map[string]int, len(classes))
	rems := make([]rem, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(testSize) * float64(len(byLabel[c])) / float64(n)
		k := int(math.Floor(exact))
		alloc[c] = k
		assigned += k
		rems = append(rems, rem{class: c, frac: exact - float64(k)})
	}

	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; assigned < testSize; i = (i + 1) % len(rems) {
		c := rems[i].class
		if alloc[c] < len(byLabel[c]) {
			alloc[c]++
			assigned++
		}
	}
	return alloc
}

// Pick returns the elements of values at the given indices.
func Pick[T any](values []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
