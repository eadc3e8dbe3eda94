package matcher

import (
	"cmp"
	"sort"
)

// LongestIncreasing returns a longest strictly increasing subsequence of
// xs. When several exist, the one ending with the smallest tail values is
// returned. Runs in O(n log n).
func LongestIncreasing[T cmp.Ordered](xs []T) []T {
	if len(xs) == 0 {
		return nil
	}

	// tails[k] is the index of the smallest last element of any increasing
	// run of length k+1 seen so far.
	tails := make([]int, 0, len(xs))
	prev := make([]int, len(xs))

	for i, x := range xs {
		k := sort.Search(len(tails), func(j int) bool { return xs[tails[j]] >= x })
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	out := make([]T, len(tails))
	for i, k := tails[len(tails)-1], len(tails)-1; k >= 0; i, k = prev[i], k-1 {
		out[k] = xs[i]
	}
	return out
}

// MaxWindowCount slides a window of width span over ascending times and
// returns the largest number of values it ever holds at once. Two values
// fit in the same window when their difference is at most span.
func MaxWindowCount(times []uint32, span uint32) int {
	best, left := 0, 0
	for right := range times {
		for times[right]-times[left] > span {
			left++
		}
		best = max(best, right-left+1)
	}
	return best
}
