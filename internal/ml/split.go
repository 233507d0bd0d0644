package ml

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// newRand returns a deterministic source for seed.
func newRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}

// TestSize returns the number of test rows for n rows: ceil(fraction*n) clamped
// to [1, n-1].
func TestSize(n int, fraction float64) int {
	size := int(math.Ceil(fraction * float64(n)))
	return max(1, min(size, n-1))
}

// TrainTestSplit partitions row indices 0..len(y)-1 into sorted train and test
// sets. When stratify is set each class keeps its share of rows on both sides,
// and every class with at least two rows appears on both sides. The result is
// fully determined by seed.
func TrainTestSplit(y []float64, fraction float64, seed int64, stratify bool) (train, test []int, err error) {
	n := len(y)
	if n < 2 {
		return nil, nil, errors.New("at least 2 rows are required to split into train and test sets")
	}
	rng := newRand(seed)
	nTest := TestSize(n, fraction)

	if !stratify {
		perm := rng.Perm(n)
		test = append(test, perm[:nTest]...)
		train = append(train, perm[nTest:]...)
		sort.Ints(train)
		sort.Ints(test)
		return train, test, nil
	}

	classes := UniqueSorted(y)
	index := classIndex(classes)
	members := make([][]int, len(classes))
	for i, v := range y {
		c := index[v]
		members[c] = append(members[c], i)
	}

	for c, quota := range allocate(members, n, nTest) {
		rows := members[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		test = append(test, rows[:quota]...)
		train = append(train, rows[quota:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// allocate distributes nTest test rows across classes by largest remainder,
// then clamps every class with two or more rows to [1, size-1].
func allocate(members [][]int, n, nTest int) []int {
	quotas := make([]int, len(members))
	remainders := make([]float64, len(members))
	assigned := 0
	for c, rows := range members {
		exact := float64(len(rows)) * float64(nTest) / float64(n)
		quotas[c] = int(math.Floor(exact))
		remainders[c] = exact - float64(quotas[c])
		assigned += quotas[c]
	}

	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return remainders[order[i]] > remainders[order[j]] })
	for _, c := range order {
		if assigned >= nTest {
			break
		}
		quotas[c]++
		assigned++
	}

	for c, rows := range members {
		size := len(rows)
		if size >= 2 {
			quotas[c] = max(1, min(quotas[c], size-1))
		} else {
			quotas[c] = min(quotas[c], size)
		}
	}
	return quotas
}
