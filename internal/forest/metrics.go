package forest

import (
	"math"
	"math/rand/v2"
)

func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var total float64
	for i := range actual {
		d := actual[i] - predicted[i]
		total += d * d
	}
	return math.Sqrt(total / float64(len(actual)))
}

func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var total float64
	for i := range actual {
		total += math.Abs(actual[i] - predicted[i])
	}
	return total / float64(len(actual))
}

// R2 is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var mean float64
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		t := actual[i] - mean
		ssRes += r * r
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAPE is the mean absolute percentage error in percent. Zero actuals are
// replaced by 1 in the denominator.
func MAPE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var total float64
	for i := range actual {
		denom := actual[i]
		if denom == 0 {
			denom = 1
		}
		total += math.Abs((actual[i] - predicted[i]) / denom)
	}
	return total / float64(len(actual)) * 100
}

// TrainTestSplit shuffles row indices with a fixed seed and holds out
// ceil(n*testFraction) of them for testing.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewPCG(seed, seed^seedMixer))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	testSize := int(math.Ceil(float64(n) * testFraction))
	if testSize < 1 {
		testSize = 1
	}
	if testSize >= n {
		testSize = n - 1
	}
	return idx[testSize:], idx[:testSize]
}
