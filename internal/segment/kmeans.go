package segment

import (
	"math"
	"math/rand/v2"
)

// kmeans runs Lloyd's algorithm from a k-means++ initialization and returns
// the labels and the within-cluster sum of squares.
func kmeans(X [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	centroids := initPlusPlus(X, k, rng)
	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = -1
	}

	for range maxIter {
		changed := false
		for i, x := range X {
			c, _ := nearest(x, centroids)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
		recompute(X, labels, centroids)
	}

	var inertia float64
	for i, x := range X {
		inertia += sqDist(x, centroids[labels[i]])
	}
	return labels, inertia
}

func initPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(X[rng.IntN(len(X))]))

	dist := make([]float64, len(X))
	for len(centroids) < k {
		var total float64
		for i, x := range X {
			_, d := nearest(x, centroids)
			dist[i] = d
			total += d
		}
		if total == 0 {
			centroids = append(centroids, clone(X[rng.IntN(len(X))]))
			continue
		}
		target := rng.Float64() * total
		pick := len(X) - 1
		for i, d := range dist {
			target -= d
			if target < 0 {
				pick = i
				break
			}
		}
		centroids = append(centroids, clone(X[pick]))
	}
	return centroids
}

// recompute moves each centroid to the mean of its members. An empty cluster
// takes over the point farthest from its current centroid.
func recompute(X [][]float64, labels []int, centroids [][]float64) {
	dims := len(X[0])
	counts := make([]int, len(centroids))
	for c := range centroids {
		for j := range dims {
			centroids[c][j] = 0
		}
	}
	for i, x := range X {
		c := labels[i]
		counts[c]++
		for j, v := range x {
			centroids[c][j] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range dims {
			centroids[c][j] /= float64(counts[c])
		}
	}

	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, x := range X {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := sqDist(x, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		copy(centroids[c], X[far])
	}
}

func nearest(x []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(x, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(x []float64) []float64 {
	return append([]float64(nil), x...)
}
