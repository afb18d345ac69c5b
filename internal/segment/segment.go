// Package segment clusters customer profiles into named marketing segments.
package segment

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"pasale-analytics/internal/models"
)

var ErrNotEnoughData = errors.New("not enough data for segmentation")

const (
	HighValue     = "High Value"
	HighSpender   = "High Spender"
	FrequentBuyer = "Frequent Buyer"
	CasualShopper = "Casual Shopper"

	minFeatures = 2
	seedMixer   = 0x5bd1e995
)

type Options struct {
	Clusters      int    `json:"clusters"`
	MinCustomers  int    `json:"min_customers"`
	Restarts      int    `json:"restarts"`
	MaxIterations int    `json:"max_iterations"`
	Seed          uint64 `json:"seed"`
}

func DefaultOptions() Options {
	return Options{
		Clusters:      4,
		MinCustomers:  4,
		Restarts:      10,
		MaxIterations: 300,
		Seed:          42,
	}
}

type feature struct {
	name  string
	value func(models.CustomerProfile) float64
}

var candidateFeatures = []feature{
	{"total_spend", func(p models.CustomerProfile) float64 { return p.TotalSpend }},
	{"avg_transaction", func(p models.CustomerProfile) float64 { return p.AvgTransaction }},
	{"transaction_count", func(p models.CustomerProfile) float64 { return float64(p.TransactionCount) }},
	{"total_quantity", func(p models.CustomerProfile) float64 { return float64(p.TotalQuantity) }},
	{"unique_products", func(p models.CustomerProfile) float64 { return float64(p.UniqueProducts) }},
	{"unique_shops", func(p models.CustomerProfile) float64 { return float64(p.UniqueShops) }},
	{"avg_basket_size", func(p models.CustomerProfile) float64 { return p.AvgBasketSize }},
	{"tenure_days", func(p models.CustomerProfile) float64 { return float64(p.TenureDays) }},
}

type Assignment struct {
	CustomerID  string `json:"customer_id"`
	Segment     int    `json:"segment"`
	SegmentName string `json:"segment_name"`
}

// Result is the outcome of one segmentation run. Reason explains why
// segmentation was skipped when Segment returns ErrNotEnoughData.
type Result struct {
	Assignments []Assignment   `json:"assignments"`
	Names       map[int]string `json:"names"`
	Features    []string       `json:"features"`
	Inertia     float64        `json:"inertia"`
	Reason      string         `json:"reason,omitempty"`
}

// Segment runs seeded k-means++ over the standardized profile features and
// names each cluster by comparing its mean spend and frequency with the
// dataset medians.
func Segment(profiles []models.CustomerProfile, opts Options) (Result, error) {
	if opts.Clusters <= 0 {
		opts.Clusters = DefaultOptions().Clusters
	}
	if opts.Restarts <= 0 {
		opts.Restarts = 1
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}

	if len(profiles) < opts.MinCustomers || len(profiles) == 0 {
		reason := fmt.Sprintf("not enough customers for segmentation: have %d, need %d", len(profiles), opts.MinCustomers)
		return Result{Reason: reason}, fmt.Errorf("%w: %s", ErrNotEnoughData, reason)
	}

	names, X := matrix(profiles)
	if len(names) < minFeatures {
		reason := fmt.Sprintf("not enough usable features for segmentation: have %d, need %d", len(names), minFeatures)
		return Result{Reason: reason}, fmt.Errorf("%w: %s", ErrNotEnoughData, reason)
	}
	standardize(X)

	k := min(opts.Clusters, len(profiles))
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^seedMixer))

	var best []int
	bestInertia := math.Inf(1)
	for range opts.Restarts {
		labels, inertia := kmeans(X, k, opts.MaxIterations, rng)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}

	res := Result{
		Assignments: make([]Assignment, len(profiles)),
		Names:       nameClusters(profiles, best, k),
		Features:    names,
		Inertia:     bestInertia,
	}
	for i, p := range profiles {
		res.Assignments[i] = Assignment{
			CustomerID:  p.CustomerID,
			Segment:     best[i],
			SegmentName: res.Names[best[i]],
		}
	}
	return res, nil
}

// Apply returns a copy of profiles with the segment fields filled from res.
func Apply(profiles []models.CustomerProfile, res Result) []models.CustomerProfile {
	bySegment := make(map[string]Assignment, len(res.Assignments))
	for _, a := range res.Assignments {
		bySegment[a.CustomerID] = a
	}
	out := slices.Clone(profiles)
	for i := range out {
		if a, ok := bySegment[out[i].CustomerID]; ok {
			out[i].Segment = a.Segment
			out[i].SegmentName = a.SegmentName
		}
	}
	return out
}

// matrix extracts every candidate feature with at least one finite value.
// Non-finite cells are replaced with the column mean.
func matrix(profiles []models.CustomerProfile) ([]string, [][]float64) {
	var names []string
	var columns [][]float64
	for _, f := range candidateFeatures {
		col := make([]float64, len(profiles))
		var sum float64
		var n int
		for i, p := range profiles {
			col[i] = f.value(p)
			if isFinite(col[i]) {
				sum += col[i]
				n++
			}
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		for i := range col {
			if !isFinite(col[i]) {
				col[i] = mean
			}
		}
		names = append(names, f.name)
		columns = append(columns, col)
	}

	X := make([][]float64, len(profiles))
	for i := range X {
		X[i] = make([]float64, len(columns))
		for j, col := range columns {
			X[i][j] = col[i]
		}
	}
	return names, X
}

// standardize rescales each column to zero mean and unit variance in place.
// Zero-variance columns become 0.
func standardize(X [][]float64) {
	if len(X) == 0 {
		return
	}
	n := float64(len(X))
	for j := range X[0] {
		var mean float64
		for i := range X {
			mean += X[i][j]
		}
		mean /= n
		var variance float64
		for i := range X {
			d := X[i][j] - mean
			variance += d * d
		}
		std := math.Sqrt(variance / n)
		for i := range X {
			if std == 0 {
				X[i][j] = 0
				continue
			}
			X[i][j] = (X[i][j] - mean) / std
		}
	}
}

func nameClusters(profiles []models.CustomerProfile, labels []int, k int) map[int]string {
	spend := make([]float64, len(profiles))
	freq := make([]float64, len(profiles))
	for i, p := range profiles {
		spend[i] = p.TotalSpend
		freq[i] = float64(p.TransactionCount)
	}
	spendMedian, freqMedian := median(spend), median(freq)

	sums := make([][2]float64, k)
	counts := make([]int, k)
	for i, l := range labels {
		sums[l][0] += spend[i]
		sums[l][1] += freq[i]
		counts[l]++
	}

	names := make(map[int]string, k)
	for c := range k {
		if counts[c] == 0 {
			continue
		}
		avgSpend := sums[c][0] / float64(counts[c])
		avgFreq := sums[c][1] / float64(counts[c])
		switch {
		case avgSpend > spendMedian && avgFreq > freqMedian:
			names[c] = HighValue
		case avgSpend > spendMedian:
			names[c] = HighSpender
		case avgFreq > freqMedian:
			names[c] = FrequentBuyer
		default:
			names[c] = CasualShopper
		}
	}
	return names
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
