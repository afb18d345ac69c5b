// Package forest implements a bootstrap-aggregated regression forest of CART
// trees. Fitted regressors are plain data and can be gob-encoded as is.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

var (
	ErrEmptyInput = errors.New("forest: no training rows")
	ErrShape      = errors.New("forest: inconsistent feature matrix")
	ErrNotFitted  = errors.New("forest: regressor is not fitted")
	errNonFinite  = errors.New("forest: non-finite value in training data")
)

const (
	leafFeature    = -1
	seedMixer      = 0x9e3779b97f4a7c15
	minImpurityGap = 1e-12
)

type Options struct {
	Trees           int    `json:"trees"`
	MaxDepth        int    `json:"max_depth"` // 0 means unlimited
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     int    `json:"max_features"` // 0 means all features
	Seed            uint64 `json:"seed"`
}

func DefaultOptions() Options {
	return Options{
		Trees:           100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

func (o Options) normalized() Options {
	if o.Trees <= 0 {
		o.Trees = 100
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	return o
}

// Node is a tree node. Leaves have Feature == -1 and carry Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int32
	Right     int32
	Value     float64
}

type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := int32(0)
	for {
		n := &t.Nodes[i]
		if n.Feature == leafFeature {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type Regressor struct {
	Options     Options
	Features    int
	Trees       []Tree
	Importances []float64
}

func New(opts Options) *Regressor {
	return &Regressor{Options: opts.normalized()}
}

// Fit trains the forest. It checks ctx between trees so long fits can be abandoned.
func (r *Regressor) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ErrEmptyInput
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d targets", ErrShape, len(X), len(y))
	}
	features := len(X[0])
	for i, row := range X {
		if len(row) != features {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), features)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errNonFinite
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return errNonFinite
		}
	}

	opts := r.Options.normalized()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^seedMixer))
	trees := make([]Tree, 0, opts.Trees)
	importances := make([]float64, features)

	for t := 0; t < opts.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := &builder{
			X:           X,
			y:           y,
			opts:        opts,
			rng:         rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())),
			importances: make([]float64, features),
		}
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = b.rng.IntN(len(X))
		}
		b.grow(sample, 0)
		trees = append(trees, Tree{Nodes: b.nodes})

		if total := sum(b.importances); total > 0 {
			for f, v := range b.importances {
				importances[f] += v / total
			}
		}
	}

	if total := sum(importances); total > 0 {
		for f := range importances {
			importances[f] /= total
		}
	} else {
		for f := range importances {
			importances[f] = 1 / float64(features)
		}
	}

	r.Options = opts
	r.Features = features
	r.Trees = trees
	r.Importances = importances
	return nil
}

func (r *Regressor) Fitted() bool {
	return r != nil && len(r.Trees) > 0
}

// Predict averages the tree outputs for one feature vector.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if !r.Fitted() {
		return 0, ErrNotFitted
	}
	if len(x) != r.Features {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), r.Features)
	}
	var total float64
	for i := range r.Trees {
		total += r.Trees[i].predict(x)
	}
	return total / float64(len(r.Trees)), nil
}

func (r *Regressor) PredictAll(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		p, err := r.Predict(x)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// FeatureImportances returns mean-decrease-impurity weights summing to 1.
func (r *Regressor) FeatureImportances() []float64 {
	return slices.Clone(r.Importances)
}

type builder struct {
	X           [][]float64
	y           []float64
	opts        Options
	rng         *rand.Rand
	nodes       []Node
	importances []float64
}

func (b *builder) grow(sample []int, depth int) int32 {
	id := int32(len(b.nodes))
	mean, sse := b.stats(sample)
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Value: mean})

	if len(sample) < b.opts.MinSamplesSplit || sse <= minImpurityGap {
		return id
	}
	if b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth {
		return id
	}

	split, ok := b.bestSplit(sample, sse)
	if !ok {
		return id
	}

	left := make([]int, 0, split.leftCount)
	right := make([]int, 0, len(sample)-split.leftCount)
	for _, i := range sample {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[split.feature] += split.gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = Node{Feature: split.feature, Threshold: split.threshold, Left: l, Right: r, Value: mean}
	return id
}

func (b *builder) stats(sample []int) (mean, sse float64) {
	for _, i := range sample {
		mean += b.y[i]
	}
	mean /= float64(len(sample))
	for _, i := range sample {
		d := b.y[i] - mean
		sse += d * d
	}
	return mean, sse
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	leftCount int
}

func (b *builder) candidateFeatures() []int {
	n := len(b.X[0])
	if b.opts.MaxFeatures <= 0 || b.opts.MaxFeatures >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(n)[:b.opts.MaxFeatures]
}

// bestSplit scans every candidate feature for the threshold with the largest
// reduction in squared error, honoring the minimum leaf size.
func (b *builder) bestSplit(sample []int, parentSSE float64) (split, bool) {
	best := split{gain: minImpurityGap}
	found := false
	n := len(sample)
	order := slices.Clone(sample)
	minLeaf := b.opts.MinSamplesLeaf

	var total, totalSq float64
	for _, i := range sample {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}

	for _, f := range b.candidateFeatures() {
		slices.SortFunc(order, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			default:
				return 0
			}
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			cur, next := b.X[order[k]][f], b.X[order[k+1]][f]
			if cur == next {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			leftSSE := leftSq - leftSum*leftSum/float64(nl)
			rightSSE := rightSq - rightSum*rightSum/float64(nr)
			gain := parentSSE - leftSSE - rightSSE
			if gain > best.gain {
				best = split{feature: f, threshold: cur + (next-cur)/2, gain: gain, leftCount: nl}
				found = true
			}
		}
	}
	return best, found
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
