package forest

import (
	"math"
	"testing"
)

func TestMetrics(t *testing.T) {
	actual := []float64{0, 2, 4}
	predicted := []float64{1, 2, 2}

	if got := MAE(actual, predicted); math.Abs(got-1) > 1e-9 {
		t.Errorf("MAE() = %f, want 1", got)
	}
	if got := RMSE(actual, predicted); math.Abs(got-math.Sqrt(5.0/3.0)) > 1e-9 {
		t.Errorf("RMSE() = %f, want %f", got, math.Sqrt(5.0/3.0))
	}
	// zero actual uses a denominator of 1: (1/1 + 0 + 2/4) / 3 * 100 = 50
	if got := MAPE(actual, predicted); math.Abs(got-50) > 1e-9 {
		t.Errorf("MAPE() = %f, want 50", got)
	}
	// ssRes = 5, ssTot = 8
	if got := R2(actual, predicted); math.Abs(got-(1-5.0/8.0)) > 1e-9 {
		t.Errorf("R2() = %f, want %f", got, 1-5.0/8.0)
	}
}

func TestR2_ConstantTarget(t *testing.T) {
	if got := R2([]float64{3, 3}, []float64{3, 3}); got != 1 {
		t.Errorf("perfect constant fit R2 = %f, want 1", got)
	}
	if got := R2([]float64{3, 3}, []float64{2, 3}); got != 0 {
		t.Errorf("imperfect constant fit R2 = %f, want 0", got)
	}
}

func TestMetrics_Empty(t *testing.T) {
	for name, fn := range map[string]func(a, p []float64) float64{
		"RMSE": RMSE, "MAE": MAE, "R2": R2, "MAPE": MAPE,
	} {
		if got := fn(nil, nil); got != 0 {
			t.Errorf("%s(nil) = %f, want 0", name, got)
		}
	}
}

func TestTrainTestSplit(t *testing.T) {
	train, test := TrainTestSplit(10, 0.2, 42)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}

	seen := make(map[int]bool)
	for _, i := range append(train, test...) {
		if seen[i] {
			t.Fatalf("index %d appears twice", i)
		}
		seen[i] = true
	}
	if len(seen) != 10 {
		t.Errorf("expected every index once, got %d distinct", len(seen))
	}

	train2, test2 := TrainTestSplit(10, 0.2, 42)
	for i := range test {
		if test[i] != test2[i] {
			t.Errorf("split should be deterministic for a fixed seed")
		}
	}
	_ = train2
}
