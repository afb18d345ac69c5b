package segment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pasale-analytics/internal/dataset/datasettest"
	"pasale-analytics/internal/models"
)

func profile(id string, spend float64, count int) models.CustomerProfile {
	return models.CustomerProfile{
		CustomerID:       id,
		TotalSpend:       spend,
		AvgTransaction:   spend / float64(count),
		TransactionCount: count,
		TotalQuantity:    count * 2,
		UniqueProducts:   1,
		UniqueShops:      1,
		AvgBasketSize:    2,
		TenureDays:       30,
		Segment:          -1,
	}
}

func TestSegment_NotEnoughCustomers(t *testing.T) {
	profiles := []models.CustomerProfile{profile("C1", 100, 1), profile("C2", 200, 2), profile("C3", 300, 3)}

	res, err := Segment(profiles, DefaultOptions())
	if !errors.Is(err, ErrNotEnoughData) {
		t.Fatalf("error = %v, want ErrNotEnoughData", err)
	}
	if !strings.Contains(res.Reason, "not enough customers") {
		t.Errorf("Reason = %q", res.Reason)
	}
	if len(res.Assignments) != 0 {
		t.Errorf("Assignments = %v, want none", res.Assignments)
	}
}

func TestSegment_Fixture(t *testing.T) {
	profiles := datasettest.Dataset().Profiles()

	res, err := Segment(profiles, DefaultOptions())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if len(res.Assignments) != len(profiles) {
		t.Fatalf("assignments = %d, want %d", len(res.Assignments), len(profiles))
	}
	if len(res.Features) != len(candidateFeatures) {
		t.Errorf("features = %v, want all %d candidates", res.Features, len(candidateFeatures))
	}

	valid := map[string]bool{HighValue: true, HighSpender: true, FrequentBuyer: true, CasualShopper: true}
	for _, a := range res.Assignments {
		if a.Segment < 0 || a.Segment >= 4 {
			t.Errorf("%s: segment %d out of range", a.CustomerID, a.Segment)
		}
		if !valid[a.SegmentName] {
			t.Errorf("%s: unexpected segment name %q", a.CustomerID, a.SegmentName)
		}
	}
}

func TestSegment_SeparatesObviousGroups(t *testing.T) {
	var profiles []models.CustomerProfile
	for i := range 4 {
		profiles = append(profiles, profile(fmt.Sprintf("BIG%d", i), 10000+float64(i)*10, 40+i))
		profiles = append(profiles, profile(fmt.Sprintf("SMALL%d", i), 50+float64(i), 1))
	}

	opts := DefaultOptions()
	opts.Clusters = 2
	res, err := Segment(profiles, opts)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	for _, a := range res.Assignments {
		want := CasualShopper
		if strings.HasPrefix(a.CustomerID, "BIG") {
			want = HighValue
		}
		if a.SegmentName != want {
			t.Errorf("%s: segment %q, want %q", a.CustomerID, a.SegmentName, want)
		}
	}
}

func TestSegment_Deterministic(t *testing.T) {
	profiles := datasettest.Dataset().Profiles()

	first, err := Segment(profiles, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Segment(profiles, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different results (-first +second):\n%s", diff)
	}
}

func TestSegment_MoreClustersThanCustomers(t *testing.T) {
	profiles := []models.CustomerProfile{profile("C1", 1, 1), profile("C2", 2, 1)}

	opts := DefaultOptions()
	opts.MinCustomers = 2
	res, err := Segment(profiles, opts)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	for _, a := range res.Assignments {
		if a.Segment >= len(profiles) {
			t.Errorf("segment %d exceeds customer count", a.Segment)
		}
	}
}

func TestStandardize_ZeroVariance(t *testing.T) {
	X := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	standardize(X)
	for i, row := range X {
		if row[1] != 0 {
			t.Errorf("row %d: constant column = %v, want 0", i, row[1])
		}
		if math.IsNaN(row[0]) {
			t.Errorf("row %d: NaN after standardization", i)
		}
	}
	if math.Abs(X[0][0]+X[2][0]) > 1e-12 || X[1][0] != 0 {
		t.Errorf("standardized column = %v, %v, %v", X[0][0], X[1][0], X[2][0])
	}
}

func TestApplyAndAnalyze(t *testing.T) {
	profiles := []models.CustomerProfile{
		profile("C1", 100, 1), profile("C2", 300, 3), profile("C3", 5000, 20), profile("C4", 7000, 30),
	}
	res := Result{Assignments: []Assignment{
		{CustomerID: "C1", Segment: 0, SegmentName: CasualShopper},
		{CustomerID: "C2", Segment: 0, SegmentName: CasualShopper},
		{CustomerID: "C3", Segment: 1, SegmentName: HighValue},
		{CustomerID: "C4", Segment: 1, SegmentName: HighValue},
	}}

	segmented := Apply(profiles, res)
	if profiles[0].Segment != -1 {
		t.Error("Apply() modified its input")
	}

	a, err := Analyze(segmented)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff(map[string]int{CasualShopper: 2, HighValue: 2}, a.Distribution); diff != "" {
		t.Errorf("distribution mismatch (-want +got):\n%s", diff)
	}
	if got := a.RevenueBySegment[HighValue]; got != 12000 {
		t.Errorf("High Value revenue = %v, want 12000", got)
	}
	casual := a.Characteristics[CasualShopper]
	if casual.SpendMean != 200 || casual.SpendMedian != 200 || casual.TransactionsMean != 2 {
		t.Errorf("Casual Shopper characteristics = %+v", casual)
	}

	if _, err := Analyze(profiles); !errors.Is(err, ErrNotSegmented) {
		t.Errorf("Analyze(unsegmented) error = %v, want ErrNotSegmented", err)
	}
}

func BenchmarkSegment(b *testing.B) {
	profiles := make([]models.CustomerProfile, 500)
	for i := range profiles {
		profiles[i] = profile(fmt.Sprintf("C%d", i), float64(i%37)*120, 1+i%11)
	}
	opts := DefaultOptions()
	for b.Loop() {
		if _, err := Segment(profiles, opts); err != nil {
			b.Fatal(err)
		}
	}
}
