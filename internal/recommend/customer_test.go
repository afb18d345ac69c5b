package recommend

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/dataset/datasettest"
	"pasale-analytics/internal/models"
)

func TestCustomers_Fixture(t *testing.T) {
	ds := datasettest.Dataset()
	opts := DefaultOptions()

	recs := Customers(ds, opts)
	if len(recs) == 0 {
		t.Fatal("Customers() returned no recommendations")
	}

	purchased := make(map[string]map[string]bool)
	for _, r := range ds.Records() {
		if purchased[r.CustomerID] == nil {
			purchased[r.CustomerID] = make(map[string]bool)
		}
		purchased[r.CustomerID][r.ProductID] = true
	}

	caps := map[string]int{
		TypeCategoryPreference: opts.CategoryPreference,
		TypeShopPopularity:     opts.ShopPopularity,
		TypeCategoryExpansion:  opts.CategoryExpansion,
		TypeCollaborative:      opts.Collaborative,
		TypeTrending:           opts.Trending,
	}
	counts := make(map[[2]string]int)
	seen := make(map[[2]string]bool)
	for _, r := range recs {
		limit, ok := caps[r.RecommendationType]
		if !ok {
			t.Fatalf("unexpected recommendation type %q", r.RecommendationType)
		}
		key := [2]string{r.CustomerID, r.RecommendationType}
		counts[key]++
		if counts[key] > limit {
			t.Errorf("%s has more than %d %s recommendations", r.CustomerID, limit, r.RecommendationType)
		}
		if purchased[r.CustomerID][r.ProductID] {
			t.Errorf("%s was recommended already purchased %s", r.CustomerID, r.ProductID)
		}
		pk := [2]string{r.CustomerID, r.ProductID}
		if seen[pk] {
			t.Errorf("%s was recommended %s twice", r.CustomerID, r.ProductID)
		}
		seen[pk] = true
		if r.RecommendedShop == "" {
			t.Errorf("%s/%s has no recommended shop", r.CustomerID, r.ProductID)
		}
	}
}

func TestCustomers_TrendingOnly(t *testing.T) {
	recs := Customers(datasettest.Dataset(), DefaultOptions())

	var got []models.CustomerRecommendation
	for _, r := range recs {
		if r.CustomerID == "C5" {
			got = append(got, r)
		}
	}
	want := []models.CustomerRecommendation{
		{CustomerID: "C5", ProductID: "P3", ProductName: "Bath Soap", Category: "Household", RecommendedShop: "S2", Reason: "Trending product - popular among all customers", Confidence: models.ConfidenceLow, RecommendationType: TypeTrending},
		{CustomerID: "C5", ProductID: "P1", ProductName: "Basmati Rice", Category: "Grocery", RecommendedShop: "S1", Reason: "Trending product - popular among all customers", Confidence: models.ConfidenceLow, RecommendationType: TypeTrending},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("C5 recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomers_BasicFallback(t *testing.T) {
	tables := &dataset.Tables{
		Transactions: append(
			datasettest.Series("P1", "S1", []string{"C1"}, datasettest.Start, 100, 2, 3),
			datasettest.Series("P1", "S1", []string{"C2"}, datasettest.Start, 100, 1)...,
		),
		Products: []models.Product{{ProductID: "P1", ProductName: "Rice", Category: "Grocery", StandardPrice: 100}},
		Shops:    []models.Shop{{ShopID: "S1", ShopName: "Asan", City: "Kathmandu"}},
	}
	ds := dataset.New(tables, dataset.DefaultOptions(), datasettest.Logger())

	recs := Customers(ds, DefaultOptions())
	want := []models.CustomerRecommendation{
		{CustomerID: "C1", ProductID: "P1", ProductName: "Rice", Category: "Grocery", RecommendedShop: "S1", Reason: "Top selling Grocery product", Confidence: models.ConfidenceLow, RecommendationType: TypePopularityBased},
		{CustomerID: "C2", ProductID: "P1", ProductName: "Rice", Category: "Grocery", RecommendedShop: "S1", Reason: "Top selling Grocery product", Confidence: models.ConfidenceLow, RecommendationType: TypePopularityBased},
		{CustomerID: "C1", ProductID: "P1", ProductName: "Rice", Category: "Grocery", RecommendedShop: anyShop, Reason: "Discover Grocery products", Confidence: models.ConfidenceLow, RecommendationType: TypeCategoryDiscovery},
		{CustomerID: "C2", ProductID: "P1", ProductName: "Rice", Category: "Grocery", RecommendedShop: anyShop, Reason: "Discover Grocery products", Confidence: models.ConfidenceLow, RecommendationType: TypeCategoryDiscovery},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("basic recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestCustomers_Empty(t *testing.T) {
	if recs := Customers(nil, DefaultOptions()); recs != nil {
		t.Errorf("Customers(nil) = %v, want nil", recs)
	}
	empty := dataset.New(&dataset.Tables{}, dataset.DefaultOptions(), datasettest.Logger())
	if recs := Customers(empty, DefaultOptions()); len(recs) != 0 {
		t.Errorf("Customers(empty) = %v, want none", recs)
	}
}

func TestCustomers_MaxCustomers(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCustomers = 2

	customers := make(map[string]bool)
	for _, r := range Customers(datasettest.Dataset(), opts) {
		customers[r.CustomerID] = true
	}
	if len(customers) > 2 {
		t.Errorf("recommendations cover %d customers, want at most 2", len(customers))
	}
}

func BenchmarkCustomers(b *testing.B) {
	ds := datasettest.Dataset()
	opts := DefaultOptions()
	for b.Loop() {
		Customers(ds, opts)
	}
}
