package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pasale-analytics/internal/models"
)

func tx(id, customer, product, shop string, qty int, price float64, ts time.Time) models.Transaction {
	return models.Transaction{
		TransactionID:   id,
		CustomerID:      customer,
		ProductID:       product,
		ShopID:          shop,
		Quantity:        qty,
		UnitPrice:       price,
		TotalAmount:     price * float64(qty),
		TransactionTime: ts,
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func sampleTables() *Tables {
	return &Tables{
		Transactions: []models.Transaction{
			tx("T1", "C1", "P1", "S1", 2, 100, day(2024, 1, 3)),
			tx("T2", "C2", "P1", "S1", 3, 110, day(2024, 1, 20)),
			tx("T3", "C1", "P2", "S1", 1, 50, day(2024, 1, 21)),
			tx("T4", "C1", "P1", "S1", 5, 90, day(2024, 2, 2)),
			tx("T5", "C3", "P1", "S2", 4, 100, day(2024, 1, 9)),
			tx("T6", "C9", "P7", "S7", 1, 10, day(2024, 3, 1)),
		},
		Products: []models.Product{
			{ProductID: "P1", ProductName: "Rice", Category: "Grocery", StandardPrice: 100},
			{ProductID: "P2", ProductName: "Soap", Category: "Household", StandardPrice: 40},
			{ProductID: "P1", ProductName: "Duplicate Rice", Category: "Other", StandardPrice: 1},
		},
		Shops: []models.Shop{
			{ShopID: "S1", ShopName: "Asan", City: "Kathmandu"},
			{ShopID: "S2", ShopName: "Lakeside", City: "Pokhara"},
		},
		Customers: []models.Customer{
			{CustomerID: "C1", City: "Kathmandu"},
			{CustomerID: "C2", City: "Kathmandu"},
			{CustomerID: "C3", City: "Pokhara"},
		},
	}
}

func TestMerge_LeftJoins(t *testing.T) {
	tables := sampleTables()
	records := Merge(tables, testLogger())

	if len(records) != len(tables.Transactions) {
		t.Fatalf("records = %d, want %d", len(records), len(tables.Transactions))
	}
	if got := records[0].ProductName; got != "Rice" {
		t.Errorf("first product row should win, got %q", got)
	}
	if got := records[4].ShopCity; got != "Pokhara" {
		t.Errorf("ShopCity = %q, want Pokhara", got)
	}

	orphan := records[5]
	if orphan.HasProduct || orphan.HasShop || orphan.HasCustomer {
		t.Errorf("orphan flags = %v/%v/%v, want all false", orphan.HasProduct, orphan.HasShop, orphan.HasCustomer)
	}
	if tables.Report.MissingProducts != 1 || tables.Report.MissingShops != 1 || tables.Report.MissingCustomers != 1 {
		t.Errorf("report = %+v", tables.Report)
	}
}

func TestAggregateMonthly_Conservation(t *testing.T) {
	tables := sampleTables()
	records := Merge(tables, testLogger())
	monthly := AggregateMonthly(records, false)

	var wantQty, gotQty int
	var wantRev, gotRev float64
	for _, r := range records {
		wantQty += r.Quantity
		wantRev += r.TotalAmount
	}
	seen := make(map[slotKey]bool)
	for _, m := range monthly {
		gotQty += m.MonthlyQuantity
		gotRev += m.MonthlyRevenue
		key := slotKey{pairKey{m.ProductID, m.ShopID}, m.Month}
		if seen[key] {
			t.Errorf("duplicate slot %v", key)
		}
		seen[key] = true
	}
	if gotQty != wantQty {
		t.Errorf("quantity = %d, want %d", gotQty, wantQty)
	}
	if math.Abs(gotRev-wantRev) > 1e-9 {
		t.Errorf("revenue = %v, want %v", gotRev, wantRev)
	}
}

func TestAggregateMonthly_Slot(t *testing.T) {
	monthly := AggregateMonthly(Merge(sampleTables(), testLogger()), false)

	first := monthly[0]
	want := models.MonthlyRow{
		ProductID:               "P1",
		ShopID:                  "S1",
		Month:                   models.YearMonth{Year: 2024, Month: time.January},
		MonthlyQuantity:         5,
		MonthlyRevenue:          530,
		AvgPrice:                105,
		ProductName:             "Rice",
		Category:                "Grocery",
		StandardPrice:           100,
		ShopName:                "Asan",
		ShopCity:                "Kathmandu",
		CustomerID:              "C1",
		CustomerMonthlyQuantity: 3,
		CustomerMonthlySpend:    250,
		UniqueProductsPurchased: 2,
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("slot mismatch (-want +got):\n%s", diff)
	}

	for i := 1; i < len(monthly); i++ {
		if compareMonthly(monthly[i-1], monthly[i]) >= 0 {
			t.Fatalf("rows not sorted at %d", i)
		}
	}
}

func TestAggregateMonthly_SynthesizedCustomers(t *testing.T) {
	monthly := AggregateMonthly(Merge(sampleTables(), testLogger()), true)
	for _, m := range monthly {
		if m.CustomerID != unknownCustomer {
			t.Errorf("CustomerID = %q, want %q", m.CustomerID, unknownCustomer)
		}
		if m.CustomerMonthlyQuantity != m.MonthlyQuantity || m.CustomerMonthlySpend != m.MonthlyRevenue {
			t.Errorf("customer metrics should mirror the slot: %+v", m)
		}
	}
}

func TestBuildProfiles(t *testing.T) {
	profiles := BuildProfiles(Merge(sampleTables(), testLogger()))
	if len(profiles) != 4 {
		t.Fatalf("profiles = %d, want 4", len(profiles))
	}
	c1 := profiles[0]
	if c1.CustomerID != "C1" {
		t.Fatalf("profiles not sorted, first = %q", c1.CustomerID)
	}
	if c1.TransactionCount != 3 || c1.TotalQuantity != 8 || c1.UniqueProducts != 2 {
		t.Errorf("C1 profile = %+v", c1)
	}
	if c1.TotalSpend != 700 {
		t.Errorf("C1 spend = %v, want 700", c1.TotalSpend)
	}
	if c1.TenureDays != 30 {
		t.Errorf("C1 tenure = %d, want 30", c1.TenureDays)
	}
	if c1.Segment != -1 {
		t.Errorf("Segment = %d, want -1 before segmentation", c1.Segment)
	}
}
