package dataset

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"pasale-analytics/internal/models"
)

type Options struct {
	Calendar         Calendar
	DefaultLatitude  float64
	DefaultLongitude float64
}

func DefaultOptions() Options {
	return Options{
		Calendar:         DefaultCalendar(),
		DefaultLatitude:  27.7172,
		DefaultLongitude: 85.3240,
	}
}

// Dataset is an immutable snapshot of one load: the merged transaction table
// and every table derived from it. Accessors return copies.
type Dataset struct {
	records   []models.Record
	products  []models.Product
	shops     []models.Shop
	customers []models.Customer
	monthly   []models.MonthlyRow
	features  []models.FeatureRow
	profiles  []models.CustomerProfile

	calendar               Calendar
	report                 LoadReport
	customerIDsSynthesized bool
	loadedAt               time.Time

	productIndex   map[string]int
	shopIndex      map[string]int
	featuresByPair map[pairKey][]int
}

// Build loads the four sources and derives all tables.
func Build(ctx context.Context, src Sources, opts Options, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tables, err := LoadTables(ctx, src, opts, logger)
	if err != nil {
		return nil, err
	}
	return New(tables, opts, logger), nil
}

// New derives a dataset from already parsed tables.
func New(t *Tables, opts Options, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Calendar.HolidayMonths) == 0 && len(opts.Calendar.SummerMonths) == 0 {
		opts.Calendar = DefaultCalendar()
	}

	records := Merge(t, logger)
	monthly := AggregateMonthly(records, t.CustomerIDsSynthesized)
	features := BuildFeatures(monthly, opts.Calendar)

	ds := &Dataset{
		records:                records,
		products:               slices.Clone(t.Products),
		shops:                  slices.Clone(t.Shops),
		customers:              slices.Clone(t.Customers),
		monthly:                monthly,
		features:               features,
		profiles:               BuildProfiles(records),
		calendar:               opts.Calendar,
		report:                 t.Report,
		customerIDsSynthesized: t.CustomerIDsSynthesized,
		loadedAt:               time.Now(),
		productIndex:           make(map[string]int, len(t.Products)),
		shopIndex:              make(map[string]int, len(t.Shops)),
		featuresByPair:         make(map[pairKey][]int),
	}
	for i, p := range ds.products {
		if _, ok := ds.productIndex[p.ProductID]; !ok {
			ds.productIndex[p.ProductID] = i
		}
	}
	for i, s := range ds.shops {
		if _, ok := ds.shopIndex[s.ShopID]; !ok {
			ds.shopIndex[s.ShopID] = i
		}
	}
	for i, f := range ds.features {
		key := pairKey{f.ProductID, f.ShopID}
		ds.featuresByPair[key] = append(ds.featuresByPair[key], i)
	}

	logger.Info("dataset prepared",
		"records", len(ds.records),
		"monthly_rows", len(ds.monthly),
		"feature_rows", len(ds.features),
		"customers", len(ds.profiles),
	)
	return ds
}

func (d *Dataset) Records() []models.Record { return slices.Clone(d.records) }
func (d *Dataset) Products() []models.Product { return slices.Clone(d.products) }
func (d *Dataset) Shops() []models.Shop { return slices.Clone(d.shops) }
func (d *Dataset) Customers() []models.Customer { return slices.Clone(d.customers) }
func (d *Dataset) Monthly() []models.MonthlyRow { return slices.Clone(d.monthly) }
func (d *Dataset) Features() []models.FeatureRow { return slices.Clone(d.features) }
func (d *Dataset) Profiles() []models.CustomerProfile { return slices.Clone(d.profiles) }
func (d *Dataset) Calendar() Calendar { return d.calendar }
func (d *Dataset) Report() LoadReport { return d.report }
func (d *Dataset) CustomerIDsSynthesized() bool { return d.customerIDsSynthesized }
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }
func (d *Dataset) FeatureCount() int { return len(d.features) }
func (d *Dataset) RecordCount() int { return len(d.records) }

func (d *Dataset) Product(id string) (models.Product, bool) {
	i, ok := d.productIndex[id]
	if !ok {
		return models.Product{}, false
	}
	return d.products[i], true
}

func (d *Dataset) Shop(id string) (models.Shop, bool) {
	i, ok := d.shopIndex[id]
	if !ok {
		return models.Shop{}, false
	}
	return d.shops[i], true
}

// FeatureHistory returns the feature rows of one product-shop pair in time order.
func (d *Dataset) FeatureHistory(productID, shopID string) []models.FeatureRow {
	idx := d.featuresByPair[pairKey{productID, shopID}]
	out := make([]models.FeatureRow, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.features[i])
	}
	return out
}

// CustomerRecords returns the merged transactions of one customer in load order.
func (d *Dataset) CustomerRecords(customerID string) []models.Record {
	var out []models.Record
	for i := range d.records {
		if d.records[i].CustomerID == customerID {
			out = append(out, d.records[i])
		}
	}
	return out
}

// History returns the full monthly series of one product-shop pair.
func (d *Dataset) History(productID, shopID string) []models.HistoryPoint {
	lo, _ := slices.BinarySearchFunc(d.monthly, pairKey{productID, shopID}, func(row models.MonthlyRow, k pairKey) int {
		if c := strings.Compare(row.ProductID, k.ProductID); c != 0 {
			return c
		}
		return strings.Compare(row.ShopID, k.ShopID)
	})
	var out []models.HistoryPoint
	for i := lo; i < len(d.monthly); i++ {
		row := d.monthly[i]
		if row.ProductID != productID || row.ShopID != shopID {
			break
		}
		out = append(out, models.HistoryPoint{Month: row.Month, MonthlyQuantity: row.MonthlyQuantity})
	}
	return out
}

// MeanQuantity averages MonthlyQuantity over the monthly rows accepted by keep.
// ok is false when no row matches.
func (d *Dataset) MeanQuantity(keep func(models.MonthlyRow) bool) (mean float64, ok bool) {
	var total float64
	var n int
	for i := range d.monthly {
		if keep(d.monthly[i]) {
			total += float64(d.monthly[i].MonthlyQuantity)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// Combinations lists product-shop pairs that have feature rows, most data first.
func (d *Dataset) Combinations() []models.Combination {
	out := make([]models.Combination, 0, len(d.featuresByPair))
	for key, idx := range d.featuresByPair {
		c := models.Combination{
			ProductID:   key.ProductID,
			ShopID:      key.ShopID,
			DataPoints:  len(idx),
			ProductName: d.features[idx[0]].ProductName,
			ShopCity:    d.features[idx[0]].ShopCity,
		}
		for _, i := range idx {
			c.TotalQty += d.features[i].MonthlyQuantity
		}
		c.AvgMonthlyQty = float64(c.TotalQty) / float64(c.DataPoints)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b models.Combination) int {
		if c := cmp.Compare(b.DataPoints, a.DataPoints); c != 0 {
			return c
		}
		if c := strings.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return strings.Compare(a.ShopID, b.ShopID)
	})
	return out
}

func (d *Dataset) Stats() map[string]any {
	return map[string]any{
		"record_count":             len(d.records),
		"products":                 len(d.products),
		"shops":                    len(d.shops),
		"customers":                len(d.profiles),
		"monthly_rows":             len(d.monthly),
		"feature_rows":             len(d.features),
		"combinations":             len(d.featuresByPair),
		"customer_ids_synthesized": d.customerIDsSynthesized,
		"last_processed":           d.loadedAt,
		"load_report":              d.report,
	}
}
