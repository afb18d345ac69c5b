package services

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"pasale-analytics/internal/models"
	"pasale-analytics/internal/observability"
	"pasale-analytics/internal/segment"
)

// Segments clusters the customer profiles of the current dataset. The
// result is kept until the next Load.
func (p *Pipeline) Segments(ctx context.Context) (segment.Result, error) {
	s := p.snapshot()
	if s.data == nil {
		return segment.Result{}, ErrNoData
	}
	if s.segments != nil {
		return *s.segments, nil
	}

	_, span := observability.StartSpan(ctx, "pipeline.segment")
	res, err := segment.Segment(s.data.Profiles(), p.opts.Segment)
	span.Set("customers", len(res.Assignments))
	span.End(observability.LoggerFrom(ctx, p.logger), &err)
	if err != nil {
		return res, err
	}

	p.mu.Lock()
	if p.data == s.data {
		p.segments = &res
	}
	p.mu.Unlock()
	return res, nil
}

func (p *Pipeline) SegmentAnalysis(ctx context.Context) (segment.Analysis, error) {
	res, err := p.Segments(ctx)
	if err != nil {
		return segment.Analysis{}, err
	}
	ds := p.snapshot().data
	return segment.Analyze(segment.Apply(ds.Profiles(), res))
}

func (p *Pipeline) CustomerPurchaseSummary(customerID string) (models.PurchaseSummary, error) {
	ds := p.snapshot().data
	if ds == nil {
		return models.PurchaseSummary{}, ErrNoData
	}
	records := ds.CustomerRecords(customerID)
	if len(records) == 0 {
		return models.PurchaseSummary{}, ErrCustomerNotFound
	}

	summary := models.PurchaseSummary{CustomerID: customerID}
	transactions := make(map[string]struct{})
	shops := make(map[string]struct{})
	categories := make(map[string]int)
	for _, r := range records {
		summary.TotalSpending += r.TotalAmount
		summary.TotalItems += r.Quantity
		transactions[r.TransactionID] = struct{}{}
		shops[r.ShopID] = struct{}{}
		if r.Category != "" {
			categories[r.Category]++
		}
	}
	summary.TotalTransactions = len(transactions)
	summary.AvgTransactionValue = summary.TotalSpending / float64(len(records))
	summary.UniqueShops = len(shops)
	summary.FavoriteCategory = mostFrequent(categories)
	return summary, nil
}

// mostFrequent returns the highest count, breaking ties alphabetically.
func mostFrequent(counts map[string]int) string {
	if len(counts) == 0 {
		return "Unknown"
	}
	keys := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return keys[0]
}

func (p *Pipeline) CustomerInsights() (models.CustomerInsights, error) {
	ds := p.snapshot().data
	if ds == nil {
		return models.CustomerInsights{}, ErrNoData
	}

	records := ds.Records()
	customers := make(map[string]struct{})
	products := make(map[string]struct{})
	for _, r := range records {
		customers[r.CustomerID] = struct{}{}
		products[r.ProductID] = struct{}{}
	}
	insights := models.CustomerInsights{
		TotalCustomers:    len(customers),
		TotalTransactions: len(records),
		TotalProducts:     len(products),
	}
	if len(records) > 0 {
		insights.SampleCustomer = records[0].CustomerID
	}
	return insights, nil
}
