package segment

import (
	"errors"
	"math"

	"pasale-analytics/internal/models"
)

var ErrNotSegmented = errors.New("customer segmentation not performed")

type Characteristics struct {
	Customers        int     `json:"customers"`
	SpendMean        float64 `json:"total_spend_mean"`
	SpendMedian      float64 `json:"total_spend_median"`
	TransactionsMean float64 `json:"transaction_count_mean"`
	QuantityMean     float64 `json:"total_quantity_mean"`
	ProductsMean     float64 `json:"unique_products_mean"`
	ShopsMean        float64 `json:"unique_shops_mean"`
}

type Analysis struct {
	Distribution     map[string]int             `json:"distribution"`
	Characteristics  map[string]Characteristics `json:"characteristics"`
	RevenueBySegment map[string]float64         `json:"revenue_by_segment"`
}

// Analyze summarizes segmented profiles by segment name. Profiles without a
// segment are ignored.
func Analyze(profiles []models.CustomerProfile) (Analysis, error) {
	groups := make(map[string][]models.CustomerProfile)
	for _, p := range profiles {
		if p.Segment < 0 || p.SegmentName == "" {
			continue
		}
		groups[p.SegmentName] = append(groups[p.SegmentName], p)
	}
	if len(groups) == 0 {
		return Analysis{}, ErrNotSegmented
	}

	a := Analysis{
		Distribution:     make(map[string]int, len(groups)),
		Characteristics:  make(map[string]Characteristics, len(groups)),
		RevenueBySegment: make(map[string]float64, len(groups)),
	}
	for name, members := range groups {
		n := float64(len(members))
		spend := make([]float64, len(members))
		var c Characteristics
		var revenue float64
		for i, p := range members {
			spend[i] = p.TotalSpend
			revenue += p.TotalSpend
			c.TransactionsMean += float64(p.TransactionCount)
			c.QuantityMean += float64(p.TotalQuantity)
			c.ProductsMean += float64(p.UniqueProducts)
			c.ShopsMean += float64(p.UniqueShops)
		}
		c.Customers = len(members)
		c.SpendMean = round2(revenue / n)
		c.SpendMedian = round2(median(spend))
		c.TransactionsMean = round2(c.TransactionsMean / n)
		c.QuantityMean = round2(c.QuantityMean / n)
		c.ProductsMean = round2(c.ProductsMean / n)
		c.ShopsMean = round2(c.ShopsMean / n)

		a.Distribution[name] = len(members)
		a.Characteristics[name] = c
		a.RevenueBySegment[name] = revenue
	}
	return a, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
