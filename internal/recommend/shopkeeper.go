package recommend

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/models"
)

const (
	TypeIncreaseStock     = "increase_stock"
	TypeDecreaseStock     = "decrease_stock"
	TypeIncreaseMarketing = "increase_marketing"

	marketingLift = 1.3
)

type shopProduct struct {
	shopID      string
	productID   string
	productName string
	category    string
	quantity    float64
	months      int
	predSum     float64
	predCount   int
}

func (sp *shopProduct) avg() float64 { return sp.quantity / float64(sp.months) }

// Shopkeeper compares each product's average monthly sales at a shop with the
// model's mean prediction over the pair's feature rows, and flags the bottom
// sellers of every shop for a marketing push.
func Shopkeeper(ds *dataset.Dataset, predictor Predictor, opts Options) ([]models.StockRecommendation, error) {
	if predictor == nil {
		return nil, demand.ErrModelNotTrained
	}
	if ds == nil {
		return nil, nil
	}
	features := ds.Features()
	predictions, err := predictor.PredictRows(features)
	if err != nil {
		return nil, err
	}

	pairs := make(map[[2]string]*shopProduct)
	for _, row := range ds.Monthly() {
		key := [2]string{row.ShopID, row.ProductID}
		sp, ok := pairs[key]
		if !ok {
			sp = &shopProduct{shopID: row.ShopID, productID: row.ProductID, productName: row.ProductName, category: row.Category}
			pairs[key] = sp
		}
		sp.quantity += float64(row.MonthlyQuantity)
		sp.months++
	}
	for i, row := range features {
		if math.IsNaN(predictions[i]) {
			continue
		}
		if sp, ok := pairs[[2]string{row.ShopID, row.ProductID}]; ok {
			sp.predSum += predictions[i]
			sp.predCount++
		}
	}

	byShop := make(map[string][]*shopProduct)
	for _, sp := range pairs {
		byShop[sp.shopID] = append(byShop[sp.shopID], sp)
	}
	shops := make([]string, 0, len(byShop))
	for id := range byShop {
		shops = append(shops, id)
	}
	slices.Sort(shops)

	var recs []models.StockRecommendation
	for _, shopID := range shops {
		products := byShop[shopID]
		slices.SortFunc(products, func(a, b *shopProduct) int { return strings.Compare(a.productID, b.productID) })

		flagged := make(map[string]bool)
		for _, sp := range products {
			if sp.predCount == 0 {
				continue
			}
			avg, pred := sp.avg(), sp.predSum/float64(sp.predCount)
			switch {
			case pred > avg*opts.IncreaseRatio:
				recs = append(recs, stockRecommendation(sp, TypeIncreaseStock, pred, "high", "Expected significant demand increase"))
				flagged[sp.productID] = true
			case pred < avg*opts.DecreaseRatio:
				recs = append(recs, stockRecommendation(sp, TypeDecreaseStock, pred, "medium", "Expected demand decrease"))
				flagged[sp.productID] = true
			}
		}

		recs = append(recs, marketingAlerts(products, flagged, opts)...)
	}
	return recs, nil
}

// marketingAlerts flags up to MaxMarketingAlerts products at or below the
// low-sales quantile of their shop. Shops with a single product are skipped.
func marketingAlerts(products []*shopProduct, flagged map[string]bool, opts Options) []models.StockRecommendation {
	if len(products) < 2 || opts.MaxMarketingAlerts <= 0 {
		return nil
	}
	avgs := make([]float64, len(products))
	for i, sp := range products {
		avgs[i] = sp.avg()
	}
	threshold := quantile(avgs, opts.LowSalesQuantile)

	low := slices.Clone(products)
	slices.SortStableFunc(low, func(a, b *shopProduct) int { return cmp.Compare(a.avg(), b.avg()) })

	var out []models.StockRecommendation
	for _, sp := range low {
		if len(out) >= opts.MaxMarketingAlerts || sp.avg() > threshold {
			break
		}
		if flagged[sp.productID] {
			continue
		}
		priority := "medium"
		if sp.avg() < threshold*0.5 {
			priority = "high"
		}
		rec := stockRecommendation(sp, TypeIncreaseMarketing, sp.avg()*marketingLift, priority,
			fmt.Sprintf("Low sales: %.1f units/month", sp.avg()))
		out = append(out, rec)
	}
	return out
}

func stockRecommendation(sp *shopProduct, kind string, predicted float64, priority, reason string) models.StockRecommendation {
	return models.StockRecommendation{
		ShopID:      sp.shopID,
		ProductID:   sp.productID,
		ProductName: sp.productName,
		Category:    sp.category,
		Type:        kind,
		CurrentAvg:  sp.avg(),
		Predicted:   predicted,
		Reason:      reason,
		Priority:    priority,
	}
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
