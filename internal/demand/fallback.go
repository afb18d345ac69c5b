package demand

import (
	"fmt"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

type fallbackContext struct {
	ds              *dataset.Dataset
	productID       string
	shopID          string
	product         models.Product
	known           bool
	defaultEstimate float64
}

type estimate struct {
	value          float64
	confidence     models.Confidence
	note           string
	unknownProduct bool
}

type fallbackStrategy func(fallbackContext) (estimate, bool)

// coldStartChain is evaluated in order; the first strategy with an answer wins.
var coldStartChain = []fallbackStrategy{
	unknownProduct,
	productAverage,
	categoryAtShopAverage,
	shopAverage,
	categoryAverage,
	globalAverage,
}

func unknownProduct(fc fallbackContext) (estimate, bool) {
	if fc.known {
		return estimate{}, false
	}
	return estimate{
		value:          fc.defaultEstimate,
		confidence:     models.ConfidenceVeryLow,
		note:           "Product not found in catalog - using default estimate",
		unknownProduct: true,
	}, true
}

func productAverage(fc fallbackContext) (estimate, bool) {
	avg, ok := fc.ds.MeanQuantity(func(r models.MonthlyRow) bool {
		return r.ProductID == fc.productID
	})
	if !ok {
		return estimate{}, false
	}
	return estimate{
		value:      avg,
		confidence: models.ConfidenceMedium,
		note:       fmt.Sprintf("Based on average sales of this product: %.1f units/month", avg),
	}, true
}

func categoryAtShopAverage(fc fallbackContext) (estimate, bool) {
	avg, ok := fc.ds.MeanQuantity(func(r models.MonthlyRow) bool {
		return r.Category == fc.product.Category && r.ShopID == fc.shopID
	})
	if !ok {
		return estimate{}, false
	}
	return estimate{
		value:      avg,
		confidence: models.ConfidenceLow,
		note:       fmt.Sprintf("Based on %s sales at this shop: %.1f units/month", fc.product.Category, avg),
	}, true
}

func shopAverage(fc fallbackContext) (estimate, bool) {
	avg, ok := fc.ds.MeanQuantity(func(r models.MonthlyRow) bool {
		return r.ShopID == fc.shopID
	})
	if !ok {
		return estimate{}, false
	}
	return estimate{
		value:      avg,
		confidence: models.ConfidenceLow,
		note:       fmt.Sprintf("Based on average sales at this shop: %.1f units/month", avg),
	}, true
}

func categoryAverage(fc fallbackContext) (estimate, bool) {
	avg, ok := fc.ds.MeanQuantity(func(r models.MonthlyRow) bool {
		return r.Category == fc.product.Category
	})
	if !ok {
		return estimate{}, false
	}
	return estimate{
		value:      avg,
		confidence: models.ConfidenceVeryLow,
		note:       fmt.Sprintf("Based on %s category average: %.1f units/month", fc.product.Category, avg),
	}, true
}

func globalAverage(fc fallbackContext) (estimate, bool) {
	avg, ok := fc.ds.MeanQuantity(func(models.MonthlyRow) bool { return true })
	if !ok {
		return estimate{}, false
	}
	return estimate{
		value:      avg,
		confidence: models.ConfidenceVeryLow,
		note:       fmt.Sprintf("Based on overall average: %.1f units/month", avg),
	}, true
}

func defaultEstimate(fc fallbackContext) estimate {
	return estimate{
		value:      fc.defaultEstimate,
		confidence: models.ConfidenceVeryLow,
		note:       fmt.Sprintf("Based on overall average: %.1f units/month", fc.defaultEstimate),
	}
}
