package demand

import (
	"fmt"
	"math"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

const noHistory = "No historical data"

type Prediction struct {
	ProductID         string            `json:"product_id"`
	ShopID            string            `json:"shop_id"`
	PredictedQuantity float64           `json:"predicted_quantity"`
	LastActual        int               `json:"last_actual"`
	LastDate          string            `json:"last_date"`
	Confidence        models.Confidence `json:"confidence"`
	HistoricalPoints  int               `json:"historical_points"`
	Note              string            `json:"note,omitempty"`
}

// PredictForProductShop forecasts next-month quantity for one pair. Pairs
// with feature history are scored by the model; every other pair falls
// through the cold-start chain, so the only error is an untrained model.
func (m *Model) PredictForProductShop(ds *dataset.Dataset, productID, shopID string) (Prediction, error) {
	if m == nil || !m.Forest.Fitted() {
		return Prediction{}, ErrModelNotTrained
	}
	if ds == nil {
		return Prediction{}, fmt.Errorf("%w: no dataset loaded", ErrNotReady)
	}

	history := ds.FeatureHistory(productID, shopID)
	if len(history) > 0 {
		latest := history[len(history)-1]
		x := m.vector(latest)
		if finite(x) {
			if p, err := m.Forest.Predict(x); err == nil {
				return Prediction{
					ProductID:         productID,
					ShopID:            shopID,
					PredictedQuantity: math.Max(0, p),
					LastActual:        latest.MonthlyQuantity,
					LastDate:          latest.Month.String(),
					Confidence:        models.ConfidenceHigh,
					HistoricalPoints:  len(history),
				}, nil
			}
		}
	}

	est := m.coldStart(ds, productID, shopID)
	lastDate := noHistory
	if est.unknownProduct {
		lastDate = "No data"
	}
	return Prediction{
		ProductID:         productID,
		ShopID:            shopID,
		PredictedQuantity: math.Max(0, est.value),
		LastDate:          lastDate,
		Confidence:        est.confidence,
		Note:              est.note,
	}, nil
}

func (m *Model) coldStart(ds *dataset.Dataset, productID, shopID string) estimate {
	fc := fallbackContext{
		ds:              ds,
		productID:       productID,
		shopID:          shopID,
		defaultEstimate: m.Options.DefaultEstimate,
	}
	fc.product, fc.known = ds.Product(productID)
	for _, strategy := range coldStartChain {
		if est, ok := strategy(fc); ok {
			return est
		}
	}
	return defaultEstimate(fc)
}
