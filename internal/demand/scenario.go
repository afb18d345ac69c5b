package demand

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

var ErrInvalidScenario = errors.New("invalid scenario")

type Season string

const (
	SeasonNormal  Season = "normal"
	SeasonHoliday Season = "holiday"
	SeasonSummer  Season = "summer"

	neutralMarketing = 3
)

func ParseSeason(s string) (Season, error) {
	switch season := Season(strings.ToLower(strings.TrimSpace(s))); season {
	case "":
		return SeasonNormal, nil
	case SeasonNormal, SeasonHoliday, SeasonSummer:
		return season, nil
	}
	return "", fmt.Errorf("%w: unknown season %q", ErrInvalidScenario, s)
}

// Scenario is a what-if adjustment. PriceChange is fractional (0.1 = +10%),
// MarketingBoost is on a 1-5 scale with 3 as neutral.
type Scenario struct {
	PriceChange    float64 `json:"price_change"`
	MarketingBoost float64 `json:"marketing_boost"`
	Season         Season  `json:"season"`
}

type ScenarioResult struct {
	Scenario   Scenario          `json:"scenario"`
	Original   float64           `json:"original"`
	Predicted  float64           `json:"predicted"`
	Change     float64           `json:"change"`
	ChangePct  float64           `json:"change_pct"`
	Confidence models.Confidence `json:"confidence"`
	Note       string            `json:"note,omitempty"`
}

// RunScenario layers price elasticity, marketing and season multipliers on
// top of the base prediction. Neutral inputs return the base prediction.
func (m *Model) RunScenario(ds *dataset.Dataset, productID, shopID string, sc Scenario) (ScenarioResult, error) {
	if sc.Season == "" {
		sc.Season = SeasonNormal
	}
	if sc.MarketingBoost < 1 || sc.MarketingBoost > 5 {
		return ScenarioResult{}, fmt.Errorf("%w: marketing boost %.1f outside 1-5", ErrInvalidScenario, sc.MarketingBoost)
	}
	if math.IsNaN(sc.PriceChange) || math.IsInf(sc.PriceChange, 0) {
		return ScenarioResult{}, fmt.Errorf("%w: price change must be finite", ErrInvalidScenario)
	}
	seasonMultiplier, ok := m.seasonMultiplier(sc.Season)
	if !ok {
		return ScenarioResult{}, fmt.Errorf("%w: unknown season %q", ErrInvalidScenario, sc.Season)
	}

	base, err := m.PredictForProductShop(ds, productID, shopID)
	if err != nil {
		return ScenarioResult{}, err
	}

	adjusted := base.PredictedQuantity
	adjusted *= 1 + sc.PriceChange*m.Options.PriceElasticity
	adjusted *= 1 + (sc.MarketingBoost-neutralMarketing)*m.Options.MarketingStep
	adjusted *= seasonMultiplier
	adjusted = math.Max(0, adjusted)

	res := ScenarioResult{
		Scenario:   sc,
		Original:   base.PredictedQuantity,
		Predicted:  adjusted,
		Change:     adjusted - base.PredictedQuantity,
		Confidence: base.Confidence,
		Note:       base.Note,
	}
	if base.PredictedQuantity > 0 {
		res.ChangePct = res.Change / base.PredictedQuantity * 100
	}
	return res, nil
}

func (m *Model) seasonMultiplier(s Season) (float64, bool) {
	if v, ok := m.Options.SeasonMultipliers[s]; ok {
		return v, true
	}
	if s == SeasonNormal {
		return 1, true
	}
	return 0, false
}
