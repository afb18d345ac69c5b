package recommend

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

const (
	upgradeMessage = "Upgrade to premium for advanced recommendations and competitor analysis"
	unknownCity    = "Unknown"
	topCompetitors = 3
)

type TrendAnalysis struct {
	TotalSalesTrend []models.MonthTotal `json:"total_sales_trend"`
	Message         string              `json:"message"`
}

type SeasonalityAnalysis struct {
	SeasonalPatterns []models.SeasonalPoint `json:"seasonal_patterns"`
	Message          string                 `json:"message"`
}

type BasicPlots struct {
	CategoryDistribution  []models.CategoryTotal `json:"category_distribution"`
	GeographicPerformance []models.CityRevenue   `json:"geographic_performance"`
}

// BasicAnalytics is the free-tier product owner report.
type BasicAnalytics struct {
	TrendAnalysis     TrendAnalysis       `json:"trend_analysis"`
	SeasonalityCharts SeasonalityAnalysis `json:"seasonality_charts"`
	BasicPlots        BasicPlots          `json:"basic_plots"`
	UpgradeMessage    string              `json:"upgrade_message"`
	GeneratedAt       time.Time           `json:"generated_at"`
	SubscriptionLevel Plan                `json:"subscription_level"`
}

type PremiumAnalytics struct {
	ProductRecommendations []models.ProductOwnerRecommendation `json:"product_recommendations"`
	GeneratedAt            time.Time                           `json:"generated_at"`
	SubscriptionLevel      Plan                                `json:"subscription_level"`
}

func cityOf(row models.MonthlyRow) string {
	if row.ShopCity == "" {
		return unknownCity
	}
	return row.ShopCity
}

func ProductOwnerBasic(ds *dataset.Dataset) BasicAnalytics {
	a := BasicAnalytics{
		TrendAnalysis:     TrendAnalysis{Message: "Basic trend analysis - consider premium for advanced insights"},
		SeasonalityCharts: SeasonalityAnalysis{Message: "Basic seasonality analysis"},
		UpgradeMessage:    upgradeMessage,
		GeneratedAt:       time.Now(),
		SubscriptionLevel: PlanFree,
	}
	if ds == nil {
		return a
	}

	months := make(map[models.YearMonth]*models.MonthTotal)
	seasonSum := make(map[time.Month]float64)
	seasonCount := make(map[time.Month]int)
	categories := make(map[string]int)
	cities := make(map[string]float64)

	for _, row := range ds.Monthly() {
		mt, ok := months[row.Month]
		if !ok {
			mt = &models.MonthTotal{Month: row.Month}
			months[row.Month] = mt
		}
		mt.Quantity += row.MonthlyQuantity
		mt.Revenue += row.MonthlyRevenue

		seasonSum[row.Month.Month] += float64(row.MonthlyQuantity)
		seasonCount[row.Month.Month]++
		categories[row.Category] += row.MonthlyQuantity
		cities[cityOf(row)] += row.MonthlyRevenue
	}

	for _, mt := range months {
		a.TrendAnalysis.TotalSalesTrend = append(a.TrendAnalysis.TotalSalesTrend, *mt)
	}
	slices.SortFunc(a.TrendAnalysis.TotalSalesTrend, func(x, y models.MonthTotal) int { return x.Month.Compare(y.Month) })

	for m := time.January; m <= time.December; m++ {
		if seasonCount[m] == 0 {
			continue
		}
		a.SeasonalityCharts.SeasonalPatterns = append(a.SeasonalityCharts.SeasonalPatterns, models.SeasonalPoint{
			Month:       int(m),
			AvgQuantity: seasonSum[m] / float64(seasonCount[m]),
		})
	}

	for category, qty := range categories {
		a.BasicPlots.CategoryDistribution = append(a.BasicPlots.CategoryDistribution, models.CategoryTotal{Category: category, Quantity: qty})
	}
	slices.SortFunc(a.BasicPlots.CategoryDistribution, func(x, y models.CategoryTotal) int { return strings.Compare(x.Category, y.Category) })

	for city, revenue := range cities {
		a.BasicPlots.GeographicPerformance = append(a.BasicPlots.GeographicPerformance, models.CityRevenue{City: city, Revenue: revenue})
	}
	slices.SortFunc(a.BasicPlots.GeographicPerformance, func(x, y models.CityRevenue) int { return strings.Compare(x.City, y.City) })
	return a
}

type cityPerformance struct {
	city     string
	quantity float64
	months   int
}

func (c cityPerformance) avg() float64 { return c.quantity / float64(c.months) }

// ProductOwnerPremium reports, for every product sold in more than one city,
// its best and worst city and the competition in its category.
func ProductOwnerPremium(ds *dataset.Dataset, plan Plan) (PremiumAnalytics, error) {
	if plan != PlanPremium {
		return PremiumAnalytics{}, ErrPermissionDenied
	}
	a := PremiumAnalytics{GeneratedAt: time.Now(), SubscriptionLevel: PlanPremium}
	if ds == nil {
		return a, nil
	}
	monthly := ds.Monthly()

	perf := make(map[string]map[string]*cityPerformance)
	firstRow := make(map[string]models.MonthlyRow)
	type slot struct{ category, city string }
	competition := make(map[slot]*models.CategoryCityCompetition)
	slotProducts := make(map[slot]map[string]bool)

	for _, row := range monthly {
		city := cityOf(row)
		if _, ok := firstRow[row.ProductID]; !ok {
			firstRow[row.ProductID] = row
			perf[row.ProductID] = make(map[string]*cityPerformance)
		}
		cp, ok := perf[row.ProductID][city]
		if !ok {
			cp = &cityPerformance{city: city}
			perf[row.ProductID][city] = cp
		}
		cp.quantity += float64(row.MonthlyQuantity)
		cp.months++

		key := slot{row.Category, city}
		cc, ok := competition[key]
		if !ok {
			cc = &models.CategoryCityCompetition{Category: row.Category, City: city}
			competition[key] = cc
			slotProducts[key] = make(map[string]bool)
		}
		cc.Revenue += row.MonthlyRevenue
		slotProducts[key][row.ProductID] = true
	}
	for key, cc := range competition {
		cc.UniqueProducts = len(slotProducts[key])
	}

	products := make([]string, 0, len(perf))
	for id := range perf {
		products = append(products, id)
	}
	slices.Sort(products)

	for _, productID := range products {
		if len(perf[productID]) < 2 {
			continue
		}
		cities := make([]cityPerformance, 0, len(perf[productID]))
		for _, cp := range perf[productID] {
			cities = append(cities, *cp)
		}
		slices.SortFunc(cities, func(x, y cityPerformance) int {
			if c := cmp.Compare(y.avg(), x.avg()); c != 0 {
				return c
			}
			return strings.Compare(x.city, y.city)
		})
		best, worst := cities[0], cities[len(cities)-1]
		info := firstRow[productID]

		var rivals []models.CategoryCityCompetition
		for key, cc := range competition {
			if key.category == info.Category {
				rivals = append(rivals, *cc)
			}
		}
		slices.SortFunc(rivals, func(x, y models.CategoryCityCompetition) int {
			if c := cmp.Compare(y.Revenue, x.Revenue); c != 0 {
				return c
			}
			return strings.Compare(x.City, y.City)
		})

		inBestCity := 0
		if cc, ok := competition[slot{info.Category, best.city}]; ok {
			inBestCity = cc.UniqueProducts - 1
		}

		a.ProductRecommendations = append(a.ProductRecommendations, models.ProductOwnerRecommendation{
			ProductID:          productID,
			ProductName:        info.ProductName,
			Category:           info.Category,
			Type:               "premium_analysis",
			BestCity:           best.city,
			BestCityAvgSales:   best.avg(),
			WorstCity:          worst.city,
			WorstCityAvgSales:  worst.avg(),
			CompetitorCount:    len(rivals),
			CompetitorsInCity:  inBestCity,
			TopCompetitorSlots: rivals[:min(len(rivals), topCompetitors)],
			Recommendations: []string{
				fmt.Sprintf("Increase marketing in %s where demand is highest", best.city),
				fmt.Sprintf("Review pricing strategy in %s", worst.city),
				fmt.Sprintf("Consider promotions to compete with %d other products in this category", len(rivals)),
			},
		})
	}
	return a, nil
}
