package dataset

import (
	"slices"
	"strings"

	"pasale-analytics/internal/models"
)

type profileAccumulator struct {
	profile  models.CustomerProfile
	products map[string]struct{}
	shops    map[string]struct{}
}

// BuildProfiles aggregates merged records into one profile per customer,
// ordered by customer id. Segment fields are left unassigned.
func BuildProfiles(records []models.Record) []models.CustomerProfile {
	accs := make(map[string]*profileAccumulator)
	for _, rec := range records {
		acc, ok := accs[rec.CustomerID]
		if !ok {
			acc = &profileAccumulator{
				profile: models.CustomerProfile{
					CustomerID:          rec.CustomerID,
					FirstSeen:           rec.TransactionTime,
					LastSeen:            rec.TransactionTime,
					Gender:              rec.Gender,
					Age:                 rec.Age,
					City:                rec.CustomerCity,
					PreferredCategories: rec.PreferredCategories,
					AvgMonthlySpending:  rec.AvgMonthlySpending,
					VisitsPerMonth:      rec.VisitsPerMonth,
					Segment:             -1,
				},
				products: make(map[string]struct{}),
				shops:    make(map[string]struct{}),
			}
			accs[rec.CustomerID] = acc
		}

		p := &acc.profile
		p.TotalSpend += rec.TotalAmount
		p.TransactionCount++
		p.TotalQuantity += rec.Quantity
		if rec.TransactionTime.Before(p.FirstSeen) {
			p.FirstSeen = rec.TransactionTime
		}
		if rec.TransactionTime.After(p.LastSeen) {
			p.LastSeen = rec.TransactionTime
		}
		acc.products[rec.ProductID] = struct{}{}
		acc.shops[rec.ShopID] = struct{}{}
	}

	profiles := make([]models.CustomerProfile, 0, len(accs))
	for _, acc := range accs {
		p := acc.profile
		p.UniqueProducts = len(acc.products)
		p.UniqueShops = len(acc.shops)
		p.AvgTransaction = p.TotalSpend / float64(p.TransactionCount)
		p.AvgBasketSize = float64(p.TotalQuantity) / float64(p.TransactionCount)
		p.TenureDays = int(p.LastSeen.Sub(p.FirstSeen).Hours() / 24)
		profiles = append(profiles, p)
	}
	slices.SortFunc(profiles, func(a, b models.CustomerProfile) int {
		return strings.Compare(a.CustomerID, b.CustomerID)
	})
	return profiles
}
