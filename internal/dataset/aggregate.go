package dataset

import (
	"slices"
	"strings"

	"pasale-analytics/internal/models"
)

const unknownCustomer = "UNKNOWN"

type pairKey struct {
	ProductID string
	ShopID    string
}

type slotKey struct {
	pairKey
	Month models.YearMonth
}

type customerMonthKey struct {
	CustomerID string
	Month      models.YearMonth
}

type customerMonth struct {
	quantity int
	spend    float64
	products map[string]struct{}
}

type slotAccumulator struct {
	row        models.MonthlyRow
	priceSum   float64
	priceCount int
}

// AggregateMonthly groups records by product, shop and calendar month.
//
// Each slot carries the monthly metrics of the first customer observed in it.
// When customer ids were synthesized the customer metrics are the slot's own
// quantity and revenue, since no real per-customer signal exists.
func AggregateMonthly(records []models.Record, customerIDsSynthesized bool) []models.MonthlyRow {
	slots := make(map[slotKey]*slotAccumulator)
	order := make([]slotKey, 0)
	customerMonths := make(map[customerMonthKey]*customerMonth)

	for _, rec := range records {
		month := models.MonthOf(rec.TransactionTime)
		key := slotKey{pairKey: pairKey{rec.ProductID, rec.ShopID}, Month: month}

		acc, ok := slots[key]
		if !ok {
			acc = &slotAccumulator{row: models.MonthlyRow{
				ProductID:     rec.ProductID,
				ShopID:        rec.ShopID,
				Month:         month,
				ProductName:   rec.ProductName,
				Category:      rec.Category,
				Brand:         rec.Brand,
				StandardPrice: rec.StandardPrice,
				ShopName:      rec.ShopName,
				ShopCity:      rec.ShopCity,
				CustomerID:    rec.CustomerID,
			}}
			slots[key] = acc
			order = append(order, key)
		}
		acc.row.MonthlyQuantity += rec.Quantity
		acc.row.MonthlyRevenue += rec.TotalAmount
		acc.priceSum += rec.UnitPrice
		acc.priceCount++

		if customerIDsSynthesized {
			continue
		}
		ck := customerMonthKey{rec.CustomerID, month}
		cm, ok := customerMonths[ck]
		if !ok {
			cm = &customerMonth{products: make(map[string]struct{})}
			customerMonths[ck] = cm
		}
		cm.quantity += rec.Quantity
		cm.spend += rec.TotalAmount
		cm.products[rec.ProductID] = struct{}{}
	}

	rows := make([]models.MonthlyRow, 0, len(order))
	for _, key := range order {
		acc := slots[key]
		row := acc.row
		row.AvgPrice = acc.priceSum / float64(acc.priceCount)

		if customerIDsSynthesized {
			row.CustomerID = unknownCustomer
			row.CustomerMonthlyQuantity = row.MonthlyQuantity
			row.CustomerMonthlySpend = row.MonthlyRevenue
			row.UniqueProductsPurchased = 1
		} else if cm, ok := customerMonths[customerMonthKey{row.CustomerID, row.Month}]; ok {
			row.CustomerMonthlyQuantity = cm.quantity
			row.CustomerMonthlySpend = cm.spend
			row.UniqueProductsPurchased = len(cm.products)
		}
		rows = append(rows, row)
	}

	slices.SortStableFunc(rows, compareMonthly)
	return rows
}

func compareMonthly(a, b models.MonthlyRow) int {
	if c := strings.Compare(a.ProductID, b.ProductID); c != 0 {
		return c
	}
	if c := strings.Compare(a.ShopID, b.ShopID); c != 0 {
		return c
	}
	return a.Month.Compare(b.Month)
}
