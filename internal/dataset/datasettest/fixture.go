// Package datasettest provides in-memory fixtures for packages built on
// dataset.Dataset.
package datasettest

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/models"
)

// Start is the first month of every fixture series.
var Start = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Series returns one transaction per month starting at start, with quantities
// taken in order and customers assigned round-robin.
func Series(productID, shopID string, customers []string, start time.Time, unitPrice float64, quantities ...int) []models.Transaction {
	out := make([]models.Transaction, 0, len(quantities))
	for i, q := range quantities {
		out = append(out, models.Transaction{
			TransactionID:   fmt.Sprintf("%s-%s-%02d", productID, shopID, i+1),
			CustomerID:      customers[i%len(customers)],
			ProductID:       productID,
			ShopID:          shopID,
			Quantity:        q,
			UnitPrice:       unitPrice,
			TotalAmount:     unitPrice * float64(q),
			TransactionTime: start.AddDate(0, i, 0),
		})
	}
	return out
}

func Products() []models.Product {
	return []models.Product{
		{ProductID: "P1", ProductName: "Basmati Rice", Category: "Grocery", Brand: "Himalayan", StandardPrice: 100},
		{ProductID: "P2", ProductName: "Red Lentils", Category: "Grocery", Brand: "Himalayan", StandardPrice: 150},
		{ProductID: "P3", ProductName: "Bath Soap", Category: "Household", Brand: "Clean", StandardPrice: 50},
		{ProductID: "P4", ProductName: "Shampoo", Category: "Household", Brand: "Clean", StandardPrice: 200},
		{ProductID: "P5", ProductName: "Notebook", Category: "Stationery", Brand: "Paper Co", StandardPrice: 30},
	}
}

func Shops() []models.Shop {
	return []models.Shop{
		{ShopID: "S1", ShopName: "Asan Store", City: "Kathmandu", Latitude: 27.7, Longitude: 85.3},
		{ShopID: "S2", ShopName: "Lakeside Mart", City: "Pokhara", Latitude: 28.2, Longitude: 83.9},
		{ShopID: "S3", ShopName: "Patan Corner", City: "Lalitpur", Latitude: 27.6, Longitude: 85.3},
	}
}

func Customers() []models.Customer {
	return []models.Customer{
		{CustomerID: "C1", Gender: "F", Age: 34, City: "Kathmandu", PreferredCategories: []string{"Grocery"}, AvgMonthlySpending: 3000, VisitsPerMonth: 4},
		{CustomerID: "C2", Gender: "M", Age: 41, City: "Kathmandu", PreferredCategories: []string{"Grocery", "Household"}, AvgMonthlySpending: 2500, VisitsPerMonth: 3},
		{CustomerID: "C3", Gender: "F", Age: 27, City: "Pokhara", PreferredCategories: []string{"Household"}, AvgMonthlySpending: 1200, VisitsPerMonth: 2},
		{CustomerID: "C4", Gender: "M", Age: 52, City: "Pokhara", AvgMonthlySpending: 800, VisitsPerMonth: 1},
		{CustomerID: "C5", Gender: "F", Age: 23, City: "Lalitpur", PreferredCategories: []string{"Stationery"}, AvgMonthlySpending: 400, VisitsPerMonth: 2},
		{CustomerID: "C6", Gender: "M", Age: 38, City: "Lalitpur", AvgMonthlySpending: 1500, VisitsPerMonth: 2},
	}
}

// Transactions holds four six-month series, one two-month series and no
// sales for P4.
func Transactions() []models.Transaction {
	var tx []models.Transaction
	tx = append(tx, Series("P1", "S1", []string{"C1", "C2"}, Start, 105, 10, 12, 9, 15, 11, 14)...)
	tx = append(tx, Series("P2", "S1", []string{"C2", "C1", "C6"}, Start, 150, 5, 6, 7, 8, 6, 9)...)
	tx = append(tx, Series("P3", "S2", []string{"C3", "C4"}, Start, 45, 20, 18, 22, 25, 21, 24)...)
	tx = append(tx, Series("P1", "S2", []string{"C4", "C3", "C6"}, Start, 100, 4, 5, 3, 6, 5, 7)...)
	tx = append(tx, Series("P5", "S3", []string{"C5"}, Start, 30, 3, 4)...)
	return tx
}

// Tables returns the full fixture as parsed tables.
func Tables() *dataset.Tables {
	tx := Transactions()
	return &dataset.Tables{
		Transactions: tx,
		Products:     Products(),
		Shops:        Shops(),
		Customers:    Customers(),
		Report:       dataset.LoadReport{TransactionRows: len(tx)},
	}
}

// Dataset builds the fixture with the default options.
func Dataset() *dataset.Dataset {
	return dataset.New(Tables(), dataset.DefaultOptions(), Logger())
}
