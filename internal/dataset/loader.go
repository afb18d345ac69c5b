package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pasale-analytics/internal/models"
)

var (
	ErrSourceNotFound = errors.New("data file not found")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoTransactions = errors.New("no valid transactions found")
)

const (
	defaultShopCity     = "Default City"
	defaultGender       = "Unknown"
	defaultCustomerCity = "Unknown"
	defaultAge          = 30
	defaultVisits       = 1.0
	defaultBrand        = "Unknown"
)

// Sources holds the paths of the four input tables.
type Sources struct {
	Transactions string
	Products     string
	Shops        string
	Customers    string
}

func (s Sources) paths() []string {
	return []string{s.Transactions, s.Products, s.Shops, s.Customers}
}

// LoadReport collects the non-fatal data-quality findings of a load.
type LoadReport struct {
	TransactionRows  int      `json:"transaction_rows"`
	BadTimestamps    int      `json:"bad_timestamps"`
	InvalidRows      int      `json:"invalid_rows"`
	MissingProducts  int      `json:"missing_products"`
	MissingShops     int      `json:"missing_shops"`
	MissingCustomers int      `json:"missing_customers"`
	Synthesized      []string `json:"synthesized_columns,omitempty"`
}

// Tables is the parsed, schema-repaired content of the four sources.
type Tables struct {
	Transactions           []models.Transaction
	Products               []models.Product
	Shops                  []models.Shop
	Customers              []models.Customer
	CustomerIDsSynthesized bool
	Report                 LoadReport
}

type table struct {
	name   string
	header map[string]int
	rows   [][]string
}

func (t *table) col(names ...string) int {
	for _, name := range names {
		if idx, ok := t.header[name]; ok {
			return idx
		}
	}
	return -1
}

func (t *table) missing(names ...string) []string {
	var out []string
	for _, name := range names {
		if t.col(name) < 0 {
			out = append(out, name)
		}
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readTable(ctx context.Context, name, path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}

	t := &table{name: name, header: make(map[string]int, len(header))}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := t.header[key]; !dup {
			t.header[key] = i
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// LoadTables reads the four CSV sources concurrently and repairs schema gaps.
// Missing files and missing core columns are fatal; everything else is logged.
func LoadTables(ctx context.Context, src Sources, opts Options, logger *slog.Logger) (*Tables, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, path := range src.paths() {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
	}

	var txT, prodT, shopT, custT *table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { txT, err = readTable(gctx, "transactions", src.Transactions); return })
	g.Go(func() (err error) { prodT, err = readTable(gctx, "products", src.Products); return })
	g.Go(func() (err error) { shopT, err = readTable(gctx, "shops", src.Shops); return })
	g.Go(func() (err error) { custT, err = readTable(gctx, "customers", src.Customers); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := &Tables{}
	if err := parseTransactions(txT, tables, logger); err != nil {
		return nil, err
	}
	if err := parseProducts(prodT, tables, logger); err != nil {
		return nil, err
	}
	parseShops(shopT, tables, opts, logger)
	parseCustomers(custT, tables, logger)

	logger.Info("source tables loaded",
		"transactions", len(tables.Transactions),
		"products", len(tables.Products),
		"shops", len(tables.Shops),
		"customers", len(tables.Customers),
	)
	return tables, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseQuantity(s string) (int, error) {
	if q, err := strconv.Atoi(s); err == nil {
		return q, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("quantity %q is not integral", s)
	}
	return int(f), nil
}

func parseTransactions(t *table, out *Tables, logger *slog.Logger) error {
	required := []string{"transaction_id", "product_id", "shop_id", "quantity", "unit_price", "total_amount", "transaction_time"}
	if missing := t.missing(required...); len(missing) > 0 {
		return fmt.Errorf("transactions: %w: %v", ErrMissingColumns, missing)
	}

	idCol := t.col("transaction_id")
	custCol := t.col("customer_id")
	prodCol := t.col("product_id")
	shopCol := t.col("shop_id")
	qtyCol := t.col("quantity")
	priceCol := t.col("unit_price")
	totalCol := t.col("total_amount")
	timeCol := t.col("transaction_time")

	if custCol < 0 {
		logger.Warn("customer_id not found in transactions, synthesizing sequential ids")
		out.CustomerIDsSynthesized = true
		out.Report.Synthesized = append(out.Report.Synthesized, "transactions.customer_id")
	}

	out.Transactions = make([]models.Transaction, 0, len(t.rows))
	for i, row := range t.rows {
		ts, err := parseTimestamp(cell(row, timeCol))
		if err != nil {
			out.Report.BadTimestamps++
			continue
		}
		qty, err := parseQuantity(cell(row, qtyCol))
		if err != nil || qty < 0 {
			out.Report.InvalidRows++
			continue
		}
		price, err := strconv.ParseFloat(cell(row, priceCol), 64)
		if err != nil {
			out.Report.InvalidRows++
			continue
		}
		total, err := strconv.ParseFloat(cell(row, totalCol), 64)
		if err != nil {
			out.Report.InvalidRows++
			continue
		}

		customerID := cell(row, custCol)
		if out.CustomerIDsSynthesized {
			customerID = fmt.Sprintf("CUST_%06d", i+1)
		}

		out.Transactions = append(out.Transactions, models.Transaction{
			TransactionID:   cell(row, idCol),
			CustomerID:      customerID,
			ProductID:       cell(row, prodCol),
			ShopID:          cell(row, shopCol),
			Quantity:        qty,
			UnitPrice:       price,
			TotalAmount:     total,
			TransactionTime: ts,
		})
	}

	out.Report.TransactionRows = len(out.Transactions)
	if out.Report.BadTimestamps > 0 {
		logger.Warn("dropped transactions with missing or unparseable timestamps", "rows", out.Report.BadTimestamps)
	}
	if out.Report.InvalidRows > 0 {
		logger.Warn("skipped transactions with invalid numeric fields", "rows", out.Report.InvalidRows)
	}
	if len(out.Transactions) == 0 {
		return ErrNoTransactions
	}
	return nil
}

func parseProducts(t *table, out *Tables, logger *slog.Logger) error {
	required := []string{"product_id", "product_name", "category", "standard_price"}
	if missing := t.missing(required...); len(missing) > 0 {
		return fmt.Errorf("products: %w: %v", ErrMissingColumns, missing)
	}

	idCol := t.col("product_id")
	nameCol := t.col("product_name")
	catCol := t.col("category")
	brandCol := t.col("brand")
	priceCol := t.col("standard_price")

	out.Products = make([]models.Product, 0, len(t.rows))
	for _, row := range t.rows {
		price, err := strconv.ParseFloat(cell(row, priceCol), 64)
		if err != nil {
			logger.Warn("product has invalid standard_price", "product_id", cell(row, idCol), "value", cell(row, priceCol))
			price = 0
		}
		brand := cell(row, brandCol)
		if brand == "" {
			brand = defaultBrand
		}
		out.Products = append(out.Products, models.Product{
			ProductID:     cell(row, idCol),
			ProductName:   cell(row, nameCol),
			Category:      cell(row, catCol),
			Brand:         brand,
			StandardPrice: price,
		})
	}
	return nil
}

func parseShops(t *table, out *Tables, opts Options, logger *slog.Logger) {
	idCol := t.col("shop_id")
	nameCol := t.col("shop_name", "name", "store_name")
	cityCol := t.col("city", "location", "area")
	latCol := t.col("latitude")
	lonCol := t.col("longitude")

	if idCol < 0 {
		logger.Warn("shop_id not found in shops, synthesizing sequential ids")
		out.Report.Synthesized = append(out.Report.Synthesized, "shops.shop_id")
	}
	if nameCol < 0 {
		logger.Warn("shop_name not found in shops, creating generic names")
		out.Report.Synthesized = append(out.Report.Synthesized, "shops.shop_name")
	}
	if cityCol < 0 {
		logger.Warn("city not found in shops, using default city")
		out.Report.Synthesized = append(out.Report.Synthesized, "shops.city")
	}

	out.Shops = make([]models.Shop, 0, len(t.rows))
	for i, row := range t.rows {
		shopID := cell(row, idCol)
		if idCol < 0 {
			shopID = fmt.Sprintf("SHOP_%06d", i+1)
		}

		name := cell(row, nameCol)
		if nameCol < 0 {
			if idCol >= 0 {
				name = "Shop_" + shopID
			} else {
				name = "Shop_" + strconv.Itoa(i+1)
			}
		}

		city := cell(row, cityCol)
		if cityCol < 0 {
			city = defaultShopCity
		}

		lat, err := strconv.ParseFloat(cell(row, latCol), 64)
		if err != nil {
			lat = opts.DefaultLatitude
		}
		lon, err := strconv.ParseFloat(cell(row, lonCol), 64)
		if err != nil {
			lon = opts.DefaultLongitude
		}

		out.Shops = append(out.Shops, models.Shop{
			ShopID:    shopID,
			ShopName:  name,
			City:      city,
			Latitude:  lat,
			Longitude: lon,
		})
	}
}

func parseCustomers(t *table, out *Tables, logger *slog.Logger) {
	idCol := t.col("customer_id")
	if idCol < 0 {
		logger.Warn("customer_id not found in customers, building profiles from transactions")
		out.Report.Synthesized = append(out.Report.Synthesized, "customers.customer_id")
		seen := make(map[string]struct{})
		for _, tx := range out.Transactions {
			if _, ok := seen[tx.CustomerID]; ok {
				continue
			}
			seen[tx.CustomerID] = struct{}{}
			out.Customers = append(out.Customers, defaultCustomer(tx.CustomerID))
		}
		return
	}

	genderCol := t.col("gender")
	ageCol := t.col("age")
	cityCol := t.col("city")
	prefCol := t.col("preferred_categories")
	spendCol := t.col("avg_monthly_spending")
	visitsCol := t.col("visits_per_month")

	out.Customers = make([]models.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		c := defaultCustomer(cell(row, idCol))
		if v := cell(row, genderCol); v != "" {
			c.Gender = v
		}
		if v, err := parseQuantity(cell(row, ageCol)); err == nil {
			c.Age = v
		}
		if v := cell(row, cityCol); v != "" {
			c.City = v
		}
		c.PreferredCategories = parseCategoryList(cell(row, prefCol))
		if v, err := strconv.ParseFloat(cell(row, spendCol), 64); err == nil {
			c.AvgMonthlySpending = v
		}
		if v, err := strconv.ParseFloat(cell(row, visitsCol), 64); err == nil {
			c.VisitsPerMonth = v
		}
		out.Customers = append(out.Customers, c)
	}
}

func defaultCustomer(id string) models.Customer {
	return models.Customer{
		CustomerID:     id,
		Gender:         defaultGender,
		Age:            defaultAge,
		City:           defaultCustomerCity,
		VisitsPerMonth: defaultVisits,
	}
}

// parseCategoryList accepts a JSON array or a comma separated list.
func parseCategoryList(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	if strings.HasPrefix(s, "[") {
		normalized := strings.ReplaceAll(s, "'", "\"")
		if err := json.Unmarshal([]byte(normalized), &list); err == nil {
			return compact(list)
		}
		s = strings.Trim(s, "[]")
	}
	return compact(strings.Split(s, ","))
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
