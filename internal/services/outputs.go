package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pasale-analytics/internal/dataset"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/models"
	"pasale-analytics/internal/observability"
	"pasale-analytics/internal/recommend"
)

const (
	MonthlyPredictionsFile    = "monthly_predictions.csv"
	ShopkeeperFile            = "shopkeeper_recommendations.csv"
	CustomerFile              = "customer_recommendations.csv"
	ProductOwnerFile          = "product_owner_recommendations.csv"
	ProductOwnerBasicFile     = "product_owner_basic_analytics.json"
	ModelFile                 = "sales_prediction_model.gob"
	ManifestFile              = "manifest.json"
	SQLiteFile                = "analytics.db"
	outputWorkers             = 4
	productOwnerListSeparator = "; "
)

type OutputFile struct {
	Name string `json:"name"`
	Rows int    `json:"rows,omitempty"`
}

type Manifest struct {
	RunID            string         `json:"run_id"`
	GeneratedAt      time.Time      `json:"generated_at"`
	SubscriptionPlan recommend.Plan `json:"subscription_plan"`
	ModelTarget      string         `json:"model_target"`
	ModelMetrics     demand.Metrics `json:"model_metrics"`
	Files            []OutputFile   `json:"files"`
}

// column is one export column; kind is its SQLite storage class.
type column struct {
	name string
	kind string
}

// table is an in-memory export written both as CSV and, optionally, to SQLite.
type table struct {
	name    string
	file    string
	columns []column
	rows    [][]any
}

// SaveOutputs exports predictions, recommendations and the model to dir.
// The model is trained first if needed. Artifacts are generated concurrently;
// the manifest is written last so its presence marks a complete run.
func (p *Pipeline) SaveOutputs(ctx context.Context, dir string) (manifest Manifest, err error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	ctx, span := observability.StartSpan(ctx, "pipeline.save_outputs")
	logger := observability.LoggerFrom(ctx, p.logger)
	defer span.End(logger, &err)

	model, err := p.ensureModel(ctx)
	if err != nil {
		return Manifest{}, err
	}
	s := p.snapshot()
	if s.data == nil {
		return Manifest{}, ErrNoData
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Manifest{}, fmt.Errorf("create output dir: %w", err)
	}

	var (
		predictions, shopkeeper, customers, owner *table
		ownerJSON                                 *recommend.BasicAnalytics
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(outputWorkers)
	g.Go(func() (err error) {
		predictions, err = predictionsTable(s.data, model)
		return err
	})
	g.Go(func() error {
		recs, err := recommend.Shopkeeper(s.data, model, p.opts.Recommend)
		if err != nil {
			return err
		}
		shopkeeper = shopkeeperTable(recs)
		return nil
	})
	g.Go(func() error {
		customers = customerTable(recommend.Customers(s.data, p.opts.Recommend))
		return nil
	})
	g.Go(func() error {
		if s.plan != recommend.PlanPremium {
			basic := recommend.ProductOwnerBasic(s.data)
			ownerJSON = &basic
			return nil
		}
		premium, err := recommend.ProductOwnerPremium(s.data, s.plan)
		if err != nil {
			return err
		}
		owner = productOwnerTable(premium.ProductRecommendations)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		return writeModel(filepath.Join(dir, ModelFile), model)
	})
	if err := g.Wait(); err != nil {
		return Manifest{}, fmt.Errorf("generate outputs: %w", err)
	}

	manifest = Manifest{
		RunID:            runID,
		GeneratedAt:      time.Now().UTC(),
		SubscriptionPlan: s.plan,
		ModelTarget:      model.Target,
		ModelMetrics:     model.Metrics,
	}

	tables := []*table{predictions, shopkeeper, customers}
	if owner != nil {
		tables = append(tables, owner)
	}
	for _, t := range tables {
		if err := writeCSV(filepath.Join(dir, t.file), t); err != nil {
			return Manifest{}, err
		}
		manifest.Files = append(manifest.Files, OutputFile{Name: t.file, Rows: len(t.rows)})
	}
	if ownerJSON != nil {
		if err := writeJSON(filepath.Join(dir, ProductOwnerBasicFile), ownerJSON); err != nil {
			return Manifest{}, err
		}
		manifest.Files = append(manifest.Files, OutputFile{Name: ProductOwnerBasicFile})
	}
	manifest.Files = append(manifest.Files, OutputFile{Name: ModelFile})

	if p.opts.SQLite {
		if err := writeSQLite(ctx, filepath.Join(dir, SQLiteFile), runID, tables); err != nil {
			return Manifest{}, err
		}
		manifest.Files = append(manifest.Files, OutputFile{Name: SQLiteFile})
	}

	if err := writeJSON(filepath.Join(dir, ManifestFile), manifest); err != nil {
		return Manifest{}, err
	}
	span.Set("files", len(manifest.Files))
	return manifest, nil
}

func predictionsTable(ds *dataset.Dataset, model *demand.Model) (*table, error) {
	rows := ds.Features()
	predicted, err := model.PredictRows(rows)
	if err != nil {
		return nil, fmt.Errorf("predict monthly rows: %w", err)
	}

	t := &table{
		name: "monthly_predictions",
		file: MonthlyPredictionsFile,
		columns: []column{
			{"product_id", "TEXT"}, {"shop_id", "TEXT"}, {"year_month", "TEXT"},
			{"product_name", "TEXT"}, {"category", "TEXT"}, {"shop_city", "TEXT"},
			{"monthly_quantity", "INTEGER"}, {"monthly_revenue", "REAL"}, {"avg_price", "REAL"},
			{"last_month_qty", "REAL"}, {"last_2_months_qty", "REAL"}, {"last_3_months_qty", "REAL"},
			{"avg_last_3_months", "REAL"}, {"trend", "REAL"}, {"price_difference", "REAL"},
			{"is_holiday_month", "INTEGER"}, {"is_summer", "INTEGER"},
			{"predicted_quantity", "REAL"},
		},
	}
	for i, r := range rows {
		t.rows = append(t.rows, []any{
			r.ProductID, r.ShopID, r.Month.String(),
			r.ProductName, r.Category, r.ShopCity,
			r.MonthlyQuantity, r.MonthlyRevenue, r.AvgPrice,
			r.LastMonthQty, r.Last2MonthsQty, r.Last3MonthsQty,
			r.AvgLast3Months, r.Trend, r.PriceDifference,
			r.IsHolidayMonth, r.IsSummer,
			predicted[i],
		})
	}
	return t, nil
}

func shopkeeperTable(recs []models.StockRecommendation) *table {
	t := &table{
		name: "shopkeeper_recommendations",
		file: ShopkeeperFile,
		columns: []column{
			{"shop_id", "TEXT"}, {"product_id", "TEXT"}, {"product_name", "TEXT"},
			{"category", "TEXT"}, {"type", "TEXT"}, {"current_avg", "REAL"},
			{"predicted", "REAL"}, {"reason", "TEXT"}, {"priority", "TEXT"},
		},
	}
	for _, r := range recs {
		t.rows = append(t.rows, []any{
			r.ShopID, r.ProductID, r.ProductName, r.Category, r.Type,
			r.CurrentAvg, r.Predicted, r.Reason, r.Priority,
		})
	}
	return t
}

func customerTable(recs []models.CustomerRecommendation) *table {
	t := &table{
		name: "customer_recommendations",
		file: CustomerFile,
		columns: []column{
			{"customer_id", "TEXT"}, {"product_id", "TEXT"}, {"product_name", "TEXT"},
			{"category", "TEXT"}, {"recommended_shop", "TEXT"}, {"reason", "TEXT"},
			{"confidence", "TEXT"}, {"recommendation_type", "TEXT"},
		},
	}
	for _, r := range recs {
		t.rows = append(t.rows, []any{
			r.CustomerID, r.ProductID, r.ProductName, r.Category,
			r.RecommendedShop, r.Reason, string(r.Confidence), r.RecommendationType,
		})
	}
	return t
}

func productOwnerTable(recs []models.ProductOwnerRecommendation) *table {
	t := &table{
		name: "product_owner_recommendations",
		file: ProductOwnerFile,
		columns: []column{
			{"product_id", "TEXT"}, {"product_name", "TEXT"}, {"category", "TEXT"},
			{"type", "TEXT"}, {"best_performing_city", "TEXT"}, {"best_city_avg_sales", "REAL"},
			{"worst_performing_city", "TEXT"}, {"worst_city_avg_sales", "REAL"},
			{"competitor_count", "INTEGER"}, {"competitors_in_best_city", "INTEGER"},
			{"recommendations", "TEXT"},
		},
	}
	for _, r := range recs {
		t.rows = append(t.rows, []any{
			r.ProductID, r.ProductName, r.Category, r.Type,
			r.BestCity, r.BestCityAvgSales, r.WorstCity, r.WorstCityAvgSales,
			r.CompetitorCount, r.CompetitorsInCity,
			strings.Join(r.Recommendations, productOwnerListSeparator),
		})
	}
	return t
}

func writeCSV(path string, t *table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.file, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := make([]string, len(t.columns))
	for i, c := range t.columns {
		header[i] = c.name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", t.file, err)
	}
	record := make([]string, len(t.columns))
	for _, row := range t.rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", t.file, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", t.file, err)
	}
	return file.Close()
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeModel(path string, m *demand.Model) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer file.Close()

	if err := demand.Save(file, m); err != nil {
		return err
	}
	return file.Close()
}
