// Command pipeline runs the batch flow end to end: load the four CSV
// sources, train the demand model, and export predictions and
// recommendations to the output directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"pasale-analytics/internal/config"
	"pasale-analytics/internal/demand"
	"pasale-analytics/internal/observability"
	"pasale-analytics/internal/recommend"
	"pasale-analytics/internal/services"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	transactions := fs.String("transactions", cfg.Data.TransactionsFile, "Transactions CSV")
	products := fs.String("products", cfg.Data.ProductsFile, "Products CSV")
	shops := fs.String("shops", cfg.Data.ShopsFile, "Shops CSV")
	customers := fs.String("customers", cfg.Data.CustomersFile, "Customers CSV")
	outDir := fs.String("out-dir", cfg.Data.OutputDir, "Output directory")
	plan := fs.String("plan", cfg.Subscription.DefaultPlan, "Subscription plan (free or premium)")
	target := fs.String("target", demand.TargetQuantity, "Model target column (monthly_quantity or monthly_revenue)")
	sqlite := fs.Bool("sqlite", cfg.Export.SQLite, "Also write outputs to "+services.SQLiteFile)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Data.TransactionsFile = *transactions
	cfg.Data.ProductsFile = *products
	cfg.Data.ShopsFile = *shops
	cfg.Data.CustomersFile = *customers
	cfg.Subscription.DefaultPlan = *plan
	cfg.Export.SQLite = *sqlite

	logger := observability.NewLoggerTo(stderr, cfg.Logger)

	opts, err := services.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Target = *target
	pipeline := services.NewPipeline(opts, logger)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	err = pipeline.Load(loadCtx, services.SourcesFromConfig(cfg.Data))
	cancel()
	if err != nil {
		return err
	}

	trainCtx, cancel := context.WithTimeout(ctx, cfg.Model.TrainTimeout)
	defer cancel()
	if !pipeline.Trained() {
		if _, err := pipeline.Train(trainCtx); err != nil {
			return err
		}
	}

	manifest, err := pipeline.SaveOutputs(trainCtx, *outDir)
	if err != nil {
		return err
	}
	return printManifest(stdout, *outDir, manifest)
}

func printManifest(w io.Writer, dir string, m services.Manifest) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", m.RunID)
	fmt.Fprintf(tw, "plan\t%s\n", m.SubscriptionPlan)
	fmt.Fprintf(tw, "target\t%s\n", m.ModelTarget)
	fmt.Fprintf(tw, "r2\t%.3f\n", m.ModelMetrics.R2)
	fmt.Fprintf(tw, "mae\t%.3f\n", m.ModelMetrics.MAE)
	fmt.Fprintf(tw, "output\t%s\n", dir)
	for _, f := range m.Files {
		fmt.Fprintf(tw, "  %s\t%d rows\n", f.Name, f.Rows)
	}
	if m.SubscriptionPlan != recommend.PlanPremium {
		fmt.Fprintln(tw, "upgrade to premium for competitor analysis")
	}
	return tw.Flush()
}
