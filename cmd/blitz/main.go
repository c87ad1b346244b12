package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
	"github.com/kuratuapp/liquidationblitz/internal/catalog"
	"github.com/kuratuapp/liquidationblitz/internal/history"
	"github.com/kuratuapp/liquidationblitz/internal/manifest"
	"github.com/kuratuapp/liquidationblitz/internal/pipeline"
	"github.com/kuratuapp/liquidationblitz/internal/rehost"
	"github.com/kuratuapp/liquidationblitz/internal/render"
	"github.com/kuratuapp/liquidationblitz/pkg/config"
	"github.com/kuratuapp/liquidationblitz/pkg/db"
	"github.com/kuratuapp/liquidationblitz/pkg/logger"
	"github.com/kuratuapp/liquidationblitz/pkg/metrics"
	"github.com/kuratuapp/liquidationblitz/pkg/redis"
	"github.com/kuratuapp/liquidationblitz/pkg/storage/gcs"
)

const usage = `usage: blitz <command> [flags]

commands:
  process  -markup <pct> <manifest.xlsx> [more.xlsx ...]
  delete   <lot-number> [more-lots ...]
  stats
  history  [-lot <lot-number>] [-limit <n>]
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blitz:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		ServiceName: "liquidationblitz",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	app, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.close()

	switch os.Args[1] {
	case "process":
		return cmdProcess(ctx, app, os.Args[2:])
	case "delete":
		return cmdDelete(ctx, app, os.Args[2:])
	case "stats":
		return cmdStats(ctx, app)
	case "history":
		return cmdHistory(ctx, app, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// application holds the wired collaborators and their teardown hooks.
type application struct {
	svc     *pipeline.Service
	runs    *history.Repository
	dbConn  *db.Client
	cache   *redis.Client
	log     *logger.Logger
}

func (a *application) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.dbConn != nil {
		_ = a.dbConn.Close()
	}
}

func wire(ctx context.Context, cfg *config.Config, log *logger.Logger) (*application, error) {
	dbConn, err := db.New(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	runs := history.NewRepository(dbConn)
	if cfg.FeatureFlags.AutoMigrate {
		if err := runs.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	store, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, log)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	var cache *redis.Client
	var rehostCache rehost.Cache
	if cfg.Redis.Enabled() {
		cache, err = redis.New(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		rehostCache = cache
	}

	m := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	rehoster := rehost.New(store, rehostCache, rehost.Config{
		Bucket:       cfg.GCS.ImageBucketName(),
		Prefix:       cfg.GCS.ImagePrefix,
		FetchTimeout: cfg.Rehost.FetchTimeout,
		CacheTTL:     cfg.Rehost.CacheTTL,
	}, log, m)

	gotenberg := render.NewGotenberg(cfg.Render.GotenbergURL, cfg.Render.Timeout)
	renderer := render.NewRenderer(gotenberg, shippingRates(cfg.Shipping))

	engine := catalog.NewEngine(
		catalog.NewObjectStore(store, cfg.GCS.CatalogBucketName(), cfg.Catalog.ObjectName),
		log,
	)

	svc, err := pipeline.New(pipeline.Input{
		Parser:   manifest.NewParser(log),
		Renderer: renderer,
		Store:    store,
		Rehoster: rehoster,
		Catalog:  engine,
		Ledger:   runs,
		Config:   cfg,
		Logger:   log,
		Metrics:  m,
	})
	if err != nil {
		return nil, err
	}

	return &application{svc: svc, runs: runs, dbConn: dbConn, cache: cache, log: log}, nil
}

func shippingRates(cfg config.ShippingConfig) batch.ShippingRates {
	return batch.ShippingRates{
		RatePerKg:     cfg.RatePerKg,
		MinChargeKg:   cfg.MinChargeKg,
		LbsPerPallet:  cfg.LbsPerPallet,
		LbsPerUnitEst: cfg.LbsPerUnitEst,
	}
}

func cmdProcess(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	markup := fs.Float64("markup", 0, "markup percentage applied to client costs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("process: at least one manifest file is required")
	}

	reports, err := app.svc.ProcessAll(ctx, paths, *markup)
	for _, r := range reports {
		fmt.Printf("lot %s: %d items, listed at %s\n  report: %s\n",
			r.LotNumber, r.Items, r.ListedPrice, r.ReportURL)
		if r.SkippedRows > 0 {
			fmt.Printf("  skipped %d unparseable rows\n", r.SkippedRows)
		}
	}
	return err
}

func cmdDelete(ctx context.Context, app *application, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("delete: at least one lot number is required")
	}
	if err := app.svc.DeleteAll(ctx, args); err != nil {
		return err
	}
	for _, lot := range args {
		fmt.Printf("lot %s removed\n", lot)
	}
	return nil
}

func cmdStats(ctx context.Context, app *application) error {
	stats, err := app.svc.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("listings: %d\ntotal value: %s\n", stats.Listings, stats.TotalValue.StringFixed(2))
	printBreakdown("categories", stats.Categories)
	printBreakdown("brands", stats.Brands)
	return nil
}

func printBreakdown(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("%s:\n", title)
	for _, name := range names {
		fmt.Printf("  %s: %d\n", name, counts[name])
	}
}

func cmdHistory(ctx context.Context, app *application, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	lot := fs.String("lot", "", "only show runs for this lot number")
	limit := fs.Int("limit", 20, "maximum runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		runs []history.Run
		err  error
	)
	if *lot != "" {
		runs, err = app.runs.ByLot(ctx, *lot)
	} else {
		runs, err = app.runs.Recent(ctx, *limit)
	}
	if err != nil {
		return err
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  lot %s  %s  %s  %d items",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.LotNumber, r.SourceFile, r.Status, r.ItemCount)
		if r.Error != "" {
			line += "  (" + r.Error + ")"
		}
		fmt.Println(line)
	}

	if *lot != "" {
		last, err := app.runs.LastSuccess(ctx, *lot)
		if err != nil {
			return err
		}
		if last == nil {
			fmt.Printf("lot %s has never been published\n", *lot)
		} else {
			fmt.Printf("last published %s at %s\n",
				last.ListedPrice, last.StartedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
