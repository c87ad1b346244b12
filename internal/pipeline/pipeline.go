package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
	"github.com/kuratuapp/liquidationblitz/internal/catalog"
	"github.com/kuratuapp/liquidationblitz/internal/history"
	"github.com/kuratuapp/liquidationblitz/internal/manifest"
	"github.com/kuratuapp/liquidationblitz/pkg/config"
	"github.com/kuratuapp/liquidationblitz/pkg/errors"
	"github.com/kuratuapp/liquidationblitz/pkg/logger"
	"github.com/kuratuapp/liquidationblitz/pkg/metrics"
)

// Renderer produces the batch report PDF.
type Renderer interface {
	Render(ctx context.Context, b *batch.Batch) ([]byte, error)
}

// ObjectStore publishes and removes report artifacts.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, object, contentType string, data []byte) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	DeleteByPrefix(ctx context.Context, bucket, prefix string) (int, error)
}

// Rehoster copies manifest images into hosted storage.
type Rehoster interface {
	RehostAll(ctx context.Context, lot string, urls []string, limit int) []string
}

// Catalog is the listing surface the pipeline publishes to.
type Catalog interface {
	Upsert(ctx context.Context, row catalog.Row) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// Ledger records processing attempts.
type Ledger interface {
	Start(ctx context.Context, lotNumber, sourceFile string) (*history.Run, error)
	Finish(ctx context.Context, run *history.Run, out history.Outcome) error
}

// Service drives a manifest file through parse, markup, render, rehost
// and catalog publish.
type Service struct {
	parser   *manifest.Parser
	renderer Renderer
	store    ObjectStore
	rehoster Rehoster
	catalog  Catalog
	ledger   Ledger
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.PipelineMetrics
}

// Input wires the service's collaborators. All fields are required
// except Ledger and Metrics.
type Input struct {
	Parser   *manifest.Parser
	Renderer Renderer
	Store    ObjectStore
	Rehoster Rehoster
	Catalog  Catalog
	Ledger   Ledger
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.PipelineMetrics
}

func New(in Input) (*Service, error) {
	if in.Parser == nil || in.Renderer == nil || in.Store == nil ||
		in.Rehoster == nil || in.Catalog == nil || in.Config == nil || in.Logger == nil {
		return nil, errors.New(errors.CodeValidation, "pipeline: missing required collaborator")
	}
	return &Service{
		parser:   in.Parser,
		renderer: in.Renderer,
		store:    in.Store,
		rehoster: in.Rehoster,
		catalog:  in.Catalog,
		ledger:   in.Ledger,
		cfg:      in.Config,
		log:      in.Logger,
		metrics:  in.Metrics,
	}, nil
}

// RunReport summarizes one processed manifest.
type RunReport struct {
	RunID       string
	LotNumber   string
	SourceFile  string
	Items       int
	SkippedRows int
	ReportURL   string
	ListedPrice string
}

// ProcessFile runs the whole pipeline for one manifest on disk.
func (s *Service) ProcessFile(ctx context.Context, path string, markupPercent float64) (*RunReport, error) {
	f, err := os.Open(path)
	if err != nil {
		s.metrics.IncFailure("open")
		return nil, errors.Wrap(errors.CodeNotFound, err, "pipeline: open manifest")
	}
	defer func() {
		_ = f.Close()
	}()

	source := filepath.Base(path)
	ctx = s.log.WithSource(ctx, source)

	parseStart := time.Now()
	parsed, err := s.parser.Parse(ctx, f, source)
	if err != nil {
		s.metrics.IncFailure("parse")
		return nil, err
	}
	s.metrics.ObserveStage("parse", time.Since(parseStart))
	s.metrics.AddRowsSkipped("coercion", len(parsed.Skipped))

	b := parsed.Batch
	lot := b.Summary.LotNumber
	ctx = s.log.WithLot(ctx, lot)

	var run *history.Run
	if s.ledger != nil {
		if run, err = s.ledger.Start(ctx, lot, source); err != nil {
			return nil, err
		}
		ctx = s.log.WithRunID(ctx, run.ID)
	}

	report, err := s.ProcessBatch(ctx, b, markupPercent)
	if run != nil {
		out := history.Outcome{Err: err}
		if report != nil {
			out.ItemCount = report.Items
			out.SkippedRows = len(parsed.Skipped)
			out.ListedPrice = report.ListedPrice
			out.ReportURL = report.ReportURL
		}
		if ferr := s.ledger.Finish(ctx, run, out); ferr != nil {
			s.log.Error(ctx, "recording run outcome failed", ferr)
		}
	}
	if err != nil {
		return nil, err
	}

	report.RunID = runID(run)
	report.SourceFile = source
	report.SkippedRows = len(parsed.Skipped)
	s.metrics.IncSuccess(b.Summary.Category)
	s.log.Info(ctx, "batch processed")
	return report, nil
}

func runID(run *history.Run) string {
	if run == nil {
		return ""
	}
	return run.ID
}

// ProcessBatch finalizes an already-parsed batch: reprice, render, publish
// the report and images, upsert the catalog row. The input batch is not
// mutated, so a caller may call again after a collaborator failure without
// re-parsing the manifest.
func (s *Service) ProcessBatch(ctx context.Context, b *batch.Batch, markupPercent float64) (*RunReport, error) {
	lot := b.Summary.LotNumber

	priced, err := batch.ApplyMarkup(b, markupPercent)
	if err != nil {
		s.metrics.IncFailure("markup")
		return nil, err
	}

	renderStart := time.Now()
	pdf, err := s.renderer.Render(ctx, priced)
	if err != nil {
		s.metrics.IncFailure("render")
		return nil, err
	}
	s.metrics.ObserveStage("render", time.Since(renderStart))

	reportObject := s.cfg.GCS.ReportPrefix + "batch-" + lot + ".pdf"
	reportURL, err := s.store.PutObject(ctx, s.cfg.GCS.ReportBucket, reportObject, "application/pdf", pdf)
	if err != nil {
		s.metrics.IncFailure("publish_report")
		return nil, errors.Wrap(errors.CodeDependency, err, "pipeline: publish report")
	}

	rehostStart := time.Now()
	sources := imageSources(b, s.cfg.Catalog.MaxImages)
	hosted := s.rehoster.RehostAll(ctx, lot, sources, s.cfg.Catalog.MaxImages)
	s.metrics.ObserveStage("rehost", time.Since(rehostStart))

	row := catalog.DeriveRow(b, catalog.DeriveInput{
		MarkupPercent: markupPercent,
		ReportURL:     reportURL,
		ImageURLs:     hosted,
		Catalog:       s.cfg.Catalog,
		Rates:         shippingRates(s.cfg.Shipping),
	})

	// The catalog write is the one step worth retrying: the report is
	// already durable and re-deriving the row is free.
	if err := s.retry(ctx, 3, func() error { return s.catalog.Upsert(ctx, row) }); err != nil {
		s.metrics.IncFailure("catalog")
		return nil, err
	}

	return &RunReport{
		LotNumber:   lot,
		Items:       len(b.Items),
		ReportURL:   reportURL,
		ListedPrice: row.Price,
	}, nil
}

func shippingRates(cfg config.ShippingConfig) batch.ShippingRates {
	return batch.ShippingRates{
		RatePerKg:     cfg.RatePerKg,
		MinChargeKg:   cfg.MinChargeKg,
		LbsPerPallet:  cfg.LbsPerPallet,
		LbsPerUnitEst: cfg.LbsPerUnitEst,
	}
}

// imageSources collects image URLs from the first limit items. The window
// is over items, not images, so a batch whose early items lack photos can
// list with fewer than limit images.
func imageSources(b *batch.Batch, limit int) []string {
	items := b.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var urls []string
	for _, item := range items {
		if item.ImageURL != "" {
			urls = append(urls, item.ImageURL)
		}
	}
	return urls
}

func (s *Service) retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return multierr.Append(err, ctx.Err())
		case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
		}
	}
	return err
}

// ProcessAll runs every manifest, continuing past individual failures.
// The returned error aggregates everything that went wrong.
func (s *Service) ProcessAll(ctx context.Context, paths []string, markupPercent float64) ([]RunReport, error) {
	var (
		reports []RunReport
		errs    error
	)
	for _, path := range paths {
		report, err := s.ProcessFile(ctx, path, markupPercent)
		if err != nil {
			s.log.Error(s.log.WithSource(ctx, filepath.Base(path)), "manifest failed", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		reports = append(reports, *report)
	}
	return reports, errs
}

// Delete removes a lot's listing and published artifacts. Absent pieces
// are skipped quietly so the operation is safe to repeat.
func (s *Service) Delete(ctx context.Context, lot string) error {
	return s.DeleteAll(ctx, []string{lot})
}

// DeleteAll removes the given lots from the catalog in a single
// read-modify-write cycle, then tears down each lot's report and image
// objects. An artifact failure on one lot does not stop its siblings.
func (s *Service) DeleteAll(ctx context.Context, lots []string) error {
	removed, err := s.catalog.DeleteMany(ctx, lots)
	if err != nil {
		return err
	}

	var errs error
	for _, lot := range lots {
		if err := s.deleteArtifacts(ctx, lot); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return errs
	}

	s.log.Info(s.log.WithFields(ctx, map[string]any{
		"lots":   len(lots),
		"listed": removed,
	}), "batches deleted")
	return nil
}

func (s *Service) deleteArtifacts(ctx context.Context, lot string) error {
	ctx = s.log.WithLot(ctx, lot)

	reportObject := s.cfg.GCS.ReportPrefix + "batch-" + lot + ".pdf"
	if err := s.store.DeleteObject(ctx, s.cfg.GCS.ReportBucket, reportObject); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "pipeline: delete report")
	}

	imagePrefix := s.cfg.GCS.ImagePrefix + "batch-" + lot + "/"
	images, err := s.store.DeleteByPrefix(ctx, s.cfg.GCS.ImageBucketName(), imagePrefix)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "pipeline: delete images")
	}

	s.log.Info(s.log.WithField(ctx, "images_removed", images), "batch artifacts deleted")
	return nil
}

// Stats reports on the published catalog.
func (s *Service) Stats(ctx context.Context) (catalog.Stats, error) {
	return s.catalog.Stats(ctx)
}
