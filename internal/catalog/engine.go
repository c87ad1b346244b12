package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kuratuapp/liquidationblitz/pkg/errors"
	"github.com/kuratuapp/liquidationblitz/pkg/logger"
)

// Store persists the encoded catalog file. Load returns ErrNotExist when
// no catalog has been published yet.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// ErrNotExist is returned by Store.Load when the catalog object is absent.
var ErrNotExist = errors.New(errors.CodeNotFound, "catalog: does not exist")

// Engine serializes read-modify-write cycles against the published
// catalog. It is not safe for concurrent use; the pipeline runs catalog
// updates on a single goroutine.
type Engine struct {
	store Store
	log   *logger.Logger
}

func NewEngine(store Store, log *logger.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Load fetches and decodes the current catalog. A missing object yields an
// empty table; a corrupt one is logged and replaced by an empty table so
// the next publish recovers the file.
func (e *Engine) Load(ctx context.Context) (Table, error) {
	data, err := e.store.Load(ctx)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return Table{}, nil
		}
		return Table{}, errors.Wrap(errors.CodeDependency, err, "catalog: load")
	}

	table, derr := Decode(data)
	if derr != nil {
		e.log.Error(ctx, "catalog file is corrupt, starting from an empty table", derr)
	}
	return table, nil
}

// Upsert inserts or replaces the row in the published catalog.
func (e *Engine) Upsert(ctx context.Context, row Row) error {
	if strings.TrimSpace(row.ID) == "" {
		return errors.New(errors.CodeValidation, "catalog: row has no id")
	}

	table, err := e.Load(ctx)
	if err != nil {
		return err
	}
	table.Upsert(row)
	return e.save(ctx, table)
}

// Delete removes the row with the given id. Deleting an id that is not
// listed succeeds without touching the stored file.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := e.DeleteMany(ctx, []string{id})
	return removed > 0, err
}

// DeleteMany removes every listed id in one read-modify-write cycle and
// reports how many rows were actually removed. The stored file is only
// rewritten when at least one id was listed.
func (e *Engine) DeleteMany(ctx context.Context, ids []string) (int, error) {
	table, err := e.Load(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range ids {
		if table.Remove(id) {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := e.save(ctx, table); err != nil {
		return 0, err
	}
	return removed, nil
}

func (e *Engine) save(ctx context.Context, table Table) error {
	data, err := table.Encode()
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "catalog: encode")
	}
	if err := e.store.Save(ctx, data); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "catalog: save")
	}
	return nil
}

// Stats summarizes the published catalog.
type Stats struct {
	Listings   int
	TotalValue decimal.Decimal
	Categories map[string]int
	Brands     map[string]int
}

// Stats reads the catalog and aggregates listing counts and value. Rows
// whose price fails to parse still count as listings but contribute
// nothing to the total.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	table, err := e.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Listings:   table.Len(),
		TotalValue: decimal.Zero,
		Categories: make(map[string]int),
		Brands:     make(map[string]int),
	}
	for _, row := range table.Rows {
		if amount, ok := parsePrice(row.Price); ok {
			stats.TotalValue = stats.TotalValue.Add(amount)
		}
		if row.GoogleProductCategory != "" {
			stats.Categories[row.GoogleProductCategory]++
		}
		if row.Brand != "" {
			stats.Brands[row.Brand]++
		}
	}
	return stats, nil
}

// parsePrice reads the numeric part of a feed price like "1234.56 USD".
func parsePrice(price string) (decimal.Decimal, bool) {
	amount, _, _ := strings.Cut(strings.TrimSpace(price), " ")
	if amount == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
