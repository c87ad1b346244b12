package manifest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
	"github.com/kuratuapp/liquidationblitz/pkg/errors"
	"github.com/kuratuapp/liquidationblitz/pkg/logger"
)

// SkippedRow records an item row that was dropped during parsing, with the
// one-based workbook row number for operator reports.
type SkippedRow struct {
	Row    int
	Reason string
}

// Result carries everything a parse produced, including rows the parser
// refused rather than guessed at.
type Result struct {
	Batch   *batch.Batch
	Skipped []SkippedRow
}

// Parser turns manifest workbooks into batches.
type Parser struct {
	layout   Layout
	now      func() time.Time
	validate *validator.Validate
	log      *logger.Logger
}

type Option func(*Parser)

// WithLayout overrides the workbook layout.
func WithLayout(l Layout) Option {
	return func(p *Parser) { p.layout = l }
}

// WithClock overrides the timestamp source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

func NewParser(log *logger.Logger, opts ...Option) *Parser {
	p := &Parser{
		layout:   DefaultLayout(),
		now:      time.Now,
		validate: validator.New(),
		log:      log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads an XLSX manifest from r. sourceFile is recorded on the batch
// for traceability and used in log lines. Item rows without a UPC or with
// values that cannot be coerced are skipped and reported, never guessed.
func (p *Parser) Parse(ctx context.Context, r io.Reader, sourceFile string) (*Result, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParse, err, "manifest: open workbook")
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New(errors.CodeParse, "manifest: workbook has no sheets")
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(errors.CodeParse, err, "manifest: read sheet")
	}
	if len(rows) <= p.layout.SummaryValueRow {
		return nil, errors.New(errors.CodeParse, "manifest: missing summary rows")
	}

	summary, err := p.parseSummary(rows)
	if err != nil {
		return nil, err
	}
	summary.SourceFile = sourceFile
	summary.ProcessedAt = p.now().UTC()

	if err := p.validate.Struct(summary); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "manifest: summary incomplete")
	}

	result := &Result{Batch: &batch.Batch{Summary: summary}}
	if len(rows) <= p.layout.ItemHeaderRow {
		p.log.Warn(p.log.WithSource(ctx, sourceFile), "manifest has no item section")
		return result, nil
	}

	headers := headerIndex(rows[p.layout.ItemHeaderRow])
	for i := p.layout.FirstItemRow; i < len(rows); i++ {
		row := rows[i]
		upc := strings.TrimSpace(cell(row, headers.at(colUPC)))
		if upc == "" {
			continue
		}
		item, err := parseItem(row, headers, upc)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Row: i + 1, Reason: err.Error()})
			continue
		}
		result.Batch.Items = append(result.Batch.Items, item)
	}

	logCtx := p.log.WithFields(ctx, map[string]any{
		"source":     sourceFile,
		"lot_number": summary.LotNumber,
		"items":      len(result.Batch.Items),
		"skipped":    len(result.Skipped),
	})
	p.log.Info(logCtx, "manifest parsed")
	return result, nil
}

func (p *Parser) parseSummary(rows [][]string) (batch.Summary, error) {
	names := rows[p.layout.SummaryNameRow]
	values := rows[p.layout.SummaryValueRow]

	// A pair is only recorded when both the name and the value cell are
	// filled in; the template leaves unused columns blank on both rows.
	fields := make(map[string]string, len(names))
	for j, name := range names {
		key := strings.TrimSpace(name)
		value := strings.TrimSpace(cell(values, j))
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}

	var s batch.Summary
	s.Location = fields[fieldLocation]
	s.LotNumber = fields[fieldLotNumber]
	s.BOLNumber = fields[fieldBOLNumber]
	s.Category = fields[fieldCategory]
	s.Subcategory = fields[fieldSubcategory]
	s.SeasonCode = fields[fieldSeasonCode]
	s.ReturnType = fields[fieldReturnType]

	var err error
	if s.NumPallets, err = parseCount(fields[fieldNumPallets]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: pallet count")
	}
	if s.NumCartons, err = parseCount(fields[fieldNumCartons]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: carton count")
	}
	if s.TotalUnits, err = parseCount(fields[fieldTotalUnits]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: unit count")
	}
	if s.TotalOriginalCost, err = parseMoney(fields[fieldTotalOrigCost]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: total original cost")
	}
	if s.TotalOriginalRetail, err = parseMoney(fields[fieldTotalOrigRetail]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: total original retail")
	}
	if s.TotalClientCost, err = parseMoney(fields[fieldTotalClientCost]); err != nil {
		return s, errors.Wrap(errors.CodeParse, err, "manifest: total client cost")
	}
	if raw := fields[fieldAvgUnitClientCost]; raw != "" {
		avg, err := parseMoney(raw)
		if err != nil {
			return s, errors.Wrap(errors.CodeParse, err, "manifest: avg unit client cost")
		}
		s.AvgUnitClientCost = &avg
	}
	return s, nil
}

func parseItem(row []string, headers headerMap, upc string) (batch.Item, error) {
	item := batch.Item{
		UPC:            upc,
		Description:    strings.TrimSpace(cell(row, headers.at(colDescription))),
		VendorStyle:    strings.TrimSpace(cell(row, headers.at(colVendorStyle))),
		Color:          strings.TrimSpace(cell(row, headers.at(colColor))),
		Size:           strings.TrimSpace(cell(row, headers.at(colSize))),
		Division:       strings.TrimSpace(cell(row, headers.at(colDivision))),
		DepartmentName: strings.TrimSpace(cell(row, headers.at(colDepartment))),
		VendorName:     strings.TrimSpace(cell(row, headers.at(colVendorName))),
		ImageURL:       strings.TrimSpace(cell(row, headers.at(colImage))),
	}

	var err error
	if item.OriginalQty, err = parseCount(cell(row, headers.at(colOriginalQty))); err != nil {
		return item, fmt.Errorf("original qty: %w", err)
	}
	if item.OriginalCost, err = parseMoney(cell(row, headers.at(colOriginalCost))); err != nil {
		return item, fmt.Errorf("original cost: %w", err)
	}
	if item.TotalOriginalCost, err = parseMoney(cell(row, headers.at(colTotalOrigCost))); err != nil {
		return item, fmt.Errorf("total original cost: %w", err)
	}
	if item.OriginalRetail, err = parseMoney(cell(row, headers.at(colOriginalRetail))); err != nil {
		return item, fmt.Errorf("original retail: %w", err)
	}
	if item.TotalOriginalRetail, err = parseMoney(cell(row, headers.at(colTotalOrigRet))); err != nil {
		return item, fmt.Errorf("total original retail: %w", err)
	}
	if item.ClientCost, err = parseMoney(cell(row, headers.at(colClientCost))); err != nil {
		return item, fmt.Errorf("client cost: %w", err)
	}
	if item.TotalClientCost, err = parseMoney(cell(row, headers.at(colTotalClient))); err != nil {
		return item, fmt.Errorf("total client cost: %w", err)
	}
	return item, nil
}

// headerMap maps normalized header names to their column index.
type headerMap map[string]int

// at returns the column index for name, or -1 when the sheet lacks it.
func (h headerMap) at(name string) int {
	if j, ok := h[name]; ok {
		return j
	}
	return -1
}

// headerIndex builds a headerMap. Blank headers get positional placeholder
// names so later columns keep their offsets.
func headerIndex(row []string) headerMap {
	idx := make(headerMap, len(row))
	for j, name := range row {
		key := strings.TrimSpace(strings.ToUpper(name))
		if key == "" {
			key = fmt.Sprintf("column_%d", j)
		}
		if _, dup := idx[key]; !dup {
			idx[key] = j
		}
	}
	return idx
}

// cell returns the value at column j, tolerating the ragged rows excelize
// produces when trailing cells are empty and the -1 a missing header
// resolves to.
func cell(row []string, j int) string {
	if j < 0 || j >= len(row) {
		return ""
	}
	return row[j]
}

func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	// Spreadsheets often hand integer cells over as floats ("4.0").
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a count: %q", raw)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", raw)
	}
	return int(f), nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not an amount: %q", raw)
	}
	return d, nil
}
