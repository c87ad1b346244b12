package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
)

// reportData is the template model for a batch report.
type reportData struct {
	Lot         string
	Title       string
	ProcessedAt string
	SourceFile  string

	Details   []labelValue
	Financial []labelValue
	Vendors   []batch.FrequencyEntry
	Sizes     []batch.FrequencyEntry
	Items     []itemRow
}

type labelValue struct {
	Label string
	Value string
}

type itemRow struct {
	UPC         string
	Description string
	Vendor      string
	Color       string
	Size        string
	Qty         int
	ClientCost  string
	Retail      string
}

func buildReportData(b *batch.Batch, rates batch.ShippingRates) reportData {
	s := b.Summary
	money := func(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

	data := reportData{
		Lot:         s.LotNumber,
		Title:       fmt.Sprintf("Liquidation Batch Report - Lot %s", s.LotNumber),
		ProcessedAt: s.ProcessedAt.Format("January 2, 2006 15:04 MST"),
		SourceFile:  s.SourceFile,
		Vendors:     b.VendorCounts(),
		Sizes:       b.SizeCounts(),
	}

	data.Details = []labelValue{
		{"Location", s.Location},
		{"BOL #", s.BOLNumber},
		{"Category", s.Category},
		{"Subcategory", s.Subcategory},
		{"Season Code", s.SeasonCode},
		{"Return Type", s.ReturnType},
		{"Pallets", fmt.Sprintf("%d", s.NumPallets)},
		{"Cartons", fmt.Sprintf("%d", s.NumCartons)},
		{"Units", fmt.Sprintf("%d", s.TotalUnits)},
		{"Distinct Items", fmt.Sprintf("%d", b.TotalItems())},
	}

	data.Financial = []labelValue{
		{"Total Original Cost", money(s.TotalOriginalCost)},
		{"Total Original Retail", money(s.TotalOriginalRetail)},
		{"Total Client Cost", money(s.TotalClientCost)},
	}
	if s.AvgUnitClientCost != nil {
		data.Financial = append(data.Financial,
			labelValue{"Avg. Unit Client Cost", money(*s.AvgUnitClientCost)})
	}
	data.Financial = append(data.Financial,
		labelValue{"Est. Shipping Weight", fmt.Sprintf("%.2f kg", s.ChargeableWeightKg(rates))},
		labelValue{"Est. Shipping Cost", fmt.Sprintf("$%.2f", s.EstimatedShippingCost(rates))},
	)

	data.Items = make([]itemRow, 0, len(b.Items))
	for _, item := range b.Items {
		data.Items = append(data.Items, itemRow{
			UPC:         item.UPC,
			Description: item.Description,
			Vendor:      item.VendorName,
			Color:       item.Color,
			Size:        item.Size,
			Qty:         item.OriginalQty,
			ClientCost:  money(item.ClientCost),
			Retail:      money(item.OriginalRetail),
		})
	}
	return data
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #222; margin: 40px; }
  h1 { font-size: 26px; margin-bottom: 4px; }
  h2 { font-size: 18px; border-bottom: 2px solid #444; padding-bottom: 4px; margin-top: 32px; }
  .meta { color: #666; font-size: 12px; }
  table { border-collapse: collapse; width: 100%; margin-top: 12px; }
  th, td { border: 1px solid #ccc; padding: 6px 8px; font-size: 12px; text-align: left; }
  th { background: #f0f0f0; }
  .kv td:first-child { font-weight: bold; width: 40%; }
  .cover { page-break-after: always; }
</style>
</head>
<body>
<div class="cover">
  <h1>{{.Title}}</h1>
  <p class="meta">Processed {{.ProcessedAt}}{{if .SourceFile}} from {{.SourceFile}}{{end}}</p>

  <h2>Batch Details</h2>
  <table class="kv">
  {{range .Details}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
  {{end}}</table>

  <h2>Financial Summary</h2>
  <table class="kv">
  {{range .Financial}}<tr><td>{{.Label}}</td><td>{{.Value}}</td></tr>
  {{end}}</table>
</div>

{{if .Vendors}}<h2>Vendors</h2>
<table>
  <tr><th>Vendor</th><th>Items</th></tr>
  {{range .Vendors}}<tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
  {{end}}</table>{{end}}

{{if .Sizes}}<h2>Size Distribution</h2>
<table>
  <tr><th>Size</th><th>Items</th></tr>
  {{range .Sizes}}<tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
  {{end}}</table>{{end}}

{{if .Items}}<h2>Item Catalog</h2>
<table>
  <tr><th>UPC</th><th>Description</th><th>Vendor</th><th>Color</th><th>Size</th><th>Qty</th><th>Client Cost</th><th>Retail</th></tr>
  {{range .Items}}<tr><td>{{.UPC}}</td><td>{{.Description}}</td><td>{{.Vendor}}</td><td>{{.Color}}</td><td>{{.Size}}</td><td>{{.Qty}}</td><td>{{.ClientCost}}</td><td>{{.Retail}}</td></tr>
  {{end}}</table>{{end}}
</body>
</html>
`))

// BuildHTML renders the report document for a batch.
func BuildHTML(b *batch.Batch, rates batch.ShippingRates) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, buildReportData(b, rates)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
