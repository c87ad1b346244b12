package catalog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
	"github.com/kuratuapp/liquidationblitz/pkg/config"
)

// DeriveInput carries everything row derivation needs beyond the batch
// itself. Image URLs must already point at hosted copies.
type DeriveInput struct {
	MarkupPercent float64
	ReportURL     string
	ImageURLs     []string
	Catalog       config.CatalogConfig
	Rates         batch.ShippingRates
}

// DeriveRow builds the feed row for a batch. The listed price is the
// batch's total client cost scaled by the markup percentage; unlike the
// per-item repricing it is not rounded to whole units, so the catalog
// reflects the true asking total.
func DeriveRow(b *batch.Batch, in DeriveInput) Row {
	s := b.Summary

	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(in.MarkupPercent).Shift(-2))
	price := s.TotalClientCost.Mul(factor)
	priceText := fmt.Sprintf("%s %s", price.StringFixed(2), in.Catalog.Currency)

	imageLink := ""
	additional := ""
	if len(in.ImageURLs) > 0 {
		imageLink = in.ImageURLs[0]
		additional = strings.Join(in.ImageURLs[1:], ",")
	}

	return Row{
		ID:                    s.LotNumber,
		Title:                 deriveTitle(s),
		Description:           deriveDescription(s, priceText),
		Availability:          in.Catalog.Availability,
		Condition:             in.Catalog.Condition,
		Price:                 priceText,
		Link:                  in.ReportURL,
		ImageLink:             imageLink,
		Brand:                 deriveBrand(b),
		GoogleProductCategory: ProductCategory(s.Category),
		ItemGroupID:           "batch-" + s.LotNumber,
		ShippingWeight:        fmt.Sprintf("%.2f kg", s.ChargeableWeightKg(in.Rates)),
		AdditionalImageLink:   additional,
	}
}

func deriveTitle(s batch.Summary) string {
	category := titleCase(s.Category)
	if category == "" {
		category = "Mixed"
	}
	return fmt.Sprintf("%s Liquidation Batch - %d Units", category, s.TotalUnits)
}

func deriveDescription(s batch.Summary, price string) string {
	var parts []string
	add := func(part string) {
		if part != "" {
			parts = append(parts, part)
		}
	}

	add(fmt.Sprintf("Lot %s", s.LotNumber))
	if s.Category != "" {
		add("Category: " + titleCase(s.Category))
	}
	if s.Subcategory != "" {
		add("Subcategory: " + titleCase(s.Subcategory))
	}
	add(fmt.Sprintf("%d units", s.TotalUnits))
	if s.ReturnType != "" {
		add(titleCase(s.ReturnType))
	}
	if s.SeasonCode != "" {
		add("Season " + s.SeasonCode)
	}
	if s.NumPallets > 0 {
		add(fmt.Sprintf("%d pallets", s.NumPallets))
	}
	if s.NumCartons > 0 {
		add(fmt.Sprintf("%d cartons", s.NumCartons))
	}
	if s.TotalOriginalRetail.IsPositive() {
		add("Original retail value $" + s.TotalOriginalRetail.StringFixed(2))
	}
	add("Batch price " + price)
	if s.Location != "" {
		add("Ships from " + s.Location)
	}
	return strings.Join(parts, " | ")
}

// deriveBrand picks the most common vendor and keeps what precedes the
// first slash in its name. Batches with no vendor information list as
// mixed.
func deriveBrand(b *batch.Batch) string {
	vendors := b.VendorCounts()
	if len(vendors) == 0 || vendors[0].Name == "Unknown" {
		return "Mixed Brands"
	}
	name, _, _ := strings.Cut(vendors[0].Name, "/")
	name = strings.TrimSpace(name)
	if name == "" {
		return "Mixed Brands"
	}
	return titleCase(name)
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest, which is how manifest categories in all caps read
// best in listings.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		r, size := utf8.DecodeRuneInString(lower)
		words[i] = string(unicode.ToUpper(r)) + lower[size:]
	}
	return strings.Join(words, " ")
}
