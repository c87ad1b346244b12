package batch

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ShippingRates holds the constants used for weight and freight estimates.
// Values come from configuration so tests can substitute their own.
type ShippingRates struct {
	RatePerKg     float64
	MinChargeKg   float64
	LbsPerPallet  float64
	LbsPerUnitEst float64
}

// DefaultShippingRates mirrors the contractual defaults.
func DefaultShippingRates() ShippingRates {
	return ShippingRates{
		RatePerKg:     15.50,
		MinChargeKg:   25.0,
		LbsPerPallet:  750.0,
		LbsPerUnitEst: 2.0,
	}
}

const lbsToKg = 0.453592

// Summary is the batch-level header parsed from a manifest.
type Summary struct {
	Location    string
	LotNumber   string `validate:"required"`
	BOLNumber   string
	Category    string
	Subcategory string
	SeasonCode  string
	ReturnType  string

	NumPallets int
	NumCartons int

	TotalOriginalCost   decimal.Decimal
	TotalOriginalRetail decimal.Decimal
	TotalUnits          int
	TotalClientCost     decimal.Decimal
	AvgUnitClientCost   *decimal.Decimal

	ProcessedAt time.Time
	SourceFile  string
}

// EstimatedWeightLbs estimates total weight from the pallet count, falling
// back to a per-unit estimate when no pallet count was recorded.
func (s Summary) EstimatedWeightLbs(r ShippingRates) float64 {
	if s.NumPallets > 0 {
		return float64(s.NumPallets) * r.LbsPerPallet
	}
	return float64(s.TotalUnits) * r.LbsPerUnitEst
}

func (s Summary) EstimatedWeightKg(r ShippingRates) float64 {
	return s.EstimatedWeightLbs(r) * lbsToKg
}

// ChargeableWeightKg clamps the estimate to the contractual minimum.
func (s Summary) ChargeableWeightKg(r ShippingRates) float64 {
	if kg := s.EstimatedWeightKg(r); kg > r.MinChargeKg {
		return kg
	}
	return r.MinChargeKg
}

func (s Summary) EstimatedShippingCost(r ShippingRates) float64 {
	return s.ChargeableWeightKg(r) * r.RatePerKg
}

// Item is one distinct product line within a batch, identified by UPC.
type Item struct {
	UPC         string
	Description string
	VendorStyle string
	Color       string
	Size        string

	OriginalQty         int
	OriginalCost        decimal.Decimal
	TotalOriginalCost   decimal.Decimal
	OriginalRetail      decimal.Decimal
	TotalOriginalRetail decimal.Decimal
	ClientCost          decimal.Decimal
	TotalClientCost     decimal.Decimal

	Division       string
	DepartmentName string
	VendorName     string

	// ImageURL starts as the manifest's external reference and is replaced
	// with a hosted location before catalog derivation.
	ImageURL string
}

// ProfitMargin is the percentage margin between retail and client cost.
// Zero when the item has no client cost or no retail recorded.
func (i Item) ProfitMargin() decimal.Decimal {
	if i.ClientCost.LessThanOrEqual(decimal.Zero) ||
		i.OriginalRetail.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return i.OriginalRetail.Sub(i.ClientCost).
		Div(i.OriginalRetail).
		Mul(decimal.NewFromInt(100))
}

// CostRatio is client cost over original retail; zero when retail is unset.
func (i Item) CostRatio() decimal.Decimal {
	if i.OriginalRetail.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return i.ClientCost.Div(i.OriginalRetail)
}

// Batch aggregates a summary with its items in manifest row order.
type Batch struct {
	Summary Summary
	Items   []Item
}

func (b *Batch) TotalItems() int {
	return len(b.Items)
}

// TotalValue sums the items' total client cost.
func (b *Batch) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.TotalClientCost)
	}
	return total
}

func (b *Batch) AvgItemCost() decimal.Decimal {
	if len(b.Items) == 0 {
		return decimal.Zero
	}
	return b.TotalValue().Div(decimal.NewFromInt(int64(len(b.Items))))
}

// FrequencyEntry is one bucket of a frequency table.
type FrequencyEntry struct {
	Name  string
	Count int
}

// VendorCounts buckets items by vendor, ordered by count descending.
// Ordering among equal counts follows first encounter and is stable.
func (b *Batch) VendorCounts() []FrequencyEntry {
	return b.countBy(func(item Item) string {
		if item.VendorName == "" {
			return "Unknown"
		}
		return item.VendorName
	})
}

// SizeCounts buckets items by size with the same ordering policy as
// VendorCounts.
func (b *Batch) SizeCounts() []FrequencyEntry {
	return b.countBy(func(item Item) string {
		if item.Size == "" {
			return "Unknown"
		}
		return item.Size
	})
}

func (b *Batch) countBy(key func(Item) string) []FrequencyEntry {
	counts := make(map[string]int)
	var order []string
	for _, item := range b.Items {
		k := key(item)
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	entries := make([]FrequencyEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, FrequencyEntry{Name: k, Count: counts[k]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}
