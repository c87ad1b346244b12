package batch

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/kuratuapp/liquidationblitz/pkg/errors"
)

// ApplyMarkup returns a copy of the batch with every item's client cost
// raised by percent and rounded up to the next whole unit. Item and batch
// totals are recomputed from the new unit prices. The input batch is not
// modified.
func ApplyMarkup(b *Batch, percent float64) (*Batch, error) {
	if b == nil {
		return nil, errors.New(errors.CodeValidation, "markup: nil batch")
	}
	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent < 0 {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("markup: invalid percent %v", percent))
	}

	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percent).Shift(-2))

	out := &Batch{
		Summary: b.Summary,
		Items:   make([]Item, len(b.Items)),
	}
	totalClientCost := decimal.Zero
	for i, item := range b.Items {
		item.ClientCost = item.ClientCost.Mul(factor).Ceil()
		item.TotalClientCost = item.ClientCost.Mul(decimal.NewFromInt(int64(item.OriginalQty)))
		out.Items[i] = item
		totalClientCost = totalClientCost.Add(item.TotalClientCost)
	}
	out.Summary.TotalClientCost = totalClientCost
	if out.Summary.TotalUnits > 0 {
		avg := totalClientCost.Div(decimal.NewFromInt(int64(out.Summary.TotalUnits)))
		out.Summary.AvgUnitClientCost = &avg
	}
	return out, nil
}
