package render

import (
	"context"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
	"github.com/kuratuapp/liquidationblitz/pkg/errors"
)

// Converter turns an HTML document into a PDF.
type Converter interface {
	ConvertHTML(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer produces the batch report PDF.
type Renderer struct {
	converter Converter
	rates     batch.ShippingRates
}

func NewRenderer(converter Converter, rates batch.ShippingRates) *Renderer {
	return &Renderer{converter: converter, rates: rates}
}

// Render builds the report HTML for the batch and converts it to PDF.
func (r *Renderer) Render(ctx context.Context, b *batch.Batch) ([]byte, error) {
	html, err := BuildHTML(b, r.rates)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "render: build report")
	}
	pdf, err := r.converter.ConvertHTML(ctx, html)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
