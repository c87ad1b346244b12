package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuratuapp/liquidationblitz/internal/batch"
)

func reportBatch() *batch.Batch {
	cost, _ := decimal.NewFromString("6000.00")
	retail, _ := decimal.NewFromString("48000.00")
	avg, _ := decimal.NewFromString("6.67")
	return &batch.Batch{
		Summary: batch.Summary{
			LotNumber:           "5001",
			Location:            "NJ-04",
			Category:            "WOMENS APPAREL",
			ReturnType:          "CUSTOMER RETURNS",
			NumPallets:          4,
			TotalUnits:          900,
			TotalClientCost:     cost,
			TotalOriginalRetail: retail,
			AvgUnitClientCost:   &avg,
			ProcessedAt:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			SourceFile:          "lot5001.xlsx",
		},
		Items: []batch.Item{
			{
				UPC: "885911000017", Description: "KNIT TOP", VendorName: "ACME APPAREL",
				Color: "BLUE", Size: "M", OriginalQty: 3,
				ClientCost: decimal.NewFromFloat(6.67), OriginalRetail: decimal.NewFromFloat(53.32),
			},
			{UPC: "885911000024", Description: "CARDIGAN <script>", VendorName: "BLUE CO", Size: "L"},
		},
	}
}

func TestBuildHTML(t *testing.T) {
	html, err := BuildHTML(reportBatch(), batch.DefaultShippingRates())
	require.NoError(t, err)
	doc := string(html)

	assert.Contains(t, doc, "Liquidation Batch Report - Lot 5001")
	assert.Contains(t, doc, "lot5001.xlsx")
	assert.Contains(t, doc, "NJ-04")
	assert.Contains(t, doc, "$6000.00")
	assert.Contains(t, doc, "$48000.00")
	assert.Contains(t, doc, "$6.67")
	assert.Contains(t, doc, "1360.78 kg")
	assert.Contains(t, doc, "885911000017")
	assert.Contains(t, doc, "ACME APPAREL")

	// Item text is escaped, not injected.
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "&lt;script&gt;")
}

func TestBuildHTMLEmptyBatch(t *testing.T) {
	html, err := BuildHTML(&batch.Batch{Summary: batch.Summary{LotNumber: "7"}}, batch.DefaultShippingRates())
	require.NoError(t, err)
	doc := string(html)
	assert.Contains(t, doc, "Lot 7")
	assert.NotContains(t, doc, "Item Catalog")
}

func TestGotenbergConvertHTML(t *testing.T) {
	t.Run("posts multipart and returns the pdf body", func(t *testing.T) {
		var gotFile string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("files")
			require.NoError(t, err)
			gotFile = header.Filename
			w.Write([]byte("%PDF-1.7 fake"))
		}))
		defer srv.Close()

		g := NewGotenberg(srv.URL, 5*time.Second)
		pdf, err := g.ConvertHTML(context.Background(), []byte("<html></html>"))
		require.NoError(t, err)
		assert.Equal(t, "index.html", gotFile)
		assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		g := NewGotenberg(srv.URL, 5*time.Second)
		_, err := g.ConvertHTML(context.Background(), []byte("<html></html>"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestRendererUsesConverter(t *testing.T) {
	conv := &fakeConverter{pdf: []byte("%PDF")}
	r := NewRenderer(conv, batch.DefaultShippingRates())

	pdf, err := r.Render(context.Background(), reportBatch())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Contains(t, string(conv.gotHTML), "Lot 5001")
}

type fakeConverter struct {
	pdf     []byte
	gotHTML []byte
}

func (f *fakeConverter) ConvertHTML(_ context.Context, html []byte) ([]byte, error) {
	f.gotHTML = html
	return f.pdf, nil
}
