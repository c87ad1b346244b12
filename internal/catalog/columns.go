package catalog

// Columns is the fixed Google Shopping feed schema, in file order. The
// merchant feed rejects files whose header deviates from this, so both the
// encoder and the decoder treat it as canonical.
var Columns = []string{
	"id",
	"title",
	"description",
	"availability",
	"condition",
	"price",
	"link",
	"image_link",
	"brand",
	"google_product_category",
	"item_group_id",
	"shipping_weight",
	"video[0].url",
	"additional_image_link",
}

// Row is one product entry in the catalog, one field per feed column.
type Row struct {
	ID                    string
	Title                 string
	Description           string
	Availability          string
	Condition             string
	Price                 string
	Link                  string
	ImageLink             string
	Brand                 string
	GoogleProductCategory string
	ItemGroupID           string
	ShippingWeight        string
	VideoURL              string
	AdditionalImageLink   string
}

func (r Row) record() []string {
	return []string{
		r.ID,
		r.Title,
		r.Description,
		r.Availability,
		r.Condition,
		r.Price,
		r.Link,
		r.ImageLink,
		r.Brand,
		r.GoogleProductCategory,
		r.ItemGroupID,
		r.ShippingWeight,
		r.VideoURL,
		r.AdditionalImageLink,
	}
}

func rowFromRecord(rec []string) Row {
	get := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	return Row{
		ID:                    get(0),
		Title:                 get(1),
		Description:           get(2),
		Availability:          get(3),
		Condition:             get(4),
		Price:                 get(5),
		Link:                  get(6),
		ImageLink:             get(7),
		Brand:                 get(8),
		GoogleProductCategory: get(9),
		ItemGroupID:           get(10),
		ShippingWeight:        get(11),
		VideoURL:              get(12),
		AdditionalImageLink:   get(13),
	}
}
