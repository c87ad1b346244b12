package catalog

import "strings"

// defaultProductCategory is used when a batch category has no mapping.
const defaultProductCategory = "Apparel & Accessories"

// productCategories maps manifest categories to Google product taxonomy
// paths. Lookups are case-insensitive on the trimmed category name.
var productCategories = map[string]string{
	"WOMENS APPAREL": "Apparel & Accessories > Clothing",
	"MENS APPAREL":   "Apparel & Accessories > Clothing",
	"KIDS APPAREL":   "Apparel & Accessories > Clothing",
	"FOOTWEAR":       "Apparel & Accessories > Shoes",
	"HANDBAGS":       "Apparel & Accessories > Handbags, Wallets & Cases",
	"JEWELRY":        "Apparel & Accessories > Jewelry",
	"ACCESSORIES":    "Apparel & Accessories > Clothing Accessories",
	"HOME":           "Home & Garden",
}

// ProductCategory resolves a manifest category to its feed taxonomy path.
func ProductCategory(category string) string {
	key := strings.ToUpper(strings.TrimSpace(category))
	if path, ok := productCategories[key]; ok {
		return path
	}
	return defaultProductCategory
}
