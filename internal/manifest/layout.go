package manifest

// Layout describes where a manifest workbook keeps its data. All indexes
// are zero-based row offsets into the first sheet.
type Layout struct {
	SummaryNameRow  int
	SummaryValueRow int
	ItemHeaderRow   int
	FirstItemRow    int
}

// DefaultLayout matches the workbook template the supplier exports: a
// title row, then summary field names with their values directly below,
// blank separator rows, item headers on the ninth row and item rows from
// the tenth onward.
func DefaultLayout() Layout {
	return Layout{
		SummaryNameRow:  1,
		SummaryValueRow: 2,
		ItemHeaderRow:   8,
		FirstItemRow:    9,
	}
}

// Summary field names as they appear in the template.
const (
	fieldLocation          = "LOCATION"
	fieldLotNumber         = "LOT #"
	fieldBOLNumber         = "BOL #"
	fieldCategory          = "CATEGORY"
	fieldSubcategory       = "SUBCATEGORY"
	fieldSeasonCode        = "SEASON CODE"
	fieldReturnType        = "RETURN TYPE"
	fieldNumPallets        = "# OF PALLETS"
	fieldNumCartons        = "# OF CARTONS"
	fieldTotalOrigCost     = "TOTAL ORIGINAL COST"
	fieldTotalOrigRetail   = "TOTAL ORIGINAL RETAIL"
	fieldTotalUnits        = "# OF UNITS"
	fieldTotalClientCost   = "TOTAL CLIENT COST"
	fieldAvgUnitClientCost = "AVG. UNIT CLIENT COST"
)

// Item column headers as they appear in the template.
const (
	colUPC            = "UPC"
	colDescription    = "ITEM DESCRIPTION"
	colOriginalQty    = "ORIGINAL QTY"
	colOriginalCost   = "ORIGINAL COST"
	colTotalOrigCost  = "TOTAL ORIGINAL COST"
	colOriginalRetail = "ORIGINAL RETAIL"
	colTotalOrigRet   = "TOTAL ORIGINAL RETAIL"
	colVendorStyle    = "VENDOR / STYLE #"
	colColor          = "COLOR"
	colSize           = "SIZE"
	colClientCost     = "CLIENT COST"
	colTotalClient    = "TOTAL CLIENT COST"
	colDivision       = "DIVISION"
	colDepartment     = "DEPARTMENT NAME"
	colVendorName     = "VENDOR NAME"
	colImage          = "IMAGE"
)
