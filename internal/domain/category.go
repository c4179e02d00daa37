package domain

// Category taxonomy for sellable items. Detections reporting anything
// outside this set are normalized to CategoryMisc.
const (
	CategoryFurniture   = "furniture"
	CategoryElectronics = "electronics"
	CategoryAppliances  = "appliances"
	CategoryDecor       = "decor"
	CategorySports      = "sports"
	CategoryBooks       = "books"
	CategoryClothing    = "clothing"
	CategoryMisc        = "misc"
)

// CategorySuggestions maps each category to example item names. Served to
// clients for manual item entry and reused by the keyword fallback when a
// model response cannot be parsed.
var CategorySuggestions = map[string][]string{
	CategoryFurniture:   {"chair", "table", "sofa", "bed", "desk", "bookshelf", "dresser", "cabinet"},
	CategoryElectronics: {"tv", "laptop", "monitor", "speaker", "phone", "tablet", "camera"},
	CategoryAppliances:  {"microwave", "toaster", "blender", "coffee maker", "vacuum"},
	CategoryDecor:       {"lamp", "mirror", "picture frame", "vase", "clock", "plant pot"},
	CategorySports:      {"bicycle", "exercise equipment", "sports gear"},
	CategoryBooks:       {"book", "magazine"},
	CategoryClothing:    {"jacket", "shoes", "bag", "backpack"},
}

// ValidCategory reports whether c is part of the taxonomy.
func ValidCategory(c string) bool {
	if c == CategoryMisc {
		return true
	}
	_, ok := CategorySuggestions[c]
	return ok
}

// NormalizeCategory maps an arbitrary detector-reported category onto the
// taxonomy, falling back to misc.
func NormalizeCategory(c string) string {
	if ValidCategory(c) {
		return c
	}
	return CategoryMisc
}
