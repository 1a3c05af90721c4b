package model

// AdminField describes how one catalog field surfaces in the browse CLI.
type AdminField struct {
	Key    string // canonical field name
	Label  string // column header
	List   bool   // rendered as a column by pois list
	Search bool   // matched exactly by --search
	Filter bool   // usable as a filter facet
}

// AdminFields declares the catalog fields the pois commands surface.
// Ordering is display order.
var AdminFields = []AdminField{
	{Key: "id", Label: "ID", List: true, Search: true},
	{Key: "name", Label: "NAME", List: true},
	{Key: "external_id", Label: "EXTERNAL_ID", List: true, Search: true},
	{Key: "category", Label: "CATEGORY", List: true, Filter: true},
	{Key: "average_rating", Label: "AVG_RATING", List: true},
	{Key: "latitude", Label: "LATITUDE"},
	{Key: "longitude", Label: "LONGITUDE"},
}

// ListFields returns the fields rendered as list columns, in order.
func ListFields() []AdminField {
	return selectFields(func(f AdminField) bool { return f.List })
}

// SearchFields returns the fields matched by exact search.
func SearchFields() []AdminField {
	return selectFields(func(f AdminField) bool { return f.Search })
}

// FilterFields returns the fields usable as filter facets.
func FilterFields() []AdminField {
	return selectFields(func(f AdminField) bool { return f.Filter })
}

func selectFields(keep func(AdminField) bool) []AdminField {
	var out []AdminField
	for _, f := range AdminFields {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// FieldValue renders the named field of p for display. Unknown keys
// render empty.
func FieldValue(p *PoI, key string) string {
	switch key {
	case "id":
		return p.ID
	case "external_id":
		return p.ExternalID
	case "name":
		return p.Name
	case "category":
		return p.Category
	case "average_rating":
		return FormatFloat(p.AverageRating)
	case "latitude":
		return FormatFloat(p.Latitude)
	case "longitude":
		return FormatFloat(p.Longitude)
	}
	return ""
}
