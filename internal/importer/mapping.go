package importer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Canonical record fields understood by the normalizer.
const (
	FieldExternalID    = "external_id"
	FieldName          = "name"
	FieldCategory      = "category"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldRatings       = "ratings"
	FieldAverageRating = "average_rating"
)

var canonicalFields = map[string]bool{
	FieldExternalID:    true,
	FieldName:          true,
	FieldCategory:      true,
	FieldLatitude:      true,
	FieldLongitude:     true,
	FieldRatings:       true,
	FieldAverageRating: true,
}

// Mapping translates source column or key names into canonical fields.
type Mapping struct {
	aliases map[string]string
}

// DefaultMapping covers the header variants seen across the standard CSV,
// JSON and XML feeds.
func DefaultMapping() *Mapping {
	aliases := map[string]string{
		"poi_id":        FieldExternalID,
		"poi_name":      FieldName,
		"poi_category":  FieldCategory,
		"poi_latitude":  FieldLatitude,
		"poi_longitude": FieldLongitude,
		"poi_ratings":   FieldRatings,

		"id": FieldExternalID,

		"pid":        FieldExternalID,
		"pname":      FieldName,
		"pcategory":  FieldCategory,
		"platitude":  FieldLatitude,
		"plongitude": FieldLongitude,
		"pratings":   FieldRatings,

		"avg_rating": FieldAverageRating,
	}
	for canon := range canonicalFields {
		aliases[canon] = canon
	}
	return &Mapping{aliases: aliases}
}

// LoadMapping reads alias overrides from a YAML file and overlays them on
// the default mapping. Every override must target a canonical field.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapping: read %s", path)
	}

	var wrapper struct {
		Aliases map[string]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "mapping: parse %s", path)
	}

	m := DefaultMapping()
	for src, canon := range wrapper.Aliases {
		if !canonicalFields[canon] {
			return nil, eris.Errorf("mapping: unknown target field %q for %q", canon, src)
		}
		m.aliases[normalizeKey(src)] = canon
	}
	return m, nil
}

// Apply rewrites a raw record's keys to canonical fields. Canonical keys
// present in the source win over aliased ones, and a nested coordinates
// object is flattened into latitude and longitude.
func (m *Mapping) Apply(raw RawRecord) RawRecord {
	out := make(RawRecord, len(raw))

	for k, v := range raw {
		if canonicalFields[k] {
			out[k] = v
		}
	}

	if coords, ok := raw["coordinates"].(map[string]any); ok {
		for ck, cv := range coords {
			ck = normalizeKey(ck)
			if ck != FieldLatitude && ck != FieldLongitude {
				continue
			}
			if _, exists := out[ck]; !exists {
				out[ck] = cv
			}
		}
	}

	for k, v := range raw {
		if k == "coordinates" || canonicalFields[k] {
			continue
		}
		canon, ok := m.aliases[k]
		if !ok {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
			continue
		}
		if _, exists := out[canon]; !exists {
			out[canon] = v
		}
	}

	return out
}
