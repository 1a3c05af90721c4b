package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_CSVAliases(t *testing.T) {
	raw := RawRecord{
		"poi_id":        "p1",
		"poi_name":      "Cafe",
		"poi_category":  "food",
		"poi_latitude":  "1.5",
		"poi_longitude": "2.5",
		"poi_ratings":   "{4.5, 3.5}",
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, "p1", out[FieldExternalID])
	assert.Equal(t, "Cafe", out[FieldName])
	assert.Equal(t, "food", out[FieldCategory])
	assert.Equal(t, "1.5", out[FieldLatitude])
	assert.Equal(t, "2.5", out[FieldLongitude])
	assert.Equal(t, "{4.5, 3.5}", out[FieldRatings])
}

func TestMapping_JSONAliases(t *testing.T) {
	raw := RawRecord{
		"id":   "p1",
		"name": "Cafe",
		"coordinates": map[string]any{
			"latitude":  1.5,
			"longitude": 2.5,
		},
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, "p1", out[FieldExternalID])
	assert.Equal(t, "Cafe", out[FieldName])
	assert.Equal(t, 1.5, out[FieldLatitude])
	assert.Equal(t, 2.5, out[FieldLongitude])
	_, ok := out["coordinates"]
	assert.False(t, ok)
}

func TestMapping_XMLAliases(t *testing.T) {
	raw := RawRecord{
		"pid":       "p1",
		"pname":     "Cafe",
		"pcategory": "food",
		"pratings":  "4.5",
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, "p1", out[FieldExternalID])
	assert.Equal(t, "Cafe", out[FieldName])
	assert.Equal(t, "food", out[FieldCategory])
	assert.Equal(t, "4.5", out[FieldRatings])
}

func TestMapping_CanonicalWins(t *testing.T) {
	raw := RawRecord{
		"external_id": "real",
		"poi_id":      "aliased",
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, "real", out[FieldExternalID])
}

func TestMapping_DirectCoordinateWins(t *testing.T) {
	raw := RawRecord{
		"latitude":  5.0,
		"longitude": 6.0,
		"coordinates": map[string]any{
			"latitude":  1.5,
			"longitude": 2.5,
		},
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, 5.0, out[FieldLatitude])
	assert.Equal(t, 6.0, out[FieldLongitude])
}

func TestMapping_UnknownKeysPassThrough(t *testing.T) {
	raw := RawRecord{
		"id":      "p1",
		"website": "https://example.com",
	}

	out := DefaultMapping().Apply(raw)
	assert.Equal(t, "p1", out[FieldExternalID])
	assert.Equal(t, "https://example.com", out["website"])
}

func TestMapping_AvgRatingAlias(t *testing.T) {
	out := DefaultMapping().Apply(RawRecord{"avg_rating": "4.2"})
	assert.Equal(t, "4.2", out[FieldAverageRating])
}

func TestLoadMapping_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  venue: name\n  kind: category\n"), 0o644))

	m, err := LoadMapping(path)
	require.NoError(t, err)

	out := m.Apply(RawRecord{"venue": "Cafe", "kind": "food", "poi_id": "p1"})
	assert.Equal(t, "Cafe", out[FieldName])
	assert.Equal(t, "food", out[FieldCategory])
	// Built-in aliases survive the overlay.
	assert.Equal(t, "p1", out[FieldExternalID])
}

func TestLoadMapping_UnknownTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  venue: nom_de_plume\n"), 0o644))

	_, err := LoadMapping(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target field")
}

func TestLoadMapping_MissingFile(t *testing.T) {
	_, err := LoadMapping(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMapping_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: [not a map"), 0o644))

	_, err := LoadMapping(path)
	require.Error(t, err)
}
