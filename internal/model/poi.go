package model

import (
	"strconv"
	"time"
)

// PoI is one point-of-interest record in the catalog.
type PoI struct {
	ID            string    `json:"id"`
	ExternalID    string    `json:"external_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Ratings       []float64 `json:"ratings,omitempty"`
	AverageRating *float64  `json:"average_rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EqualImportFields reports whether two records carry the same
// import-supplied values. Store-assigned fields (ID, timestamps) are
// ignored, so re-importing identical data counts as unchanged.
func (p *PoI) EqualImportFields(o *PoI) bool {
	if p.ExternalID != o.ExternalID || p.Name != o.Name || p.Category != o.Category {
		return false
	}
	if !eqFloatPtr(p.Latitude, o.Latitude) || !eqFloatPtr(p.Longitude, o.Longitude) {
		return false
	}
	if !eqFloatPtr(p.AverageRating, o.AverageRating) {
		return false
	}
	if len(p.Ratings) != len(o.Ratings) {
		return false
	}
	for i := range p.Ratings {
		if p.Ratings[i] != o.Ratings[i] {
			return false
		}
	}
	return true
}

func eqFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// FormatFloat renders an optional float without trailing zeros, or an
// empty string when unset.
func FormatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
