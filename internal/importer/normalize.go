package importer

import (
	"strconv"
	"strings"

	"github.com/sells-group/poi-admin/internal/model"
)

// Normalize validates a canonicalized raw record and converts it into a
// PoI. It is pure: no I/O, no store access. Every failing field is
// collected into a single ValidationError rather than stopping at the
// first problem.
func Normalize(raw RawRecord) (*model.PoI, error) {
	var fields []FieldError

	externalID := strings.TrimSpace(asString(raw[FieldExternalID]))
	if externalID == "" {
		fields = append(fields, FieldError{Field: FieldExternalID, Reason: "missing or empty"})
	}
	name := strings.TrimSpace(asString(raw[FieldName]))
	if name == "" {
		fields = append(fields, FieldError{Field: FieldName, Reason: "missing or empty"})
	}
	category := strings.TrimSpace(asString(raw[FieldCategory]))
	if category == "" {
		fields = append(fields, FieldError{Field: FieldCategory, Reason: "missing or empty"})
	}

	latRaw, latPresent := presentValue(raw, FieldLatitude)
	lonRaw, lonPresent := presentValue(raw, FieldLongitude)
	if latPresent != lonPresent {
		missing := FieldLongitude
		if lonPresent {
			missing = FieldLatitude
		}
		fields = append(fields, FieldError{Field: missing, Reason: "latitude and longitude must be provided together"})
	}

	var lat, lon *float64
	if latPresent {
		switch v, err := parseFloat(latRaw); {
		case err != nil:
			fields = append(fields, FieldError{Field: FieldLatitude, Reason: "not a number"})
		case v < -90 || v > 90:
			fields = append(fields, FieldError{Field: FieldLatitude, Reason: "out of range [-90, 90]"})
		default:
			lat = &v
		}
	}
	if lonPresent {
		switch v, err := parseFloat(lonRaw); {
		case err != nil:
			fields = append(fields, FieldError{Field: FieldLongitude, Reason: "not a number"})
		case v < -180 || v > 180:
			fields = append(fields, FieldError{Field: FieldLongitude, Reason: "out of range [-180, 180]"})
		default:
			lon = &v
		}
	}

	ratings := parseRatings(raw[FieldRatings])

	var avg *float64
	if v, ok := presentValue(raw, FieldAverageRating); ok {
		f, err := parseFloat(v)
		if err != nil {
			fields = append(fields, FieldError{Field: FieldAverageRating, Reason: "not a number"})
		} else {
			avg = &f
		}
	} else if len(ratings) > 0 {
		sum := 0.0
		for _, r := range ratings {
			sum += r
		}
		mean := sum / float64(len(ratings))
		avg = &mean
	}
	if avg != nil && (*avg < 0 || *avg > 5) {
		fields = append(fields, FieldError{Field: FieldAverageRating, Reason: "out of range [0, 5]"})
		avg = nil
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &model.PoI{
		ExternalID:    externalID,
		Name:          name,
		Category:      category,
		Latitude:      lat,
		Longitude:     lon,
		Ratings:       ratings,
		AverageRating: avg,
	}, nil
}

// presentValue reports whether a field carries a usable value. Absent
// keys, nils and blank strings all count as not present.
func presentValue(raw RawRecord, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func parseFloat(v any) (float64, error) {
	if f, ok := v.(float64); ok {
		return f, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(asString(v)), 64)
}

// parseRatings extracts rating samples from the shapes the feeds use: a
// JSON array, a braced "{4.5, 3.2}" string, a comma list, or a bare
// scalar. Elements that do not parse are dropped rather than failing the
// record.
func parseRatings(v any) []float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case []float64:
		out := make([]float64, len(t))
		copy(out, t)
		return out
	case []any:
		var out []float64
		for _, el := range t {
			if f, err := parseFloat(el); err == nil {
				out = append(out, f)
			}
		}
		return out
	case float64:
		return []float64{t}
	case string:
		s := strings.Trim(strings.TrimSpace(t), "{}[]")
		if s == "" {
			return nil
		}
		var out []float64
		for _, part := range strings.Split(s, ",") {
			if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}
