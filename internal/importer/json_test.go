package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamJSON_Array(t *testing.T) {
	input := `[
		{"id": "p1", "name": "Cafe", "category": "food", "average_rating": 4.5},
		{"id": "p2", "name": "Museum", "category": "culture"}
	]`
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(input))

	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "p1", recs[0]["id"])
	assert.Equal(t, 4.5, recs[0]["average_rating"])
	assert.Equal(t, "Museum", recs[1]["name"])
}

func TestStreamJSON_RecordsObject(t *testing.T) {
	input := `{"version": 2, "records": [{"id": "p1", "name": "Cafe", "category": "food"}]}`
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(input))

	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0]["id"])
}

func TestStreamJSON_PoisKey(t *testing.T) {
	input := `{"pois": [{"id": "p1", "name": "Cafe", "category": "food"}]}`
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(input))

	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestStreamJSON_KeysNormalized(t *testing.T) {
	input := `[{"ID": "p1", "Name": "Cafe", "Category": "food"}]`
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(input))

	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0]["id"])
	assert.Equal(t, "Cafe", recs[0]["name"])
}

func TestStreamJSON_NestedCoordinates(t *testing.T) {
	input := `[{"id": "p1", "name": "Cafe", "category": "food", "coordinates": {"latitude": 1.5, "longitude": 2.5}}]`
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(input))

	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	coords, ok := recs[0]["coordinates"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1.5, coords["latitude"])
}

func TestStreamJSON_EmptyArray(t *testing.T) {
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader("[]"))
	recs, err := collectRecords(t, recCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStreamJSON_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated", `[{"id": "p1"`},
		{"scalar top level", `42`},
		{"string element", `["not an object"]`},
		{"null element", `[null]`},
		{"object without records", `{"version": 2}`},
		{"records not an array", `{"records": {"id": "p1"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recCh, errCh := StreamJSON(context.Background(), strings.NewReader(tt.input))
			_, err := collectRecords(t, recCh, errCh)
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrMalformedInput))
		})
	}
}

func TestStreamJSON_TrailingGarbage(t *testing.T) {
	recCh, errCh := StreamJSON(context.Background(), strings.NewReader(`[{"id": "p1", "name": "Cafe", "category": "food"}] trailing`))
	recs, err := collectRecords(t, recCh, errCh)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformedInput))
	// Records before the garbage were already emitted.
	assert.Len(t, recs, 1)
}
