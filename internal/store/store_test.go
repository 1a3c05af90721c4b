package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/poi-admin/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func fptr(f float64) *float64 { return &f }

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("InsertAndFindByExternalID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &model.PoI{
			ExternalID:    "p1",
			Name:          "Cafe",
			Category:      "food",
			Latitude:      fptr(51.5),
			Longitude:     fptr(-0.12),
			Ratings:       []float64{4.0, 5.0},
			AverageRating: fptr(4.5),
		}

		id, err := s.Insert(ctx, p)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, p.ID)

		got, err := s.FindByExternalID(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Cafe", got.Name)
		assert.Equal(t, "food", got.Category)
		require.NotNil(t, got.Latitude)
		assert.InDelta(t, 51.5, *got.Latitude, 1e-9)
		require.NotNil(t, got.Longitude)
		assert.InDelta(t, -0.12, *got.Longitude, 1e-9)
		assert.Equal(t, []float64{4.0, 5.0}, got.Ratings)
		require.NotNil(t, got.AverageRating)
		assert.Equal(t, 4.5, *got.AverageRating)
		assert.False(t, got.CreatedAt.IsZero())

		miss, err := s.FindByExternalID(ctx, "absent")
		require.NoError(t, err)
		assert.Nil(t, miss)
	})

	t.Run("InsertNullFieldsRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, &model.PoI{ExternalID: "p2", Name: "Museum", Category: "culture"})
		require.NoError(t, err)

		got, err := s.FindByExternalID(ctx, "p2")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Latitude)
		assert.Nil(t, got.Longitude)
		assert.Nil(t, got.AverageRating)
		assert.Empty(t, got.Ratings)
	})

	t.Run("InsertDuplicateExternalID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"})
		require.NoError(t, err)

		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Clone", Category: "food"})
		require.Error(t, err)
	})

	t.Run("Update", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food", AverageRating: fptr(4.5)}
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)

		p.Name = "Renamed Cafe"
		p.AverageRating = fptr(4.8)
		require.NoError(t, s.Update(ctx, p))

		got, err := s.FindByExternalID(ctx, "p1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Renamed Cafe", got.Name)
		assert.Equal(t, 4.8, *got.AverageRating)
	})

	t.Run("UpdateClearsFields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food", AverageRating: fptr(4.5), Ratings: []float64{4.5}}
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)

		p.AverageRating = nil
		p.Ratings = nil
		require.NoError(t, s.Update(ctx, p))

		got, err := s.FindByExternalID(ctx, "p1")
		require.NoError(t, err)
		assert.Nil(t, got.AverageRating)
		assert.Empty(t, got.Ratings)
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.Update(ctx, &model.PoI{ID: "nonexistent", ExternalID: "x", Name: "X", Category: "y"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("GetPoI", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		p := &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"}
		id, err := s.Insert(ctx, p)
		require.NoError(t, err)

		byInternal, err := s.GetPoI(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Cafe", byInternal.Name)

		byExternal, err := s.GetPoI(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, id, byExternal.ID)
	})

	t.Run("GetPoI_NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetPoI(ctx, "nonexistent")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("ListPoIs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p2", Name: "Museum", Category: "culture"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p3", Name: "Diner", Category: "food"})
		require.NoError(t, err)

		all, err := s.ListPoIs(ctx, PoIFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		food, err := s.ListPoIs(ctx, PoIFilter{Category: "food"})
		require.NoError(t, err)
		assert.Len(t, food, 2)

		limited, err := s.ListPoIs(ctx, PoIFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("ListPoIs_Search", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		id, err := s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p2", Name: "Museum", Category: "culture"})
		require.NoError(t, err)

		byExternal, err := s.ListPoIs(ctx, PoIFilter{Search: "p1"})
		require.NoError(t, err)
		require.Len(t, byExternal, 1)
		assert.Equal(t, "Cafe", byExternal[0].Name)

		byInternal, err := s.ListPoIs(ctx, PoIFilter{Search: id})
		require.NoError(t, err)
		require.Len(t, byInternal, 1)
		assert.Equal(t, "Cafe", byInternal[0].Name)

		// Exact match only, no substring search.
		none, err := s.ListPoIs(ctx, PoIFilter{Search: "p"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ListPoIs_WithOffset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, ext := range []string{"p1", "p2", "p3"} {
			_, err := s.Insert(ctx, &model.PoI{ExternalID: ext, Name: "N " + ext, Category: "c"})
			require.NoError(t, err)
		}

		paged, err := s.ListPoIs(ctx, PoIFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, paged, 1)
	})

	t.Run("ListPoIs_Empty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		pois, err := s.ListPoIs(ctx, PoIFilter{})
		require.NoError(t, err)
		assert.Empty(t, pois)
	})

	t.Run("CountPoIs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p2", Name: "Museum", Category: "culture"})
		require.NoError(t, err)

		n, err := s.CountPoIs(ctx, PoIFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.CountPoIs(ctx, PoIFilter{Category: "food"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("DeleteAllPoIs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Insert(ctx, &model.PoI{ExternalID: "p1", Name: "Cafe", Category: "food"})
		require.NoError(t, err)
		_, err = s.Insert(ctx, &model.PoI{ExternalID: "p2", Name: "Museum", Category: "culture"})
		require.NoError(t, err)

		n, err := s.DeleteAllPoIs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.DeleteAllPoIs(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		remaining, err := s.CountPoIs(ctx, PoIFilter{})
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)
	})

	t.Run("RecordAndListImportRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		now := time.Now().UTC()
		older := &model.FileSummary{
			Path: "old.csv", Format: "csv",
			Created: 5, Total: 5,
			StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour).Add(2 * time.Second),
		}
		newer := &model.FileSummary{
			Path: "new.json", Format: "json",
			Err:       "json: no records array in object",
			StartedAt: now, FinishedAt: now.Add(time.Second),
		}

		require.NoError(t, s.RecordImportRun(ctx, older))
		require.NoError(t, s.RecordImportRun(ctx, newer))

		runs, err := s.ListImportRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)

		// Most recent first.
		assert.Equal(t, "new.json", runs[0].Path)
		assert.Equal(t, model.ImportStatusFailed, runs[0].Status)
		assert.Contains(t, runs[0].Error, "no records array")
		assert.Equal(t, "old.csv", runs[1].Path)
		assert.Equal(t, model.ImportStatusComplete, runs[1].Status)
		assert.Equal(t, 5, runs[1].Created)
		assert.Empty(t, runs[1].Error)

		limited, err := s.ListImportRuns(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("ListImportRuns_Empty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		runs, err := s.ListImportRuns(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
