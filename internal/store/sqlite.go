package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/poi-admin/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pois (
	id             TEXT PRIMARY KEY,
	external_id    TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL,
	latitude       REAL,
	longitude      REAL,
	ratings        TEXT,
	average_rating REAL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	status      TEXT NOT NULL,
	created     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	unchanged   INTEGER NOT NULL DEFAULT 0,
	errored     INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByExternalID(ctx context.Context, externalID string) (*model.PoI, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at
		 FROM pois WHERE external_id = ?`,
		externalID,
	)

	p, err := scanPoI(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find poi %s", externalID)
	}
	return p, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, p *model.PoI) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var ratings sql.NullString
	if len(p.Ratings) > 0 {
		j, err := json.Marshal(p.Ratings)
		if err != nil {
			return "", eris.Wrap(err, "sqlite: marshal ratings")
		}
		ratings = sql.NullString{String: string(j), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pois (id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ExternalID, p.Name, p.Category, p.Latitude, p.Longitude, ratings, p.AverageRating, now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: insert poi %s", p.ExternalID)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

func (s *SQLiteStore) Update(ctx context.Context, p *model.PoI) error {
	now := time.Now().UTC()

	var ratings sql.NullString
	if len(p.Ratings) > 0 {
		j, err := json.Marshal(p.Ratings)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal ratings")
		}
		ratings = sql.NullString{String: string(j), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE pois SET external_id = ?, name = ?, category = ?, latitude = ?, longitude = ?, ratings = ?, average_rating = ?, updated_at = ?
		 WHERE id = ?`,
		p.ExternalID, p.Name, p.Category, p.Latitude, p.Longitude, ratings, p.AverageRating, now, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update poi %s", p.ID)
	}
	return checkRowsAffected(res, "poi", p.ID)
}

func (s *SQLiteStore) GetPoI(ctx context.Context, id string) (*model.PoI, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at
		 FROM pois WHERE id = ? OR external_id = ? LIMIT 1`,
		id, id,
	)

	p, err := scanPoI(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("poi not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get poi %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPoIs(ctx context.Context, filter PoIFilter) ([]model.PoI, error) {
	query := `SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at FROM pois WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (id = ? OR external_id = ?)`
		args = append(args, filter.Search, filter.Search)
	}
	query += ` ORDER BY created_at DESC, external_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list pois")
	}
	defer rows.Close()

	var pois []model.PoI
	for rows.Next() {
		p, err := scanPoI(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan poi")
		}
		pois = append(pois, *p)
	}
	return pois, eris.Wrap(rows.Err(), "sqlite: list pois iterate")
}

func (s *SQLiteStore) CountPoIs(ctx context.Context, filter PoIFilter) (int, error) {
	query := `SELECT COUNT(*) FROM pois WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (id = ? OR external_id = ?)`
		args = append(args, filter.Search, filter.Search)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count pois")
	}
	return n, nil
}

func (s *SQLiteStore) DeleteAllPoIs(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pois`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete all pois")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) RecordImportRun(ctx context.Context, f *model.FileSummary) error {
	id := uuid.New().String()

	var errText sql.NullString
	if f.Err != "" {
		errText = sql.NullString{String: f.Err, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_runs (id, path, format, status, created, updated, unchanged, errored, total, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.Path, f.Format, string(f.Status()), f.Created, f.Updated, f.Unchanged, f.Errored, f.Total, errText, f.StartedAt, f.FinishedAt,
	)
	return eris.Wrapf(err, "sqlite: record import run for %s", f.Path)
}

func (s *SQLiteStore) ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, format, status, created, updated, unchanged, errored, total, error, started_at, finished_at
		 FROM import_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list import runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Path, &r.Format, &r.Status, &r.Created, &r.Updated, &r.Unchanged, &r.Errored, &r.Total, &errText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import run")
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list import runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanPoI reads one catalog row. Callers branch on sql.ErrNoRows, which
// is passed through unwrapped.
func scanPoI(row scannable) (*model.PoI, error) {
	var p model.PoI
	var lat, lon, avg sql.NullFloat64
	var ratingsJSON sql.NullString

	err := row.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Category, &lat, &lon, &ratingsJSON, &avg, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		p.Latitude = &lat.Float64
	}
	if lon.Valid {
		p.Longitude = &lon.Float64
	}
	if avg.Valid {
		p.AverageRating = &avg.Float64
	}
	if ratingsJSON.Valid {
		if err := json.Unmarshal([]byte(ratingsJSON.String), &p.Ratings); err != nil {
			return nil, eris.Wrap(err, "unmarshal ratings")
		}
	}
	return &p, nil
}
