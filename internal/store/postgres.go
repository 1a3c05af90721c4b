package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/poi-admin/internal/db"
	"github.com/sells-group/poi-admin/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot import path.
var preparedStatements = map[string]string{
	"find_poi":          `SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at FROM pois WHERE external_id = $1`,
	"insert_poi":        `INSERT INTO pois (id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"update_poi":        `UPDATE pois SET external_id = $1, name = $2, category = $3, latitude = $4, longitude = $5, ratings = $6, average_rating = $7, updated_at = $8 WHERE id = $9`,
	"insert_import_run": `INSERT INTO import_runs (id, path, format, status, created, updated, unchanged, errored, total, error, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pois (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	external_id    TEXT NOT NULL UNIQUE,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	ratings        JSONB,
	average_rating DOUBLE PRECISION,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS import_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	status      TEXT NOT NULL,
	created     INTEGER NOT NULL DEFAULT 0,
	updated     INTEGER NOT NULL DEFAULT 0,
	unchanged   INTEGER NOT NULL DEFAULT 0,
	errored     INTEGER NOT NULL DEFAULT 0,
	total       INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pois_category ON pois(category);
CREATE INDEX IF NOT EXISTS idx_import_runs_started_at ON import_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*model.PoI, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at FROM pois WHERE external_id = $1`,
		externalID,
	)

	p, err := scanPoIRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find poi %s", externalID)
	}
	return p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p *model.PoI) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var ratings []byte
	if len(p.Ratings) > 0 {
		var err error
		ratings, err = json.Marshal(p.Ratings)
		if err != nil {
			return "", eris.Wrap(err, "postgres: marshal ratings")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pois (id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, p.ExternalID, p.Name, p.Category, p.Latitude, p.Longitude, ratings, p.AverageRating, now, now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: insert poi %s", p.ExternalID)
	}

	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *model.PoI) error {
	now := time.Now().UTC()

	var ratings []byte
	if len(p.Ratings) > 0 {
		var err error
		ratings, err = json.Marshal(p.Ratings)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal ratings")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE pois SET external_id = $1, name = $2, category = $3, latitude = $4, longitude = $5, ratings = $6, average_rating = $7, updated_at = $8 WHERE id = $9`,
		p.ExternalID, p.Name, p.Category, p.Latitude, p.Longitude, ratings, p.AverageRating, now, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update poi %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("poi not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) GetPoI(ctx context.Context, id string) (*model.PoI, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at FROM pois WHERE id = $1 OR external_id = $1 LIMIT 1`,
		id,
	)

	p, err := scanPoIRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("poi not found: %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get poi %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPoIs(ctx context.Context, filter PoIFilter) ([]model.PoI, error) {
	query := `SELECT id, external_id, name, category, latitude, longitude, ratings, average_rating, created_at, updated_at FROM pois WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (id = $%d OR external_id = $%d)`, argIdx, argIdx)
		args = append(args, filter.Search)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, external_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list pois")
	}
	defer rows.Close()

	var pois []model.PoI
	for rows.Next() {
		p, err := scanPoIRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan poi")
		}
		pois = append(pois, *p)
	}
	return pois, eris.Wrap(rows.Err(), "postgres: list pois iterate")
}

func (s *PostgresStore) CountPoIs(ctx context.Context, filter PoIFilter) (int, error) {
	query := `SELECT COUNT(*) FROM pois WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (id = $%d OR external_id = $%d)`, argIdx, argIdx)
		args = append(args, filter.Search)
		argIdx++
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count pois")
	}
	return n, nil
}

func (s *PostgresStore) DeleteAllPoIs(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pois`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete all pois")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) RecordImportRun(ctx context.Context, f *model.FileSummary) error {
	id := uuid.New().String()

	var errText *string
	if f.Err != "" {
		errText = &f.Err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_runs (id, path, format, status, created, updated, unchanged, errored, total, error, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, f.Path, f.Format, string(f.Status()), f.Created, f.Updated, f.Unchanged, f.Errored, f.Total, errText, f.StartedAt, f.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: record import run for %s", f.Path)
}

func (s *PostgresStore) ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, path, format, status, created, updated, unchanged, errored, total, error, started_at, finished_at FROM import_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list import runs")
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var r model.ImportRun
		var errText *string
		if err := rows.Scan(&r.ID, &r.Path, &r.Format, &r.Status, &r.Created, &r.Updated, &r.Unchanged, &r.Errored, &r.Total, &errText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import run")
		}
		if errText != nil {
			r.Error = *errText
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list import runs iterate")
}

// scanPoIRow reads one catalog row. pgx.ErrNoRows passes through for
// callers to branch on.
func scanPoIRow(row pgx.Row) (*model.PoI, error) {
	var p model.PoI
	var ratingsJSON []byte

	err := row.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Category, &p.Latitude, &p.Longitude, &ratingsJSON, &p.AverageRating, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(ratingsJSON) > 0 {
		if err := json.Unmarshal(ratingsJSON, &p.Ratings); err != nil {
			return nil, eris.Wrap(err, "unmarshal ratings")
		}
	}
	return &p, nil
}
