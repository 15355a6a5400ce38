package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/db"
	"github.com/sells-group/diabetes-risk/internal/model"
)

// PostgresBackend stores history in Postgres through a pgx pool.
type PostgresBackend struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresBackend with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresBackend, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = min(2, maxConns)
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresBackend{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assessment_records (
	seq         BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	tier        TEXT NOT NULL,
	probability DOUBLE PRECISION NOT NULL,
	age         INTEGER NOT NULL,
	weight_kg   DOUBLE PRECISION NOT NULL,
	height_cm   DOUBLE PRECISION NOT NULL,
	bmi         DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_assessment_records_session ON assessment_records(session_id, seq);
`

var recordColumns = []string{
	"session_id", "created_at", "tier", "probability", "age", "weight_kg", "height_cm", "bmi",
}

func (b *PostgresBackend) Migrate(ctx context.Context) error {
	_, err := b.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (b *PostgresBackend) Close() error {
	if b.closeFn != nil {
		b.closeFn()
	}
	return nil
}

func (b *PostgresBackend) Drop(string) {}

func (b *PostgresBackend) Session(id string) Store {
	return &postgresStore{pool: b.pool, session: id}
}

type postgresStore struct {
	pool    db.Pool
	session string
}

func (s *postgresStore) row(rec model.AssessmentRecord) []any {
	return []any{
		s.session,
		rec.CreatedAt.UTC(),
		string(rec.Tier),
		rec.Probability,
		rec.Age,
		rec.WeightKg,
		rec.HeightCm,
		rec.BMI,
	}
}

func (s *postgresStore) Append(ctx context.Context, rec model.AssessmentRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO assessment_records (session_id, created_at, tier, probability, age, weight_kg, height_cm, bmi)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.row(rec)...,
	)
	return eris.Wrapf(err, "postgres: append record for session %s", s.session)
}

func (s *postgresStore) AppendAll(ctx context.Context, recs []model.AssessmentRecord) (int, error) {
	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, s.row(rec))
	}
	n, err := db.CopyFrom(ctx, s.pool, "assessment_records", recordColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: import records for session %s", s.session)
	}
	return int(n), nil
}

func (s *postgresStore) List(ctx context.Context) ([]model.AssessmentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT created_at, tier, probability, age, weight_kg, height_cm, bmi
		 FROM assessment_records WHERE session_id = $1 ORDER BY seq`,
		s.session,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records for session %s", s.session)
	}
	defer rows.Close()

	var out []model.AssessmentRecord
	for rows.Next() {
		var (
			rec  model.AssessmentRecord
			tier string
		)
		if err := rows.Scan(&rec.CreatedAt, &tier, &rec.Probability, &rec.Age, &rec.WeightKg, &rec.HeightCm, &rec.BMI); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec.Tier = model.Tier(tier)
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *postgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM assessment_records WHERE session_id = $1`, s.session)
	return eris.Wrapf(err, "postgres: clear session %s", s.session)
}
