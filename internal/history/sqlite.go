package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/diabetes-risk/internal/model"
)

// SQLiteBackend stores every session's history in one SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteBackend, error) {
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
	return &SQLiteBackend{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS assessment_records (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	tier        TEXT NOT NULL,
	probability REAL NOT NULL,
	age         INTEGER NOT NULL,
	weight_kg   REAL NOT NULL,
	height_cm   REAL NOT NULL,
	bmi         REAL
);

CREATE INDEX IF NOT EXISTS idx_assessment_records_session ON assessment_records(session_id, seq);
`

func (b *SQLiteBackend) Migrate(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Drop(string) {}

func (b *SQLiteBackend) Session(id string) Store {
	return &sqliteStore{db: b.db, session: id}
}

type sqliteStore struct {
	db      *sql.DB
	session string
}

const sqliteInsert = `INSERT INTO assessment_records
	(session_id, created_at, tier, probability, age, weight_kg, height_cm, bmi)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (s *sqliteStore) Append(ctx context.Context, rec model.AssessmentRecord) error {
	_, err := s.db.ExecContext(ctx, sqliteInsert, s.args(rec)...)
	return eris.Wrapf(err, "sqlite: append record for session %s", s.session)
}

func (s *sqliteStore) AppendAll(ctx context.Context, recs []model.AssessmentRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, s.args(rec)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: append record for session %s", s.session)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return len(recs), nil
}

func (s *sqliteStore) args(rec model.AssessmentRecord) []any {
	var bmi sql.NullFloat64
	if rec.BMI != nil {
		bmi = sql.NullFloat64{Float64: *rec.BMI, Valid: true}
	}
	return []any{
		s.session,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Tier),
		rec.Probability,
		rec.Age,
		rec.WeightKg,
		rec.HeightCm,
		bmi,
	}
}

func (s *sqliteStore) List(ctx context.Context) ([]model.AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at, tier, probability, age, weight_kg, height_cm, bmi
		 FROM assessment_records WHERE session_id = ? ORDER BY seq`,
		s.session,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records for session %s", s.session)
	}
	defer rows.Close()

	var out []model.AssessmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM assessment_records WHERE session_id = ?`, s.session)
	return eris.Wrapf(err, "sqlite: clear session %s", s.session)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.AssessmentRecord, error) {
	var (
		rec     model.AssessmentRecord
		created string
		tier    string
		bmi     sql.NullFloat64
	)
	if err := row.Scan(&created, &tier, &rec.Probability, &rec.Age, &rec.WeightKg, &rec.HeightCm, &bmi); err != nil {
		return rec, eris.Wrap(err, "sqlite: scan record")
	}

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return rec, eris.Wrapf(err, "sqlite: parse created_at %q", created)
	}
	rec.CreatedAt = t
	rec.Tier = model.Tier(tier)
	if bmi.Valid {
		v := bmi.Float64
		rec.BMI = &v
	}
	return rec, nil
}
