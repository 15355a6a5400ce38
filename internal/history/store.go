// Package history persists the append-only list of completed assessments
// for each session.
package history

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/diabetes-risk/internal/config"
	"github.com/sells-group/diabetes-risk/internal/model"
)

// Store is one session's assessment history. Records come back in
// insertion order and duplicates are kept.
type Store interface {
	Append(ctx context.Context, rec model.AssessmentRecord) error
	List(ctx context.Context) ([]model.AssessmentRecord, error)
	Clear(ctx context.Context) error
}

// BulkAppender is implemented by stores that can insert many records in
// one round trip.
type BulkAppender interface {
	AppendAll(ctx context.Context, recs []model.AssessmentRecord) (int, error)
}

// Backend hands out per-session stores over one shared connection.
type Backend interface {
	Session(id string) Store
	// Drop releases any in-process state held for a finished session.
	// Durable backends keep the stored history.
	Drop(id string)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// AppendAll appends recs in order, using a bulk insert when s supports it.
func AppendAll(ctx context.Context, s Store, recs []model.AssessmentRecord) (int, error) {
	if ba, ok := s.(BulkAppender); ok {
		return ba.AppendAll(ctx, recs)
	}
	for i, rec := range recs {
		if err := s.Append(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

// Open connects the backend named by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case "memory":
		b = NewMemoryBackend()
	case "", "sqlite":
		b, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		b, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	case "redis":
		b, err = NewRedis(cfg.Redis)
	default:
		return nil, eris.Errorf("history: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := b.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}
