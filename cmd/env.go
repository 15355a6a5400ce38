package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/classifier"
	"github.com/sells-group/diabetes-risk/internal/history"
	"github.com/sells-group/diabetes-risk/internal/predictor"
	"github.com/sells-group/diabetes-risk/internal/workflow"
)

// defaultSession is the history partition used by CLI commands when
// --session is not given.
const defaultSession = "default"

// assessEnv holds the collaborators every assessment command needs.
type assessEnv struct {
	Backend    history.Backend
	Predictor  predictor.Predictor
	Classifier classifier.Classifier
	Narrator   advice.Narrator
}

// Close releases the history backend.
func (e *assessEnv) Close() {
	if e.Backend == nil {
		return
	}
	if err := e.Backend.Close(); err != nil {
		zap.L().Warn("close history backend", zap.Error(err))
	}
}

// NewSession builds a workflow session writing to the id partition.
func (e *assessEnv) NewSession(id string, store history.Store) *workflow.Session {
	if store == nil {
		store = e.Backend.Session(id)
	}
	return workflow.New(store, e.Predictor, e.Classifier, workflow.WithSessionID(id))
}

func initEnv(ctx context.Context) (*assessEnv, error) {
	backend, err := history.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init history store")
	}

	p, err := predictor.New(cfg.Predictor)
	if err != nil {
		_ = backend.Close()
		return nil, eris.Wrap(err, "init predictor")
	}

	c, err := classifier.FromConfig(cfg.Classifier)
	if err != nil {
		_ = backend.Close()
		return nil, eris.Wrap(err, "init classifier")
	}

	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("predictor", p.Name()),
	)

	return &assessEnv{
		Backend:    backend,
		Predictor:  p,
		Classifier: c,
		Narrator:   advice.NewNarrator(cfg.Advice),
	}, nil
}

func initHistory(ctx context.Context) (history.Backend, error) {
	backend, err := history.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init history store")
	}
	return backend, nil
}
