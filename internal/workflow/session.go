// Package workflow drives one assessment through its states:
//
//	draft -> validated -> scored -> recorded
//
// A Session is owned by its host (a CLI invocation, an HTTP session) and is
// never shared between users. Every method takes the session lock, so
// concurrent calls on one session are serialised.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/diabetes-risk/internal/advice"
	"github.com/sells-group/diabetes-risk/internal/classifier"
	"github.com/sells-group/diabetes-risk/internal/history"
	"github.com/sells-group/diabetes-risk/internal/model"
	"github.com/sells-group/diabetes-risk/internal/predictor"
)

// State is a workflow state.
type State string

const (
	StateDraft     State = "draft"
	StateValidated State = "validated"
	StateScored    State = "scored"
	StateRecorded  State = "recorded"
)

// Session is the per-user workflow context.
type Session struct {
	mu sync.Mutex

	id    string
	state State
	draft model.RawInput

	profile *model.HealthProfile
	result  *model.AssessmentResult

	store      history.Store
	predictor  predictor.Predictor
	classifier classifier.Classifier

	now   func() time.Time
	newID func() string
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDGenerator overrides result ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// WithSessionID labels the session's log lines.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a session in the draft state. A nil predictor means
// rule-based scoring and a nil classifier the default thresholds.
func New(store history.Store, p predictor.Predictor, c classifier.Classifier, opts ...Option) *Session {
	if p == nil {
		p = predictor.RuleBased{}
	}
	if c == nil {
		c = classifier.Default()
	}
	s := &Session{
		state:      StateDraft,
		store:      store,
		predictor:  p,
		classifier: c,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID     string                  `json:"id,omitempty"`
	State  State                   `json:"state"`
	Draft  model.RawInput          `json:"draft"`
	Result *model.AssessmentResult `json:"result,omitempty"`
}

// Snapshot returns the current state, draft and result.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{ID: s.id, State: s.state, Draft: s.draft}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update merges raw into the draft. Editing after validation discards the
// profile and result and returns the session to draft; the draft values are
// kept so a form can be corrected and resubmitted.
func (s *Session) Update(raw model.RawInput) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDraft {
		s.restart()
	}
	s.draft = s.draft.Merge(raw)
}

// Validate moves draft to validated. On failure it returns a
// *ValidationError and the session stays in draft.
func (s *Session) Validate() (*model.HealthProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validate()
}

func (s *Session) validate() (*model.HealthProfile, error) {
	switch s.state {
	case StateDraft, StateValidated:
	default:
		return nil, eris.Wrapf(ErrInvalidTransition, "validate from %s", s.state)
	}

	p, err := BuildProfile(s.draft)
	if err != nil {
		s.state = StateDraft
		s.profile = nil
		zap.L().Info("workflow: validation failed",
			zap.String("session", s.id),
			zap.Error(err),
		)
		return nil, err
	}

	s.profile = p
	s.state = StateValidated
	cp := *p
	return &cp, nil
}

// Score runs the predictor and classifier on the validated profile and
// moves to scored.
func (s *Session) Score(ctx context.Context) (model.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score(ctx)
}

func (s *Session) score(ctx context.Context) (model.AssessmentResult, error) {
	if s.state != StateValidated || s.profile == nil {
		return model.AssessmentResult{}, eris.Wrapf(ErrInvalidTransition, "score from %s", s.state)
	}

	prob := predictor.Clamp(s.predictor.Predict(ctx, *s.profile))
	r := model.AssessmentResult{
		ID:          s.newID(),
		Probability: prob,
		Tier:        s.classifier.Classify(prob),
		CreatedAt:   s.now().UTC(),
		Profile:     *s.profile,
	}
	s.result = &r
	s.state = StateScored

	zap.L().Info("workflow: assessment scored",
		zap.String("session", s.id),
		zap.String("result_id", r.ID),
		zap.String("predictor", s.predictor.Name()),
		zap.Float64("probability", r.Probability),
		zap.String("tier", string(r.Tier)),
	)
	return r, nil
}

// Submit validates and scores in one step.
func (s *Session) Submit(ctx context.Context) (model.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.validate(); err != nil {
		return model.AssessmentResult{}, err
	}
	return s.score(ctx)
}

// Record appends the current result to history and moves to recorded. It
// returns false with no error when the result was already recorded. If the
// store fails, the error is a *PersistenceError and the session stays
// scored so the caller may retry.
func (s *Session) Record(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRecorded:
		return false, nil
	case StateScored:
	default:
		if s.result == nil {
			return false, ErrNoResult
		}
		return false, eris.Wrapf(ErrInvalidTransition, "record from %s", s.state)
	}

	if err := s.store.Append(ctx, model.Project(*s.result)); err != nil {
		zap.L().Error("workflow: record failed",
			zap.String("session", s.id),
			zap.String("result_id", s.result.ID),
			zap.Error(err),
		)
		return false, &PersistenceError{Op: "append", Err: err}
	}

	s.state = StateRecorded
	zap.L().Info("workflow: assessment recorded",
		zap.String("session", s.id),
		zap.String("result_id", s.result.ID),
	)
	return true, nil
}

// Result returns the current result, or ErrNoResult before scoring.
func (s *Session) Result() (model.AssessmentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return model.AssessmentResult{}, ErrNoResult
	}
	return *s.result, nil
}

// Recommendations builds the advice plan for the current result.
func (s *Session) Recommendations() (advice.Plan, error) {
	r, err := s.Result()
	if err != nil {
		return advice.Plan{}, err
	}
	return advice.Build(r), nil
}

// History lists the session's recorded assessments, oldest first.
func (s *Session) History(ctx context.Context) ([]model.AssessmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return recs, nil
}

// ClearHistory deletes every recorded assessment. The caller must pass
// confirmed=true; the current run is left as it is.
func (s *Session) ClearHistory(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrClearNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return &PersistenceError{Op: "clear", Err: err}
	}
	zap.L().Info("workflow: history cleared", zap.String("session", s.id))
	return nil
}

// Reset discards the draft and any result and starts a new run.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restart()
	s.draft = model.RawInput{}
}

func (s *Session) restart() {
	s.state = StateDraft
	s.profile = nil
	s.result = nil
}
