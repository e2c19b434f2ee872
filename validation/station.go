package validation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketgate/logger"
	"ticketgate/models"
)

var (
	ErrBusy          = errors.New("a validation is already in progress")
	ErrEmptyCode     = errors.New("ticket code is empty")
	ErrResultPending = errors.New("a result is being shown; scan next ticket first")
)

// Phase is the top-level state of a station.
type Phase string

const (
	PhaseAcquiring  Phase = "acquiring"
	PhasePresenting Phase = "presenting"
)

// Recorder stores finished attempts. Failures never change a result.
type Recorder interface {
	Record(ctx context.Context, attempt models.Attempt) error
}

// Snapshot is a consistent copy of station state.
type Snapshot struct {
	Phase  Phase                    `json:"phase"`
	Code   string                   `json:"code"`
	Busy   bool                     `json:"busy"`
	Brand  string                   `json:"brand"`
	Result *models.ValidationResult `json:"result,omitempty"`
}

// Station is the per-operator validation state machine. At most one attempt is
// in flight; others are rejected with ErrBusy, never queued.
type Station struct {
	pipeline *Pipeline
	brand    string
	journal  Recorder
	log      *logger.Logger
	now      func() time.Time

	mu     sync.Mutex
	code   string
	busy   bool
	result *models.ValidationResult
}

func NewStation(pipeline *Pipeline, brand string, journal Recorder, log *logger.Logger) *Station {
	if log == nil {
		log = logger.Nop()
	}
	return &Station{
		pipeline: pipeline,
		brand:    brand,
		journal:  journal,
		log:      log,
		now:      time.Now,
	}
}

// Brand returns the operator brand the station was built for.
func (s *Station) Brand() string {
	return s.brand
}

// SetCode stores the uppercased code and returns it.
func (s *Station) SetCode(code string) string {
	code = models.NormalizeCode(code)
	s.mu.Lock()
	s.code = code
	s.mu.Unlock()
	return code
}

// Submit validates the current code.
func (s *Station) Submit(ctx context.Context) (*models.ValidationResult, error) {
	return s.submit(ctx, nil)
}

// SubmitCode replaces the current code and validates it. The code is left
// untouched when the submission is rejected.
func (s *Station) SubmitCode(ctx context.Context, code string) (*models.ValidationResult, error) {
	code = models.NormalizeCode(code)
	return s.submit(ctx, &code)
}

func (s *Station) submit(ctx context.Context, code *string) (*models.ValidationResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.result != nil {
		s.mu.Unlock()
		return nil, ErrResultPending
	}
	if code != nil {
		s.code = *code
	}
	current := s.code
	if current == "" {
		s.mu.Unlock()
		return nil, ErrEmptyCode
	}
	s.busy = true
	s.mu.Unlock()

	var result *models.ValidationResult
	defer func() {
		s.mu.Lock()
		s.result = result
		s.busy = false
		s.mu.Unlock()
	}()

	started := s.now()
	result = s.pipeline.Run(ctx, current)
	s.record(ctx, current, result, started)
	return result, nil
}

func (s *Station) record(ctx context.Context, code string, result *models.ValidationResult, started time.Time) {
	attempt := models.Attempt{
		ID:         uuid.New(),
		Code:       code,
		Outcome:    result.Outcome,
		Message:    result.Message,
		Brand:      s.brand,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if result.Event != nil {
		attempt.EventName = result.Event.EventName
	}

	s.log.Info("Validation attempt finished",
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("code", code),
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("latency", attempt.FinishedAt.Sub(started)),
	)

	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), attempt); err != nil {
		s.log.Warn("Failed to journal attempt", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
	}
}

// Reset is the "scan next ticket" action. Calling it again is harmless.
func (s *Station) Reset() {
	s.mu.Lock()
	s.code = ""
	s.result = nil
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Station) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	phase := PhaseAcquiring
	if s.result != nil {
		phase = PhasePresenting
	}
	return Snapshot{
		Phase:  phase,
		Code:   s.code,
		Busy:   s.busy,
		Brand:  s.brand,
		Result: s.result,
	}
}
