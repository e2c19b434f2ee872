package validation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"ticketgate/backend"
	"ticketgate/logger"
	"ticketgate/models"
	"ticketgate/telemetry"
)

const (
	msgInvalidTicket = "Invalid ticket."
	msgCheckInFailed = "Check-in failed. Please try again."
)

// Backend is the remote ticketing API the pipeline talks to.
type Backend interface {
	Verify(ctx context.Context, code string) (*models.VerifyResponse, error)
	CheckIn(ctx context.Context, code string) error
}

// attempt carries what earlier stages learned to the later ones.
type attempt struct {
	code     string
	response *models.VerifyResponse
	details  *models.EventDetails
}

// A stage either passes the attempt on (nil) or ends it with a result.
type stage struct {
	name string
	run  func(ctx context.Context, a *attempt) *models.ValidationResult
}

// Pipeline runs verify, authorize, reuse-check and commit strictly in order.
// The commit stage is only reached when every earlier stage passed.
type Pipeline struct {
	backend       Backend
	operatorBrand string
	overrides     map[string]struct{}
	log           *logger.Logger
	stages        []stage
}

func NewPipeline(b Backend, operatorBrand string, overrideBrands []string, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		backend:       b,
		operatorBrand: operatorBrand,
		overrides:     make(map[string]struct{}, len(overrideBrands)),
		log:           log,
	}
	for _, brand := range overrideBrands {
		p.overrides[brand] = struct{}{}
	}
	p.stages = []stage{
		{"verify", p.verify},
		{"authorize", p.authorize},
		{"reuse-check", p.reuseCheck},
		{"commit", p.commit},
	}
	return p
}

// Run validates one code and always produces a result. Panics from the backend
// are turned into an invalid result as well.
func (p *Pipeline) Run(ctx context.Context, code string) (result *models.ValidationResult) {
	ctx, span := telemetry.StartSpan(ctx, "validation.run", attribute.String("ticket.code", code))
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Validation panicked", zap.String("code", code), zap.Any("panic", r))
			result = models.Invalid(msgInvalidTicket)
			telemetry.EndSpan(span, fmt.Errorf("panic: %v", r))
			return
		}
		span.SetAttributes(attribute.String("validation.outcome", string(result.Outcome)))
		span.End()
	}()

	a := &attempt{code: code}
	for _, s := range p.stages {
		result = p.runStage(ctx, s, a)
		if result != nil {
			p.log.Debug("Validation finished",
				zap.String("code", code),
				zap.String("stage", s.name),
				zap.String("outcome", string(result.Outcome)),
			)
			return result
		}
	}
	return models.Invalid(msgInvalidTicket)
}

// runStage wraps one stage in its own span, ended even when the stage panics.
func (p *Pipeline) runStage(ctx context.Context, s stage, a *attempt) *models.ValidationResult {
	ctx, span := telemetry.StartSpan(ctx, "validation."+s.name)
	defer span.End()
	return s.run(ctx, a)
}

// Authorized reports whether the operator may check in tickets for an event
// owned by eventBrand. Operators on the override list pass for every event.
func (p *Pipeline) Authorized(eventBrand string) bool {
	if eventBrand == p.operatorBrand {
		return true
	}
	_, ok := p.overrides[p.operatorBrand]
	return ok
}

func (p *Pipeline) verify(ctx context.Context, a *attempt) *models.ValidationResult {
	resp, err := p.backend.Verify(ctx, a.code)
	if err != nil {
		p.log.Warn("Ticket verification failed", zap.String("code", a.code), zap.Error(err))
		return models.Invalid(messageOr(err, msgInvalidTicket))
	}
	a.response = resp
	a.details = resp.Details()
	return nil
}

func (p *Pipeline) authorize(ctx context.Context, a *attempt) *models.ValidationResult {
	if p.Authorized(a.details.Brand) {
		return nil
	}
	p.log.Warn("Operator not authorized for event",
		zap.String("code", a.code),
		zap.String("operator_brand", p.operatorBrand),
		zap.String("event_brand", a.details.Brand),
	)
	return models.Unauthorized(a.details)
}

func (p *Pipeline) reuseCheck(ctx context.Context, a *attempt) *models.ValidationResult {
	if a.response.Used {
		return models.Used(a.details)
	}
	return nil
}

func (p *Pipeline) commit(ctx context.Context, a *attempt) *models.ValidationResult {
	if err := p.backend.CheckIn(ctx, a.code); err != nil {
		p.log.Error("Ticket check-in failed", zap.String("code", a.code), zap.Error(err))
		return models.Invalid(messageOr(err, msgCheckInFailed))
	}
	return models.Valid(a.details)
}

func messageOr(err error, fallback string) string {
	if msg := backend.ServerMessage(err); msg != "" {
		return msg
	}
	return fallback
}
