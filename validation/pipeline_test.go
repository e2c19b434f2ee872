package validation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"ticketgate/backend"
	"ticketgate/models"
)

var defaultOverrides = []string{"Roman", "Down"}

// fakeBackend records calls and returns canned answers.
type fakeBackend struct {
	mu           sync.Mutex
	verifyCalls  int
	checkInCalls int
	response     *models.VerifyResponse
	verifyErr    error
	checkInErr   error
	verifyPanics bool

	// when set, Verify blocks until the channel is closed
	release chan struct{}
	entered chan struct{}
}

func (f *fakeBackend) Verify(ctx context.Context, code string) (*models.VerifyResponse, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.verifyPanics {
		panic("boom")
	}
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.response, nil
}

func (f *fakeBackend) CheckIn(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkInCalls++
	return f.checkInErr
}

func (f *fakeBackend) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls, f.checkInCalls
}

func unusedTicket(brand string) *models.VerifyResponse {
	return &models.VerifyResponse{
		EventDetails: &models.EventDetails{
			EventName: "Launch Night",
			Address:   "1 Main St",
			Date:      "2025-01-01",
			Brand:     brand,
		},
	}
}

func TestPipelineValid(t *testing.T) {
	fb := &fakeBackend{response: unusedTicket("Roman")}
	p := NewPipeline(fb, "Roman", defaultOverrides, nil)

	result := p.Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
	require.NotNil(t, result.Event)
	assert.Equal(t, "Launch Night", result.Event.EventName)
	verify, checkIn := fb.calls()
	assert.Equal(t, 1, verify)
	assert.Equal(t, 1, checkIn)
}

func TestPipelineMergesAttendeeName(t *testing.T) {
	resp := unusedTicket("Roman")
	resp.User = &models.Attendee{Name: "Grace Hopper"}
	fb := &fakeBackend{response: resp}

	result := NewPipeline(fb, "Roman", nil, nil).Run(context.Background(), "ABC123")

	require.NotNil(t, result.Event)
	assert.Equal(t, "Grace Hopper", result.Event.Name)
	assert.Empty(t, resp.EventDetails.Name, "response must not be mutated")
}

func TestPipelineUsedSkipsCommit(t *testing.T) {
	resp := unusedTicket("Roman")
	resp.Used = true
	resp.EventDetails.CheckedInAt = "2025-01-01T20:00:00Z"
	fb := &fakeBackend{response: resp}

	result := NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeUsed, result.Outcome)
	require.NotNil(t, result.Event)
	assert.Equal(t, "2025-01-01T20:00:00Z", result.Event.CheckedInAt)
	_, checkIn := fb.calls()
	assert.Zero(t, checkIn)
}

func TestPipelineUnauthorizedSkipsReuseAndCommit(t *testing.T) {
	resp := unusedTicket("OtherBrand")
	resp.Used = true
	fb := &fakeBackend{response: resp}

	result := NewPipeline(fb, "Acme", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeUnauthorized, result.Outcome, "authorization is checked before reuse")
	require.NotNil(t, result.Event)
	assert.Equal(t, "OtherBrand", result.Event.Brand)
	_, checkIn := fb.calls()
	assert.Zero(t, checkIn)
}

func TestPipelineOverrideBrandBypassesMatch(t *testing.T) {
	fb := &fakeBackend{response: unusedTicket("OtherBrand")}

	result := NewPipeline(fb, "Down", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeValid, result.Outcome)
	_, checkIn := fb.calls()
	assert.Equal(t, 1, checkIn)
}

func TestPipelineMissingEventDetailsIsUnauthorized(t *testing.T) {
	fb := &fakeBackend{response: &models.VerifyResponse{}}

	result := NewPipeline(fb, "Acme", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeUnauthorized, result.Outcome)
	_, checkIn := fb.calls()
	assert.Zero(t, checkIn)
}

func TestPipelineVerifyFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"server message", &backend.APIError{Status: http.StatusNotFound, Message: "Token not found"}, "Token not found"},
		{"no server message", &backend.APIError{Status: http.StatusInternalServerError}, msgInvalidTicket},
		{"transport error", errors.New("connection refused"), msgInvalidTicket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{verifyErr: tt.err}

			result := NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")

			assert.Equal(t, models.OutcomeInvalid, result.Outcome)
			assert.Equal(t, tt.message, result.Message)
			assert.Nil(t, result.Event)
			_, checkIn := fb.calls()
			assert.Zero(t, checkIn)
		})
	}
}

func TestPipelineCommitFailure(t *testing.T) {
	fb := &fakeBackend{
		response:   unusedTicket("Roman"),
		checkInErr: &backend.APIError{Status: http.StatusConflict, Message: "Ticket already deleted"},
	}

	result := NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeInvalid, result.Outcome)
	assert.Equal(t, "Ticket already deleted", result.Message)

	fb.checkInErr = errors.New("timeout")
	result = NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")
	assert.Equal(t, msgCheckInFailed, result.Message)
}

func TestPipelineRecoversPanic(t *testing.T) {
	fb := &fakeBackend{verifyPanics: true}

	result := NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")

	assert.Equal(t, models.OutcomeInvalid, result.Outcome)
}

func TestAuthorized(t *testing.T) {
	p := NewPipeline(&fakeBackend{}, "Acme", defaultOverrides, nil)
	assert.True(t, p.Authorized("Acme"))
	assert.False(t, p.Authorized("Roman"))
	assert.False(t, p.Authorized(""))

	p = NewPipeline(&fakeBackend{}, "Roman", defaultOverrides, nil)
	assert.True(t, p.Authorized("Anything"))
}

func TestPipelinePanicEndsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	fb := &fakeBackend{verifyPanics: true}
	result := NewPipeline(fb, "Roman", defaultOverrides, nil).Run(context.Background(), "ABC123")
	assert.Equal(t, models.OutcomeInvalid, result.Outcome)

	var ended []string
	for _, span := range recorder.Ended() {
		ended = append(ended, span.Name())
	}
	assert.ElementsMatch(t, []string{"validation.verify", "validation.run"}, ended)
	assert.Len(t, recorder.Started(), len(recorder.Ended()), "every started span is ended")
}
