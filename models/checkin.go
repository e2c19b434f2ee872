package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome is the variant tag of a ValidationResult.
type Outcome string

const (
	OutcomeValid        Outcome = "valid"
	OutcomeUsed         Outcome = "used"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeUnauthorized Outcome = "unauthorized"
)

// ValidationResult is the terminal state of one validation attempt. Event is nil
// for OutcomeInvalid and set for every other outcome.
type ValidationResult struct {
	Outcome Outcome       `json:"outcome"`
	Message string        `json:"message"`
	Event   *EventDetails `json:"eventDetails,omitempty"`
}

func Valid(details *EventDetails) *ValidationResult {
	return &ValidationResult{Outcome: OutcomeValid, Message: "Ticket is valid. Entry granted.", Event: details}
}

func Used(details *EventDetails) *ValidationResult {
	return &ValidationResult{Outcome: OutcomeUsed, Message: "This ticket has already been used.", Event: details}
}

func Invalid(message string) *ValidationResult {
	return &ValidationResult{Outcome: OutcomeInvalid, Message: message}
}

func Unauthorized(details *EventDetails) *ValidationResult {
	return &ValidationResult{
		Outcome: OutcomeUnauthorized,
		Message: "You are not authorized to check in tickets for this event.",
		Event:   details,
	}
}

// NormalizeCode uppercases a typed or decoded ticket code. No other validation is applied.
func NormalizeCode(code string) string {
	return strings.ToUpper(code)
}

// Attempt is one journaled validation attempt.
type Attempt struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Code       string    `json:"code" db:"code"`
	Outcome    Outcome   `json:"outcome" db:"outcome"`
	Message    string    `json:"message" db:"message"`
	Brand      string    `json:"brand" db:"brand"`
	EventName  string    `json:"event_name,omitempty" db:"event_name"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

type SetCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

type SubmitRequest struct {
	Code string `json:"code"`
}
