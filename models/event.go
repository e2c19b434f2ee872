package models

// EventDetails is the read-only projection of ticket/event state returned by the
// verification endpoint. It is replaced on every attempt.
type EventDetails struct {
	EventName   string `json:"eventName"`
	Address     string `json:"address"`
	Date        string `json:"date"`
	Brand       string `json:"brand"`
	Name        string `json:"name,omitempty"` // attendee display name
	TicketType  string `json:"ticketType,omitempty"`
	CheckedInAt string `json:"checkedInAt,omitempty"`
}

// Attendee is the optional attendee profile carried by a verify response.
type Attendee struct {
	Name string `json:"name"`
}

// VerifyResponse is the body of a successful verify call.
type VerifyResponse struct {
	Message      string        `json:"message"`
	Used         bool          `json:"used"`
	EventDetails *EventDetails `json:"eventDetails"`
	User         *Attendee     `json:"user,omitempty"`
}

// Details returns a copy of the event details with the attendee name merged in.
func (r *VerifyResponse) Details() *EventDetails {
	details := &EventDetails{}
	if r.EventDetails != nil {
		*details = *r.EventDetails
	}
	if r.User != nil && r.User.Name != "" {
		details.Name = r.User.Name
	}
	return details
}

// TokenRequest is sent to both the verify and the check-in endpoints.
type TokenRequest struct {
	Token string `json:"token"`
}
