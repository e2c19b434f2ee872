package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"ticketgate/models"
	"ticketgate/telemetry"
)

// maxErrorBody caps how much of a failed response we read looking for a message.
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the ticketing backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// ServerMessage returns the message the backend put in a failed response, if any.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// Config holds the endpoints of the remote ticketing API
type Config struct {
	BaseURL     string
	VerifyPath  string
	CheckInPath string
	Timeout     time.Duration
	Token       string
}

// Client calls the verify and check-in endpoints. Each call is a single
// attempt; nothing is retried.
type Client struct {
	config Config
	http   *http.Client
}

func NewClient(config Config) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &Client{
		config: config,
		http: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Verify exchanges a ticket code for event/attendee metadata and the used flag.
func (c *Client) Verify(ctx context.Context, code string) (*models.VerifyResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "backend.verify", attribute.String("ticket.code", code))
	var out models.VerifyResponse
	err := c.do(ctx, http.MethodPost, c.config.VerifyPath, code, &out)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckIn marks the ticket as used by deleting it on the backend.
func (c *Client) CheckIn(ctx context.Context, code string) error {
	ctx, span := telemetry.StartSpan(ctx, "backend.checkin", attribute.String("ticket.code", code))
	err := c.do(ctx, http.MethodDelete, c.config.CheckInPath, code, nil)
	telemetry.EndSpan(span, err)
	return err
}

func (c *Client) do(ctx context.Context, method, path, code string, out interface{}) error {
	body, err := json.Marshal(models.TokenRequest{Token: code})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
