package backend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:     server.URL,
		VerifyPath:  "/tickets/verify",
		CheckInPath: "/tickets",
		Timeout:     2 * time.Second,
		Token:       "secret",
	})
}

func TestVerify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tickets/verify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req models.TokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC123", req.Token)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"message": "ok",
			"used": true,
			"eventDetails": {"eventName": "Launch Night", "brand": "Roman", "checkedInAt": "2025-01-01T20:00:00Z"},
			"user": {"name": "Ada Lovelace"}
		}`))
	})

	resp, err := client.Verify(t.Context(), "ABC123")
	require.NoError(t, err)
	assert.True(t, resp.Used)
	require.NotNil(t, resp.EventDetails)
	assert.Equal(t, "Roman", resp.EventDetails.Brand)

	details := resp.Details()
	assert.Equal(t, "Ada Lovelace", details.Name)
	assert.Equal(t, "Launch Night", details.EventName)
	assert.Equal(t, "2025-01-01T20:00:00Z", details.CheckedInAt)
}

func TestVerifyServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Token not found"}`))
	})

	_, err := client.Verify(t.Context(), "NOPE")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Token not found", ServerMessage(err))
}

func TestVerifyErrorFieldFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "malformed token"}`))
	})

	_, err := client.Verify(t.Context(), "X")
	assert.Equal(t, "malformed token", ServerMessage(err))
}

func TestVerifyNonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := client.Verify(t.Context(), "X")
	require.Error(t, err)
	assert.Empty(t, ServerMessage(err))
}

func TestVerifyIsSingleAttempt(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Verify(t.Context(), "X")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCheckIn(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/tickets", r.URL.Path)

		var req models.TokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC123", req.Token)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CheckIn(t.Context(), "ABC123"))
}

func TestCheckInFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message": "already deleted"}`))
	})

	err := client.CheckIn(t.Context(), "ABC123")
	assert.Equal(t, "already deleted", ServerMessage(err))
}

func TestServerMessageNonAPIError(t *testing.T) {
	assert.Empty(t, ServerMessage(assert.AnError))
	assert.Empty(t, ServerMessage(nil))
}
