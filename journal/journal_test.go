package journal

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/models"
)

func attempt(code string, outcome models.Outcome) models.Attempt {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return models.Attempt{
		ID:         uuid.New(),
		Code:       code,
		Outcome:    outcome,
		Message:    "msg " + code,
		Brand:      "Roman",
		StartedAt:  now,
		FinishedAt: now,
	}
}

func TestMemoryJournalNewestFirst(t *testing.T) {
	j := NewMemoryJournal(3)

	recent, err := j.Recent(t.Context(), "Roman", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Record(t.Context(), attempt(fmt.Sprintf("T%d", i), models.OutcomeValid)))
	}

	recent, err = j.Recent(t.Context(), "Roman", 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "T5", recent[0].Code)
	assert.Equal(t, "T4", recent[1].Code)
	assert.Equal(t, "T3", recent[2].Code)

	recent, err = j.Recent(t.Context(), "Roman", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "T5", recent[0].Code)
}

func TestMemoryJournalScopedToBrand(t *testing.T) {
	j := NewMemoryJournal(10)

	roman := attempt("R1", models.OutcomeValid)
	other := attempt("A1", models.OutcomeUsed)
	other.Brand = "Acme"
	require.NoError(t, j.Record(t.Context(), roman))
	require.NoError(t, j.Record(t.Context(), other))
	require.NoError(t, j.Record(t.Context(), attempt("R2", models.OutcomeInvalid)))

	recent, err := j.Recent(t.Context(), "Roman", 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "R2", recent[0].Code)
	assert.Equal(t, "R1", recent[1].Code)

	recent, err = j.Recent(t.Context(), "Acme", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "A1", recent[0].Code)

	recent, err = j.Recent(t.Context(), "Nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestMemoryJournalDefaultSize(t *testing.T) {
	j := NewMemoryJournal(0)
	assert.Len(t, j.buf, DefaultSize)
	assert.NoError(t, j.Close())
}

func TestPostgresJournal(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	j, err := OpenPostgres(t.Context(), dbURL)
	require.NoError(t, err)
	defer j.Close()

	a := attempt("PG-"+uuid.NewString()[:8], models.OutcomeUsed)
	a.EventName = "Launch Night"
	require.NoError(t, j.Record(t.Context(), a))

	foreign := attempt("PG-"+uuid.NewString()[:8], models.OutcomeValid)
	foreign.Brand = "Acme-" + uuid.NewString()[:8]
	require.NoError(t, j.Record(t.Context(), foreign))

	recent, err := j.Recent(t.Context(), "Roman", 50)
	require.NoError(t, err)

	var found *models.Attempt
	for i := range recent {
		assert.Equal(t, "Roman", recent[i].Brand)
		if recent[i].ID == a.ID {
			found = &recent[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, a.Code, found.Code)
	assert.Equal(t, models.OutcomeUsed, found.Outcome)
	assert.Equal(t, "Launch Night", found.EventName)
	assert.True(t, a.FinishedAt.Equal(found.FinishedAt))
}
