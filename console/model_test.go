package console

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketgate/models"
	"ticketgate/scanner"
	"ticketgate/validation"
)

type fakeBackend struct {
	mu       sync.Mutex
	response *models.VerifyResponse
	verifies int
	checkIns int
}

func (f *fakeBackend) Verify(ctx context.Context, code string) (*models.VerifyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	return f.response, nil
}

func (f *fakeBackend) CheckIn(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns++
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	running bool
}

func (d *fakeDevice) Start(ctx context.Context, onFrame func(string, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	return nil
}

func validTicket() *models.VerifyResponse {
	return &models.VerifyResponse{
		EventDetails: &models.EventDetails{EventName: "Launch Night", Brand: "Roman", TicketType: "VIP"},
		User:         &models.Attendee{Name: "Ada Lovelace"},
	}
}

func testModel(fb *fakeBackend, sc *scanner.Scanner) Model {
	p := validation.NewPipeline(fb, "Roman", nil, nil)
	return NewModel(validation.NewStation(p, "Roman", nil, nil), sc)
}

func typeText(t *testing.T, model Model, text string) Model {
	t.Helper()
	for _, r := range text {
		updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		model = updated.(Model)
	}
	return model
}

// press sends a key and runs the resulting command once, feeding its message back.
func press(t *testing.T, model Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, command := model.Update(msg)
	model = updated.(Model)
	if command == nil {
		return model
	}
	if result, ok := command().(resultMsg); ok {
		updated, _ = model.Update(result)
		model = updated.(Model)
	}
	return model
}

func TestTypingUppercases(t *testing.T) {
	model := testModel(&fakeBackend{}, nil)
	model = typeText(t, model, "abc1")

	assert.Equal(t, "ABC1", model.input.Value())
	assert.Equal(t, "ABC1", model.station.Snapshot().Code)
}

func TestSubmitShowsResultCard(t *testing.T) {
	fb := &fakeBackend{response: validTicket()}
	model := testModel(fb, nil)
	model = typeText(t, model, "abc123")

	updated, command := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	require.NotNil(t, command)
	assert.True(t, model.busy)

	// A second enter while busy is dropped.
	updated, again := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	assert.Nil(t, again)

	updated, _ = model.Update(command())
	model = updated.(Model)
	assert.False(t, model.busy)
	require.NotNil(t, model.result)
	assert.Equal(t, models.OutcomeValid, model.result.Outcome)
	assert.Equal(t, 1, fb.verifies)
	assert.Equal(t, 1, fb.checkIns)

	view := model.View()
	assert.Contains(t, view, "VALID")
	assert.Contains(t, view, "Ticket is valid. Entry granted.")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Contains(t, view, "Launch Night")
	assert.Contains(t, view, "enter/n: scan next ticket")
}

func TestPresentingIgnoresOtherKeys(t *testing.T) {
	model := testModel(&fakeBackend{response: validTicket()}, nil)
	model = typeText(t, model, "abc")
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, model.result)

	model = typeText(t, model, "xyz")
	assert.NotNil(t, model.result)
	assert.Equal(t, "ABC", model.input.Value())

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	model = updated.(Model)
	assert.Nil(t, model.result)
	assert.Empty(t, model.input.Value())
	assert.Equal(t, validation.PhaseAcquiring, model.station.Snapshot().Phase)
}

func TestSubmitEmptyShowsNotice(t *testing.T) {
	fb := &fakeBackend{}
	model := testModel(fb, nil)

	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, model.result)
	assert.False(t, model.busy)
	assert.Equal(t, "Enter a ticket code first.", model.notice)
	assert.Zero(t, fb.verifies)
}

func TestDecodedCodeSubmits(t *testing.T) {
	fb := &fakeBackend{response: validTicket()}
	model := testModel(fb, nil)

	updated, command := model.Update(DecodedMsg{Code: "qr-1"})
	model = updated.(Model)
	require.NotNil(t, command)
	assert.Equal(t, "QR-1", model.input.Value())

	updated, _ = model.Update(command())
	model = updated.(Model)
	require.NotNil(t, model.result)

	// Decodes while a result is shown are dropped.
	_, command = model.Update(DecodedMsg{Code: "qr-2"})
	assert.Nil(t, command)
	assert.Equal(t, 1, fb.verifies)
}

func TestToggleScanner(t *testing.T) {
	device := &fakeDevice{}
	sc := scanner.New(device, func(string) {}, nil)
	model := testModel(&fakeBackend{}, sc)

	updated, command := model.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	model = updated.(Model)
	require.NotNil(t, command)
	updated, _ = model.Update(command())
	model = updated.(Model)
	assert.Equal(t, scanner.StateScanning, model.status.State)
	assert.Contains(t, model.View(), "Camera: scanning")

	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	model = updated.(Model)
	assert.Equal(t, scanner.StateIdle, model.status.State)
	assert.False(t, device.running)
}

func TestToggleWithoutCamera(t *testing.T) {
	model := testModel(&fakeBackend{}, nil)
	updated, command := model.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	model = updated.(Model)
	assert.Nil(t, command)
	assert.Contains(t, model.notice, "No camera")
}

func TestQuitStopsScanner(t *testing.T) {
	device := &fakeDevice{}
	sc := scanner.New(device, func(string) {}, nil)
	require.NoError(t, sc.Start(context.Background()))
	model := testModel(&fakeBackend{}, sc)

	_, command := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, command)
	_, isQuit := command().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.False(t, device.running)
	assert.Equal(t, scanner.StateIdle, sc.Status().State)
}
