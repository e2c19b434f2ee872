package console

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"ticketgate/models"
	"ticketgate/scanner"
	"ticketgate/validation"
)

const statusInterval = 250 * time.Millisecond

// DecodedMsg carries a code read by the camera into the program.
type DecodedMsg struct {
	Code string
}

type resultMsg struct {
	result *models.ValidationResult
	err    error
}

type scannerStartedMsg struct {
	err error
}

type statusTickMsg struct{}

// Model is the bubbletea model for one operator station. It shows either the
// code entry view or the result card, mirroring the station's phase.
type Model struct {
	station *validation.Station
	scanner *scanner.Scanner // nil without a camera
	keys    KeyMap

	input  textinput.Model
	busy   bool
	result *models.ValidationResult
	notice string
	status scanner.Status

	width  int
	height int
}

func NewModel(station *validation.Station, sc *scanner.Scanner) Model {
	input := textinput.New()
	input.Placeholder = "Ticket code"
	input.Prompt = "> "
	input.CharLimit = 128
	input.Focus()

	model := Model{
		station: station,
		scanner: sc,
		keys:    DefaultKeyMap,
		input:   input,
	}
	if sc != nil {
		model.status = sc.Status()
	}
	return model
}

func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, model.tickStatus())
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if key.Matches(message, model.keys.Quit) {
			if model.scanner != nil {
				model.scanner.Stop()
			}
			return model, tea.Quit
		}
		if model.result != nil {
			return model.handlePresentingKeys(message)
		}
		return model.handleAcquiringKeys(message)

	case DecodedMsg:
		if model.result != nil || model.busy {
			return model, nil
		}
		model.input.SetValue(models.NormalizeCode(message.Code))
		model.input.CursorEnd()
		return model, model.submit()

	case resultMsg:
		model.busy = false
		if message.err != nil {
			model.notice = noticeFor(message.err)
			return model, nil
		}
		model.result = message.result
		model.notice = ""
		model.input.Blur()
		return model, nil

	case scannerStartedMsg:
		model.refreshStatus()
		return model, nil

	case statusTickMsg:
		model.refreshStatus()
		return model, model.tickStatus()

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		return model, nil
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	return model, command
}

func (model Model) handleAcquiringKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Submit):
		if model.busy {
			return model, nil
		}
		return model, model.submit()

	case key.Matches(message, model.keys.ToggleScanner):
		return model, model.toggleScanner()
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	model.input.SetValue(models.NormalizeCode(model.input.Value()))
	model.station.SetCode(model.input.Value())
	return model, command
}

func (model Model) handlePresentingKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(message, model.keys.Next) {
		return model, nil
	}
	model.station.Reset()
	model.result = nil
	model.notice = ""
	model.input.Reset()
	return model, model.input.Focus()
}

// submit marks the model busy and runs the validation off the event loop.
func (model *Model) submit() tea.Cmd {
	model.busy = true
	model.notice = ""
	station := model.station
	code := model.input.Value()
	return func() tea.Msg {
		result, err := station.SubmitCode(context.Background(), code)
		return resultMsg{result: result, err: err}
	}
}

func (model *Model) toggleScanner() tea.Cmd {
	if model.scanner == nil {
		model.notice = "No camera configured. Enter the code manually."
		return nil
	}
	if model.scanner.Status().State != scanner.StateIdle {
		model.scanner.Stop()
		model.refreshStatus()
		return nil
	}
	sc := model.scanner
	model.status.State = scanner.StateRequesting
	return func() tea.Msg {
		return scannerStartedMsg{err: sc.Start(context.Background())}
	}
}

func (model *Model) refreshStatus() {
	if model.scanner != nil {
		model.status = model.scanner.Status()
	}
}

func (model Model) tickStatus() tea.Cmd {
	if model.scanner == nil {
		return nil
	}
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, validation.ErrEmptyCode):
		return "Enter a ticket code first."
	case errors.Is(err, validation.ErrBusy):
		return "Still checking the previous ticket."
	default:
		return err.Error()
	}
}
