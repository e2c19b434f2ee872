package console

import (
	tea "github.com/charmbracelet/bubbletea"

	"ticketgate/logger"
	"ticketgate/scanner"
	"ticketgate/validation"
)

// Run drives the console until the operator quits. device may be nil when the
// station has no camera. The scanner is always stopped on the way out.
func Run(station *validation.Station, device scanner.Device, log *logger.Logger) error {
	var program *tea.Program

	var sc *scanner.Scanner
	if device != nil {
		sc = scanner.New(device, func(code string) {
			program.Send(DecodedMsg{Code: code})
		}, log)
		defer sc.Close()
	}

	program = tea.NewProgram(NewModel(station, sc), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
