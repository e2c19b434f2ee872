package scanner

import (
	"context"
	"errors"
	"io/fs"
	"sync"

	"go.uber.org/zap"

	"ticketgate/logger"
	"ticketgate/models"
)

var (
	// ErrNoSymbol means the frame held nothing readable. It is not an error
	// for the scan session; scanning continues.
	ErrNoSymbol         = errors.New("no symbol found in frame")
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNotRunning       = errors.New("camera is not running")
	ErrInUse            = errors.New("camera is already in use")
	ErrClosed           = errors.New("scanner is closed")
)

const (
	MsgPermissionDenied = "Camera permission denied. Please allow camera access and try again."
	MsgStartFailed      = "Failed to start camera. Please try again or enter the code manually."
	MsgCameraError      = "Camera error. Scanning stopped; please try again."
)

// Device is a camera that decodes frames continuously until stopped.
//
// onFrame is called once per frame with the decoded text, or with an error
// (ErrNoSymbol when the frame held no code). Stop releases the camera. It must
// be safe to call from inside onFrame and must not wait for onFrame to return.
type Device interface {
	Start(ctx context.Context, onFrame func(text string, err error)) error
	Stop() error
}

// State is the scan session state.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting-device"
	StateScanning   State = "scanning"
)

// Status is what the operator sees about the scanner.
type Status struct {
	State    State  `json:"state"`
	Message  string `json:"message,omitempty"`
	LastCode string `json:"last_code,omitempty"`
}

// Scanner owns the camera for one scan session at a time. Every exit path
// (decode, error, Stop, Close) releases the device.
type Scanner struct {
	device   Device
	onDecode func(code string)
	log      *logger.Logger

	mu       sync.Mutex
	state    State
	message  string
	lastCode string
	session  uint64
	open     bool
	closed   bool
}

// New builds a scanner. onDecode runs on its own goroutine, once per
// successful scan session.
func New(device Device, onDecode func(code string), log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{
		device:   device,
		onDecode: onDecode,
		log:      log,
		state:    StateIdle,
	}
}

// Start requests the camera and begins decoding. Starting an active scanner
// is a no-op.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.session++
	id := s.session
	s.state = StateRequesting
	s.message = ""
	s.mu.Unlock()

	err := s.device.Start(context.WithoutCancel(ctx), func(text string, err error) {
		s.handleFrame(id, text, err)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.session == id {
			s.state = StateIdle
			s.message = startMessage(err)
		}
		s.log.Warn("Camera start failed", zap.Error(err))
		return err
	}
	if s.session != id {
		// Stopped or closed while the device was being acquired.
		s.stopDevice()
		return nil
	}
	s.open = true
	s.state = StateScanning
	s.log.Debug("Camera scanning started")
	return nil
}

// Stop ends the current scan session. It is safe to call at any time.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session++
	s.release()
	s.state = StateIdle
}

// Close stops the scanner for good.
func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.session++
	s.release()
	s.state = StateIdle
	return nil
}

// Status returns the current scanner status.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Message: s.message, LastCode: s.lastCode}
}

func (s *Scanner) handleFrame(id uint64, text string, err error) {
	s.mu.Lock()
	if id != s.session || s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	if err != nil {
		if errors.Is(err, ErrNoSymbol) {
			s.mu.Unlock()
			return
		}
		s.session++
		s.release()
		s.state = StateIdle
		s.message = frameMessage(err)
		s.mu.Unlock()
		s.log.Warn("Camera stopped on error", zap.Error(err))
		return
	}

	// One-shot: the device is released before anyone sees the code.
	s.session++
	s.release()
	s.state = StateIdle
	code := models.NormalizeCode(text)
	s.lastCode = code
	s.mu.Unlock()

	s.log.Info("Ticket code decoded", zap.String("code", code))
	if s.onDecode != nil {
		go s.onDecode(code)
	}
}

// release stops the device if this scanner opened it. Callers hold s.mu.
func (s *Scanner) release() {
	if !s.open {
		return
	}
	s.open = false
	s.stopDevice()
}

func (s *Scanner) stopDevice() {
	if err := s.device.Stop(); err != nil {
		s.log.Warn("Failed to release camera", zap.Error(err))
	}
}

func startMessage(err error) string {
	if isPermissionError(err) {
		return MsgPermissionDenied
	}
	return MsgStartFailed
}

func frameMessage(err error) string {
	if isPermissionError(err) {
		return MsgPermissionDenied
	}
	return MsgCameraError
}

func isPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, fs.ErrPermission)
}
