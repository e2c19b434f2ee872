package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrFrameDropped is returned by PushSource when the decoder is still busy
// with earlier frames.
var ErrFrameDropped = errors.New("frame dropped: decoder busy")

// PushSource receives frames from outside, e.g. a browser camera posting
// snapshots to the station's HTTP API.
type PushSource struct {
	buffer int

	mu     sync.Mutex
	frames chan Frame
}

func NewPushSource(buffer int) *PushSource {
	if buffer <= 0 {
		buffer = 1
	}
	return &PushSource{buffer: buffer}
}

func (p *PushSource) Open(ctx context.Context) (<-chan Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames != nil {
		return nil, ErrInUse
	}
	p.frames = make(chan Frame, p.buffer)
	return p.frames, nil
}

func (p *PushSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames != nil {
		close(p.frames)
		p.frames = nil
	}
	return nil
}

// Push hands one frame to the decoder without blocking.
func (p *PushSource) Push(img image.Image) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frames == nil {
		return ErrNotRunning
	}
	select {
	case p.frames <- Frame{Image: img}:
		return nil
	default:
		return ErrFrameDropped
	}
}

// PushEncoded decodes a PNG or JPEG and pushes it.
func (p *PushSource) PushEncoded(r io.Reader) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return p.Push(img)
}

// Active reports whether a decoder currently holds the source open.
func (p *PushSource) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames != nil
}

// SpoolSource watches a directory where a camera daemon drops snapshots.
// Each readable image becomes a frame and is removed from the spool.
type SpoolSource struct {
	dir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewSpoolSource(dir string) *SpoolSource {
	return &SpoolSource{dir: dir}
}

func (s *SpoolSource) Open(ctx context.Context) (<-chan Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil, ErrInUse
	}

	if _, err := os.ReadDir(s.dir); err != nil {
		return nil, spoolError(err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, spoolError(err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	frames := make(chan Frame, 1)
	go s.watch(watcher, s.done, frames)
	return frames, nil
}

func (s *SpoolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *SpoolSource) watch(watcher *fsnotify.Watcher, done <-chan struct{}, frames chan<- Frame) {
	defer close(frames)
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			img, err := loadImage(event.Name)
			if err != nil {
				// Partially written snapshot; a later Write event retries it.
				continue
			}
			_ = os.Remove(event.Name)
			select {
			case frames <- Frame{Image: img}:
			case <-done:
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			select {
			case frames <- Frame{Err: err}:
			case <-done:
				return
			}
		}
	}
}

func spoolError(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
