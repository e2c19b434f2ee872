package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Frame is one captured picture, or a capture error.
type Frame struct {
	Image image.Image
	Err   error
}

// FrameSource is the capture side of a camera: a stream of frames that stays
// open until Close.
type FrameSource interface {
	Open(ctx context.Context) (<-chan Frame, error)
	Close() error
}

// ZXingDevice decodes QR codes and Code 128 barcodes from a FrameSource.
type ZXingDevice struct {
	source  FrameSource
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

func NewZXingDevice(source FrameSource) *ZXingDevice {
	return &ZXingDevice{
		source: source,
		readers: []gozxing.Reader{
			qrcode.NewQRCodeReader(),
			oned.NewCode128Reader(),
		},
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *ZXingDevice) Start(ctx context.Context, onFrame func(text string, err error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrInUse
	}

	frames, err := d.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	go d.loop(loopCtx, frames, onFrame)
	return nil
}

// Stop cancels decoding and closes the frame source. It does not wait for an
// in-progress frame callback.
func (d *ZXingDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	d.cancel()
	return d.source.Close()
}

func (d *ZXingDevice) loop(ctx context.Context, frames <-chan Frame, onFrame func(string, error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				if ctx.Err() == nil {
					onFrame("", ErrNotRunning)
				}
				return
			}
			var text string
			err := frame.Err
			if err == nil {
				text, err = d.Decode(frame.Image)
			}
			if ctx.Err() != nil {
				return
			}
			onFrame(text, err)
		}
	}
}

// Decode reads one symbol from img. Frames where a symbol is missing, or seen
// but unreadable, return ErrNoSymbol.
func (d *ZXingDevice) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSymbol, err)
	}

	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		reader.Reset()
		if err == nil {
			return result.GetText(), nil
		}
		if !isFrameNoise(err) {
			return "", err
		}
	}
	return "", ErrNoSymbol
}

func isFrameNoise(err error) bool {
	var notFound gozxing.NotFoundException
	var checksum gozxing.ChecksumException
	var format gozxing.FormatException
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}
