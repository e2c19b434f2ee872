package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ticketgate/scanner"
)

const maxFrameSize = 8 << 20

type ScannerHandler struct {
	scanner *scanner.Scanner
	push    *scanner.PushSource
}

// NewScannerHandler takes a nil scanner when the station has no camera, and a
// nil push source when frames come from somewhere other than HTTP.
func NewScannerHandler(s *scanner.Scanner, push *scanner.PushSource) *ScannerHandler {
	return &ScannerHandler{scanner: s, push: push}
}

func (h *ScannerHandler) Start(c *gin.Context) {
	if !h.available(c) {
		return
	}
	if err := h.scanner.Start(c); err != nil {
		c.Error(err)
		status := http.StatusServiceUnavailable
		if errors.Is(err, scanner.ErrPermissionDenied) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"success": false, "message": h.scanner.Status().Message, "scanner": h.scanner.Status()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "scanner": h.scanner.Status()})
}

func (h *ScannerHandler) Stop(c *gin.Context) {
	if !h.available(c) {
		return
	}
	h.scanner.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "scanner": h.scanner.Status()})
}

func (h *ScannerHandler) GetStatus(c *gin.Context) {
	if !h.available(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "scanner": h.scanner.Status()})
}

// PushFrame accepts a multipart "frame" field or a raw PNG/JPEG body.
func (h *ScannerHandler) PushFrame(c *gin.Context) {
	if !h.available(c) {
		return
	}
	if h.push == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Camera does not accept pushed frames"})
		return
	}
	if !h.push.Active() {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Scanner is not running"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxFrameSize)
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("frame")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing frame field"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unreadable frame"})
			return
		}
		defer f.Close()
		body = f
	}

	err := h.push.PushEncoded(body)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"success": true})
	case errors.Is(err, scanner.ErrNotRunning):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Scanner is not running"})
	case errors.Is(err, scanner.ErrFrameDropped):
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Decoder busy, frame dropped"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Frame must be a PNG or JPEG image"})
	}
}

func (h *ScannerHandler) available(c *gin.Context) bool {
	if h.scanner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "No camera configured. Enter the code manually."})
		return false
	}
	return true
}
