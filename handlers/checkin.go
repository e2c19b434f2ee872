package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticketgate/journal"
	"ticketgate/logger"
	"ticketgate/models"
	"ticketgate/session"
	"ticketgate/validation"
)

const maxHistory = 500

// CheckinHandler serves the station of the signed-in operator, which
// RequireSession puts on the context.
type CheckinHandler struct {
	journal journal.Journal
}

func NewCheckinHandler(j journal.Journal) *CheckinHandler {
	return &CheckinHandler{journal: j}
}

func (h *CheckinHandler) GetValidator(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "validator": stationFrom(c).Snapshot()})
}

func (h *CheckinHandler) SetCode(c *gin.Context) {
	var req models.SetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Code is required"})
		return
	}
	code := stationFrom(c).SetCode(req.Code)
	c.JSON(http.StatusOK, gin.H{"success": true, "code": code})
}

// Submit validates the current code, or the code in the body when one is sent.
func (h *CheckinHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
			return
		}
	}

	// A started check-in runs to completion even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	station := stationFrom(c)

	var (
		result *models.ValidationResult
		err    error
	)
	if req.Code != "" {
		result, err = station.SubmitCode(ctx, req.Code)
	} else {
		result, err = station.Submit(ctx)
	}
	if err != nil {
		c.JSON(submitStatus(err), gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *CheckinHandler) Reset(c *gin.Context) {
	station := stationFrom(c)
	station.Reset()
	c.JSON(http.StatusOK, gin.H{"success": true, "validator": station.Snapshot()})
}

func (h *CheckinHandler) GetHistory(c *gin.Context) {
	limit := journal.DefaultSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistory)
	}

	attempts, err := h.journal.Recent(c, stationFrom(c).Brand(), limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load history"})
		return
	}
	if attempts == nil {
		attempts = []models.Attempt{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attempts": attempts})
}

// DecodeHandler feeds camera decodes into the signed-in operator's station.
func DecodeHandler(store session.Store, stations *validation.Stations, log *logger.Logger) func(code string) {
	if log == nil {
		log = logger.Nop()
	}
	return func(code string) {
		ctx := context.Background()
		brand, err := store.Brand(ctx)
		if err != nil {
			log.Warn("Dropping decoded code without a session", zap.Error(err))
			return
		}

		result, err := stations.For(brand).SubmitCode(ctx, code)
		if err != nil {
			log.Info("Decoded code rejected", zap.String("code", code), zap.Error(err))
			return
		}
		log.Debug("Decoded code validated", zap.String("code", code), zap.String("outcome", string(result.Outcome)))
	}
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, validation.ErrEmptyCode):
		return http.StatusBadRequest
	case errors.Is(err, validation.ErrBusy), errors.Is(err, validation.ErrResultPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
