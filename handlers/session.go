package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"ticketgate/logger"
	"ticketgate/models"
	"ticketgate/scanner"
	"ticketgate/session"
	"ticketgate/validation"
)

const signInPage = `<!doctype html>
<html>
<head><title>ticketgate sign in</title></head>
<body>
<h1>Sign in</h1>
<form method="post" action="/api/v1/session">
<label>Brand <input name="brand" required autofocus></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`

type SessionHandler struct {
	store    session.Store
	stations *validation.Stations
	scanner  *scanner.Scanner // nil without a camera
	log      *logger.Logger
}

func NewSessionHandler(store session.Store, stations *validation.Stations, sc *scanner.Scanner, log *logger.Logger) *SessionHandler {
	return &SessionHandler{store: store, stations: stations, scanner: sc, log: log}
}

// SignInPage is where RequireSession sends browsers without a session.
func (h *SessionHandler) SignInPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(signInPage))
}

func (h *SessionHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Brand is required"})
		return
	}

	if err := h.store.SignIn(c, req.Brand); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	brand, err := h.store.Brand(c)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read session"})
		return
	}
	h.stations.For(brand)
	h.log.Info("Operator signed in", zap.String("brand", brand))

	if c.ContentType() == binding.MIMEPOSTForm {
		c.Redirect(http.StatusSeeOther, "/api/v1/validator")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Signed in",
		"session": models.OperatorSession{Brand: brand},
	})
}

func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.store.SignOut(c); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to sign out"})
		return
	}
	// A camera left running would consume the next scan with nobody to validate it.
	if h.scanner != nil {
		h.scanner.Stop()
	}
	h.stations.Drop()
	h.log.Info("Operator signed out")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Signed out"})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	brand, err := h.store.Brand(c)
	if errors.Is(err, session.ErrNoSession) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No operator signed in"})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": models.OperatorSession{Brand: brand}})
}
