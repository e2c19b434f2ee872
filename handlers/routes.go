package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ticketgate/journal"
	"ticketgate/logger"
	"ticketgate/scanner"
	"ticketgate/session"
	"ticketgate/validation"
)

// Deps is everything the operator API talks to.
type Deps struct {
	Store          session.Store
	Stations       *validation.Stations
	Journal        journal.Journal
	Scanner        *scanner.Scanner    // nil without a camera
	Push           *scanner.PushSource // nil unless frames arrive over HTTP
	AllowedOrigins []string
	Log            *logger.Logger
}

// NewRouter builds the gin engine with every operator route.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}

	sessionHandler := NewSessionHandler(deps.Store, deps.Stations, deps.Scanner, deps.Log)
	checkinHandler := NewCheckinHandler(deps.Journal)
	scannerHandler := NewScannerHandler(deps.Scanner, deps.Push)

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(deps.Log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = deps.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	requireSession := RequireSession(deps.Store, deps.Stations)

	router.GET(SignInPath, sessionHandler.SignInPage)

	api := router.Group("/api/v1")
	{
		// Session routes
		api.POST("/session", sessionHandler.SignIn)
		api.DELETE("/session", sessionHandler.SignOut)
		api.GET("/session", sessionHandler.GetSession)

		// Validator routes
		validator := api.Group("/validator", requireSession)
		validator.GET("", checkinHandler.GetValidator)
		validator.PUT("/code", checkinHandler.SetCode)
		validator.POST("/submit", checkinHandler.Submit)
		validator.POST("/reset", checkinHandler.Reset)
		validator.GET("/history", checkinHandler.GetHistory)

		// Scanner routes. A decode needs a station to land in, so the camera
		// only runs for a signed-in operator.
		cam := api.Group("/scanner", requireSession)
		cam.POST("/start", scannerHandler.Start)
		cam.POST("/stop", scannerHandler.Stop)
		cam.GET("", scannerHandler.GetStatus)
		cam.POST("/frames", scannerHandler.PushFrame)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})

	return router
}
