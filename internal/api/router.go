package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alert-dispatch-service/internal/logging"
)

func NewRouter(h *Handler, basePath string, logger *logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(basePath)
	{
		// Pipeline triggers
		api.POST("/alerts/consolidate", h.Consolidate)
		api.POST("/messages/process", h.ProcessPending)
		api.POST("/messages/:id/send", h.SendMessage)

		// Message audit trail
		api.GET("/messages", h.ListMessages)
		api.GET("/messages/:id", h.GetMessage)

		// Contact directory
		api.GET("/contacts", h.ListContacts)
		api.POST("/contacts", h.CreateContact)
		api.PUT("/contacts/:id", h.UpdateContact)
		api.DELETE("/contacts/:id", h.DeleteContact)
	}

	r.GET("/ws", h.Websocket)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
