package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alert-dispatch-service/internal/consolidator"
	"alert-dispatch-service/internal/db"
	"alert-dispatch-service/internal/delivery"
	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/models"
	"alert-dispatch-service/internal/ws"
)

type Handler struct {
	db            *db.DB
	consolidator  *consolidator.Consolidator
	worker        *delivery.Worker
	hub           *ws.Hub
	lookbackHours int
	logger        *logging.Logger
}

func NewHandler(database *db.DB, cons *consolidator.Consolidator, worker *delivery.Worker, hub *ws.Hub, lookbackHours int, logger *logging.Logger) *Handler {
	return &Handler{
		db:            database,
		consolidator:  cons,
		worker:        worker,
		hub:           hub,
		lookbackHours: lookbackHours,
		logger:        logger,
	}
}

type consolidateRequest struct {
	LookbackHours *int `json:"lookback_hours"`
}

// Consolidate triggers a consolidation run. The lookback window
// defaults to the configured value when the body omits it.
func (h *Handler) Consolidate(c *gin.Context) {
	var req consolidateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	hours := h.lookbackHours
	if req.LookbackHours != nil {
		hours = *req.LookbackHours
	}

	created, err := h.consolidator.Consolidate(c.Request.Context(), hours)
	if err != nil {
		if errors.Is(err, consolidator.ErrInvalidLookback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lookback_hours must not be negative"})
			return
		}
		h.logger.Errorf("Consolidation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Consolidation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages_created": created})
}

// ProcessPending drains the pending message queue.
func (h *Handler) ProcessPending(c *gin.Context) {
	succeeded, failed, err := h.worker.DrainPending(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Drain failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process pending messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"succeeded": succeeded, "failed": failed})
}

// SendMessage delivers one message regardless of its attempt count.
func (h *Handler) SendMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	sent, err := h.worker.SendOne(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		h.logger.Errorf("Send message %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func (h *Handler) ListMessages(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	messages, err := h.db.ListMessages(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Errorf("List messages failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message id"})
		return
	}

	m, err := h.db.GetMessage(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		h.logger.Errorf("Get message %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get message"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) ListContacts(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	contacts, err := h.db.ListContacts(c.Request.Context(), includeInactive)
	if err != nil {
		h.logger.Errorf("List contacts failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contacts"})
		return
	}
	c.JSON(http.StatusOK, contacts)
}

type contactRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required,email"`
	Phone         *string `json:"phone"`
	Role          *string `json:"role"`
	WantsCritical bool    `json:"wants_critical"`
	WantsAdvisory bool    `json:"wants_advisory"`
	WantsNormal   bool    `json:"wants_normal"`
	FarmID        *string `json:"farm_id"`
	SectorID      *int64  `json:"sector_id"`
	Priority      int     `json:"priority"`
	Active        *bool   `json:"active"`
}

func (req contactRequest) toModel() models.Contact {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return models.Contact{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Role:          req.Role,
		WantsCritical: req.WantsCritical,
		WantsAdvisory: req.WantsAdvisory,
		WantsNormal:   req.WantsNormal,
		FarmID:        req.FarmID,
		SectorID:      req.SectorID,
		Priority:      req.Priority,
		Active:        active,
	}
}

func (h *Handler) CreateContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	created, err := h.db.CreateContact(c.Request.Context(), req.toModel())
	if err != nil {
		h.logger.Errorf("Create contact failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}
	h.logger.Infof("Created contact %d (%s)", created.ID, created.Email)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateContact(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	contact := req.toModel()
	contact.ID = id
	if err := h.db.UpdateContact(c.Request.Context(), contact); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		h.logger.Errorf("Update contact %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *Handler) DeleteContact(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact id"})
		return
	}

	if err := h.db.DeleteContact(c.Request.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
			return
		}
		h.logger.Errorf("Delete contact %d failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Websocket upgrades the connection and registers it with the delivery
// event hub. The read loop only serves to detect disconnects.
func (h *Handler) Websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed: %v", err)
		return
	}
	h.hub.Add(conn)

	go func() {
		defer func() {
			h.hub.Remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
