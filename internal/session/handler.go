package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/api"
	"fitstudio/internal/tenant"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      Schedule a session
// @Description  Staff-only: create a class session with a fixed capacity
// @Tags         staff,sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        request body session.CreateRequest true "Session payload"
// @Success      201 {object} session.Session
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /staff/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	tenantID, userID, ok := api.Scope(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	sess, err := h.service.Create(c.Request.Context(), tenantID, &userID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

// @Summary      List sessions
// @Description  Upcoming sessions with availability. Pass all=true for past sessions too.
// @Tags         sessions
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        all query bool false "Include past sessions"
// @Success      200 {array} session.WithAvailability
// @Failure      400 {object} api.ErrorResponse
// @Router       /sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "studio is required"})
		return
	}

	upcoming := c.Query("all") != "true"
	sessions, err := h.service.List(c.Request.Context(), tenantID, upcoming)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if sessions == nil {
		sessions = []WithAvailability{}
	}
	c.JSON(http.StatusOK, sessions)
}

// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Session ID"
// @Success      200 {object} session.Session
// @Failure      404 {object} api.ErrorResponse
// @Router       /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	tenantID, ok := tenant.FromContext(c)
	if !ok {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "studio is required"})
		return
	}

	id, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	sess, err := h.service.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}
