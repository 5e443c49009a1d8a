package waitlist

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/api"
)

type Handler struct {
	queue *Queue
}

func NewHandler(queue *Queue) *Handler {
	return &Handler{
		queue: queue,
	}
}

// @Summary      My waitlist places
// @Description  Every session the caller is queued for, with the current rank
// @Tags         waitlist
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Success      200 {array} waitlist.Ranked
// @Router       /me/waitlist [get]
func (h *Handler) ListMine(c *gin.Context) {
	tenantID, userID, ok := api.Scope(c)
	if !ok {
		return
	}

	entries, err := h.queue.ListByUser(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if entries == nil {
		entries = []Ranked{}
	}
	c.JSON(http.StatusOK, entries)
}

// @Summary      Waitlist of a session
// @Tags         staff,waitlist
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Session ID"
// @Success      200 {array} waitlist.Ranked
// @Router       /staff/sessions/{id}/waitlist [get]
func (h *Handler) ListSession(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	sessionID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.queue.ListBySession(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if entries == nil {
		entries = []Ranked{}
	}
	c.JSON(http.StatusOK, entries)
}
