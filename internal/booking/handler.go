package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{
		engine: engine,
	}
}

func actorFrom(c *gin.Context) (Actor, bool) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: userID, Staff: auth.IsStaff(c)}, true
}

// BookSession godoc
// @Summary      Book a session
// @Description  Books a seat, or joins the waitlist when the session is full. Repeating the request returns the existing booking.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Session ID"
// @Param        request body booking.BookRequest false "Booking source"
// @Success      201 {object} booking.Booking
// @Failure      402 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /sessions/{id}/book [post]
func (h *Handler) BookSession(c *gin.Context) {
	tenantID, userID, ok := api.Scope(c)
	if !ok {
		return
	}

	sessionID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	var req BookRequest
	if !api.BindOptionalJSON(c, &req) {
		return
	}

	b, err := h.engine.Book(c.Request.Context(), tenantID, sessionID, userID, req.Source)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, b)
}

// CancelBooking godoc
// @Summary      Cancel a booking
// @Description  Members cancel their own bookings; staff may cancel any. The freed seat goes to the waitlist.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Booking ID"
// @Success      200 {object} booking.Booking
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	bookingID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	b, err := h.engine.Cancel(c.Request.Context(), tenantID, bookingID, actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// @Summary      Get a booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Booking ID"
// @Success      200 {object} booking.Booking
// @Failure      404 {object} api.ErrorResponse
// @Router       /bookings/{id} [get]
func (h *Handler) GetBooking(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	bookingID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	b, err := h.engine.GetBooking(c.Request.Context(), tenantID, bookingID, actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// @Summary      List my bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Success      200 {array} booking.Booking
// @Router       /me/bookings [get]
func (h *Handler) ListMyBookings(c *gin.Context) {
	tenantID, userID, ok := api.Scope(c)
	if !ok {
		return
	}

	bookings, err := h.engine.ListMyBookings(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if bookings == nil {
		bookings = []Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// @Summary      List bookings of a session
// @Tags         staff,bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Session ID"
// @Success      200 {array} booking.Booking
// @Router       /staff/sessions/{id}/bookings [get]
func (h *Handler) ListSessionBookings(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	sessionID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.engine.ListSessionBookings(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if bookings == nil {
		bookings = []Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

// @Summary      Promote from the waitlist
// @Description  Staff-only: fill a free seat from the head of the waitlist
// @Tags         staff,bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Session ID"
// @Success      200 {object} booking.Booking
// @Success      204
// @Failure      404 {object} api.ErrorResponse
// @Router       /staff/sessions/{id}/promote [post]
func (h *Handler) PromoteWaitlist(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	sessionID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	b, err := h.engine.Promote(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if b == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, b)
}

// @Summary      Check in a booking
// @Tags         staff,bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Booking ID"
// @Param        request body booking.CheckInRequest false "Check-in method"
// @Success      201 {object} booking.Checkin
// @Failure      409 {object} api.ErrorResponse
// @Router       /staff/bookings/{id}/checkin [post]
func (h *Handler) CheckIn(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	bookingID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	var req CheckInRequest
	if !api.BindOptionalJSON(c, &req) {
		return
	}

	checkin, err := h.engine.CheckIn(c.Request.Context(), tenantID, bookingID, req.Method, actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkin)
}

// @Summary      Undo a check-in
// @Tags         staff,bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Booking ID"
// @Success      200 {object} booking.Booking
// @Failure      409 {object} api.ErrorResponse
// @Router       /staff/bookings/{id}/checkin [delete]
func (h *Handler) UndoCheckIn(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	bookingID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	b, err := h.engine.UndoCheckIn(c.Request.Context(), tenantID, bookingID, actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// @Summary      Mark a no-show
// @Tags         staff,bookings
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Booking ID"
// @Success      200 {object} booking.Booking
// @Failure      409 {object} api.ErrorResponse
// @Router       /staff/bookings/{id}/no-show [post]
func (h *Handler) MarkNoShow(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}
	actor, _ := actorFrom(c)

	bookingID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	b, err := h.engine.MarkNoShow(c.Request.Context(), tenantID, bookingID, actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}
