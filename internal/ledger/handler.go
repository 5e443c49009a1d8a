package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// subject is the user whose entitlements are read. Staff may name another
// member with ?user=.
func subject(c *gin.Context) (tenantID, userID uuid.UUID, ok bool) {
	tenantID, userID, ok = api.Scope(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	raw := c.Query("user")
	if raw == "" || !auth.IsStaff(c) {
		return tenantID, userID, true
	}

	other, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid user"})
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, other, true
}

// GetBalance godoc
// @Summary      Entitlement balance
// @Description  Remaining credits, next credit expiration and the active membership of the caller. Staff may pass ?user=.
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        user query string false "User ID (staff only)"
// @Success      200 {object} ledger.Balance
// @Router       /me/balance [get]
func (h *Handler) GetBalance(c *gin.Context) {
	tenantID, userID, ok := subject(c)
	if !ok {
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// @Summary      List credits
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        user query string false "User ID (staff only)"
// @Success      200 {array} ledger.Credit
// @Router       /me/credits [get]
func (h *Handler) ListCredits(c *gin.Context) {
	tenantID, userID, ok := subject(c)
	if !ok {
		return
	}

	credits, err := h.service.ListCredits(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if credits == nil {
		credits = []Credit{}
	}
	c.JSON(http.StatusOK, credits)
}

// @Summary      List memberships
// @Tags         entitlements
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        user query string false "User ID (staff only)"
// @Success      200 {array} ledger.Membership
// @Router       /me/memberships [get]
func (h *Handler) ListMemberships(c *gin.Context) {
	tenantID, userID, ok := subject(c)
	if !ok {
		return
	}

	memberships, err := h.service.ListMemberships(c.Request.Context(), tenantID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if memberships == nil {
		memberships = []Membership{}
	}
	c.JSON(http.StatusOK, memberships)
}
