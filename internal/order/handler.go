package order

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fitstudio/internal/api"
	"fitstudio/internal/auth"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// maxWebhookBody bounds the notification body read from the public endpoint.
const maxWebhookBody = 1 << 20

type Handler struct {
	processor *Processor
}

func NewHandler(processor *Processor) *Handler {
	return &Handler{
		processor: processor,
	}
}

func actorFrom(c *gin.Context) Actor {
	userID, _ := auth.GetUserID(c)
	return Actor{ID: userID, Staff: auth.IsStaff(c)}
}

// CreateOrder godoc
// @Summary      Create an order
// @Description  Prices the products from the catalog and creates a pending order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        request body order.CreateRequest true "Order lines"
// @Success      201 {object} order.Order
// @Failure      400 {object} api.ErrorResponse
// @Router       /orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	tenantID, userID, ok := api.Scope(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	lines := make([]Line, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid product_id"})
			return
		}
		lines = append(lines, Line{ProductID: productID, Quantity: it.Quantity})
	}

	o, err := h.processor.CreateOrder(c.Request.Context(), tenantID, userID, lines)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, o)
}

// @Summary      Get an order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Order ID"
// @Success      200 {object} order.Order
// @Failure      404 {object} api.ErrorResponse
// @Router       /orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	orderID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	o, err := h.processor.GetOrder(c.Request.Context(), tenantID, orderID, actorFrom(c))
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// @Summary      List orders
// @Description  Members see their own orders, staff see every order of the studio
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Success      200 {array} order.Order
// @Router       /orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	orders, err := h.processor.ListOrders(c.Request.Context(), tenantID, actorFrom(c))
	if err != nil {
		api.RespondError(c, err)
		return
	}

	if orders == nil {
		orders = []Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// @Summary      Cancel a pending order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Order ID"
// @Success      200 {object} order.Order
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /orders/{id}/cancel [post]
func (h *Handler) CancelOrder(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	orderID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	o, err := h.processor.CancelOrder(c.Request.Context(), tenantID, orderID, actorFrom(c))
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// CreatePaymentLink godoc
// @Summary      Create a Mercado Pago checkout link
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Order ID"
// @Success      200 {object} order.PaymentLink
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /orders/{id}/payment-link [post]
func (h *Handler) CreatePaymentLink(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	orderID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	link, err := h.processor.CreatePaymentLink(c.Request.Context(), tenantID, orderID, actorFrom(c))
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// MarkPaid godoc
// @Summary      Mark an order as paid
// @Description  Staff confirmation of an out-of-band payment. Issues the order's credits and memberships.
// @Tags         staff,orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        X-Studio-Id header string true "Studio ID"
// @Param        id path string true "Order ID"
// @Param        request body order.MarkPaidRequest false "Payment reference"
// @Success      200 {object} order.Order
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /staff/orders/{id}/mark-paid [post]
func (h *Handler) MarkPaid(c *gin.Context) {
	tenantID, _, ok := api.Scope(c)
	if !ok {
		return
	}

	orderID, ok := api.PathID(c, "id")
	if !ok {
		return
	}

	var req MarkPaidRequest
	if !api.BindOptionalJSON(c, &req) {
		return
	}
	if req.Provider == "" {
		req.Provider = ProviderManual
	}

	actor := actorFrom(c)
	o, err := h.processor.MarkPaid(c.Request.Context(), tenantID, orderID, req.Provider, req.ProviderRef, &actor)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

// webhookBody is the notification body. Ids arrive as numbers or strings.
type webhookBody struct {
	Type  string          `json:"type" validate:"max=64"`
	Topic string          `json:"topic" validate:"max=64"`
	ID    json.RawMessage `json:"id"`
	Data  struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// MercadoPagoWebhook godoc
// @Summary      Mercado Pago payment notification
// @Description  Accepts the payment id from the query (data.id or id) or the JSON body. Soft conditions answer 200.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret header string false "Shared secret"
// @Param        data.id query string false "Payment ID"
// @Param        type query string false "Notification topic"
// @Success      200 {object} order.Result
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      422 {object} api.ErrorResponse
// @Failure      502 {object} api.ErrorResponse
// @Router       /webhooks/mercadopago [post]
func (h *Handler) MercadoPagoWebhook(c *gin.Context) {
	var body webhookBody
	if c.Request.Body != nil {
		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{Error: "body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unreadable body"})
			return
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid JSON body"})
				return
			}
			if errs := api.ValidateStruct(body); len(errs) > 0 {
				api.RespondWithValidationErrors(c, errs)
				return
			}
		}
	}

	n := Notification{
		Topic:     firstNonEmpty(c.Query("type"), c.Query("topic"), body.Type, body.Topic),
		PaymentID: firstNonEmpty(c.Query("data.id"), c.Query("id"), rawID(body.Data.ID), rawID(body.ID)),
		Secret:    c.GetHeader(WebhookSecretHeader),
	}

	res, err := h.processor.HandleNotification(c.Request.Context(), n)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// rawID reads an id sent either as a JSON string or a JSON number.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}
