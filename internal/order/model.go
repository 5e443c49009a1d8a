package order

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

const (
	ProviderManual      = "manual"
	ProviderMercadoPago = "mercadopago"
)

type Order struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	TenantID    uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Status      Status     `db:"status" json:"status"`
	TotalCents  int64      `db:"total_cents" json:"total_cents"`
	Currency    string     `db:"currency" json:"currency"`
	Provider    string     `db:"provider" json:"provider"`
	ProviderRef string     `db:"provider_ref" json:"provider_ref"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	Items       []Item     `db:"-" json:"items"`
}

// payable reports whether a payment confirmation may still move the order to paid.
func (o *Order) payable() bool {
	return o.Status == StatusPending || o.Status == StatusFailed
}

// Item is an immutable order line with the price snapshotted at order time.
type Item struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"order_id"`
	ProductID      uuid.UUID `db:"product_id" json:"product_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPriceCents int64     `db:"unit_price_cents" json:"unit_price_cents"`
	TotalCents     int64     `db:"total_cents" json:"total_cents"`
}

type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid" example:"7b4a3a8e-2f7c-4a8e-9a55-0e7f6c1d2b3a"`
	Quantity  int    `json:"quantity" binding:"required,min=1" example:"1"`
}

type MarkPaidRequest struct {
	Provider    string `json:"provider" example:"manual"`
	ProviderRef string `json:"provider_ref" example:"cash-0042"`
}

type PaymentLink struct {
	OrderID            uuid.UUID `json:"order_id"`
	PreferenceID       string    `json:"preference_id"`
	CheckoutURL        string    `json:"checkout_url"`
	SandboxCheckoutURL string    `json:"sandbox_checkout_url"`
}

// Notification is a payment notification as delivered by the provider.
type Notification struct {
	Topic     string
	PaymentID string
	Secret    string
}

// Outcome says what a notification or reconciliation did. Every outcome is
// acknowledged to the provider with 200.
type Outcome string

const (
	OutcomeProcessed     Outcome = "processed"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeNoReference   Outcome = "no_reference"
	OutcomeOrderNotFound Outcome = "order_not_found"
	OutcomeNotApproved   Outcome = "not_approved"
	OutcomeNotPayable    Outcome = "not_payable"
)

type Result struct {
	Outcome Outcome    `json:"status"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
}
