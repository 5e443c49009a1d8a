package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Lookup resolves products for order creation and payment confirmation.
type Lookup interface {
	GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*Product, error)
}
