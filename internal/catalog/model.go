package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
)

type ProductType string

const (
	TypeDropIn     ProductType = "drop_in"
	TypePackage    ProductType = "package"
	TypeMembership ProductType = "membership"
)

type Product struct {
	ID         uuid.UUID   `json:"id"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	Name       string      `json:"name"`
	Type       ProductType `json:"type"`
	PriceCents int64       `json:"price_cents"`
	Currency   string      `json:"currency"`
	Active     bool        `json:"active"`
	Meta       Meta        `json:"meta"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Meta is the type-specific part of a product. It is one of DropInMeta,
// PackageMeta or MembershipMeta.
type Meta interface {
	Type() ProductType
}

type DropInMeta struct{}

type PackageMeta struct {
	Credits    int  `json:"credits"`
	ExpiryDays *int `json:"expiry_days,omitempty"`
}

type MembershipMeta struct {
	DurationDays *int `json:"duration_days,omitempty"`
}

func (DropInMeta) Type() ProductType     { return TypeDropIn }
func (PackageMeta) Type() ProductType    { return TypePackage }
func (MembershipMeta) Type() ProductType { return TypeMembership }

var ErrInvalidMeta = apperr.New(apperr.ErrValidation, "invalid product meta")

// DecodeMeta parses the stored JSON meta of a product of type t.
// Non-positive expiry or duration means unbounded.
func DecodeMeta(t ProductType, raw []byte) (Meta, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	switch t {
	case TypeDropIn:
		return DropInMeta{}, nil
	case TypePackage:
		var m PackageMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMeta, err)
		}
		if m.Credits <= 0 {
			return nil, fmt.Errorf("%w: package credits must be positive", ErrInvalidMeta)
		}
		m.ExpiryDays = positiveOrNil(m.ExpiryDays)
		return m, nil
	case TypeMembership:
		var m MembershipMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMeta, err)
		}
		m.DurationDays = positiveOrNil(m.DurationDays)
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown product type %q", ErrInvalidMeta, t)
	}
}

func EncodeMeta(m Meta) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func positiveOrNil(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
