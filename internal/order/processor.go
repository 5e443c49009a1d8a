package order

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
	"fitstudio/internal/audit"
	"fitstudio/internal/catalog"
	"fitstudio/internal/db"
	"fitstudio/internal/events"
	"fitstudio/internal/ledger"
	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
	"fitstudio/internal/payment"
)

var (
	ErrOrderNotPending      = apperr.New(apperr.ErrConflict, "order is not pending")
	ErrOrderNotPayable      = apperr.New(apperr.ErrConflict, "order can no longer be paid")
	ErrMissingPaymentID     = apperr.New(apperr.ErrValidation, "no payment id")
	ErrInvalidSignature     = apperr.New(apperr.ErrUnauthorized, "invalid webhook secret")
	ErrGatewayNotConfigured = apperr.New(apperr.ErrMisconfigured, "payment gateway is not configured")
	ErrAmountMismatch       = apperr.New(apperr.ErrUnprocessable, "payment amount does not match order total")
	ErrCurrencyMismatch     = apperr.New(apperr.ErrUnprocessable, "payment currency does not match order currency")
	ErrUnknownProductMeta   = apperr.New(apperr.ErrMisconfigured, "product has no entitlement kind")
)

// amountTolerance is the accepted gap, in major units, between the provider
// amount and the order total.
const amountTolerance = 0.01

type Entitlements interface {
	IssueCredits(ctx context.Context, g ledger.CreditGrant) (*ledger.Credit, error)
	IssueMembership(ctx context.Context, g ledger.MembershipGrant) (*ledger.Membership, error)
}

// Actor is the caller of an order operation. Staff act on any order of the studio.
type Actor struct {
	ID    uuid.UUID
	Staff bool
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func WithAudit(sink audit.Sink) Option {
	return func(p *Processor) { p.audit = sink }
}

func WithPublisher(pub events.Publisher) Option {
	return func(p *Processor) { p.events = pub }
}

// WithGateway enables payment links, webhooks and reconciliation.
func WithGateway(g payment.Gateway) Option {
	return func(p *Processor) { p.gateway = g }
}

func WithWebhookSecret(secret string) Option {
	return func(p *Processor) { p.webhookSecret = secret }
}

// WithCheckoutURLs sets where the provider notifies and where the buyer
// returns after checkout.
func WithCheckoutURLs(notificationURL, frontendURL string) Option {
	return func(p *Processor) {
		p.notificationURL = notificationURL
		p.frontendURL = strings.TrimRight(frontendURL, "/")
	}
}

func WithDefaultCurrency(currency string) Option {
	return func(p *Processor) { p.defaultCurrency = currency }
}

// Processor owns the order lifecycle and turns confirmed payments into
// entitlements exactly once per order.
type Processor struct {
	repo            Repository
	catalog         catalog.Lookup
	entitlements    Entitlements
	tx              db.TxManager
	gateway         payment.Gateway
	webhookSecret   string
	notificationURL string
	frontendURL     string
	defaultCurrency string
	audit           audit.Sink
	events          events.Publisher
	now             func() time.Time
}

func NewProcessor(repo Repository, products catalog.Lookup, entitlements Entitlements, tx db.TxManager, opts ...Option) *Processor {
	p := &Processor{
		repo:            repo,
		catalog:         products,
		entitlements:    entitlements,
		tx:              tx,
		defaultCurrency: "MXN",
		audit:           audit.NopSink{},
		events:          events.Nop{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateOrder prices the lines from the catalog and stores a pending order.
func (p *Processor) CreateOrder(ctx context.Context, tenantID, userID uuid.UUID, lines []Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("items", "at least one product is required")
	}

	o := &Order{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: p.now(),
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, apperr.Validation("quantity", "must be at least 1")
		}

		product, err := p.catalog.GetProduct(ctx, tenantID, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, apperr.Validation("product_id", "product not found")
			}
			return nil, fmt.Errorf("get product: %w", err)
		}
		if !product.Active {
			return nil, apperr.Validation("product_id", "product is not available")
		}

		currency := product.Currency
		if currency == "" {
			currency = p.defaultCurrency
		}
		if o.Currency != "" && o.Currency != currency {
			return nil, apperr.Validation("items", "products must share one currency")
		}
		o.Currency = currency

		lineTotal := product.PriceCents * int64(line.Quantity)
		o.Items = append(o.Items, Item{
			ID:             uuid.New(),
			OrderID:        o.ID,
			ProductID:      product.ID,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			TotalCents:     lineTotal,
		})
		o.TotalCents += lineTotal
	}

	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.repo.Insert(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := p.repo.InsertItems(ctx, o.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, p.audit, audit.NewEvent(tenantID, &userID, audit.ActionOrderCreated, "order", o.ID,
		map[string]interface{}{"total_cents": o.TotalCents, "currency": o.Currency}))
	metrics.RecordOrderCreated()

	return o, nil
}

// GetOrder returns the order with its lines. Members only see their own orders.
func (p *Processor) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID, actor Actor) (*Order, error) {
	o, err := p.repo.GetByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && o.UserID != actor.ID {
		return nil, ErrOrderNotFound
	}

	items, err := p.repo.ListItems(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	o.Items = items

	return o, nil
}

// ListOrders returns the caller's orders, or every order of the studio for staff.
func (p *Processor) ListOrders(ctx context.Context, tenantID uuid.UUID, actor Actor) ([]Order, error) {
	if actor.Staff {
		return p.repo.ListByTenant(ctx, tenantID)
	}
	return p.repo.ListByUser(ctx, tenantID, actor.ID)
}

// CancelOrder cancels a pending order.
func (p *Processor) CancelOrder(ctx context.Context, tenantID, orderID uuid.UUID, actor Actor) (*Order, error) {
	var o *Order
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = p.repo.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if !actor.Staff && o.UserID != actor.ID {
			return ErrOrderNotFound
		}
		if o.Status != StatusPending {
			return ErrOrderNotPending
		}

		o.Status = StatusCancelled
		return p.repo.Update(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, p.audit, audit.NewEvent(tenantID, &actor.ID, audit.ActionOrderCancelled, "order", o.ID, nil))

	return o, nil
}

// MarkPaid confirms payment of an order and issues its entitlements. Paying an
// already paid order returns it unchanged.
func (p *Processor) MarkPaid(ctx context.Context, tenantID, orderID uuid.UUID, provider, providerRef string, actor *Actor) (*Order, error) {
	var actorID *uuid.UUID
	if actor != nil {
		actorID = &actor.ID
	}

	o, _, err := p.markPaid(ctx, tenantID, orderID, provider, providerRef, actorID)
	return o, err
}

// markPaid reports whether this call was the one that moved the order to paid.
func (p *Processor) markPaid(ctx context.Context, tenantID, orderID uuid.UUID, provider, providerRef string, actorID *uuid.UUID) (*Order, bool, error) {
	var (
		o      *Order
		paid   bool
		issued []ledger.Kind
	)

	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		o, err = p.repo.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusPaid {
			return nil
		}
		if !o.payable() {
			return ErrOrderNotPayable
		}

		now := p.now()
		o.Status = StatusPaid
		o.PaidAt = &now
		if provider != "" {
			o.Provider = provider
		}
		if providerRef != "" {
			o.ProviderRef = providerRef
		}
		if err := p.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		items, err := p.repo.ListItems(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		o.Items = items

		for i := range items {
			kinds, err := p.issue(ctx, o, &items[i], now)
			if err != nil {
				return err
			}
			issued = append(issued, kinds...)
		}

		paid = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !paid {
		return o, false, nil
	}

	audit.Log(ctx, p.audit, audit.NewEvent(tenantID, actorID, audit.ActionOrderPaid, "order", o.ID,
		map[string]interface{}{"provider": o.Provider, "provider_ref": o.ProviderRef}))
	events.Emit(ctx, p.events, events.OrderPaid, events.OrderEvent{
		TenantID:    o.TenantID,
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalCents:  o.TotalCents,
		Currency:    o.Currency,
		Provider:    o.Provider,
		ProviderRef: o.ProviderRef,
		OccurredAt:  *o.PaidAt,
	})
	metrics.RecordOrderPaid(o.Provider)
	for _, kind := range issued {
		metrics.RecordEntitlementIssued(string(kind))
	}

	return o, true, nil
}

// issue grants the entitlements bought by one order line.
func (p *Processor) issue(ctx context.Context, o *Order, item *Item, now time.Time) ([]ledger.Kind, error) {
	product, err := p.catalog.GetProduct(ctx, o.TenantID, item.ProductID)
	if errors.Is(err, catalog.ErrInvalidMeta) {
		return nil, fmt.Errorf("%w: product %s: %v", ErrUnknownProductMeta, item.ProductID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", item.ProductID, err)
	}

	switch meta := product.Meta.(type) {
	case catalog.DropInMeta:
		_, err := p.entitlements.IssueCredits(ctx, ledger.CreditGrant{
			TenantID:          o.TenantID,
			UserID:            o.UserID,
			Credits:           item.Quantity,
			SourceOrderItemID: &item.ID,
		})
		if err != nil {
			return nil, err
		}
		return []ledger.Kind{ledger.KindCredit}, nil

	case catalog.PackageMeta:
		var expiresAt *time.Time
		if meta.ExpiryDays != nil {
			t := now.AddDate(0, 0, *meta.ExpiryDays)
			expiresAt = &t
		}
		_, err := p.entitlements.IssueCredits(ctx, ledger.CreditGrant{
			TenantID:          o.TenantID,
			UserID:            o.UserID,
			Credits:           meta.Credits * item.Quantity,
			ExpiresAt:         expiresAt,
			SourceOrderItemID: &item.ID,
		})
		if err != nil {
			return nil, err
		}
		return []ledger.Kind{ledger.KindCredit}, nil

	case catalog.MembershipMeta:
		var endsAt *time.Time
		if meta.DurationDays != nil {
			t := now.AddDate(0, 0, *meta.DurationDays)
			endsAt = &t
		}
		kinds := make([]ledger.Kind, 0, item.Quantity)
		for i := 0; i < item.Quantity; i++ {
			_, err := p.entitlements.IssueMembership(ctx, ledger.MembershipGrant{
				TenantID:  o.TenantID,
				UserID:    o.UserID,
				ProductID: &product.ID,
				StartsAt:  now,
				EndsAt:    endsAt,
			})
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, ledger.KindMembership)
		}
		return kinds, nil

	default:
		return nil, fmt.Errorf("%w: product %s", ErrUnknownProductMeta, product.ID)
	}
}

// CreatePaymentLink opens a checkout with the provider for a pending order.
func (p *Processor) CreatePaymentLink(ctx context.Context, tenantID, orderID uuid.UUID, actor Actor) (*PaymentLink, error) {
	if p.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	o, err := p.GetOrder(ctx, tenantID, orderID, actor)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, ErrOrderNotPending
	}

	pref, err := p.gateway.CreatePreference(ctx, payment.PreferenceRequest{
		OrderID:         o.ID,
		Title:           "Order " + o.ID.String(),
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		NotificationURL: p.notificationURL,
		SuccessURL:      p.returnURL("mp_success", o.ID),
		FailureURL:      p.returnURL("mp_failed", o.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}

	err = p.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := p.repo.LockByID(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if locked.Status != StatusPending {
			return ErrOrderNotPending
		}

		locked.Provider = ProviderMercadoPago
		if pref.ID != "" {
			locked.ProviderRef = pref.ID
		}
		return p.repo.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, p.audit, audit.NewEvent(tenantID, &actor.ID, audit.ActionPaymentLinkCreated, "order", o.ID,
		map[string]interface{}{"preference_id": pref.ID}))

	return &PaymentLink{
		OrderID:            o.ID,
		PreferenceID:       pref.ID,
		CheckoutURL:        pref.CheckoutURL,
		SandboxCheckoutURL: pref.SandboxCheckoutURL,
	}, nil
}

func (p *Processor) returnURL(outcome string, orderID uuid.UUID) string {
	if p.frontendURL == "" {
		return ""
	}
	return p.frontendURL + "/portal?payment=" + outcome + "&order=" + orderID.String()
}

// HandleNotification processes a provider payment notification. Soft
// conditions are reported as outcomes; errors mean the provider should see a
// failure status.
func (p *Processor) HandleNotification(ctx context.Context, n Notification) (res *Result, err error) {
	defer func() {
		switch {
		case err != nil:
			metrics.RecordWebhook("rejected")
		case res != nil:
			metrics.RecordWebhook(string(res.Outcome))
		}
	}()

	if n.Topic != "" && n.Topic != "payment" {
		logger.Info("payment notification ignored", "topic", n.Topic)
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	if n.PaymentID == "" {
		return nil, ErrMissingPaymentID
	}

	if p.webhookSecret != "" && subtle.ConstantTimeCompare([]byte(n.Secret), []byte(p.webhookSecret)) != 1 {
		logger.Warn("payment notification with invalid secret", "payment_id", n.PaymentID)
		return nil, ErrInvalidSignature
	}

	if p.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	details, err := p.gateway.FetchPayment(ctx, n.PaymentID)
	if err != nil {
		logger.WithError(err).Warn("payment fetch failed", "payment_id", n.PaymentID)
		return nil, fmt.Errorf("fetch payment %s: %w", n.PaymentID, err)
	}

	if details.ExternalReference == "" {
		logger.Warn("payment without external reference", "payment_id", n.PaymentID)
		return &Result{Outcome: OutcomeNoReference}, nil
	}

	o, err := p.findOrder(ctx, details.ExternalReference)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			logger.Warn("payment for unknown order", "payment_id", n.PaymentID, "external_reference", details.ExternalReference)
			return &Result{Outcome: OutcomeOrderNotFound}, nil
		}
		return nil, err
	}

	return p.applyPayment(ctx, o, details)
}

func (p *Processor) findOrder(ctx context.Context, externalReference string) (*Order, error) {
	id, err := uuid.Parse(externalReference)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	return p.repo.FindByID(ctx, id)
}

// ReconcilePayment asks the provider for payments of a pending order and
// applies the first approved one, the same way a notification would.
func (p *Processor) ReconcilePayment(ctx context.Context, o *Order) (*Result, error) {
	if p.gateway == nil {
		return nil, ErrGatewayNotConfigured
	}

	payments, err := p.gateway.SearchPayments(ctx, o.ID.String())
	if err != nil {
		return nil, fmt.Errorf("search payments for order %s: %w", o.ID, err)
	}

	for i := range payments {
		if payments[i].Status == payment.StatusApproved {
			return p.applyPayment(ctx, o, &payments[i])
		}
	}

	return &Result{Outcome: OutcomeNotApproved, OrderID: &o.ID}, nil
}

// applyPayment checks a provider payment against its order and marks the
// order paid when the payment is approved.
func (p *Processor) applyPayment(ctx context.Context, o *Order, d *payment.Details) (*Result, error) {
	res := &Result{OrderID: &o.ID}

	if o.Status == StatusPaid && o.ProviderRef == d.ID {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	if d.Amount != nil {
		expected := float64(o.TotalCents) / 100
		if math.Abs(*d.Amount-expected) > amountTolerance {
			logger.Warn("payment amount mismatch", "payment_id", d.ID, "amount", *d.Amount, "expected", expected)
			return nil, ErrAmountMismatch
		}
	}
	if d.Currency != "" && d.Currency != o.Currency {
		logger.Warn("payment currency mismatch", "payment_id", d.ID, "currency", d.Currency, "order_currency", o.Currency)
		return nil, ErrCurrencyMismatch
	}

	if d.Status != payment.StatusApproved {
		logger.Info("payment not approved", "payment_id", d.ID, "status", d.Status)
		res.Outcome = OutcomeNotApproved
		return res, nil
	}

	_, paid, err := p.markPaid(ctx, o.TenantID, o.ID, ProviderMercadoPago, d.ID, nil)
	if err != nil {
		if errors.Is(err, ErrOrderNotPayable) {
			logger.Warn("approved payment for order that cannot be paid", "payment_id", d.ID, "order_id", o.ID, "status", o.Status)
			res.Outcome = OutcomeNotPayable
			return res, nil
		}
		return nil, fmt.Errorf("mark order paid: %w", err)
	}
	if !paid {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	logger.Info("order marked paid", "payment_id", d.ID, "order_id", o.ID)
	res.Outcome = OutcomeProcessed
	return res, nil
}
