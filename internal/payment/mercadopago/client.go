// Package mercadopago is a Mercado Pago REST client implementing payment.Gateway.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fitstudio/internal/payment"
)

const DefaultBaseURL = "https://api.mercadopago.com"

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func New(baseURL, accessToken string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type backURLs struct {
	Success string `json:"success,omitempty"`
	Failure string `json:"failure,omitempty"`
	Pending string `json:"pending,omitempty"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          backURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount *float64    `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
}

func (p paymentResponse) details() payment.Details {
	return payment.Details{
		ID:                p.ID.String(),
		Status:            p.Status,
		Amount:            p.TransactionAmount,
		Currency:          p.CurrencyID,
		ExternalReference: p.ExternalReference,
	}
}

type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

// CreatePreference creates a single-line checkout for the whole order.
func (c *Client) CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	title := req.Title
	if title == "" {
		title = "Order " + req.OrderID.String()
	}

	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:         req.OrderID.String(),
			Title:      title,
			Quantity:   1,
			CurrencyID: req.Currency,
			UnitPrice:  float64(req.TotalCents) / 100,
		}},
		ExternalReference: req.OrderID.String(),
		NotificationURL:   req.NotificationURL,
		BackURLs: backURLs{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.FailureURL,
		},
		AutoReturn: "approved",
	}
	if req.SuccessURL == "" {
		body.AutoReturn = ""
	}

	var resp preferenceResponse
	if err := c.do(ctx, "create preference", http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}

	return &payment.Preference{
		ID:                 resp.ID,
		CheckoutURL:        resp.InitPoint,
		SandboxCheckoutURL: resp.SandboxInitPoint,
	}, nil
}

func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*payment.Details, error) {
	var resp paymentResponse
	path := "/v1/payments/" + url.PathEscape(paymentID)
	if err := c.do(ctx, "fetch payment", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	d := resp.details()
	return &d, nil
}

// SearchPayments lists payments for an external reference, newest first.
func (c *Client) SearchPayments(ctx context.Context, externalReference string) ([]payment.Details, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var resp searchResponse
	if err := c.do(ctx, "search payments", http.MethodGet, "/v1/payments/search?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]payment.Details, 0, len(resp.Results))
	for _, p := range resp.Results {
		out = append(out, p.details())
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &payment.Error{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &payment.Error{Op: op, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &payment.Error{Op: op, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &payment.Error{Op: op, StatusCode: res.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &payment.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
