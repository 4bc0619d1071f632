// Package mercadopago talks to the Mercado Pago REST API: payment lookups for
// webhook reconciliation and checkout preferences for new charges.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
	"github.com/MrJamesThe3rd/studiobooks/internal/payment"
)

const providerName = "mercadopago"

type Config struct {
	BaseURL       string
	AccessToken   string
	NotifyURL     string
	Timeout       time.Duration
	RatePerSecond float64
}

// Client implements payment.Provider.
type Client struct {
	baseURL   string
	token     string
	notifyURL string
	client    *http.Client
	limiter   *rate.Limiter
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.AccessToken,
		notifyURL: cfg.NotifyURL,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Name() string {
	return providerName
}

type paymentResponse struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	ExternalReference string          `json:"external_reference"`
	PreferenceID      string          `json:"preference_id"`
	DateApproved      *time.Time      `json:"date_approved"`
	Metadata          struct {
		PreferenceID string `json:"preference_id"`
	} `json:"metadata"`
}

// GetPayment reads GET /v1/payments/{id}.
func (c *Client) GetPayment(ctx context.Context, providerPaymentID string) (*payment.PaymentDetails, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(providerPaymentID), nil, &resp); err != nil {
		return nil, err
	}

	pref := resp.PreferenceID
	if pref == "" {
		pref = resp.Metadata.PreferenceID
	}

	return &payment.PaymentDetails{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		Amount:            money.FromDecimal(resp.TransactionAmount),
		ExternalReference: resp.ExternalReference,
		PreferenceID:      pref,
		DateApproved:      resp.DateApproved,
	}, nil
}

type preferenceItem struct {
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateCheckout creates a checkout preference with a single item.
func (c *Client) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	body := preferenceRequest{
		Items: []preferenceItem{{
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  json.Number(money.ToDecimal(req.Amount).StringFixed(2)),
			CurrencyID: "BRL",
		}},
		ExternalReference: req.ExternalReference,
		NotificationURL:   c.notifyURL,
	}

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}

	return &payment.Checkout{PreferenceID: resp.ID, URL: resp.InitPoint}, nil
}

// do sends one API call. Network failures, 429 and 5xx answers come back as
// *payment.TransientError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return &payment.TransientError{Op: op, Err: err}
	}

	var reader io.Reader

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &payment.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return &payment.TransientError{Op: op, Err: statusErr}
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, payment.ErrPaymentNotFound, statusErr)
		default:
			return fmt.Errorf("%s: %w", op, statusErr)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &payment.TransientError{Op: op, Err: err}
		}

		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
