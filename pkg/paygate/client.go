package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	requestPath  = "/pg/rest/WebGate/PaymentRequest.json"
	verifyPath   = "/pg/rest/WebGate/PaymentVerification.json"
	startPayPath = "/pg/StartPay/"
)

// Config holds gateway connection details.
type Config struct {
	Mode       Mode
	MerchantID string
	// BaseURL overrides the host derived from Mode.
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL    string
	merchantID string
	http       *http.Client
	lg         *zap.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a gateway client. Every call is bounded by cfg.Timeout.
func NewClient(cfg Config, lg *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		host := "www"
		if cfg.Mode == ModeSandbox {
			host = "sandbox"
		}
		baseURL = fmt.Sprintf("https://%s.zarinpal.com", host)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		merchantID: cfg.MerchantID,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		lg: lg,
	}
}

type requestBody struct {
	MerchantID  string `json:"MerchantID"`
	Amount      int64  `json:"Amount"`
	Description string `json:"Description"`
	Email       string `json:"Email,omitempty"`
	Mobile      string `json:"Mobile,omitempty"`
	CallbackURL string `json:"CallbackURL"`
}

type requestResponse struct {
	Status    int    `json:"Status"`
	Authority string `json:"Authority"`
}

type verifyBody struct {
	MerchantID string `json:"MerchantID"`
	Amount     int64  `json:"Amount"`
	Authority  string `json:"Authority"`
}

type verifyResponse struct {
	Status int         `json:"Status"`
	RefID  json.Number `json:"RefID"`
}

// RequestPayment asks the gateway for an authority token.
func (c *Client) RequestPayment(ctx context.Context, req PaymentRequest) (*Authority, error) {
	const op = "request payment"
	var resp requestResponse
	err := c.post(ctx, op, requestPath, requestBody{
		MerchantID:  c.merchantID,
		Amount:      req.Amount,
		Description: req.Description,
		Email:       req.Email,
		Mobile:      req.Mobile,
		CallbackURL: req.CallbackURL,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusOK || resp.Authority == "" {
		c.lg.Warn("Payment request rejected", zap.Int("status", resp.Status), zap.Int64("amount", req.Amount))
		return nil, &RejectedError{Op: op, Status: resp.Status}
	}
	return &Authority{Authority: resp.Authority, Status: resp.Status}, nil
}

// VerifyPayment confirms the payment identified by authority for amount.
// A repeated verification of the same payment is reported as success.
func (c *Client) VerifyPayment(ctx context.Context, amount int64, authority string) (*Verification, error) {
	const op = "verify payment"
	var resp verifyResponse
	err := c.post(ctx, op, verifyPath, verifyBody{
		MerchantID: c.merchantID,
		Amount:     amount,
		Authority:  authority,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Status != StatusOK && resp.Status != StatusAlreadyVerified {
		c.lg.Warn("Payment verification rejected", zap.Int("status", resp.Status), zap.String("authority", authority))
		return nil, &RejectedError{Op: op, Status: resp.Status}
	}
	refID := resp.RefID.String()
	if refID == "" || refID == "0" {
		// Accepted without a reference: the outcome is unknown until verified again.
		c.lg.Warn("Payment verification missing ref id", zap.Int("status", resp.Status), zap.String("authority", authority))
		return nil, &TransportError{Op: op, Err: errors.New("missing ref id")}
	}
	return &Verification{RefID: refID, Status: resp.Status}, nil
}

// StartPayURL returns the buyer redirect target for authority.
func (c *Client) StartPayURL(authority string) string {
	return c.baseURL + startPayPath + authority
}

func (c *Client) post(ctx context.Context, op, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "marshal "+op)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build "+op)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// A 5xx means the gateway never decided; anything else carries a status.
	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &TransportError{Op: op, Err: errors.Errorf("http status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}
