package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-backend/internal/domains/payment/gateway"
)

type Client struct {
	config     *Config
	httpClient *http.Client
}

func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gateway config: %w", err)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func (c *Client) Name() string {
	return "phonepe"
}

// CreateOrder opens a hosted-checkout order and returns the redirect
// URL the shopper is sent to.
func (c *Client) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
	if req.GatewayTxnID == "" {
		return nil, fmt.Errorf("gateway transaction id is required")
	}
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	redirectURL := req.RedirectURL
	if redirectURL == "" {
		redirectURL = c.config.RedirectURL
	}

	payload := map[string]interface{}{
		"merchantId":            c.config.MerchantID,
		"merchantTransactionId": req.GatewayTxnID,
		"amount":                req.AmountMinor,
		"redirectUrl":           redirectURL,
		"redirectMode":          "REDIRECT",
		"callbackUrl":           redirectURL,
		"paymentInstrument": map[string]string{
			"type": "PAY_PAGE",
		},
	}
	if req.UserEmail != "" {
		payload["merchantUserId"] = req.UserEmail
	}

	// The provider expects the business payload base64-wrapped and the
	// checksum computed over that base64 string.
	inner, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pay payload: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(inner)
	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pay payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Host()+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build pay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", ChecksumForPayload(encoded, payPath, c.config.Salt, c.config.SaltIndex))

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	redirect := extractRedirectURL(raw)
	if redirect == "" {
		return nil, fmt.Errorf("gateway response missing redirect url")
	}

	return &gateway.CreateOrderResponse{
		RedirectURL: redirect,
		Raw:         raw,
	}, nil
}

// GetStatus looks up a transaction by merchant transaction id.
func (c *Client) GetStatus(ctx context.Context, gatewayTxnID string) (*gateway.StatusResponse, error) {
	if gatewayTxnID == "" {
		return nil, fmt.Errorf("gateway transaction id is required")
	}

	path := StatusPath(c.config.MerchantID, gatewayTxnID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Host()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", ChecksumForPath(path, c.config.Salt, c.config.SaltIndex))
	httpReq.Header.Set("X-MERCHANT-ID", c.config.MerchantID)

	raw, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	state, amount := extractStatus(raw)
	if state == "" {
		return nil, fmt.Errorf("gateway status response missing state for txn %s", gatewayTxnID)
	}

	return &gateway.StatusResponse{
		GatewayTxnID: gatewayTxnID,
		State:        state,
		AmountMinor:  amount,
		Raw:          raw,
	}, nil
}

func (c *Client) do(req *http.Request) (map[string]interface{}, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return raw, nil
}

// extractRedirectURL digs data.instrumentResponse.redirectInfo.url out
// of the pay response.
func extractRedirectURL(raw map[string]interface{}) string {
	data, _ := raw["data"].(map[string]interface{})
	instrument, _ := data["instrumentResponse"].(map[string]interface{})
	redirect, _ := instrument["redirectInfo"].(map[string]interface{})
	url, _ := redirect["url"].(string)
	return url
}

// extractStatus pulls the terminal state and the amount in minor units
// from a status response. The state lives at data.state with the
// top-level code as fallback.
func extractStatus(raw map[string]interface{}) (string, int64) {
	data, _ := raw["data"].(map[string]interface{})

	state, _ := data["state"].(string)
	if state == "" {
		if code, ok := raw["code"].(string); ok {
			switch code {
			case "PAYMENT_SUCCESS":
				state = gateway.StateCompleted
			case "PAYMENT_PENDING":
				state = gateway.StatePending
			case "PAYMENT_ERROR", "PAYMENT_DECLINED", "TIMED_OUT":
				state = gateway.StateFailed
			}
		}
	}

	var amount int64
	if v, ok := data["amount"].(float64); ok {
		amount = int64(v)
	}

	return state, amount
}
