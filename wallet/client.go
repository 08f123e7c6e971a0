package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flixbits-rewards-service/referral"
)

// Client is the remote referral.Wallet: it forwards credit/debit operations
// to the wallet service behind the gateway. The tracker treats any failure
// here as CreditFailure and compensates, so the client stays deliberately
// thin — no retries, no queueing.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, serviceToken string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   serviceToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type movementRequest struct {
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
}

func (c *Client) Credit(ctx context.Context, externalID string, amount int64, reason, recordID string) error {
	return c.post(ctx, "/api/v1/internal/wallets/credit", movementRequest{
		UserID: externalID, Amount: amount, Reason: reason, Reference: recordID,
	})
}

func (c *Client) Debit(ctx context.Context, externalID string, amount int64, reason, recordID string) error {
	return c.post(ctx, "/api/v1/internal/wallets/debit", movementRequest{
		UserID: externalID, Amount: amount, Reason: reason, Reference: recordID,
	})
}

func (c *Client) post(ctx context.Context, path string, body movementRequest) error {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid wallet service URL %q: %w", c.BaseURL, err)
	}
	endpoint := base.JoinPath(path).String()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding wallet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating wallet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling wallet service: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wallet service returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

var _ referral.Wallet = (*Client)(nil)
