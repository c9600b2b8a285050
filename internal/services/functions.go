package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Serverless function names.
const (
	FnCreateWallet   = "create-wallet"
	FnDeleteUser     = "delete-user"
	FnInitiatePayout = "initiate-song-payout"
	FnRecordPlay     = "record-play"
	FnPurchaseTokens = "purchase-tokens"
)

// Invoke calls a serverless function with body encoded as JSON and decodes the reply into out, which may be nil.
func (c *Client) Invoke(ctx context.Context, name string, body any, out any) error {
	reqURL := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, name)

	if body == nil {
		body = map[string]any{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.setHeaders(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("function %s: %w", name, err)
	}
	if out == nil {
		return nil
	}
	return resp.JSON(out)
}

// WalletResult is the reply of create-wallet.
type WalletResult struct {
	WalletID string `json:"wallet_id"`
	Address  string `json:"address"`
}

// PayoutResult is the reply of initiate-song-payout.
type PayoutResult struct {
	SongID     string  `json:"song_id"`
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	Recipients int     `json:"recipients"`
}

// PlayResult is the reply of record-play.
type PlayResult struct {
	Streams         int  `json:"streams"`
	ThresholdMet    bool `json:"threshold_met"`
	PayoutTriggered bool `json:"payout_triggered"`
}

// PurchaseResult is the reply of purchase-tokens.
type PurchaseResult struct {
	Tokens      int    `json:"tokens"`
	CheckoutURL string `json:"checkout_url,omitempty"`
}
