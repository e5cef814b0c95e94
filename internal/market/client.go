// Package market provides the HTTP client for the external intent market
// (1inch Fusion+-compatible API): tiered gas quotes, ready-to-execute
// orders, and per-order secret reveals. The core never calls out itself;
// this package is the collaborator that fetches and injects that data.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/orders"
	"github.com/crosslock/crosslockd/internal/swap"
)

// Client talks to the intent-market API.
type Client struct {
	baseURL    string
	authToken  string
	chainID    uint64
	httpClient *http.Client
}

// Config holds market client configuration.
type Config struct {
	BaseURL   string
	AuthToken string
	ChainID   uint64
	Timeout   time.Duration
}

// NewClient creates a market client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		authToken: cfg.AuthToken,
		chainID:   cfg.ChainID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// gasPriceResponse is the wire shape of the gas-price endpoint. Fee
// values arrive as decimal wei strings.
type gasPriceResponse struct {
	BaseFee string       `json:"baseFee"`
	Low     gasTierEntry `json:"low"`
	Medium  gasTierEntry `json:"medium"`
	High    gasTierEntry `json:"high"`
	Instant gasTierEntry `json:"instant"`
}

type gasTierEntry struct {
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
}

// GetGasQuote fetches the current tiered fee quote for the EVM chain.
func (c *Client) GetGasQuote(ctx context.Context) (*fees.GasQuote, error) {
	var raw gasPriceResponse
	url := fmt.Sprintf("%s/gas-price/v1.6/%d", c.baseURL, c.chainID)
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	quote := &fees.GasQuote{
		BaseFee:   parseWei(raw.BaseFee),
		Tiers:     make(map[fees.Tier]fees.TierQuote, 4),
		FetchedAt: time.Now(),
	}
	for tier, entry := range map[fees.Tier]gasTierEntry{
		fees.TierLow:     raw.Low,
		fees.TierMedium:  raw.Medium,
		fees.TierHigh:    raw.High,
		fees.TierInstant: raw.Instant,
	} {
		quote.Tiers[tier] = fees.TierQuote{
			MaxFeePerGas:         parseWei(entry.MaxFeePerGas),
			MaxPriorityFeePerGas: parseWei(entry.MaxPriorityFeePerGas),
		}
	}
	return quote, nil
}

// readyOrdersResponse is the wire shape of the ready-to-execute endpoint.
type readyOrdersResponse struct {
	Actions []orderAction `json:"actions"`
}

type orderAction struct {
	Immutables struct {
		AllOf []orders.LockImmutables `json:"allOf"`
	} `json:"immutables"`
	ChainID json.Number `json:"chainId"`
}

// GetReadyOrders fetches orders with public actions ready to execute.
func (c *Client) GetReadyOrders(ctx context.Context) ([]orders.ExternalOrder, error) {
	var raw readyOrdersResponse
	url := c.baseURL + "/fusion-plus/orders/v1.0/order/ready-to-execute-public-actions"
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	result := make([]orders.ExternalOrder, 0, len(raw.Actions))
	for i, action := range raw.Actions {
		result = append(result, orders.ExternalOrder{
			ID:            fmt.Sprintf("market-%d", i),
			ChainID:       action.ChainID.String(),
			Source:        "fusion-plus",
			SrcImmutables: action.Immutables.AllOf,
		})
	}
	return result, nil
}

// orderSecretsResponse is the wire shape of the per-order secrets
// endpoint.
type orderSecretsResponse struct {
	OrderType     string                  `json:"orderType"`
	Secrets       []orders.SecretReveal   `json:"secrets"`
	SecretHashes  []string                `json:"secretHashes"`
	SrcImmutables []orders.LockImmutables `json:"srcImmutables"`
	DstImmutables []orders.LockImmutables `json:"dstImmutables"`
}

// OrderSecrets bundles an order's reveal data with its lock descriptors.
type OrderSecrets struct {
	Order   orders.ExternalOrder
	Reveals orders.OrderSecrets
}

// GetOrderSecrets fetches the secret reveals and immutables for one
// order hash.
func (c *Client) GetOrderSecrets(ctx context.Context, orderHash string) (*OrderSecrets, error) {
	var raw orderSecretsResponse
	url := c.baseURL + "/fusion-plus/orders/v1.0/order/secrets/" + orderHash
	if err := c.getJSON(ctx, url, &raw); err != nil {
		return nil, err
	}

	return &OrderSecrets{
		Order: orders.ExternalOrder{
			ID:            orderHash,
			Source:        "fusion-plus",
			SrcImmutables: raw.SrcImmutables,
			DstImmutables: raw.DstImmutables,
		},
		Reveals: orders.OrderSecrets{
			OrderHash:    orderHash,
			OrderType:    raw.OrderType,
			Secrets:      raw.Secrets,
			SecretHashes: raw.SecretHashes,
		},
	}, nil
}

// getJSON performs an authenticated GET and decodes the JSON body. All
// transport and status failures classify as ErrUpstreamUnavailable so
// callers can retry or degrade.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", swap.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: not found: %s", swap.ErrUpstreamUnavailable, url)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d from %s", swap.ErrUpstreamUnavailable, resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", swap.ErrUpstreamUnavailable, err)
	}
	return nil
}

func parseWei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
