package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/orders"
	"github.com/crosslock/crosslockd/internal/secret"
	"github.com/crosslock/crosslockd/internal/storage"
	"github.com/crosslock/crosslockd/internal/swap"
	"github.com/crosslock/crosslockd/pkg/helpers"
)

// ========================================
// Node handlers
// ========================================

// NodeStatusResult is the result of node_status.
type NodeStatusResult struct {
	Version       string `json:"version"`
	Network       string `json:"network"`
	Sessions      int    `json:"sessions"`
	WSClients     int    `json:"ws_clients"`
	GasQuoteLive  bool   `json:"gas_quote_live"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) nodeStatus(ctx context.Context, params json.RawMessage) (interface{}, error) {
	sessions, err := s.coordinator.List()
	if err != nil {
		return nil, err
	}

	_, live := s.advisor.Quote()

	clients := 0
	if s.wsHub != nil {
		clients = s.wsHub.ClientCount()
	}

	return NodeStatusResult{
		Version:       s.version,
		Network:       string(s.network),
		Sessions:      len(sessions),
		WSClients:     clients,
		GasQuoteLive:  live,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}, nil
}

// ========================================
// Secret engine handlers
// ========================================

// SecretGenerateResult is the result of secret_generate.
type SecretGenerateResult struct {
	Secret     string `json:"secret"`      // 0x-prefixed, 32 bytes
	SecretHash string `json:"secret_hash"` // SHA-256 of the secret
}

func (s *Server) secretGenerate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	sec, hash, err := secret.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	return SecretGenerateResult{
		Secret:     helpers.BytesToHex(sec),
		SecretHash: helpers.BytesToHex(hash),
	}, nil
}

// ========================================
// Swap session handlers
// ========================================

// SwapInitiateParams is the parameters for swap_initiate.
type SwapInitiateParams struct {
	Direction        string `json:"direction"`         // "eth-to-algo" or "algo-to-eth"
	Amount           string `json:"amount"`            // Decimal, in whole units of the source chain
	SecretHash       string `json:"secret_hash"`       // 0x-prefixed, 32 bytes
	RecipientAddress string `json:"recipient_address"` // Destination chain address
	TimelockSeconds  int64  `json:"timelock_seconds"`  // Optional, default 24h
	Urgency          string `json:"urgency"`           // Optional, default "normal"
}

func (s *Server) swapInitiate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapInitiateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}

	direction := storage.Direction(p.Direction)
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", storage.ErrInvalidParams, p.Direction)
	}

	// Amounts cross the RPC boundary in whole units; the source chain's
	// decimals determine the smallest-unit scale.
	src, ok := chain.Get(direction.SourceChain(), s.network)
	if !ok {
		return nil, fmt.Errorf("%w: no chain params for %s on %s", storage.ErrInvalidParams, direction.SourceChain(), s.network)
	}
	amount, err := helpers.ParseAmount(p.Amount, src.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", storage.ErrInvalidParams, err)
	}

	var timelock time.Time
	if p.TimelockSeconds > 0 {
		timelock = time.Now().Add(time.Duration(p.TimelockSeconds) * time.Second)
	}

	result, err := s.coordinator.Initiate(swap.InitiateParams{
		Direction:        direction,
		Amount:           amount,
		SecretHash:       p.SecretHash,
		RecipientAddress: p.RecipientAddress,
		Timelock:         timelock,
		Urgency:          fees.Urgency(p.Urgency),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Swap initiated",
		"id", result.Session.ID,
		"direction", p.Direction,
		"amount", fmt.Sprintf("%s %s", p.Amount, direction.SourceChain()),
		"tier", result.Tier)

	return result, nil
}

// SwapRedeemParams is the parameters for swap_redeem.
type SwapRedeemParams struct {
	SessionID string `json:"session_id"`
	Secret    string `json:"secret"` // 0x-prefixed, 32 bytes
}

func (s *Server) swapRedeem(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapRedeemParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", storage.ErrInvalidParams)
	}

	result, err := s.coordinator.Redeem(p.SessionID, p.Secret)
	if err != nil {
		return nil, err
	}

	s.log.Info("Swap redeemed", "id", p.SessionID)

	return result, nil
}

// SwapGetParams is the parameters for swap_get.
type SwapGetParams struct {
	SessionID string `json:"session_id"`
}

func (s *Server) swapGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapGetParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", storage.ErrInvalidParams)
	}

	return s.coordinator.Get(p.SessionID)
}

// SwapListResult is the result of swap_list.
type SwapListResult struct {
	Sessions []*storage.SwapSession `json:"sessions"`
	Count    int                    `json:"count"`
}

func (s *Server) swapList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	sessions, err := s.coordinator.List()
	if err != nil {
		return nil, err
	}

	return SwapListResult{
		Sessions: sessions,
		Count:    len(sessions),
	}, nil
}

// SwapCreateFromOrderParams is the parameters for swap_createFromOrder.
type SwapCreateFromOrderParams struct {
	Order            *orders.ExternalOrder `json:"order"`
	Secrets          []orders.SecretReveal `json:"secrets"`
	RecipientAddress string                `json:"recipient_address"` // Optional, defaults to the lock's taker
	Urgency          string                `json:"urgency"`           // Optional, default "normal"
}

func (s *Server) swapCreateFromOrder(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p SwapCreateFromOrderParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.Order == nil {
		return nil, fmt.Errorf("%w: order is required", storage.ErrInvalidParams)
	}

	result, err := s.coordinator.CreateFromOrder(p.Order, p.Secrets, p.RecipientAddress, fees.Urgency(p.Urgency))
	if err != nil {
		return nil, err
	}

	s.log.Info("Swap created from order",
		"id", result.Session.ID,
		"order", p.Order.ID,
		"tier", result.Tier)

	return result, nil
}

// ========================================
// Order analysis handlers
// ========================================

// OrdersAnalyzeParams is the parameters for orders_analyze.
type OrdersAnalyzeParams struct {
	Order *orders.ExternalOrder `json:"order"`
}

func (s *Server) ordersAnalyze(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p OrdersAnalyzeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.Order == nil {
		return nil, fmt.Errorf("%w: order is required", storage.ErrInvalidParams)
	}

	return s.analyzer.AssessHashlockTimelock(p.Order), nil
}

// OrdersAnalyzeSecretsParams is the parameters for orders_analyzeSecrets.
type OrdersAnalyzeSecretsParams struct {
	Order   *orders.ExternalOrder `json:"order"`
	Secrets []orders.SecretReveal `json:"secrets"`
}

// OrdersAnalyzeSecretsResult is the result of orders_analyzeSecrets.
type OrdersAnalyzeSecretsResult struct {
	Matches   []orders.Match `json:"matches"`
	SwapReady bool           `json:"swap_ready"`
}

func (s *Server) ordersAnalyzeSecrets(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p OrdersAnalyzeSecretsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.Order == nil {
		return nil, fmt.Errorf("%w: order is required", storage.ErrInvalidParams)
	}

	return OrdersAnalyzeSecretsResult{
		Matches:   s.analyzer.MatchSecrets(p.Order, p.Secrets),
		SwapReady: s.analyzer.IsSwapReady(p.Order, p.Secrets),
	}, nil
}

// ReadyOrder pairs a fetched order with its compatibility assessment.
type ReadyOrder struct {
	Order      orders.ExternalOrder `json:"order"`
	Assessment *orders.Assessment   `json:"assessment"`
}

// OrdersFetchReadyResult is the result of orders_fetchReady.
type OrdersFetchReadyResult struct {
	Orders []ReadyOrder `json:"orders"`
	Count  int          `json:"count"`
}

func (s *Server) ordersFetchReady(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.market == nil {
		return nil, fmt.Errorf("%w: no market client configured", swap.ErrUpstreamUnavailable)
	}

	fetched, err := s.market.GetReadyOrders(ctx)
	if err != nil {
		return nil, err
	}

	result := OrdersFetchReadyResult{
		Orders: make([]ReadyOrder, 0, len(fetched)),
		Count:  len(fetched),
	}
	for i := range fetched {
		result.Orders = append(result.Orders, ReadyOrder{
			Order:      fetched[i],
			Assessment: s.analyzer.AssessHashlockTimelock(&fetched[i]),
		})
	}
	return result, nil
}

// OrdersFetchSecretsParams is the parameters for orders_fetchSecrets.
type OrdersFetchSecretsParams struct {
	OrderHash string `json:"order_hash"`
}

// OrdersFetchSecretsResult is the result of orders_fetchSecrets.
type OrdersFetchSecretsResult struct {
	Order     orders.ExternalOrder `json:"order"`
	Secrets   orders.OrderSecrets  `json:"secrets"`
	Matches   []orders.Match       `json:"matches"`
	SwapReady bool                 `json:"swap_ready"`
}

func (s *Server) ordersFetchSecrets(ctx context.Context, params json.RawMessage) (interface{}, error) {
	if s.market == nil {
		return nil, fmt.Errorf("%w: no market client configured", swap.ErrUpstreamUnavailable)
	}

	var p OrdersFetchSecretsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}
	if p.OrderHash == "" {
		return nil, fmt.Errorf("%w: order_hash is required", storage.ErrInvalidParams)
	}

	got, err := s.market.GetOrderSecrets(ctx, p.OrderHash)
	if err != nil {
		return nil, err
	}

	return OrdersFetchSecretsResult{
		Order:     got.Order,
		Secrets:   got.Reveals,
		Matches:   s.analyzer.MatchSecrets(&got.Order, got.Reveals.Secrets),
		SwapReady: s.analyzer.IsSwapReady(&got.Order, got.Reveals.Secrets),
	}, nil
}

// ========================================
// Fee advisor handlers
// ========================================

// TierEstimate pairs a tier's cost with its confirmation time estimate.
type TierEstimate struct {
	Cost          *fees.Cost `json:"cost"`
	EstimatedTime string     `json:"estimated_time"`
}

// GasPricesResult is the result of gas_prices.
type GasPricesResult struct {
	Quote *fees.GasQuote              `json:"quote"`
	Live  bool                        `json:"live"`
	Tiers map[fees.Tier]*TierEstimate `json:"tiers"`
}

func (s *Server) gasPrices(ctx context.Context, params json.RawMessage) (interface{}, error) {
	quote, live := s.advisor.Quote()

	tiers := make(map[fees.Tier]*TierEstimate, len(fees.Tiers))
	for _, tier := range fees.Tiers {
		cost, err := s.advisor.EstimateCost(tier, quote)
		if err != nil {
			return nil, err
		}
		tiers[tier] = &TierEstimate{
			Cost:          cost,
			EstimatedTime: s.advisor.EstimateTime(tier),
		}
	}

	return GasPricesResult{
		Quote: quote,
		Live:  live,
		Tiers: tiers,
	}, nil
}

// GasOptimizeParams is the parameters for gas_optimize.
type GasOptimizeParams struct {
	Amount  string `json:"amount"`  // Decimal ETH being swapped
	Urgency string `json:"urgency"` // Optional, default "normal"
}

// GasOptimizeResult is the result of gas_optimize.
type GasOptimizeResult struct {
	Recommended   fees.Tier        `json:"recommended"`
	Cost          *fees.Cost       `json:"cost"`
	EstimatedTime string           `json:"estimated_time"`
	Comparison    *fees.Comparison `json:"comparison"`
	Live          bool             `json:"live"`
}

func (s *Server) gasOptimize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p GasOptimizeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}

	eth, ok := chain.Get("ETH", s.network)
	if !ok {
		return nil, fmt.Errorf("%w: no ETH chain params for %s", storage.ErrInvalidParams, s.network)
	}
	amount, err := helpers.ParseAmount(p.Amount, eth.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: amount: %v", storage.ErrInvalidParams, err)
	}

	urgency := fees.Urgency(p.Urgency)
	if urgency == "" {
		urgency = fees.UrgencyNormal
	}

	quote, live := s.advisor.Quote()
	tier := s.advisor.RecommendTier(amount, urgency)

	cost, err := s.advisor.EstimateCost(tier, quote)
	if err != nil {
		return nil, err
	}
	comparison, err := s.advisor.CompareTiers(quote)
	if err != nil {
		return nil, err
	}

	return GasOptimizeResult{
		Recommended:   tier,
		Cost:          cost,
		EstimatedTime: s.advisor.EstimateTime(tier),
		Comparison:    comparison,
		Live:          live,
	}, nil
}
