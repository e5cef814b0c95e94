// Package fees implements the fee tier advisor for the value-bearing
// chain of a swap. All quote and price data is injected; the advisor
// performs pure computation and degrades to a static fallback quote when
// no live quote is available.
package fees

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/crosslock/crosslockd/pkg/helpers"
)

// Tier is a fee priority tier on the EVM chain.
type Tier string

const (
	TierLow     Tier = "low"
	TierMedium  Tier = "medium"
	TierHigh    Tier = "high"
	TierInstant Tier = "instant"
)

// Tiers lists all tiers from cheapest to fastest.
var Tiers = []Tier{TierLow, TierMedium, TierHigh, TierInstant}

// Urgency expresses how quickly the caller wants the swap confirmed.
type Urgency string

const (
	UrgencyLow     Urgency = "low"
	UrgencyNormal  Urgency = "normal"
	UrgencyHigh    Urgency = "high"
	UrgencyInstant Urgency = "instant"
)

// TierQuote holds the fee components for one tier, in wei.
type TierQuote struct {
	MaxFeePerGas         *big.Int `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas"`
}

// GasQuote is a tiered fee quote for the EVM chain.
type GasQuote struct {
	BaseFee   *big.Int           `json:"base_fee"`
	Tiers     map[Tier]TierQuote `json:"tiers"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Thresholds are the configurable amount cutoffs for tier selection,
// in wei of the value-bearing chain.
type Thresholds struct {
	HighValueWei *big.Int
	LowValueWei  *big.Int
}

// GasProfile is the fixed unit-of-work estimate per swap operation.
type GasProfile struct {
	CreateGas uint64
	RedeemGas uint64
}

// Config holds advisor policy and the fixed counterpart chain fees.
type Config struct {
	Thresholds Thresholds
	Profile    GasProfile

	// Counterpart (Algorand) side: flat fee per transaction and the
	// number of transactions a full swap needs there.
	CounterpartFlatFee uint64 // microAlgos per transaction
	CounterpartTxCount uint64

	// Injected reference prices for fiat conversion.
	EthPriceUSD  float64
	AlgoPriceUSD float64

	// Fallback quote in gwei, used when no live quote has been supplied.
	Fallback FallbackQuote

	// TierTimes are per-tier confirmation estimates shown to callers.
	// Missing entries fall back to the built-in defaults.
	TierTimes map[Tier]string
}

// FallbackQuote is a statically configured quote, in gwei.
type FallbackQuote struct {
	BaseFee uint64
	Low     [2]uint64 // maxFee, maxPriority
	Medium  [2]uint64
	High    [2]uint64
	Instant [2]uint64
}

// Cost is a per-tier swap cost estimate covering the create and redeem
// operations on the EVM chain plus the counterpart chain's flat fees.
type Cost struct {
	Tier    Tier   `json:"tier"`
	GasUsed uint64 `json:"gas_used"`

	Wei *big.Int `json:"wei"`
	ETH string   `json:"eth"`
	USD float64  `json:"usd"`

	CounterpartMicroAlgos uint64  `json:"counterpart_micro_algos"`
	CounterpartAlgo       string  `json:"counterpart_algo"`
	CounterpartUSD        float64 `json:"counterpart_usd"`

	TotalUSD float64 `json:"total_usd"`
}

// Comparison reports the fastest and cheapest tiers and the savings
// between them. PotentialSavingsUSD may be zero or negative when the
// injected quote violates fee-rate monotonicity; the anomaly is surfaced,
// not clamped.
type Comparison struct {
	Fastest             *Cost   `json:"fastest"`
	Cheapest            *Cost   `json:"cheapest"`
	PotentialSavingsUSD float64 `json:"potential_savings_usd"`
}

// Advisor recommends fee tiers and estimates swap costs.
type Advisor struct {
	cfg Config

	mu    sync.RWMutex
	quote *GasQuote
}

// NewAdvisor creates an advisor with the given policy. No live quote is
// set; computations use the fallback until SetQuote is called.
func NewAdvisor(cfg Config) *Advisor {
	return &Advisor{cfg: cfg}
}

// SetQuote installs a fresh quote from the market collaborator.
func (a *Advisor) SetQuote(quote *GasQuote) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quote = quote
}

// Quote returns the current quote and whether it is live. With no live
// quote the fallback is returned so callers keep working in a degraded
// mode.
func (a *Advisor) Quote() (*GasQuote, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.quote != nil {
		return a.quote, true
	}
	return a.fallbackQuote(), false
}

func (a *Advisor) fallbackQuote() *GasQuote {
	f := a.cfg.Fallback
	return &GasQuote{
		BaseFee: helpers.GweiToWei(f.BaseFee),
		Tiers: map[Tier]TierQuote{
			TierLow:     {MaxFeePerGas: helpers.GweiToWei(f.Low[0]), MaxPriorityFeePerGas: helpers.GweiToWei(f.Low[1])},
			TierMedium:  {MaxFeePerGas: helpers.GweiToWei(f.Medium[0]), MaxPriorityFeePerGas: helpers.GweiToWei(f.Medium[1])},
			TierHigh:    {MaxFeePerGas: helpers.GweiToWei(f.High[0]), MaxPriorityFeePerGas: helpers.GweiToWei(f.High[1])},
			TierInstant: {MaxFeePerGas: helpers.GweiToWei(f.Instant[0]), MaxPriorityFeePerGas: helpers.GweiToWei(f.Instant[1])},
		},
		FetchedAt: time.Time{},
	}
}

// RecommendTier applies the tier selection policy. Instant urgency always
// wins; amounts above the high-value threshold force at least the high
// tier; low urgency on a small amount selects low; everything else is
// medium.
func (a *Advisor) RecommendTier(amount *big.Int, urgency Urgency) Tier {
	if urgency == UrgencyInstant {
		return TierInstant
	}
	if amount != nil && a.cfg.Thresholds.HighValueWei != nil && amount.Cmp(a.cfg.Thresholds.HighValueWei) > 0 {
		return TierHigh
	}
	if urgency == UrgencyHigh {
		return TierHigh
	}
	if urgency == UrgencyLow && amount != nil && a.cfg.Thresholds.LowValueWei != nil && amount.Cmp(a.cfg.Thresholds.LowValueWei) < 0 {
		return TierLow
	}
	return TierMedium
}

// EstimateCost computes the full swap cost for one tier: create plus
// redeem gas on the EVM chain at the tier's fee rate, plus the
// counterpart chain's flat fees.
func (a *Advisor) EstimateCost(tier Tier, quote *GasQuote) (*Cost, error) {
	tierQuote, ok := quote.Tiers[tier]
	if !ok || tierQuote.MaxFeePerGas == nil {
		return nil, fmt.Errorf("quote has no tier %q", tier)
	}

	gasUsed := a.cfg.Profile.CreateGas + a.cfg.Profile.RedeemGas
	wei := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), tierQuote.MaxFeePerGas)

	usd := weiToUSD(wei, a.cfg.EthPriceUSD)

	counterpartMicro := a.cfg.CounterpartFlatFee * a.cfg.CounterpartTxCount
	counterpartUSD := float64(counterpartMicro) / 1e6 * a.cfg.AlgoPriceUSD

	return &Cost{
		Tier:                  tier,
		GasUsed:               gasUsed,
		Wei:                   wei,
		ETH:                   helpers.WeiToETH(wei),
		USD:                   usd,
		CounterpartMicroAlgos: counterpartMicro,
		CounterpartAlgo:       helpers.MicroAlgosToAlgo(new(big.Int).SetUint64(counterpartMicro)),
		CounterpartUSD:        counterpartUSD,
		TotalUSD:              usd + counterpartUSD,
	}, nil
}

// CompareTiers contrasts the instant tier with the low tier. Savings are
// reported as-is even when a non-monotonic quote makes them non-positive.
func (a *Advisor) CompareTiers(quote *GasQuote) (*Comparison, error) {
	fastest, err := a.EstimateCost(TierInstant, quote)
	if err != nil {
		return nil, err
	}
	cheapest, err := a.EstimateCost(TierLow, quote)
	if err != nil {
		return nil, err
	}

	return &Comparison{
		Fastest:             fastest,
		Cheapest:            cheapest,
		PotentialSavingsUSD: fastest.USD - cheapest.USD,
	}, nil
}

var defaultTierTimes = map[Tier]string{
	TierLow:     "5-10 minutes",
	TierMedium:  "2-5 minutes",
	TierHigh:    "1-2 minutes",
	TierInstant: "< 1 minute",
}

// EstimateTime returns a human-readable confirmation estimate per tier,
// preferring configured values over the built-in defaults.
func (a *Advisor) EstimateTime(tier Tier) string {
	if estimate, ok := a.cfg.TierTimes[tier]; ok && estimate != "" {
		return estimate
	}
	if estimate, ok := defaultTierTimes[tier]; ok {
		return estimate
	}
	return "unknown"
}

// weiToUSD converts a wei amount to USD at the injected price. Float
// conversion is display-only; protocol arithmetic stays integral.
func weiToUSD(wei *big.Int, ethPriceUSD float64) float64 {
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	value, _ := new(big.Float).Mul(eth, big.NewFloat(ethPriceUSD)).Float64()
	return value
}
