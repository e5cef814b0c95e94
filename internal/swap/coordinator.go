// Package swap - Session coordinator.
// The coordinator owns the off-chain bookkeeping of a swap: it validates
// creation input, consults the fee advisor, builds descriptors through
// the builder, and drives the session state machine through the store.
package swap

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/orders"
	"github.com/crosslock/crosslockd/internal/secret"
	"github.com/crosslock/crosslockd/internal/storage"
	"github.com/crosslock/crosslockd/pkg/helpers"
	"github.com/crosslock/crosslockd/pkg/logging"
)

// DefaultTimelockTTL is how far in the future a session's timelock sits
// when the caller does not specify one.
const DefaultTimelockTTL = 24 * time.Hour

// EventSink receives session lifecycle events for broadcast. Nil sinks
// are permitted.
type EventSink func(event string, data interface{})

// SessionStore is the coordinator's view of session persistence: create,
// get, transition and list. The store serializes concurrent transitions
// per session so at most one completion is ever observed.
type SessionStore interface {
	CreateSession(session *storage.SwapSession) error
	GetSession(id string) (*storage.SwapSession, error)
	TransitionSession(id string, newStatus storage.SessionStatus, payload *storage.TransitionPayload) (*storage.SwapSession, error)
	ListSessions() ([]*storage.SwapSession, error)
}

var _ SessionStore = (*storage.Storage)(nil)

// Coordinator wires the secret engine, session store, fee advisor,
// analyzer and descriptor builder together.
type Coordinator struct {
	store    SessionStore
	advisor  *fees.Advisor
	analyzer *orders.Analyzer
	builder  *Builder
	network  chain.Network
	events   EventSink
	log      *logging.Logger
}

// NewCoordinator creates a coordinator. The store must already be
// initialized; it stays the single writer for session state.
func NewCoordinator(store SessionStore, advisor *fees.Advisor, analyzer *orders.Analyzer, builder *Builder, network chain.Network, events EventSink) *Coordinator {
	return &Coordinator{
		store:    store,
		advisor:  advisor,
		analyzer: analyzer,
		builder:  builder,
		network:  network,
		events:   events,
		log:      logging.GetDefault().Component("swap"),
	}
}

// InitiateParams are the caller-supplied session creation parameters.
// Amount is in the smallest unit of the value-bearing chain.
type InitiateParams struct {
	Direction        storage.Direction
	Amount           *big.Int
	SecretHash       string
	RecipientAddress string
	Timelock         time.Time // zero value selects DefaultTimelockTTL
	Urgency          fees.Urgency
	Provenance       *storage.Provenance
}

// InitiateResult is the created session plus the create-phase descriptors
// and the fee estimate that went into them.
type InitiateResult struct {
	Session     *storage.SwapSession `json:"session"`
	Descriptors *Descriptors         `json:"descriptors"`
	Tier        fees.Tier            `json:"tier"`
	Cost        *fees.Cost           `json:"cost"`
	QuoteLive   bool                 `json:"quote_live"`
}

// Initiate validates parameters, estimates fees, builds the create-phase
// descriptors and persists the new session.
func (c *Coordinator) Initiate(params InitiateParams) (*InitiateResult, error) {
	if !params.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", storage.ErrInvalidParams, params.Direction)
	}
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", storage.ErrInvalidParams)
	}
	if !secret.ValidHashHex(params.SecretHash) {
		return nil, fmt.Errorf("%w: secret hash must be %d bytes of hex", storage.ErrInvalidParams, secret.HashSize)
	}

	// The recipient lives on the destination chain.
	destChain := "ALGO"
	if params.Direction == storage.DirectionAlgoToEth {
		destChain = "ETH"
	}
	if err := chain.ValidateAddress(destChain, c.network, params.RecipientAddress); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidParams, err)
	}

	timelock := params.Timelock
	if timelock.IsZero() {
		timelock = time.Now().Add(DefaultTimelockTTL)
	}

	session := &storage.SwapSession{
		ID:               uuid.NewString(),
		Direction:        params.Direction,
		Amount:           params.Amount,
		SecretHash:       normalizeHex(params.SecretHash),
		RecipientAddress: params.RecipientAddress,
		Timelock:         timelock,
		Provenance:       params.Provenance,
	}

	tier := c.advisor.RecommendTier(params.Amount, params.Urgency)
	quote, live := c.advisor.Quote()
	cost, err := c.advisor.EstimateCost(tier, quote)
	if err != nil {
		return nil, fmt.Errorf("fee estimate failed: %w", err)
	}
	tierQuote := quote.Tiers[tier]

	descriptors, err := c.builder.BuildCreateDescriptors(session, &tierQuote, 0)
	if err != nil {
		return nil, err
	}

	if err := c.store.CreateSession(session); err != nil {
		return nil, err
	}

	c.log.Info("Swap initiated",
		"id", session.ID,
		"direction", session.Direction,
		"amount", session.Amount.String(),
		"timelock", session.Timelock.Format(time.RFC3339),
		"tier", tier,
	)
	c.emit("session_created", session)

	return &InitiateResult{
		Session:     session,
		Descriptors: descriptors,
		Tier:        tier,
		Cost:        cost,
		QuoteLive:   live,
	}, nil
}

// RedeemResult is the completed session plus redeem-phase descriptors.
type RedeemResult struct {
	Session     *storage.SwapSession `json:"session"`
	Descriptors *Descriptors         `json:"descriptors"`
}

// Redeem verifies the revealed secret against the stored hashlock, checks
// the timelock, and transitions the session to completed. For pending
// sessions the expiry check "now < timelock" is authoritative regardless
// of the stored status; a lapsed session fails with ErrSwapExpired even
// if nothing had marked it expired yet. A completed session is terminal
// no matter what the clock says.
func (c *Coordinator) Redeem(id, secretHex string) (*RedeemResult, error) {
	session, err := c.store.GetSession(id)
	if err != nil {
		return nil, err
	}

	if session.Status == storage.StatusCompleted {
		return nil, fmt.Errorf("%w: session is %s", storage.ErrTerminalState, session.Status)
	}

	now := time.Now()
	if session.HasExpired(now) {
		c.markExpired(session)
		return nil, fmt.Errorf("%w: session %s", ErrSwapExpired, id)
	}
	if session.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: session is %s", storage.ErrTerminalState, session.Status)
	}

	if !secret.VerifyHex(secretHex, session.SecretHash) {
		c.log.Warn("Secret verification failed", "id", id)
		return nil, fmt.Errorf("%w: session %s", ErrVerificationFailed, id)
	}

	normalized := normalizeHex(secretHex)
	updated, err := c.store.TransitionSession(id, storage.StatusCompleted, &storage.TransitionPayload{
		Secret: &normalized,
	})
	if err != nil {
		return nil, err
	}

	descriptors, err := c.builder.BuildRedeemDescriptors(updated, 0)
	if err != nil {
		return nil, err
	}

	c.log.Info("Swap redeemed", "id", id)
	c.emit("session_completed", updated)

	return &RedeemResult{Session: updated, Descriptors: descriptors}, nil
}

// Get returns a session, lazily marking it expired if its timelock has
// lapsed while it was still pending. Expiry is never swept in the
// background; reads and redemption attempts are the evaluation points.
func (c *Coordinator) Get(id string) (*storage.SwapSession, error) {
	session, err := c.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	if session.Status == storage.StatusPending && session.HasExpired(time.Now()) {
		if expired := c.markExpired(session); expired != nil {
			return expired, nil
		}
	}
	return session, nil
}

// List returns all sessions in creation order. Status filtering is left
// to the caller.
func (c *Coordinator) List() ([]*storage.SwapSession, error) {
	return c.store.ListSessions()
}

// CreateFromOrder bridges an analyzed external order into a swap session.
// The order must be structurally compatible; the first lock with a
// matched revealed secret is preferred, falling back to the first lock.
func (c *Coordinator) CreateFromOrder(order *orders.ExternalOrder, reveals []orders.SecretReveal, recipient string, urgency fees.Urgency) (*InitiateResult, error) {
	assessment := c.analyzer.AssessHashlockTimelock(order)
	if !assessment.Compatible {
		return nil, fmt.Errorf("%w: missing %s", ErrOrderNotCompatible, strings.Join(assessment.MissingFeatures, ", "))
	}

	matches := c.analyzer.MatchSecrets(order, reveals)
	chosen := matches[0].Lock
	for _, match := range matches {
		if match.SecretIndex != nil {
			chosen = match.Lock
			break
		}
	}

	// The configured network's EVM chain ID marks the order's source side.
	direction := storage.DirectionAlgoToEth
	eth, _ := chain.Get("ETH", c.network)
	if order.ChainID == "" || order.ChainID == strconv.FormatUint(eth.ChainID, 10) {
		direction = storage.DirectionEthToAlgo
	}

	draft, err := c.analyzer.ProposeSession(order, chosen, recipient, direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderNotCompatible, err)
	}

	return c.Initiate(InitiateParams{
		Direction:        draft.Direction,
		Amount:           draft.Amount,
		SecretHash:       draft.SecretHash,
		RecipientAddress: draft.RecipientAddress,
		Timelock:         draft.Timelock,
		Urgency:          urgency,
		Provenance:       draft.Provenance,
	})
}

// markExpired attempts the pending -> expired transition. Losing the race
// to a concurrent redeem or a second expiry observer is not an error.
func (c *Coordinator) markExpired(session *storage.SwapSession) *storage.SwapSession {
	updated, err := c.store.TransitionSession(session.ID, storage.StatusExpired, nil)
	if err != nil {
		if !errors.Is(err, storage.ErrTerminalState) {
			c.log.Warn("Failed to mark session expired", "id", session.ID, "error", err)
		}
		return nil
	}
	c.log.Info("Swap expired", "id", session.ID)
	c.emit("session_expired", updated)
	return updated
}

func (c *Coordinator) emit(event string, data interface{}) {
	if c.events != nil {
		c.events(event, data)
	}
}

// normalizeHex lowercases a hex string and guarantees a 0x prefix so
// stored values compare bytewise.
func normalizeHex(s string) string {
	return helpers.BytesToHex(mustHexBytes(s))
}

func mustHexBytes(s string) []byte {
	b, err := helpers.HexToBytes(s)
	if err != nil {
		// Callers validate before normalizing.
		return nil
	}
	return b
}
