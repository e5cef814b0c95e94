package orders

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/crosslock/crosslockd/internal/secret"
	"github.com/crosslock/crosslockd/internal/storage"
)

// DefaultUnrevealedSentinel is the market convention for a not-yet-revealed
// secret slot. The sentinel is configuration because the upstream format
// never pins it down, and in principle a real secret could collide with
// any chosen marker.
const DefaultUnrevealedSentinel = "0x"

// Analyzer evaluates external orders against the HTLC protocol's
// hashlock/timelock requirements.
type Analyzer struct {
	unrevealedSentinel string
}

// NewAnalyzer creates an analyzer. An empty sentinel selects the default.
func NewAnalyzer(unrevealedSentinel string) *Analyzer {
	if unrevealedSentinel == "" {
		unrevealedSentinel = DefaultUnrevealedSentinel
	}
	return &Analyzer{unrevealedSentinel: unrevealedSentinel}
}

// Assessment is the structural compatibility report for an order. Missing
// features are findings, not errors; the call itself succeeds.
type Assessment struct {
	HashlockPresent bool     `json:"hashlock_present"`
	TimelockPresent bool     `json:"timelock_present"`
	Compatible      bool     `json:"compatible"`
	MissingFeatures []string `json:"missing_features"`
	Recommendations []string `json:"recommendations"`
}

// AssessHashlockTimelock performs the structural check: every lock
// descriptor must carry both a hashlock and a timelock for the order to
// be bridgeable into the swap protocol.
func (a *Analyzer) AssessHashlockTimelock(order *ExternalOrder) *Assessment {
	locks := order.Locks()

	assessment := &Assessment{
		MissingFeatures: []string{},
		Recommendations: []string{},
	}

	if len(locks) == 0 {
		assessment.MissingFeatures = append(assessment.MissingFeatures, "lock descriptors")
		assessment.Recommendations = append(assessment.Recommendations, "order carries no lock descriptors to bridge")
		return assessment
	}

	hashlocks := 0
	timelocks := 0
	for _, lock := range locks {
		if secret.ValidHashHex(lock.Hashlock) {
			hashlocks++
		}
		if lock.Timelocks > 0 {
			timelocks++
		}
	}

	assessment.HashlockPresent = hashlocks == len(locks)
	assessment.TimelockPresent = timelocks == len(locks)
	assessment.Compatible = assessment.HashlockPresent && assessment.TimelockPresent

	if !assessment.HashlockPresent {
		assessment.MissingFeatures = append(assessment.MissingFeatures, "hashlock")
		assessment.Recommendations = append(assessment.Recommendations, "add a hashlock mechanism for secret verification")
	}
	if !assessment.TimelockPresent {
		assessment.MissingFeatures = append(assessment.MissingFeatures, "timelock")
		assessment.Recommendations = append(assessment.Recommendations, "add a timelock mechanism for expiration handling")
	}

	return assessment
}

// Match pairs a lock descriptor with the revealed secret satisfying its
// hashlock, if any. SecretIndex is nil when no revealed secret matches.
type Match struct {
	LockIndex   int            `json:"lock_index"`
	Lock        LockImmutables `json:"lock"`
	SecretIndex *int           `json:"secret_index,omitempty"`
}

// MatchSecrets scans the revealed secrets for every lock descriptor.
// Unrevealed entries (sentinel or empty) are skipped; verification uses
// the constant-time digest comparison. Each reveal is consumed by at most
// one lock, so when locks share a hashlock the lower lock index claims
// the reveal. If several secrets satisfy one hashlock the lowest reveal
// index wins, deterministically.
func (a *Analyzer) MatchSecrets(order *ExternalOrder, reveals []SecretReveal) []Match {
	sorted := make([]SecretReveal, len(reveals))
	copy(sorted, reveals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Idx < sorted[j].Idx })

	locks := order.Locks()
	matches := make([]Match, 0, len(locks))
	consumed := make([]bool, len(sorted))

	for i, lock := range locks {
		match := Match{LockIndex: i, Lock: lock}
		for j, reveal := range sorted {
			if consumed[j] || reveal.Secret == "" || reveal.Secret == a.unrevealedSentinel {
				continue
			}
			if secret.VerifyHex(reveal.Secret, lock.Hashlock) {
				idx := reveal.Idx
				match.SecretIndex = &idx
				consumed[j] = true
				break
			}
		}
		matches = append(matches, match)
	}

	return matches
}

// IsSwapReady reports whether redemption can begin: every lock has a
// hashlock and a timelock, and at least one lock has a matched revealed
// secret. It does not require all locks to have secrets.
func (a *Analyzer) IsSwapReady(order *ExternalOrder, reveals []SecretReveal) bool {
	assessment := a.AssessHashlockTimelock(order)
	if !assessment.Compatible {
		return false
	}

	for _, match := range a.MatchSecrets(order, reveals) {
		if match.SecretIndex != nil {
			return true
		}
	}
	return false
}

// ProposeSession maps a matched lock descriptor onto swap session
// creation parameters. The draft is not persisted; session creation stays
// with the store as the single writer. The recipient defaults to the
// lock's taker when the caller does not name one.
func (a *Analyzer) ProposeSession(order *ExternalOrder, lock LockImmutables, recipient string, direction storage.Direction) (*storage.SwapSession, error) {
	if !secret.ValidHashHex(lock.Hashlock) {
		return nil, fmt.Errorf("lock has no usable hashlock")
	}
	if lock.Timelocks == 0 {
		return nil, fmt.Errorf("lock has no timelock")
	}

	amount, ok := new(big.Int).SetString(lock.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("lock has no usable amount: %q", lock.Amount)
	}

	if recipient == "" {
		recipient = lock.Taker
	}

	return &storage.SwapSession{
		Direction:        direction,
		Amount:           amount,
		SecretHash:       lock.Hashlock,
		RecipientAddress: recipient,
		Timelock:         time.Now().Add(time.Duration(lock.Timelocks) * time.Second),
		Provenance: &storage.Provenance{
			OrderID:       order.ID,
			OrderHash:     lock.OrderHash,
			Maker:         lock.Maker,
			Taker:         lock.Taker,
			Token:         lock.Token,
			SafetyDeposit: lock.SafetyDeposit,
		},
	}, nil
}
