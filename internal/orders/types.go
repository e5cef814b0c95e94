// Package orders ingests external intent-market orders (1inch Fusion+
// shape) and evaluates their compatibility with the HTLC swap protocol.
// All order and secret-reveal data is consumed read-only; the analyzer
// never persists anything.
package orders

// LockImmutables is one immutable lock descriptor attached to an external
// order: the hashlock/timelock pair plus settlement metadata.
type LockImmutables struct {
	OrderHash     string `json:"orderHash"`
	Hashlock      string `json:"hashlock"`
	Maker         string `json:"maker"`
	Taker         string `json:"taker"`
	Token         string `json:"token"`
	Amount        string `json:"amount"`
	SafetyDeposit string `json:"safetyDeposit"`

	// Timelocks is the order's relative expiry in seconds. Zero means the
	// order carries no timelock.
	Timelocks uint64 `json:"timelocks"`
}

// SecretReveal is one entry of an order's secret-reveal list. A secret
// equal to the configured sentinel (or empty) means "not yet revealed".
type SecretReveal struct {
	Idx    int    `json:"idx"`
	Secret string `json:"secret"`
}

// ExternalOrder is an externally sourced order with zero or more lock
// descriptors.
type ExternalOrder struct {
	ID            string           `json:"id"`
	ChainID       string           `json:"chainId"`
	Source        string           `json:"source"`
	SrcImmutables []LockImmutables `json:"srcImmutables"`
	DstImmutables []LockImmutables `json:"dstImmutables"`
}

// Locks returns the order's source and destination lock descriptors as a
// single slice, source side first. Index positions in analyzer results
// refer to this ordering.
func (o *ExternalOrder) Locks() []LockImmutables {
	locks := make([]LockImmutables, 0, len(o.SrcImmutables)+len(o.DstImmutables))
	locks = append(locks, o.SrcImmutables...)
	locks = append(locks, o.DstImmutables...)
	return locks
}

// OrderSecrets is the secret-reveal record for an order, keyed by order
// hash on the market side.
type OrderSecrets struct {
	OrderHash    string         `json:"orderHash"`
	OrderType    string         `json:"orderType"`
	Secrets      []SecretReveal `json:"secrets"`
	SecretHashes []string       `json:"secretHashes"`
}
