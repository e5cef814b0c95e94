// Package storage - Swap session persistence and the session state machine.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/crosslock/crosslockd/internal/secret"
)

// Session persistence errors.
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrInvalidParams     = errors.New("invalid session parameters")
	ErrTerminalState     = errors.New("session is in a terminal state")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// SessionStatus represents the lifecycle state of a swap session.
type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Direction indicates which chain is the value source on creation.
type Direction string

const (
	DirectionEthToAlgo Direction = "eth-to-algo"
	DirectionAlgoToEth Direction = "algo-to-eth"
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool {
	return d == DirectionEthToAlgo || d == DirectionAlgoToEth
}

// SourceChain returns the symbol of the value-bearing chain on creation.
func (d Direction) SourceChain() string {
	if d == DirectionAlgoToEth {
		return "ALGO"
	}
	return "ETH"
}

// Provenance links a session back to the external order it was derived
// from. Audit metadata only; it carries no ownership.
type Provenance struct {
	OrderID       string `json:"order_id"`
	OrderHash     string `json:"order_hash,omitempty"`
	Maker         string `json:"maker,omitempty"`
	Taker         string `json:"taker,omitempty"`
	Token         string `json:"token,omitempty"`
	SafetyDeposit string `json:"safety_deposit,omitempty"`
}

// SwapSession is the canonical record of one cross-chain swap.
// The store exclusively owns it; Secret is a pointer so "not revealed"
// and "revealed as empty" remain distinct through persistence.
type SwapSession struct {
	ID               string        `json:"id"`
	Direction        Direction     `json:"direction"`
	Amount           *big.Int      `json:"amount"`
	SecretHash       string        `json:"secret_hash"` // 0x-prefixed hex, 32 bytes
	Secret           *string       `json:"secret,omitempty"`
	RecipientAddress string        `json:"recipient_address"`
	Timelock         time.Time     `json:"timelock"`
	Status           SessionStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	RedeemedAt       *time.Time    `json:"redeemed_at,omitempty"`
	Provenance       *Provenance   `json:"provenance,omitempty"`
}

// HasExpired reports whether the timelock has lapsed at the given instant.
// This check is authoritative at redemption time regardless of the stored
// status; expiry is evaluated lazily, never by a background sweep.
func (s *SwapSession) HasExpired(now time.Time) bool {
	return !now.Before(s.Timelock)
}

// CreateSession validates creation parameters and persists a new session
// with status pending. The caller supplies ID and CreatedAt is stamped
// here.
func (s *Storage) CreateSession(session *SwapSession) error {
	if session.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidParams)
	}
	if !session.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidParams, session.Direction)
	}
	if session.Amount == nil || session.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidParams)
	}
	if !secret.ValidHashHex(session.SecretHash) {
		return fmt.Errorf("%w: secret hash must be %d bytes of hex", ErrInvalidParams, secret.HashSize)
	}
	if session.RecipientAddress == "" {
		return fmt.Errorf("%w: missing recipient address", ErrInvalidParams)
	}

	now := time.Now()
	if !session.Timelock.After(now) {
		return fmt.Errorf("%w: timelock must be in the future", ErrInvalidParams)
	}

	session.Status = StatusPending
	session.CreatedAt = now

	var provenance *string
	if session.Provenance != nil {
		data, err := json.Marshal(session.Provenance)
		if err != nil {
			return fmt.Errorf("failed to marshal provenance: %w", err)
		}
		str := string(data)
		provenance = &str
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO sessions (
			id, direction, amount, secret_hash, secret,
			recipient_address, timelock, status,
			created_at, redeemed_at, provenance
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		string(session.Direction),
		session.Amount.String(),
		session.SecretHash,
		session.Secret,
		session.RecipientAddress,
		session.Timelock.UnixNano(),
		string(session.Status),
		session.CreatedAt.UnixNano(),
		nil,
		provenance,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID.
func (s *Storage) GetSession(id string) (*SwapSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, direction, amount, secret_hash, secret,
			   recipient_address, timelock, status,
			   created_at, redeemed_at, provenance
		FROM sessions WHERE id = ?
	`, id)

	return scanSession(row)
}

// TransitionPayload carries the proposed mutation for a status change.
type TransitionPayload struct {
	// Secret is set on the pending -> completed transition. It is the
	// verified preimage and becomes write-once.
	Secret *string
}

// TransitionSession applies a state machine transition. Concurrent
// attempts on the same session serialize through the store lock plus a
// compare-and-swap on the pending status, so at most one transition out
// of pending is ever observed.
func (s *Storage) TransitionSession(id string, newStatus SessionStatus, payload *TransitionPayload) (*SwapSession, error) {
	if !newStatus.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot transition to %q", ErrInvalidTransition, newStatus)
	}
	if newStatus == StatusCompleted && (payload == nil || payload.Secret == nil) {
		return nil, fmt.Errorf("%w: completed requires a secret", ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if newStatus == StatusCompleted {
		res, err = s.db.Exec(`
			UPDATE sessions SET status = ?, secret = ?, redeemed_at = ?
			WHERE id = ? AND status = ?
		`, string(StatusCompleted), *payload.Secret, time.Now().UnixNano(), id, string(StatusPending))
	} else {
		res, err = s.db.Exec(`
			UPDATE sessions SET status = ?
			WHERE id = ? AND status = ?
		`, string(StatusExpired), id, string(StatusPending))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the race or unknown ID; read back to tell which.
		row := s.db.QueryRow(`SELECT status FROM sessions WHERE id = ?`, id)
		var status string
		if scanErr := row.Scan(&status); scanErr == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		} else if scanErr != nil {
			return nil, scanErr
		}
		return nil, fmt.Errorf("%w: session is %s", ErrTerminalState, status)
	}

	row := s.db.QueryRow(`
		SELECT id, direction, amount, secret_hash, secret,
			   recipient_address, timelock, status,
			   created_at, redeemed_at, provenance
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns all sessions ordered by creation time ascending.
// No status filtering happens here; that is a view concern.
func (s *Storage) ListSessions() ([]*SwapSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, direction, amount, secret_hash, secret,
			   recipient_address, timelock, status,
			   created_at, redeemed_at, provenance
		FROM sessions
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*SwapSession
	for rows.Next() {
		session, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// rowScanner abstracts sql.Row and sql.Rows for the shared scan path.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row *sql.Row) (*SwapSession, error) {
	session, err := scanSessionFields(row)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	return session, err
}

func scanSessionRows(rows *sql.Rows) (*SwapSession, error) {
	return scanSessionFields(rows)
}

func scanSessionFields(scanner rowScanner) (*SwapSession, error) {
	var (
		session    SwapSession
		direction  string
		amount     string
		secretVal  sql.NullString
		timelock   int64
		status     string
		createdAt  int64
		redeemedAt sql.NullInt64
		provenance sql.NullString
	)

	err := scanner.Scan(
		&session.ID, &direction, &amount, &session.SecretHash, &secretVal,
		&session.RecipientAddress, &timelock, &status,
		&createdAt, &redeemedAt, &provenance,
	)
	if err != nil {
		return nil, err
	}

	session.Direction = Direction(direction)
	session.Status = SessionStatus(status)
	session.Timelock = time.Unix(0, timelock)
	session.CreatedAt = time.Unix(0, createdAt)

	parsed, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount in session %s: %q", session.ID, amount)
	}
	session.Amount = parsed

	if secretVal.Valid {
		value := secretVal.String
		session.Secret = &value
	}
	if redeemedAt.Valid {
		t := time.Unix(0, redeemedAt.Int64)
		session.RedeemedAt = &t
	}
	if provenance.Valid {
		var p Provenance
		if err := json.Unmarshal([]byte(provenance.String), &p); err != nil {
			return nil, fmt.Errorf("corrupt provenance in session %s: %w", session.ID, err)
		}
		session.Provenance = &p
	}

	return &session, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
