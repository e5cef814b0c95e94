package storage

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"
)

const testSecretHash = "0x66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"

// newTestStore creates a store backed by a throwaway directory.
func newTestStore(t *testing.T) *Storage {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "crosslock-session-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := New(&Config{DataDir: tmpDir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

// newTestSession creates a pending session with sensible defaults.
func newTestSession(id string) *SwapSession {
	return &SwapSession{
		ID:               id,
		Direction:        DirectionEthToAlgo,
		Amount:           big.NewInt(1500000000000000000), // 1.5 ETH in wei
		SecretHash:       testSecretHash,
		RecipientAddress: "GD64YIY3TWGDMCNPP553DZPPR6LDUSFQOIJVFDPPXWEG3FVOJCCDBBHU5A",
		Timelock:         time.Now().Add(24 * time.Hour),
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	session := newTestSession("session-001")
	session.Provenance = &Provenance{
		OrderID:   "order-42",
		OrderHash: "0xabc",
		Maker:     "0x1111111111111111111111111111111111111111",
	}

	if err := store.CreateSession(session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := store.GetSession("session-001")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}

	if got.ID != session.ID {
		t.Errorf("ID = %s, want %s", got.ID, session.ID)
	}
	if got.Direction != DirectionEthToAlgo {
		t.Errorf("Direction = %s, want %s", got.Direction, DirectionEthToAlgo)
	}
	if got.Amount.Cmp(session.Amount) != 0 {
		t.Errorf("Amount = %s, want %s", got.Amount, session.Amount)
	}
	if got.SecretHash != testSecretHash {
		t.Errorf("SecretHash = %s, want %s", got.SecretHash, testSecretHash)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %s, want %s", got.Status, StatusPending)
	}
	if !got.Timelock.Equal(session.Timelock) {
		t.Errorf("Timelock = %v, want %v", got.Timelock, session.Timelock)
	}
	if !got.CreatedAt.Equal(session.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, session.CreatedAt)
	}
	if got.Secret != nil {
		t.Errorf("Secret = %v, want nil before redemption", *got.Secret)
	}
	if got.RedeemedAt != nil {
		t.Error("RedeemedAt should be nil before redemption")
	}
	if got.Provenance == nil || got.Provenance.OrderID != "order-42" {
		t.Errorf("Provenance = %+v, want order-42", got.Provenance)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*SwapSession)
	}{
		{"missing id", func(s *SwapSession) { s.ID = "" }},
		{"bad direction", func(s *SwapSession) { s.Direction = "btc-to-ltc" }},
		{"nil amount", func(s *SwapSession) { s.Amount = nil }},
		{"zero amount", func(s *SwapSession) { s.Amount = big.NewInt(0) }},
		{"negative amount", func(s *SwapSession) { s.Amount = big.NewInt(-1) }},
		{"short hash", func(s *SwapSession) { s.SecretHash = "0xdeadbeef" }},
		{"missing recipient", func(s *SwapSession) { s.RecipientAddress = "" }},
		{"past timelock", func(s *SwapSession) { s.Timelock = time.Now().Add(-time.Minute) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession("session-invalid")
			tt.mutate(session)
			err := store.CreateSession(session)
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("CreateSession() error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestCreateSessionDuplicate(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(newTestSession("session-dup")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	err := store.CreateSession(newTestSession("session-dup"))
	if !errors.Is(err, ErrSessionExists) {
		t.Errorf("CreateSession() duplicate error = %v, want ErrSessionExists", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestTransitionToCompleted(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(newTestSession("session-redeem")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	secret := "0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	got, err := store.TransitionSession("session-redeem", StatusCompleted, &TransitionPayload{Secret: &secret})
	if err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}

	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want %s", got.Status, StatusCompleted)
	}
	if got.Secret == nil || *got.Secret != secret {
		t.Errorf("Secret = %v, want %s", got.Secret, secret)
	}
	if got.RedeemedAt == nil {
		t.Error("RedeemedAt should be set after completion")
	}
}

func TestTransitionToExpired(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(newTestSession("session-expire")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := store.TransitionSession("session-expire", StatusExpired, nil)
	if err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}

	if got.Status != StatusExpired {
		t.Errorf("Status = %s, want %s", got.Status, StatusExpired)
	}
	if got.Secret != nil {
		t.Error("Secret should remain unset on expiry")
	}
	if got.RedeemedAt != nil {
		t.Error("RedeemedAt should remain unset on expiry")
	}
}

func TestTransitionValidation(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(newTestSession("session-trans")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	// Pending is not a terminal target
	if _, err := store.TransitionSession("session-trans", StatusPending, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("transition to pending error = %v, want ErrInvalidTransition", err)
	}

	// Completed without a secret is rejected
	if _, err := store.TransitionSession("session-trans", StatusCompleted, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed without secret error = %v, want ErrInvalidTransition", err)
	}
	if _, err := store.TransitionSession("session-trans", StatusCompleted, &TransitionPayload{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed with nil secret error = %v, want ErrInvalidTransition", err)
	}

	// Unknown ID
	secret := "0x00"
	if _, err := store.TransitionSession("missing", StatusCompleted, &TransitionPayload{Secret: &secret}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("transition of missing session error = %v, want ErrSessionNotFound", err)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	store := newTestStore(t)

	secret := "0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

	// Completed stays completed
	if err := store.CreateSession(newTestSession("session-final-1")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := store.TransitionSession("session-final-1", StatusCompleted, &TransitionPayload{Secret: &secret}); err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}
	if _, err := store.TransitionSession("session-final-1", StatusExpired, nil); !errors.Is(err, ErrTerminalState) {
		t.Errorf("completed -> expired error = %v, want ErrTerminalState", err)
	}
	if _, err := store.TransitionSession("session-final-1", StatusCompleted, &TransitionPayload{Secret: &secret}); !errors.Is(err, ErrTerminalState) {
		t.Errorf("second completion error = %v, want ErrTerminalState", err)
	}

	// Expired stays expired; the stored record never gains a secret
	if err := store.CreateSession(newTestSession("session-final-2")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := store.TransitionSession("session-final-2", StatusExpired, nil); err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}
	if _, err := store.TransitionSession("session-final-2", StatusCompleted, &TransitionPayload{Secret: &secret}); !errors.Is(err, ErrTerminalState) {
		t.Errorf("expired -> completed error = %v, want ErrTerminalState", err)
	}
	got, err := store.GetSession("session-final-2")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.Secret != nil {
		t.Error("expired session must not gain a secret from a rejected transition")
	}
}

func TestEmptySecretIsDistinctFromAbsent(t *testing.T) {
	store := newTestStore(t)

	if err := store.CreateSession(newTestSession("session-empty")); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	empty := ""
	got, err := store.TransitionSession("session-empty", StatusCompleted, &TransitionPayload{Secret: &empty})
	if err != nil {
		t.Fatalf("TransitionSession() error = %v", err)
	}

	if got.Secret == nil {
		t.Fatal("empty-string secret came back as absent")
	}
	if *got.Secret != "" {
		t.Errorf("Secret = %q, want empty string", *got.Secret)
	}
}

func TestListSessionsOrdering(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		session := newTestSession(fmt.Sprintf("session-%03d", i))
		if err := store.CreateSession(session); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
		// Nanosecond timestamps keep insertion order stable, but don't
		// rely on scheduler granularity.
		time.Sleep(time.Millisecond)
	}

	sessions, err := store.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 5 {
		t.Fatalf("ListSessions() returned %d sessions, want 5", len(sessions))
	}
	for i := 1; i < len(sessions); i++ {
		if sessions[i].CreatedAt.Before(sessions[i-1].CreatedAt) {
			t.Errorf("sessions out of order at index %d", i)
		}
	}
	if sessions[0].ID != "session-000" {
		t.Errorf("first session = %s, want session-000", sessions[0].ID)
	}
}

func TestHasExpired(t *testing.T) {
	now := time.Now()
	session := &SwapSession{Timelock: now}

	if session.HasExpired(now.Add(-time.Second)) {
		t.Error("HasExpired() = true before the timelock")
	}
	if !session.HasExpired(now) {
		t.Error("HasExpired() = false at the timelock boundary")
	}
	if !session.HasExpired(now.Add(time.Second)) {
		t.Error("HasExpired() = false after the timelock")
	}
}
