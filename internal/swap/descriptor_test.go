package swap

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/storage"
)

const (
	testContractAddr = "0x742d35Cc6634C0532925a3b8D4C9db96C4b4d8b6"
	testHashlock     = "0x66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()

	builder, err := NewBuilder(BuilderConfig{
		Network:         chain.Testnet,
		ContractAddress: testContractAddr,
		CreateGasLimit:  200000,
		RedeemGasLimit:  150000,
		AppID:           123456789,
		FlatFee:         1000,
		RoundWindow:     1000,
	})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return builder
}

func testBuilderSession(direction storage.Direction) *storage.SwapSession {
	return &storage.SwapSession{
		ID:               "session-desc",
		Direction:        direction,
		Amount:           big.NewInt(1000000),
		SecretHash:       testHashlock,
		RecipientAddress: "GD64YIY3TWGDMCNPP553DZPPR6LDUSFQOIJVFDPPXWEG3FVOJCCDBBHU5A",
		Timelock:         time.Unix(1900000000, 0),
		Status:           storage.StatusPending,
	}
}

func TestNewBuilderValidation(t *testing.T) {
	_, err := NewBuilder(BuilderConfig{
		Network:         chain.Testnet,
		ContractAddress: "not-an-address",
	})
	if err == nil {
		t.Error("NewBuilder() accepted a malformed contract address")
	}
}

func TestBuildCreateDescriptorsValuePlacement(t *testing.T) {
	builder := newTestBuilder(t)

	tests := []struct {
		direction      storage.Direction
		wantEthValue   string
		wantAlgoAmount string
	}{
		{storage.DirectionEthToAlgo, "1000000", "0"},
		{storage.DirectionAlgoToEth, "0", "1000000"},
	}

	for _, tt := range tests {
		t.Run(string(tt.direction), func(t *testing.T) {
			session := testBuilderSession(tt.direction)
			desc, err := builder.BuildCreateDescriptors(session, nil, 0)
			if err != nil {
				t.Fatalf("BuildCreateDescriptors() error = %v", err)
			}

			if desc.Ethereum.Value != tt.wantEthValue {
				t.Errorf("Ethereum.Value = %s, want %s", desc.Ethereum.Value, tt.wantEthValue)
			}
			if desc.Algorand.Amount != tt.wantAlgoAmount {
				t.Errorf("Algorand.Amount = %s, want %s", desc.Algorand.Amount, tt.wantAlgoAmount)
			}
		})
	}
}

func TestBuildCreateDescriptorsEthereumLeg(t *testing.T) {
	builder := newTestBuilder(t)
	session := testBuilderSession(storage.DirectionEthToAlgo)

	tierQuote := &fees.TierQuote{
		MaxFeePerGas:         big.NewInt(30000000000),
		MaxPriorityFeePerGas: big.NewInt(2000000000),
	}

	desc, err := builder.BuildCreateDescriptors(session, tierQuote, 0)
	if err != nil {
		t.Fatalf("BuildCreateDescriptors() error = %v", err)
	}

	eth := desc.Ethereum
	if !strings.EqualFold(eth.To, testContractAddr) {
		t.Errorf("To = %s, want %s", eth.To, testContractAddr)
	}
	if eth.Data.Function != "createHTLC" {
		t.Errorf("Function = %s, want createHTLC", eth.Data.Function)
	}
	if eth.GasLimit != 200000 {
		t.Errorf("GasLimit = %d, want 200000", eth.GasLimit)
	}
	if eth.MaxFeePerGas != "30000000000" {
		t.Errorf("MaxFeePerGas = %s, want 30000000000", eth.MaxFeePerGas)
	}
	if eth.MaxPriorityFeePerGas != "2000000000" {
		t.Errorf("MaxPriorityFeePerGas = %s, want 2000000000", eth.MaxPriorityFeePerGas)
	}

	params, ok := eth.Data.Parameters.(EthereumCreateParams)
	if !ok {
		t.Fatalf("Parameters has type %T, want EthereumCreateParams", eth.Data.Parameters)
	}
	if params.Hashlock != testHashlock {
		t.Errorf("Hashlock = %s, want %s", params.Hashlock, testHashlock)
	}
	if params.Timelock != session.Timelock.Unix() {
		t.Errorf("Timelock = %d, want %d", params.Timelock, session.Timelock.Unix())
	}
	if params.Recipient != session.RecipientAddress {
		t.Errorf("Recipient = %s, want %s", params.Recipient, session.RecipientAddress)
	}
}

func TestBuildCreateDescriptorsAlgorandLeg(t *testing.T) {
	builder := newTestBuilder(t)
	session := testBuilderSession(storage.DirectionAlgoToEth)

	desc, err := builder.BuildCreateDescriptors(session, nil, 5000)
	if err != nil {
		t.Fatalf("BuildCreateDescriptors() error = %v", err)
	}

	algo := desc.Algorand
	if algo.Type != "appl" {
		t.Errorf("Type = %s, want appl", algo.Type)
	}
	if algo.AppID != 123456789 {
		t.Errorf("AppID = %d, want 123456789", algo.AppID)
	}
	if algo.Fee != 1000 {
		t.Errorf("Fee = %d, want 1000", algo.Fee)
	}
	if algo.FirstRound != 5000 || algo.LastRound != 6000 {
		t.Errorf("rounds = [%d, %d], want [5000, 6000]", algo.FirstRound, algo.LastRound)
	}
	if algo.GenesisID != "testnet-v1.0" {
		t.Errorf("GenesisID = %s, want testnet-v1.0", algo.GenesisID)
	}
	if algo.GenesisHash == "" {
		t.Error("GenesisHash is empty")
	}

	if len(algo.AppArgs) != 3 {
		t.Fatalf("AppArgs length = %d, want 3", len(algo.AppArgs))
	}
	method, err := base64.StdEncoding.DecodeString(algo.AppArgs[0])
	if err != nil || string(method) != "htlc_create" {
		t.Errorf("AppArgs[0] = %q, want htlc_create", method)
	}
	hashlock, err := base64.StdEncoding.DecodeString(algo.AppArgs[1])
	if err != nil || len(hashlock) != 32 {
		t.Errorf("AppArgs[1] decodes to %d bytes, want 32", len(hashlock))
	}
	timelockArg, err := base64.StdEncoding.DecodeString(algo.AppArgs[2])
	if err != nil || string(timelockArg) != fmt.Sprintf("%d", session.Timelock.Unix()) {
		t.Errorf("AppArgs[2] = %q, want unix timelock string", timelockArg)
	}
}

func TestBuildCreateDescriptorsFromOrder(t *testing.T) {
	builder := newTestBuilder(t)
	session := testBuilderSession(storage.DirectionEthToAlgo)
	session.Provenance = &storage.Provenance{
		OrderID:       "order-7",
		OrderHash:     "0xbeef",
		Maker:         "0x1111111111111111111111111111111111111111",
		Taker:         "0x2222222222222222222222222222222222222222",
		SafetyDeposit: "10000000000000000",
	}

	desc, err := builder.BuildCreateDescriptors(session, nil, 0)
	if err != nil {
		t.Fatalf("BuildCreateDescriptors() error = %v", err)
	}

	if desc.Ethereum.Data.Function != "createHTLCFromOrder" {
		t.Errorf("Function = %s, want createHTLCFromOrder", desc.Ethereum.Data.Function)
	}
	params := desc.Ethereum.Data.Parameters.(EthereumCreateParams)
	if params.OriginalOrderHash != "0xbeef" {
		t.Errorf("OriginalOrderHash = %s, want 0xbeef", params.OriginalOrderHash)
	}

	if len(desc.Algorand.AppArgs) != 4 {
		t.Fatalf("AppArgs length = %d, want 4 with order provenance", len(desc.Algorand.AppArgs))
	}
	method, _ := base64.StdEncoding.DecodeString(desc.Algorand.AppArgs[0])
	if string(method) != "htlc_create_order" {
		t.Errorf("AppArgs[0] = %q, want htlc_create_order", method)
	}
	note, err := base64.StdEncoding.DecodeString(desc.Algorand.Note)
	if err != nil || string(note) != "bridge-order-7" {
		t.Errorf("Note = %q, want bridge-order-7", note)
	}
}

func TestBuildRedeemDescriptors(t *testing.T) {
	builder := newTestBuilder(t)
	session := testBuilderSession(storage.DirectionEthToAlgo)
	secretHex := "0x000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	session.Secret = &secretHex
	session.Status = storage.StatusCompleted

	desc, err := builder.BuildRedeemDescriptors(session, 100)
	if err != nil {
		t.Fatalf("BuildRedeemDescriptors() error = %v", err)
	}

	if desc.Ethereum.Data.Function != "redeemHTLC" {
		t.Errorf("Function = %s, want redeemHTLC", desc.Ethereum.Data.Function)
	}
	if desc.Ethereum.Value != "0" {
		t.Errorf("Value = %s, want 0 on redeem", desc.Ethereum.Value)
	}
	params := desc.Ethereum.Data.Parameters.(EthereumRedeemParams)
	if params.Secret != secretHex {
		t.Errorf("Secret = %s, want %s", params.Secret, secretHex)
	}
	if params.SessionID != session.ID {
		t.Errorf("SessionID = %s, want %s", params.SessionID, session.ID)
	}

	if len(desc.Algorand.AppArgs) != 3 {
		t.Fatalf("AppArgs length = %d, want 3", len(desc.Algorand.AppArgs))
	}
	method, _ := base64.StdEncoding.DecodeString(desc.Algorand.AppArgs[0])
	if string(method) != "htlc_redeem" {
		t.Errorf("AppArgs[0] = %q, want htlc_redeem", method)
	}
	secretArg, _ := base64.StdEncoding.DecodeString(desc.Algorand.AppArgs[1])
	if len(secretArg) != 32 {
		t.Errorf("AppArgs[1] decodes to %d bytes, want 32", len(secretArg))
	}
	idArg, _ := base64.StdEncoding.DecodeString(desc.Algorand.AppArgs[2])
	if string(idArg) != session.ID {
		t.Errorf("AppArgs[2] = %q, want %s", idArg, session.ID)
	}
}

func TestBuildRedeemDescriptorsRequiresSecret(t *testing.T) {
	builder := newTestBuilder(t)
	session := testBuilderSession(storage.DirectionEthToAlgo)

	_, err := builder.BuildRedeemDescriptors(session, 0)
	if !errors.Is(err, ErrInvalidSession) {
		t.Errorf("BuildRedeemDescriptors() error = %v, want ErrInvalidSession", err)
	}
}

func TestBuildDescriptorsRejectsMalformedSession(t *testing.T) {
	builder := newTestBuilder(t)

	tests := []struct {
		name   string
		mutate func(*storage.SwapSession)
	}{
		{"bad direction", func(s *storage.SwapSession) { s.Direction = "btc-to-ltc" }},
		{"nil amount", func(s *storage.SwapSession) { s.Amount = nil }},
		{"missing recipient", func(s *storage.SwapSession) { s.RecipientAddress = "" }},
		{"short hashlock", func(s *storage.SwapSession) { s.SecretHash = "0xdeadbeef" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := testBuilderSession(storage.DirectionEthToAlgo)
			tt.mutate(session)
			if _, err := builder.BuildCreateDescriptors(session, nil, 0); !errors.Is(err, ErrInvalidSession) {
				t.Errorf("BuildCreateDescriptors() error = %v, want ErrInvalidSession", err)
			}
		})
	}

	if _, err := builder.BuildCreateDescriptors(nil, nil, 0); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("nil session error = %v, want ErrInvalidSession", err)
	}
}
