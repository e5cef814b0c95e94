// Package swap - Transaction descriptor construction.
// Pure functions turning a session and phase into the chain-specific
// call descriptors an external submitter needs. No side effects; the only
// failure mode is defensively rejecting a malformed session.
package swap

import (
	"encoding/base64"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crosslock/crosslockd/internal/chain"
	"github.com/crosslock/crosslockd/internal/fees"
	"github.com/crosslock/crosslockd/internal/storage"
	"github.com/crosslock/crosslockd/pkg/helpers"
)

// Algorand application call method selectors.
const (
	algoMethodCreate      = "htlc_create"
	algoMethodCreateOrder = "htlc_create_order"
	algoMethodRedeem      = "htlc_redeem"
)

// EthereumCreateParams are the structured arguments of the HTLC create
// call on the EVM chain.
type EthereumCreateParams struct {
	Recipient    string `json:"recipient"`
	Hashlock     string `json:"hashlock"`
	Timelock     int64  `json:"timelock"` // unix seconds, chain-native time unit
	Amount       string `json:"amount"`   // wei or token base units
	TokenAddress string `json:"token_address,omitempty"`

	// Provenance fields, set when the session was derived from an
	// external order.
	OriginalOrderHash string `json:"original_order_hash,omitempty"`
	Maker             string `json:"maker,omitempty"`
	Taker             string `json:"taker,omitempty"`
	SafetyDeposit     string `json:"safety_deposit,omitempty"`
}

// EthereumRedeemParams are the arguments of the HTLC redeem call.
type EthereumRedeemParams struct {
	Secret    string `json:"secret"`
	SessionID string `json:"session_id"`
}

// EthereumCall is a contract invocation descriptor.
type EthereumCall struct {
	Function   string      `json:"function"`
	Parameters interface{} `json:"parameters"`
}

// EthereumTx describes an unsigned EVM transaction for one swap phase.
type EthereumTx struct {
	To                   string       `json:"to"`
	Data                 EthereumCall `json:"data"`
	Value                string       `json:"value"` // wei, "0" on the fee-only leg
	GasLimit             uint64       `json:"gas_limit"`
	MaxFeePerGas         string       `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas string       `json:"max_priority_fee_per_gas,omitempty"`
}

// AlgorandTx describes an unsigned Algorand application call for one swap
// phase. Arguments use the chain's length-delimited binary convention,
// carried base64-encoded.
type AlgorandTx struct {
	Type        string   `json:"type"` // always "appl"
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
	AppID       uint64   `json:"app_id"`
	AppArgs     []string `json:"app_args"`
	Amount      string   `json:"amount"` // microAlgos, "0" on the fee-only leg
	Fee         uint64   `json:"fee"`    // microAlgos, flat
	FirstRound  uint64   `json:"first_round"`
	LastRound   uint64   `json:"last_round"`
	GenesisID   string   `json:"genesis_id"`
	GenesisHash string   `json:"genesis_hash"`
	Note        string   `json:"note,omitempty"` // base64
}

// Descriptors pairs the two chain legs of one phase.
type Descriptors struct {
	Ethereum *EthereumTx `json:"ethereum"`
	Algorand *AlgorandTx `json:"algorand"`
}

// BuilderConfig holds the deployment parameters the builder needs.
type BuilderConfig struct {
	Network chain.Network

	// Ethereum HTLC contract and optional ERC-20 token.
	ContractAddress string
	TokenAddress    string
	CreateGasLimit  uint64
	RedeemGasLimit  uint64

	// Algorand HTLC application.
	AppID       uint64
	FlatFee     uint64 // microAlgos per transaction
	RoundWindow uint64 // validity window for application calls
}

// Builder turns sessions into per-phase transaction descriptors.
type Builder struct {
	cfg    BuilderConfig
	params chain.Params // Algorand params for genesis fields
}

// NewBuilder creates a descriptor builder for the configured deployment.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid HTLC contract address: %q", cfg.ContractAddress)
	}
	algoParams, ok := chain.Get("ALGO", cfg.Network)
	if !ok {
		return nil, fmt.Errorf("no algorand parameters for network %s", cfg.Network)
	}
	if cfg.FlatFee < algoParams.MinFlatFee {
		cfg.FlatFee = algoParams.MinFlatFee
	}
	if cfg.RoundWindow == 0 {
		cfg.RoundWindow = 1000
	}
	return &Builder{cfg: cfg, params: algoParams}, nil
}

// BuildCreateDescriptors produces the create-phase descriptors. Only the
// direction's source chain carries value; the mirrored leg locks with the
// same hashlock and timelock at zero value. The optional tier quote
// populates the EVM fee fields; firstRound anchors the Algorand validity
// window and is injected by the caller (the chain round is collaborator
// data, not something this builder fetches).
func (b *Builder) BuildCreateDescriptors(session *storage.SwapSession, tierQuote *fees.TierQuote, firstRound uint64) (*Descriptors, error) {
	hashlock, err := b.sessionHashlock(session)
	if err != nil {
		return nil, err
	}

	ethParams := EthereumCreateParams{
		Recipient:    session.RecipientAddress,
		Hashlock:     helpers.BytesToHex(hashlock),
		Timelock:     session.Timelock.Unix(),
		Amount:       session.Amount.String(),
		TokenAddress: b.tokenAddress(session),
	}

	ethFunction := "createHTLC"
	algoArgs := [][]byte{
		[]byte(algoMethodCreate),
		hashlock,
		[]byte(fmt.Sprintf("%d", session.Timelock.Unix())),
	}
	var note string

	if p := session.Provenance; p != nil {
		ethFunction = "createHTLCFromOrder"
		ethParams.OriginalOrderHash = p.OrderHash
		ethParams.Maker = p.Maker
		ethParams.Taker = p.Taker
		ethParams.SafetyDeposit = p.SafetyDeposit

		algoArgs[0] = []byte(algoMethodCreateOrder)
		algoArgs = append(algoArgs, []byte(p.OrderID))
		note = base64.StdEncoding.EncodeToString([]byte("bridge-" + p.OrderID))
	}

	ethValue := "0"
	algoAmount := "0"
	if session.Direction == storage.DirectionEthToAlgo {
		ethValue = session.Amount.String()
	} else {
		algoAmount = session.Amount.String()
	}

	ethTx := &EthereumTx{
		To: common.HexToAddress(b.cfg.ContractAddress).Hex(),
		Data: EthereumCall{
			Function:   ethFunction,
			Parameters: ethParams,
		},
		Value:    ethValue,
		GasLimit: b.cfg.CreateGasLimit,
	}
	if tierQuote != nil {
		ethTx.MaxFeePerGas = tierQuote.MaxFeePerGas.String()
		ethTx.MaxPriorityFeePerGas = tierQuote.MaxPriorityFeePerGas.String()
	}

	algoTx := &AlgorandTx{
		Type:        "appl",
		To:          session.RecipientAddress,
		AppID:       b.cfg.AppID,
		AppArgs:     encodeAppArgs(algoArgs),
		Amount:      algoAmount,
		Fee:         b.cfg.FlatFee,
		FirstRound:  firstRound,
		LastRound:   firstRound + b.cfg.RoundWindow,
		GenesisID:   b.params.GenesisID,
		GenesisHash: b.params.GenesisHash,
		Note:        note,
	}

	return &Descriptors{Ethereum: ethTx, Algorand: algoTx}, nil
}

// BuildRedeemDescriptors produces the redeem-phase descriptors. Both legs
// carry the revealed secret and the session ID so each contract can verify
// the digest and release funds to the correct party.
func (b *Builder) BuildRedeemDescriptors(session *storage.SwapSession, firstRound uint64) (*Descriptors, error) {
	if _, err := b.sessionHashlock(session); err != nil {
		return nil, err
	}
	if session.Secret == nil {
		return nil, fmt.Errorf("%w: no secret on session %s", ErrInvalidSession, session.ID)
	}
	secretBytes, err := helpers.HexToBytes(*session.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed secret on session %s", ErrInvalidSession, session.ID)
	}

	ethTx := &EthereumTx{
		To: common.HexToAddress(b.cfg.ContractAddress).Hex(),
		Data: EthereumCall{
			Function: "redeemHTLC",
			Parameters: EthereumRedeemParams{
				Secret:    helpers.BytesToHex(secretBytes),
				SessionID: session.ID,
			},
		},
		Value:    "0",
		GasLimit: b.cfg.RedeemGasLimit,
	}

	algoTx := &AlgorandTx{
		Type:  "appl",
		From:  session.RecipientAddress,
		AppID: b.cfg.AppID,
		AppArgs: encodeAppArgs([][]byte{
			[]byte(algoMethodRedeem),
			secretBytes,
			[]byte(session.ID),
		}),
		Amount:      "0",
		Fee:         b.cfg.FlatFee,
		FirstRound:  firstRound,
		LastRound:   firstRound + b.cfg.RoundWindow,
		GenesisID:   b.params.GenesisID,
		GenesisHash: b.params.GenesisHash,
	}

	return &Descriptors{Ethereum: ethTx, Algorand: algoTx}, nil
}

// sessionHashlock decodes and defensively validates the session's
// hashlock. Creation already enforced validity, so failures here indicate
// a caller constructing sessions outside the store.
func (b *Builder) sessionHashlock(session *storage.SwapSession) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrInvalidSession)
	}
	if !session.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidSession, session.Direction)
	}
	if session.Amount == nil || session.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive amount", ErrInvalidSession)
	}
	if session.RecipientAddress == "" {
		return nil, fmt.Errorf("%w: missing recipient", ErrInvalidSession)
	}
	hashlock, err := helpers.HexToBytes(session.SecretHash)
	if err != nil || len(hashlock) != 32 {
		return nil, fmt.Errorf("%w: malformed secret hash", ErrInvalidSession)
	}
	return hashlock, nil
}

func (b *Builder) tokenAddress(session *storage.SwapSession) string {
	// Token transfers only apply on the EVM value leg.
	if session.Direction != storage.DirectionEthToAlgo || b.cfg.TokenAddress == "" {
		return ""
	}
	return common.HexToAddress(b.cfg.TokenAddress).Hex()
}

// encodeAppArgs base64-encodes raw application arguments the way the
// Algorand wire format expects them.
func encodeAppArgs(args [][]byte) []string {
	encoded := make([]string, len(args))
	for i, arg := range args {
		encoded[i] = base64.StdEncoding.EncodeToString(arg)
	}
	return encoded
}
