// Package chain defines chain parameters for the two legs of a crosslock swap.
// All chain-specific values are hardcoded here - no external configuration needed.
package chain

// Network represents mainnet or testnet.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ChainType represents the blockchain family.
type ChainType string

const (
	ChainTypeEVM ChainType = "evm" // Ethereum and EVM chains
	ChainTypeAVM ChainType = "avm" // Algorand
)

// Params contains all parameters for a blockchain.
type Params struct {
	// Identity
	Symbol   string    // ETH, ALGO
	Name     string    // Ethereum, Algorand
	Type     ChainType // evm, avm
	Decimals uint8     // 18 for ETH, 6 for ALGO

	// EVM params
	ChainID uint64 // EVM chain ID (0 for non-EVM)

	// Algorand params
	GenesisID   string // e.g. "mainnet-v1.0"
	GenesisHash string // Base64-encoded genesis hash
	MinFlatFee  uint64 // Minimum flat fee in microAlgos

	// Native unit names, smallest first
	SmallestUnit string // wei, microAlgo
	NativeToken  string // ETH, ALGO
}

// registry maps symbol+network to chain parameters.
var registry = map[Network]map[string]Params{
	Mainnet: {
		"ETH": {
			Symbol:       "ETH",
			Name:         "Ethereum",
			Type:         ChainTypeEVM,
			Decimals:     18,
			ChainID:      1,
			SmallestUnit: "wei",
			NativeToken:  "ETH",
		},
		"ALGO": {
			Symbol:       "ALGO",
			Name:         "Algorand",
			Type:         ChainTypeAVM,
			Decimals:     6,
			GenesisID:    "mainnet-v1.0",
			GenesisHash:  "wGHE2Pwdvd7S12BL5FaOP20EGYesN73ktiC1qzkkit8=",
			MinFlatFee:   1000,
			SmallestUnit: "microAlgo",
			NativeToken:  "ALGO",
		},
	},
	Testnet: {
		"ETH": {
			Symbol:       "ETH",
			Name:         "Ethereum Sepolia",
			Type:         ChainTypeEVM,
			Decimals:     18,
			ChainID:      11155111,
			SmallestUnit: "wei",
			NativeToken:  "ETH",
		},
		"ALGO": {
			Symbol:       "ALGO",
			Name:         "Algorand Testnet",
			Type:         ChainTypeAVM,
			Decimals:     6,
			GenesisID:    "testnet-v1.0",
			GenesisHash:  "SGO1GKSzyE7IEPItTxCByw9x8FmnrCDexi9/cOUJOiI=",
			MinFlatFee:   1000,
			SmallestUnit: "microAlgo",
			NativeToken:  "ALGO",
		},
	},
}

// Get returns the chain parameters for a symbol on a network.
func Get(symbol string, network Network) (Params, bool) {
	chains, ok := registry[network]
	if !ok {
		return Params{}, false
	}
	params, ok := chains[symbol]
	return params, ok
}

// Symbols returns all supported chain symbols.
func Symbols() []string {
	return []string{"ETH", "ALGO"}
}
