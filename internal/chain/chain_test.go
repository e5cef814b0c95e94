package chain

import "testing"

func TestGet(t *testing.T) {
	tests := []struct {
		symbol       string
		network      Network
		wantOK       bool
		wantType     ChainType
		wantDecimals uint8
	}{
		{"ETH", Mainnet, true, ChainTypeEVM, 18},
		{"ETH", Testnet, true, ChainTypeEVM, 18},
		{"ALGO", Mainnet, true, ChainTypeAVM, 6},
		{"ALGO", Testnet, true, ChainTypeAVM, 6},
		{"BTC", Mainnet, false, "", 0},
		{"ETH", "devnet", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.symbol+"/"+string(tt.network), func(t *testing.T) {
			params, ok := Get(tt.symbol, tt.network)
			if ok != tt.wantOK {
				t.Fatalf("Get(%s, %s) ok = %v, want %v", tt.symbol, tt.network, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if params.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", params.Type, tt.wantType)
			}
			if params.Decimals != tt.wantDecimals {
				t.Errorf("Decimals = %d, want %d", params.Decimals, tt.wantDecimals)
			}
		})
	}
}

func TestChainIDsDifferPerNetwork(t *testing.T) {
	mainnet, _ := Get("ETH", Mainnet)
	testnet, _ := Get("ETH", Testnet)

	if mainnet.ChainID != 1 {
		t.Errorf("mainnet ChainID = %d, want 1", mainnet.ChainID)
	}
	if testnet.ChainID != 11155111 {
		t.Errorf("testnet ChainID = %d, want 11155111 (Sepolia)", testnet.ChainID)
	}
}

func TestAlgorandGenesisParams(t *testing.T) {
	for _, network := range []Network{Mainnet, Testnet} {
		params, ok := Get("ALGO", network)
		if !ok {
			t.Fatalf("Get(ALGO, %s) not found", network)
		}
		if params.GenesisID == "" || params.GenesisHash == "" {
			t.Errorf("%s: genesis parameters incomplete: %q / %q", network, params.GenesisID, params.GenesisHash)
		}
		if params.MinFlatFee == 0 {
			t.Errorf("%s: MinFlatFee is zero", network)
		}
	}
}

func TestSymbols(t *testing.T) {
	symbols := Symbols()
	if len(symbols) != 2 {
		t.Fatalf("Symbols() returned %d entries, want 2", len(symbols))
	}
	for _, symbol := range symbols {
		for _, network := range []Network{Mainnet, Testnet} {
			if _, ok := Get(symbol, network); !ok {
				t.Errorf("Symbols() lists %s but Get(%s, %s) fails", symbol, symbol, network)
			}
		}
	}
}
