package helpers

import (
	"math/big"
	"testing"
)

func TestHexRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want string
	}{
		{"with prefix", "0xdeadbeef", "0xdeadbeef"},
		{"without prefix", "deadbeef", "0xdeadbeef"},
		{"empty", "", "0x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := HexToBytes(tt.hex)
			if err != nil {
				t.Fatalf("HexToBytes(%q) error = %v", tt.hex, err)
			}
			if got := BytesToHex(b); got != tt.want {
				t.Errorf("BytesToHex(HexToBytes(%q)) = %q, want %q", tt.hex, got, tt.want)
			}
		})
	}

	if _, err := HexToBytes("0xzz"); err == nil {
		t.Error("HexToBytes() accepted invalid hex")
	}
	if _, err := HexToBytes("0xabc"); err == nil {
		t.Error("HexToBytes() accepted odd-length hex")
	}
}

func TestHexToBigInt(t *testing.T) {
	tests := []struct {
		hex  string
		want int64
	}{
		{"0x0", 0},
		{"0xff", 255},
		{"ff", 255},
		{"", 0},
		{"0xzz", 0}, // malformed collapses to zero
	}

	for _, tt := range tests {
		if got := HexToBigInt(tt.hex); got.Int64() != tt.want {
			t.Errorf("HexToBigInt(%q) = %s, want %d", tt.hex, got, tt.want)
		}
	}
}

func TestBigIntToHex(t *testing.T) {
	if got := BigIntToHex(nil); got != "0x0" {
		t.Errorf("BigIntToHex(nil) = %q, want 0x0", got)
	}
	if got := BigIntToHex(big.NewInt(0)); got != "0x0" {
		t.Errorf("BigIntToHex(0) = %q, want 0x0", got)
	}
	if got := BigIntToHex(big.NewInt(255)); got != "0xff" {
		t.Errorf("BigIntToHex(255) = %q, want 0xff", got)
	}
	if got := Uint64ToHex(11155111); got != "0xaa36a7" {
		t.Errorf("Uint64ToHex(11155111) = %q, want 0xaa36a7", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"whole algos", "15", 6, "15000000", false},
		{"fractional algos", "1.5", 6, "1500000", false},
		{"fractional eth", "0.001", 18, "1000000000000000", false},
		{"full precision", "1.234567", 6, "1234567", false},
		{"excess precision truncates", "1.23456789", 6, "1234567", false},
		{"zero", "0", 6, "0", false},
		{"zero decimals", "42", 0, "42", false},
		{"empty", "", 6, "", true},
		{"negative", "-1", 6, "", true},
		{"letters", "abc", 6, "", true},
		{"exponent", "1e18", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q, %d) error = %v, wantErr %v", tt.input, tt.decimals, err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("ParseAmount(%q, %d) = %s, want %s", tt.input, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals uint8
		want     string
	}{
		{"one and a half algo", big.NewInt(1500000), 6, "1.5"},
		{"whole", big.NewInt(2000000), 6, "2"},
		{"sub-unit", big.NewInt(1), 6, "0.000001"},
		{"nil", nil, 6, "0"},
		{"zero decimals", big.NewInt(42), 0, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAmount(tt.amount, tt.decimals); got != tt.want {
				t.Errorf("FormatAmount(%v, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1.5", "0.000001", "1000000", "0.1"} {
		parsed, err := ParseAmount(s, 6)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error = %v", s, err)
		}
		if got := FormatAmount(parsed, 6); got != s {
			t.Errorf("round trip of %q = %q", s, got)
		}
	}
}

func TestScaleToSmallestUnit(t *testing.T) {
	got := ScaleToSmallestUnit(big.NewInt(3), 18)
	want, _ := new(big.Int).SetString("3000000000000000000", 10)
	if got.Cmp(want) != 0 {
		t.Errorf("ScaleToSmallestUnit(3, 18) = %s, want %s", got, want)
	}
}

func TestUnitConversions(t *testing.T) {
	if got := GweiToWei(30); got.String() != "30000000000" {
		t.Errorf("GweiToWei(30) = %s, want 30000000000", got)
	}

	micro, err := AlgoToMicroAlgos("2.5")
	if err != nil {
		t.Fatalf("AlgoToMicroAlgos() error = %v", err)
	}
	if micro.String() != "2500000" {
		t.Errorf("AlgoToMicroAlgos(2.5) = %s, want 2500000", micro)
	}
	if got := MicroAlgosToAlgo(big.NewInt(2500000)); got != "2.5" {
		t.Errorf("MicroAlgosToAlgo(2500000) = %q, want 2.5", got)
	}

	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := WeiToETH(wei); got != "1.5" {
		t.Errorf("WeiToETH() = %q, want 1.5", got)
	}
}

func TestGenerateSecureRandom(t *testing.T) {
	a, err := GenerateSecureRandom(32)
	if err != nil {
		t.Fatalf("GenerateSecureRandom() error = %v", err)
	}
	if len(a) != 32 {
		t.Errorf("length = %d, want 32", len(a))
	}
	b, err := GenerateSecureRandom(32)
	if err != nil {
		t.Fatalf("GenerateSecureRandom() error = %v", err)
	}
	if ConstantTimeCompare(a, b) {
		t.Error("two random draws are identical")
	}
	if IsZeroBytes(a) {
		t.Error("random bytes are all zero")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := []byte{1, 2, 3}
	if !ConstantTimeCompare(a, []byte{1, 2, 3}) {
		t.Error("equal slices compared unequal")
	}
	if ConstantTimeCompare(a, []byte{1, 2, 4}) {
		t.Error("unequal slices compared equal")
	}
	if ConstantTimeCompare(a, []byte{1, 2}) {
		t.Error("different lengths compared equal")
	}
	if !ConstantTimeCompare(nil, nil) {
		t.Error("nil slices should compare equal")
	}
}

func TestIsZeroBytes(t *testing.T) {
	if !IsZeroBytes([]byte{0, 0, 0}) {
		t.Error("all-zero slice reported non-zero")
	}
	if IsZeroBytes([]byte{0, 1, 0}) {
		t.Error("non-zero slice reported zero")
	}
	if !IsZeroBytes(nil) {
		t.Error("nil slice should count as zero")
	}
}
