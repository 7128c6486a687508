package vault

import (
	"math/big"
	"strings"
	"testing"
)

func TestEncodeAddress(t *testing.T) {
	got, err := encodeAddress("0xAbCd000000000000000000000000000000001234")
	if err != nil {
		t.Fatalf("encodeAddress() error = %v", err)
	}
	want := strings.Repeat("0", 24) + "abcd000000000000000000000000000000001234"
	if got != want {
		t.Errorf("encodeAddress() = %s, want %s", got, want)
	}

	if _, err := encodeAddress("0x1234"); err == nil {
		t.Error("encodeAddress(short) error = nil, want error")
	}
	if _, err := encodeAddress("0xzz34000000000000000000000000000000001234"); err == nil {
		t.Error("encodeAddress(non-hex) error = nil, want error")
	}
}

func TestEncodeCallLayout(t *testing.T) {
	addr, _ := encodeAddress("0x2222222222222222222222222222222222222222")
	amt, _ := encodeUint256(big.NewInt(255))
	data := encodeCall(selApprove, addr, amt)

	if !strings.HasPrefix(data, "0x"+selApprove) {
		t.Errorf("calldata %q missing selector", data)
	}
	if len(data) != 2+8+64+64 {
		t.Errorf("calldata length = %d, want %d", len(data), 2+8+64+64)
	}
	if !strings.HasSuffix(data, "ff") {
		t.Errorf("calldata %q missing encoded amount", data)
	}
}

func TestDecodeUint256(t *testing.T) {
	v, err := decodeUint256("0x00000000000000000000000000000000000000000000000000000000000000ff")
	if err != nil {
		t.Fatalf("decodeUint256() error = %v", err)
	}
	if v.Int64() != 255 {
		t.Errorf("decodeUint256() = %s, want 255", v)
	}

	v, err = decodeUint256("0x")
	if err != nil {
		t.Fatalf("decodeUint256(empty) error = %v", err)
	}
	if v.Sign() != 0 {
		t.Errorf("decodeUint256(empty) = %s, want 0", v)
	}
}
