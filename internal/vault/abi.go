package vault

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Minimal ABI encoding for the handful of ERC-20 and vault methods the
// console calls. Selectors are the standard keccak-derived four-byte
// prefixes for the canonical signatures.
const (
	selAllowance    = "dd62ed3e" // allowance(address,address)
	selBalanceOf    = "70a08231" // balanceOf(address)
	selApprove      = "095ea7b3" // approve(address,uint256)
	selDeposit      = "47e7ef24" // deposit(address,uint256)
	selWithdraw     = "f3fef3a3" // withdraw(address,uint256)
	selUserBalances = "2b4af4e8" // userBalances(address,address)
)

func encodeAddress(addr string) (string, error) {
	h := strings.TrimPrefix(strings.ToLower(addr), "0x")
	if len(h) != 40 {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	if _, err := hex.DecodeString(h); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return strings.Repeat("0", 24) + h, nil
}

func encodeUint256(v *big.Int) (string, error) {
	if v == nil || v.Sign() < 0 {
		return "", fmt.Errorf("uint256 must be non-negative")
	}
	h := v.Text(16)
	if len(h) > 64 {
		return "", fmt.Errorf("uint256 overflow: %s", v)
	}
	return strings.Repeat("0", 64-len(h)) + h, nil
}

func encodeCall(selector string, args ...string) string {
	var b strings.Builder
	b.WriteString("0x")
	b.WriteString(selector)
	for _, a := range args {
		b.WriteString(a)
	}
	return b.String()
}

// decodeUint256 parses a single uint256 return value from an eth_call result.
func decodeUint256(data string) (*big.Int, error) {
	h := strings.TrimPrefix(data, "0x")
	if h == "" {
		return big.NewInt(0), nil
	}
	if len(h) > 64 {
		h = h[:64]
	}
	v, ok := new(big.Int).SetString(h, 16)
	if !ok {
		return nil, fmt.Errorf("invalid uint256 return data %q", data)
	}
	return v, nil
}
