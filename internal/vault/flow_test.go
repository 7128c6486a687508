package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeChain implements ContractReader and WalletBridge in memory and logs
// every wallet call in order.
type fakeChain struct {
	mu        sync.Mutex
	addr      string
	chainID   uint64
	allowance *big.Int
	walletBal *big.Int
	vaultBal  *big.Int
	sendErr   error
	sendGate  chan struct{} // when set, SendTransaction blocks until closed
	calls     []string
	txSeq     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		addr:      "0x1111111111111111111111111111111111111111",
		chainID:   8453,
		allowance: big.NewInt(0),
		walletBal: big.NewInt(0),
		vaultBal:  big.NewInt(0),
	}
}

func (f *fakeChain) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeChain) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeChain) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	f.record("allowance")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.allowance), nil
}

func (f *fakeChain) BalanceOf(ctx context.Context, token, account string) (*big.Int, error) {
	f.record("balanceOf")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.walletBal), nil
}

func (f *fakeChain) VaultBalance(ctx context.Context, vaultAddr, user, token string) (*big.Int, error) {
	f.record("vaultBalance")
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.vaultBal), nil
}

func (f *fakeChain) Address(ctx context.Context) (string, error) {
	f.record("address")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr, nil
}

func (f *fakeChain) ChainID(ctx context.Context) (uint64, error) {
	f.record("chainId")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chainID, nil
}

func (f *fakeChain) SwitchChain(ctx context.Context, chainID uint64) error {
	f.record("switchChain")
	f.mu.Lock()
	f.chainID = chainID
	f.mu.Unlock()
	return nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, from, to, data string) (string, error) {
	// Classify the call by selector so tests can assert ordering.
	switch {
	case strings.HasPrefix(data, "0x"+selApprove):
		f.record("send:approve")
	case strings.HasPrefix(data, "0x"+selDeposit):
		f.record("send:deposit")
	case strings.HasPrefix(data, "0x"+selWithdraw):
		f.record("send:withdraw")
	default:
		f.record("send:unknown")
	}

	f.mu.Lock()
	gate := f.sendGate
	err := f.sendErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.txSeq++
	hash := fmt.Sprintf("0xtx%03d", f.txSeq)
	f.mu.Unlock()
	return hash, nil
}

func newTestFlow(chain *fakeChain) *Flow {
	return NewFlow(FlowConfig{
		ChainID:       8453,
		VaultAddress:  "0x2222222222222222222222222222222222222222",
		TokenAddress:  "0x3333333333333333333333333333333333333333",
		TokenDecimals: 6,
		RefreshDelay:  time.Millisecond,
	}, chain, chain, nil, nil)
}

// panickyWallet panics on its first SendTransaction and behaves normally
// afterwards.
type panickyWallet struct {
	*fakeChain
	panicked bool
}

func (p *panickyWallet) SendTransaction(ctx context.Context, from, to, data string) (string, error) {
	if !p.panicked {
		p.panicked = true
		panic("wallet bridge crashed")
	}
	return p.fakeChain.SendTransaction(ctx, from, to, data)
}

func TestGuardReleasedWhenWalletPanics(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(1_000_000_000)
	wallet := &panickyWallet{fakeChain: chain}
	flow := NewFlow(FlowConfig{
		ChainID:       8453,
		VaultAddress:  "0x2222222222222222222222222222222222222222",
		TokenAddress:  "0x3333333333333333333333333333333333333333",
		TokenDecimals: 6,
		RefreshDelay:  time.Millisecond,
	}, chain, wallet, nil, nil)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic from wallet bridge")
			}
		}()
		flow.Deposit(context.Background(), "100")
	}()

	// The in-flight slot must be free again.
	if _, err := flow.Deposit(context.Background(), "100"); err != nil {
		t.Fatalf("Deposit after panic error = %v", err)
	}
	if st := flow.Status(); st.State != TxSuccess {
		t.Errorf("Status().State = %s, want %s", st.State, TxSuccess)
	}
}

func TestDepositApprovesWhenAllowanceShort(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(0)
	flow := newTestFlow(chain)

	txHash, err := flow.Deposit(context.Background(), "100")
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if txHash == "" {
		t.Error("Deposit() returned empty tx hash")
	}

	calls := chain.callLog()
	approveIdx, depositIdx := -1, -1
	for i, c := range calls {
		switch c {
		case "send:approve":
			approveIdx = i
		case "send:deposit":
			depositIdx = i
		}
	}
	if approveIdx == -1 {
		t.Fatal("expected approve call, got none")
	}
	if depositIdx == -1 {
		t.Fatal("expected deposit call, got none")
	}
	if approveIdx > depositIdx {
		t.Errorf("approve at %d after deposit at %d", approveIdx, depositIdx)
	}

	if st := flow.Status(); st.State != TxSuccess {
		t.Errorf("Status().State = %s, want %s", st.State, TxSuccess)
	}
}

func TestDepositSkipsApproveWhenAllowanceCovers(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(100_000_000) // 100 tokens at 6 decimals
	flow := newTestFlow(chain)

	if _, err := flow.Deposit(context.Background(), "100"); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	for _, c := range chain.callLog() {
		if c == "send:approve" {
			t.Error("approve sent despite sufficient allowance")
		}
	}
}

func TestDepositRejectsWhenWalletNotConnected(t *testing.T) {
	chain := newFakeChain()
	chain.addr = ""
	flow := newTestFlow(chain)

	_, err := flow.Deposit(context.Background(), "1")
	if !errors.Is(err, ErrWalletNotConnected) {
		t.Fatalf("Deposit() error = %v, want ErrWalletNotConnected", err)
	}

	for _, c := range chain.callLog() {
		if strings.HasPrefix(c, "send:") || c == "allowance" {
			t.Errorf("chain call %q made without a connected wallet", c)
		}
	}

	if st := flow.Status(); st.State != TxError {
		t.Errorf("Status().State = %s, want %s", st.State, TxError)
	}
}

func TestDepositSwitchesChainOnMismatch(t *testing.T) {
	chain := newFakeChain()
	chain.chainID = 1
	chain.allowance = big.NewInt(1_000_000)
	flow := newTestFlow(chain)

	if _, err := flow.Deposit(context.Background(), "1"); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	switched := false
	for _, c := range chain.callLog() {
		if c == "switchChain" {
			switched = true
		}
	}
	if !switched {
		t.Error("expected switchChain call on chain mismatch")
	}
}

func TestSecondSubmissionRejectedWhileInFlight(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(1_000_000)
	gate := make(chan struct{})
	chain.sendGate = gate
	flow := newTestFlow(chain)

	firstDone := make(chan error, 1)
	go func() {
		_, err := flow.Deposit(context.Background(), "1")
		firstDone <- err
	}()

	// Wait for the first deposit to reach SendTransaction.
	deadline := time.After(2 * time.Second)
	for {
		blocked := false
		for _, c := range chain.callLog() {
			if c == "send:deposit" {
				blocked = true
			}
		}
		if blocked {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first deposit never reached SendTransaction")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := flow.Withdraw(context.Background(), "1"); !errors.Is(err, ErrTxInFlight) {
		t.Errorf("Withdraw() during pending deposit error = %v, want ErrTxInFlight", err)
	}
	if st := flow.Status(); st.State != TxPending {
		t.Errorf("Status().State = %s, want %s", st.State, TxPending)
	}

	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Deposit() error = %v", err)
	}
	if st := flow.Status(); st.State != TxSuccess {
		t.Errorf("Status().State after settle = %s, want %s", st.State, TxSuccess)
	}

	// The slot is free again.
	chain.mu.Lock()
	chain.sendGate = nil
	chain.mu.Unlock()
	if _, err := flow.Withdraw(context.Background(), "1"); err != nil {
		t.Errorf("Withdraw() after settle error = %v", err)
	}
}

func TestWithdrawNeverApproves(t *testing.T) {
	chain := newFakeChain()
	flow := newTestFlow(chain)

	if _, err := flow.Withdraw(context.Background(), "5"); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}

	for _, c := range chain.callLog() {
		if c == "send:approve" || c == "allowance" {
			t.Errorf("withdraw made allowance call %q", c)
		}
	}
}

func TestRefreshScheduledAfterSuccess(t *testing.T) {
	chain := newFakeChain()
	chain.allowance = big.NewInt(1_000_000)
	flow := newTestFlow(chain)

	var mu sync.Mutex
	refreshed := false
	flow.OnRefresh(func() {
		mu.Lock()
		refreshed = true
		mu.Unlock()
	})
	flow.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		fn()
		return nil
	}

	if _, err := flow.Deposit(context.Background(), "1"); err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !refreshed {
		t.Error("refresh callback not invoked after success")
	}
}

func TestRefreshNotScheduledAfterFailure(t *testing.T) {
	chain := newFakeChain()
	chain.sendErr = errors.New("user rejected")
	flow := newTestFlow(chain)

	refreshed := false
	flow.OnRefresh(func() { refreshed = true })
	flow.afterFunc = func(d time.Duration, fn func()) *time.Timer {
		fn()
		return nil
	}

	if _, err := flow.Withdraw(context.Background(), "1"); err == nil {
		t.Fatal("Withdraw() error = nil, want error")
	}
	if refreshed {
		t.Error("refresh callback invoked after failed transaction")
	}
	if st := flow.Status(); st.State != TxError {
		t.Errorf("Status().State = %s, want %s", st.State, TxError)
	}
}

func TestBalances(t *testing.T) {
	chain := newFakeChain()
	chain.walletBal = big.NewInt(1_500_000)
	chain.vaultBal = big.NewInt(250_000)
	chain.allowance = big.NewInt(2_000_000)
	flow := newTestFlow(chain)

	b, err := flow.Balances(context.Background())
	if err != nil {
		t.Fatalf("Balances() error = %v", err)
	}
	if b.Wallet != "1.5" {
		t.Errorf("Wallet = %q, want %q", b.Wallet, "1.5")
	}
	if b.Vault != "0.25" {
		t.Errorf("Vault = %q, want %q", b.Vault, "0.25")
	}
	if b.Allowance != "2" {
		t.Errorf("Allowance = %q, want %q", b.Allowance, "2")
	}
}
