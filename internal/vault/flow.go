package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"arb-console/internal/notify"
)

// Sentinel errors for vault operations.
var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrTxInFlight         = errors.New("transaction already in flight")
	ErrWrongNetwork       = errors.New("wallet on wrong network")
)

// ContractReader reads vault and token state from the chain.
type ContractReader interface {
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	BalanceOf(ctx context.Context, token, account string) (*big.Int, error)
	VaultBalance(ctx context.Context, vaultAddr, user, token string) (*big.Int, error)
}

// WalletBridge proxies wallet interactions: account discovery, network
// switching, and transaction signing.
type WalletBridge interface {
	Address(ctx context.Context) (string, error)
	ChainID(ctx context.Context) (uint64, error)
	SwitchChain(ctx context.Context, chainID uint64) error
	SendTransaction(ctx context.Context, from, to, data string) (string, error)
}

var (
	_ ContractReader = (*HTTPClient)(nil)
	_ WalletBridge   = (*HTTPClient)(nil)
)

// TxState tags the lifecycle of the most recent vault transaction.
type TxState string

const (
	TxIdle    TxState = "idle"
	TxPending TxState = "pending"
	TxSuccess TxState = "success"
	TxError   TxState = "error"
)

// TxStatus is the externally visible state of the vault flow.
type TxStatus struct {
	State  TxState `json:"state"`
	TxHash string  `json:"txHash,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Balances is a consistent read of the user's token and vault positions.
type Balances struct {
	Wallet    string `json:"wallet"`
	Vault     string `json:"vault"`
	Allowance string `json:"allowance"`
}

// FlowConfig holds vault flow configuration.
type FlowConfig struct {
	ChainID       uint64
	VaultAddress  string
	TokenAddress  string
	TokenDecimals int
	RefreshDelay  time.Duration
}

// Flow drives deposit and withdraw sequences against the vault contract.
// At most one transaction is in flight at a time; a second submission is
// rejected until the first settles.
type Flow struct {
	cfg      FlowConfig
	reader   ContractReader
	wallet   WalletBridge
	notifier notify.Notifier
	logger   *zap.SugaredLogger

	// afterFunc is swappable so tests can trigger the refresh synchronously.
	afterFunc func(time.Duration, func()) *time.Timer
	onRefresh func()

	mu      sync.Mutex
	pending bool
	status  TxStatus
}

// NewFlow creates a vault flow.
func NewFlow(cfg FlowConfig, reader ContractReader, wallet WalletBridge, notifier notify.Notifier, logger *zap.SugaredLogger) *Flow {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Flow{
		cfg:       cfg,
		reader:    reader,
		wallet:    wallet,
		notifier:  notifier,
		logger:    logger,
		afterFunc: time.AfterFunc,
		status:    TxStatus{State: TxIdle},
	}
}

// OnRefresh registers a callback invoked after a successful transaction,
// once the chain has had time to settle.
func (f *Flow) OnRefresh(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRefresh = fn
}

// Status returns the current transaction status.
func (f *Flow) Status() TxStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// acquire claims the single in-flight transaction slot.
func (f *Flow) acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return ErrTxInFlight
	}
	f.pending = true
	f.status = TxStatus{State: TxPending}
	return nil
}

// release clears the in-flight slot and records the outcome.
func (f *Flow) release(txHash string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	if err != nil {
		f.status = TxStatus{State: TxError, Error: err.Error()}
		return
	}
	f.status = TxStatus{State: TxSuccess, TxHash: txHash}
}

// submit runs op while holding the in-flight slot. The slot is released on
// every exit path, panics included.
func (f *Flow) submit(op func() (string, error)) (txHash string, err error) {
	if err := f.acquire(); err != nil {
		return "", err
	}
	defer func() { f.release(txHash, err) }()
	return op()
}

// preflight verifies the wallet is connected and on the configured chain,
// switching networks if needed. Returns the wallet address.
func (f *Flow) preflight(ctx context.Context) (string, error) {
	addr, err := f.wallet.Address(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet address: %w", err)
	}
	if addr == "" {
		return "", ErrWalletNotConnected
	}

	chainID, err := f.wallet.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("wallet chain: %w", err)
	}
	if chainID != f.cfg.ChainID {
		if err := f.wallet.SwitchChain(ctx, f.cfg.ChainID); err != nil {
			return "", fmt.Errorf("%w: %v", ErrWrongNetwork, err)
		}
	}

	return addr, nil
}

// Deposit moves amount (a decimal string in token units) from the wallet
// into the vault, granting allowance first when the current allowance does
// not cover the amount.
func (f *Flow) Deposit(ctx context.Context, amount string) (string, error) {
	txHash, err := f.submit(func() (string, error) { return f.deposit(ctx, amount) })
	if err != nil {
		if errors.Is(err, ErrTxInFlight) {
			return "", err
		}
		f.notifier.Notify(notify.SeverityError, "Deposit failed", err.Error())
		return "", err
	}

	f.notifier.Notify(notify.SeveritySuccess, "Deposit submitted", fmt.Sprintf("%s deposited, tx %s", amount, txHash))
	f.scheduleRefresh()
	return txHash, nil
}

func (f *Flow) deposit(ctx context.Context, amount string) (string, error) {
	addr, err := f.preflight(ctx)
	if err != nil {
		return "", err
	}

	value, err := ParseAmount(amount, f.cfg.TokenDecimals)
	if err != nil {
		return "", err
	}

	allowance, err := f.reader.Allowance(ctx, f.cfg.TokenAddress, addr, f.cfg.VaultAddress)
	if err != nil {
		return "", err
	}

	vaultArg, err := encodeAddress(f.cfg.VaultAddress)
	if err != nil {
		return "", err
	}
	tokenArg, err := encodeAddress(f.cfg.TokenAddress)
	if err != nil {
		return "", err
	}
	valueArg, err := encodeUint256(value)
	if err != nil {
		return "", err
	}

	if allowance.Cmp(value) < 0 {
		approveTx, err := f.wallet.SendTransaction(ctx, addr, f.cfg.TokenAddress, encodeCall(selApprove, vaultArg, valueArg))
		if err != nil {
			return "", fmt.Errorf("approve: %w", err)
		}
		f.logger.Infow("allowance granted", "tx", approveTx, "amount", amount)
	}

	txHash, err := f.wallet.SendTransaction(ctx, addr, f.cfg.VaultAddress, encodeCall(selDeposit, tokenArg, valueArg))
	if err != nil {
		return "", fmt.Errorf("deposit: %w", err)
	}

	f.logger.Infow("deposit submitted", "tx", txHash, "amount", amount, "wallet", addr)
	return txHash, nil
}

// Withdraw moves amount (a decimal string in token units) from the vault
// back to the wallet. No allowance is involved.
func (f *Flow) Withdraw(ctx context.Context, amount string) (string, error) {
	txHash, err := f.submit(func() (string, error) { return f.withdraw(ctx, amount) })
	if err != nil {
		if errors.Is(err, ErrTxInFlight) {
			return "", err
		}
		f.notifier.Notify(notify.SeverityError, "Withdrawal failed", err.Error())
		return "", err
	}

	f.notifier.Notify(notify.SeveritySuccess, "Withdrawal submitted", fmt.Sprintf("%s withdrawn, tx %s", amount, txHash))
	f.scheduleRefresh()
	return txHash, nil
}

func (f *Flow) withdraw(ctx context.Context, amount string) (string, error) {
	addr, err := f.preflight(ctx)
	if err != nil {
		return "", err
	}

	value, err := ParseAmount(amount, f.cfg.TokenDecimals)
	if err != nil {
		return "", err
	}

	tokenArg, err := encodeAddress(f.cfg.TokenAddress)
	if err != nil {
		return "", err
	}
	valueArg, err := encodeUint256(value)
	if err != nil {
		return "", err
	}

	txHash, err := f.wallet.SendTransaction(ctx, addr, f.cfg.VaultAddress, encodeCall(selWithdraw, tokenArg, valueArg))
	if err != nil {
		return "", fmt.Errorf("withdraw: %w", err)
	}

	f.logger.Infow("withdrawal submitted", "tx", txHash, "amount", amount, "wallet", addr)
	return txHash, nil
}

// Balances reads the wallet token balance, vault deposit, and current
// allowance for the connected wallet.
func (f *Flow) Balances(ctx context.Context) (Balances, error) {
	addr, err := f.wallet.Address(ctx)
	if err != nil {
		return Balances{}, fmt.Errorf("wallet address: %w", err)
	}
	if addr == "" {
		return Balances{}, ErrWalletNotConnected
	}

	wallet, err := f.reader.BalanceOf(ctx, f.cfg.TokenAddress, addr)
	if err != nil {
		return Balances{}, err
	}
	vaultBal, err := f.reader.VaultBalance(ctx, f.cfg.VaultAddress, addr, f.cfg.TokenAddress)
	if err != nil {
		return Balances{}, err
	}
	allowance, err := f.reader.Allowance(ctx, f.cfg.TokenAddress, addr, f.cfg.VaultAddress)
	if err != nil {
		return Balances{}, err
	}

	return Balances{
		Wallet:    FormatAmount(wallet, f.cfg.TokenDecimals),
		Vault:     FormatAmount(vaultBal, f.cfg.TokenDecimals),
		Allowance: FormatAmount(allowance, f.cfg.TokenDecimals),
	}, nil
}

func (f *Flow) scheduleRefresh() {
	f.mu.Lock()
	fn := f.onRefresh
	f.mu.Unlock()
	if fn == nil || f.cfg.RefreshDelay <= 0 {
		return
	}
	f.afterFunc(f.cfg.RefreshDelay, fn)
}
