package credit

import (
	"errors"
	"math/big"
	"testing"

	"creditvault/crypto"
)

// swapTarget simulates an external venue: it swaps a fixed amount of one
// vault token for another.
type swapTarget struct {
	addr      crypto.Address
	tokenIn   crypto.Address
	tokenOut  crypto.Address
	amountIn  *big.Int
	amountOut *big.Int
}

func (s *swapTarget) Address() crypto.Address { return s.addr }

func (s *swapTarget) Execute(ctx *ExecutionContext, _ []byte) ([]byte, error) {
	if ctx.Vault.Balance(s.tokenIn.Key()).Cmp(s.amountIn) < 0 {
		return nil, ErrInsufficientBalance
	}
	ctx.Vault.SubBalance(s.tokenIn.Key(), s.amountIn)
	ctx.Vault.AddBalance(s.tokenOut.Key(), s.amountOut)
	return nil, nil
}

func setupGateway(t *testing.T, env *testEnv, amountIn, amountOut int64) (crypto.Address, *swapTarget) {
	t.Helper()
	tokenB := testToken(0x02)
	env.allowToken(tokenB, 8000, 1)

	adapter := testAccount(0xA1)
	target := &swapTarget{
		addr:      testAccount(0xD1),
		tokenIn:   env.underlying,
		tokenOut:  tokenB,
		amountIn:  big.NewInt(amountIn),
		amountOut: big.NewInt(amountOut),
	}
	if err := env.adapters.Register(adapter, target.Address()); err != nil {
		t.Fatalf("register adapter: %v", err)
	}
	env.gateway.RegisterTarget(target)
	return adapter, target
}

func TestExecuteOrderDispatchesToTarget(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	adapter, target := setupGateway(t, env, 100, 99)
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(200)); err != nil {
		t.Fatalf("open account: %v", err)
	}

	if _, err := env.gateway.ExecuteOrder(adapter, owner, target.Address(), []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("execute order: %v", err)
	}
	account := env.account(owner)
	if got := account.Vault.Balance(env.underlying.Key()); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected underlying spent, got %s", got)
	}
	if got := account.Vault.Balance(target.tokenOut.Key()); got.Cmp(big.NewInt(99)) != 0 {
		t.Fatalf("expected proceeds credited, got %s", got)
	}
}

func TestExecuteOrderAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	_, target := setupGateway(t, env, 100, 99)
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(200)); err != nil {
		t.Fatalf("open account: %v", err)
	}

	outsider := testAccount(0x44)
	if _, err := env.gateway.ExecuteOrder(outsider, owner, target.Address(), nil); !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
	if _, err := env.gateway.ExecuteOrder(outsider, owner, testAccount(0xDD), nil); !errors.Is(err, ErrTargetNotRegistered) {
		t.Fatalf("expected ErrTargetNotRegistered, got %v", err)
	}
}

func TestExecuteOrderPropagatesTargetFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	adapter, target := setupGateway(t, env, 500, 495)
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(200)); err != nil {
		t.Fatalf("open account: %v", err)
	}

	// The vault holds 200, short of the 500 the venue wants.
	if _, err := env.gateway.ExecuteOrder(adapter, owner, target.Address(), nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected target failure to propagate, got %v", err)
	}
	account := env.account(owner)
	if got := account.Vault.Balance(env.underlying.Key()); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected vault untouched after failure, got %s", got)
	}
}

func TestFastCheckOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	// 999 out for 1000 in stays within the 9950 tolerance.
	adapter, target := setupGateway(t, env, 1000, 999)
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(1000)); err != nil {
		t.Fatalf("open account: %v", err)
	}

	balanceInBefore := big.NewInt(1000)
	balanceOutBefore := big.NewInt(0)
	if _, err := env.gateway.ExecuteOrder(adapter, owner, target.Address(), nil); err != nil {
		t.Fatalf("execute order: %v", err)
	}
	if err := env.gateway.FastCheckOrder(adapter, owner, env.underlying, target.tokenOut, balanceInBefore, balanceOutBefore); err != nil {
		t.Fatalf("fast check order: %v", err)
	}

	account := env.account(owner)
	if account.FastCheckCounter != 2 {
		t.Fatalf("expected counter 2 after a passing fast check, got %d", account.FastCheckCounter)
	}
	if !account.EnabledTokens.IsEnabled(1) {
		t.Fatalf("expected acquired token enabled")
	}

	outsider := testAccount(0x44)
	if err := env.gateway.FastCheckOrder(outsider, owner, env.underlying, target.tokenOut, balanceInBefore, balanceOutBefore); !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
}

func TestFullCheckOrderFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	adapter, _ := setupGateway(t, env, 100, 99)
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(200)); err != nil {
		t.Fatalf("open account: %v", err)
	}
	account := env.account(owner)
	account.FastCheckCounter = 3
	if err := env.state.PutCreditAccount(account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	if err := env.gateway.FullCheckOrder(adapter, owner); err != nil {
		t.Fatalf("full check order: %v", err)
	}
	if got := env.account(owner).FastCheckCounter; got != 1 {
		t.Fatalf("expected counter reset to 1, got %d", got)
	}
}

func TestApproveForTargetStrictReset(t *testing.T) {
	env := newTestEnv(t)
	owner := testAccount(0x11)
	adapter, target := setupGateway(t, env, 100, 99)
	if err := env.registry.SetStrictApprove(target.tokenOut, true); err != nil {
		t.Fatalf("set strict approve: %v", err)
	}
	if _, err := env.ledger.OpenAccount(owner, big.NewInt(200)); err != nil {
		t.Fatalf("open account: %v", err)
	}

	if err := env.gateway.ApproveForTarget(adapter, owner, target.Address(), target.tokenOut, big.NewInt(500)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// A second non-zero approve goes through the reset-to-zero path.
	if err := env.gateway.ApproveForTarget(adapter, owner, target.Address(), target.tokenOut, big.NewInt(750)); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	account := env.account(owner)
	if got := account.Vault.Allowance(target.Address().Key(), target.tokenOut.Key()); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("expected allowance 750, got %s", got)
	}

	if err := env.gateway.ApproveForTarget(adapter, owner, target.Address(), testToken(0x0F), big.NewInt(1)); !errors.Is(err, ErrTokenNotAllowed) {
		t.Fatalf("expected ErrTokenNotAllowed, got %v", err)
	}
}
