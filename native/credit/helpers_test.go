package credit

import (
	"bytes"
	"math/big"
	"testing"

	"creditvault/crypto"
)

func testAccount(fill byte) crypto.Address {
	buf := bytes.Repeat([]byte{fill}, crypto.AddressLength)
	return crypto.MustNewAddress(crypto.AccountPrefix, buf)
}

func testToken(fill byte) crypto.Address {
	buf := bytes.Repeat([]byte{fill}, crypto.AddressLength)
	return crypto.MustNewAddress(crypto.TokenPrefix, buf)
}

func testParams() RiskParameters {
	return RiskParameters{
		MinBorrowed:         big.NewInt(10),
		MaxBorrowed:         big.NewInt(1_000_000),
		FeeInterest:         1000,
		FeeLiquidation:      200,
		LiquidationDiscount: 9500,
		ChiThreshold:        9950,
		HFCheckInterval:     4,
	}
}

// stubPool is a deterministic Pool: the borrow index only moves when a test
// sets it, and every settlement is recorded for assertions.
type stubPool struct {
	index     *big.Int
	available *big.Int
	borrowed  *big.Int
	profit    *big.Int
	loss      *big.Int
}

func newStubPool() *stubPool {
	return &stubPool{
		index:     new(big.Int).Set(ray),
		available: big.NewInt(1_000_000_000),
		borrowed:  big.NewInt(0),
		profit:    big.NewInt(0),
		loss:      big.NewInt(0),
	}
}

func (p *stubPool) Lend(amount *big.Int, _ crypto.Address) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if p.available.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	p.available.Sub(p.available, amount)
	p.borrowed.Add(p.borrowed, amount)
	return nil
}

func (p *stubPool) Repay(principal, profit, loss *big.Int) error {
	if principal != nil {
		p.borrowed.Sub(p.borrowed, principal)
	}
	if profit != nil {
		p.profit.Add(p.profit, profit)
	}
	if loss != nil {
		p.loss.Add(p.loss, loss)
	}
	return nil
}

func (p *stubPool) CurrentIndex() *big.Int { return new(big.Int).Set(p.index) }

func (p *stubPool) Checkpoint() func() {
	available := new(big.Int).Set(p.available)
	borrowed := new(big.Int).Set(p.borrowed)
	profit := new(big.Int).Set(p.profit)
	loss := new(big.Int).Set(p.loss)
	return func() {
		p.available = available
		p.borrowed = borrowed
		p.profit = profit
		p.loss = loss
	}
}

// setIndexFactor scales the borrow index to ray * num / den, simulating
// accrued interest.
func (p *stubPool) setIndexFactor(num, den int64) {
	p.index = new(big.Int).Mul(ray, big.NewInt(num))
	p.index.Quo(p.index, big.NewInt(den))
}

type testEnv struct {
	t *testing.T

	configurator crypto.Address
	underlying   crypto.Address

	state    *MemoryState
	pool     *stubPool
	registry *TokenRegistry
	oracle   *FeedOracle
	params   RiskParameters
	ledger   *Ledger
	verifier *Verifier
	adapters *AdapterRegistry
	gateway  *Gateway
	facade   *Facade
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		t:            t,
		configurator: testAccount(0xC0),
		underlying:   testToken(0x01),
		params:       testParams(),
	}
	env.state = NewMemoryState()
	env.pool = newStubPool()
	env.registry = NewTokenRegistry(env.underlying, env.params)
	env.oracle = NewFeedOracle(env.configurator)
	env.setPrice(env.underlying, 1)

	env.ledger = NewLedger(testAccount(0xE1), env.params)
	env.ledger.SetState(env.state)
	env.ledger.SetPool(env.pool)
	env.ledger.SetRegistry(env.registry)

	env.verifier = NewVerifier(env.registry, env.oracle, env.params)
	env.adapters = NewAdapterRegistry()
	env.gateway = NewGateway(testAccount(0xB2), env.ledger, env.verifier, env.adapters)
	env.facade = NewFacade(testAccount(0xFA), env.configurator, env.ledger, env.verifier, env.gateway, env.adapters)
	return env
}

// setPrice registers a whole-dollar USD feed for the token.
func (env *testEnv) setPrice(token crypto.Address, dollars int64) {
	env.t.Helper()
	price := new(big.Int).Mul(big.NewInt(dollars), usdScale)
	if err := env.oracle.SetFeed(env.configurator, token, price); err != nil {
		env.t.Fatalf("set feed: %v", err)
	}
}

func (env *testEnv) allowToken(token crypto.Address, threshold uint64, dollars int64) {
	env.t.Helper()
	if _, err := env.registry.AllowToken(token, threshold); err != nil {
		env.t.Fatalf("allow token: %v", err)
	}
	env.setPrice(token, dollars)
}

func (env *testEnv) fund(addr, token crypto.Address, amount int64) {
	env.t.Helper()
	wallet, err := env.state.GetWallet(addr)
	if err != nil {
		env.t.Fatalf("get wallet: %v", err)
	}
	wallet.AddBalance(token.Key(), big.NewInt(amount))
	if err := env.state.PutWallet(addr, wallet); err != nil {
		env.t.Fatalf("put wallet: %v", err)
	}
}

func (env *testEnv) walletBalance(addr, token crypto.Address) *big.Int {
	env.t.Helper()
	wallet, err := env.state.GetWallet(addr)
	if err != nil {
		env.t.Fatalf("get wallet: %v", err)
	}
	return wallet.Balance(token.Key())
}

func (env *testEnv) account(owner crypto.Address) *CreditAccount {
	env.t.Helper()
	account, err := env.ledger.account(owner)
	if err != nil {
		env.t.Fatalf("load account: %v", err)
	}
	return account
}
