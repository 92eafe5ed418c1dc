package credit

import (
	"log/slog"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"creditvault/core/events"
	"creditvault/core/types"
	"creditvault/crypto"
	"creditvault/observability/metrics"
)

// ExecutionContext is the account-scoped handle a target receives during
// executeOrder. Calls run with the account as the calling context, so one
// account's exposure stays isolated from every other.
type ExecutionContext struct {
	Borrower crypto.Address
	Vault    *types.Vault
}

// Target is an external protocol contract reachable through a registered
// adapter. Execute interprets the raw call payload and mutates the account
// vault; any failure propagates verbatim to the caller.
type Target interface {
	Address() crypto.Address
	Execute(ctx *ExecutionContext, data []byte) ([]byte, error)
}

// Gateway is the single choke point through which every external call from a
// credit account is dispatched. Only the adapter registered for a target may
// invoke it.
type Gateway struct {
	address  crypto.Address
	ledger   *Ledger
	verifier *Verifier
	adapters *AdapterRegistry
	targets  map[string]Target
	emitter  events.Emitter
	logger   *slog.Logger
}

func NewGateway(address crypto.Address, ledger *Ledger, verifier *Verifier, adapters *AdapterRegistry) *Gateway {
	return &Gateway{
		address:  address,
		ledger:   ledger,
		verifier: verifier,
		adapters: adapters,
		targets:  make(map[string]Target),
		emitter:  events.NoopEmitter{},
	}
}

// Address returns the gateway's module address.
func (g *Gateway) Address() crypto.Address { return g.address }

// SetEmitter wires the downstream event sink.
func (g *Gateway) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	g.emitter = emitter
}

// SetLogger wires an optional structured logger for dispatch auditing.
func (g *Gateway) SetLogger(logger *slog.Logger) { g.logger = logger }

// RegisterTarget installs the in-process implementation for a target address.
func (g *Gateway) RegisterTarget(target Target) {
	if target == nil {
		return
	}
	g.targets[target.Address().Key()] = target
}

func (g *Gateway) authorize(caller, target crypto.Address) error {
	adapter, ok := g.adapters.AdapterFor(target)
	if !ok {
		return ErrTargetNotRegistered
	}
	if !adapter.Equal(caller) {
		return ErrUnauthorizedCaller
	}
	return nil
}

// ExecuteOrder dispatches a raw call to the target through the borrower's
// isolated execution context and emits an audit event. Target failures are
// never swallowed.
func (g *Gateway) ExecuteOrder(caller, borrower, target crypto.Address, data []byte) ([]byte, error) {
	if err := g.authorize(caller, target); err != nil {
		return nil, err
	}
	account, err := g.ledger.account(borrower)
	if err != nil {
		return nil, err
	}
	impl, ok := g.targets[target.Key()]
	if !ok {
		return nil, ErrTargetNotRegistered
	}

	result, err := impl.Execute(&ExecutionContext{Borrower: borrower, Vault: account.Vault}, data)
	if err != nil {
		return nil, err
	}
	if err := g.ledger.state.PutCreditAccount(account); err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	var dataHash [32]byte
	copy(dataHash[:], ethcrypto.Keccak256(data))
	event := events.OrderExecuted{OrderID: orderID, DataHash: dataHash}
	copy(event.Borrower[:], borrower.Bytes())
	copy(event.Adapter[:], caller.Bytes())
	copy(event.Target[:], target.Bytes())
	g.emitter.Emit(event)
	metrics.Credit().RecordOrder()
	if g.logger != nil {
		g.logger.Debug("order executed",
			"orderId", orderID,
			"borrower", borrower.String(),
			"target", target.String(),
		)
	}
	return result, nil
}

// ApproveForTarget sets the account's token allowance for a target. Tokens
// with strict approve semantics are reset to zero before the overwrite, since
// they reject a direct non-zero to non-zero change.
func (g *Gateway) ApproveForTarget(caller, borrower, target, token crypto.Address, amount *big.Int) error {
	if err := g.authorize(caller, target); err != nil {
		return err
	}
	index, ok := g.ledger.registry.IndexOf(token)
	if !ok {
		return ErrTokenNotAllowed
	}
	meta, _ := g.ledger.registry.TokenByIndex(index)
	account, err := g.ledger.account(borrower)
	if err != nil {
		return err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	current := account.Vault.Allowance(target.Key(), token.Key())
	if meta.StrictApprove && current.Sign() != 0 && amount.Sign() != 0 {
		account.Vault.SetAllowance(target.Key(), token.Key(), big.NewInt(0))
	}
	account.Vault.SetAllowance(target.Key(), token.Key(), amount)
	return g.ledger.state.PutCreditAccount(account)
}

// FastCheckOrder is the convenience entry adapters call after ExecuteOrder,
// passing the before-balances they captured themselves.
func (g *Gateway) FastCheckOrder(caller, borrower, tokenIn, tokenOut crypto.Address, balanceInBefore, balanceOutBefore *big.Int) error {
	if _, ok := g.adapters.TargetFor(caller); !ok {
		return ErrUnauthorizedCaller
	}
	account, err := g.ledger.account(borrower)
	if err != nil {
		return err
	}
	debt := borrowedWithInterest(account, g.ledger.pool.CurrentIndex())
	passedFast := account.FastCheckCounter
	if err := g.verifier.FastCheck(account, debt, tokenIn, tokenOut, balanceInBefore, balanceOutBefore); err != nil {
		return err
	}
	metrics.Credit().RecordFastCheck(account.FastCheckCounter > passedFast)
	return g.ledger.state.PutCreditAccount(account)
}

// FullCheckOrder triggers the authoritative collateral check on demand.
func (g *Gateway) FullCheckOrder(caller, borrower crypto.Address) error {
	if _, ok := g.adapters.TargetFor(caller); !ok {
		return ErrUnauthorizedCaller
	}
	account, err := g.ledger.account(borrower)
	if err != nil {
		return err
	}
	debt := borrowedWithInterest(account, g.ledger.pool.CurrentIndex())
	if err := g.verifier.FullCheck(account, debt); err != nil {
		return err
	}
	metrics.Credit().RecordFullCheck()
	return g.ledger.state.PutCreditAccount(account)
}
