package credit

import (
	"log/slog"
	"math/big"

	"creditvault/core/events"
	"creditvault/crypto"
	"creditvault/native/common"
	"creditvault/observability/metrics"
)

const moduleName = "credit"

// LeverageFactor scales the leverage argument of OpenAccount: a value of 400
// borrows four times the deposited collateral.
const LeverageFactor = 100

// Adapter is the trusted wrapper contract for one external target. The facade
// forwards batch calls to the adapter, which translates them into gateway
// orders on behalf of the custody holder.
type Adapter interface {
	Address() crypto.Address
	TargetContract() crypto.Address
	Execute(borrower crypto.Address, data []byte) ([]byte, error)
}

// CredentialSource reports how many open credentials an address holds while
// degen mode restricts account opening.
type CredentialSource interface {
	BalanceOf(addr crypto.Address) uint64
}

// Facade is the single borrower-facing entry point. It owns batch
// orchestration: custody of the account while calls run, all-or-nothing state
// semantics and exactly one authoritative collateral check per batch.
type Facade struct {
	address      crypto.Address
	configurator crypto.Address
	ledger       *Ledger
	verifier     *Verifier
	gateway      *Gateway
	adapters     *AdapterRegistry
	adapterImpls map[string]Adapter

	emitter events.Emitter
	logger  *slog.Logger
	pauses  common.PauseView
	pending []events.Event

	transferApprovals map[string]map[string]bool

	degen       bool
	credentials CredentialSource
	openCounts  map[string]uint64

	entered bool
}

func NewFacade(address, configurator crypto.Address, ledger *Ledger, verifier *Verifier, gateway *Gateway, adapters *AdapterRegistry) *Facade {
	return &Facade{
		address:           address,
		configurator:      configurator,
		ledger:            ledger,
		verifier:          verifier,
		gateway:           gateway,
		adapters:          adapters,
		adapterImpls:      make(map[string]Adapter),
		emitter:           events.NoopEmitter{},
		transferApprovals: make(map[string]map[string]bool),
		openCounts:        make(map[string]uint64),
	}
}

// Address returns the facade's module address, the target of reserved
// self-calls in a batch.
func (f *Facade) Address() crypto.Address { return f.address }

// SetEmitter wires the downstream event sink.
func (f *Facade) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.emitter = emitter
}

// SetLogger wires an optional structured logger.
func (f *Facade) SetLogger(logger *slog.Logger) { f.logger = logger }

// SetPauses wires the pause switchboard consulted on every entry point.
func (f *Facade) SetPauses(pauses common.PauseView) { f.pauses = pauses }

// begin guards an entry point: pause switch, reentrancy latch and a state
// snapshot. The returned finish func commits or reverts depending on the
// final error and flushes buffered events only on commit.
func (f *Facade) begin() (func(*error), error) {
	if err := common.Guard(f.pauses, moduleName); err != nil {
		return nil, err
	}
	if f.entered {
		return nil, ErrReentrantCall
	}
	if f.ledger == nil || f.ledger.state == nil {
		return nil, ErrNilState
	}
	f.entered = true
	rev := f.ledger.state.Snapshot()
	var restorePool func()
	if journal, ok := f.ledger.pool.(interface{ Checkpoint() func() }); ok {
		restorePool = journal.Checkpoint()
	}
	return func(errp *error) {
		f.entered = false
		if *errp != nil {
			f.ledger.state.RevertToSnapshot(rev)
			if restorePool != nil {
				restorePool()
			}
			f.pending = f.pending[:0]
			metrics.Credit().RecordBatch(false)
			return
		}
		f.ledger.state.DiscardSnapshot(rev)
		for _, event := range f.pending {
			f.emitter.Emit(event)
		}
		f.pending = f.pending[:0]
		metrics.Credit().RecordBatch(true)
	}, nil
}

func (f *Facade) emit(event events.Event) {
	f.pending = append(f.pending, event)
}

func addr20(a crypto.Address) (out [20]byte) {
	copy(out[:], a.Bytes())
	return out
}

func (f *Facade) syncBorrowGauge() {
	if pool, ok := f.ledger.pool.(*LinearPool); ok {
		value, _ := new(big.Float).SetInt(pool.TotalBorrowed()).Float64()
		metrics.Credit().SetTotalBorrowed(value)
	}
}

func (f *Facade) checkCredential(caller crypto.Address) error {
	if !f.degen {
		return nil
	}
	if f.credentials == nil {
		return ErrCredentialRequired
	}
	quota := common.CredentialQuota{
		Balance: f.credentials.BalanceOf(caller),
		Opened:  f.openCounts[caller.Key()],
	}
	next, err := common.CheckCredential(quota, 1)
	if err != nil {
		return ErrCredentialExhausted
	}
	f.openCounts[caller.Key()] = next.Opened
	return nil
}

// OpenAccount deposits amount of underlying from the caller's wallet, borrows
// amount*leverage/LeverageFactor from the pool and opens the account for
// onBehalfOf (defaulting to the caller). The leverage must stay below the
// bound implied by the underlying's liquidation threshold, otherwise the
// account would be born insolvent.
func (f *Facade) OpenAccount(caller crypto.Address, amount *big.Int, onBehalfOf crypto.Address, leverage uint64, referral crypto.Address) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if _, _, err = f.openFor(caller, amount, onBehalfOf, leverage, referral); err != nil {
		return err
	}
	// Consumed last so a failed open never burns a credential.
	return f.checkCredential(caller)
}

// OpenAccountWithBatch opens an account and immediately runs a batch of calls
// under facade custody, closing with the authoritative collateral check. The
// leverage pre-check of OpenAccount still applies, so the batch starts from a
// healthy account.
func (f *Facade) OpenAccountWithBatch(caller crypto.Address, amount *big.Int, onBehalfOf crypto.Address, leverage uint64, referral crypto.Address, calls []Call) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if err = f.validateBatch(calls, false); err != nil {
		return err
	}
	owner, _, err := f.openFor(caller, amount, onBehalfOf, leverage, referral)
	if err != nil {
		return err
	}
	if err = f.withCustody(owner, calls); err != nil {
		return err
	}
	if err = f.fullCheck(owner); err != nil {
		return err
	}
	return f.checkCredential(caller)
}

// openFor validates the leverage bound, opens the ledger entry and deposits
// the caller's underlying collateral. Callers hold the reentrancy latch.
func (f *Facade) openFor(caller crypto.Address, amount *big.Int, onBehalfOf crypto.Address, leverage uint64, referral crypto.Address) (crypto.Address, *big.Int, error) {
	if amount == nil || amount.Sign() <= 0 || leverage == 0 {
		return crypto.Address{}, nil, ErrInvalidAmount
	}
	if onBehalfOf.IsZero() {
		onBehalfOf = caller
	}
	borrowed := new(big.Int).Mul(amount, new(big.Int).SetUint64(leverage))
	borrowed.Quo(borrowed, big.NewInt(LeverageFactor))

	// amount * LT > borrowed * (10000 - LT) keeps the opening health factor
	// above one.
	threshold := f.ledger.registry.Underlying().LiquidationThreshold
	lhs := new(big.Int).Mul(amount, new(big.Int).SetUint64(threshold))
	rhs := new(big.Int).Mul(borrowed, new(big.Int).SetUint64(PercentFactor-threshold))
	if lhs.Cmp(rhs) <= 0 {
		return crypto.Address{}, nil, ErrLeverageExceeded
	}

	if _, err := f.ledger.OpenAccount(onBehalfOf, borrowed); err != nil {
		return crypto.Address{}, nil, err
	}
	underlying := f.ledger.registry.Underlying().Address
	if err := f.ledger.AddCollateral(caller, onBehalfOf, underlying, amount); err != nil {
		return crypto.Address{}, nil, err
	}

	f.emit(events.AccountOpened{Owner: addr20(onBehalfOf), Borrowed: borrowed, Referral: addr20(referral)})
	metrics.Credit().RecordOpen()
	f.syncBorrowGauge()
	if f.logger != nil {
		f.logger.Info("credit account opened",
			"owner", onBehalfOf.String(),
			"borrowed", borrowed.String(),
		)
	}
	return onBehalfOf, borrowed, nil
}

// AddCollateral deposits a whitelisted token from the caller's wallet into
// onBehalfOf's open account. Adding collateral can only improve solvency, so
// no check follows.
func (f *Facade) AddCollateral(caller, onBehalfOf, token crypto.Address, amount *big.Int) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if onBehalfOf.IsZero() {
		onBehalfOf = caller
	}
	if err = f.ledger.AddCollateral(caller, onBehalfOf, token, amount); err != nil {
		return err
	}
	f.emit(events.CollateralAdded{Owner: addr20(onBehalfOf), Payer: addr20(caller), Token: addr20(token), Amount: amount})
	return nil
}

// IncreaseDebt borrows additional principal for the caller's account and runs
// the authoritative collateral check on the result.
func (f *Facade) IncreaseDebt(caller crypto.Address, amount *big.Int) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	principal, err := f.ledger.ManageDebt(caller, amount, true)
	if err != nil {
		return err
	}
	if err = f.fullCheck(caller); err != nil {
		return err
	}
	f.emit(events.DebtChanged{Owner: addr20(caller), Amount: amount, Principal: principal, Increase: true})
	f.syncBorrowGauge()
	return nil
}

// DecreaseDebt repays principal plus accrued interest and the interest fee
// from the account vault, then runs the authoritative collateral check on the
// result. The repayment drains the vault, so an already unhealthy account
// still fails the check here.
func (f *Facade) DecreaseDebt(caller crypto.Address, amount *big.Int) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	principal, err := f.ledger.ManageDebt(caller, amount, false)
	if err != nil {
		return err
	}
	if err = f.fullCheck(caller); err != nil {
		return err
	}
	f.emit(events.DebtChanged{Owner: addr20(caller), Amount: amount, Principal: principal, Increase: false})
	f.syncBorrowGauge()
	return nil
}

// Multicall executes a batch of calls with the facade holding custody of the
// caller's account, then runs exactly one full collateral check. Any failure
// reverts every state change in the batch.
func (f *Facade) Multicall(caller crypto.Address, calls []Call) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if !f.ledger.IsAccountOpen(caller) {
		return ErrNoOpenAccount
	}
	if err = f.validateBatch(calls, false); err != nil {
		return err
	}
	if err = f.withCustody(caller, calls); err != nil {
		return err
	}
	return f.fullCheck(caller)
}

// CloseAccount unwinds the caller's positions through the closure batch,
// settles the debt with the pool and sweeps the remaining collateral to the
// recipient. Debt-changing self-calls are rejected inside a closure batch.
func (f *Facade) CloseAccount(caller, to crypto.Address, skipMask TokenMask, unwrapNative bool, calls []Call) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if !f.ledger.IsAccountOpen(caller) {
		return ErrNoOpenAccount
	}
	if to.IsZero() {
		to = caller
	}
	if err = f.validateBatch(calls, true); err != nil {
		return err
	}
	if err = f.withCustody(caller, calls); err != nil {
		return err
	}

	account, err := f.ledger.account(caller)
	if err != nil {
		return err
	}
	totalValue, _, err := f.verifier.AccountValue(account)
	if err != nil {
		return err
	}
	remaining, _, err := f.ledger.CloseAccount(caller, false, totalValue, caller, to, skipMask, unwrapNative)
	if err != nil {
		return err
	}

	f.emit(events.AccountClosed{Owner: addr20(caller), Recipient: addr20(to), Remaining: remaining})
	metrics.Credit().RecordClose(false)
	f.syncBorrowGauge()
	return nil
}

// LiquidateAccount force-closes an unhealthy account. The total value is
// priced before the liquidator's batch runs so the discount applies to what
// the account held, not to what the batch produced. The liquidator's wallet
// covers any settlement shortfall.
func (f *Facade) LiquidateAccount(caller, borrower, to crypto.Address, skipMask TokenMask, unwrapNative bool, calls []Call) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	account, err := f.ledger.account(borrower)
	if err != nil {
		return err
	}
	debt := borrowedWithInterest(account, f.ledger.pool.CurrentIndex())
	liquidatable, err := f.verifier.IsLiquidatable(account, debt)
	if err != nil {
		return err
	}
	if !liquidatable {
		return ErrNotLiquidatable
	}
	totalValue, _, err := f.verifier.AccountValue(account)
	if err != nil {
		return err
	}

	if to.IsZero() {
		to = caller
	}
	if err = f.validateBatch(calls, true); err != nil {
		return err
	}
	if err = f.withCustody(borrower, calls); err != nil {
		return err
	}
	remaining, loss, err := f.ledger.CloseAccount(borrower, true, totalValue, caller, to, skipMask, unwrapNative)
	if err != nil {
		return err
	}

	f.emit(events.AccountLiquidated{Owner: addr20(borrower), Liquidator: addr20(caller), Remaining: remaining, Loss: loss})
	metrics.Credit().RecordClose(true)
	f.syncBorrowGauge()
	if f.logger != nil {
		f.logger.Info("credit account liquidated",
			"owner", borrower.String(),
			"liquidator", caller.String(),
			"loss", loss.String(),
		)
	}
	return nil
}

// ApproveTransfers lets the caller accept (or revoke accepting) account
// ownership pushed by from.
func (f *Facade) ApproveTransfers(caller, from crypto.Address, allowed bool) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if from.IsZero() {
		return ErrZeroAddress
	}
	inner := f.transferApprovals[caller.Key()]
	if inner == nil {
		inner = make(map[string]bool)
		f.transferApprovals[caller.Key()] = inner
	}
	inner[from.Key()] = allowed
	return nil
}

// TransferAccountOwnership moves the caller's account to a recipient that has
// approved transfers from the caller. Unhealthy accounts cannot be handed
// over.
func (f *Facade) TransferAccountOwnership(caller, to crypto.Address) (err error) {
	finish, err := f.begin()
	if err != nil {
		return err
	}
	defer func() { finish(&err) }()

	if to.IsZero() {
		return ErrZeroAddress
	}
	if !f.transferApprovals[to.Key()][caller.Key()] {
		return ErrTransferNotAllowed
	}
	account, err := f.ledger.account(caller)
	if err != nil {
		return err
	}
	debt := borrowedWithInterest(account, f.ledger.pool.CurrentIndex())
	liquidatable, err := f.verifier.IsLiquidatable(account, debt)
	if err != nil {
		return err
	}
	if liquidatable {
		return ErrUnhealthyTransfer
	}
	if err = f.ledger.TransferOwnership(caller, to); err != nil {
		return err
	}
	f.emit(events.OwnershipTransferred{From: addr20(caller), To: addr20(to)})
	return nil
}

// withCustody moves the account under the facade's key, runs the batch and
// returns the account to the borrower. The snapshot taken in begin guarantees
// custody can never leak on failure.
func (f *Facade) withCustody(borrower crypto.Address, calls []Call) error {
	if len(calls) == 0 {
		return nil
	}
	if err := f.ledger.TransferOwnership(borrower, f.address); err != nil {
		return err
	}
	f.emit(events.OwnershipTransferred{From: addr20(borrower), To: addr20(f.address)})
	if err := f.runBatch(borrower, calls); err != nil {
		return err
	}
	if err := f.ledger.TransferOwnership(f.address, borrower); err != nil {
		return err
	}
	f.emit(events.OwnershipTransferred{From: addr20(f.address), To: addr20(borrower)})
	return nil
}

// validateBatch rejects malformed batches before any call executes: unknown
// selectors, short payloads, conflicting debt directions, debt changes inside
// a closure batch and calls aimed directly at internal modules.
func (f *Facade) validateBatch(calls []Call, closure bool) error {
	var hasIncrease, hasDecrease bool
	for _, call := range calls {
		if len(call.Data) < selectorLength {
			return ErrMalformedCall
		}
		if call.Target.Equal(f.address) {
			if closure {
				return ErrInternalCallDuringClosure
			}
			switch {
			case hasSelector(call.Data, selAddCollateral):
				if _, _, err := decodeAddCollateral(call.Data); err != nil {
					return err
				}
			case hasSelector(call.Data, selIncreaseDebt):
				if _, err := decodeDebtChange(call.Data); err != nil {
					return err
				}
				hasIncrease = true
			case hasSelector(call.Data, selDecreaseDebt):
				if _, err := decodeDebtChange(call.Data); err != nil {
					return err
				}
				hasDecrease = true
			default:
				return ErrUnknownSelector
			}
			continue
		}
		if call.Target.Equal(f.ledger.Address()) || call.Target.Equal(f.gateway.Address()) {
			return ErrForbiddenDirectCall
		}
		if _, ok := f.adapterImpls[call.Target.Key()]; !ok {
			return ErrTargetNotRegistered
		}
	}
	if hasIncrease && hasDecrease {
		return ErrConflictingDebtCalls
	}
	return nil
}

// runBatch executes a validated batch while the facade holds custody.
// borrower identifies the original owner, whose wallet funds mid-batch
// collateral deposits.
func (f *Facade) runBatch(borrower crypto.Address, calls []Call) error {
	for _, call := range calls {
		if call.Target.Equal(f.address) {
			if err := f.runSelfCall(borrower, call.Data); err != nil {
				return err
			}
			continue
		}
		adapter := f.adapterImpls[call.Target.Key()]
		if _, err := adapter.Execute(f.address, call.Data); err != nil {
			return err
		}
	}
	return nil
}

func (f *Facade) runSelfCall(borrower crypto.Address, data []byte) error {
	switch {
	case hasSelector(data, selAddCollateral):
		token, amount, err := decodeAddCollateral(data)
		if err != nil {
			return err
		}
		if err := f.ledger.AddCollateral(borrower, f.address, token, amount); err != nil {
			return err
		}
		f.emit(events.CollateralAdded{Owner: addr20(borrower), Payer: addr20(borrower), Token: addr20(token), Amount: amount})
		return nil
	case hasSelector(data, selIncreaseDebt):
		amount, err := decodeDebtChange(data)
		if err != nil {
			return err
		}
		principal, err := f.ledger.ManageDebt(f.address, amount, true)
		if err != nil {
			return err
		}
		f.emit(events.DebtChanged{Owner: addr20(borrower), Amount: amount, Principal: principal, Increase: true})
		f.syncBorrowGauge()
		return nil
	case hasSelector(data, selDecreaseDebt):
		amount, err := decodeDebtChange(data)
		if err != nil {
			return err
		}
		principal, err := f.ledger.ManageDebt(f.address, amount, false)
		if err != nil {
			return err
		}
		f.emit(events.DebtChanged{Owner: addr20(borrower), Amount: amount, Principal: principal, Increase: false})
		f.syncBorrowGauge()
		return nil
	}
	return ErrUnknownSelector
}

// fullCheck runs the authoritative collateral verification for the owner's
// account and persists the refreshed mask and counter.
func (f *Facade) fullCheck(owner crypto.Address) error {
	account, err := f.ledger.account(owner)
	if err != nil {
		return err
	}
	debt := borrowedWithInterest(account, f.ledger.pool.CurrentIndex())
	if err := f.verifier.FullCheck(account, debt); err != nil {
		return err
	}
	metrics.Credit().RecordFullCheck()
	return f.ledger.state.PutCreditAccount(account)
}

// HealthFactor reports the basis point scaled health factor of an open
// account. Values below PercentFactor mean the account is liquidatable.
func (f *Facade) HealthFactor(owner crypto.Address) (uint64, error) {
	account, err := f.ledger.account(owner)
	if err != nil {
		return 0, err
	}
	debt := borrowedWithInterest(account, f.ledger.pool.CurrentIndex())
	return f.verifier.HealthFactor(account, debt)
}

// TotalValue prices every enabled collateral balance of an open account in
// underlying units, both raw and threshold-weighted.
func (f *Facade) TotalValue(owner crypto.Address) (total, weighted *big.Int, err error) {
	account, err := f.ledger.account(owner)
	if err != nil {
		return nil, nil, err
	}
	return f.verifier.AccountValue(account)
}

// --- Configurator operations ---

func (f *Facade) requireConfigurator(caller crypto.Address) error {
	if !caller.Equal(f.configurator) {
		return ErrNotConfigurator
	}
	return nil
}

// AllowToken whitelists a collateral token or updates its threshold, clearing
// any forbid flag.
func (f *Facade) AllowToken(caller, token crypto.Address, liquidationThreshold uint64) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	changed, err := f.ledger.registry.AllowToken(token, liquidationThreshold)
	if err != nil {
		return err
	}
	if changed {
		f.emitter.Emit(events.TokenAllowed{Token: addr20(token), LiquidationThreshold: liquidationThreshold})
	}
	return nil
}

// ForbidToken blocks new acquisition of a token while existing balances keep
// counting as collateral.
func (f *Facade) ForbidToken(caller, token crypto.Address) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	if err := f.ledger.registry.ForbidToken(token); err != nil {
		return err
	}
	f.emitter.Emit(events.TokenForbidden{Token: addr20(token)})
	return nil
}

// SetStrictApprove marks a token as rejecting non-zero to non-zero allowance
// changes.
func (f *Facade) SetStrictApprove(caller, token crypto.Address, strict bool) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	return f.ledger.registry.SetStrictApprove(token, strict)
}

// RegisterAdapter whitelists an adapter/target pair and installs the adapter
// implementation for batch dispatch.
func (f *Facade) RegisterAdapter(caller crypto.Address, adapter Adapter) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	if adapter == nil || adapter.Address().IsZero() || adapter.TargetContract().IsZero() {
		return ErrZeroAddress
	}
	if err := f.adapters.Register(adapter.Address(), adapter.TargetContract()); err != nil {
		return err
	}
	f.adapterImpls[adapter.TargetContract().Key()] = adapter
	f.emitter.Emit(events.AdapterRegistered{Adapter: addr20(adapter.Address()), Target: addr20(adapter.TargetContract())})
	return nil
}

// SetParams replaces the risk parameter set on the ledger and the verifier
// after validating the liquidation coverage invariant.
func (f *Facade) SetParams(caller crypto.Address, params RiskParameters) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	if err := f.ledger.SetParams(params); err != nil {
		return err
	}
	if err := f.verifier.SetParams(params); err != nil {
		return err
	}
	f.emitter.Emit(events.ParamsUpdated{
		MinBorrowed:     params.MinBorrowed,
		MaxBorrowed:     params.MaxBorrowed,
		FeeInterest:     params.FeeInterest,
		FeeLiquidation:  params.FeeLiquidation,
		ChiThreshold:    params.ChiThreshold,
		HFCheckInterval: params.HFCheckInterval,
	})
	return nil
}

// SetDegenMode toggles credential-gated account opening.
func (f *Facade) SetDegenMode(caller crypto.Address, enabled bool, source CredentialSource) error {
	if err := f.requireConfigurator(caller); err != nil {
		return err
	}
	f.degen = enabled
	f.credentials = source
	return nil
}
