package credit

import (
	"math/big"

	"creditvault/crypto"
)

// NativeToken is the pseudo-token key credited when a wrapped-native sweep is
// unwrapped during account close.
var NativeToken = crypto.MustNewAddress(crypto.TokenPrefix, []byte{
	0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee,
	0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee,
})

// Ledger maps borrower identities to isolated credit accounts and owns every
// debt mutation. It never verifies collateral itself; the facade defers that
// to the Verifier at batch end.
type Ledger struct {
	address       crypto.Address
	state         State
	pool          Pool
	registry      *TokenRegistry
	params        RiskParameters
	wrappedNative crypto.Address
	blockHeight   uint64
}

// NewLedger constructs a ledger bound to its module address and initial risk
// parameters.
func NewLedger(address crypto.Address, params RiskParameters) *Ledger {
	return &Ledger{
		address: address,
		params:  params.Clone(),
	}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state State) { l.state = state }

// SetPool wires the underlying liquidity pool.
func (l *Ledger) SetPool(pool Pool) { l.pool = pool }

// SetRegistry wires the collateral token whitelist.
func (l *Ledger) SetRegistry(registry *TokenRegistry) { l.registry = registry }

// SetWrappedNative designates the wrapped-native token eligible for
// unwrapping on close.
func (l *Ledger) SetWrappedNative(token crypto.Address) { l.wrappedNative = token }

// SetBlockHeight records the block height stamped on newly opened accounts.
func (l *Ledger) SetBlockHeight(height uint64) { l.blockHeight = height }

// SetParams replaces the risk parameter set after validating the coverage
// invariant. Invalid sets are rejected without touching the current ones.
func (l *Ledger) SetParams(params RiskParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	l.params = params.Clone()
	return nil
}

// Address returns the ledger's module address.
func (l *Ledger) Address() crypto.Address { return l.address }

// Params returns a copy of the active risk parameters.
func (l *Ledger) Params() RiskParameters { return l.params.Clone() }

// Registry returns the wired token registry.
func (l *Ledger) Registry() *TokenRegistry { return l.registry }

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if l.pool == nil {
		return ErrNilPool
	}
	if l.registry == nil {
		return ErrTokenNotAllowed
	}
	return nil
}

func (l *Ledger) account(owner crypto.Address) (*CreditAccount, error) {
	account, err := l.state.GetCreditAccount(owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNoOpenAccount
	}
	account.EnsureDefaults()
	return account, nil
}

// OpenAccount borrows principal from the pool and creates a fresh account for
// the owner: bit-0-only mask, fast check counter at one, interest index
// snapshotted at the pool's current value.
func (l *Ledger) OpenAccount(owner crypto.Address, principal *big.Int) (*CreditAccount, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if owner.IsZero() {
		return nil, ErrZeroAddress
	}
	if principal == nil || principal.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if principal.Cmp(l.params.MinBorrowed) < 0 || principal.Cmp(l.params.MaxBorrowed) > 0 {
		return nil, ErrBorrowOutOfBounds
	}
	existing, err := l.state.GetCreditAccount(owner)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	if err := l.pool.Lend(principal, owner); err != nil {
		return nil, err
	}

	account := &CreditAccount{
		Owner:                 owner,
		BorrowedAmount:        clone(principal),
		CumulativeIndexAtOpen: l.pool.CurrentIndex(),
		EnabledTokens:         NewTokenMask(),
		FastCheckCounter:      1,
		Since:                 l.blockHeight,
	}
	account.EnsureDefaults()
	account.Vault.SetBalance(l.registry.Underlying().Address.Key(), principal)

	if err := l.state.PutCreditAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// AddCollateral moves tokens from the payer's wallet into the account vault
// and enables the token in the mask. Forbidden tokens cannot be newly
// acquired.
func (l *Ledger) AddCollateral(payer, owner, token crypto.Address, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	index, ok := l.registry.IndexOf(token)
	if !ok {
		return ErrTokenNotAllowed
	}
	if l.registry.IsForbidden(index) {
		return ErrTokenForbidden
	}
	account, err := l.account(owner)
	if err != nil {
		return err
	}

	wallet, err := l.state.GetWallet(payer)
	if err != nil {
		return err
	}
	key := token.Key()
	if wallet.Balance(key).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	wallet.SubBalance(key, amount)
	account.Vault.AddBalance(key, amount)
	account.EnabledTokens.Enable(index)

	if err := l.state.PutWallet(payer, wallet); err != nil {
		return err
	}
	return l.state.PutCreditAccount(account)
}

// ManageDebt changes the account principal. Increases blend the interest
// index so accrued interest on the old principal is preserved; decreases pay
// back principal plus accrued interest plus the origination fee and refresh
// the index to now.
func (l *Ledger) ManageDebt(owner crypto.Address, amount *big.Int, increase bool) (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	account, err := l.account(owner)
	if err != nil {
		return nil, err
	}
	indexNow := l.pool.CurrentIndex()
	underlyingKey := l.registry.Underlying().Address.Key()

	var newPrincipal *big.Int
	if increase {
		newPrincipal = new(big.Int).Add(account.BorrowedAmount, amount)
		if newPrincipal.Cmp(l.params.MaxBorrowed) > 0 {
			return nil, ErrBorrowOutOfBounds
		}
		if err := l.pool.Lend(amount, owner); err != nil {
			return nil, err
		}
		// Weighted-average index: the blended snapshot keeps
		// principal * indexNow / indexAtOpen invariant across the increase.
		numerator := new(big.Int).Mul(indexNow, account.CumulativeIndexAtOpen)
		numerator.Mul(numerator, newPrincipal)
		denominator := new(big.Int).Mul(indexNow, account.BorrowedAmount)
		denominator.Add(denominator, new(big.Int).Mul(account.CumulativeIndexAtOpen, amount))
		account.CumulativeIndexAtOpen = numerator.Quo(numerator, denominator)
		account.Vault.AddBalance(underlyingKey, amount)
	} else {
		debtWithInterest := borrowedWithInterest(account, indexNow)
		interest := new(big.Int).Sub(debtWithInterest, account.BorrowedAmount)
		fee := bpsMul(interest, l.params.FeeInterest)
		total := new(big.Int).Add(amount, interest)
		total.Add(total, fee)
		if account.Vault.Balance(underlyingKey).Cmp(total) < 0 {
			return nil, ErrInsufficientBalance
		}
		newPrincipal = new(big.Int).Sub(account.BorrowedAmount, amount)
		if newPrincipal.Cmp(l.params.MinBorrowed) < 0 {
			return nil, ErrBorrowOutOfBounds
		}
		account.Vault.SubBalance(underlyingKey, total)
		profit := new(big.Int).Add(interest, fee)
		if err := l.pool.Repay(amount, profit, nil); err != nil {
			return nil, err
		}
		account.CumulativeIndexAtOpen = indexNow
	}

	account.BorrowedAmount = newPrincipal
	if err := l.state.PutCreditAccount(account); err != nil {
		return nil, err
	}
	return clone(newPrincipal), nil
}

// TransferOwnership atomically moves the ledger key to a new owner.
func (l *Ledger) TransferOwnership(from, to crypto.Address) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if to.IsZero() {
		return ErrZeroAddress
	}
	account, err := l.account(from)
	if err != nil {
		return err
	}
	existing, err := l.state.GetCreditAccount(to)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAccountExists
	}
	if err := l.state.DeleteCreditAccount(from); err != nil {
		return err
	}
	account.Owner = to
	return l.state.PutCreditAccount(account)
}

// CloseAccount settles the account with the pool, sweeps enabled collateral
// to the recipient and releases the ledger entry. The returned values are the
// underlying amount paid back to the borrower and the pool loss, if any.
func (l *Ledger) CloseAccount(owner crypto.Address, liquidated bool, totalValue *big.Int, payer, recipient crypto.Address, skipMask TokenMask, unwrapNative bool) (*big.Int, *big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, nil, err
	}
	account, err := l.account(owner)
	if err != nil {
		return nil, nil, err
	}
	indexNow := l.pool.CurrentIndex()
	debtWithInterest := borrowedWithInterest(account, indexNow)
	amountToPool, remainingFunds, profit, loss := CalcClosePayments(l.params, totalValue, liquidated, account.BorrowedAmount, debtWithInterest)

	underlying := l.registry.Underlying().Address
	underlyingKey := underlying.Key()

	// The payer covers any shortfall between the vault's underlying balance
	// and the pool settlement amount.
	balance := account.Vault.Balance(underlyingKey)
	if balance.Cmp(amountToPool) < 0 {
		shortfall := new(big.Int).Sub(amountToPool, balance)
		wallet, err := l.state.GetWallet(payer)
		if err != nil {
			return nil, nil, err
		}
		if wallet.Balance(underlyingKey).Cmp(shortfall) < 0 {
			return nil, nil, ErrInsufficientBalance
		}
		wallet.SubBalance(underlyingKey, shortfall)
		account.Vault.AddBalance(underlyingKey, shortfall)
		if err := l.state.PutWallet(payer, wallet); err != nil {
			return nil, nil, err
		}
	}
	account.Vault.SubBalance(underlyingKey, amountToPool)
	if err := l.pool.Repay(account.BorrowedAmount, profit, loss); err != nil {
		return nil, nil, err
	}

	recipientWallet, err := l.state.GetWallet(recipient)
	if err != nil {
		return nil, nil, err
	}

	// Route the underlying leftover: the liquidated borrower keeps the
	// calculated remainder, everything else follows the recipient.
	leftover := account.Vault.Balance(underlyingKey)
	paidToBorrower := big.NewInt(0)
	if liquidated && remainingFunds.Sign() > 0 && !owner.Equal(recipient) {
		paidToBorrower = remainingFunds
		if paidToBorrower.Cmp(leftover) > 0 {
			paidToBorrower = clone(leftover)
		}
		borrowerWallet, err := l.state.GetWallet(owner)
		if err != nil {
			return nil, nil, err
		}
		borrowerWallet.AddBalance(underlyingKey, paidToBorrower)
		if err := l.state.PutWallet(owner, borrowerWallet); err != nil {
			return nil, nil, err
		}
		leftover = new(big.Int).Sub(leftover, paidToBorrower)
	}
	if leftover.Sign() > 0 {
		recipientWallet.AddBalance(underlyingKey, leftover)
		if !liquidated {
			paidToBorrower = new(big.Int).Add(paidToBorrower, leftover)
		}
	}

	// Sweep every other enabled token, keeping a 1-unit dust buffer so the
	// zero-balance edge cases never trigger downstream.
	for index := 1; index < l.registry.Count(); index++ {
		if !account.EnabledTokens.IsEnabled(index) || skipMask.IsEnabled(index) {
			continue
		}
		token, _ := l.registry.TokenByIndex(index)
		balance := account.Vault.Balance(token.Address.Key())
		if balance.Cmp(one) <= 0 {
			continue
		}
		swept := new(big.Int).Sub(balance, one)
		key := token.Address.Key()
		if unwrapNative && !l.wrappedNative.IsZero() && token.Address.Equal(l.wrappedNative) {
			key = NativeToken.Key()
		}
		recipientWallet.AddBalance(key, swept)
	}

	if err := l.state.PutWallet(recipient, recipientWallet); err != nil {
		return nil, nil, err
	}
	if err := l.state.DeleteCreditAccount(owner); err != nil {
		return nil, nil, err
	}
	return paidToBorrower, loss, nil
}

// --- Read accessors ---

// IsAccountOpen reports whether the borrower currently has an open account.
func (l *Ledger) IsAccountOpen(owner crypto.Address) bool {
	if l == nil || l.state == nil {
		return false
	}
	account, err := l.state.GetCreditAccount(owner)
	return err == nil && account != nil
}

// DebtOf returns the account principal and debt with accrued interest.
func (l *Ledger) DebtOf(owner crypto.Address) (*big.Int, *big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, nil, err
	}
	account, err := l.account(owner)
	if err != nil {
		return nil, nil, err
	}
	debtWithInterest := borrowedWithInterest(account, l.pool.CurrentIndex())
	return clone(account.BorrowedAmount), debtWithInterest, nil
}

// MaskOf returns the enabled-token mask for the borrower's account.
func (l *Ledger) MaskOf(owner crypto.Address) (TokenMask, error) {
	if l == nil || l.state == nil {
		return TokenMask{}, ErrNilState
	}
	account, err := l.account(owner)
	if err != nil {
		return TokenMask{}, err
	}
	return account.EnabledTokens.Clone(), nil
}

// ThresholdOf returns the liquidation threshold for a whitelisted token.
func (l *Ledger) ThresholdOf(token crypto.Address) (uint64, error) {
	if l == nil || l.registry == nil {
		return 0, ErrTokenNotAllowed
	}
	index, ok := l.registry.IndexOf(token)
	if !ok {
		return 0, ErrTokenNotAllowed
	}
	meta, _ := l.registry.TokenByIndex(index)
	return meta.LiquidationThreshold, nil
}

// borrowedWithInterest computes principal * indexNow / indexAtOpen.
func borrowedWithInterest(account *CreditAccount, indexNow *big.Int) *big.Int {
	if account == nil || account.BorrowedAmount == nil || account.BorrowedAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	if indexNow == nil || indexNow.Sign() == 0 ||
		account.CumulativeIndexAtOpen == nil || account.CumulativeIndexAtOpen.Sign() == 0 {
		return clone(account.BorrowedAmount)
	}
	debt := new(big.Int).Mul(account.BorrowedAmount, indexNow)
	return debt.Quo(debt, account.CumulativeIndexAtOpen)
}
