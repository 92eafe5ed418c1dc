package credit

import (
	"math/big"

	"creditvault/core/types"
	"creditvault/crypto"
)

// CreditAccount is the isolated position held for one borrower: the principal
// lent by the pool, the interest-index snapshot used to compute accrued
// interest, the enabled-token mask and the funds vault.
type CreditAccount struct {
	// Owner is the borrower identity and the ledger key. It changes only
	// through an explicit ownership transfer.
	Owner crypto.Address
	// BorrowedAmount is the principal currently borrowed from the pool,
	// denominated in the underlying token's smallest unit.
	BorrowedAmount *big.Int
	// CumulativeIndexAtOpen snapshots the pool's RAY-scale interest index at
	// account open or last debt mutation. Debt with interest is
	// BorrowedAmount * indexNow / CumulativeIndexAtOpen.
	CumulativeIndexAtOpen *big.Int
	// EnabledTokens marks which whitelisted tokens participate in collateral
	// valuation. Bit 0 (underlying) is always set.
	EnabledTokens TokenMask
	// FastCheckCounter counts consecutive fast checks since the last full
	// check; bounded by the configured interval.
	FastCheckCounter uint64
	// Since records the block height at account open.
	Since uint64
	// Vault holds the account's token balances and gateway allowances.
	Vault *types.Vault
}

// EnsureDefaults populates nil fields so persistence round-trips stay safe.
func (a *CreditAccount) EnsureDefaults() {
	if a == nil {
		return
	}
	if a.BorrowedAmount == nil {
		a.BorrowedAmount = big.NewInt(0)
	}
	if a.CumulativeIndexAtOpen == nil || a.CumulativeIndexAtOpen.Sign() == 0 {
		a.CumulativeIndexAtOpen = new(big.Int).Set(ray)
	}
	if a.Vault == nil {
		a.Vault = types.NewVault()
	}
	a.EnabledTokens.Enable(UnderlyingTokenIndex)
	if a.FastCheckCounter == 0 {
		a.FastCheckCounter = 1
	}
}

// Clone returns a deep copy of the account.
func (a *CreditAccount) Clone() *CreditAccount {
	if a == nil {
		return nil
	}
	cloneAcct := &CreditAccount{
		Owner:            a.Owner,
		EnabledTokens:    a.EnabledTokens.Clone(),
		FastCheckCounter: a.FastCheckCounter,
		Since:            a.Since,
		Vault:            a.Vault.Clone(),
	}
	if a.BorrowedAmount != nil {
		cloneAcct.BorrowedAmount = new(big.Int).Set(a.BorrowedAmount)
	}
	if a.CumulativeIndexAtOpen != nil {
		cloneAcct.CumulativeIndexAtOpen = new(big.Int).Set(a.CumulativeIndexAtOpen)
	}
	return cloneAcct
}
