package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"creditvault/core/types"
)

const (
	// TypeCreditAccountOpened is emitted when a borrower opens a credit
	// account and the pool lends the initial principal.
	TypeCreditAccountOpened = "credit.account.opened"
	// TypeCreditAccountClosed is emitted on a normal account close.
	TypeCreditAccountClosed = "credit.account.closed"
	// TypeCreditAccountLiquidated is emitted when an unhealthy account is
	// closed by a third party.
	TypeCreditAccountLiquidated = "credit.account.liquidated"
	// TypeCreditCollateralAdded is emitted when collateral is deposited into
	// an open account.
	TypeCreditCollateralAdded = "credit.collateral.added"
	// TypeCreditDebtIncreased is emitted when an account borrows more from
	// the pool.
	TypeCreditDebtIncreased = "credit.debt.increased"
	// TypeCreditDebtDecreased is emitted when an account repays part of its
	// debt.
	TypeCreditDebtDecreased = "credit.debt.decreased"
	// TypeCreditOrderExecuted is emitted for every external call dispatched
	// through the gateway on behalf of an account.
	TypeCreditOrderExecuted = "credit.order.executed"
	// TypeCreditOwnershipTransferred is emitted when an account changes
	// owner.
	TypeCreditOwnershipTransferred = "credit.ownership.transferred"
	// TypeCreditTokenAllowed is emitted when the configurator whitelists a
	// collateral token or re-enables a forbidden one.
	TypeCreditTokenAllowed = "credit.token.allowed"
	// TypeCreditTokenForbidden is emitted when the configurator forbids new
	// acquisition of a token.
	TypeCreditTokenForbidden = "credit.token.forbidden"
	// TypeCreditAdapterRegistered is emitted when an adapter/target pair is
	// whitelisted.
	TypeCreditAdapterRegistered = "credit.adapter.registered"
	// TypeCreditParamsUpdated is emitted when the configurator replaces the
	// risk parameter set.
	TypeCreditParamsUpdated = "credit.params.updated"
)

// AccountOpened captures the initial state of a freshly opened credit account.
type AccountOpened struct {
	Owner    [20]byte
	Borrowed *big.Int
	Referral [20]byte
}

func (AccountOpened) EventType() string { return TypeCreditAccountOpened }

func (e AccountOpened) Event() *types.Event {
	attrs := map[string]string{
		"owner":          formatAddress(e.Owner),
		"borrowedAmount": formatAmount(e.Borrowed),
	}
	if !zeroBytes(e.Referral[:]) {
		attrs["referral"] = formatAddress(e.Referral)
	}
	return &types.Event{Type: TypeCreditAccountOpened, Attributes: attrs}
}

// AccountClosed records a normal close-out, including the residual funds that
// were swept to the recipient.
type AccountClosed struct {
	Owner     [20]byte
	Recipient [20]byte
	Remaining *big.Int
}

func (AccountClosed) EventType() string { return TypeCreditAccountClosed }

func (e AccountClosed) Event() *types.Event {
	return &types.Event{Type: TypeCreditAccountClosed, Attributes: map[string]string{
		"owner":          formatAddress(e.Owner),
		"recipient":      formatAddress(e.Recipient),
		"remainingFunds": formatAmount(e.Remaining),
	}}
}

// AccountLiquidated records the forced close of an unhealthy account.
type AccountLiquidated struct {
	Owner      [20]byte
	Liquidator [20]byte
	Remaining  *big.Int
	Loss       *big.Int
}

func (AccountLiquidated) EventType() string { return TypeCreditAccountLiquidated }

func (e AccountLiquidated) Event() *types.Event {
	attrs := map[string]string{
		"owner":          formatAddress(e.Owner),
		"liquidator":     formatAddress(e.Liquidator),
		"remainingFunds": formatAmount(e.Remaining),
	}
	if e.Loss != nil && e.Loss.Sign() > 0 {
		attrs["loss"] = formatAmount(e.Loss)
	}
	return &types.Event{Type: TypeCreditAccountLiquidated, Attributes: attrs}
}

// CollateralAdded records a collateral deposit into an open account.
type CollateralAdded struct {
	Owner  [20]byte
	Payer  [20]byte
	Token  [20]byte
	Amount *big.Int
}

func (CollateralAdded) EventType() string { return TypeCreditCollateralAdded }

func (e CollateralAdded) Event() *types.Event {
	return &types.Event{Type: TypeCreditCollateralAdded, Attributes: map[string]string{
		"owner":  formatAddress(e.Owner),
		"payer":  formatAddress(e.Payer),
		"token":  formatToken(e.Token),
		"amount": formatAmount(e.Amount),
	}}
}

// DebtChanged records a standalone or batched debt mutation.
type DebtChanged struct {
	Owner     [20]byte
	Amount    *big.Int
	Principal *big.Int
	Increase  bool
}

func (e DebtChanged) EventType() string {
	if e.Increase {
		return TypeCreditDebtIncreased
	}
	return TypeCreditDebtDecreased
}

func (e DebtChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"owner":        formatAddress(e.Owner),
		"amount":       formatAmount(e.Amount),
		"newPrincipal": formatAmount(e.Principal),
	}}
}

// OrderExecuted is the audit record for one gateway dispatch.
type OrderExecuted struct {
	OrderID  string
	Borrower [20]byte
	Adapter  [20]byte
	Target   [20]byte
	DataHash [32]byte
}

func (OrderExecuted) EventType() string { return TypeCreditOrderExecuted }

func (e OrderExecuted) Event() *types.Event {
	attrs := map[string]string{
		"borrower": formatAddress(e.Borrower),
		"adapter":  formatAddress(e.Adapter),
		"target":   formatAddress(e.Target),
		"dataHash": "0x" + strings.ToLower(hex.EncodeToString(e.DataHash[:])),
	}
	if id := strings.TrimSpace(e.OrderID); id != "" {
		attrs["orderId"] = id
	}
	return &types.Event{Type: TypeCreditOrderExecuted, Attributes: attrs}
}

// OwnershipTransferred records an account ledger key move, including the
// temporary custody handoffs performed by the facade.
type OwnershipTransferred struct {
	From [20]byte
	To   [20]byte
}

func (OwnershipTransferred) EventType() string { return TypeCreditOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{Type: TypeCreditOwnershipTransferred, Attributes: map[string]string{
		"from": formatAddress(e.From),
		"to":   formatAddress(e.To),
	}}
}

// TokenAllowed records a token whitelist entry or threshold update.
type TokenAllowed struct {
	Token                [20]byte
	LiquidationThreshold uint64
}

func (TokenAllowed) EventType() string { return TypeCreditTokenAllowed }

func (e TokenAllowed) Event() *types.Event {
	return &types.Event{Type: TypeCreditTokenAllowed, Attributes: map[string]string{
		"token":                formatToken(e.Token),
		"liquidationThreshold": strconv.FormatUint(e.LiquidationThreshold, 10),
	}}
}

// TokenForbidden records a token being excluded from new acquisition.
type TokenForbidden struct {
	Token [20]byte
}

func (TokenForbidden) EventType() string { return TypeCreditTokenForbidden }

func (e TokenForbidden) Event() *types.Event {
	return &types.Event{Type: TypeCreditTokenForbidden, Attributes: map[string]string{
		"token": formatToken(e.Token),
	}}
}

// AdapterRegistered records a new adapter/target pairing.
type AdapterRegistered struct {
	Adapter [20]byte
	Target  [20]byte
}

func (AdapterRegistered) EventType() string { return TypeCreditAdapterRegistered }

func (e AdapterRegistered) Event() *types.Event {
	return &types.Event{Type: TypeCreditAdapterRegistered, Attributes: map[string]string{
		"adapter": formatAddress(e.Adapter),
		"target":  formatAddress(e.Target),
	}}
}

// ParamsUpdated records a risk parameter replacement.
type ParamsUpdated struct {
	MinBorrowed     *big.Int
	MaxBorrowed     *big.Int
	FeeInterest     uint64
	FeeLiquidation  uint64
	ChiThreshold    uint64
	HFCheckInterval uint64
}

func (ParamsUpdated) EventType() string { return TypeCreditParamsUpdated }

func (e ParamsUpdated) Event() *types.Event {
	return &types.Event{Type: TypeCreditParamsUpdated, Attributes: map[string]string{
		"minBorrowed":     formatAmount(e.MinBorrowed),
		"maxBorrowed":     formatAmount(e.MaxBorrowed),
		"feeInterest":     strconv.FormatUint(e.FeeInterest, 10),
		"feeLiquidation":  strconv.FormatUint(e.FeeLiquidation, 10),
		"chiThreshold":    strconv.FormatUint(e.ChiThreshold, 10),
		"hfCheckInterval": strconv.FormatUint(e.HFCheckInterval, 10),
	}}
}
