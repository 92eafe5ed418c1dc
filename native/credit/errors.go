package credit

import "errors"

var (
	// Ledger errors.
	ErrNilState            = errors.New("credit ledger: state not configured")
	ErrNilPool             = errors.New("credit ledger: pool not configured")
	ErrInvalidAmount       = errors.New("credit ledger: amount must be positive")
	ErrZeroAddress         = errors.New("credit ledger: zero address")
	ErrAccountExists       = errors.New("credit ledger: account already open for owner")
	ErrNoOpenAccount       = errors.New("credit ledger: no open account for owner")
	ErrBorrowOutOfBounds   = errors.New("credit ledger: borrowed amount outside permitted bounds")
	ErrInsufficientBalance = errors.New("credit ledger: insufficient balance")

	// Pool errors.
	ErrInsufficientLiquidity = errors.New("credit pool: insufficient liquidity")

	// Registry errors.
	ErrTokenNotAllowed  = errors.New("credit registry: token not whitelisted")
	ErrTokenForbidden   = errors.New("credit registry: token forbidden for new acquisition")
	ErrTokenLimit       = errors.New("credit registry: whitelist limit reached")
	ErrThresholdTooHigh = errors.New("credit registry: liquidation threshold above underlying threshold")
	ErrAdapterUnknown   = errors.New("credit registry: adapter not registered")
	ErrUnderlyingToken  = errors.New("credit registry: underlying token cannot be forbidden")

	// Verifier errors.
	ErrInsufficientCollateral = errors.New("credit verifier: threshold-weighted value below debt")

	// Gateway errors.
	ErrTargetNotRegistered = errors.New("credit gateway: target has no registered adapter")
	ErrUnauthorizedCaller  = errors.New("credit gateway: caller is not the adapter for target")

	// Facade errors.
	ErrNotLiquidatable           = errors.New("credit facade: account health factor not below one")
	ErrConflictingDebtCalls      = errors.New("credit facade: increase and decrease debt in one batch")
	ErrInternalCallDuringClosure = errors.New("credit facade: internal calls forbidden during closure")
	ErrMalformedCall             = errors.New("credit facade: call payload shorter than selector")
	ErrForbiddenDirectCall       = errors.New("credit facade: ledger and gateway are not callable targets")
	ErrUnknownSelector           = errors.New("credit facade: unknown internal selector")
	ErrTransferNotAllowed        = errors.New("credit facade: recipient has not approved transfers")
	ErrUnhealthyTransfer         = errors.New("credit facade: cannot transfer unhealthy account")
	ErrReentrantCall             = errors.New("credit facade: reentrant call")
	ErrLeverageExceeded          = errors.New("credit facade: collateral cannot support requested leverage")
	ErrCredentialRequired        = errors.New("credit facade: credential source not configured")
	ErrCredentialExhausted       = errors.New("credit facade: open credentials exhausted")

	// Configuration errors.
	ErrNotConfigurator = errors.New("credit: caller is not the configurator")
	ErrParamsCoverage  = errors.New("credit params: fast check tolerance breaches liquidation fee buffer")
	ErrParamsBounds    = errors.New("credit params: invalid parameter bounds")

	// Oracle errors.
	ErrNoPriceFeed = errors.New("credit oracle: no feed registered for token")
	ErrZeroPrice   = errors.New("credit oracle: feed returned zero price")
)
