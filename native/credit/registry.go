package credit

import (
	"creditvault/crypto"
)

// Token describes one whitelisted collateral token. The slice index in the
// registry equals the token's bit position in every account mask.
type Token struct {
	Address crypto.Address
	// LiquidationThreshold is the basis-point weight applied to the token's
	// USD value during collateral checks. Never above the underlying's
	// threshold.
	LiquidationThreshold uint64
	// StrictApprove marks tokens whose approve semantics reject a direct
	// non-zero to non-zero overwrite and need a reset to zero first.
	StrictApprove bool
}

// TokenRegistry is the ordered whitelist of collateral tokens plus the forbid
// mask. Forbidden tokens stay in the registry and keep counting toward
// existing collateral but cannot be newly acquired.
type TokenRegistry struct {
	tokens     []Token
	indexByKey map[string]int
	forbidden  TokenMask
}

// NewTokenRegistry creates a registry with the pool underlying at index 0.
// The underlying threshold is derived from the risk parameters and the
// underlying can never be forbidden.
func NewTokenRegistry(underlying crypto.Address, params RiskParameters) *TokenRegistry {
	registry := &TokenRegistry{
		indexByKey: make(map[string]int),
	}
	registry.tokens = append(registry.tokens, Token{
		Address:              underlying,
		LiquidationThreshold: params.UnderlyingThreshold(),
	})
	registry.indexByKey[underlying.Key()] = UnderlyingTokenIndex
	return registry
}

// AllowToken whitelists a token or updates its threshold. Re-allowing a
// forbidden token clears its forbid bit. Allowing an already-allowed,
// non-forbidden token with the same threshold is a no-op; the changed return
// tells the caller whether an event is due.
func (r *TokenRegistry) AllowToken(token crypto.Address, threshold uint64) (bool, error) {
	if token.IsZero() {
		return false, ErrZeroAddress
	}
	if threshold > r.tokens[UnderlyingTokenIndex].LiquidationThreshold {
		return false, ErrThresholdTooHigh
	}
	if index, ok := r.indexByKey[token.Key()]; ok {
		changed := false
		if r.forbidden.IsEnabled(index) {
			r.forbidden.Disable(index)
			changed = true
		}
		if r.tokens[index].LiquidationThreshold != threshold {
			r.tokens[index].LiquidationThreshold = threshold
			changed = true
		}
		return changed, nil
	}
	if len(r.tokens) >= MaxTokens {
		return false, ErrTokenLimit
	}
	r.indexByKey[token.Key()] = len(r.tokens)
	r.tokens = append(r.tokens, Token{Address: token, LiquidationThreshold: threshold})
	return true, nil
}

// SetStrictApprove flags a token as needing the approve reset-to-zero path.
func (r *TokenRegistry) SetStrictApprove(token crypto.Address, strict bool) error {
	index, ok := r.indexByKey[token.Key()]
	if !ok {
		return ErrTokenNotAllowed
	}
	r.tokens[index].StrictApprove = strict
	return nil
}

// ForbidToken excludes a token from new acquisition. The underlying cannot be
// forbidden.
func (r *TokenRegistry) ForbidToken(token crypto.Address) error {
	index, ok := r.indexByKey[token.Key()]
	if !ok {
		return ErrTokenNotAllowed
	}
	if index == UnderlyingTokenIndex {
		return ErrUnderlyingToken
	}
	r.forbidden.Enable(index)
	return nil
}

// IsForbidden reports whether the token index carries the forbid bit.
func (r *TokenRegistry) IsForbidden(index int) bool {
	return r.forbidden.IsEnabled(index)
}

// IndexOf resolves a token address to its mask bit position.
func (r *TokenRegistry) IndexOf(token crypto.Address) (int, bool) {
	index, ok := r.indexByKey[token.Key()]
	return index, ok
}

// TokenByIndex returns the token registered at the given bit position.
func (r *TokenRegistry) TokenByIndex(index int) (Token, bool) {
	if index < 0 || index >= len(r.tokens) {
		return Token{}, false
	}
	return r.tokens[index], true
}

// Underlying returns the token at index 0.
func (r *TokenRegistry) Underlying() Token {
	return r.tokens[UnderlyingTokenIndex]
}

// Count returns the number of whitelisted tokens.
func (r *TokenRegistry) Count() int {
	return len(r.tokens)
}

// ForbiddenMask returns a copy of the forbid mask.
func (r *TokenRegistry) ForbiddenMask() TokenMask {
	return r.forbidden.Clone()
}

// AdapterRegistry keeps the bidirectional 1:1 mapping between protocol
// adapters and their external target contracts. An adapter may invoke the
// gateway only for its registered target.
type AdapterRegistry struct {
	adapterToTarget map[string]crypto.Address
	targetToAdapter map[string]crypto.Address
}

func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapterToTarget: make(map[string]crypto.Address),
		targetToAdapter: make(map[string]crypto.Address),
	}
}

// Register pairs an adapter with its target, replacing any previous pairing of
// either side so the mapping stays 1:1.
func (r *AdapterRegistry) Register(adapter, target crypto.Address) error {
	if adapter.IsZero() || target.IsZero() {
		return ErrZeroAddress
	}
	if prev, ok := r.adapterToTarget[adapter.Key()]; ok {
		delete(r.targetToAdapter, prev.Key())
	}
	if prev, ok := r.targetToAdapter[target.Key()]; ok {
		delete(r.adapterToTarget, prev.Key())
	}
	r.adapterToTarget[adapter.Key()] = target
	r.targetToAdapter[target.Key()] = adapter
	return nil
}

// AdapterFor returns the adapter registered for the target.
func (r *AdapterRegistry) AdapterFor(target crypto.Address) (crypto.Address, bool) {
	adapter, ok := r.targetToAdapter[target.Key()]
	return adapter, ok
}

// TargetFor returns the target registered for the adapter.
func (r *AdapterRegistry) TargetFor(adapter crypto.Address) (crypto.Address, bool) {
	target, ok := r.adapterToTarget[adapter.Key()]
	return target, ok
}
