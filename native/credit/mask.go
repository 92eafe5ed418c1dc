package credit

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// MaxTokens bounds the token whitelist: one bit per token in a 256-bit mask.
const MaxTokens = 256

// UnderlyingTokenIndex is the reserved bit for the pool's underlying token.
// It is always set for an open account.
const UnderlyingTokenIndex = 0

// TokenMask is a per-account set of enabled collateral tokens encoded as bit
// flags. The bit position equals the token's index in the registry, which
// keeps toggling O(1) and scanning O(whitelist size).
type TokenMask struct {
	bits uint256.Int
}

// NewTokenMask returns a mask with only the underlying bit set.
func NewTokenMask() TokenMask {
	var m TokenMask
	m.Enable(UnderlyingTokenIndex)
	return m
}

// Enable sets the bit for the given token index.
func (m *TokenMask) Enable(index int) {
	if index < 0 || index >= MaxTokens {
		return
	}
	m.bits[index/64] |= 1 << uint(index%64)
}

// Disable clears the bit for the given token index. The underlying bit is
// never cleared.
func (m *TokenMask) Disable(index int) {
	if index <= UnderlyingTokenIndex || index >= MaxTokens {
		return
	}
	m.bits[index/64] &^= 1 << uint(index%64)
}

// IsEnabled reports whether the bit for the given token index is set.
func (m *TokenMask) IsEnabled(index int) bool {
	if index < 0 || index >= MaxTokens {
		return false
	}
	return m.bits[index/64]&(1<<uint(index%64)) != 0
}

// Count returns the number of enabled tokens.
func (m *TokenMask) Count() int {
	total := 0
	for _, limb := range m.bits {
		total += bits.OnesCount64(limb)
	}
	return total
}

// IsZero reports whether no bit is set.
func (m *TokenMask) IsZero() bool {
	return m.bits.IsZero()
}

// Clone returns a copy of the mask.
func (m *TokenMask) Clone() TokenMask {
	var out TokenMask
	out.bits = m.bits
	return out
}

// Uint256 returns the raw bit pattern as a fresh uint256.
func (m *TokenMask) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&m.bits)
}

// MaskFromUint256 builds a mask from a raw bit pattern, e.g. a caller-supplied
// skip mask on account close.
func MaskFromUint256(v *uint256.Int) TokenMask {
	var m TokenMask
	if v != nil {
		m.bits.Set(v)
	}
	return m
}
