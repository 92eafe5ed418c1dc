package types

import "math/big"

// Vault is the isolated funds container backing one credit account. Token
// balances and per-target allowances are denominated in the token's smallest
// unit and expressed as big integers to preserve on-chain precision.
type Vault struct {
	// Balances maps a token key (raw address bytes) to the amount held.
	Balances map[string]*big.Int `json:"balances"`
	// Allowances maps a target key to the per-token spend approvals granted
	// through the gateway.
	Allowances map[string]map[string]*big.Int `json:"allowances,omitempty"`
}

// NewVault returns an empty vault with initialised maps.
func NewVault() *Vault {
	return &Vault{
		Balances:   make(map[string]*big.Int),
		Allowances: make(map[string]map[string]*big.Int),
	}
}

// Balance returns the held amount for the token key. Missing entries read as
// zero; the returned value is a copy.
func (v *Vault) Balance(token string) *big.Int {
	if v == nil || v.Balances == nil {
		return big.NewInt(0)
	}
	amount, ok := v.Balances[token]
	if !ok || amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

// SetBalance overwrites the held amount for the token key. Zero balances are
// kept so dust-buffer accounting can distinguish "touched" tokens.
func (v *Vault) SetBalance(token string, amount *big.Int) {
	if v.Balances == nil {
		v.Balances = make(map[string]*big.Int)
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	v.Balances[token] = new(big.Int).Set(amount)
}

// AddBalance credits the token balance by delta.
func (v *Vault) AddBalance(token string, delta *big.Int) {
	if delta == nil || delta.Sign() == 0 {
		return
	}
	v.SetBalance(token, new(big.Int).Add(v.Balance(token), delta))
}

// SubBalance debits the token balance by delta. The caller is responsible for
// checking sufficiency beforehand.
func (v *Vault) SubBalance(token string, delta *big.Int) {
	if delta == nil || delta.Sign() == 0 {
		return
	}
	v.SetBalance(token, new(big.Int).Sub(v.Balance(token), delta))
}

// Allowance returns the approved spend for target/token. Missing entries read
// as zero; the returned value is a copy.
func (v *Vault) Allowance(target, token string) *big.Int {
	if v == nil || v.Allowances == nil {
		return big.NewInt(0)
	}
	byToken, ok := v.Allowances[target]
	if !ok {
		return big.NewInt(0)
	}
	amount, ok := byToken[token]
	if !ok || amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

// SetAllowance overwrites the approved spend for target/token.
func (v *Vault) SetAllowance(target, token string, amount *big.Int) {
	if v.Allowances == nil {
		v.Allowances = make(map[string]map[string]*big.Int)
	}
	byToken, ok := v.Allowances[target]
	if !ok {
		byToken = make(map[string]*big.Int)
		v.Allowances[target] = byToken
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	byToken[token] = new(big.Int).Set(amount)
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := NewVault()
	for token, amount := range v.Balances {
		if amount != nil {
			clone.Balances[token] = new(big.Int).Set(amount)
		}
	}
	for target, byToken := range v.Allowances {
		cloned := make(map[string]*big.Int, len(byToken))
		for token, amount := range byToken {
			if amount != nil {
				cloned[token] = new(big.Int).Set(amount)
			}
		}
		clone.Allowances[target] = cloned
	}
	return clone
}
