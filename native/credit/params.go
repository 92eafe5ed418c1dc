package credit

import "math/big"

// RiskParameters groups the configurator-controlled safety limits governing
// credit accounts. Every percentage is expressed in basis points.
type RiskParameters struct {
	// MinBorrowed and MaxBorrowed bound the principal of any open account.
	MinBorrowed *big.Int
	MaxBorrowed *big.Int
	// FeeInterest is the origination fee charged on accrued interest.
	FeeInterest uint64
	// FeeLiquidation is the fee charged on total account value during
	// liquidation.
	FeeLiquidation uint64
	// LiquidationDiscount equals 10000 minus the liquidator premium.
	LiquidationDiscount uint64
	// ChiThreshold is the fast-check drop tolerance: a single swap may lose
	// at most (10000 - ChiThreshold) basis points of USD value.
	ChiThreshold uint64
	// HFCheckInterval is the maximum number of consecutive fast checks
	// permitted between two full collateral checks.
	HFCheckInterval uint64
}

// Clone returns a deep copy of the parameter set.
func (p RiskParameters) Clone() RiskParameters {
	out := p
	if p.MinBorrowed != nil {
		out.MinBorrowed = new(big.Int).Set(p.MinBorrowed)
	}
	if p.MaxBorrowed != nil {
		out.MaxBorrowed = new(big.Int).Set(p.MaxBorrowed)
	}
	return out
}

// UnderlyingThreshold derives the liquidation threshold of the underlying
// token from the fee parameters: the discounted liquidation proceeds minus the
// liquidation fee must still cover underlying-denominated debt.
func (p RiskParameters) UnderlyingThreshold() uint64 {
	if p.LiquidationDiscount <= p.FeeLiquidation {
		return 0
	}
	return p.LiquidationDiscount - p.FeeLiquidation
}

// Validate rejects parameter sets that could let permitted fast-check
// sequences erode more collateral than the liquidation fee buffer. The
// worst-case cumulative drop over HFCheckInterval fast checks at ChiThreshold
// tolerance is 1 - (chi/10000)^interval; it must not exceed FeeLiquidation.
func (p RiskParameters) Validate() error {
	if p.MinBorrowed == nil || p.MaxBorrowed == nil ||
		p.MinBorrowed.Sign() < 0 || p.MaxBorrowed.Cmp(p.MinBorrowed) < 0 {
		return ErrParamsBounds
	}
	if p.FeeLiquidation > PercentFactor || p.LiquidationDiscount > PercentFactor ||
		p.ChiThreshold > PercentFactor || p.FeeInterest > PercentFactor {
		return ErrParamsBounds
	}
	if p.LiquidationDiscount <= p.FeeLiquidation {
		return ErrParamsBounds
	}
	if p.HFCheckInterval == 0 {
		return ErrParamsBounds
	}

	// 10000^n - chi^n <= feeLiquidation * 10000^(n-1), all in exact integers.
	n := new(big.Int).SetUint64(p.HFCheckInterval)
	pctPowN := new(big.Int).Exp(basisPoints, n, nil)
	chiPowN := new(big.Int).Exp(new(big.Int).SetUint64(p.ChiThreshold), n, nil)
	drop := new(big.Int).Sub(pctPowN, chiPowN)

	pctPowN1 := new(big.Int).Exp(basisPoints, new(big.Int).Sub(n, one), nil)
	buffer := new(big.Int).Mul(new(big.Int).SetUint64(p.FeeLiquidation), pctPowN1)
	if drop.Cmp(buffer) > 0 {
		return ErrParamsCoverage
	}
	return nil
}
