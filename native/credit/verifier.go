package credit

import (
	"math/big"

	"creditvault/crypto"
)

// Verifier implements the two collateral-sufficiency algorithms: a cheap fast
// check bounding the USD drop of a single swap, and the authoritative full
// check summing threshold-weighted values of every enabled token.
type Verifier struct {
	registry *TokenRegistry
	oracle   PriceOracle
	params   RiskParameters
}

func NewVerifier(registry *TokenRegistry, oracle PriceOracle, params RiskParameters) *Verifier {
	return &Verifier{
		registry: registry,
		oracle:   oracle,
		params:   params.Clone(),
	}
}

// SetParams replaces the risk parameters after validation.
func (v *Verifier) SetParams(params RiskParameters) error {
	if err := params.Validate(); err != nil {
		return err
	}
	v.params = params.Clone()
	return nil
}

// FastCheck bounds the collateral erosion of one swap without repricing the
// whole portfolio. tokenOut is always enabled; the spent token is disabled
// when its balance drops to dust. If the drop exceeds the chi tolerance, or
// the permitted run of fast checks is exhausted, the authoritative full check
// runs instead.
func (v *Verifier) FastCheck(account *CreditAccount, debtWithInterest *big.Int, tokenIn, tokenOut crypto.Address, balanceInBefore, balanceOutBefore *big.Int) error {
	if account == nil {
		return ErrNoOpenAccount
	}
	indexOut, ok := v.registry.IndexOf(tokenOut)
	if !ok {
		return ErrTokenNotAllowed
	}
	indexIn, ok := v.registry.IndexOf(tokenIn)
	if !ok {
		return ErrTokenNotAllowed
	}
	account.EnabledTokens.Enable(indexOut)

	if account.FastCheckCounter <= v.params.HFCheckInterval {
		balanceIn := account.Vault.Balance(tokenIn.Key())
		balanceOut := account.Vault.Balance(tokenOut.Key())
		amountIn := new(big.Int).Sub(balanceInBefore, balanceIn)
		amountOut := new(big.Int).Sub(balanceOut, balanceOutBefore)
		usdIn, usdOut, err := v.oracle.FastCheck(amountIn, tokenIn, amountOut, tokenOut)
		if err != nil {
			return err
		}
		if balanceIn.Cmp(one) <= 0 {
			account.EnabledTokens.Disable(indexIn)
		}
		// Acceptable when outValue * 10000 > inValue * chi: the swap lost
		// less than the configured tolerance.
		lhs := new(big.Int).Mul(usdOut, basisPoints)
		rhs := new(big.Int).Mul(usdIn, new(big.Int).SetUint64(v.params.ChiThreshold))
		if lhs.Cmp(rhs) > 0 {
			account.FastCheckCounter++
			return nil
		}
	}
	return v.FullCheck(account, debtWithInterest)
}

// FullCheck is the authoritative solvency verification: the running sum of
// USDvalue(balance) * liquidationThreshold over enabled tokens must reach
// debtWithInterest priced in USD times the percentage factor. Dust balances
// are disabled along the way and iteration short-circuits once the sum covers
// the debt.
func (v *Verifier) FullCheck(account *CreditAccount, debtWithInterest *big.Int) error {
	if account == nil {
		return ErrNoOpenAccount
	}
	underlying := v.registry.Underlying().Address
	debtUSD, err := v.oracle.ToUSD(debtWithInterest, underlying)
	if err != nil {
		return err
	}
	required := new(big.Int).Mul(debtUSD, basisPoints)

	total := big.NewInt(0)
	covered := required.Sign() == 0
	for index := 0; !covered && index < v.registry.Count(); index++ {
		if !account.EnabledTokens.IsEnabled(index) {
			continue
		}
		token, _ := v.registry.TokenByIndex(index)
		balance := account.Vault.Balance(token.Address.Key())
		if balance.Cmp(one) <= 0 {
			account.EnabledTokens.Disable(index)
			continue
		}
		usd, err := v.oracle.ToUSD(balance, token.Address)
		if err != nil {
			return err
		}
		total.Add(total, new(big.Int).Mul(usd, new(big.Int).SetUint64(token.LiquidationThreshold)))
		if total.Cmp(required) >= 0 {
			covered = true
			break
		}
	}
	if !covered {
		return ErrInsufficientCollateral
	}
	account.FastCheckCounter = 1
	return nil
}

// AccountValue prices every enabled token and returns the total value in
// underlying units together with the threshold-weighted USD value scaled by
// the percentage factor.
func (v *Verifier) AccountValue(account *CreditAccount) (*big.Int, *big.Int, error) {
	totalUSD := big.NewInt(0)
	weightedUSD := big.NewInt(0)
	for index := 0; index < v.registry.Count(); index++ {
		if !account.EnabledTokens.IsEnabled(index) {
			continue
		}
		token, _ := v.registry.TokenByIndex(index)
		balance := account.Vault.Balance(token.Address.Key())
		if balance.Sign() == 0 {
			continue
		}
		usd, err := v.oracle.ToUSD(balance, token.Address)
		if err != nil {
			return nil, nil, err
		}
		totalUSD.Add(totalUSD, usd)
		weightedUSD.Add(weightedUSD, new(big.Int).Mul(usd, new(big.Int).SetUint64(token.LiquidationThreshold)))
	}
	totalValue, err := v.oracle.FromUSD(totalUSD, v.registry.Underlying().Address)
	if err != nil {
		return nil, nil, err
	}
	return totalValue, weightedUSD, nil
}

// IsLiquidatable reports whether the threshold-weighted value no longer
// covers the debt, i.e. the health factor is below one.
func (v *Verifier) IsLiquidatable(account *CreditAccount, debtWithInterest *big.Int) (bool, error) {
	_, weightedUSD, err := v.AccountValue(account)
	if err != nil {
		return false, err
	}
	debtUSD, err := v.oracle.ToUSD(debtWithInterest, v.registry.Underlying().Address)
	if err != nil {
		return false, err
	}
	required := new(big.Int).Mul(debtUSD, basisPoints)
	return weightedUSD.Cmp(required) < 0, nil
}

// HealthFactor returns the threshold-weighted collateral to debt ratio in
// basis points. An account with no debt reports the percentage factor.
func (v *Verifier) HealthFactor(account *CreditAccount, debtWithInterest *big.Int) (uint64, error) {
	if debtWithInterest == nil || debtWithInterest.Sign() == 0 {
		return PercentFactor, nil
	}
	_, weightedUSD, err := v.AccountValue(account)
	if err != nil {
		return 0, err
	}
	debtUSD, err := v.oracle.ToUSD(debtWithInterest, v.registry.Underlying().Address)
	if err != nil {
		return 0, err
	}
	if debtUSD.Sign() == 0 {
		return PercentFactor, nil
	}
	hf := new(big.Int).Quo(weightedUSD, debtUSD)
	if !hf.IsUint64() {
		return ^uint64(0), nil
	}
	return hf.Uint64(), nil
}

// CalcClosePayments splits the close-out between the pool and the borrower.
// For an ordinary close the pool receives debt with interest plus the
// interest fee. For a liquidation it additionally receives the liquidation
// fee on total value, capped at the discounted proceeds; any shortfall
// against the debt becomes pool loss and the discounted leftover returns to
// the borrower.
func CalcClosePayments(params RiskParameters, totalValue *big.Int, liquidated bool, borrowedAmount, debtWithInterest *big.Int) (amountToPool, remainingFunds, profit, loss *big.Int) {
	borrowedAmount = clone(borrowedAmount)
	debtWithInterest = clone(debtWithInterest)
	totalValue = clone(totalValue)

	interest := new(big.Int).Sub(debtWithInterest, borrowedAmount)
	interestFee := bpsMul(interest, params.FeeInterest)
	amountToPool = new(big.Int).Add(debtWithInterest, interestFee)
	profit = clone(interestFee)
	loss = big.NewInt(0)
	remainingFunds = big.NewInt(0)

	if !liquidated {
		if totalValue.Cmp(amountToPool) > 0 {
			remainingFunds = new(big.Int).Sub(totalValue, amountToPool)
		}
		return amountToPool, remainingFunds, profit, loss
	}

	amountToPool.Add(amountToPool, bpsMul(totalValue, params.FeeLiquidation))
	totalFunds := bpsMul(totalValue, params.LiquidationDiscount)
	if totalFunds.Cmp(amountToPool) > 0 {
		remainingFunds = new(big.Int).Sub(totalFunds, amountToPool)
	} else {
		amountToPool = clone(totalFunds)
	}
	if amountToPool.Cmp(debtWithInterest) >= 0 {
		profit = new(big.Int).Sub(amountToPool, debtWithInterest)
		loss = big.NewInt(0)
	} else {
		profit = big.NewInt(0)
		loss = new(big.Int).Sub(debtWithInterest, amountToPool)
	}
	return amountToPool, remainingFunds, profit, loss
}
