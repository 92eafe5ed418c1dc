package credit

import (
	"math/big"

	"creditvault/crypto"
)

// Pool is the underlying liquidity source consumed by the ledger. Lend moves
// principal accounting to an account, Repay settles it together with protocol
// profit or loss, and CurrentIndex exposes the monotonic RAY-scale cumulative
// interest index used for debt accrual.
type Pool interface {
	Lend(amount *big.Int, account crypto.Address) error
	Repay(principal, profit, loss *big.Int) error
	CurrentIndex() *big.Int
}

// LinearPool is the in-process Pool implementation: a single-asset market
// whose borrow index accrues block by block under a kinked utilisation curve.
type LinearPool struct {
	totalLiquidity  *big.Int
	totalBorrowed   *big.Int
	borrowIndex     *big.Int
	lastUpdateBlock uint64
	blockHeight     uint64
	model           *InterestModel
}

func NewLinearPool(model *InterestModel) *LinearPool {
	return &LinearPool{
		totalLiquidity: big.NewInt(0),
		totalBorrowed:  big.NewInt(0),
		borrowIndex:    new(big.Int).Set(ray),
		model:          model.Clone(),
	}
}

// SetBlockHeight records the block height used when computing accrual deltas.
func (p *LinearPool) SetBlockHeight(height uint64) {
	if p == nil {
		return
	}
	p.accrue()
	p.blockHeight = height
}

// AddLiquidity books supplied funds. Supplier share accounting is out of
// scope here; the pool only needs aggregate liquidity to price utilisation
// and bound lending.
func (p *LinearPool) AddLiquidity(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	p.accrue()
	p.totalLiquidity = new(big.Int).Add(p.totalLiquidity, amount)
}

// AvailableLiquidity returns supplied minus borrowed funds.
func (p *LinearPool) AvailableLiquidity() *big.Int {
	available := new(big.Int).Sub(p.totalLiquidity, p.totalBorrowed)
	if available.Sign() < 0 {
		return big.NewInt(0)
	}
	return available
}

// TotalBorrowed returns the outstanding principal lent to credit accounts.
func (p *LinearPool) TotalBorrowed() *big.Int {
	return clone(p.totalBorrowed)
}

// Lend books principal out to a credit account.
func (p *LinearPool) Lend(amount *big.Int, account crypto.Address) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	p.accrue()
	if p.AvailableLiquidity().Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}
	p.totalBorrowed = new(big.Int).Add(p.totalBorrowed, amount)
	return nil
}

// Repay settles returned principal. Profit (interest and fees) grows the
// liquidity base; loss from an undercollateralized liquidation shrinks it.
func (p *LinearPool) Repay(principal, profit, loss *big.Int) error {
	p.accrue()
	if principal != nil && principal.Sign() > 0 {
		p.totalBorrowed = new(big.Int).Sub(p.totalBorrowed, principal)
		if p.totalBorrowed.Sign() < 0 {
			p.totalBorrowed = big.NewInt(0)
		}
	}
	if profit != nil && profit.Sign() > 0 {
		p.totalLiquidity = new(big.Int).Add(p.totalLiquidity, profit)
	}
	if loss != nil && loss.Sign() > 0 {
		p.totalLiquidity = new(big.Int).Sub(p.totalLiquidity, loss)
		if p.totalLiquidity.Sign() < 0 {
			p.totalLiquidity = big.NewInt(0)
		}
	}
	return nil
}

// CurrentIndex returns the cumulative borrow index at the current block.
func (p *LinearPool) CurrentIndex() *big.Int {
	p.accrue()
	return clone(p.borrowIndex)
}

// Checkpoint captures the pool accounting and returns a restore func. The
// facade pairs it with the state snapshot so a reverted batch also unwinds
// Lend and Repay bookings.
func (p *LinearPool) Checkpoint() func() {
	liquidity := clone(p.totalLiquidity)
	borrowed := clone(p.totalBorrowed)
	index := clone(p.borrowIndex)
	lastUpdate := p.lastUpdateBlock
	return func() {
		p.totalLiquidity = liquidity
		p.totalBorrowed = borrowed
		p.borrowIndex = index
		p.lastUpdateBlock = lastUpdate
	}
}

func (p *LinearPool) accrue() {
	if p.blockHeight <= p.lastUpdateBlock {
		return
	}
	delta := p.blockHeight - p.lastUpdateBlock
	p.lastUpdateBlock = p.blockHeight
	if p.model == nil || p.totalBorrowed.Sign() == 0 {
		return
	}
	borrowAPR := p.model.BorrowAPR(p.totalBorrowed, p.totalLiquidity)
	if borrowAPR.Sign() == 0 {
		return
	}
	p.borrowIndex = rayMul(p.borrowIndex, rateFactor(borrowAPR, delta))
}
