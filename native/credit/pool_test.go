package credit

import (
	"errors"
	"math/big"
	"testing"
)

func TestLinearPoolAccruesIndex(t *testing.T) {
	// A flat 25% APR keeps the arithmetic exact.
	pool := NewLinearPool(NewInterestModel(0.25, 0, 0, 0))
	pool.AddLiquidity(big.NewInt(1000))
	if err := pool.Lend(big.NewInt(500), testAccount(0x11)); err != nil {
		t.Fatalf("lend: %v", err)
	}

	pool.SetBlockHeight(blocksPerYear)
	expected := new(big.Int).Mul(ray, big.NewInt(125))
	expected.Quo(expected, big.NewInt(100))
	if got := pool.CurrentIndex(); got.Cmp(expected) != 0 {
		t.Fatalf("expected index 1.25 ray after one year, got %s", got)
	}

	// Compounding applies per accrual window.
	pool.SetBlockHeight(2 * blocksPerYear)
	expected = new(big.Int).Mul(ray, big.NewInt(15625))
	expected.Quo(expected, big.NewInt(10000))
	if got := pool.CurrentIndex(); got.Cmp(expected) != 0 {
		t.Fatalf("expected index 1.5625 ray after two years, got %s", got)
	}
}

func TestLinearPoolIndexStaticWithoutBorrows(t *testing.T) {
	pool := NewLinearPool(NewInterestModel(0.25, 0, 0, 0))
	pool.AddLiquidity(big.NewInt(1000))
	pool.SetBlockHeight(blocksPerYear)
	if got := pool.CurrentIndex(); got.Cmp(ray) != 0 {
		t.Fatalf("expected index unchanged without borrows, got %s", got)
	}
}

func TestLinearPoolLendBoundedByLiquidity(t *testing.T) {
	pool := NewLinearPool(DefaultInterestModel)
	pool.AddLiquidity(big.NewInt(100))
	if err := pool.Lend(big.NewInt(150), testAccount(0x11)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if err := pool.Lend(big.NewInt(60), testAccount(0x11)); err != nil {
		t.Fatalf("lend: %v", err)
	}
	if got := pool.AvailableLiquidity(); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("expected available 40, got %s", got)
	}
}

func TestLinearPoolRepayBooksProfitAndLoss(t *testing.T) {
	pool := NewLinearPool(DefaultInterestModel)
	pool.AddLiquidity(big.NewInt(1000))
	if err := pool.Lend(big.NewInt(500), testAccount(0x11)); err != nil {
		t.Fatalf("lend: %v", err)
	}

	if err := pool.Repay(big.NewInt(500), big.NewInt(25), big.NewInt(10)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if got := pool.TotalBorrowed(); got.Sign() != 0 {
		t.Fatalf("expected no outstanding principal, got %s", got)
	}
	// 1000 + 25 profit - 10 loss.
	if got := pool.AvailableLiquidity(); got.Cmp(big.NewInt(1015)) != 0 {
		t.Fatalf("expected available 1015, got %s", got)
	}
}

func TestLinearPoolCheckpointRestores(t *testing.T) {
	pool := NewLinearPool(DefaultInterestModel)
	pool.AddLiquidity(big.NewInt(1000))
	restore := pool.Checkpoint()
	if err := pool.Lend(big.NewInt(500), testAccount(0x11)); err != nil {
		t.Fatalf("lend: %v", err)
	}
	restore()
	if got := pool.TotalBorrowed(); got.Sign() != 0 {
		t.Fatalf("expected lend unwound, got %s", got)
	}
	if got := pool.AvailableLiquidity(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected available restored to 1000, got %s", got)
	}
}

func TestInterestModelKinkedCurve(t *testing.T) {
	model := NewInterestModel(0, 0.5, 2, 0.5)

	// Below the kink only slope1 applies: 0.25 utilisation yields 0.125.
	apr := model.BorrowAPR(big.NewInt(25), big.NewInt(100))
	if apr.Cmp(big.NewRat(1, 8)) != 0 {
		t.Fatalf("expected APR 1/8, got %s", apr)
	}

	// Above the kink the excess accrues at slope2: 0.5*0.5 + 2*0.25 = 0.75.
	apr = model.BorrowAPR(big.NewInt(75), big.NewInt(100))
	if apr.Cmp(big.NewRat(3, 4)) != 0 {
		t.Fatalf("expected APR 3/4, got %s", apr)
	}
}

func TestInterestModelZeroUtilisation(t *testing.T) {
	model := NewInterestModel(0.02, 0.5, 2, 0.5)
	apr := model.BorrowAPR(big.NewInt(0), big.NewInt(100))
	if apr.Cmp(model.BaseRate) != 0 {
		t.Fatalf("expected base rate at zero utilisation, got %s", apr)
	}
	if u := model.Utilisation(big.NewInt(10), nil); u.Sign() != 0 {
		t.Fatalf("expected zero utilisation without liquidity, got %s", u)
	}
}
