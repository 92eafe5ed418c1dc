package credit

import (
	"errors"
	"math/big"
	"testing"
)

func TestRiskParametersValidate(t *testing.T) {
	params := testParams()
	if err := params.Validate(); err != nil {
		t.Fatalf("expected valid parameters, got %v", err)
	}
}

func TestRiskParametersValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RiskParameters)
	}{
		{"nil min", func(p *RiskParameters) { p.MinBorrowed = nil }},
		{"max below min", func(p *RiskParameters) { p.MaxBorrowed = big.NewInt(1) }},
		{"fee above factor", func(p *RiskParameters) { p.FeeLiquidation = PercentFactor + 1 }},
		{"chi above factor", func(p *RiskParameters) { p.ChiThreshold = PercentFactor + 1 }},
		{"discount below fee", func(p *RiskParameters) { p.LiquidationDiscount = p.FeeLiquidation }},
		{"zero interval", func(p *RiskParameters) { p.HFCheckInterval = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := testParams()
			tc.mutate(&params)
			if err := params.Validate(); !errors.Is(err, ErrParamsBounds) {
				t.Fatalf("expected ErrParamsBounds, got %v", err)
			}
		})
	}
}

func TestRiskParametersValidateCoverage(t *testing.T) {
	// Five fast checks at a 9950 tolerance can erode up to
	// 1 - 0.995^5 = ~2.48%, more than the 2% liquidation fee buffer.
	params := testParams()
	params.HFCheckInterval = 5
	if err := params.Validate(); !errors.Is(err, ErrParamsCoverage) {
		t.Fatalf("expected ErrParamsCoverage, got %v", err)
	}

	// Loosening the tolerance to 9990 brings the worst case back under the
	// buffer.
	params.ChiThreshold = 9990
	if err := params.Validate(); err != nil {
		t.Fatalf("expected coverage to hold, got %v", err)
	}
}

func TestUnderlyingThreshold(t *testing.T) {
	params := testParams()
	if got := params.UnderlyingThreshold(); got != 9300 {
		t.Fatalf("expected 9300, got %d", got)
	}
	params.FeeLiquidation = params.LiquidationDiscount
	if got := params.UnderlyingThreshold(); got != 0 {
		t.Fatalf("expected 0 when the fee swallows the discount, got %d", got)
	}
}
