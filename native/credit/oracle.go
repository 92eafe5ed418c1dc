package credit

import (
	"math/big"

	"creditvault/crypto"
)

// usdScale is the fixed-point scale of registered price feeds: a feed value of
// 1e8 means one smallest token unit is worth exactly one USD unit.
var usdScale = big.NewInt(100_000_000)

// PriceOracle converts token amounts to and from the common USD-denominated
// unit used by the collateral checks. Implementations fail when a token has no
// registered feed or the feed reports a zero price.
type PriceOracle interface {
	ToUSD(amount *big.Int, token crypto.Address) (*big.Int, error)
	FromUSD(usd *big.Int, token crypto.Address) (*big.Int, error)
	Convert(amount *big.Int, from, to crypto.Address) (*big.Int, error)
	FastCheck(amountIn *big.Int, tokenIn crypto.Address, amountOut *big.Int, tokenOut crypto.Address) (*big.Int, *big.Int, error)
}

// FeedOracle is a feed-registry PriceOracle: one USD price feed per token,
// registered by the configurator.
type FeedOracle struct {
	configurator crypto.Address
	feeds        map[string]*big.Int
}

func NewFeedOracle(configurator crypto.Address) *FeedOracle {
	return &FeedOracle{
		configurator: configurator,
		feeds:        make(map[string]*big.Int),
	}
}

// SetFeed registers or replaces the USD feed for a token.
func (o *FeedOracle) SetFeed(caller, token crypto.Address, price *big.Int) error {
	if !caller.Equal(o.configurator) {
		return ErrNotConfigurator
	}
	if token.IsZero() {
		return ErrZeroAddress
	}
	if price == nil || price.Sign() < 0 {
		return ErrZeroPrice
	}
	o.feeds[token.Key()] = new(big.Int).Set(price)
	return nil
}

func (o *FeedOracle) price(token crypto.Address) (*big.Int, error) {
	price, ok := o.feeds[token.Key()]
	if !ok {
		return nil, ErrNoPriceFeed
	}
	if price.Sign() == 0 {
		return nil, ErrZeroPrice
	}
	return price, nil
}

func (o *FeedOracle) ToUSD(amount *big.Int, token crypto.Address) (*big.Int, error) {
	price, err := o.price(token)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	usd := new(big.Int).Mul(amount, price)
	return usd.Quo(usd, usdScale), nil
}

func (o *FeedOracle) FromUSD(usd *big.Int, token crypto.Address) (*big.Int, error) {
	price, err := o.price(token)
	if err != nil {
		return nil, err
	}
	if usd == nil || usd.Sign() == 0 {
		return big.NewInt(0), nil
	}
	amount := new(big.Int).Mul(usd, usdScale)
	return amount.Quo(amount, price), nil
}

func (o *FeedOracle) Convert(amount *big.Int, from, to crypto.Address) (*big.Int, error) {
	usd, err := o.ToUSD(amount, from)
	if err != nil {
		return nil, err
	}
	return o.FromUSD(usd, to)
}

// FastCheck prices both legs of a swap in one call so the verifier can bound
// the collateral drop without repricing the whole portfolio.
func (o *FeedOracle) FastCheck(amountIn *big.Int, tokenIn crypto.Address, amountOut *big.Int, tokenOut crypto.Address) (*big.Int, *big.Int, error) {
	usdIn, err := o.ToUSD(amountIn, tokenIn)
	if err != nil {
		return nil, nil, err
	}
	usdOut, err := o.ToUSD(amountOut, tokenOut)
	if err != nil {
		return nil, nil, err
	}
	return usdIn, usdOut, nil
}
