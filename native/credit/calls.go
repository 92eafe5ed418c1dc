package credit

import (
	"bytes"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"creditvault/crypto"
)

// Call is one entry of a multicall batch: either a reserved self-call
// targeting the facade, or a forwarded call to a registered adapter. The
// payload always starts with a 4-byte selector.
type Call struct {
	Target crypto.Address
	Data   []byte
}

const selectorLength = 4

var (
	selAddCollateral = selector("addCollateral(address,uint256)")
	selIncreaseDebt  = selector("increaseDebt(uint256)")
	selDecreaseDebt  = selector("decreaseDebt(uint256)")
)

func selector(signature string) []byte {
	return ethcrypto.Keccak256([]byte(signature))[:selectorLength]
}

func hasSelector(data, sel []byte) bool {
	return len(data) >= selectorLength && bytes.Equal(data[:selectorLength], sel)
}

// encodeAmount packs an amount as a 32-byte big-endian word.
func encodeAmount(amount *big.Int) []byte {
	word := make([]byte, 32)
	if amount != nil {
		amount.FillBytes(word)
	}
	return word
}

func decodeAmount(word []byte) (*big.Int, error) {
	if len(word) != 32 {
		return nil, ErrMalformedCall
	}
	return new(big.Int).SetBytes(word), nil
}

// AddCollateralCall builds the reserved self-call depositing collateral from
// the borrower's wallet into the account mid-batch.
func AddCollateralCall(facade, token crypto.Address, amount *big.Int) Call {
	data := make([]byte, 0, selectorLength+crypto.AddressLength+32)
	data = append(data, selAddCollateral...)
	data = append(data, token.Bytes()...)
	data = append(data, encodeAmount(amount)...)
	return Call{Target: facade, Data: data}
}

// IncreaseDebtCall builds the reserved self-call borrowing more principal
// mid-batch.
func IncreaseDebtCall(facade crypto.Address, amount *big.Int) Call {
	data := make([]byte, 0, selectorLength+32)
	data = append(data, selIncreaseDebt...)
	data = append(data, encodeAmount(amount)...)
	return Call{Target: facade, Data: data}
}

// DecreaseDebtCall builds the reserved self-call repaying principal mid-batch.
func DecreaseDebtCall(facade crypto.Address, amount *big.Int) Call {
	data := make([]byte, 0, selectorLength+32)
	data = append(data, selDecreaseDebt...)
	data = append(data, encodeAmount(amount)...)
	return Call{Target: facade, Data: data}
}

func decodeAddCollateral(data []byte) (crypto.Address, *big.Int, error) {
	payload := data[selectorLength:]
	if len(payload) != crypto.AddressLength+32 {
		return crypto.Address{}, nil, ErrMalformedCall
	}
	token := crypto.MustNewAddress(crypto.TokenPrefix, payload[:crypto.AddressLength])
	amount, err := decodeAmount(payload[crypto.AddressLength:])
	if err != nil {
		return crypto.Address{}, nil, err
	}
	return token, amount, nil
}

func decodeDebtChange(data []byte) (*big.Int, error) {
	return decodeAmount(data[selectorLength:])
}
