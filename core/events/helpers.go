package events

import (
	"math/big"

	"creditvault/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(b [20]byte) string {
	return crypto.MustNewAddress(crypto.AccountPrefix, b[:]).String()
}

func formatToken(b [20]byte) string {
	return crypto.MustNewAddress(crypto.TokenPrefix, b[:]).String()
}

func zeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
