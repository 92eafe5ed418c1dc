package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaCredentialExceeded = errors.New("quota credential opens exceeded")
	ErrQuotaCounterOverflow    = errors.New("quota counter overflow")
)

// CredentialQuota captures a position-limited credential: each credential unit
// held by an address permits exactly one historical account open.
type CredentialQuota struct {
	// Balance is the number of credential units currently held.
	Balance uint64
	// Opened is the lifetime count of account opens consumed by the holder.
	Opened uint64
}

// CheckCredential verifies that one additional open fits within the holder's
// credential balance and returns the updated counters when it does.
func CheckCredential(prev CredentialQuota, addOpens uint64) (CredentialQuota, error) {
	next := prev
	if addOpens > 0 {
		if next.Opened > math.MaxUint64-addOpens {
			return prev, ErrQuotaCounterOverflow
		}
		next.Opened += addOpens
	}
	if next.Opened > next.Balance {
		return prev, ErrQuotaCredentialExceeded
	}
	return next, nil
}
