package events

import (
	"math/big"
	"testing"
)

func TestAccountOpenedAttributes(t *testing.T) {
	event := AccountOpened{Borrowed: big.NewInt(300)}
	event.Owner[0] = 0x11

	out := event.Event()
	if out.Type != TypeCreditAccountOpened {
		t.Fatalf("unexpected type %s", out.Type)
	}
	if out.Attributes["borrowedAmount"] != "300" {
		t.Fatalf("unexpected amount %q", out.Attributes["borrowedAmount"])
	}
	if _, ok := out.Attributes["referral"]; ok {
		t.Fatalf("zero referral must be omitted")
	}

	event.Referral[0] = 0x22
	out = event.Event()
	if _, ok := out.Attributes["referral"]; !ok {
		t.Fatalf("expected referral attribute")
	}
}

func TestDebtChangedTypeFollowsDirection(t *testing.T) {
	increase := DebtChanged{Amount: big.NewInt(1), Principal: big.NewInt(2), Increase: true}
	if increase.EventType() != TypeCreditDebtIncreased {
		t.Fatalf("unexpected type %s", increase.EventType())
	}
	decrease := DebtChanged{Amount: big.NewInt(1), Principal: big.NewInt(2)}
	if decrease.EventType() != TypeCreditDebtDecreased {
		t.Fatalf("unexpected type %s", decrease.EventType())
	}
	if decrease.Event().Attributes["newPrincipal"] != "2" {
		t.Fatalf("expected principal attribute")
	}
}

func TestAccountLiquidatedOmitsZeroLoss(t *testing.T) {
	event := AccountLiquidated{Remaining: big.NewInt(5)}
	out := event.Event()
	if _, ok := out.Attributes["loss"]; ok {
		t.Fatalf("zero loss must be omitted")
	}
	event.Loss = big.NewInt(10)
	if got := event.Event().Attributes["loss"]; got != "10" {
		t.Fatalf("expected loss 10, got %q", got)
	}
}

func TestOrderExecutedAttributes(t *testing.T) {
	event := OrderExecuted{OrderID: "abc"}
	event.DataHash[0] = 0xDE
	out := event.Event()
	if out.Attributes["orderId"] != "abc" {
		t.Fatalf("expected order id attribute")
	}
	if got := out.Attributes["dataHash"]; len(got) != 2+64 || got[:4] != "0xde" {
		t.Fatalf("unexpected data hash %q", got)
	}
}
