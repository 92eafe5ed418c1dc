package credit

import (
	"math/big"
	"testing"
)

func TestMemoryStateSnapshotRevert(t *testing.T) {
	state := NewMemoryState()
	owner := testAccount(0x11)

	account := &CreditAccount{Owner: owner, BorrowedAmount: big.NewInt(100)}
	if err := state.PutCreditAccount(account); err != nil {
		t.Fatalf("put account: %v", err)
	}

	rev := state.Snapshot()
	account.BorrowedAmount = big.NewInt(500)
	if err := state.PutCreditAccount(account); err != nil {
		t.Fatalf("put account: %v", err)
	}
	wallet, _ := state.GetWallet(owner)
	wallet.AddBalance("token", big.NewInt(42))
	if err := state.PutWallet(owner, wallet); err != nil {
		t.Fatalf("put wallet: %v", err)
	}

	state.RevertToSnapshot(rev)

	restored, err := state.GetCreditAccount(owner)
	if err != nil || restored == nil {
		t.Fatalf("get account: %v", err)
	}
	if restored.BorrowedAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected principal reverted to 100, got %s", restored.BorrowedAmount)
	}
	wallet, _ = state.GetWallet(owner)
	if wallet.Balance("token").Sign() != 0 {
		t.Fatalf("expected wallet mutation reverted")
	}
}

func TestMemoryStateSnapshotDiscard(t *testing.T) {
	state := NewMemoryState()
	owner := testAccount(0x11)

	rev := state.Snapshot()
	if err := state.PutCreditAccount(&CreditAccount{Owner: owner, BorrowedAmount: big.NewInt(100)}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	state.DiscardSnapshot(rev)

	account, err := state.GetCreditAccount(owner)
	if err != nil || account == nil {
		t.Fatalf("expected committed account, got %v/%v", account, err)
	}
	// The discarded revision is gone; reverting to it is a no-op.
	state.RevertToSnapshot(rev)
	account, _ = state.GetCreditAccount(owner)
	if account == nil {
		t.Fatalf("expected revert to a discarded revision to be a no-op")
	}
}

func TestMemoryStateCopyOnRead(t *testing.T) {
	state := NewMemoryState()
	owner := testAccount(0x11)
	if err := state.PutCreditAccount(&CreditAccount{Owner: owner, BorrowedAmount: big.NewInt(100)}); err != nil {
		t.Fatalf("put account: %v", err)
	}

	loaded, _ := state.GetCreditAccount(owner)
	loaded.BorrowedAmount.SetInt64(999)
	loaded.Vault.AddBalance("token", big.NewInt(1))

	fresh, _ := state.GetCreditAccount(owner)
	if fresh.BorrowedAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected stored principal isolated from reads, got %s", fresh.BorrowedAmount)
	}
	if fresh.Vault.Balance("token").Sign() != 0 {
		t.Fatalf("expected stored vault isolated from reads")
	}
}

func TestMemoryStateNestedSnapshots(t *testing.T) {
	state := NewMemoryState()
	owner := testAccount(0x11)

	outer := state.Snapshot()
	if err := state.PutCreditAccount(&CreditAccount{Owner: owner, BorrowedAmount: big.NewInt(1)}); err != nil {
		t.Fatalf("put account: %v", err)
	}
	inner := state.Snapshot()
	if err := state.PutCreditAccount(&CreditAccount{Owner: owner, BorrowedAmount: big.NewInt(2)}); err != nil {
		t.Fatalf("put account: %v", err)
	}

	state.RevertToSnapshot(inner)
	account, _ := state.GetCreditAccount(owner)
	if account.BorrowedAmount.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected inner revert to 1, got %s", account.BorrowedAmount)
	}

	state.RevertToSnapshot(outer)
	account, _ = state.GetCreditAccount(owner)
	if account != nil {
		t.Fatalf("expected outer revert to remove the account")
	}
}
