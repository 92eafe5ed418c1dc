package credit

import (
	"creditvault/core/types"
	"creditvault/crypto"
)

// State is the persistence boundary for the credit module. Credit accounts are
// keyed by borrower address; wallet vaults hold the free balances of external
// addresses (payers, recipients, liquidators). Snapshots provide the
// all-or-nothing scope for batched entry points: every facade call takes one
// snapshot up front and reverts to it on any failure.
type State interface {
	GetCreditAccount(owner crypto.Address) (*CreditAccount, error)
	PutCreditAccount(account *CreditAccount) error
	DeleteCreditAccount(owner crypto.Address) error

	GetWallet(addr crypto.Address) (*types.Vault, error)
	PutWallet(addr crypto.Address, vault *types.Vault) error

	Snapshot() int
	RevertToSnapshot(rev int)
	DiscardSnapshot(rev int)
}

type memorySnapshot struct {
	accounts map[string]*CreditAccount
	wallets  map[string]*types.Vault
}

// MemoryState is the in-process State implementation. Copy-on-read and
// copy-on-write keep snapshot isolation trivially correct at the scale of a
// single execution context.
type MemoryState struct {
	accounts  map[string]*CreditAccount
	wallets   map[string]*types.Vault
	snapshots []memorySnapshot
}

func NewMemoryState() *MemoryState {
	return &MemoryState{
		accounts: make(map[string]*CreditAccount),
		wallets:  make(map[string]*types.Vault),
	}
}

func (s *MemoryState) GetCreditAccount(owner crypto.Address) (*CreditAccount, error) {
	account, ok := s.accounts[owner.Key()]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (s *MemoryState) PutCreditAccount(account *CreditAccount) error {
	if account == nil {
		return ErrNoOpenAccount
	}
	account.EnsureDefaults()
	s.accounts[account.Owner.Key()] = account.Clone()
	return nil
}

func (s *MemoryState) DeleteCreditAccount(owner crypto.Address) error {
	delete(s.accounts, owner.Key())
	return nil
}

func (s *MemoryState) GetWallet(addr crypto.Address) (*types.Vault, error) {
	wallet, ok := s.wallets[addr.Key()]
	if !ok {
		return types.NewVault(), nil
	}
	return wallet.Clone(), nil
}

func (s *MemoryState) PutWallet(addr crypto.Address, vault *types.Vault) error {
	if vault == nil {
		vault = types.NewVault()
	}
	s.wallets[addr.Key()] = vault.Clone()
	return nil
}

// Snapshot records the current state and returns a revision handle.
func (s *MemoryState) Snapshot() int {
	snap := memorySnapshot{
		accounts: make(map[string]*CreditAccount, len(s.accounts)),
		wallets:  make(map[string]*types.Vault, len(s.wallets)),
	}
	for key, account := range s.accounts {
		snap.accounts[key] = account.Clone()
	}
	for key, wallet := range s.wallets {
		snap.wallets[key] = wallet.Clone()
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1
}

// RevertToSnapshot discards every mutation made after the given revision.
func (s *MemoryState) RevertToSnapshot(rev int) {
	if rev < 0 || rev >= len(s.snapshots) {
		return
	}
	snap := s.snapshots[rev]
	s.accounts = snap.accounts
	s.wallets = snap.wallets
	s.snapshots = s.snapshots[:rev]
}

// DiscardSnapshot drops the revision without reverting, committing everything
// applied since it was taken.
func (s *MemoryState) DiscardSnapshot(rev int) {
	if rev < 0 || rev >= len(s.snapshots) {
		return
	}
	s.snapshots = s.snapshots[:rev]
}
