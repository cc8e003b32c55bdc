package accounts

import (
	"bytes"
	"sort"
	"sync"

	"github.com/fortiblox/x1-mint/pkg/types"
)

// MemoryDB is an in-memory implementation of AccountsDB.
type MemoryDB struct {
	mu       sync.RWMutex
	accounts map[types.Pubkey]*types.Account
	closed   bool
}

// NewMemoryDB creates a new in-memory account database.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		accounts: make(map[types.Pubkey]*types.Account),
	}
}

// Get retrieves an account by pubkey.
// Returns nil, nil if account does not exist.
func (db *MemoryDB) Get(pubkey types.Pubkey) (*types.Account, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	account, exists := db.accounts[pubkey]
	if !exists {
		return nil, nil
	}
	// Return a clone to prevent external modification
	return account.Clone(), nil
}

// Set stores an account.
func (db *MemoryDB) Set(pubkey types.Pubkey, account *types.Account) error {
	if account == nil {
		return ErrNilAccount
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	db.accounts[pubkey] = account.Clone()
	return nil
}

// Delete removes an account.
func (db *MemoryDB) Delete(pubkey types.Pubkey) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	delete(db.accounts, pubkey)
	return nil
}

// Has returns true if the account exists.
func (db *MemoryDB) Has(pubkey types.Pubkey) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.accounts[pubkey]
	return exists
}

// Count returns the total number of accounts.
func (db *MemoryDB) Count() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return uint64(len(db.accounts))
}

// ForEach visits accounts in pubkey order. fn receives clones, and the
// database is not locked while fn runs.
func (db *MemoryDB) ForEach(fn func(pubkey types.Pubkey, account *types.Account) error) error {
	db.mu.RLock()
	if db.closed {
		db.mu.RUnlock()
		return ErrClosed
	}
	keys := make([]types.Pubkey, 0, len(db.accounts))
	for pk := range db.accounts {
		keys = append(keys, pk)
	}
	snapshot := make(map[types.Pubkey]*types.Account, len(keys))
	for _, pk := range keys {
		snapshot[pk] = db.accounts[pk].Clone()
	}
	db.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	for _, pk := range keys {
		if err := fn(pk, snapshot[pk]); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database and drops its contents.
func (db *MemoryDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.accounts = make(map[types.Pubkey]*types.Account)
	db.closed = true
	return nil
}

// Ensure MemoryDB implements AccountsDB.
var _ AccountsDB = (*MemoryDB)(nil)
