package state

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"guardvault/native/vault"
	"guardvault/storage"
)

const balanceKeyPrefix = "balance/"

// LedgerStore is a token balance store backed by a storage.Database. It
// implements the engine's Ledger collaborator: the engine decides whether a
// debit may occur, the store performs it atomically.
type LedgerStore struct {
	db storage.Database
	mu sync.Mutex
}

// NewLedgerStore wraps the database in a balance ledger.
func NewLedgerStore(db storage.Database) *LedgerStore {
	return &LedgerStore{db: db}
}

func balanceKey(vaultID [32]byte, token string) []byte {
	return []byte(balanceKeyPrefix + encodeHash(vaultID) + "/" + vault.NormalizeToken(token))
}

func (l *LedgerStore) read(vaultID [32]byte, token string) (*big.Int, error) {
	raw, err := l.db.Get(balanceKey(vaultID, token))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: corrupt balance record for %s", token)
	}
	return balance, nil
}

func (l *LedgerStore) write(vaultID [32]byte, token string, balance *big.Int) error {
	return l.db.Put(balanceKey(vaultID, token), []byte(balance.String()))
}

// Balance returns the vault's balance for the token.
func (l *LedgerStore) Balance(vaultID [32]byte, token string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read(vaultID, token)
}

// Credit adds funds to the vault balance.
func (l *LedgerStore) Credit(vaultID [32]byte, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return vault.ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.read(vaultID, token)
	if err != nil {
		return err
	}
	return l.write(vaultID, token, new(big.Int).Add(balance, amount))
}

// Debit removes funds from the vault balance. Fails with
// vault.ErrInsufficientBalance when the balance cannot cover the amount.
func (l *LedgerStore) Debit(vaultID [32]byte, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return vault.ErrZeroAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := l.read(vaultID, token)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return vault.ErrInsufficientBalance
	}
	return l.write(vaultID, token, new(big.Int).Sub(balance, amount))
}
