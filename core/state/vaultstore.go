package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"guardvault/native/vault"
	"guardvault/storage"
)

const (
	vaultKeyPrefix      = "vault/"
	withdrawalKeyPrefix = "withdrawal/"
	withdrawalSeqKey    = "withdrawal-seq"
	sessionKeyPrefix    = "session/"
	spendKeyPrefix      = "spend/"
	spendSeqKeyPrefix   = "spend-seq/"
)

// VaultStore persists vault aggregates, queued withdrawals, sessions and spend
// receipts in a storage.Database. It implements the engine's state interface.
type VaultStore struct {
	db storage.Database

	mu sync.Mutex // guards sequence allocation
}

// NewVaultStore wraps the database in a vault state backend.
func NewVaultStore(db storage.Database) *VaultStore {
	return &VaultStore{db: db}
}

func vaultKey(id [32]byte) []byte {
	return []byte(vaultKeyPrefix + encodeHash(id))
}

func withdrawalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", withdrawalKeyPrefix, id))
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

// VaultPut persists the vault aggregate.
func (s *VaultStore) VaultPut(v *vault.Vault) error {
	if v == nil {
		return fmt.Errorf("state: nil vault")
	}
	raw, err := json.Marshal(encodeVault(v))
	if err != nil {
		return err
	}
	return s.db.Put(vaultKey(v.ID), raw)
}

// VaultGet loads the vault aggregate. The returned value is a fresh copy.
func (s *VaultStore) VaultGet(id [32]byte) (*vault.Vault, bool, error) {
	raw, err := s.db.Get(vaultKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec := &storedVault{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, false, err
	}
	v, err := decodeVault(rec)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// QueuedWithdrawalPut persists a queue entry.
func (s *VaultStore) QueuedWithdrawalPut(q *vault.QueuedWithdrawal) error {
	if q == nil {
		return fmt.Errorf("state: nil withdrawal")
	}
	raw, err := json.Marshal(encodeWithdrawal(q))
	if err != nil {
		return err
	}
	return s.db.Put(withdrawalKey(q.ID), raw)
}

// QueuedWithdrawalGet loads a queue entry.
func (s *VaultStore) QueuedWithdrawalGet(id uint64) (*vault.QueuedWithdrawal, bool, error) {
	raw, err := s.db.Get(withdrawalKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec := &storedWithdrawal{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, false, err
	}
	q, err := decodeWithdrawal(rec)
	if err != nil {
		return nil, false, err
	}
	return q, true, nil
}

// NextQueuedWithdrawalID allocates the next queue identifier. Identifiers are
// monotonic and never reused.
func (s *VaultStore) NextQueuedWithdrawalID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq([]byte(withdrawalSeqKey))
}

func (s *VaultStore) nextSeq(key []byte) (uint64, error) {
	var current uint64
	raw, err := s.db.Get(key)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
	case err != nil:
		return 0, err
	case len(raw) == 8:
		current = binary.BigEndian.Uint64(raw)
	}
	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.db.Put(key, buf); err != nil {
		return 0, err
	}
	return next, nil
}

// SessionPut persists a spending session.
func (s *VaultStore) SessionPut(session *vault.SpendingSession) error {
	if session == nil {
		return fmt.Errorf("state: nil session")
	}
	raw, err := json.Marshal(encodeSession(session))
	if err != nil {
		return err
	}
	return s.db.Put(sessionKey(session.ID), raw)
}

// SessionGet loads a spending session.
func (s *VaultStore) SessionGet(id string) (*vault.SpendingSession, bool, error) {
	raw, err := s.db.Get(sessionKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec := &storedSession{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, false, err
	}
	session, err := decodeSession(rec)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// SpendRecordAppend appends an immutable spend receipt to the session's audit
// trail.
func (s *VaultStore) SpendRecordAppend(r *vault.SpendRecord) error {
	if r == nil {
		return fmt.Errorf("state: nil spend record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.nextSeq([]byte(spendSeqKeyPrefix + r.SessionID))
	if err != nil {
		return err
	}
	raw, err := json.Marshal(encodeSpend(r))
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%s/%020d", spendKeyPrefix, r.SessionID, seq)
	return s.db.Put([]byte(key), raw)
}

// SpendRecords returns the session's spend receipts in append order.
func (s *VaultStore) SpendRecords(sessionID string) ([]*vault.SpendRecord, error) {
	prefix := []byte(spendKeyPrefix + sessionID + "/")
	var out []*vault.SpendRecord
	err := s.db.IteratePrefix(prefix, func(_, value []byte) error {
		rec := &storedSpend{}
		if err := json.Unmarshal(value, rec); err != nil {
			return err
		}
		r, err := decodeSpend(rec)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

// QueuedWithdrawals returns every queue entry belonging to the vault, oldest
// first.
func (s *VaultStore) QueuedWithdrawals(vaultID [32]byte) ([]*vault.QueuedWithdrawal, error) {
	var out []*vault.QueuedWithdrawal
	err := s.db.IteratePrefix([]byte(withdrawalKeyPrefix), func(_, value []byte) error {
		rec := &storedWithdrawal{}
		if err := json.Unmarshal(value, rec); err != nil {
			return err
		}
		q, err := decodeWithdrawal(rec)
		if err != nil {
			return err
		}
		if q.Vault == vaultID {
			out = append(out, q)
		}
		return nil
	})
	return out, err
}

// Sessions returns every session belonging to the vault.
func (s *VaultStore) Sessions(vaultID [32]byte) ([]*vault.SpendingSession, error) {
	var out []*vault.SpendingSession
	err := s.db.IteratePrefix([]byte(sessionKeyPrefix), func(_, value []byte) error {
		rec := &storedSession{}
		if err := json.Unmarshal(value, rec); err != nil {
			return err
		}
		session, err := decodeSession(rec)
		if err != nil {
			return err
		}
		if session.Vault == vaultID {
			out = append(out, session)
		}
		return nil
	})
	return out, err
}
