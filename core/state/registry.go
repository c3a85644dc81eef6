package state

import (
	"errors"

	"guardvault/storage"
)

const guardianKeyPrefix = "guardian/"

// RegistryStore is a guardian membership registry backed by a
// storage.Database. Membership lifecycle is outside the authorization core;
// this store is the collaborator the daemon wires in.
type RegistryStore struct {
	db storage.Database
}

// NewRegistryStore wraps the database in a guardian registry.
func NewRegistryStore(db storage.Database) *RegistryStore {
	return &RegistryStore{db: db}
}

func guardianKey(vaultID [32]byte, addr [20]byte) []byte {
	return []byte(guardianKeyPrefix + encodeHash(vaultID) + "/" + encodeAddr(addr))
}

// AddGuardian registers an address as a guardian for the vault.
func (r *RegistryStore) AddGuardian(vaultID [32]byte, addr [20]byte) error {
	return r.db.Put(guardianKey(vaultID, addr), []byte{1})
}

// RemoveGuardian drops an address from the vault's guardian set. Removing an
// absent guardian is a no-op.
func (r *RegistryStore) RemoveGuardian(vaultID [32]byte, addr [20]byte) error {
	// The Database interface has no delete; tombstone with an empty value.
	return r.db.Put(guardianKey(vaultID, addr), nil)
}

// IsGuardian reports whether the address is currently a guardian of the vault.
func (r *RegistryStore) IsGuardian(vaultID [32]byte, addr [20]byte) (bool, error) {
	raw, err := r.db.Get(guardianKey(vaultID, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(raw) == 1 && raw[0] == 1, nil
}

// GuardianCount returns the number of active guardians for the vault.
func (r *RegistryStore) GuardianCount(vaultID [32]byte) (uint32, error) {
	prefix := []byte(guardianKeyPrefix + encodeHash(vaultID) + "/")
	var count uint32
	err := r.db.IteratePrefix(prefix, func(_, value []byte) error {
		if len(value) == 1 && value[0] == 1 {
			count++
		}
		return nil
	})
	return count, err
}
