package vault

import (
	"guardvault/core/events"
)

// RequestRageQuit starts the owner's escape-hatch clock. It consults neither
// the guardians nor the freeze ballot. Calling it while a request is already
// pending keeps the original timestamp.
func (e *Engine) RequestRageQuit(vaultID [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return err
	}
	if caller != v.Owner {
		return ErrNotOwner
	}
	if v.RageQuitRequestedAt != 0 {
		return nil
	}
	v.RageQuitRequestedAt = e.now().Unix()
	if err := e.storeVault(v); err != nil {
		return err
	}
	e.emit(events.RageQuitRequested{
		Vault:       v.ID,
		RequestedAt: v.RageQuitRequestedAt,
		UnlocksAt:   v.RageQuitRequestedAt + v.RageQuitDelay,
	})
	return nil
}

// CancelRageQuit clears a pending rage-quit without moving funds. Owner only.
func (e *Engine) CancelRageQuit(vaultID [32]byte, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return err
	}
	if caller != v.Owner {
		return ErrNotOwner
	}
	if v.RageQuitRequestedAt == 0 {
		return ErrRageQuitNotRequested
	}
	v.RageQuitRequestedAt = 0
	if err := e.storeVault(v); err != nil {
		return err
	}
	e.emit(events.RageQuitCancelled{Vault: v.ID})
	return nil
}

// ExecuteRageQuit drains the full balance of one token to the owner once the
// mandatory delay has elapsed. Deliberately immune to the emergency freeze:
// this is the counter-measure for unavailable or compromised guardians.
func (e *Engine) ExecuteRageQuit(vaultID [32]byte, caller [20]byte, token string) error {
	if err := e.ensureCollaborators(); err != nil {
		return err
	}
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return err
	}
	if caller != v.Owner {
		return ErrNotOwner
	}
	if v.RageQuitRequestedAt == 0 {
		return ErrRageQuitNotRequested
	}
	if e.now().Unix() < v.RageQuitRequestedAt+v.RageQuitDelay {
		return ErrWithdrawalNotReady
	}
	normalized := NormalizeToken(token)
	balance, err := e.ledger.Balance(v.ID, normalized)
	if err != nil {
		return err
	}
	if balance != nil && balance.Sign() > 0 {
		if err := e.ledger.Debit(v.ID, normalized, balance); err != nil {
			return err
		}
	}
	v.RageQuitRequestedAt = 0
	if err := e.storeVault(v); err != nil {
		return err
	}
	e.emit(events.RageQuitExecuted{
		Vault:  v.ID,
		Token:  normalized,
		Amount: cloneBigInt(balance),
		Owner:  v.Owner,
	})
	return nil
}
