package vault

import (
	"fmt"
	"math/big"
)

// ownerMutate loads the vault under its lock, checks the caller is the owner,
// applies fn, and persists the result.
func (e *Engine) ownerMutate(vaultID [32]byte, caller [20]byte, fn func(*Vault) error) error {
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
	if err := fn(v); err != nil {
		return err
	}
	return e.storeVault(v)
}

// AddQuorumTier appends an amount-tiered quorum rule. Owner only.
func (e *Engine) AddQuorumTier(vaultID [32]byte, caller [20]byte, tier QuorumTier) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if tier.MinAmount == nil {
			tier.MinAmount = big.NewInt(0)
		}
		tier.Active = true
		v.Tiers = append(v.Tiers, tier)
		return nil
	})
}

// DeactivateQuorumTier soft-deletes the tier at index. Tiers are never hard
// removed so historical decisions stay explainable.
func (e *Engine) DeactivateQuorumTier(vaultID [32]byte, caller [20]byte, index int) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if index < 0 || index >= len(v.Tiers) {
			return fmt.Errorf("vault: tier index %d out of range", index)
		}
		v.Tiers[index].Active = false
		return nil
	})
}

// AddTimeWindow appends a time-of-day signature surcharge. Owner only.
func (e *Engine) AddTimeWindow(vaultID [32]byte, caller [20]byte, window TimeWindow) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if window.StartHour > 23 || window.EndHour > 23 {
			return fmt.Errorf("vault: window hours must be in [0, 23]")
		}
		window.Active = true
		v.Windows = append(v.Windows, window)
		return nil
	})
}

// DeactivateTimeWindow soft-deletes the window at index.
func (e *Engine) DeactivateTimeWindow(vaultID [32]byte, caller [20]byte, index int) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if index < 0 || index >= len(v.Windows) {
			return fmt.Errorf("vault: window index %d out of range", index)
		}
		v.Windows[index].Active = false
		return nil
	})
}

// SetEmergencyThreshold configures the freeze ballot threshold. It may never
// exceed the guardian count or the vault's base quorum.
func (e *Engine) SetEmergencyThreshold(vaultID [32]byte, caller [20]byte, threshold uint32) error {
	if e.registry == nil {
		return errNilRegistry
	}
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		count, err := e.registry.GuardianCount(v.ID)
		if err != nil {
			return err
		}
		if threshold > count {
			return ErrThresholdExceedsGuardianCount
		}
		if threshold > v.DefaultQuorum {
			return ErrThresholdExceedsQuorum
		}
		v.EmergencyThreshold = threshold
		return nil
	})
}

// SetTimeLockDelay configures the maturation delay for queued withdrawals.
func (e *Engine) SetTimeLockDelay(vaultID [32]byte, caller [20]byte, seconds int64) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if seconds < 0 {
			return ErrZeroAmount
		}
		v.TimeLockDelay = seconds
		return nil
	})
}

// SetLargeWithdrawalThreshold configures the global large-transaction
// threshold. Nil disables queuing entirely.
func (e *Engine) SetLargeWithdrawalThreshold(vaultID [32]byte, caller [20]byte, threshold *big.Int) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		if threshold == nil {
			v.LargeWithdrawalThreshold = nil
			return nil
		}
		if threshold.Sign() <= 0 {
			return ErrZeroAmount
		}
		v.LargeWithdrawalThreshold = new(big.Int).Set(threshold)
		return nil
	})
}

// SetTokenThreshold configures a per-token large-transaction threshold that
// overrides the global one. Nil removes the override.
func (e *Engine) SetTokenThreshold(vaultID [32]byte, caller [20]byte, token string, threshold *big.Int) error {
	return e.ownerMutate(vaultID, caller, func(v *Vault) error {
		normalized := NormalizeToken(token)
		if threshold == nil {
			delete(v.TokenThresholds, normalized)
			return nil
		}
		if threshold.Sign() <= 0 {
			return ErrZeroAmount
		}
		if v.TokenThresholds == nil {
			v.TokenThresholds = make(map[string]*big.Int)
		}
		v.TokenThresholds[normalized] = new(big.Int).Set(threshold)
		return nil
	})
}
