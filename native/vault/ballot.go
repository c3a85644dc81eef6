package vault

import (
	"guardvault/core/events"
)

// effectiveThreshold returns the configured emergency threshold, defaulting to
// a strict majority of the current guardian count when unset.
func (e *Engine) effectiveThreshold(v *Vault) (uint32, error) {
	if v.EmergencyThreshold > 0 {
		return v.EmergencyThreshold, nil
	}
	count, err := e.registry.GuardianCount(v.ID)
	if err != nil {
		return 0, err
	}
	return count/2 + 1, nil
}

// VoteEmergencyFreeze records a guardian's vote to halt all withdrawal
// activity on the vault. A standing unfreeze vote by the same guardian is
// replaced, not stacked. Crossing the threshold while unfrozen flips the vault
// to frozen and clears the ballot.
func (e *Engine) VoteEmergencyFreeze(vaultID [32]byte, guardian [20]byte) error {
	return e.castBallot(vaultID, guardian, VoteFreeze)
}

// VoteEmergencyUnfreeze records a guardian's vote to resume withdrawal
// activity. Symmetric to VoteEmergencyFreeze: crossing the threshold while
// frozen unfreezes the vault and clears the ballot.
func (e *Engine) VoteEmergencyUnfreeze(vaultID [32]byte, guardian [20]byte) error {
	return e.castBallot(vaultID, guardian, VoteUnfreeze)
}

func (e *Engine) castBallot(vaultID [32]byte, guardian [20]byte, choice VoteChoice) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return err
	}
	ok, err := e.registry.IsGuardian(v.ID, guardian)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAGuardian
	}
	if v.Ballot == nil {
		v.Ballot = make(map[[20]byte]VoteChoice)
	}
	if v.Ballot[guardian] == choice {
		return ErrDuplicateVote
	}
	v.Ballot[guardian] = choice

	threshold, err := e.effectiveThreshold(v)
	if err != nil {
		return err
	}
	votes := uint32(0)
	for _, c := range v.Ballot {
		if c == choice {
			votes++
		}
	}
	// Events fire only after the vault persists; a failed write must leave no
	// trace of the vote or the flip.
	var flip events.Event
	switch {
	case choice == VoteFreeze && !v.Frozen && votes >= threshold:
		v.Frozen = true
		v.Ballot = make(map[[20]byte]VoteChoice)
		flip = events.VaultFrozen{Vault: v.ID, Votes: votes}
	case choice == VoteUnfreeze && v.Frozen && votes >= threshold:
		v.Frozen = false
		v.Ballot = make(map[[20]byte]VoteChoice)
		flip = events.VaultUnfrozen{Vault: v.ID, Votes: votes}
	}
	if err := e.storeVault(v); err != nil {
		return err
	}
	e.emit(events.FreezeVote{Vault: v.ID, Guardian: guardian, Choice: choice.String()})
	if flip != nil {
		e.emit(flip)
	}
	return nil
}
