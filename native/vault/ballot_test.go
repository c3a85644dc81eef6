package vault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"guardvault/core/events"
)

// faultyVaultState fails VaultPut on demand so persistence failures can be
// observed from outside the engine.
type faultyVaultState struct {
	*mockState
	putErr error
}

func (s *faultyVaultState) VaultPut(v *Vault) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.mockState.VaultPut(v)
}

func TestEmergencyFreezeAndUnfreezeScenario(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) { v.EmergencyThreshold = 2 })
	g1, g2 := f.guardians[0].addr, f.guardians[1].addr

	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, g1))
	require.False(t, f.vault(t).Frozen)

	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, g2))
	v := f.vault(t)
	require.True(t, v.Frozen)
	require.Empty(t, v.Ballot, "both vote sets clear on transition")

	// Any withdrawal attempt fails while frozen.
	intent := f.intent(10, 0)
	_, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.ErrorIs(t, err, ErrVaultFrozen)

	// One unfreeze vote is not enough with threshold 2.
	require.NoError(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, g1))
	require.True(t, f.vault(t).Frozen)

	require.NoError(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, g2))
	v = f.vault(t)
	require.False(t, v.Frozen)
	require.Empty(t, v.Ballot)
	require.Contains(t, f.emitter.types(), events.TypeVaultFrozen)
	require.Contains(t, f.emitter.types(), events.TypeVaultUnfrozen)
}

func TestBallotVoteSwitchingIsExclusive(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) { v.EmergencyThreshold = 2 })
	g1, g2 := f.guardians[0].addr, f.guardians[1].addr

	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, g1))
	require.ErrorIs(t, f.engine.VoteEmergencyFreeze(f.vaultID, g1), ErrDuplicateVote)

	// Switching replaces the standing freeze vote rather than stacking.
	require.NoError(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, g1))
	require.Equal(t, VoteUnfreeze, f.vault(t).Ballot[g1])

	// g1's freeze vote is gone, so g2's freeze alone cannot cross threshold 2.
	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, g2))
	require.False(t, f.vault(t).Frozen)
}

func TestBallotRejectsNonGuardians(t *testing.T) {
	f := newTestFixture(t, nil)
	outsider := newGuardianKey(t).addr
	require.ErrorIs(t, f.engine.VoteEmergencyFreeze(f.vaultID, outsider), ErrNotAGuardian)
	require.ErrorIs(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, outsider), ErrNotAGuardian)
}

func TestBallotDefaultThresholdIsMajority(t *testing.T) {
	// No explicit threshold: 3 guardians need 3/2+1 = 2 freeze votes.
	f := newTestFixture(t, nil)
	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[0].addr))
	require.False(t, f.vault(t).Frozen)
	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[1].addr))
	require.True(t, f.vault(t).Frozen)
}

func TestBallotEmitsNothingWhenStoreFails(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) { v.EmergencyThreshold = 1 })
	faulty := &faultyVaultState{mockState: f.state, putErr: errors.New("disk full")}
	f.engine.SetState(faulty)

	// The vote would cross the threshold, but the write fails: no vote event,
	// no frozen event, and the stored vault is untouched.
	err := f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[0].addr)
	require.ErrorContains(t, err, "disk full")
	require.Empty(t, f.emitter.events)
	v := f.vault(t)
	require.False(t, v.Frozen)
	require.Empty(t, v.Ballot)

	// Clearing the fault lets the same vote through, with events in order.
	faulty.putErr = nil
	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[0].addr))
	require.Equal(t, []string{events.TypeFreezeVote, events.TypeVaultFrozen}, f.emitter.types())
	require.True(t, f.vault(t).Frozen)
}

func TestUnfreezeVotesIgnoredWhileUnfrozen(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) { v.EmergencyThreshold = 2 })
	// Crossing the unfreeze threshold while the vault is already unfrozen
	// must not flip anything.
	require.NoError(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, f.guardians[0].addr))
	require.NoError(t, f.engine.VoteEmergencyUnfreeze(f.vaultID, f.guardians[1].addr))
	require.False(t, f.vault(t).Frozen)
}
