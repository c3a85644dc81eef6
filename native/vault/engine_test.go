package vault

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guardvault/core/events"
)

func TestAuthorizeConsumesNonceAndRejectsReplay(t *testing.T) {
	f := newTestFixture(t, nil)
	intent := f.intent(500, 0)
	sigs := f.sign(t, intent, f.guardians[0], f.guardians[1])

	approvers, err := f.engine.Authorize(intent, sigs)
	require.NoError(t, err)
	require.Len(t, approvers, 2)
	require.Equal(t, uint64(1), f.vault(t).Nonce)

	// The identical intent and signatures are worthless after the nonce is
	// consumed.
	_, err = f.engine.Authorize(intent, sigs)
	require.ErrorIs(t, err, ErrNonceMismatch)
}

func TestAuthorizeQuorumNotMetDespiteNoise(t *testing.T) {
	f := newTestFixture(t, nil)
	intent := f.intent(500, 0)

	sig, err := SignIntent(f.guardians[0].key, intent)
	require.NoError(t, err)

	// One valid guardian, the same guardian again, garbage bytes, and a
	// signature from an outsider: still one distinct valid approval.
	outsider := newGuardianKey(t)
	outsiderSig, err := SignIntent(outsider.key, intent)
	require.NoError(t, err)
	sigs := [][]byte{sig, sig, {0x01, 0x02}, outsiderSig}

	_, err = f.engine.Authorize(intent, sigs)
	require.ErrorIs(t, err, ErrQuorumNotMet)
	// A failed authorization must not burn the nonce.
	require.Equal(t, uint64(0), f.vault(t).Nonce)
}

func TestAuthorizeInvalidIntent(t *testing.T) {
	f := newTestFixture(t, nil)

	zero := f.intent(0, 0)
	zero.Amount = big.NewInt(0)
	_, err := f.engine.Authorize(zero, nil)
	require.ErrorIs(t, err, ErrZeroAmount)

	noRecipient := f.intent(100, 0)
	noRecipient.Recipient = [20]byte{}
	_, err = f.engine.Authorize(noRecipient, nil)
	require.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestAuthorizeFrozenVaultShortCircuits(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) { v.Frozen = true })
	intent := f.intent(500, 5)
	// The freeze check runs before the nonce check: a stale nonce still
	// reports VaultFrozen.
	_, err := f.engine.Authorize(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.ErrorIs(t, err, ErrVaultFrozen)
}

func TestQueueOrExecuteImmediateBelowThreshold(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(500, 0)

	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)
	require.Nil(t, queued)

	balance, err := f.ledger.Balance(f.vaultID, "GVT")
	require.NoError(t, err)
	require.Equal(t, int64(999_500), balance.Int64())
	require.Contains(t, f.emitter.types(), events.TypeWithdrawalExecuted)
}

func TestQueueOrExecuteDefersLargeWithdrawal(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(50_000, 0)

	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)
	require.NotNil(t, queued)
	require.Equal(t, f.now.Unix()+3600, queued.ReadyAt)
	require.Len(t, queued.Approvers, 2)

	// Nothing reflected in the ledger until execution.
	balance, err := f.ledger.Balance(f.vaultID, "GVT")
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), balance.Int64())

	// Not yet matured.
	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrWithdrawalNotReady)

	f.advance(2 * time.Hour)
	require.NoError(t, f.engine.ExecuteQueued(queued.ID))
	balance, err = f.ledger.Balance(f.vaultID, "GVT")
	require.NoError(t, err)
	require.Equal(t, int64(950_000), balance.Int64())

	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrAlreadyExecuted)
}

func TestQueueOrExecuteLedgerFailureKeepsNonce(t *testing.T) {
	f := newTestFixture(t, nil)
	intent := f.intent(500, 0)
	intent.Amount = big.NewInt(2_000_000) // more than funded

	_, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(0), f.vault(t).Nonce)
}

func TestIndependentFreezesMustAllBeLifted(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(50_000, 0)
	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)
	f.advance(2 * time.Hour)

	a, b := f.guardians[0].addr, f.guardians[2].addr
	require.NoError(t, f.engine.FreezeQueued(queued.ID, a))
	require.NoError(t, f.engine.FreezeQueued(queued.ID, b))
	require.ErrorIs(t, f.engine.FreezeQueued(queued.ID, a), ErrDuplicateVote)

	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrWithdrawalFrozen)

	// A alone unfreezing is not enough while B's freeze stands.
	require.NoError(t, f.engine.UnfreezeQueued(queued.ID, a))
	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrWithdrawalFrozen)

	require.NoError(t, f.engine.UnfreezeQueued(queued.ID, b))
	require.NoError(t, f.engine.ExecuteQueued(queued.ID))
}

func TestFreezeQueuedRequiresGuardian(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(50_000, 0)
	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)

	outsider := newGuardianKey(t)
	require.ErrorIs(t, f.engine.FreezeQueued(queued.ID, outsider.addr), ErrNotAGuardian)
	require.ErrorIs(t, f.engine.UnfreezeQueued(queued.ID, f.guardians[2].addr), ErrNoFreezeVote)
}

func TestCancelQueuedPermissions(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(50_000, 0)
	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)

	// Guardian 2 did not sign the original authorization and may not cancel.
	require.ErrorIs(t, f.engine.CancelQueued(queued.ID, f.guardians[2].addr), ErrUnauthorizedGuardian)

	require.NoError(t, f.engine.CancelQueued(queued.ID, f.guardians[0].addr))
	// Cancelling twice is a no-op, execution is permanently blocked.
	require.NoError(t, f.engine.CancelQueued(queued.ID, f.owner))
	f.advance(2 * time.Hour)
	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrWithdrawalCancelled)
}

func TestExecuteQueuedBlockedWhileVaultFrozen(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.LargeWithdrawalThreshold = big.NewInt(10_000)
	})
	intent := f.intent(50_000, 0)
	queued, err := f.engine.QueueOrExecute(intent, f.sign(t, intent, f.guardians[0], f.guardians[1]))
	require.NoError(t, err)
	f.advance(2 * time.Hour)

	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[0].addr))
	require.NoError(t, f.engine.VoteEmergencyFreeze(f.vaultID, f.guardians[1].addr))
	require.True(t, f.vault(t).Frozen)

	require.ErrorIs(t, f.engine.ExecuteQueued(queued.ID), ErrVaultFrozen)
}

func TestQuorumResolutionThroughEngine(t *testing.T) {
	f := newTestFixture(t, func(v *Vault) {
		v.Tiers = []QuorumTier{{MinAmount: big.NewInt(1_000), RequiredSignatures: 3, Active: true}}
	})
	required, _, err := f.engine.Quorum(f.vaultID, "GVT", big.NewInt(5_000), f.now)
	require.NoError(t, err)
	require.Equal(t, uint32(3), required)

	_, _, err = f.engine.Quorum([32]byte{0xFF}, "GVT", big.NewInt(5_000), f.now)
	require.ErrorIs(t, err, ErrVaultNotFound)
}

func TestOwnerConfiguration(t *testing.T) {
	f := newTestFixture(t, nil)
	stranger := newGuardianKey(t).addr

	require.ErrorIs(t, f.engine.AddQuorumTier(f.vaultID, stranger, QuorumTier{RequiredSignatures: 1}), ErrNotOwner)
	require.NoError(t, f.engine.AddQuorumTier(f.vaultID, f.owner, QuorumTier{
		MinAmount:          big.NewInt(100),
		RequiredSignatures: 3,
	}))
	require.NoError(t, f.engine.AddTimeWindow(f.vaultID, f.owner, TimeWindow{StartHour: 22, EndHour: 6, AdditionalSignatures: 1}))

	required, _, err := f.engine.Quorum(f.vaultID, "GVT", big.NewInt(500), time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, uint32(4), required)

	require.NoError(t, f.engine.DeactivateQuorumTier(f.vaultID, f.owner, 0))
	required, _, err = f.engine.Quorum(f.vaultID, "GVT", big.NewInt(500), f.now)
	require.NoError(t, err)
	require.Equal(t, uint32(2), required)

	// Emergency threshold is bounded by guardian count and base quorum.
	require.ErrorIs(t, f.engine.SetEmergencyThreshold(f.vaultID, f.owner, 5), ErrThresholdExceedsGuardianCount)
	require.ErrorIs(t, f.engine.SetEmergencyThreshold(f.vaultID, f.owner, 3), ErrThresholdExceedsQuorum)
	require.NoError(t, f.engine.SetEmergencyThreshold(f.vaultID, f.owner, 2))

	require.NoError(t, f.engine.SetTokenThreshold(f.vaultID, f.owner, "gvt", big.NewInt(777)))
	require.NotNil(t, f.vault(t).TokenThresholds["GVT"])
}
