package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVaultClonePreservesUnsetThresholds(t *testing.T) {
	v := &Vault{
		ID:            [32]byte{0x01},
		DefaultQuorum: 2,
		TokenThresholds: map[string]*big.Int{
			"GVT": big.NewInt(500),
		},
	}
	clone := v.Clone()

	// An unconfigured threshold must survive the clone as nil: zero would flip
	// every withdrawal into the time-lock queue.
	require.Nil(t, clone.LargeWithdrawalThreshold)
	require.Nil(t, clone.LargeThreshold("OTHER"))
	require.Zero(t, big.NewInt(500).Cmp(clone.LargeThreshold("GVT")))

	// Repeated cloning is stable.
	require.Nil(t, clone.Clone().LargeWithdrawalThreshold)
}

func TestVaultCloneIsDeep(t *testing.T) {
	v := &Vault{
		ID:                       [32]byte{0x01},
		LargeWithdrawalThreshold: big.NewInt(10_000),
		TokenThresholds:          map[string]*big.Int{"GVT": big.NewInt(500)},
		Tiers: []QuorumTier{
			{MinAmount: big.NewInt(0), MaxAmount: big.NewInt(1_000), RequiredSignatures: 1, Active: true},
		},
		Ballot: map[[20]byte]VoteChoice{{0xA1}: VoteFreeze},
	}
	clone := v.Clone()

	clone.LargeWithdrawalThreshold.SetInt64(1)
	clone.TokenThresholds["GVT"].SetInt64(1)
	clone.Tiers[0].MaxAmount.SetInt64(1)
	clone.Ballot[[20]byte{0xA2}] = VoteUnfreeze

	require.Zero(t, big.NewInt(10_000).Cmp(v.LargeWithdrawalThreshold))
	require.Zero(t, big.NewInt(500).Cmp(v.TokenThresholds["GVT"]))
	require.Zero(t, big.NewInt(1_000).Cmp(v.Tiers[0].MaxAmount))
	require.Len(t, v.Ballot, 1)
}
