package vault

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makePolicyVault() *Vault {
	return &Vault{
		DefaultQuorum:            2,
		LargeWithdrawalThreshold: big.NewInt(10_000),
		Tiers: []QuorumTier{
			{MinAmount: big.NewInt(0), MaxAmount: big.NewInt(1_000), RequiredSignatures: 1, Active: true},
			{MinAmount: big.NewInt(1_000), MaxAmount: big.NewInt(10_000), RequiredSignatures: 2, Active: true},
			{MinAmount: big.NewInt(10_000), RequiredSignatures: 4, Sensitive: true, Active: true},
		},
	}
}

func atHour(hour int) time.Time {
	return time.Date(2024, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestResolveQuorumTierSelection(t *testing.T) {
	v := makePolicyVault()
	cases := []struct {
		name      string
		amount    int64
		required  uint32
		sensitive bool
	}{
		{"small", 500, 1, false},
		{"boundary joins next tier", 1_000, 2, false},
		{"mid", 5_000, 2, false},
		{"large tier is sensitive", 10_000, 4, true},
		{"unbounded tier", 1_000_000, 4, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			required, sensitive := ResolveQuorum(v, "GVT", big.NewInt(tc.amount), atHour(12))
			require.Equal(t, tc.required, required)
			require.Equal(t, tc.sensitive, sensitive)
		})
	}
}

func TestResolveQuorumMostSpecificTierWins(t *testing.T) {
	v := makePolicyVault()
	// Overlapping tier with a higher floor must take precedence.
	v.Tiers = append(v.Tiers, QuorumTier{
		MinAmount:          big.NewInt(5_000),
		MaxAmount:          big.NewInt(10_000),
		RequiredSignatures: 3,
		Active:             true,
	})
	required, _ := ResolveQuorum(v, "GVT", big.NewInt(7_000), atHour(12))
	require.Equal(t, uint32(3), required, "highest minAmount wins")
}

func TestResolveQuorumInactiveTierIgnored(t *testing.T) {
	v := makePolicyVault()
	v.Tiers[2].Active = false
	required, sensitive := ResolveQuorum(v, "GVT", big.NewInt(50_000), atHour(12))
	require.Equal(t, v.DefaultQuorum, required)
	// The amount still crosses the large-withdrawal threshold.
	require.True(t, sensitive)
}

func TestResolveQuorumNoTierMatchKeepsDefault(t *testing.T) {
	v := &Vault{DefaultQuorum: 3}
	required, sensitive := ResolveQuorum(v, "GVT", big.NewInt(42), atHour(12))
	require.Equal(t, uint32(3), required)
	require.False(t, sensitive)
}

func TestResolveQuorumTimeWindows(t *testing.T) {
	v := makePolicyVault()
	v.Windows = []TimeWindow{
		{StartHour: 9, EndHour: 17, AdditionalSignatures: 1, Active: true, Reason: "business hours"},
		{StartHour: 22, EndHour: 6, AdditionalSignatures: 2, Active: true, Reason: "overnight"},
		{StartHour: 0, EndHour: 24 % 24, AdditionalSignatures: 9, Active: false},
	}

	cases := []struct {
		name     string
		hour     int
		required uint32
	}{
		{"inside business hours", 12, 3},
		{"outside all windows", 20, 2},
		{"overnight before midnight", 23, 4},
		{"overnight after midnight wrap", 3, 4},
		{"end hour exclusive", 17, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			required, _ := ResolveQuorum(v, "GVT", big.NewInt(5_000), atHour(tc.hour))
			require.Equal(t, tc.required, required)
		})
	}
}

func TestResolveQuorumOverlappingWindowsStack(t *testing.T) {
	v := makePolicyVault()
	v.Windows = []TimeWindow{
		{StartHour: 8, EndHour: 18, AdditionalSignatures: 1, Active: true},
		{StartHour: 10, EndHour: 14, AdditionalSignatures: 2, Active: true},
	}
	required, _ := ResolveQuorum(v, "GVT", big.NewInt(5_000), atHour(12))
	require.Equal(t, uint32(5), required, "both windows add on top of the tier base")
}

func TestResolveQuorumPerTokenThreshold(t *testing.T) {
	v := &Vault{
		DefaultQuorum:            2,
		LargeWithdrawalThreshold: big.NewInt(100_000),
		TokenThresholds:          map[string]*big.Int{"GVT": big.NewInt(500)},
	}
	_, sensitive := ResolveQuorum(v, "GVT", big.NewInt(600), atHour(12))
	require.True(t, sensitive, "per-token threshold marks the withdrawal sensitive")
	_, sensitive = ResolveQuorum(v, "OTHER", big.NewInt(600), atHour(12))
	require.False(t, sensitive, "other tokens fall back to the global threshold")
}
