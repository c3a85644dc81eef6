package vault

import (
	"math/big"
	"time"
)

// ResolveQuorum computes the minimum number of distinct guardian approvals a
// withdrawal of the given amount needs at the given time, plus whether the
// withdrawal is sensitive. Pure function of the vault configuration and the
// arguments; no side effects.
//
// Tier selection: among active tiers whose [MinAmount, MaxAmount) contains the
// amount, the one with the highest MinAmount wins. No match keeps the vault
// default. Every active time window containing the hour of now adds its
// surcharge; overlapping windows stack.
func ResolveQuorum(v *Vault, token string, amount *big.Int, now time.Time) (uint32, bool) {
	if v == nil || amount == nil {
		return 0, false
	}
	required := v.DefaultQuorum
	sensitive := false

	var selected *QuorumTier
	for i := range v.Tiers {
		tier := &v.Tiers[i]
		if !tier.Active || !tier.Contains(amount) {
			continue
		}
		if selected == nil || cmpMin(tier).Cmp(cmpMin(selected)) > 0 {
			selected = tier
		}
	}
	if selected != nil {
		required = selected.RequiredSignatures
		sensitive = selected.Sensitive
	}

	hour := now.UTC().Hour()
	for i := range v.Windows {
		w := &v.Windows[i]
		if w.Active && w.ContainsHour(hour) {
			required += w.AdditionalSignatures
		}
	}

	if threshold := v.LargeThreshold(token); threshold != nil && amount.Cmp(threshold) >= 0 {
		sensitive = true
	}
	return required, sensitive
}

func cmpMin(t *QuorumTier) *big.Int {
	if t.MinAmount == nil {
		return big.NewInt(0)
	}
	return t.MinAmount
}
