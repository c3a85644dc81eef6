package vault

import (
	"fmt"
	"math/big"
	"strings"
)

// VoteChoice captures a guardian's standing vote on the emergency freeze
// ballot. Storing the choice per guardian makes vote switching structurally
// exclusive: a guardian holds at most one of freeze/unfreeze at any time.
type VoteChoice uint8

const (
	VoteNone VoteChoice = iota
	VoteFreeze
	VoteUnfreeze
)

// String implements fmt.Stringer for logging and event emission.
func (c VoteChoice) String() string {
	switch c {
	case VoteFreeze:
		return "freeze"
	case VoteUnfreeze:
		return "unfreeze"
	default:
		return "none"
	}
}

// QuorumTier maps an amount range [MinAmount, MaxAmount) to a required
// signature count. MaxAmount nil means unbounded. Tiers are soft-deleted via
// Active so historical withdrawals stay explainable.
type QuorumTier struct {
	MinAmount          *big.Int
	MaxAmount          *big.Int
	RequiredSignatures uint32
	Sensitive          bool
	Active             bool
}

// Contains reports whether the amount falls inside the tier range.
func (t *QuorumTier) Contains(amount *big.Int) bool {
	if t == nil || amount == nil {
		return false
	}
	min := t.MinAmount
	if min == nil {
		min = big.NewInt(0)
	}
	if amount.Cmp(min) < 0 {
		return false
	}
	if t.MaxAmount != nil && amount.Cmp(t.MaxAmount) >= 0 {
		return false
	}
	return true
}

// TimeWindow adds signatures to the base quorum when the hour component of the
// evaluation time falls inside [StartHour, EndHour). EndHour < StartHour wraps
// past midnight. Overlapping windows are additive.
type TimeWindow struct {
	StartHour            uint8
	EndHour              uint8
	AdditionalSignatures uint32
	Active               bool
	Reason               string
}

// ContainsHour reports whether the given hour (0-23) falls inside the window.
func (w *TimeWindow) ContainsHour(hour int) bool {
	if w == nil {
		return false
	}
	start, end := int(w.StartHour), int(w.EndHour)
	if start == end {
		return false
	}
	if end < start {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// Vault is the root aggregate: nonce counter, quorum policy, freeze ballot and
// rage-quit state. Balances live in the external ledger and are referenced by
// the vault identifier only.
type Vault struct {
	ID    [32]byte
	Owner [20]byte

	Nonce uint64

	DefaultQuorum      uint32
	EmergencyThreshold uint32
	TimeLockDelay      int64
	RageQuitDelay      int64

	LargeWithdrawalThreshold *big.Int
	TokenThresholds          map[string]*big.Int

	Tiers   []QuorumTier
	Windows []TimeWindow

	Frozen bool
	Ballot map[[20]byte]VoteChoice

	RageQuitRequestedAt int64

	CreatedAt int64
}

// LargeThreshold returns the applicable large-withdrawal threshold for a
// token: the per-token override when present, otherwise the global default.
// A nil result means no threshold is configured and nothing is queued.
func (v *Vault) LargeThreshold(token string) *big.Int {
	if v == nil {
		return nil
	}
	if v.TokenThresholds != nil {
		if t, ok := v.TokenThresholds[NormalizeToken(token)]; ok && t != nil {
			return t
		}
	}
	return v.LargeWithdrawalThreshold
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored instance.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	clone.LargeWithdrawalThreshold = cloneBigInt(v.LargeWithdrawalThreshold)
	if v.TokenThresholds != nil {
		clone.TokenThresholds = make(map[string]*big.Int, len(v.TokenThresholds))
		for token, amt := range v.TokenThresholds {
			clone.TokenThresholds[token] = cloneBigInt(amt)
		}
	}
	if v.Tiers != nil {
		clone.Tiers = make([]QuorumTier, len(v.Tiers))
		for i := range v.Tiers {
			clone.Tiers[i] = v.Tiers[i]
			clone.Tiers[i].MinAmount = cloneBigInt(v.Tiers[i].MinAmount)
			if v.Tiers[i].MaxAmount != nil {
				clone.Tiers[i].MaxAmount = cloneBigInt(v.Tiers[i].MaxAmount)
			}
		}
	}
	clone.Windows = append([]TimeWindow(nil), v.Windows...)
	if v.Ballot != nil {
		clone.Ballot = make(map[[20]byte]VoteChoice, len(v.Ballot))
		for g, c := range v.Ballot {
			clone.Ballot[g] = c
		}
	}
	return &clone
}

// WithdrawalIntent is the message guardians sign. It is ephemeral: constructed
// per request, bound to a single use by the vault nonce, never persisted.
type WithdrawalIntent struct {
	Vault     [32]byte
	Token     string
	Amount    *big.Int
	Recipient [20]byte
	Reason    string
	Nonce     uint64
	CreatedAt int64
}

// Validate checks intent fields that are independent of vault state.
func (in *WithdrawalIntent) Validate() error {
	if in == nil {
		return fmt.Errorf("vault: nil intent")
	}
	if in.Amount == nil || in.Amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if in.Recipient == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	return nil
}

// QueuedWithdrawal is an authorized large withdrawal waiting out its time
// lock. Terminal states (executed, cancelled) are permanent.
type QueuedWithdrawal struct {
	ID        uint64
	Vault     [32]byte
	Token     string
	Amount    *big.Int
	Recipient [20]byte
	Reason    string
	CreatedAt int64
	ReadyAt   int64

	Approvers    [][20]byte
	FreezeVoters map[[20]byte]struct{}

	Executed  bool
	Cancelled bool
}

// IsFrozen reports whether any guardian freeze is standing.
func (q *QueuedWithdrawal) IsFrozen() bool {
	return q != nil && len(q.FreezeVoters) > 0
}

// ApprovedBy reports whether the guardian signed the original authorization.
func (q *QueuedWithdrawal) ApprovedBy(guardian [20]byte) bool {
	if q == nil {
		return false
	}
	for _, a := range q.Approvers {
		if a == guardian {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the queued withdrawal.
func (q *QueuedWithdrawal) Clone() *QueuedWithdrawal {
	if q == nil {
		return nil
	}
	clone := *q
	clone.Amount = cloneBigInt(q.Amount)
	clone.Approvers = make([][20]byte, len(q.Approvers))
	copy(clone.Approvers, q.Approvers)
	if q.FreezeVoters != nil {
		clone.FreezeVoters = make(map[[20]byte]struct{}, len(q.FreezeVoters))
		for g := range q.FreezeVoters {
			clone.FreezeVoters[g] = struct{}{}
		}
	}
	return &clone
}

// SpendingSession is a pre-approved, time-bounded spending envelope. The
// record is retained after deactivation for audit.
type SpendingSession struct {
	ID        string
	Vault     [32]byte
	Initiator [20]byte
	Purpose   string

	CreatedAt int64
	ExpiresAt int64

	TotalApproved *big.Int
	TotalSpent    *big.Int

	AllowedRecipients [][20]byte

	RequiresApproval  bool
	ApprovalsRequired uint32
	Approvers         map[[20]byte]struct{}

	Active bool
}

// Spendable reports whether the session has collected the approvals it needs.
func (s *SpendingSession) Spendable() bool {
	if s == nil {
		return false
	}
	if !s.RequiresApproval {
		return true
	}
	return uint32(len(s.Approvers)) >= s.ApprovalsRequired
}

// AllowsRecipient reports whether the recipient passes the allow-list. An
// empty list means unrestricted.
func (s *SpendingSession) AllowsRecipient(recipient [20]byte) bool {
	if s == nil {
		return false
	}
	if len(s.AllowedRecipients) == 0 {
		return true
	}
	for _, r := range s.AllowedRecipients {
		if r == recipient {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the session.
func (s *SpendingSession) Clone() *SpendingSession {
	if s == nil {
		return nil
	}
	clone := *s
	clone.TotalApproved = cloneBigInt(s.TotalApproved)
	clone.TotalSpent = cloneBigInt(s.TotalSpent)
	clone.AllowedRecipients = make([][20]byte, len(s.AllowedRecipients))
	copy(clone.AllowedRecipients, s.AllowedRecipients)
	if s.Approvers != nil {
		clone.Approvers = make(map[[20]byte]struct{}, len(s.Approvers))
		for g := range s.Approvers {
			clone.Approvers[g] = struct{}{}
		}
	}
	return &clone
}

// SpendRecord is an immutable, append-only receipt for a session spend.
type SpendRecord struct {
	SessionID string
	Vault     [32]byte
	Token     string
	Amount    *big.Int
	Recipient [20]byte
	Reason    string
	Timestamp int64
}

// NormalizeToken returns the canonical uppercase token symbol.
func NormalizeToken(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// cloneBigInt preserves nil: an unset amount (no threshold configured) must
// stay unset through Clone round trips.
func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
