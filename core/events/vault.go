package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"guardvault/crypto"
)

const (
	TypeWithdrawalAuthorized = "vault.withdrawal.authorized"
	TypeWithdrawalExecuted   = "vault.withdrawal.executed"
	TypeWithdrawalQueued     = "vault.withdrawal.queued"
	TypeWithdrawalCancelled  = "vault.withdrawal.cancelled"
	TypeWithdrawalFrozen     = "vault.withdrawal.frozen"
	TypeWithdrawalUnfrozen   = "vault.withdrawal.unfrozen"
	TypeVaultFrozen          = "vault.frozen"
	TypeVaultUnfrozen        = "vault.unfrozen"
	TypeFreezeVote           = "vault.ballot.vote"
	TypeSessionCreated       = "vault.session.created"
	TypeSessionApproved      = "vault.session.approved"
	TypeSessionSpend         = "vault.session.spend"
	TypeSessionClosed        = "vault.session.closed"
	TypeRageQuitRequested    = "vault.ragequit.requested"
	TypeRageQuitCancelled    = "vault.ragequit.cancelled"
	TypeRageQuitExecuted     = "vault.ragequit.executed"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func addr(a [20]byte) string {
	return crypto.NewAddress(crypto.VaultPrefix, a[:]).String()
}

// WithdrawalAuthorized is emitted when an intent clears quorum and the vault
// nonce is consumed.
type WithdrawalAuthorized struct {
	Vault     [32]byte
	Token     string
	Amount    *big.Int
	Recipient [20]byte
	Nonce     uint64
	Approvals uint32
}

func (WithdrawalAuthorized) EventType() string { return TypeWithdrawalAuthorized }

func (e WithdrawalAuthorized) Attributes() map[string]string {
	return map[string]string{
		"vault":     hex.EncodeToString(e.Vault[:]),
		"token":     e.Token,
		"amount":    formatAmount(e.Amount),
		"recipient": addr(e.Recipient),
		"nonce":     uintToString(e.Nonce),
		"approvals": uintToString(uint64(e.Approvals)),
	}
}

// WithdrawalExecuted is emitted when funds actually leave the vault, either
// immediately after authorization or when a queued withdrawal matures.
type WithdrawalExecuted struct {
	Vault     [32]byte
	Token     string
	Amount    *big.Int
	Recipient [20]byte
	QueueID   uint64
}

func (WithdrawalExecuted) EventType() string { return TypeWithdrawalExecuted }

func (e WithdrawalExecuted) Attributes() map[string]string {
	return map[string]string{
		"vault":     hex.EncodeToString(e.Vault[:]),
		"token":     e.Token,
		"amount":    formatAmount(e.Amount),
		"recipient": addr(e.Recipient),
		"queueId":   uintToString(e.QueueID),
	}
}

// WithdrawalQueued is emitted when an authorized large withdrawal is deferred
// into the time-lock queue.
type WithdrawalQueued struct {
	Vault   [32]byte
	QueueID uint64
	Token   string
	Amount  *big.Int
	ReadyAt int64
}

func (WithdrawalQueued) EventType() string { return TypeWithdrawalQueued }

func (e WithdrawalQueued) Attributes() map[string]string {
	return map[string]string{
		"vault":   hex.EncodeToString(e.Vault[:]),
		"queueId": uintToString(e.QueueID),
		"token":   e.Token,
		"amount":  formatAmount(e.Amount),
		"readyAt": intToString(e.ReadyAt),
	}
}

// WithdrawalCancelled marks the permanent cancellation of a queued withdrawal.
type WithdrawalCancelled struct {
	Vault   [32]byte
	QueueID uint64
	Caller  [20]byte
}

func (WithdrawalCancelled) EventType() string { return TypeWithdrawalCancelled }

func (e WithdrawalCancelled) Attributes() map[string]string {
	return map[string]string{
		"vault":   hex.EncodeToString(e.Vault[:]),
		"queueId": uintToString(e.QueueID),
		"caller":  addr(e.Caller),
	}
}

// WithdrawalFrozen is emitted each time a guardian places a freeze on a queued
// withdrawal.
type WithdrawalFrozen struct {
	Vault    [32]byte
	QueueID  uint64
	Guardian [20]byte
	Freezes  int
}

func (WithdrawalFrozen) EventType() string { return TypeWithdrawalFrozen }

func (e WithdrawalFrozen) Attributes() map[string]string {
	return map[string]string{
		"vault":    hex.EncodeToString(e.Vault[:]),
		"queueId":  uintToString(e.QueueID),
		"guardian": addr(e.Guardian),
		"freezes":  strconv.Itoa(e.Freezes),
	}
}

// WithdrawalUnfrozen is emitted when a guardian lifts their freeze; Freezes
// carries the number of freezes still standing.
type WithdrawalUnfrozen struct {
	Vault    [32]byte
	QueueID  uint64
	Guardian [20]byte
	Freezes  int
}

func (WithdrawalUnfrozen) EventType() string { return TypeWithdrawalUnfrozen }

func (e WithdrawalUnfrozen) Attributes() map[string]string {
	return map[string]string{
		"vault":    hex.EncodeToString(e.Vault[:]),
		"queueId":  uintToString(e.QueueID),
		"guardian": addr(e.Guardian),
		"freezes":  strconv.Itoa(e.Freezes),
	}
}

// VaultFrozen is emitted when the emergency freeze ballot crosses its
// threshold and halts the vault.
type VaultFrozen struct {
	Vault [32]byte
	Votes uint32
}

func (VaultFrozen) EventType() string { return TypeVaultFrozen }

func (e VaultFrozen) Attributes() map[string]string {
	return map[string]string{
		"vault": hex.EncodeToString(e.Vault[:]),
		"votes": uintToString(uint64(e.Votes)),
	}
}

// VaultUnfrozen is emitted when the unfreeze side of the ballot crosses its
// threshold and withdrawal activity resumes.
type VaultUnfrozen struct {
	Vault [32]byte
	Votes uint32
}

func (VaultUnfrozen) EventType() string { return TypeVaultUnfrozen }

func (e VaultUnfrozen) Attributes() map[string]string {
	return map[string]string{
		"vault": hex.EncodeToString(e.Vault[:]),
		"votes": uintToString(uint64(e.Votes)),
	}
}

// FreezeVote records an individual ballot vote, including switches.
type FreezeVote struct {
	Vault    [32]byte
	Guardian [20]byte
	Choice   string
}

func (FreezeVote) EventType() string { return TypeFreezeVote }

func (e FreezeVote) Attributes() map[string]string {
	return map[string]string{
		"vault":    hex.EncodeToString(e.Vault[:]),
		"guardian": addr(e.Guardian),
		"choice":   e.Choice,
	}
}

// SessionCreated is emitted when the owner opens a spending session.
type SessionCreated struct {
	Vault            [32]byte
	SessionID        string
	TotalApproved    *big.Int
	ExpiresAt        int64
	RequiresApproval bool
}

func (SessionCreated) EventType() string { return TypeSessionCreated }

func (e SessionCreated) Attributes() map[string]string {
	return map[string]string{
		"vault":            hex.EncodeToString(e.Vault[:]),
		"sessionId":        e.SessionID,
		"totalApproved":    formatAmount(e.TotalApproved),
		"expiresAt":        intToString(e.ExpiresAt),
		"requiresApproval": strconv.FormatBool(e.RequiresApproval),
	}
}

// SessionApproved is emitted per guardian approval of a pending session.
type SessionApproved struct {
	Vault     [32]byte
	SessionID string
	Guardian  [20]byte
	Approvals uint32
}

func (SessionApproved) EventType() string { return TypeSessionApproved }

func (e SessionApproved) Attributes() map[string]string {
	return map[string]string{
		"vault":     hex.EncodeToString(e.Vault[:]),
		"sessionId": e.SessionID,
		"guardian":  addr(e.Guardian),
		"approvals": uintToString(uint64(e.Approvals)),
	}
}

// SessionSpend is emitted for every successful spend against a session budget.
type SessionSpend struct {
	Vault      [32]byte
	SessionID  string
	Token      string
	Amount     *big.Int
	Recipient  [20]byte
	TotalSpent *big.Int
}

func (SessionSpend) EventType() string { return TypeSessionSpend }

func (e SessionSpend) Attributes() map[string]string {
	return map[string]string{
		"vault":      hex.EncodeToString(e.Vault[:]),
		"sessionId":  e.SessionID,
		"token":      e.Token,
		"amount":     formatAmount(e.Amount),
		"recipient":  addr(e.Recipient),
		"totalSpent": formatAmount(e.TotalSpent),
	}
}

// SessionClosed is emitted when a session is deactivated, expires, or exhausts
// its budget.
type SessionClosed struct {
	Vault     [32]byte
	SessionID string
	Reason    string
}

func (SessionClosed) EventType() string { return TypeSessionClosed }

func (e SessionClosed) Attributes() map[string]string {
	return map[string]string{
		"vault":     hex.EncodeToString(e.Vault[:]),
		"sessionId": e.SessionID,
		"reason":    e.Reason,
	}
}

// RageQuitRequested is emitted when the owner starts the rage-quit clock.
type RageQuitRequested struct {
	Vault       [32]byte
	RequestedAt int64
	UnlocksAt   int64
}

func (RageQuitRequested) EventType() string { return TypeRageQuitRequested }

func (e RageQuitRequested) Attributes() map[string]string {
	return map[string]string{
		"vault":       hex.EncodeToString(e.Vault[:]),
		"requestedAt": intToString(e.RequestedAt),
		"unlocksAt":   intToString(e.UnlocksAt),
	}
}

// RageQuitCancelled is emitted when the owner abandons a pending rage-quit.
type RageQuitCancelled struct {
	Vault [32]byte
}

func (RageQuitCancelled) EventType() string { return TypeRageQuitCancelled }

func (e RageQuitCancelled) Attributes() map[string]string {
	return map[string]string{
		"vault": hex.EncodeToString(e.Vault[:]),
	}
}

// RageQuitExecuted is emitted when a matured rage-quit drains a token balance
// to the owner.
type RageQuitExecuted struct {
	Vault  [32]byte
	Token  string
	Amount *big.Int
	Owner  [20]byte
}

func (RageQuitExecuted) EventType() string { return TypeRageQuitExecuted }

func (e RageQuitExecuted) Attributes() map[string]string {
	return map[string]string{
		"vault":  hex.EncodeToString(e.Vault[:]),
		"token":  e.Token,
		"amount": formatAmount(e.Amount),
		"owner":  addr(e.Owner),
	}
}
