package vault

import "errors"

var (
	// ErrVaultNotFound indicates the referenced vault does not exist in state.
	ErrVaultNotFound = errors.New("vault: not found")
	// ErrWithdrawalNotFound indicates the referenced queue entry does not exist.
	ErrWithdrawalNotFound = errors.New("vault: queued withdrawal not found")
	// ErrSessionNotFound indicates the referenced spending session does not exist.
	ErrSessionNotFound = errors.New("vault: session not found")

	// ErrQuorumNotMet indicates the distinct valid guardian signatures fell short
	// of the resolved requirement.
	ErrQuorumNotMet = errors.New("vault: quorum not met")
	// ErrNonceMismatch indicates the intent nonce does not equal the vault's
	// current nonce; the intent is stale or replayed.
	ErrNonceMismatch = errors.New("vault: nonce mismatch")
	// ErrInvalidSignature indicates a signature could not be recovered. Individual
	// invalid signatures are skipped during counting; the sentinel surfaces only
	// where a single signature is being checked in isolation.
	ErrInvalidSignature = errors.New("vault: invalid signature")
	// ErrUnauthorizedGuardian indicates the caller is neither the owner nor an
	// authorized approver for the operation.
	ErrUnauthorizedGuardian = errors.New("vault: unauthorized caller")
	// ErrNotAGuardian indicates the caller is not a current guardian of the vault.
	ErrNotAGuardian = errors.New("vault: not a guardian")
	// ErrNotOwner indicates an owner-only operation was invoked by someone else.
	ErrNotOwner = errors.New("vault: caller is not the owner")

	// ErrVaultFrozen indicates the emergency freeze ballot has halted the vault.
	ErrVaultFrozen = errors.New("vault: frozen")
	// ErrWithdrawalFrozen indicates at least one guardian freeze is standing on
	// the queued withdrawal.
	ErrWithdrawalFrozen = errors.New("vault: withdrawal frozen")
	// ErrWithdrawalCancelled indicates the queued withdrawal was permanently
	// cancelled.
	ErrWithdrawalCancelled = errors.New("vault: withdrawal cancelled")
	// ErrWithdrawalNotReady indicates the time-lock maturation or rage-quit delay
	// has not elapsed.
	ErrWithdrawalNotReady = errors.New("vault: withdrawal not ready")
	// ErrAlreadyExecuted indicates the queued withdrawal already settled.
	ErrAlreadyExecuted = errors.New("vault: withdrawal already executed")
	// ErrDuplicateVote indicates the guardian already holds an identical
	// standing vote or freeze.
	ErrDuplicateVote = errors.New("vault: duplicate vote")
	// ErrNoFreezeVote indicates an unfreeze was attempted by a guardian with no
	// standing freeze on the withdrawal.
	ErrNoFreezeVote = errors.New("vault: no standing freeze vote")

	// ErrSessionExpired indicates a spend arrived after the session deadline.
	ErrSessionExpired = errors.New("vault: session expired")
	// ErrSessionInactive indicates the session was deactivated or exhausted.
	ErrSessionInactive = errors.New("vault: session inactive")
	// ErrSessionNotApproved indicates the session still awaits guardian
	// approvals before it becomes spendable.
	ErrSessionNotApproved = errors.New("vault: session not approved")
	// ErrRecipientNotAllowed indicates the recipient is outside the session
	// allow-list.
	ErrRecipientNotAllowed = errors.New("vault: recipient not allowed")
	// ErrBudgetExceeded indicates the spend would push totalSpent past
	// totalApproved.
	ErrBudgetExceeded = errors.New("vault: session budget exceeded")

	// ErrZeroAmount indicates a non-positive amount was supplied.
	ErrZeroAmount = errors.New("vault: amount must be positive")
	// ErrInvalidRecipient indicates a zero recipient address was supplied.
	ErrInvalidRecipient = errors.New("vault: invalid recipient")
	// ErrThresholdExceedsQuorum indicates a proposed emergency threshold above
	// the vault's base quorum.
	ErrThresholdExceedsQuorum = errors.New("vault: threshold exceeds quorum")
	// ErrThresholdExceedsGuardianCount indicates a proposed emergency threshold
	// above the number of registered guardians.
	ErrThresholdExceedsGuardianCount = errors.New("vault: threshold exceeds guardian count")

	// ErrInsufficientBalance is returned by the ledger collaborator and passed
	// through unchanged.
	ErrInsufficientBalance = errors.New("vault: insufficient balance")

	// ErrRageQuitNotRequested indicates execute/cancel was called with no
	// pending rage-quit.
	ErrRageQuitNotRequested = errors.New("vault: rage quit not requested")
)
