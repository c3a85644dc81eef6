package vault

import (
	"math/big"
	"time"

	"github.com/google/uuid"

	"guardvault/core/events"
)

// SessionParams describes a spending session the owner wants to open.
type SessionParams struct {
	Duration          time.Duration
	TotalApproved     *big.Int
	Purpose           string
	RequiresApproval  bool
	ApprovalsRequired uint32
	AllowedRecipients [][20]byte
}

// CreateSession opens a pre-approved spending envelope for the vault owner.
// Sessions that require guardian approval are not spendable until enough
// approvals have been recorded.
func (e *Engine) CreateSession(vaultID [32]byte, caller [20]byte, params SessionParams) (*SpendingSession, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if params.TotalApproved == nil || params.TotalApproved.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if params.Duration <= 0 {
		return nil, ErrSessionExpired
	}
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return nil, err
	}
	if caller != v.Owner {
		return nil, ErrNotOwner
	}
	now := e.now()
	session := &SpendingSession{
		ID:                uuid.NewString(),
		Vault:             v.ID,
		Initiator:         caller,
		Purpose:           params.Purpose,
		CreatedAt:         now.Unix(),
		ExpiresAt:         now.Add(params.Duration).Unix(),
		TotalApproved:     new(big.Int).Set(params.TotalApproved),
		TotalSpent:        big.NewInt(0),
		AllowedRecipients: append([][20]byte(nil), params.AllowedRecipients...),
		RequiresApproval:  params.RequiresApproval,
		ApprovalsRequired: params.ApprovalsRequired,
		Approvers:         make(map[[20]byte]struct{}),
		Active:            true,
	}
	if err := e.state.SessionPut(session); err != nil {
		return nil, err
	}
	e.emit(events.SessionCreated{
		Vault:            v.ID,
		SessionID:        session.ID,
		TotalApproved:    cloneBigInt(session.TotalApproved),
		ExpiresAt:        session.ExpiresAt,
		RequiresApproval: session.RequiresApproval,
	})
	return session.Clone(), nil
}

func (e *Engine) loadSession(id string) (*SpendingSession, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	s, ok, err := e.state.SessionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ApproveSession records one guardian approval towards making a session
// spendable. Duplicate approvals by the same guardian are rejected.
func (e *Engine) ApproveSession(id string, guardian [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	s, err := e.loadSession(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(s.Vault)
	lock.Lock()
	defer lock.Unlock()

	s, err = e.loadSession(id)
	if err != nil {
		return err
	}
	if !s.Active {
		return ErrSessionInactive
	}
	ok, err := e.registry.IsGuardian(s.Vault, guardian)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAGuardian
	}
	if s.Approvers == nil {
		s.Approvers = make(map[[20]byte]struct{})
	}
	if _, dup := s.Approvers[guardian]; dup {
		return ErrDuplicateVote
	}
	s.Approvers[guardian] = struct{}{}
	if err := e.state.SessionPut(s); err != nil {
		return err
	}
	e.emit(events.SessionApproved{
		Vault:     s.Vault,
		SessionID: s.ID,
		Guardian:  guardian,
		Approvals: uint32(len(s.Approvers)),
	})
	return nil
}

// Spend draws from the session budget without touching the nonce ledger or
// quorum resolver. The vault must be unfrozen; the session must be active,
// unexpired, approved, within its allow-list and within budget.
func (e *Engine) Spend(id string, token string, amount *big.Int, recipient [20]byte, reason string) (*SpendRecord, error) {
	if err := e.ensureCollaborators(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if recipient == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	s, err := e.loadSession(id)
	if err != nil {
		return nil, err
	}
	lock := e.lockVault(s.Vault)
	lock.Lock()
	defer lock.Unlock()

	s, err = e.loadSession(id)
	if err != nil {
		return nil, err
	}
	v, err := e.loadVault(s.Vault)
	if err != nil {
		return nil, err
	}
	if v.Frozen {
		return nil, ErrVaultFrozen
	}
	if !s.Active {
		return nil, ErrSessionInactive
	}
	now := e.now()
	if now.Unix() > s.ExpiresAt {
		return nil, ErrSessionExpired
	}
	if !s.Spendable() {
		return nil, ErrSessionNotApproved
	}
	if !s.AllowsRecipient(recipient) {
		return nil, ErrRecipientNotAllowed
	}
	spent := new(big.Int).Add(s.TotalSpent, amount)
	if spent.Cmp(s.TotalApproved) > 0 {
		return nil, ErrBudgetExceeded
	}
	normalized := NormalizeToken(token)
	if err := e.ledger.Debit(s.Vault, normalized, amount); err != nil {
		return nil, err
	}
	s.TotalSpent = spent
	exhausted := s.TotalSpent.Cmp(s.TotalApproved) >= 0
	if exhausted {
		s.Active = false
	}
	record := &SpendRecord{
		SessionID: s.ID,
		Vault:     s.Vault,
		Token:     normalized,
		Amount:    new(big.Int).Set(amount),
		Recipient: recipient,
		Reason:    reason,
		Timestamp: now.Unix(),
	}
	if err := e.state.SpendRecordAppend(record); err != nil {
		return nil, err
	}
	if err := e.state.SessionPut(s); err != nil {
		return nil, err
	}
	e.emit(events.SessionSpend{
		Vault:      s.Vault,
		SessionID:  s.ID,
		Token:      normalized,
		Amount:     cloneBigInt(amount),
		Recipient:  recipient,
		TotalSpent: cloneBigInt(s.TotalSpent),
	})
	if exhausted {
		e.emit(events.SessionClosed{Vault: s.Vault, SessionID: s.ID, Reason: "budget exhausted"})
	}
	return record, nil
}

// DeactivateSession permanently closes a session. Owner only; a deactivated
// session cannot be reactivated, only recreated.
func (e *Engine) DeactivateSession(id string, caller [20]byte, reason string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	s, err := e.loadSession(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(s.Vault)
	lock.Lock()
	defer lock.Unlock()

	s, err = e.loadSession(id)
	if err != nil {
		return err
	}
	v, err := e.loadVault(s.Vault)
	if err != nil {
		return err
	}
	if caller != v.Owner {
		return ErrNotOwner
	}
	if !s.Active {
		return ErrSessionInactive
	}
	s.Active = false
	if err := e.state.SessionPut(s); err != nil {
		return err
	}
	e.emit(events.SessionClosed{Vault: s.Vault, SessionID: s.ID, Reason: reason})
	return nil
}

// ExpireSession marks an elapsed session inactive. Anyone may invoke the
// transition once the deadline has passed.
func (e *Engine) ExpireSession(id string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	s, err := e.loadSession(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(s.Vault)
	lock.Lock()
	defer lock.Unlock()

	s, err = e.loadSession(id)
	if err != nil {
		return err
	}
	if !s.Active {
		return ErrSessionInactive
	}
	if e.now().Unix() <= s.ExpiresAt {
		return ErrWithdrawalNotReady
	}
	s.Active = false
	if err := e.state.SessionPut(s); err != nil {
		return err
	}
	e.emit(events.SessionClosed{Vault: s.Vault, SessionID: s.ID, Reason: "expired"})
	return nil
}
