package vault

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"guardvault/core/events"
)

var (
	errNilState    = errors.New("vault engine: state not configured")
	errNilRegistry = errors.New("vault engine: guardian registry not configured")
	errNilLedger   = errors.New("vault engine: ledger not configured")
)

// engineState is the persistence surface the engine depends on. Implementations
// must return clones so the engine can mutate freely before writing back.
type engineState interface {
	VaultPut(*Vault) error
	VaultGet(id [32]byte) (*Vault, bool, error)
	QueuedWithdrawalPut(*QueuedWithdrawal) error
	QueuedWithdrawalGet(id uint64) (*QueuedWithdrawal, bool, error)
	NextQueuedWithdrawalID() (uint64, error)
	SessionPut(*SpendingSession) error
	SessionGet(id string) (*SpendingSession, bool, error)
	SpendRecordAppend(*SpendRecord) error
}

// GuardianRegistry is the external source of truth for guardian membership.
type GuardianRegistry interface {
	IsGuardian(vault [32]byte, addr [20]byte) (bool, error)
	GuardianCount(vault [32]byte) (uint32, error)
}

// Ledger is the external balance store. Debit must be atomic and return
// ErrInsufficientBalance when the vault cannot cover the amount.
type Ledger interface {
	Balance(vault [32]byte, token string) (*big.Int, error)
	Debit(vault [32]byte, token string, amount *big.Int) error
}

// Engine decides, for any proposed movement of funds, whether it is currently
// permitted. All operations against one vault are serialized behind a
// per-vault mutex; operations on different vaults proceed in parallel.
type Engine struct {
	state     engineState
	registry  GuardianRegistry
	ledger    Ledger
	recoverer SignerRecoverer
	emitter   events.Emitter
	nowFn     func() time.Time

	mu    sync.Mutex
	locks map[[32]byte]*sync.Mutex
}

// NewEngine constructs an engine with a no-op emitter and the secp256k1
// signature recoverer. State, registry and ledger must be configured before
// use.
func NewEngine() *Engine {
	return &Engine{
		recoverer: Secp256k1Recoverer{},
		emitter:   events.NoopEmitter{},
		nowFn:     func() time.Time { return time.Now().UTC() },
		locks:     make(map[[32]byte]*sync.Mutex),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetRegistry configures the guardian registry collaborator.
func (e *Engine) SetRegistry(registry GuardianRegistry) { e.registry = registry }

// SetLedger configures the balance ledger collaborator.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetRecoverer overrides the signature recoverer. Passing nil restores the
// secp256k1 default.
func (e *Engine) SetRecoverer(r SignerRecoverer) {
	if r == nil {
		e.recoverer = Secp256k1Recoverer{}
		return
	}
	e.recoverer = r
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() time.Time {
	if e == nil || e.nowFn == nil {
		return time.Now().UTC()
	}
	return e.nowFn()
}

// lockVault returns the mutex serializing all operations on a vault.
func (e *Engine) lockVault(id [32]byte) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[id] = lock
	}
	return lock
}

func (e *Engine) loadVault(id [32]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	v, ok, err := e.state.VaultGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVaultNotFound
	}
	return v, nil
}

func (e *Engine) storeVault(v *Vault) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.VaultPut(v)
}

func (e *Engine) ensureCollaborators() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.registry == nil {
		return errNilRegistry
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

// CreateVault initialises and persists a new vault aggregate. The identifier
// is derived by the caller (typically keccak of the owner plus a salt).
func (e *Engine) CreateVault(v *Vault) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if v == nil {
		return nil, ErrVaultNotFound
	}
	lock := e.lockVault(v.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok, err := e.state.VaultGet(v.ID); err != nil {
		return nil, err
	} else if ok {
		return nil, errors.New("vault: identifier already exists")
	}
	clone := v.Clone()
	if clone.CreatedAt == 0 {
		clone.CreatedAt = e.now().Unix()
	}
	if err := e.storeVault(clone); err != nil {
		return nil, err
	}
	return clone.Clone(), nil
}

// GetVault returns a copy of the stored vault.
func (e *Engine) GetVault(id [32]byte) (*Vault, error) {
	lock := e.lockVault(id)
	lock.Lock()
	defer lock.Unlock()
	return e.loadVault(id)
}

// Quorum resolves the required signature count and sensitivity for a
// prospective withdrawal without mutating anything.
func (e *Engine) Quorum(vaultID [32]byte, token string, amount *big.Int, now time.Time) (uint32, bool, error) {
	lock := e.lockVault(vaultID)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(vaultID)
	if err != nil {
		return 0, false, err
	}
	required, sensitive := ResolveQuorum(v, token, amount, now)
	return required, sensitive, nil
}

// Authorize verifies the intent against the supplied guardian signatures and,
// on success, consumes the vault nonce so the intent can never be replayed.
// Returns the distinct approver set that cleared quorum.
func (e *Engine) Authorize(intent *WithdrawalIntent, signatures [][]byte) ([][20]byte, error) {
	if err := e.ensureCollaborators(); err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrZeroAmount
	}
	lock := e.lockVault(intent.Vault)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(intent.Vault)
	if err != nil {
		return nil, err
	}
	approvers, err := e.authorizeLocked(v, intent, signatures)
	if err != nil {
		return nil, err
	}
	if err := e.storeVault(v); err != nil {
		return nil, err
	}
	e.emit(events.WithdrawalAuthorized{
		Vault:     v.ID,
		Token:     NormalizeToken(intent.Token),
		Amount:    cloneBigInt(intent.Amount),
		Recipient: intent.Recipient,
		Nonce:     intent.Nonce,
		Approvals: uint32(len(approvers)),
	})
	return approvers, nil
}

// authorizeLocked runs the verification pipeline against an already-loaded
// vault and increments the nonce on success. The caller holds the vault lock
// and is responsible for persisting the vault.
func (e *Engine) authorizeLocked(v *Vault, intent *WithdrawalIntent, signatures [][]byte) ([][20]byte, error) {
	if v.Frozen {
		return nil, ErrVaultFrozen
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if intent.Nonce != v.Nonce {
		return nil, ErrNonceMismatch
	}

	digest := IntentDigest(intent)
	seen := make(map[[20]byte]struct{}, len(signatures))
	approvers := make([][20]byte, 0, len(signatures))
	for _, sig := range signatures {
		signer, err := e.recoverer.RecoverSigner(digest, sig)
		if err != nil {
			// Malformed signatures are excluded, not fatal: garbage from a
			// naive caller must not block a legitimate quorum.
			continue
		}
		if _, dup := seen[signer]; dup {
			continue
		}
		ok, err := e.registry.IsGuardian(v.ID, signer)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		seen[signer] = struct{}{}
		approvers = append(approvers, signer)
	}

	required, _ := ResolveQuorum(v, intent.Token, intent.Amount, e.now())
	if uint32(len(approvers)) < required {
		return nil, ErrQuorumNotMet
	}

	// Single-use guarantee: the nonce is consumed before Ok is returned.
	v.Nonce++
	return approvers, nil
}

// QueueOrExecute authorizes the intent and then either settles it immediately
// against the ledger or, when the amount reaches the large-withdrawal
// threshold, defers it into the time-lock queue. The returned QueuedWithdrawal
// is nil when the withdrawal executed immediately.
func (e *Engine) QueueOrExecute(intent *WithdrawalIntent, signatures [][]byte) (*QueuedWithdrawal, error) {
	if err := e.ensureCollaborators(); err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, ErrZeroAmount
	}
	lock := e.lockVault(intent.Vault)
	lock.Lock()
	defer lock.Unlock()

	v, err := e.loadVault(intent.Vault)
	if err != nil {
		return nil, err
	}
	approvers, err := e.authorizeLocked(v, intent, signatures)
	if err != nil {
		return nil, err
	}

	now := e.now()
	threshold := v.LargeThreshold(intent.Token)
	if threshold == nil || intent.Amount.Cmp(threshold) < 0 {
		// Below the threshold the debit happens in the same serialized step as
		// the nonce consumption, so a ledger failure leaves the nonce intact.
		if err := e.ledger.Debit(v.ID, NormalizeToken(intent.Token), intent.Amount); err != nil {
			return nil, err
		}
		if err := e.storeVault(v); err != nil {
			return nil, err
		}
		e.emit(events.WithdrawalExecuted{
			Vault:     v.ID,
			Token:     NormalizeToken(intent.Token),
			Amount:    cloneBigInt(intent.Amount),
			Recipient: intent.Recipient,
		})
		return nil, nil
	}

	id, err := e.state.NextQueuedWithdrawalID()
	if err != nil {
		return nil, err
	}
	queued := &QueuedWithdrawal{
		ID:           id,
		Vault:        v.ID,
		Token:        NormalizeToken(intent.Token),
		Amount:       cloneBigInt(intent.Amount),
		Recipient:    intent.Recipient,
		Reason:       intent.Reason,
		CreatedAt:    now.Unix(),
		ReadyAt:      now.Unix() + v.TimeLockDelay,
		Approvers:    approvers,
		FreezeVoters: make(map[[20]byte]struct{}),
	}
	if err := e.state.QueuedWithdrawalPut(queued); err != nil {
		return nil, err
	}
	if err := e.storeVault(v); err != nil {
		return nil, err
	}
	e.emit(events.WithdrawalQueued{
		Vault:   v.ID,
		QueueID: queued.ID,
		Token:   queued.Token,
		Amount:  cloneBigInt(queued.Amount),
		ReadyAt: queued.ReadyAt,
	})
	return queued.Clone(), nil
}

func (e *Engine) loadQueued(id uint64) (*QueuedWithdrawal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	q, ok, err := e.state.QueuedWithdrawalGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWithdrawalNotFound
	}
	return q, nil
}

// ExecuteQueued settles a matured queued withdrawal against the ledger.
func (e *Engine) ExecuteQueued(id uint64) error {
	if err := e.ensureCollaborators(); err != nil {
		return err
	}
	q, err := e.loadQueued(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(q.Vault)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the vault lock; the first read only located the vault.
	q, err = e.loadQueued(id)
	if err != nil {
		return err
	}
	v, err := e.loadVault(q.Vault)
	if err != nil {
		return err
	}
	if v.Frozen {
		return ErrVaultFrozen
	}
	if q.Executed {
		return ErrAlreadyExecuted
	}
	if q.Cancelled {
		return ErrWithdrawalCancelled
	}
	if q.IsFrozen() {
		return ErrWithdrawalFrozen
	}
	if e.now().Unix() < q.ReadyAt {
		return ErrWithdrawalNotReady
	}
	if err := e.ledger.Debit(q.Vault, q.Token, q.Amount); err != nil {
		return err
	}
	q.Executed = true
	if err := e.state.QueuedWithdrawalPut(q); err != nil {
		return err
	}
	e.emit(events.WithdrawalExecuted{
		Vault:     q.Vault,
		Token:     q.Token,
		Amount:    cloneBigInt(q.Amount),
		Recipient: q.Recipient,
		QueueID:   q.ID,
	})
	return nil
}

// CancelQueued permanently cancels a queued withdrawal. Only the vault owner
// or a guardian whose signature was part of the original authorization may
// cancel. Cancelling an already-cancelled withdrawal is a no-op.
func (e *Engine) CancelQueued(id uint64, caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	q, err := e.loadQueued(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(q.Vault)
	lock.Lock()
	defer lock.Unlock()

	q, err = e.loadQueued(id)
	if err != nil {
		return err
	}
	if q.Cancelled {
		return nil
	}
	if q.Executed {
		return ErrAlreadyExecuted
	}
	v, err := e.loadVault(q.Vault)
	if err != nil {
		return err
	}
	if caller != v.Owner && !q.ApprovedBy(caller) {
		return ErrUnauthorizedGuardian
	}
	q.Cancelled = true
	if err := e.state.QueuedWithdrawalPut(q); err != nil {
		return err
	}
	e.emit(events.WithdrawalCancelled{Vault: q.Vault, QueueID: q.ID, Caller: caller})
	return nil
}

// FreezeQueued places a unilateral guardian brake on a queued withdrawal. Any
// current guardian may freeze, not only the original approvers.
func (e *Engine) FreezeQueued(id uint64, guardian [20]byte) error {
	if err := e.ensureCollaborators(); err != nil {
		return err
	}
	q, err := e.loadQueued(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(q.Vault)
	lock.Lock()
	defer lock.Unlock()

	q, err = e.loadQueued(id)
	if err != nil {
		return err
	}
	if q.Executed {
		return ErrAlreadyExecuted
	}
	if q.Cancelled {
		return ErrWithdrawalCancelled
	}
	ok, err := e.registry.IsGuardian(q.Vault, guardian)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAGuardian
	}
	if q.FreezeVoters == nil {
		q.FreezeVoters = make(map[[20]byte]struct{})
	}
	if _, dup := q.FreezeVoters[guardian]; dup {
		return ErrDuplicateVote
	}
	q.FreezeVoters[guardian] = struct{}{}
	if err := e.state.QueuedWithdrawalPut(q); err != nil {
		return err
	}
	e.emit(events.WithdrawalFrozen{Vault: q.Vault, QueueID: q.ID, Guardian: guardian, Freezes: len(q.FreezeVoters)})
	return nil
}

// UnfreezeQueued lifts one guardian's freeze. The withdrawal stays frozen
// until every guardian who froze it has individually unfrozen it.
func (e *Engine) UnfreezeQueued(id uint64, guardian [20]byte) error {
	if err := e.ensureCollaborators(); err != nil {
		return err
	}
	q, err := e.loadQueued(id)
	if err != nil {
		return err
	}
	lock := e.lockVault(q.Vault)
	lock.Lock()
	defer lock.Unlock()

	q, err = e.loadQueued(id)
	if err != nil {
		return err
	}
	ok, err := e.registry.IsGuardian(q.Vault, guardian)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAGuardian
	}
	if _, standing := q.FreezeVoters[guardian]; !standing {
		return ErrNoFreezeVote
	}
	delete(q.FreezeVoters, guardian)
	if err := e.state.QueuedWithdrawalPut(q); err != nil {
		return err
	}
	e.emit(events.WithdrawalUnfrozen{Vault: q.Vault, QueueID: q.ID, Guardian: guardian, Freezes: len(q.FreezeVoters)})
	return nil
}
