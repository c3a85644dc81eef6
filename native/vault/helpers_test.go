package vault

import (
	"math/big"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"guardvault/core/events"
	"guardvault/crypto"
)

type mockState struct {
	vaults      map[[32]byte]*Vault
	withdrawals map[uint64]*QueuedWithdrawal
	sessions    map[string]*SpendingSession
	spends      []*SpendRecord
	nextQueueID uint64
}

func newMockState() *mockState {
	return &mockState{
		vaults:      make(map[[32]byte]*Vault),
		withdrawals: make(map[uint64]*QueuedWithdrawal),
		sessions:    make(map[string]*SpendingSession),
	}
}

func (m *mockState) VaultPut(v *Vault) error {
	m.vaults[v.ID] = v.Clone()
	return nil
}

func (m *mockState) VaultGet(id [32]byte) (*Vault, bool, error) {
	v, ok := m.vaults[id]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (m *mockState) QueuedWithdrawalPut(q *QueuedWithdrawal) error {
	m.withdrawals[q.ID] = q.Clone()
	return nil
}

func (m *mockState) QueuedWithdrawalGet(id uint64) (*QueuedWithdrawal, bool, error) {
	q, ok := m.withdrawals[id]
	if !ok {
		return nil, false, nil
	}
	return q.Clone(), true, nil
}

func (m *mockState) NextQueuedWithdrawalID() (uint64, error) {
	m.nextQueueID++
	return m.nextQueueID, nil
}

func (m *mockState) SessionPut(s *SpendingSession) error {
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *mockState) SessionGet(id string) (*SpendingSession, bool, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

func (m *mockState) SpendRecordAppend(r *SpendRecord) error {
	m.spends = append(m.spends, r)
	return nil
}

type mockRegistry struct {
	guardians map[[32]byte]map[[20]byte]bool
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{guardians: make(map[[32]byte]map[[20]byte]bool)}
}

func (m *mockRegistry) add(vaultID [32]byte, addr [20]byte) {
	if m.guardians[vaultID] == nil {
		m.guardians[vaultID] = make(map[[20]byte]bool)
	}
	m.guardians[vaultID][addr] = true
}

func (m *mockRegistry) IsGuardian(vaultID [32]byte, addr [20]byte) (bool, error) {
	return m.guardians[vaultID][addr], nil
}

func (m *mockRegistry) GuardianCount(vaultID [32]byte) (uint32, error) {
	return uint32(len(m.guardians[vaultID])), nil
}

type mockLedger struct {
	balances map[[32]byte]map[string]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[[32]byte]map[string]*big.Int)}
}

func (m *mockLedger) credit(vaultID [32]byte, token string, amount int64) {
	if m.balances[vaultID] == nil {
		m.balances[vaultID] = make(map[string]*big.Int)
	}
	current := m.balances[vaultID][token]
	if current == nil {
		current = big.NewInt(0)
	}
	m.balances[vaultID][token] = new(big.Int).Add(current, big.NewInt(amount))
}

func (m *mockLedger) Balance(vaultID [32]byte, token string) (*big.Int, error) {
	balance := m.balances[vaultID][token]
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

func (m *mockLedger) Debit(vaultID [32]byte, token string, amount *big.Int) error {
	balance := m.balances[vaultID][token]
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	m.balances[vaultID][token] = new(big.Int).Sub(balance, amount)
	return nil
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

type guardianKey struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newGuardianKey(t *testing.T) guardianKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return guardianKey{key: key, addr: key.PubKey().Address().Array()}
}

type testFixture struct {
	engine    *Engine
	state     *mockState
	registry  *mockRegistry
	ledger    *mockLedger
	emitter   *recordingEmitter
	vaultID   [32]byte
	owner     [20]byte
	guardians []guardianKey
	now       time.Time
}

// newTestFixture builds an engine with three registered guardians, a default
// quorum of two and a funded GVT balance.
func newTestFixture(t *testing.T, configure func(*Vault)) *testFixture {
	t.Helper()
	f := &testFixture{
		state:    newMockState(),
		registry: newMockRegistry(),
		ledger:   newMockLedger(),
		emitter:  &recordingEmitter{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	copy(f.vaultID[:], ethcrypto.Keccak256([]byte("test-vault")))
	f.owner = newGuardianKey(t).addr

	v := &Vault{
		ID:            f.vaultID,
		Owner:         f.owner,
		DefaultQuorum: 2,
		TimeLockDelay: 3600,
		RageQuitDelay: 30 * 24 * 3600,
	}
	if configure != nil {
		configure(v)
	}
	for i := 0; i < 3; i++ {
		g := newGuardianKey(t)
		f.guardians = append(f.guardians, g)
		f.registry.add(f.vaultID, g.addr)
	}
	f.ledger.credit(f.vaultID, "GVT", 1_000_000)

	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetRegistry(f.registry)
	f.engine.SetLedger(f.ledger)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() time.Time { return f.now })
	require.NoError(t, f.state.VaultPut(v))
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) intent(amount int64, nonce uint64) *WithdrawalIntent {
	recipient := [20]byte{0xEE}
	return &WithdrawalIntent{
		Vault:     f.vaultID,
		Token:     "GVT",
		Amount:    big.NewInt(amount),
		Recipient: recipient,
		Reason:    "test withdrawal",
		Nonce:     nonce,
	}
}

func (f *testFixture) sign(t *testing.T, in *WithdrawalIntent, guardians ...guardianKey) [][]byte {
	t.Helper()
	sigs := make([][]byte, 0, len(guardians))
	for _, g := range guardians {
		sig, err := SignIntent(g.key, in)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	return sigs
}

func (f *testFixture) vault(t *testing.T) *Vault {
	t.Helper()
	v, ok, err := f.state.VaultGet(f.vaultID)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}
