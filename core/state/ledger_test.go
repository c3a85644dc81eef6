package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"guardvault/native/vault"
	"guardvault/storage"
)

func TestLedgerCreditDebit(t *testing.T) {
	ledger := NewLedgerStore(storage.NewMemDB())
	vaultID := [32]byte{0x01}

	balance, err := ledger.Balance(vaultID, "GVT")
	require.NoError(t, err)
	require.Zero(t, balance.Sign())

	require.NoError(t, ledger.Credit(vaultID, "GVT", big.NewInt(1000)))
	require.NoError(t, ledger.Credit(vaultID, "GVT", big.NewInt(500)))

	balance, err = ledger.Balance(vaultID, "GVT")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(1500).Cmp(balance))

	require.NoError(t, ledger.Debit(vaultID, "GVT", big.NewInt(400)))
	balance, err = ledger.Balance(vaultID, "GVT")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(1100).Cmp(balance))
}

func TestLedgerDebitInsufficient(t *testing.T) {
	ledger := NewLedgerStore(storage.NewMemDB())
	vaultID := [32]byte{0x01}
	require.NoError(t, ledger.Credit(vaultID, "GVT", big.NewInt(100)))

	err := ledger.Debit(vaultID, "GVT", big.NewInt(101))
	require.ErrorIs(t, err, vault.ErrInsufficientBalance)

	// The failed debit must not change the balance.
	balance, err := ledger.Balance(vaultID, "GVT")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(100).Cmp(balance))
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ledger := NewLedgerStore(storage.NewMemDB())
	vaultID := [32]byte{0x01}

	require.ErrorIs(t, ledger.Credit(vaultID, "GVT", nil), vault.ErrZeroAmount)
	require.ErrorIs(t, ledger.Credit(vaultID, "GVT", big.NewInt(0)), vault.ErrZeroAmount)
	require.ErrorIs(t, ledger.Debit(vaultID, "GVT", big.NewInt(-5)), vault.ErrZeroAmount)
}

func TestLedgerIsolatesTokensAndVaults(t *testing.T) {
	ledger := NewLedgerStore(storage.NewMemDB())
	vaultA := [32]byte{0x0A}
	vaultB := [32]byte{0x0B}

	require.NoError(t, ledger.Credit(vaultA, "GVT", big.NewInt(100)))
	require.NoError(t, ledger.Credit(vaultA, "usdx", big.NewInt(200)))
	require.NoError(t, ledger.Credit(vaultB, "GVT", big.NewInt(300)))

	balance, err := ledger.Balance(vaultA, "GVT")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(100).Cmp(balance))

	// Token symbols are canonicalized, so casing does not split balances.
	balance, err = ledger.Balance(vaultA, "USDX")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(200).Cmp(balance))

	balance, err = ledger.Balance(vaultB, "GVT")
	require.NoError(t, err)
	require.Zero(t, big.NewInt(300).Cmp(balance))
}
