package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"guardvault/crypto"
)

func TestIntentDigestBindsEveryField(t *testing.T) {
	base := &WithdrawalIntent{
		Vault:     [32]byte{0x01},
		Token:     "GVT",
		Amount:    big.NewInt(500),
		Recipient: [20]byte{0xEE},
		Nonce:     7,
	}
	digest := IntentDigest(base)

	mutations := map[string]func(*WithdrawalIntent){
		"vault":     func(in *WithdrawalIntent) { in.Vault = [32]byte{0x02} },
		"token":     func(in *WithdrawalIntent) { in.Token = "OTHER" },
		"amount":    func(in *WithdrawalIntent) { in.Amount = big.NewInt(501) },
		"recipient": func(in *WithdrawalIntent) { in.Recipient = [20]byte{0xEF} },
		"nonce":     func(in *WithdrawalIntent) { in.Nonce = 8 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			clone := *base
			clone.Amount = new(big.Int).Set(base.Amount)
			mutate(&clone)
			require.NotEqual(t, digest, IntentDigest(&clone))
		})
	}

	// Token casing is canonicalized before hashing.
	clone := *base
	clone.Token = " gvt "
	require.Equal(t, digest, IntentDigest(&clone))
}

func TestSignAndRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	intent := &WithdrawalIntent{
		Vault:     [32]byte{0xAB},
		Token:     "GVT",
		Amount:    big.NewInt(123),
		Recipient: [20]byte{0xCD},
		Nonce:     1,
	}
	sig, err := SignIntent(key, intent)
	require.NoError(t, err)

	recovered, err := Secp256k1Recoverer{}.RecoverSigner(IntentDigest(intent), sig)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Array(), recovered)

	_, err = Secp256k1Recoverer{}.RecoverSigner(IntentDigest(intent), []byte{0x01})
	require.ErrorIs(t, err, ErrInvalidSignature)
}
