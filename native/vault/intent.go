package vault

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"guardvault/crypto"
)

// intentDomainV1 separates intent digests from any other signed payload.
const intentDomainV1 = "guardvault.withdraw.v1"

// IntentDigest computes the keccak-256 digest guardians sign. The vault nonce
// is part of the preimage, so a signature is bound to a single use.
func IntentDigest(in *WithdrawalIntent) [32]byte {
	if in == nil {
		return [32]byte{}
	}
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], in.Nonce)
	amount := make([]byte, 32)
	if in.Amount != nil {
		in.Amount.FillBytes(amount)
	}
	hash := ethcrypto.Keccak256(
		[]byte(intentDomainV1),
		in.Vault[:],
		ethcrypto.Keccak256([]byte(NormalizeToken(in.Token))),
		amount,
		in.Recipient[:],
		nonce[:],
	)
	var out [32]byte
	copy(out[:], hash)
	return out
}

// SignIntent produces a guardian approval signature over the intent digest.
func SignIntent(key *crypto.PrivateKey, in *WithdrawalIntent) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidSignature
	}
	return key.Sign(IntentDigest(in))
}

// SignerRecoverer is the narrow signature-verification collaborator: given a
// digest and a candidate signature it returns the signer identity or a
// verification failure.
type SignerRecoverer interface {
	RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error)
}

// Secp256k1Recoverer recovers signers from 65-byte recoverable secp256k1
// signatures. It is the default SignerRecoverer.
type Secp256k1Recoverer struct{}

// RecoverSigner implements SignerRecoverer.
func (Secp256k1Recoverer) RecoverSigner(digest [32]byte, sig []byte) ([20]byte, error) {
	if len(sig) != 65 {
		return [20]byte{}, ErrInvalidSignature
	}
	addr, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		return [20]byte{}, ErrInvalidSignature
	}
	return addr, nil
}
