package sol

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/realtoken-app/go-realtoken/service/persist"
	"golang.org/x/crypto/hkdf"
)

// Keypair is an ed25519 signing keypair whose public key doubles as a chain address
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// Address returns the base58 form of the keypair's public key
func (k Keypair) Address() persist.Address {
	return persist.Address(base58.Encode(k.pub))
}

// Sign signs a message with the keypair's private key
func (k Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// DeriveKeypair deterministically derives a keypair from seed material and a sequence
// number. The same inputs always yield the same keypair, so derived private material is
// never stored; it is recomputed on demand. Sequence number 0 is reserved for
// per-collection keys.
func DeriveKeypair(seedMaterial string, sequenceNumber int64) (Keypair, error) {
	info := fmt.Sprintf("mint:%d", sequenceNumber)
	r := hkdf.New(sha256.New, []byte(seedMaterial), nil, []byte(info))

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return Keypair{}, fmt.Errorf("error expanding keypair seed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// VerifySignature reports whether sig is a valid signature of message by the owner of addr
func VerifySignature(addr persist.Address, message []byte, sig []byte) bool {
	pub, err := base58.Decode(addr.String())
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}
