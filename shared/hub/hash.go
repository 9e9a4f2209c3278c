package hub

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/zeebo/blake3"
)

// HashLength is the size of a message hash: BLAKE3 truncated to 160 bits.
const HashLength = 20

// HashData returns the content address of encoded MessageData.
func HashData(encoded []byte) []byte {
	sum := blake3.Sum256(encoded)
	return sum[:HashLength]
}

// Verify recomputes the hash of m.Data and checks the signer's signature over it.
func Verify(m *Message) error {
	encoded, err := Marshal(m.Data)
	if err != nil {
		return fmt.Errorf("failed to encode message data: %w", err)
	}
	if !bytes.Equal(HashData(encoded), m.Hash) {
		return ErrHashMismatch
	}
	if len(m.Signer) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: signer key is %d bytes", ErrBadSignature, len(m.Signer))
	}
	if !ed25519.Verify(ed25519.PublicKey(m.Signer), m.Hash, m.Signature) {
		return ErrBadSignature
	}
	return nil
}
