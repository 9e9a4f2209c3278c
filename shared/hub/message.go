// Package hub holds the protocol message a composer submits to a hub: the
// signed CastAdd envelope, its deterministic wire encoding and its content hash.
package hub

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/itchan-dev/caster/shared/domain"
)

type MessageType uint8

const (
	MessageTypeCastAdd MessageType = 1
)

type Network uint8

const (
	NetworkMainnet Network = 1
	NetworkTestnet Network = 2
	NetworkDevnet  Network = 3
)

// ParseNetwork maps a config name to a Network.
func ParseNetwork(name string) (Network, error) {
	switch strings.ToLower(name) {
	case "", "mainnet":
		return NetworkMainnet, nil
	case "testnet":
		return NetworkTestnet, nil
	case "devnet":
		return NetworkDevnet, nil
	}
	return 0, fmt.Errorf("unknown network %q", name)
}

type HashScheme uint8

const HashSchemeBlake3 HashScheme = 1

type SignatureScheme uint8

const SignatureSchemeEd25519 SignatureScheme = 1

// CastId points at an existing cast.
type CastId struct {
	Fid  domain.Fid `cbor:"1,keyasint"`
	Hash []byte     `cbor:"2,keyasint"`
}

type CastAddBody struct {
	Text         string         `cbor:"1,keyasint"`
	Embeds       []domain.Embed `cbor:"2,keyasint,omitempty"`
	ParentCastId *CastId        `cbor:"3,keyasint,omitempty"`
	ParentURL    string         `cbor:"4,keyasint,omitempty"`
}

// MessageData is the signed part of a message.
type MessageData struct {
	Type        MessageType  `cbor:"1,keyasint"`
	Fid         domain.Fid   `cbor:"2,keyasint"`
	Timestamp   uint32       `cbor:"3,keyasint"` // seconds since FarcasterEpoch
	Network     Network      `cbor:"4,keyasint"`
	CastAddBody *CastAddBody `cbor:"5,keyasint,omitempty"`
}

// Message is the envelope sent to and acknowledged by a hub.
type Message struct {
	Data            MessageData     `cbor:"1,keyasint"`
	Hash            []byte          `cbor:"2,keyasint"`
	HashScheme      HashScheme      `cbor:"3,keyasint"`
	Signature       []byte          `cbor:"4,keyasint"`
	SignatureScheme SignatureScheme `cbor:"5,keyasint"`
	Signer          []byte          `cbor:"6,keyasint"`
}

// HashHex is the cast id used in post links.
func (m *Message) HashHex() domain.CastHash {
	return hex.EncodeToString(m.Hash)
}

// ParseCastHash accepts a hex hash with or without a 0x prefix.
func ParseCastHash(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParentHash, err)
	}
	if len(b) != HashLength {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidParentHash, len(b), HashLength)
	}
	return b, nil
}
