package hub

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/itchan-dev/caster/shared/clock"
	"github.com/itchan-dev/caster/shared/domain"
)

// FarcasterEpoch is the zero point of MessageData.Timestamp.
var FarcasterEpoch = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

// CastParams is everything a composer knows about the cast it wants to publish.
type CastParams struct {
	Text           string
	Fid            domain.Fid      `validate:"required"`
	Embeds         []domain.Embed  `validate:"dive"`
	ParentCastHash domain.CastHash
	ParentCastFid  domain.Fid      `validate:"required_with=ParentCastHash"`
	ParentURL      string          `validate:"omitempty,url"`
}

// Builder turns CastParams into signed messages.
type Builder struct {
	signer   ed25519.PrivateKey
	network  Network
	clock    clock.Clock
	validate *validator.Validate
}

// NewBuilder takes the signer as a hex-encoded 32 byte ed25519 seed.
func NewBuilder(signerSeedHex string, network Network, clk clock.Clock) (*Builder, error) {
	if signerSeedHex == "" {
		return nil, ErrMissingSigner
	}
	seed, err := hex.DecodeString(strings.TrimPrefix(signerSeedHex, "0x"))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: want %d hex encoded bytes", ErrMissingSigner, ed25519.SeedSize)
	}
	return &Builder{
		signer:   ed25519.NewKeyFromSeed(seed),
		network:  network,
		clock:    clk,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// SignerPublicKey is the key hubs will see in Message.Signer.
func (b *Builder) SignerPublicKey() ed25519.PublicKey {
	return b.signer.Public().(ed25519.PublicKey)
}

// Build validates params and returns a hashed, signed CastAdd message.
func (b *Builder) Build(params CastParams) (*Message, error) {
	if params.Fid == 0 {
		return nil, ErrMissingFid
	}
	if err := b.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	body := &CastAddBody{
		Text:      params.Text,
		Embeds:    params.Embeds,
		ParentURL: params.ParentURL,
	}
	if params.ParentCastHash != "" {
		hash, err := ParseCastHash(params.ParentCastHash)
		if err != nil {
			return nil, err
		}
		body.ParentCastId = &CastId{Fid: params.ParentCastFid, Hash: hash}
	}

	data := MessageData{
		Type:        MessageTypeCastAdd,
		Fid:         params.Fid,
		Timestamp:   b.timestamp(),
		Network:     b.network,
		CastAddBody: body,
	}
	encoded, err := Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message data: %w", err)
	}

	hash := HashData(encoded)
	return &Message{
		Data:            data,
		Hash:            hash,
		HashScheme:      HashSchemeBlake3,
		Signature:       ed25519.Sign(b.signer, hash),
		SignatureScheme: SignatureSchemeEd25519,
		Signer:          b.SignerPublicKey(),
	}, nil
}

func (b *Builder) timestamp() uint32 {
	seconds := b.clock.Now().Sub(FarcasterEpoch) / time.Second
	if seconds < 0 {
		return 0
	}
	return uint32(seconds)
}
