// Package preparer turns validated plaintext inputs into stored input records
// and handles, the shape contracts consume in place of plaintext.
//
// Encryption itself happens outside this service; the record produced here is
// what the external encryption routine is given.
package preparer

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/luxfi/geth/crypto"
	"go.uber.org/zap"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/storage"
)

// InputRequest asks for an input bound to Contract and User.
// Value may be any form fhevm.ToBigInt accepts; Type defaults to the
// validator's default tag.
type InputRequest struct {
	Contract string `json:"contract"`
	User     string `json:"user"`
	Value    any    `json:"value"`
	Type     string `json:"type,omitempty"`
}

// EncryptedInput is what a dApp passes to the contract call.
type EncryptedInput struct {
	Handle     storage.Handle `json:"handle"`
	Type       fhevm.TypeTag  `json:"type"`
	InputProof string         `json:"inputProof"`
}

// Preparer validates inputs and stores their records.
type Preparer struct {
	validator *fhevm.Validator
	store     storage.Storage
	log       *zap.Logger
	rand      io.Reader
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithRand overrides the nonce source.
func WithRand(r io.Reader) Option {
	return func(p *Preparer) {
		p.rand = r
	}
}

// New creates a Preparer.
func New(validator *fhevm.Validator, store storage.Storage, log *zap.Logger, opts ...Option) *Preparer {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Preparer{
		validator: validator,
		store:     store,
		log:       log,
		rand:      rand.Reader,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validator returns the validator inputs are checked with.
func (p *Preparer) Validator() *fhevm.Validator {
	return p.validator
}

// Prepare validates req and stores its record. Validation failures are
// returned as the typed fhevm errors, unwrapped, so callers can show the
// message as is.
func (p *Preparer) Prepare(ctx context.Context, req InputRequest) (*EncryptedInput, error) {
	contract, err := fhevm.ParseAddress(req.Contract)
	if err != nil {
		return nil, err
	}
	user, err := fhevm.ParseAddress(req.User)
	if err != nil {
		return nil, err
	}

	tag := p.validator.DefaultTag()
	if req.Type != "" {
		if tag, err = fhevm.ParseTypeTag(req.Type); err != nil {
			return nil, err
		}
	}

	value, err := p.validator.NewBoundedValue(req.Value, tag)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Tag:      value.Tag(),
		Contract: contract,
		User:     user,
		Value:    value.Bytes32(),
	}
	if _, err := io.ReadFull(p.rand, rec.Nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	data, err := rec.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	handle, err := p.store.Store(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("store record: %w", err)
	}

	p.log.Debug("prepared input",
		zap.String("handle", string(handle)),
		zap.Stringer("type", value.Tag()),
		zap.String("contract", contract.Hex()),
		zap.String("user", user.Hex()),
	)

	return &EncryptedInput{
		Handle:     handle,
		Type:       value.Tag(),
		InputProof: inputProof(handle, rec),
	}, nil
}

// Load returns the record stored under handle.
func (p *Preparer) Load(ctx context.Context, handle storage.Handle) (*Record, error) {
	data, err := p.store.Load(ctx, handle)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := rec.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &rec, nil
}

// inputProof binds the handle to its contract and user. It stands in for the
// zero-knowledge proof the external encryption library attaches.
func inputProof(handle storage.Handle, rec *Record) string {
	h := crypto.Keccak256Hash([]byte(handle), rec.Contract.Bytes(), rec.User.Bytes())
	return h.Hex()
}
