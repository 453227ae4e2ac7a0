package preparer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/luxfi/fhevm/internal/storage"
)

// ErrAccessDenied is returned when a decryption request names a contract or
// user other than the ones the input was bound to.
var ErrAccessDenied = errors.New("input not bound to requester")

// Decryptor resolves a stored input to its JSON plaintext.
type Decryptor interface {
	Decrypt(ctx context.Context, handle storage.Handle, rec *Record) (json.RawMessage, error)
}

// PlaceholderDecryptor stands in for the external decryption network. It
// logs the request and returns JSON null.
type PlaceholderDecryptor struct {
	log *zap.Logger
}

// NewPlaceholderDecryptor creates a PlaceholderDecryptor.
func NewPlaceholderDecryptor(log *zap.Logger) *PlaceholderDecryptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlaceholderDecryptor{log: log}
}

func (d *PlaceholderDecryptor) Decrypt(ctx context.Context, handle storage.Handle, rec *Record) (json.RawMessage, error) {
	d.log.Info("decryption requested",
		zap.String("handle", string(handle)),
		zap.Stringer("type", rec.Tag),
	)
	return json.RawMessage("null"), nil
}

// Authorize checks that contract and user match the record's binding.
func Authorize(rec *Record, contract, user string) error {
	if !strings.EqualFold(rec.Contract.Hex(), contract) {
		return fmt.Errorf("%w: contract %s", ErrAccessDenied, contract)
	}
	if !strings.EqualFold(rec.User.Hex(), user) {
		return fmt.Errorf("%w: user %s", ErrAccessDenied, user)
	}
	return nil
}
