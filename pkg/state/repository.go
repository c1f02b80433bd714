package state

import (
	"context"
	"errors"

	"github.com/bft-labs/sigresume/pkg/checkpoint"
)

// ErrNoState is returned by Load when nothing has been saved.
var ErrNoState = errors.New("state: no saved checkpoint")

// Repository stores one encoded checkpoint.
type Repository interface {
	// Load returns the last saved string, or ErrNoState.
	Load(ctx context.Context) (string, error)

	// Save replaces the stored string atomically.
	Save(ctx context.Context, encoded string) error

	// Clear removes the stored string. Clearing an empty repository is not an error.
	Clear(ctx context.Context) error
}

// LoadToken loads and decodes the saved checkpoint. ok is false when nothing
// was saved. A string that does not decode yields a
// *checkpoint.InvalidStateError, which callers treat as "no valid resume point".
func LoadToken(ctx context.Context, repo Repository, codec *checkpoint.Codec) (tok checkpoint.Token, ok bool, err error) {
	encoded, err := repo.Load(ctx)
	if errors.Is(err, ErrNoState) {
		return checkpoint.Token{}, false, nil
	}
	if err != nil {
		return checkpoint.Token{}, false, err
	}

	tok, err = codec.Decode(encoded)
	if err != nil {
		return checkpoint.Token{}, false, err
	}
	return tok, true, nil
}
