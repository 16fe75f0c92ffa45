// Package portfolio persists the shots a user chose to keep.
package portfolio

import (
	"context"
	"errors"
	"strings"

	"ai-dslr-studio/internal/photoshoot"
)

var ErrInvalidShot = errors.New("invalid portfolio entry")

// Store keeps an ordered, de-duplicated list of shots per owner. Add never
// overwrites an entry that already has the same ID.
type Store interface {
	List(ctx context.Context, owner string) ([]photoshoot.Shot, error)
	Add(ctx context.Context, owner string, shot photoshoot.Shot) (bool, error)
	Remove(ctx context.Context, owner string, id string) (bool, error)
}

func validateOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.Join(ErrInvalidShot, errors.New("owner is required"))
	}
	return owner, nil
}

func validateShot(shot photoshoot.Shot) error {
	switch {
	case strings.TrimSpace(shot.ID) == "":
		return errors.Join(ErrInvalidShot, errors.New("shot id is required"))
	case strings.TrimSpace(shot.URL) == "":
		return errors.Join(ErrInvalidShot, errors.New("shot url is required"))
	}
	return nil
}
