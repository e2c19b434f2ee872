package session

import (
	"context"
	"errors"
	"strings"
)

// ErrNoSession means no operator is signed in at this station.
var ErrNoSession = errors.New("no operator session")

// Store holds the signed-in operator's brand for a station.
type Store interface {
	Brand(ctx context.Context) (string, error)
	SignIn(ctx context.Context, brand string) error
	SignOut(ctx context.Context) error
	Close() error
}

func normalizeBrand(brand string) (string, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return "", errors.New("brand is required")
	}
	return brand, nil
}
