package profile

import (
	"context"
	"errors"

	"github.com/kindredkids/compass/core"
)

// ErrNotProvisioned means the token subject has no stored profile. This is an
// authorization failure, not an authentication failure.
var ErrNotProvisioned = errors.New("profile not provisioned")

type (
	Repository interface {
		GetProfileByID(ctx context.Context, id string) (Profile, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve maps a verified token subject to its stored profile.
func (svc *Service) Resolve(ctx context.Context, subject string) (Profile, error) {
	if subject == "" {
		return Profile{}, ErrNotProvisioned
	}
	prof, err := svc.repo.GetProfileByID(ctx, subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Profile{}, ErrNotProvisioned
		}
		return Profile{}, err
	}
	return prof, nil
}
