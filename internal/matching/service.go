// Package matching remembers how the owner prefers to name entries whose
// legacy descriptions are abbreviated ("ALUG EST" -> "Aluguel estúdio").
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

var ErrInvalidAlias = errors.New("invalid alias")

type Alias struct {
	OwnerID              uuid.UUID
	RawPattern           string
	PreferredDescription string
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching
type Repository interface {
	// FindMatch returns the preferred description of the longest pattern
	// contained in rawDescription, or "" when none matches.
	FindMatch(ctx context.Context, ownerID uuid.UUID, rawDescription string) (string, error)
	CreateAlias(ctx context.Context, alias Alias) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suggest returns the preferred description for raw, or "" if none is known.
func (s *Service) Suggest(ctx context.Context, ownerID uuid.UUID, raw string) (string, error) {
	preferred, err := s.repo.FindMatch(ctx, ownerID, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("finding alias: %w", err)
	}

	return preferred, nil
}

func (s *Service) Learn(ctx context.Context, alias Alias) error {
	alias.RawPattern = strings.TrimSpace(alias.RawPattern)
	alias.PreferredDescription = strings.TrimSpace(alias.PreferredDescription)

	if alias.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: owner is required", ErrInvalidAlias)
	}

	if alias.RawPattern == "" || alias.PreferredDescription == "" {
		return fmt.Errorf("%w: raw pattern and preferred description are required", ErrInvalidAlias)
	}

	if err := s.repo.CreateAlias(ctx, alias); err != nil {
		return fmt.Errorf("saving alias: %w", err)
	}

	return nil
}

// Rename rewrites the description of every row with a known alias in place
// and returns how many rows changed.
func (s *Service) Rename(ctx context.Context, ownerID uuid.UUID, rows []ledger.ImportRow) (int, error) {
	renamed := 0

	for i := range rows {
		preferred, err := s.Suggest(ctx, ownerID, rows[i].Description)
		if err != nil {
			return renamed, err
		}

		if preferred == "" || preferred == rows[i].Description {
			continue
		}

		rows[i].Description = preferred
		renamed++
	}

	return renamed, nil
}
