package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/nitipat21/linkly/pkg/core/domain"
	"github.com/nitipat21/linkly/pkg/idgen"
	"github.com/nitipat21/linkly/pkg/ports"
)

// maxGenerateAttempts bounds the collision retry loop for generated codes.
const maxGenerateAttempts = 5

// ErrGenerateExhausted is returned when every generated code collided.
var ErrGenerateExhausted = errors.New("failed to generate a unique short code")

var (
	schemeRE     = regexp.MustCompile(`(?i)^https?://`)
	customCodeRE = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

type LinkService struct {
	repo       ports.LinkRepository
	gen        idgen.Generator
	clock      domain.Clock
	guestLimit int64
}

func NewLinkService(repo ports.LinkRepository, gen idgen.Generator, guestLimit int) *LinkService {
	return &LinkService{
		repo:       repo,
		gen:        gen,
		clock:      domain.RealClock{},
		guestLimit: int64(guestLimit),
	}
}

// WithClock replaces the service clock, for tests.
func (s *LinkService) WithClock(clock domain.Clock) *LinkService {
	s.clock = clock
	return s
}

// Create shortens a URL. Anonymous requests are subject to the per-origin
// guest quota; custom codes get a single attempt, generated codes retry on
// collision. Uniqueness is settled by the repository insert, so two
// concurrent creations of the same code cannot both succeed.
func (s *LinkService) Create(ctx context.Context, in ports.CreateLinkInput) (*domain.Link, error) {
	if in.URL == "" {
		return nil, domain.NewValidationError("url is required")
	}
	originalURL := normalizeURL(in.URL)

	if in.Requester == nil {
		count, err := s.repo.CountByOrigin(ctx, in.Origin)
		if err != nil {
			return nil, fmt.Errorf("counting guest links: %w", err)
		}
		if count >= s.guestLimit {
			return nil, domain.ErrQuotaExceeded
		}
	}

	link := &domain.Link{
		OriginalURL:   originalURL,
		OwnerID:       in.Requester,
		CreatorOrigin: in.Origin,
		ExpiresAt:     in.ExpiresAt,
		IsActive:      true,
		CreatedAt:     s.clock.Now(),
	}

	if in.CustomCode != "" {
		link.ShortCode = in.CustomCode
		if err := s.repo.Create(ctx, link); err != nil {
			return nil, err
		}
		return link, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := s.gen.Generate()
		if err != nil {
			return nil, fmt.Errorf("generating short code: %w", err)
		}
		link.ShortCode = code

		err = s.repo.Create(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, domain.ErrCodeExists) {
			continue // collision, retry with a fresh code
		}
		return nil, err
	}

	return nil, ErrGenerateExhausted
}

// Resolve returns the destination URL for a code. Resolution order: unknown
// code, deactivated, expired, success. Only a successful resolution counts
// a click, and the increment itself is atomic at the storage layer.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}

	if !link.IsActive {
		return "", domain.ErrDeactivated
	}
	if link.IsExpired(s.clock.Now()) {
		return "", domain.ErrExpired
	}

	if err := s.repo.RegisterClick(ctx, code, s.clock.Now()); err != nil {
		return "", fmt.Errorf("registering click: %w", err)
	}

	return link.OriginalURL, nil
}

// Update applies a partial update to an owned link. The new short code must
// match [A-Za-z0-9-]+ and be free; expiry can be set, cleared, or left
// alone depending on the patch.
func (s *LinkService) Update(ctx context.Context, code string, patch domain.LinkPatch, requester string) (*domain.Link, error) {
	if patch.Empty() {
		return nil, domain.NewValidationError("at least one of url, custom_code or expires_at is required")
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.OwnedBy(requester) {
		return nil, domain.ErrForbidden
	}

	if patch.OriginalURL != nil {
		if *patch.OriginalURL == "" {
			return nil, domain.NewValidationError("url cannot be empty")
		}
		link.OriginalURL = normalizeURL(*patch.OriginalURL)
	}
	if patch.ShortCode != nil {
		if !customCodeRE.MatchString(*patch.ShortCode) {
			return nil, domain.NewValidationError("custom code may only contain letters, numbers and hyphens")
		}
		link.ShortCode = *patch.ShortCode
	}
	if patch.ClearExpiry {
		link.ExpiresAt = nil
	} else if patch.ExpiresAt != nil {
		link.ExpiresAt = patch.ExpiresAt
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Deactivate disables a link so it no longer resolves. Idempotent.
func (s *LinkService) Deactivate(ctx context.Context, code string) error {
	return s.repo.Deactivate(ctx, code)
}

// Delete removes a link the requester owns. An unknown code and a code
// owned by somebody else report the same not-found outcome.
func (s *LinkService) Delete(ctx context.Context, code, requester string) error {
	return s.repo.DeleteOwned(ctx, code, requester)
}

// Stats returns the full record for the requester's own link.
func (s *LinkService) Stats(ctx context.Context, code, requester string) (*domain.Link, error) {
	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.OwnedBy(requester) {
		return nil, domain.ErrForbidden
	}
	return link, nil
}

// ListByOwner returns the requester's links, newest first.
func (s *LinkService) ListByOwner(ctx context.Context, requester string) ([]domain.Link, error) {
	return s.repo.ListByOwner(ctx, requester)
}

// normalizeURL prepends https:// when the URL carries no http(s) scheme.
func normalizeURL(raw string) string {
	if !schemeRE.MatchString(raw) {
		return "https://" + raw
	}
	return raw
}
