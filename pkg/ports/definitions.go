package ports

import (
	"context"
	"time"

	"github.com/nitipat21/linkly/pkg/core/domain"
)

// LinkRepository defines storage operations for links.
// Uniqueness of short codes and click counting are enforced at this layer
// (unique index plus atomic increment), never by check-then-act above it.
type LinkRepository interface {
	// Create persists a new link. Returns domain.ErrCodeExists when the
	// short code is already taken.
	Create(ctx context.Context, link *domain.Link) error

	// FindByCode returns the link for a short code, expired or not.
	// Returns domain.ErrNotFound when the code is unknown.
	FindByCode(ctx context.Context, code string) (*domain.Link, error)

	// CountByOrigin counts guest links (no owner) created from the origin.
	CountByOrigin(ctx context.Context, origin string) (int64, error)

	// Update writes originalUrl, shortCode and expiresAt of the record with
	// the given ID. ClickCount and IsActive are never written here, so
	// clicks and deactivations concurrent with an update are kept. Returns
	// domain.ErrCodeExists when the new short code collides with another
	// record.
	Update(ctx context.Context, link *domain.Link) error

	// Deactivate sets is_active to false. Idempotent; returns
	// domain.ErrNotFound when the code is unknown.
	Deactivate(ctx context.Context, code string) error

	// DeleteOwned removes the link only when both code and owner match.
	// A missing code and a non-matching owner are the same
	// domain.ErrNotFound, so existence never leaks to non-owners.
	DeleteOwned(ctx context.Context, code, ownerID string) error

	// ListByOwner returns the owner's links, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error)

	// RegisterClick atomically increments the click counter of an active,
	// unexpired link. A link that misses those conditions is a no-op,
	// not an error.
	RegisterClick(ctx context.Context, code string, now time.Time) error

	// Dump returns every link, for export tooling.
	Dump(ctx context.Context) ([]domain.Link, error)
}

// UserRepository defines storage operations for accounts.
type UserRepository interface {
	// CreateUser persists a new user. Returns domain.ErrEmailExists when
	// the email is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// FindUserByEmail returns domain.ErrNotFound for unknown emails.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByID returns domain.ErrNotFound for unknown ids.
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Repository is the full storage surface a backend must provide.
type Repository interface {
	LinkRepository
	UserRepository
	Close() error
}

// CreateLinkInput carries a link creation request into the service.
// Requester is nil for anonymous (guest) requests.
type CreateLinkInput struct {
	URL        string
	CustomCode string
	ExpiresAt  *time.Time
	Requester  *string
	Origin     string
}

// LinkService defines the business logic operations for links.
type LinkService interface {
	Create(ctx context.Context, in CreateLinkInput) (*domain.Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	Update(ctx context.Context, code string, patch domain.LinkPatch, requester string) (*domain.Link, error)
	Deactivate(ctx context.Context, code string) error
	Delete(ctx context.Context, code, requester string) error
	Stats(ctx context.Context, code, requester string) (*domain.Link, error)
	ListByOwner(ctx context.Context, requester string) ([]domain.Link, error)
}

// UserService defines the business logic operations for accounts.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Profile(ctx context.Context, id string) (*domain.User, error)

	// FindOrCreateByEmail backs OAuth sign-in: the provider has already
	// verified the email.
	FindOrCreateByEmail(ctx context.Context, name, email string) (*domain.User, error)
}
