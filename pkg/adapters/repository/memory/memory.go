// Package memory provides a mutex-guarded in-memory repository, used by
// tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nitipat21/linkly/pkg/core/domain"
)

type Repository struct {
	mu           sync.RWMutex
	nextID       int64
	byCode       map[string]*domain.Link
	usersByID    map[string]*domain.User
	usersByEmail map[string]*domain.User
}

func NewRepository() *Repository {
	return &Repository{
		byCode:       make(map[string]*domain.Link),
		usersByID:    make(map[string]*domain.User),
		usersByEmail: make(map[string]*domain.User),
	}
}

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[link.ShortCode]; exists {
		return domain.ErrCodeExists
	}

	r.nextID++
	link.ID = r.nextID
	r.byCode[link.ShortCode] = link.Clone()
	return nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	link, exists := r.byCode[code]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return link.Clone(), nil
}

func (r *Repository) CountByOrigin(ctx context.Context, origin string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, link := range r.byCode {
		if link.OwnerID == nil && link.CreatorOrigin == origin {
			count++
		}
	}
	return count, nil
}

func (r *Repository) Update(ctx context.Context, link *domain.Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var current *domain.Link
	var currentCode string
	for code, l := range r.byCode {
		if l.ID == link.ID {
			current, currentCode = l, code
			break
		}
	}
	if current == nil {
		return domain.ErrNotFound
	}

	if link.ShortCode != currentCode {
		if _, taken := r.byCode[link.ShortCode]; taken {
			return domain.ErrCodeExists
		}
		delete(r.byCode, currentCode)
		r.byCode[link.ShortCode] = current
	}

	// Only the patchable columns are written. Clicks and active state keep
	// whatever value the stored record has, so a click or deactivation that
	// landed after the caller's read is not overwritten.
	current.OriginalURL = link.OriginalURL
	current.ShortCode = link.ShortCode
	if link.ExpiresAt != nil {
		exp := *link.ExpiresAt
		current.ExpiresAt = &exp
	} else {
		current.ExpiresAt = nil
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.byCode[code]
	if !exists {
		return domain.ErrNotFound
	}
	link.IsActive = false
	return nil
}

func (r *Repository) DeleteOwned(ctx context.Context, code, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.byCode[code]
	if !exists || !link.OwnedBy(ownerID) {
		return domain.ErrNotFound
	}
	delete(r.byCode, code)
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var links []domain.Link
	for _, link := range r.byCode {
		if link.OwnedBy(ownerID) {
			links = append(links, *link.Clone())
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].ID > links[j].ID
	})
	return links, nil
}

func (r *Repository) RegisterClick(ctx context.Context, code string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.byCode[code]
	if !exists || !link.IsActive || link.IsExpired(now) {
		return nil
	}
	link.ClickCount++
	return nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]domain.Link, 0, len(r.byCode))
	for _, link := range r.byCode {
		links = append(links, *link.Clone())
	}
	return links, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return domain.ErrEmailExists
	}
	u := *user
	r.usersByID[user.ID] = &u
	r.usersByEmail[user.Email] = &u
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByEmail[email]
	if !exists {
		return nil, domain.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.usersByID[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (r *Repository) Close() error {
	return nil
}
