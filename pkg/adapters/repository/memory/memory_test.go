package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitipat21/linkly/pkg/adapters/repository/memory"
	"github.com/nitipat21/linkly/pkg/core/domain"
)

func newLink(code string, owner *string) *domain.Link {
	return &domain.Link{
		OriginalURL:   "https://example.com",
		ShortCode:     code,
		OwnerID:       owner,
		CreatorOrigin: "1.2.3.4",
		IsActive:      true,
		CreatedAt:     time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }

func TestCreate_AssignsIDAndRejectsDuplicates(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	link := newLink("abc", nil)
	require.NoError(t, repo.Create(ctx, link))
	assert.NotZero(t, link.ID)

	dup := newLink("abc", nil)
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrCodeExists)
}

func TestFindByCode_ReturnsACopy(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("abc", nil)))

	first, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	first.OriginalURL = "https://tampered.example"

	second, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", second.OriginalURL)

	_, err = repo.FindByCode(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCountByOrigin_CountsGuestLinksOnly(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("g1", nil)))
	require.NoError(t, repo.Create(ctx, newLink("g2", nil)))
	require.NoError(t, repo.Create(ctx, newLink("owned", strPtr("user-1"))))

	other := newLink("g3", nil)
	other.CreatorOrigin = "5.6.7.8"
	require.NoError(t, repo.Create(ctx, other))

	count, err := repo.CountByOrigin(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpdate_CodeChange(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	link := newLink("abc", strPtr("user-1"))
	require.NoError(t, repo.Create(ctx, link))
	require.NoError(t, repo.Create(ctx, newLink("taken", nil)))

	link.ShortCode = "taken"
	assert.ErrorIs(t, repo.Update(ctx, link), domain.ErrCodeExists)

	link.ShortCode = "fresh"
	require.NoError(t, repo.Update(ctx, link))

	_, err := repo.FindByCode(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	found, err := repo.FindByCode(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, link.ID, found.ID)
}

func TestUpdate_DoesNotOverwriteConcurrentClick(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newLink("abc", strPtr("user-1"))))

	// A click lands between the caller's read and its write-back.
	stale, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, repo.RegisterClick(ctx, "abc", now))

	stale.OriginalURL = "https://updated.example"
	require.NoError(t, repo.Update(ctx, stale))

	link, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://updated.example", link.OriginalURL)
	assert.Equal(t, int64(1), link.ClickCount, "click registered between read and update must survive")
}

func TestUpdate_DoesNotResurrectDeactivatedLink(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("abc", strPtr("user-1"))))

	stale, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, "abc"))

	stale.OriginalURL = "https://updated.example"
	require.NoError(t, repo.Update(ctx, stale))

	link, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, link.IsActive, "deactivation concurrent with an update must stick")
}

func TestUpdate_UnknownID(t *testing.T) {
	repo := memory.NewRepository()

	ghost := newLink("ghost", nil)
	ghost.ID = 999
	assert.ErrorIs(t, repo.Update(context.Background(), ghost), domain.ErrNotFound)
}

func TestDeactivate(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("abc", nil)))

	require.NoError(t, repo.Deactivate(ctx, "abc"))
	require.NoError(t, repo.Deactivate(ctx, "abc"), "deactivate is idempotent")

	link, err := repo.FindByCode(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, link.IsActive)

	assert.ErrorIs(t, repo.Deactivate(ctx, "missing"), domain.ErrNotFound)
}

func TestDeleteOwned(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("abc", strPtr("user-1"))))
	require.NoError(t, repo.Create(ctx, newLink("guest", nil)))

	assert.ErrorIs(t, repo.DeleteOwned(ctx, "missing", "user-1"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteOwned(ctx, "abc", "user-2"), domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteOwned(ctx, "guest", "user-1"), domain.ErrNotFound)

	require.NoError(t, repo.DeleteOwned(ctx, "abc", "user-1"))
	_, err := repo.FindByCode(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterClick_Conditions(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	active := newLink("active", nil)
	require.NoError(t, repo.Create(ctx, active))

	inactive := newLink("inactive", nil)
	inactive.IsActive = false
	require.NoError(t, repo.Create(ctx, inactive))

	past := now.Add(-time.Hour)
	expired := newLink("expired", nil)
	expired.ExpiresAt = &past
	require.NoError(t, repo.Create(ctx, expired))

	for _, code := range []string{"active", "inactive", "expired", "missing"} {
		require.NoError(t, repo.RegisterClick(ctx, code, now))
	}

	link, _ := repo.FindByCode(ctx, "active")
	assert.Equal(t, int64(1), link.ClickCount)
	link, _ = repo.FindByCode(ctx, "inactive")
	assert.Equal(t, int64(0), link.ClickCount)
	link, _ = repo.FindByCode(ctx, "expired")
	assert.Equal(t, int64(0), link.ClickCount)
}

func TestListByOwner_NewestFirst(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, code := range []string{"one", "two", "three"} {
		link := newLink(code, strPtr("user-1"))
		link.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, link))
	}
	require.NoError(t, repo.Create(ctx, newLink("foreign", strPtr("user-2"))))

	links, err := repo.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "three", links[0].ShortCode)
	assert.Equal(t, "two", links[1].ShortCode)
	assert.Equal(t, "one", links[2].ShortCode)
}

func TestUsers(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()

	user := &domain.User{ID: "id-1", Name: "Alice", Email: "alice@example.com"}
	require.NoError(t, repo.CreateUser(ctx, user))

	dup := &domain.User{ID: "id-2", Name: "Other", Email: "alice@example.com"}
	assert.ErrorIs(t, repo.CreateUser(ctx, dup), domain.ErrEmailExists)

	byEmail, err := repo.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", byEmail.ID)

	byID, err := repo.FindUserByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	_, err = repo.FindUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindUserByID(ctx, "id-9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	repo := memory.NewRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, repo.Create(ctx, newLink("abc", nil)))
	_, err := repo.FindByCode(ctx, "abc")
	assert.Error(t, err)
}
