package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/nitipat21/linkly/pkg/core/domain"
)

type Repository struct {
	db *sql.DB
}

// NewRepository opens the database at dbURL, picking the libsql driver for
// remote Turso URLs and the local SQLite driver otherwise, and runs the
// migrations.
func NewRepository(dbURL string) (*Repository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		owner_id TEXT,
		creator_origin TEXT NOT NULL DEFAULT '',
		click_count INTEGER NOT NULL DEFAULT 0,
		expires_at DATETIME,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_links_short_code ON links(short_code);
	CREATE INDEX IF NOT EXISTS idx_links_owner_id ON links(owner_id);
	CREATE INDEX IF NOT EXISTS idx_links_creator_origin ON links(creator_origin);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (original_url, short_code, owner_id, creator_origin, expires_at, is_active, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		link.OriginalURL, link.ShortCode, link.OwnerID, link.CreatorOrigin,
		link.ExpiresAt, link.IsActive, link.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeExists
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT id, original_url, short_code, owner_id, creator_origin, click_count, expires_at, is_active, created_at
			  FROM links WHERE short_code = ?`

	link, err := scanLink(r.db.QueryRowContext(ctx, query, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (r *Repository) CountByOrigin(ctx context.Context, origin string) (int64, error) {
	query := `SELECT COUNT(*) FROM links WHERE creator_origin = ? AND owner_id IS NULL`

	var count int64
	err := r.db.QueryRowContext(ctx, query, origin).Scan(&count)
	return count, err
}

func (r *Repository) Update(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET original_url = ?, short_code = ?, expires_at = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, link.OriginalURL, link.ShortCode, link.ExpiresAt, link.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrCodeExists
		}
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, code string) error {
	query := `UPDATE links SET is_active = 0 WHERE short_code = ?`

	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteOwned(ctx context.Context, code, ownerID string) error {
	query := `DELETE FROM links WHERE short_code = ? AND owner_id = ?`

	res, err := r.db.ExecContext(ctx, query, code, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// Unknown code and wrong owner are deliberately the same outcome.
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	query := `SELECT id, original_url, short_code, owner_id, creator_origin, click_count, expires_at, is_active, created_at
			  FROM links WHERE owner_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLinks(rows)
}

// RegisterClick increments the counter only when the link is still active
// and unexpired, in a single UPDATE so concurrent redirects never lose
// increments.
func (r *Repository) RegisterClick(ctx context.Context, code string, now time.Time) error {
	query := `UPDATE links SET click_count = click_count + 1
			  WHERE short_code = ? AND is_active = 1 AND (expires_at IS NULL OR expires_at > ?)`

	_, err := r.db.ExecContext(ctx, query, code, now)
	return err
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	query := `SELECT id, original_url, short_code, owner_id, creator_origin, click_count, expires_at, is_active, created_at
			  FROM links ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLinks(rows)
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrEmailExists
	}
	return err
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var link domain.Link
	var ownerID sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&link.ID, &link.OriginalURL, &link.ShortCode, &ownerID, &link.CreatorOrigin,
		&link.ClickCount, &expiresAt, &link.IsActive, &link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ownerID.Valid {
		link.OwnerID = &ownerID.String
	}
	if expiresAt.Valid {
		link.ExpiresAt = &expiresAt.Time
	}
	return &link, nil
}

func collectLinks(rows *sql.Rows) ([]domain.Link, error) {
	var links []domain.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// isUniqueViolation detects unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}
