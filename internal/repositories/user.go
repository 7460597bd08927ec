package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

const userColumns = `id, username, email, email_verified, notify,
	notify_album, notify_single, notify_ep, notify_live, notify_compilation, notify_remix, notify_other,
	created_at`

// UserRepository implements [models.Repository] for [models.User] persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new [UserRepository] with the given database handle
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with a generated ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.ID = shared.GenerateID()
	types := user.Prefs.Types

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		boolInt(user.EmailVerified),
		boolInt(user.Prefs.Notify),
		boolInt(types.Has(models.TypeAlbum)),
		boolInt(types.Has(models.TypeSingle)),
		boolInt(types.Has(models.TypeEP)),
		boolInt(types.Has(models.TypeLive)),
		boolInt(types.Has(models.TypeCompilation)),
		boolInt(types.Has(models.TypeRemix)),
		boolInt(types.Has(models.TypeOther)),
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

// UpdatePrefs stores notification preferences and the verified flag
func (r *UserRepository) UpdatePrefs(ctx context.Context, user *models.User) error {
	types := user.Prefs.Types

	query := `
		UPDATE users
		SET email_verified = ?, notify = ?,
			notify_album = ?, notify_single = ?, notify_ep = ?, notify_live = ?,
			notify_compilation = ?, notify_remix = ?, notify_other = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		boolInt(user.EmailVerified),
		boolInt(user.Prefs.Notify),
		boolInt(types.Has(models.TypeAlbum)),
		boolInt(types.Has(models.TypeSingle)),
		boolInt(types.Has(models.TypeEP)),
		boolInt(types.Has(models.TypeLive)),
		boolInt(types.Has(models.TypeCompilation)),
		boolInt(types.Has(models.TypeRemix)),
		boolInt(types.Has(models.TypeOther)),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user.ID)
	}

	return nil
}

// List retrieves all users matching the given criteria
func (r *UserRepository) List(ctx context.Context, criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	if verified, ok := criteria["verified"].(bool); ok {
		query += " AND email_verified = ?"
		args = append(args, boolInt(verified))
	}

	query += " ORDER BY username ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// scanOne scans a single [sql.Row] into a [models.User]
func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrUserNotFound
	}
	return user, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scan(s scanner) (*models.User, error) {
	var (
		user                                               models.User
		verified, notify                                   bool
		album, single, ep, live, compilation, remix, other bool
		createdAt                                          time.Time
	)

	err := s.Scan(&user.ID, &user.Username, &user.Email, &verified, &notify,
		&album, &single, &ep, &live, &compilation, &remix, &other, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	types := models.ReleaseTypeSet{}
	for t, on := range map[models.ReleaseType]bool{
		models.TypeAlbum:       album,
		models.TypeSingle:      single,
		models.TypeEP:          ep,
		models.TypeLive:        live,
		models.TypeCompilation: compilation,
		models.TypeRemix:       remix,
		models.TypeOther:       other,
	} {
		if on {
			types[t] = struct{}{}
		}
	}

	user.EmailVerified = verified
	user.Prefs = models.NotificationPrefs{Notify: notify, Types: types}
	user.CreatedAt = createdAt
	return &user, nil
}
