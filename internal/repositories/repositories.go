package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles every repository over a single handle.
type Store struct {
	db *sql.DB
	tx *sql.Tx

	Users         *UserRepository
	Artists       *ArtistRepository
	ReleaseGroups *ReleaseGroupRepository
	Subscriptions *SubscriptionRepository
	Notifications *NotificationRepository
	Jobs          *JobRepository
	Searches      *UserSearchRepository
	Stars         *StarRepository
}

// NewStore creates a [Store] backed by db.
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(h DBTX) *Store {
	return &Store{
		Users:         NewUserRepository(h),
		Artists:       NewArtistRepository(h),
		ReleaseGroups: NewReleaseGroupRepository(h),
		Subscriptions: NewSubscriptionRepository(h),
		Notifications: NewNotificationRepository(h),
		Jobs:          NewJobRepository(h),
		Searches:      NewUserSearchRepository(h),
		Stars:         NewStarRepository(h),
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx runs fn with a transaction-scoped Store and commits if fn returns nil.
//
// The outer Store must not be used inside fn: in-memory databases are pinned to one connection.
// Calling InTx on a transaction-scoped Store reuses the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scoped := newStore(tx)
	scoped.db = s.db
	scoped.tx = tx

	if err := fn(scoped); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func now() time.Time {
	return time.Now().UTC()
}
