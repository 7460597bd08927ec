package models

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/desertthunder/relwatch/internal/shared"
)

// NotificationPrefs controls which release groups a user is emailed about.
type NotificationPrefs struct {
	Notify bool
	Types  ReleaseTypeSet
}

// DefaultPrefs enables notifications for every category.
func DefaultPrefs() NotificationPrefs {
	return NotificationPrefs{Notify: true, Types: NewReleaseTypeSet(AllReleaseTypes...)}
}

// User is an account. Users are created by the web layer, the daemon only reads them.
type User struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	Prefs         NotificationPrefs
	CreatedAt     time.Time
}

// NewUser creates a [User] with default preferences. The ID is assigned on insert.
func NewUser(username, email string) *User {
	return &User{
		Username:  username,
		Email:     email,
		Prefs:     DefaultPrefs(),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate implements [Model].
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: email %q", shared.ErrInvalidInput, u.Email)
	}
	return nil
}

// Accepts reports whether an email about a release group should be sent.
func (u *User) Accepts(rg *ReleaseGroup, now time.Time, window time.Duration) bool {
	if !u.Prefs.Notify || !u.EmailVerified {
		return false
	}
	return u.Prefs.Types.Has(rg.Type) && rg.Date.IsRecent(now, window)
}

// Subscription links a user to an artist they follow.
type Subscription struct {
	UserID    string
	ArtistID  string
	CreatedAt time.Time
}

// UserSearch is a free-text artist query that could not be matched unambiguously.
type UserSearch struct {
	ID        int64
	UserID    string
	Search    string
	CreatedAt time.Time
}
