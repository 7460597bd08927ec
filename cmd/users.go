package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

type userRecord struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Verified bool     `json:"email_verified"`
	Notify   bool     `json:"notify"`
	Types    []string `json:"types"`
}

func newUserRecord(u *models.User) userRecord {
	types := u.Prefs.Types.Slice()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return userRecord{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Verified: u.EmailVerified,
		Notify:   u.Prefs.Notify,
		Types:    names,
	}
}

// UsersList prints every account.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	users, err := store.Users.List(ctx, map[string]any{})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]userRecord, len(users))
		for i, u := range users {
			records[i] = newUserRecord(u)
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(users)))
	for _, u := range users {
		status := ui.OK("verified")
		if !u.EmailVerified {
			status = ui.Warn("unverified")
		}
		r.writePlain("%-20s %-32s %s\n", u.Username, u.Email, status)
	}
	return nil
}

// UsersAdd creates an account with default preferences, narrowed by --types.
func (r *Runner) UsersAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	user := models.NewUser(strings.TrimSpace(cmd.String("username")), strings.TrimSpace(cmd.String("email")))
	user.EmailVerified = cmd.Bool("verified")
	if types := cmd.String("types"); types != "" {
		if user.Prefs.Types, err = models.ParseReleaseTypeSet(types); err != nil {
			return err
		}
	}

	if err := store.Users.Create(ctx, user); err != nil {
		return err
	}

	r.logger.Info("user created", "id", user.ID, "username", user.Username)
	r.writePlain("%s %s <%s>\n", ui.OK("✓ Created"), user.Username, user.Email)
	return nil
}

// UsersPrefs updates any preference flag that was passed, then prints the result.
func (r *Runner) UsersPrefs(ctx context.Context, cmd *cli.Command) error {
	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	changed := false
	if cmd.IsSet("notify") {
		user.Prefs.Notify = cmd.Bool("notify")
		changed = true
	}
	if cmd.IsSet("verified") {
		user.EmailVerified = cmd.Bool("verified")
		changed = true
	}
	if cmd.IsSet("types") {
		if user.Prefs.Types, err = models.ParseReleaseTypeSet(cmd.String("types")); err != nil {
			return err
		}
		changed = true
	}

	if changed {
		store, err := r.openStore()
		if err != nil {
			return err
		}
		if err := store.Users.UpdatePrefs(ctx, user); err != nil {
			return err
		}
		r.logger.Info("preferences updated", "username", user.Username)
	}

	rec := newUserRecord(user)
	r.writePlain("%s\n", ui.Title(user.Username))
	r.writePlain("Email:    %s (verified: %t)\n", rec.Email, rec.Verified)
	r.writePlain("Notify:   %t\n", rec.Notify)
	r.writePlain("Types:    %s\n", strings.Join(rec.Types, ", "))
	return nil
}

// UsersSearches lists saved artist searches, or deletes one with --delete.
func (r *Runner) UsersSearches(ctx context.Context, cmd *cli.Command) error {
	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	if search := cmd.String("delete"); search != "" {
		if err := store.Searches.Delete(ctx, user.ID, search); err != nil {
			return err
		}
		r.writePlain("%s %q\n", ui.OK("✓ Removed search"), search)
		return nil
	}

	searches, err := store.Searches.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		r.writePlain("%s\n", ui.Help("No saved searches"))
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Searches for %s (%d)", user.Username, len(searches)))
	for _, s := range searches {
		r.writePlain("%s  %s\n", ui.Help(s.CreatedAt.Format("2006-01-02")), s.Search)
	}
	return nil
}
