package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/tasks"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

type artistRecord struct {
	MBID           string `json:"mbid"`
	Name           string `json:"name"`
	SortName       string `json:"sort_name"`
	Disambiguation string `json:"disambiguation,omitempty"`
}

// ArtistsList prints stored artists, or only a user's subscriptions when --user is set.
func (r *Runner) ArtistsList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	title := "Artists"
	if username := cmd.String("user"); username != "" {
		user, err := r.lookupUser(ctx, username)
		if err != nil {
			return err
		}
		criteria["user_id"] = user.ID
		title = "Artists followed by " + user.Username
	}

	artists, err := store.Artists.List(ctx, criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]artistRecord, len(artists))
		for i, a := range artists {
			records[i] = artistRecord{MBID: a.MBID, Name: a.Name, SortName: a.SortName, Disambiguation: a.Disambiguation}
		}
		return r.writeJSON(records, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d)", title, len(artists)))
	for _, a := range artists {
		r.writePlain("%s  %s\n", ui.Help(a.MBID), a.DisplayName())
	}
	return nil
}

// ArtistsSubscribe resolves an artist id, storing the artist if needed, and subscribes the user.
func (r *Runner) ArtistsSubscribe(ctx context.Context, cmd *cli.Command) error {
	mbid, err := mbidArg(cmd)
	if err != nil {
		return err
	}

	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	e, err := r.buildEngine(nil)
	if err != nil {
		return err
	}

	res := e.resolver.Resolve(ctx, mbid)
	if res.Kind != tasks.Resolved {
		r.logger.Warn("could not resolve artist", "mbid", mbid, "result", res.Kind.String())
		return res.Err
	}

	created, err := e.store.Subscriptions.Subscribe(ctx, user.ID, res.Artist.ID)
	if err != nil {
		return err
	}

	if !created {
		r.writePlain("%s %s\n", ui.Help("Already following"), res.Artist.DisplayName())
		return nil
	}
	r.writePlain("%s %s\n", ui.OK("✓ Following"), res.Artist.DisplayName())
	if res.Created {
		r.writePlain("%s\n", ui.Help("Release groups will be loaded on the next job run"))
	}
	return nil
}

// ArtistsUnsubscribe removes a subscription. The artist itself is kept.
func (r *Runner) ArtistsUnsubscribe(ctx context.Context, cmd *cli.Command) error {
	mbid, err := mbidArg(cmd)
	if err != nil {
		return err
	}

	user, err := r.lookupUser(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	artist, err := store.Artists.GetByMBID(ctx, mbid)
	if err != nil {
		return err
	}

	removed, err := store.Subscriptions.Unsubscribe(ctx, user.ID, artist.ID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s does not follow %s", shared.ErrInvalidArgument, user.Username, artist.Name)
	}

	r.writePlain("%s %s\n", ui.OK("✓ Unfollowed"), artist.DisplayName())
	return nil
}

// ArtistsShow prints a stored artist with its release count and followers.
// With --user it reports only whether that user follows the artist.
func (r *Runner) ArtistsShow(ctx context.Context, cmd *cli.Command) error {
	mbid, err := mbidArg(cmd)
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	artist, err := store.Artists.GetByMBID(ctx, mbid)
	if err != nil {
		return err
	}
	releases, err := store.ReleaseGroups.Count(ctx, artist.ID, false)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Title(artist.DisplayName()))
	r.writePlain("MBID:      %s\n", artist.MBID)
	r.writePlain("Sort name: %s\n", artist.SortName)
	r.writePlain("Releases:  %d\n", releases)

	if username := cmd.String("user"); username != "" {
		user, err := r.lookupUser(ctx, username)
		if err != nil {
			return err
		}
		following, err := store.Subscriptions.Exists(ctx, user.ID, artist.ID)
		if err != nil {
			return err
		}
		r.writePlain("Followed by %s: %t\n", user.Username, following)
		return nil
	}

	subs, err := store.Subscriptions.ListByArtist(ctx, artist.ID)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Followers (%d)", len(subs)))
	for _, sub := range subs {
		user, err := store.Users.Get(ctx, sub.UserID)
		if err != nil {
			return err
		}
		r.writePlain("%-20s %s\n", user.Username, ui.Help("since "+sub.CreatedAt.Format("2006-01-02")))
	}
	return nil
}

func (r *Runner) lookupUser(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: --user", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	user, err := store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, username)
	}
	return user, nil
}
