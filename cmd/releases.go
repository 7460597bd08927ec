package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/relwatch/internal/formatter"
	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/shared"
	"github.com/desertthunder/relwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

func parseQueryMode(s string) (repositories.QueryMode, error) {
	for _, m := range []repositories.QueryMode{repositories.ByArtist, repositories.ByUser, repositories.Calendar} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q (want artist, user or calendar)", shared.ErrInvalidFlag, s)
}

func today(now time.Time) models.ReleaseDate {
	y, m, d := now.UTC().Date()
	return models.ReleaseDate(y*10000 + int(m)*100 + d)
}

// ReleasesList queries stored release groups and renders them with the chosen formatter.
//
// --user both selects the user for --mode user and marks that user's starred releases.
func (r *Runner) ReleasesList(ctx context.Context, cmd *cli.Command) error {
	mode, err := parseQueryMode(cmd.String("mode"))
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	q := repositories.ReleaseQuery{
		Mode:   mode,
		Limit:  int(cmd.Int("limit")),
		Offset: int(cmd.Int("offset")),
	}

	if types := cmd.String("types"); types != "" {
		if q.Types, err = models.ParseReleaseTypeSet(types); err != nil {
			return err
		}
	}

	var title string
	if username := cmd.String("user"); username != "" {
		user, err := r.lookupUser(ctx, username)
		if err != nil {
			return err
		}
		q.UserID, q.StarredBy = user.ID, user.ID
		title = "New releases for " + user.Username
	}

	switch mode {
	case repositories.ByArtist:
		mbid := shared.NormalizeMBID(cmd.String("artist"))
		if mbid == "" {
			return fmt.Errorf("%w: --artist is required with --mode artist", shared.ErrMissingArgument)
		}
		artist, err := store.Artists.GetByMBID(ctx, mbid)
		if err != nil {
			return err
		}
		q.ArtistID = artist.ID
		title = "Releases by " + artist.DisplayName()
	case repositories.ByUser:
		if q.UserID == "" {
			return fmt.Errorf("%w: --user is required with --mode user", shared.ErrMissingArgument)
		}
	case repositories.Calendar:
		q.Until = today(time.Now())
		if until := cmd.String("until"); until != "" {
			if q.Until, err = models.ParseReleaseDate(until); err != nil {
				return fmt.Errorf("%w: --until: %v", shared.ErrInvalidFlag, err)
			}
		}
		title = "Release calendar until " + q.Until.String()
	}

	releases, err := store.ReleaseGroups.Query(ctx, q)
	if err != nil {
		return err
	}

	export := &formatter.ReleaseExport{Title: title, Releases: releases}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteExport(export, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("release listing exported", "path", written, "count", len(releases))
		r.writePlain("%s %d releases to %s\n", ui.OK("✓ Exported"), len(releases), written)
		return nil
	}

	return formatter.Write(r.output, export, format)
}

// ReleasesStar stars or unstars a release group for a user.
func (r *Runner) ReleasesStar(ctx context.Context, cmd *cli.Command) error {
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

	rg, err := store.ReleaseGroups.GetByMBID(ctx, mbid)
	if err != nil {
		return err
	}

	starred := !cmd.Bool("unset")
	if err := store.Stars.Set(ctx, user.ID, rg.ID, starred); err != nil {
		return err
	}

	if starred {
		r.writePlain("%s %s\n", ui.OK("★ Starred"), rg.Name)
	} else {
		r.writePlain("%s %s\n", ui.Help("Unstarred"), rg.Name)
	}
	return nil
}
