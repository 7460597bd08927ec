package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
	tu "github.com/desertthunder/relwatch/internal/testing"
)

type cliFixture struct {
	runner  *Runner
	store   *repositories.Store
	client  *tu.MockMetadataClient
	library *tu.MockLibrary
	mailer  *tu.MockMailer
	covers  *tu.MockCoverFetcher
	out     *bytes.Buffer
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	t.Chdir(t.TempDir())

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	config := shared.DefaultConfig()
	config.MusicBrainz.RequestDelay = "0s"

	f := &cliFixture{
		store:   repositories.NewStore(db),
		client:  tu.NewMockMetadataClient(),
		library: &tu.MockLibrary{Artists: map[string][]services.LibraryArtist{}},
		mailer:  &tu.MockMailer{},
		covers:  &tu.MockCoverFetcher{},
		out:     &bytes.Buffer{},
	}
	f.runner = NewRunner(RunnerOpts{
		Config:   config,
		Logger:   shared.DiscardLogger(),
		Output:   f.out,
		Store:    f.store,
		Metadata: f.client,
		Library:  f.library,
		Mailer:   f.mailer,
		Covers:   f.covers,
	})
	return f
}

func (f *cliFixture) run(args ...string) error {
	f.out.Reset()
	return newApp(f.runner).Run(context.Background(), append([]string{"relwatch"}, args...))
}

func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := f.run(args...); err != nil {
		t.Fatalf("relwatch %s: %v", strings.Join(args, " "), err)
	}
	return f.out.String()
}

func (f *cliFixture) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	f.mustRun(t, "users", "add", "--username", name, "--email", name+"@example.com", "--verified")
	user, err := f.store.Users.GetByUsername(context.Background(), name)
	if err != nil {
		t.Fatalf("user %s not stored: %v", name, err)
	}
	return user
}

func mbid(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

func (f *cliFixture) addUpstreamArtist(n int, releases ...services.ReleaseGroupData) {
	name := fmt.Sprintf("Artist %d", n)
	f.client.AddArtist(services.ArtistData{ID: mbid(n), Name: name, SortName: name})
	f.client.SetReleaseGroups(mbid(n), releases...)
}

func release(n int, title, date string) services.ReleaseGroupData {
	return services.ReleaseGroupData{ID: mbid(1000 + n), Title: title, PrimaryType: "Album", FirstReleaseDate: date}
}

func TestUsersCommands(t *testing.T) {
	t.Run("add and list as JSON", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.mustRun(t, "users", "add", "--username", "bob", "--email", "bob@example.com", "--types", "album,ep")

		var records []userRecord
		if err := json.Unmarshal([]byte(f.mustRun(t, "users", "list", "--json")), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 users, got %d", len(records))
		}
		if !records[0].Verified || records[1].Verified {
			t.Errorf("unexpected verified flags: %+v", records)
		}
		if got := strings.Join(records[1].Types, ","); got != "album,ep" {
			t.Errorf("expected album,ep, got %s", got)
		}
	})

	t.Run("add rejects an invalid email", func(t *testing.T) {
		f := newCLIFixture(t)
		err := f.run("users", "add", "--username", "alice", "--email", "not-an-address")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("prefs updates only the flags passed", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")

		out := f.mustRun(t, "users", "prefs", "--user", "alice", "--notify=false", "--types", "single")
		if !strings.Contains(out, "single") {
			t.Errorf("expected types in output, got %q", out)
		}

		user, _ := f.store.Users.GetByUsername(context.Background(), "alice")
		if user.Prefs.Notify {
			t.Error("expected notify to be disabled")
		}
		if !user.EmailVerified {
			t.Error("verified flag should be untouched")
		}
		if user.Prefs.Types.Has(models.TypeAlbum) || !user.Prefs.Types.Has(models.TypeSingle) {
			t.Errorf("unexpected types: %v", user.Prefs.Types.Slice())
		}
	})

	t.Run("prefs for an unknown user", func(t *testing.T) {
		f := newCLIFixture(t)
		if err := f.run("users", "prefs", "--user", "ghost"); !errors.Is(err, shared.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("searches list and delete", func(t *testing.T) {
		f := newCLIFixture(t)
		user := f.addUser(t, "alice")
		if _, err := f.store.Searches.Add(context.Background(), user.ID, "the band"); err != nil {
			t.Fatalf("add search: %v", err)
		}

		if out := f.mustRun(t, "users", "searches", "--user", "alice"); !strings.Contains(out, "the band") {
			t.Errorf("expected search in output, got %q", out)
		}

		f.mustRun(t, "users", "searches", "--user", "alice", "--delete", "the band")
		searches, _ := f.store.Searches.ListByUser(context.Background(), user.ID)
		if len(searches) != 0 {
			t.Errorf("expected search to be deleted, got %v", searches)
		}
	})
}

func TestArtistsCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("subscribe stores the artist and queues a backfill", func(t *testing.T) {
		f := newCLIFixture(t)
		user := f.addUser(t, "alice")
		f.addUpstreamArtist(1, release(1, "First", "2010-05-01"))

		out := f.mustRun(t, "artists", "subscribe", "--user", "alice", strings.ToUpper(mbid(1)))
		if !strings.Contains(out, "Artist 1") {
			t.Errorf("expected artist name in output, got %q", out)
		}

		artist, err := f.store.Artists.GetByMBID(ctx, mbid(1))
		if err != nil {
			t.Fatalf("artist not stored: %v", err)
		}
		if ok, _ := f.store.Subscriptions.Exists(ctx, user.ID, artist.ID); !ok {
			t.Error("expected subscription")
		}

		jobs, _ := f.store.Jobs.List(ctx, map[string]any{"kind": models.JobAddReleaseGroups})
		if len(jobs) != 1 || jobs[0].Payload != mbid(1) {
			t.Fatalf("expected one backfill job, got %+v", jobs)
		}

		f.mustRun(t, "jobs", "process")
		if n, _ := f.store.ReleaseGroups.Count(ctx, artist.ID, false); n != 1 {
			t.Errorf("expected 1 release group after backfill, got %d", n)
		}
	})

	t.Run("subscribe twice reports the existing subscription", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1)

		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))
		if out := f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1)); !strings.Contains(out, "Already following") {
			t.Errorf("expected already following, got %q", out)
		}
	})

	t.Run("subscribe to an artist missing upstream", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")

		err := f.run("artists", "subscribe", "--user", "alice", mbid(7))
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("subscribe to a blacklisted artist", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")

		err := f.run("artists", "subscribe", "--user", "alice", "89ad4ac3-39f7-470e-963a-56509c546377")
		if !errors.Is(err, shared.ErrBlacklisted) {
			t.Errorf("expected ErrBlacklisted, got %v", err)
		}
	})

	t.Run("subscribe with a malformed id", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")

		if err := f.run("artists", "subscribe", "--user", "alice", "nope"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unsubscribe", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1)
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))

		f.mustRun(t, "artists", "unsubscribe", "--user", "alice", mbid(1))
		if err := f.run("artists", "unsubscribe", "--user", "alice", mbid(1)); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument on second unsubscribe, got %v", err)
		}
	})

	t.Run("show lists followers", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUser(t, "bob")
		f.addUpstreamArtist(1, release(1, "First", "2010-05-01"))
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))
		f.mustRun(t, "jobs", "process")

		out := f.mustRun(t, "artists", "show", mbid(1))
		for _, want := range []string{"Artist 1", "Releases:  1", "Followers (1)", "alice"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output, got %q", want, out)
			}
		}
		if strings.Contains(out, "bob") {
			t.Errorf("bob does not follow the artist: %q", out)
		}

		if out := f.mustRun(t, "artists", "show", "--user", "alice", mbid(1)); !strings.Contains(out, "Followed by alice: true") {
			t.Errorf("expected alice to follow, got %q", out)
		}
		if out := f.mustRun(t, "artists", "show", "--user", "bob", mbid(1)); !strings.Contains(out, "Followed by bob: false") {
			t.Errorf("expected bob not to follow, got %q", out)
		}
	})

	t.Run("show an artist that is not stored", func(t *testing.T) {
		f := newCLIFixture(t)
		if err := f.run("artists", "show", mbid(9)); !errors.Is(err, shared.ErrArtistMissing) {
			t.Errorf("expected ErrArtistMissing, got %v", err)
		}
	})

	t.Run("list by user", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1)
		f.addUpstreamArtist(2)
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(2))
		if _, _, err := f.store.Artists.Ensure(ctx, models.NewArtist(mbid(1), "Artist 1", "Artist 1", "")); err != nil {
			t.Fatalf("ensure: %v", err)
		}

		var all, followed []artistRecord
		if err := json.Unmarshal([]byte(f.mustRun(t, "artists", "list", "--json")), &all); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if err := json.Unmarshal([]byte(f.mustRun(t, "artists", "list", "--user", "alice", "--json")), &followed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(all) != 2 || len(followed) != 1 || followed[0].MBID != mbid(2) {
			t.Errorf("unexpected listings: all=%+v followed=%+v", all, followed)
		}
	})
}

func TestJobsCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("add-artist queues the query", func(t *testing.T) {
		f := newCLIFixture(t)
		user := f.addUser(t, "alice")

		f.mustRun(t, "jobs", "add-artist", "--user", "alice", "The", "Band")

		var records []jobRecord
		if err := json.Unmarshal([]byte(f.mustRun(t, "jobs", "list", "--json")), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 job, got %d", len(records))
		}
		if records[0].Kind != "add_artist" || records[0].Payload != "The Band" || records[0].UserID != user.ID {
			t.Errorf("unexpected job: %+v", records[0])
		}
	})

	t.Run("add-artist then process subscribes on a unique match", func(t *testing.T) {
		f := newCLIFixture(t)
		user := f.addUser(t, "alice")
		f.addUpstreamArtist(1)
		f.client.Searches["artist 1"] = []services.ArtistData{{ID: mbid(1), Name: "Artist 1", SortName: "Artist 1"}}

		f.mustRun(t, "jobs", "add-artist", "--user", "alice", "artist 1")
		f.mustRun(t, "jobs", "process")

		artists, _ := f.store.Artists.List(ctx, map[string]any{"user_id": user.ID})
		if len(artists) != 1 || artists[0].MBID != mbid(1) {
			t.Errorf("expected subscription to artist 1, got %+v", artists)
		}
	})

	t.Run("add-artist without a query", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		if err := f.run("jobs", "add-artist", "--user", "alice"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list filters by kind", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.mustRun(t, "jobs", "add-artist", "--user", "alice", "x")
		f.mustRun(t, "jobs", "cover", mbid(1001))

		var records []jobRecord
		if err := json.Unmarshal([]byte(f.mustRun(t, "jobs", "list", "--kind", "get_cover", "--json")), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 1 || records[0].Kind != "get_cover" {
			t.Errorf("unexpected jobs: %+v", records)
		}

		if err := f.run("jobs", "list", "--kind", "bogus"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("backfill requires a stored artist", func(t *testing.T) {
		f := newCLIFixture(t)
		if err := f.run("jobs", "backfill", mbid(1)); !errors.Is(err, shared.ErrArtistMissing) {
			t.Errorf("expected ErrArtistMissing, got %v", err)
		}
	})

	t.Run("import-lastfm", func(t *testing.T) {
		f := newCLIFixture(t)
		user := f.addUser(t, "alice")
		f.addUpstreamArtist(1)
		f.library.Artists["alice_fm"] = []services.LibraryArtist{{Name: "Artist 1", MBID: mbid(1)}}

		f.mustRun(t, "jobs", "import-lastfm", "--user", "alice", "--lastfm-user", "alice_fm", "--count", "5", "--period", "7day")

		jobs, _ := f.store.Jobs.List(ctx, map[string]any{"kind": models.JobImportLastFM})
		if len(jobs) != 1 {
			t.Fatalf("expected 1 import job, got %d", len(jobs))
		}
		req, err := models.DecodeImportRequest(jobs[0].Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Username != "alice_fm" || req.Count != 5 || req.Period != "7day" {
			t.Errorf("unexpected request: %+v", req)
		}

		f.mustRun(t, "jobs", "process")
		if n, _ := f.store.Subscriptions.CountByUser(ctx, user.ID); n != 1 {
			t.Errorf("expected 1 subscription after import, got %d", n)
		}
	})

	t.Run("import-lastfm rejects an unknown period", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		err := f.run("jobs", "import-lastfm", "--user", "alice", "--lastfm-user", "x", "--period", "forever")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("cover is fetched when processed", func(t *testing.T) {
		f := newCLIFixture(t)
		f.mustRun(t, "jobs", "cover", strings.ToUpper(mbid(1001)))
		f.mustRun(t, "jobs", "process")

		if len(f.covers.Fetched) != 1 || f.covers.Fetched[0] != mbid(1001) {
			t.Errorf("unexpected fetches: %v", f.covers.Fetched)
		}
		if n, _ := f.store.Jobs.Count(ctx); n != 0 {
			t.Errorf("expected empty queue, got %d", n)
		}
	})
}

func TestReleasesCommands(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *cliFixture {
		t.Helper()
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1, release(1, "Old", "2001-01-01"), release(2, "Newer", "2005-06-07"))
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))
		f.mustRun(t, "jobs", "process")
		return f
	}

	t.Run("list by user as JSON", func(t *testing.T) {
		f := setup(t)

		var listing struct {
			Title    string           `json:"title"`
			Releases []map[string]any `json:"releases"`
		}
		out := f.mustRun(t, "releases", "list", "--mode", "user", "--user", "alice", "--format", "json")
		if err := json.Unmarshal([]byte(out), &listing); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		records := listing.Releases
		if listing.Title != "New releases for alice" {
			t.Errorf("unexpected title %q", listing.Title)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 releases, got %d", len(records))
		}
		if records[0]["title"] != "Newer" {
			t.Errorf("expected newest first, got %v", records[0]["title"])
		}
	})

	t.Run("calendar respects until", func(t *testing.T) {
		f := setup(t)

		out := f.mustRun(t, "releases", "list", "--until", "2002", "--format", "csv")
		if !strings.Contains(out, "Old") || strings.Contains(out, "Newer") {
			t.Errorf("unexpected calendar: %q", out)
		}
	})

	t.Run("artist mode needs an artist", func(t *testing.T) {
		f := setup(t)
		if err := f.run("releases", "list", "--mode", "artist"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if out := f.mustRun(t, "releases", "list", "--mode", "artist", "--artist", mbid(1)); !strings.Contains(out, "Newer") {
			t.Errorf("expected artist listing, got %q", out)
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		f := setup(t)
		if err := f.run("releases", "list", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for format, got %v", err)
		}
		if err := f.run("releases", "list", "--mode", "weekly"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag for mode, got %v", err)
		}
		if err := f.run("releases", "list", "--types", "bootleg"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for types, got %v", err)
		}
	})

	t.Run("exports to a file", func(t *testing.T) {
		f := setup(t)
		path := filepath.Join(t.TempDir(), "out", "releases.md")

		f.mustRun(t, "releases", "list", "--format", "markdown", "--output", path)

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Newer") {
			t.Errorf("expected release in export, got %q", content)
		}
	})

	t.Run("star marks the listing", func(t *testing.T) {
		f := setup(t)
		f.mustRun(t, "releases", "star", "--user", "alice", mbid(1002))

		listings, err := f.store.ReleaseGroups.Query(ctx, repositories.ReleaseQuery{
			Mode: repositories.ByUser, UserID: mustUserID(t, f, "alice"), StarredBy: mustUserID(t, f, "alice"),
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		for _, l := range listings {
			if l.Starred != (l.MBID == mbid(1002)) {
				t.Errorf("unexpected star on %s: %v", l.MBID, l.Starred)
			}
		}

		f.mustRun(t, "releases", "star", "--user", "alice", "--unset", mbid(1002))
		listings, _ = f.store.ReleaseGroups.Query(ctx, repositories.ReleaseQuery{
			Mode: repositories.ByUser, UserID: mustUserID(t, f, "alice"), StarredBy: mustUserID(t, f, "alice"),
		})
		for _, l := range listings {
			if l.Starred {
				t.Errorf("expected %s to be unstarred", l.MBID)
			}
		}
	})
}

func mustUserID(t *testing.T, f *cliFixture, name string) string {
	t.Helper()
	user, err := f.store.Users.GetByUsername(context.Background(), name)
	if err != nil {
		t.Fatalf("user %s: %v", name, err)
	}
	return user.ID
}

func TestDaemonCommands(t *testing.T) {
	t.Run("sweep then notify", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1, release(1, "Old", "2001-01-01"))
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))
		f.mustRun(t, "jobs", "process")

		fresh := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
		f.client.SetReleaseGroups(mbid(1), release(1, "Old", "2001-01-01"), release(2, "Fresh", fresh))

		out := f.mustRun(t, "daemon", "sweep", "--quiet")
		if !strings.Contains(out, "Sweep Complete") || !strings.Contains(out, "1 created") {
			t.Errorf("unexpected sweep summary: %q", out)
		}

		out = f.mustRun(t, "daemon", "notify", "--quiet")
		if !strings.Contains(out, "Emails sent:") {
			t.Errorf("unexpected notify output: %q", out)
		}
		sent := f.mailer.SentTo("alice@example.com")
		if len(sent) != 1 || !strings.Contains(sent[0].Subject, "Fresh") {
			t.Fatalf("expected one email about Fresh, got %+v", sent)
		}
	})

	t.Run("sweep prints progress", func(t *testing.T) {
		f := newCLIFixture(t)
		f.addUser(t, "alice")
		f.addUpstreamArtist(1)
		f.mustRun(t, "artists", "subscribe", "--user", "alice", mbid(1))

		if out := f.mustRun(t, "daemon", "sweep"); !strings.Contains(out, "Artist 1") {
			t.Errorf("expected progress line naming the artist, got %q", out)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes the template once", func(t *testing.T) {
		f := newCLIFixture(t)
		path := filepath.Join(t.TempDir(), "relwatch.toml")

		f.mustRun(t, "--config", path, "setup", "config")
		tu.AssertFileExists(t, path)

		if err := f.run("--config", path, "setup", "config"); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("database creates a missing config", func(t *testing.T) {
		f := newCLIFixture(t)

		out := f.mustRun(t, "setup", "database")
		tu.AssertFileExists(t, "config.toml")
		if !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("status lists applied migrations", func(t *testing.T) {
		f := newCLIFixture(t)

		var rows []struct {
			Version int  `json:"version"`
			Applied bool `json:"applied"`
		}
		if err := json.Unmarshal([]byte(f.mustRun(t, "setup", "status", "--json")), &rows); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(rows) == 0 {
			t.Fatal("expected migrations")
		}
		for _, r := range rows {
			if !r.Applied {
				t.Errorf("migration %d should be applied", r.Version)
			}
		}
	})
}
