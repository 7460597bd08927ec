package tasks

import (
	"context"
	"errors"
	"testing"

	tu "github.com/desertthunder/relwatch/internal/testing"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/repositories"
	"github.com/desertthunder/relwatch/internal/services"
)

type walkerFixture struct {
	store  *repositories.Store
	client *tu.MockMetadataClient
}

func newWalkerFixture(t *testing.T) *walkerFixture {
	t.Helper()
	return &walkerFixture{store: setupTestStore(t), client: tu.NewMockMetadataClient()}
}

func (f *walkerFixture) walker(blacklist map[string]struct{}, jobs JobRunner, refresh bool, day string) *Walker {
	resolver := NewResolver(f.store, f.client, blacklist, nil)
	w := NewWalker(f.store, f.client, resolver, NewReconciler(f.store, f.client, 0, nil), jobs, refresh, 1, nil)
	w.SetClock(fixedClock(day))
	return w
}

// addUpstream registers an artist and one release group for it
func (f *walkerFixture) addUpstream(n int) {
	f.client.AddArtist(artistData(n))
	f.client.SetReleaseGroups(mbid(n), rgData(n, "Release", "Album", "2024-01-01"))
}

func TestWalker_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("visits artists in mbid order", func(t *testing.T) {
		f := newWalkerFixture(t)
		for _, n := range []int{3, 1, 2} {
			createArtist(t, f.store, n)
			f.addUpstream(n)
		}

		progress := make(chan ProgressUpdate, 32)
		result, err := f.walker(nil, nil, false, "2025-03-15").Sweep(ctx, progress)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		close(progress)

		var order []string
		for u := range progress {
			if u.Phase == SweepArtists {
				order = append(order, u.Data.(*models.Artist).MBID)
				if u.Total != 3 {
					t.Errorf("expected total 3, got %d", u.Total)
				}
			}
		}
		want := []string{mbid(1), mbid(2), mbid(3)}
		if len(order) != len(want) {
			t.Fatalf("expected %d visits, got %v", len(want), order)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("visit %d: expected %s, got %s", i, want[i], order[i])
			}
		}

		if result.Artists != 3 || result.Releases.Created != 3 {
			t.Errorf("unexpected result: %+v", result)
		}
		if f.client.CallCount("GetArtist") != 0 {
			t.Error("artists should not be looked up outside the refresh day")
		}
	})

	t.Run("refresh day updates artist metadata", func(t *testing.T) {
		f := newWalkerFixture(t)
		createArtist(t, f.store, 1)
		f.addUpstream(1)
		f.client.Artists[mbid(1)] = services.ArtistData{ID: mbid(1), Name: "Renamed", SortName: "Renamed", Disambiguation: "UK band"}

		result, err := f.walker(nil, nil, false, "2025-03-01").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Refreshed != 1 {
			t.Errorf("expected 1 refreshed artist, got %d", result.Refreshed)
		}

		artist, err := f.store.Artists.GetByMBID(ctx, mbid(1))
		if err != nil {
			t.Fatalf("GetByMBID failed: %v", err)
		}
		if artist.DisplayName() != "Renamed (UK band)" {
			t.Errorf("expected refreshed name, got %q", artist.DisplayName())
		}
	})

	t.Run("refresh flag forces lookups", func(t *testing.T) {
		f := newWalkerFixture(t)
		createArtist(t, f.store, 1)
		f.addUpstream(1)

		if _, err := f.walker(nil, nil, true, "2025-03-15").Sweep(ctx, nil); err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if got := f.client.CallCount("GetArtist"); got != 1 {
			t.Errorf("expected 1 lookup, got %d", got)
		}
	})

	t.Run("artist missing upstream is skipped", func(t *testing.T) {
		f := newWalkerFixture(t)
		var missing *models.Artist
		for n := 1; n <= 3; n++ {
			a := createArtist(t, f.store, n)
			if n == 2 {
				missing = a
				f.client.SetReleaseGroups(mbid(2), rgData(2, "Orphan", "Album", "2024"))
				continue
			}
			f.addUpstream(n)
		}

		result, err := f.walker(nil, nil, true, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Artists != 3 || result.Skipped != 1 || result.Failed != 0 {
			t.Errorf("unexpected result: %+v", result)
		}
		if n := countReleaseGroups(t, f.store, missing, true); n != 0 {
			t.Errorf("skipped artist should not be reconciled, got %d release groups", n)
		}
	})

	t.Run("transient lookups are retried", func(t *testing.T) {
		f := newWalkerFixture(t)
		createArtist(t, f.store, 1)
		f.addUpstream(1)
		f.client.FailNext("GetArtist", 2)

		result, err := f.walker(nil, nil, true, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Failed != 0 || result.Releases.Created != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if got := f.client.CallCount("GetArtist"); got != 3 {
			t.Errorf("expected 3 lookups, got %d", got)
		}
	})

	t.Run("redirected artist is merged into the canonical one", func(t *testing.T) {
		f := newWalkerFixture(t)
		stale := createArtist(t, f.store, 1)
		alice := createUser(t, f.store, "alice")
		subscribe(t, f.store, alice, stale)
		old := &models.ReleaseGroup{ArtistID: stale.ID, MBID: mbid(1500), Name: "Old", Type: models.TypeAlbum, Date: mustDate(t, "2019")}
		if err := f.store.ReleaseGroups.Create(ctx, old); err != nil {
			t.Fatalf("failed to create release group: %v", err)
		}

		f.client.Artists[mbid(1)] = services.ArtistData{ID: mbid(2), Name: "Canonical"}
		f.client.AddArtist(services.ArtistData{ID: mbid(2), Name: "Canonical"})
		f.client.SetReleaseGroups(mbid(2), rgData(2, "New", "Album", "2024-02-02"))

		result, err := f.walker(nil, nil, true, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Merged != 1 || result.Artists != 2 {
			t.Errorf("unexpected result: %+v", result)
		}

		canonical, err := f.store.Artists.GetByMBID(ctx, mbid(2))
		if err != nil {
			t.Fatalf("canonical artist not stored: %v", err)
		}
		if ok, _ := f.store.Subscriptions.Exists(ctx, alice.ID, canonical.ID); !ok {
			t.Error("subscription should move to the canonical artist")
		}
		if n := countReleaseGroups(t, f.store, stale, false); n != 0 {
			t.Errorf("stale catalog should be deleted, got %d live", n)
		}
		if got := f.client.CallCount("GetReleaseGroups"); got != 1 {
			t.Errorf("only the canonical artist should be reconciled, got %d page requests", got)
		}
		if n := countNotifications(t, f.store, alice); n != 1 {
			t.Errorf("expected 1 notification from the canonical catalog, got %d", n)
		}
	})

	t.Run("merge into a blacklisted artist is skipped", func(t *testing.T) {
		f := newWalkerFixture(t)
		stale := createArtist(t, f.store, 1)
		alice := createUser(t, f.store, "alice")
		subscribe(t, f.store, alice, stale)
		f.client.Artists[mbid(1)] = services.ArtistData{ID: mbid(2), Name: "Canonical"}

		result, err := f.walker(map[string]struct{}{mbid(2): {}}, nil, true, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Merged != 0 || result.Skipped != 1 {
			t.Errorf("unexpected result: %+v", result)
		}
		if ok, _ := f.store.Subscriptions.Exists(ctx, alice.ID, stale.ID); !ok {
			t.Error("subscription should stay on the stale artist")
		}
	})

	t.Run("blacklisted stored artist is skipped", func(t *testing.T) {
		f := newWalkerFixture(t)
		createArtist(t, f.store, 1)
		f.addUpstream(1)

		result, err := f.walker(map[string]struct{}{mbid(1): {}}, nil, true, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if result.Skipped != 1 || f.client.CallCount("GetArtist") != 0 {
			t.Errorf("blacklisted artist should not be checked: %+v", result)
		}
	})

	t.Run("jobs are drained before each artist", func(t *testing.T) {
		f := newWalkerFixture(t)
		for n := 1; n <= 3; n++ {
			createArtist(t, f.store, n)
			f.addUpstream(n)
		}
		runner := &countingRunner{err: errors.New("queue stuck")}

		result, err := f.walker(nil, runner, false, "2025-03-15").Sweep(ctx, nil)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}
		if runner.calls != 4 {
			t.Errorf("expected 4 drains, got %d", runner.calls)
		}
		if result.Artists != 3 {
			t.Errorf("job errors should not stop the sweep, visited %d", result.Artists)
		}
	})

	t.Run("cancelled context stops the sweep", func(t *testing.T) {
		f := newWalkerFixture(t)
		createArtist(t, f.store, 1)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := f.walker(nil, nil, false, "2025-03-15").Sweep(cctx, nil); err == nil {
			t.Error("expected an error from a cancelled sweep")
		}
	})
}

func TestWalker_ShouldRefresh(t *testing.T) {
	tests := []struct {
		name    string
		refresh bool
		day     string
		want    bool
	}{
		{"refresh day", false, "2025-04-01", true},
		{"other day", false, "2025-04-02", false},
		{"forced", true, "2025-04-02", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWalker(nil, nil, nil, nil, nil, tt.refresh, 1, nil)
			if got := w.ShouldRefresh(fixedClock(tt.day)()); got != tt.want {
				t.Errorf("ShouldRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}
