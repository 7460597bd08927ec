package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/relwatch/internal/models"
	"github.com/desertthunder/relwatch/internal/shared"
)

func TestRateLimiter(t *testing.T) {
	t.Run("First call is immediate", func(t *testing.T) {
		l := NewRateLimiter(time.Hour)
		start := time.Now()
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
		if time.Since(start) > 100*time.Millisecond {
			t.Error("first wait should not block")
		}
	})

	t.Run("Spaces consecutive calls", func(t *testing.T) {
		delay := 50 * time.Millisecond
		l := NewRateLimiter(delay)
		ctx := context.Background()

		start := time.Now()
		for range 3 {
			if err := l.Wait(ctx); err != nil {
				t.Fatalf("wait: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 2*delay-10*time.Millisecond {
			t.Errorf("three calls took %v, want at least %v", elapsed, 2*delay)
		}
	})

	t.Run("Honors cancellation", func(t *testing.T) {
		l := NewRateLimiter(time.Hour)
		l.Wait(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err == nil {
			t.Error("expected error when the context ends before the next slot")
		}
	})

	t.Run("Zero delay disables limiting", func(t *testing.T) {
		l := NewRateLimiter(0)
		for range 100 {
			if err := l.Wait(context.Background()); err != nil {
				t.Fatalf("wait: %v", err)
			}
		}
	})

	t.Run("Delay reports the configured spacing", func(t *testing.T) {
		if d := NewRateLimiter(1500 * time.Millisecond).Delay(); d != 1500*time.Millisecond {
			t.Errorf("expected 1.5s, got %v", d)
		}
	})
}

func TestReleaseGroupCategory(t *testing.T) {
	tc := []struct {
		name      string
		primary   string
		secondary []string
		want      models.ReleaseType
		ok        bool
	}{
		{"album", "Album", nil, models.TypeAlbum, true},
		{"single", "Single", nil, models.TypeSingle, true},
		{"ep", "EP", nil, models.TypeEP, true},
		{"broadcast", "Broadcast", nil, models.TypeOther, true},
		{"live album", "Album", []string{"Live"}, models.TypeLive, true},
		{"compilation wins", "Album", []string{"Remix", "Compilation"}, models.TypeCompilation, true},
		{"remix", "Single", []string{"Remix"}, models.TypeRemix, true},
		{"soundtrack", "Album", []string{"Soundtrack"}, models.TypeOther, true},
		{"untyped", "", nil, "", false},
		{"secondary only", "", []string{"Live"}, "", false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ReleaseGroupData{PrimaryType: tt.primary, SecondaryTypes: tt.secondary}.Category()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Category() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *MusicBrainzClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMusicBrainzClient(server.URL, "relwatch-test/1.0", server.Client(), NewRateLimiter(0), nil, nil)
}

func TestMusicBrainzClient(t *testing.T) {
	ctx := context.Background()
	artistID := "b10bbbfc-cf9e-42e0-be17-e2c3e1d2600d"

	t.Run("GetArtist", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/artist/"+artistID {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("fmt") != "json" {
				t.Error("expected fmt=json")
			}
			if r.Header.Get("User-Agent") != "relwatch-test/1.0" {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			fmt.Fprintf(w, `{"id":"%s","name":"The Beatles","sort-name":"Beatles, The","disambiguation":""}`, strings.ToUpper(artistID))
		})

		artist, err := client.GetArtist(ctx, artistID)
		if err != nil {
			t.Fatalf("GetArtist: %v", err)
		}
		if artist.ID != artistID || artist.SortName != "Beatles, The" {
			t.Errorf("unexpected artist %+v", artist)
		}
	})

	t.Run("GetArtist not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Not Found"}`)
		})

		_, err := client.GetArtist(ctx, artistID)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if errors.Is(err, shared.ErrTransient) {
			t.Error("not found must not be transient")
		}
	})

	t.Run("Server error is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":"rate limited"}`)
		})

		_, err := client.GetReleaseGroups(ctx, artistID, 100, 0)
		if !errors.Is(err, shared.ErrTransient) {
			t.Errorf("expected ErrTransient, got %v", err)
		}
	})

	t.Run("Malformed body is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"release-groups": [`)
		})

		_, err := client.GetReleaseGroups(ctx, artistID, 100, 0)
		if !errors.Is(err, shared.ErrTransient) {
			t.Errorf("expected ErrTransient, got %v", err)
		}
	})

	t.Run("GetReleaseGroups", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if r.URL.Path != "/release-group" || q.Get("artist") != artistID || q.Get("limit") != "100" || q.Get("offset") != "200" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			fmt.Fprint(w, `{"release-groups":[
				{"id":"rg1","title":"Abbey Road","primary-type":"Album","secondary-types":[],"first-release-date":"1969-09-26"},
				{"id":"rg2","title":"Live","primary-type":"Album","secondary-types":["Live"],"first-release-date":""}
			],"release-group-count":2}`)
		})

		groups, err := client.GetReleaseGroups(ctx, artistID, 100, 200)
		if err != nil {
			t.Fatalf("GetReleaseGroups: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].FirstReleaseDate != "1969-09-26" || groups[1].SecondaryTypes[0] != "Live" {
			t.Errorf("unexpected groups %+v", groups)
		}
	})

	t.Run("SearchArtists", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("query") != "Genesis" {
				t.Errorf("unexpected query %q", r.URL.Query().Get("query"))
			}
			fmt.Fprint(w, `{"count":17,"artists":[{"id":"a1","name":"Genesis","sort-name":"Genesis"},{"id":"a2","name":"Genesis","sort-name":"Genesis","disambiguation":"Italian band"}]}`)
		})

		artists, total, err := client.SearchArtists(ctx, "Genesis", 2, 0)
		if err != nil {
			t.Fatalf("SearchArtists: %v", err)
		}
		if total != 17 || len(artists) != 2 || artists[1].Disambiguation != "Italian band" {
			t.Errorf("unexpected result %d %+v", total, artists)
		}
	})

	t.Run("GetReleases", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("release-group") != "rg1" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			fmt.Fprint(w, `{"releases":[{"id":"r1","date":"1969-09-26"},{"id":"r2"}]}`)
		})

		releases, err := client.GetReleases(ctx, "rg1", 10, 0)
		if err != nil {
			t.Fatalf("GetReleases: %v", err)
		}
		if len(releases) != 2 || releases[1].Date != "" {
			t.Errorf("unexpected releases %+v", releases)
		}
	})

	t.Run("Every request waits on the limiter", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, `{"release-groups":[]}`)
		}))
		defer server.Close()

		limiter := NewRateLimiter(time.Hour)
		client := NewMusicBrainzClient(server.URL, "", server.Client(), limiter, nil, nil)

		if _, err := client.GetReleaseGroups(ctx, artistID, 100, 0); err != nil {
			t.Fatalf("first request: %v", err)
		}

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		if _, err := client.GetReleaseGroups(short, artistID, 100, 0); err == nil {
			t.Error("second request should block on the limiter")
		}
		if hits.Load() != 1 {
			t.Errorf("expected one upstream hit, got %d", hits.Load())
		}
	})
}

func TestBreaker(t *testing.T) {
	t.Run("Opens after consecutive transient failures", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		breaker := NewBreaker(BreakerSettings{Name: "test", FailureThreshold: 2, OpenTimeout: time.Hour}, nil)
		client := NewMusicBrainzClient(server.URL, "", server.Client(), NewRateLimiter(0), breaker, nil)

		for range 4 {
			_, err := client.GetArtist(context.Background(), "x")
			if !errors.Is(err, shared.ErrTransient) {
				t.Fatalf("expected transient error, got %v", err)
			}
		}

		if hits.Load() != 2 {
			t.Errorf("expected breaker to stop upstream calls after 2 failures, got %d hits", hits.Load())
		}
		_, err := client.GetArtist(context.Background(), "x")
		if !errors.Is(err, shared.ErrBreakerOpen) {
			t.Errorf("expected ErrBreakerOpen, got %v", err)
		}
	})

	t.Run("Not found does not trip", func(t *testing.T) {
		breaker := NewBreaker(BreakerSettings{Name: "test", FailureThreshold: 1, OpenTimeout: time.Hour}, nil)
		for range 3 {
			err := breaker.Execute(func() error { return shared.ErrNotFound })
			if !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		}
		if breaker.State() != "closed" {
			t.Errorf("expected closed breaker, got %s", breaker.State())
		}
	})
}

func TestLastFMClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Library artists", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("method") != "library.getArtists" || q.Get("api_key") != "key" || q.Get("user") != "rj" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			fmt.Fprint(w, `{"artists":{"artist":[{"name":"Cher","mbid":"BFCC6D75-A6A5-4BC6-8282-47AEC8531818"},{"name":"Obscure","mbid":""},{"name":"","mbid":""}],"@attr":{"page":"1","totalPages":"3"}}}`)
		}))
		defer server.Close()

		client := NewLastFMClient(server.URL, "key", server.Client(), nil, nil)
		artists, pages, err := client.GetArtists(ctx, "rj", "overall", 1, 50)
		if err != nil {
			t.Fatalf("GetArtists: %v", err)
		}
		if pages != 3 || len(artists) != 2 {
			t.Fatalf("unexpected page %d %+v", pages, artists)
		}
		if artists[0].MBID != "bfcc6d75-a6a5-4bc6-8282-47aec8531818" || artists[1].MBID != "" {
			t.Errorf("unexpected artists %+v", artists)
		}
	})

	t.Run("Top artists for a period", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("method") != "user.getTopArtists" || q.Get("period") != "7day" {
				t.Errorf("unexpected request %s", r.URL.String())
			}
			fmt.Fprint(w, `{"topartists":{"artist":[{"name":"Cher","mbid":""}],"@attr":{"totalPages":"1"}}}`)
		}))
		defer server.Close()

		client := NewLastFMClient(server.URL, "key", server.Client(), nil, nil)
		artists, _, err := client.GetArtists(ctx, "rj", "7day", 1, 50)
		if err != nil || len(artists) != 1 {
			t.Fatalf("GetArtists: %v %+v", err, artists)
		}
	})

	t.Run("Unknown user", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":6,"message":"User not found"}`)
		}))
		defer server.Close()

		client := NewLastFMClient(server.URL, "key", server.Client(), nil, nil)
		if _, _, err := client.GetArtists(ctx, "ghost", "overall", 1, 50); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Missing key", func(t *testing.T) {
		client := NewLastFMClient("", "", nil, nil, nil)
		if _, _, err := client.GetArtists(ctx, "rj", "overall", 1, 50); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestReleaseRenderer(t *testing.T) {
	r, err := NewReleaseRenderer("[relwatch]", "https://relwatch.example")
	if err != nil {
		t.Fatalf("NewReleaseRenderer: %v", err)
	}

	user := models.NewUser("alice", "alice@example.com")
	release := models.ReleaseListing{
		ReleaseGroup: models.ReleaseGroup{MBID: "rg1", Name: "Abbey Road <Deluxe>", Type: models.TypeAlbum, Date: 19690926},
		ArtistName:   "The Beatles",
	}

	t.Run("Single release", func(t *testing.T) {
		email, err := r.Render(user, []models.ReleaseListing{release})
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if email.To != "alice@example.com" {
			t.Errorf("unexpected recipient %q", email.To)
		}
		if email.Subject != "[relwatch] New Release: The Beatles - Abbey Road <Deluxe>" {
			t.Errorf("unexpected subject %q", email.Subject)
		}
		if !strings.Contains(email.Text, "The Beatles - Abbey Road <Deluxe> (Album, 1969-09-26)") {
			t.Errorf("text body missing release line:\n%s", email.Text)
		}
		if !strings.Contains(email.HTML, "Abbey Road &lt;Deluxe&gt;") {
			t.Errorf("html body should escape titles:\n%s", email.HTML)
		}
		if !strings.Contains(email.Text, "https://relwatch.example/settings") {
			t.Errorf("text body missing settings link:\n%s", email.Text)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		email, err := r.Render(user, []models.ReleaseListing{release, release})
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if email.Subject != "[relwatch] 2 New Releases" {
			t.Errorf("unexpected subject %q", email.Subject)
		}
	})

	t.Run("Empty batch", func(t *testing.T) {
		if _, err := r.Render(user, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestSMTPMailer(t *testing.T) {
	t.Run("buildMessage multipart", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{From: "info@relwatch.example", FromName: "relwatch"})
		msg := m.buildMessage(Email{To: "a@example.com", Subject: "hi", Text: "plain", HTML: "<p>rich</p>"})

		for _, want := range []string{
			"From: relwatch <info@relwatch.example>\r\n",
			"To: a@example.com\r\n",
			"Subject: hi\r\n",
			"multipart/alternative",
			"plain",
			"<p>rich</p>",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q", want)
			}
		}
	})

	t.Run("buildMessage text only", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{From: "info@relwatch.example"})
		msg := m.buildMessage(Email{To: "a@example.com", Subject: "hi", Text: "plain"})
		if strings.Contains(msg, "multipart") || !strings.Contains(msg, "text/plain") {
			t.Errorf("unexpected message:\n%s", msg)
		}
	})

	t.Run("buildMessage encodes headers", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{From: "info@relwatch.example"})
		msg := m.buildMessage(Email{
			To:      "a@example.com\r\nCc: b@example.com",
			Subject: "New Release: Björk - Homogenic\r\nBcc: evil@x.y",
			Text:    "Björk",
		})

		for _, injected := range []string{"\r\nBcc:", "\r\nCc:"} {
			if strings.Contains(msg, injected) {
				t.Errorf("message contains injected header %q:\n%s", injected, msg)
			}
		}

		line := msg[strings.Index(msg, "Subject: ")+len("Subject: "):]
		line = line[:strings.Index(line, "\r\n")]
		if !strings.HasPrefix(line, "=?utf-8?q?") {
			t.Errorf("expected Q-encoded subject, got %q", line)
		}

		subject, err := new(mime.WordDecoder).DecodeHeader(line)
		if err != nil {
			t.Fatalf("failed to decode subject: %v", err)
		}
		if subject != "New Release: Björk - Homogenic Bcc: evil@x.y" {
			t.Errorf("unexpected decoded subject %q", subject)
		}
	})

	t.Run("buildMessage quoted-printable bodies", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{From: "info@relwatch.example"})
		msg := m.buildMessage(Email{To: "a@example.com", Subject: "hi", Text: "Björk", HTML: "<p>Björk</p>"})

		if n := strings.Count(msg, "Content-Transfer-Encoding: quoted-printable\r\n"); n != 2 {
			t.Errorf("expected 2 quoted-printable parts, got %d", n)
		}
		if !strings.Contains(msg, "Bj=C3=B6rk") || strings.Contains(msg, "Björk") {
			t.Errorf("expected encoded body:\n%s", msg)
		}
	})

	t.Run("Send without host", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{})
		err := m.Send(context.Background(), Email{To: "a@example.com"})
		if !errors.Is(err, shared.ErrSendFailed) || !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrSendFailed and ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Send connection refused", func(t *testing.T) {
		m := NewSMTPMailer(shared.EmailConfig{Host: "127.0.0.1", Port: 1, From: "info@relwatch.example"})
		err := m.Send(context.Background(), Email{To: "a@example.com", Text: "x"})
		if !errors.Is(err, shared.ErrSendFailed) {
			t.Errorf("expected ErrSendFailed, got %v", err)
		}
	})
}
