// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/relwatch/internal/services"
	"github.com/desertthunder/relwatch/internal/shared"
)

// MockMetadataClient is an in-memory [services.MetadataClient].
//
// Failures maps an operation name ("GetArtist", "GetReleaseGroups", "SearchArtists", "GetReleases"),
// optionally suffixed with "@offset", to how many upcoming calls fail with [shared.ErrTransient].
type MockMetadataClient struct {
	mu sync.Mutex

	Artists       map[string]services.ArtistData         // keyed by requested mbid; ID may differ for merged artists
	ReleaseGroups map[string][]services.ReleaseGroupData // keyed by artist mbid
	Searches      map[string][]services.ArtistData       // keyed by query
	Releases      map[string][]services.ReleaseData      // keyed by release group mbid
	Failures      map[string]int
	Calls         map[string]int
}

// NewMockMetadataClient creates an empty catalog.
func NewMockMetadataClient() *MockMetadataClient {
	return &MockMetadataClient{
		Artists:       map[string]services.ArtistData{},
		ReleaseGroups: map[string][]services.ReleaseGroupData{},
		Searches:      map[string][]services.ArtistData{},
		Releases:      map[string][]services.ReleaseData{},
		Failures:      map[string]int{},
		Calls:         map[string]int{},
	}
}

// AddArtist registers an artist under its own id.
func (m *MockMetadataClient) AddArtist(a services.ArtistData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Artists[a.ID] = a
}

// SetReleaseGroups replaces an artist's upstream release groups.
func (m *MockMetadataClient) SetReleaseGroups(artistMBID string, groups ...services.ReleaseGroupData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseGroups[artistMBID] = groups
}

// FailNext makes the next n calls of op fail transiently.
func (m *MockMetadataClient) FailNext(op string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[op] = n
}

// CallCount returns how many times op was invoked.
func (m *MockMetadataClient) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

func (m *MockMetadataClient) call(op string, offset int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls[op]++
	for _, key := range []string{fmt.Sprintf("%s@%d", op, offset), op} {
		if m.Failures[key] > 0 {
			m.Failures[key]--
			return fmt.Errorf("%w: mock %s failure", shared.ErrTransient, key)
		}
	}
	return nil
}

func (m *MockMetadataClient) GetArtist(ctx context.Context, mbid string) (*services.ArtistData, error) {
	if err := m.call("GetArtist", 0); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.Artists[mbid]
	if !ok {
		return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, mbid)
	}
	return &a, nil
}

func (m *MockMetadataClient) GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]services.ReleaseGroupData, error) {
	if err := m.call("GetReleaseGroups", offset); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.ReleaseGroups[artistMBID]
	if !ok {
		if _, known := m.Artists[artistMBID]; !known {
			return nil, fmt.Errorf("%w: artist %s", shared.ErrNotFound, artistMBID)
		}
	}
	return page(groups, limit, offset), nil
}

func (m *MockMetadataClient) SearchArtists(ctx context.Context, query string, limit, offset int) ([]services.ArtistData, int, error) {
	if err := m.call("SearchArtists", offset); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	results := m.Searches[query]
	return page(results, limit, offset), len(results), nil
}

func (m *MockMetadataClient) GetReleases(ctx context.Context, releaseGroupMBID string, limit, offset int) ([]services.ReleaseData, error) {
	if err := m.call("GetReleases", offset); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return page(m.Releases[releaseGroupMBID], limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

// MockLibrary is an in-memory [services.Library] keyed by username.
type MockLibrary struct {
	Artists  map[string][]services.LibraryArtist
	Failures int // upcoming calls that fail transiently
	Calls    int
}

func (m *MockLibrary) GetArtists(ctx context.Context, username, period string, page, limit int) ([]services.LibraryArtist, int, error) {
	m.Calls++
	if m.Failures > 0 {
		m.Failures--
		return nil, 0, fmt.Errorf("%w: mock library failure", shared.ErrTransient)
	}

	all, ok := m.Artists[username]
	if !ok {
		return nil, 0, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}

	pages := (len(all) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(all) {
		return []services.LibraryArtist{}, pages, nil
	}
	end := min(start+limit, len(all))
	return all[start:end], pages, nil
}

// MockMailer records sent emails. FailNext makes upcoming sends fail.
type MockMailer struct {
	Sent     []services.Email
	FailNext int
	Attempts int
}

func (m *MockMailer) Send(ctx context.Context, email services.Email) error {
	m.Attempts++
	if m.FailNext > 0 {
		m.FailNext--
		return fmt.Errorf("%w: mock mailer failure", shared.ErrSendFailed)
	}
	m.Sent = append(m.Sent, email)
	return nil
}

// SentTo returns the emails delivered to an address.
func (m *MockMailer) SentTo(address string) []services.Email {
	var out []services.Email
	for _, e := range m.Sent {
		if strings.EqualFold(e.To, address) {
			out = append(out, e)
		}
	}
	return out
}

// MockCoverFetcher records requested release groups.
type MockCoverFetcher struct {
	Fetched []string
	Err     error
}

func (m *MockCoverFetcher) FetchCover(ctx context.Context, releaseGroupMBID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Fetched = append(m.Fetched, releaseGroupMBID)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
