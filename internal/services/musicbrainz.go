package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/shared"
)

const defaultMusicBrainzURL = "https://musicbrainz.org/ws/2"

// MusicBrainzClient implements [MetadataClient] for the MusicBrainz ws/2 JSON API.
type MusicBrainzClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *RateLimiter
	breaker    *Breaker
	logger     *log.Logger
}

// NewMusicBrainzClient creates a client. The limiter is required and shared with the
// notification dispatcher; breaker may be nil.
func NewMusicBrainzClient(baseURL, userAgent string, client *http.Client, limiter *RateLimiter, breaker *Breaker, logger *log.Logger) *MusicBrainzClient {
	if baseURL == "" {
		baseURL = defaultMusicBrainzURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = NewRateLimiter(0)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	return &MusicBrainzClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
		limiter:    limiter,
		breaker:    breaker,
		logger:     logger,
	}
}

type mbArtist struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort-name"`
	Disambiguation string `json:"disambiguation"`
}

func (a mbArtist) data() ArtistData {
	return ArtistData{
		ID:             shared.NormalizeMBID(a.ID),
		Name:           a.Name,
		SortName:       a.SortName,
		Disambiguation: a.Disambiguation,
	}
}

type mbReleaseGroup struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	PrimaryType      string   `json:"primary-type"`
	SecondaryTypes   []string `json:"secondary-types"`
	FirstReleaseDate string   `json:"first-release-date"`
}

type mbRelease struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// GetArtist looks up an artist.
//
// Calls GET /artist/{mbid}
func (m *MusicBrainzClient) GetArtist(ctx context.Context, mbid string) (*ArtistData, error) {
	var result mbArtist
	if err := m.doRequest(ctx, "/artist/"+url.PathEscape(shared.NormalizeMBID(mbid)), nil, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, fmt.Errorf("%w: artist response without id", shared.ErrTransient)
	}

	data := result.data()
	return &data, nil
}

// GetReleaseGroups browses one page of an artist's release groups.
//
// Calls GET /release-group?artist={mbid}
func (m *MusicBrainzClient) GetReleaseGroups(ctx context.Context, artistMBID string, limit, offset int) ([]ReleaseGroupData, error) {
	var result struct {
		ReleaseGroups []mbReleaseGroup `json:"release-groups"`
	}

	params := pageParams(limit, offset)
	params.Set("artist", shared.NormalizeMBID(artistMBID))
	if err := m.doRequest(ctx, "/release-group", params, &result); err != nil {
		return nil, err
	}

	groups := make([]ReleaseGroupData, len(result.ReleaseGroups))
	for i, rg := range result.ReleaseGroups {
		groups[i] = ReleaseGroupData{
			ID:               shared.NormalizeMBID(rg.ID),
			Title:            rg.Title,
			PrimaryType:      rg.PrimaryType,
			SecondaryTypes:   rg.SecondaryTypes,
			FirstReleaseDate: rg.FirstReleaseDate,
		}
	}
	return groups, nil
}

// SearchArtists runs a free-text artist search.
//
// Calls GET /artist?query={query}
func (m *MusicBrainzClient) SearchArtists(ctx context.Context, query string, limit, offset int) ([]ArtistData, int, error) {
	var result struct {
		Count   int        `json:"count"`
		Artists []mbArtist `json:"artists"`
	}

	params := pageParams(limit, offset)
	params.Set("query", query)
	if err := m.doRequest(ctx, "/artist", params, &result); err != nil {
		return nil, 0, err
	}

	artists := make([]ArtistData, len(result.Artists))
	for i, a := range result.Artists {
		artists[i] = a.data()
	}
	return artists, result.Count, nil
}

// GetReleases browses one page of releases in a release group.
//
// Calls GET /release?release-group={mbid}
func (m *MusicBrainzClient) GetReleases(ctx context.Context, releaseGroupMBID string, limit, offset int) ([]ReleaseData, error) {
	var result struct {
		Releases []mbRelease `json:"releases"`
	}

	params := pageParams(limit, offset)
	params.Set("release-group", shared.NormalizeMBID(releaseGroupMBID))
	if err := m.doRequest(ctx, "/release", params, &result); err != nil {
		return nil, err
	}

	releases := make([]ReleaseData, len(result.Releases))
	for i, r := range result.Releases {
		releases[i] = ReleaseData{ID: shared.NormalizeMBID(r.ID), Date: r.Date}
	}
	return releases, nil
}

func pageParams(limit, offset int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	return params
}

// doRequest waits on the limiter, then performs a GET through the breaker and decodes the JSON body into result.
func (m *MusicBrainzClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("fmt", "json")
	apiURL := m.baseURL + endpoint + "?" + params.Encode()

	call := func() error {
		return m.fetch(ctx, apiURL, result)
	}
	if m.breaker != nil {
		return m.breaker.Execute(call)
	}
	return call()
}

func (m *MusicBrainzClient) fetch(ctx context.Context, apiURL string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	m.logger.Debug("musicbrainz request", "url", apiURL)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusBadRequest:
		// MusicBrainz answers 400 for ids that are not valid MBIDs.
		return fmt.Errorf("%w: %s (status %d)", shared.ErrNotFound, req.URL.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var errResp struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%w: musicbrainz API error (status %d): %s", shared.ErrTransient, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("%w: musicbrainz API error: status %d", shared.ErrTransient, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: malformed response: %v", shared.ErrTransient, err)
	}

	return nil
}
