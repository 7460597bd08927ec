package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relwatch/internal/shared"
)

const defaultLastFMURL = "https://ws.audioscrobbler.com/2.0/"

// Last.fm error code for an unknown user.
const lastFMInvalidResource = 6

// LastFMClient implements [Library] for the Last.fm 2.0 JSON API.
type LastFMClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *Breaker
	logger     *log.Logger
}

// NewLastFMClient creates a client. breaker may be nil.
func NewLastFMClient(baseURL, apiKey string, client *http.Client, breaker *Breaker, logger *log.Logger) *LastFMClient {
	if baseURL == "" {
		baseURL = defaultLastFMURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &LastFMClient{baseURL: baseURL, apiKey: apiKey, httpClient: client, breaker: breaker, logger: logger}
}

type lfmArtistPage struct {
	Artist []struct {
		Name string `json:"name"`
		MBID string `json:"mbid"`
	} `json:"artist"`
	Attr struct {
		TotalPages string `json:"totalPages"`
	} `json:"@attr"`
}

// GetArtists returns one page of a user's artists.
//
// The "overall" period reads the whole library via library.getArtists;
// other periods read the chart via user.getTopArtists.
func (l *LastFMClient) GetArtists(ctx context.Context, username, period string, page, limit int) ([]LibraryArtist, int, error) {
	if l.apiKey == "" {
		return nil, 0, fmt.Errorf("%w: last.fm api key", shared.ErrMissingCredentials)
	}

	params := url.Values{}
	params.Set("user", username)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var result struct {
		Library lfmArtistPage `json:"artists"`
		Top     lfmArtistPage `json:"topartists"`
	}

	method := "library.getArtists"
	if period != "" && period != "overall" {
		method = "user.getTopArtists"
		params.Set("period", period)
	}

	call := func() error {
		return l.doRequest(ctx, method, params, &result)
	}
	var err error
	if l.breaker != nil {
		err = l.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, 0, err
	}

	data := result.Library
	if method == "user.getTopArtists" {
		data = result.Top
	}

	artists := make([]LibraryArtist, 0, len(data.Artist))
	for _, a := range data.Artist {
		if a.Name == "" && a.MBID == "" {
			continue
		}
		artists = append(artists, LibraryArtist{Name: a.Name, MBID: shared.NormalizeMBID(a.MBID)})
	}

	totalPages, _ := strconv.Atoi(data.Attr.TotalPages)
	return artists, totalPages, nil
}

func (l *LastFMClient) doRequest(ctx context.Context, method string, params url.Values, result any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("method", method)
	q.Set("api_key", l.apiKey)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	l.logger.Debug("last.fm request", "method", method, "user", params.Get("user"))

	resp, err := l.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: malformed response (status %d): %v", shared.ErrTransient, resp.StatusCode, err)
	}

	var apiErr struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		if apiErr.Error == lastFMInvalidResource {
			return fmt.Errorf("%w: last.fm: %s", shared.ErrNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: last.fm error %d: %s", shared.ErrTransient, apiErr.Error, apiErr.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: last.fm API error: status %d", shared.ErrTransient, resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrTransient, err)
	}
	return nil
}
