// Package geocoder turns free-text location queries into coordinates using
// the OneMap search API.
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"bottlecangowhere/pkg/geo"
)

const DefaultBaseURL = "https://www.onemap.gov.sg/api/common/elastic/search"

var (
	ErrInvalidQuery      = errors.New("invalid query: only letters, digits and spaces are allowed")
	ErrNoResults         = errors.New("no results found")
	ErrMalformedResponse = errors.New("malformed geocoder response")
)

// Geocoder resolves a query into a point.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

// Client calls the OneMap elastic search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

var _ Geocoder = (*Client)(nil)

// New returns a Client. A zero timeout means the caller's context alone
// bounds each request.
func New(baseURL string, timeout time.Duration, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("geocoder: bad base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
	}, nil
}

type searchResponse struct {
	Found   int            `json:"found"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Latitude  string `json:"LATITUDE"`
	Longitude string `json:"LONGITUDE"`
}

// Geocode validates query locally and, if it passes, returns the first
// search hit.
func (c *Client) Geocode(ctx context.Context, query string) (geo.Point, error) {
	query = strings.TrimSpace(query)
	if err := ValidateQuery(query); err != nil {
		return geo.Point{}, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query), nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocoder: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocoder: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return geo.Point{}, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Point{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Found <= 0 || len(body.Results) == 0 {
		return geo.Point{}, ErrNoResults
	}

	first := body.Results[0]
	lat, err := strconv.ParseFloat(strings.TrimSpace(first.Latitude), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: latitude %q", ErrMalformedResponse, first.Latitude)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(first.Longitude), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: longitude %q", ErrMalformedResponse, first.Longitude)
	}
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("%w: coordinates out of range", ErrMalformedResponse)
	}
	return p, nil
}

func (c *Client) searchURL(query string) string {
	v := url.Values{}
	v.Set("searchVal", query)
	v.Set("returnGeom", "Y")
	v.Set("getAddrDetails", "Y")
	v.Set("pageNum", "1")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + v.Encode()
}

// ValidateQuery accepts non-empty queries made of letters, digits and spaces.
func ValidateQuery(query string) error {
	hasContent := false
	for _, r := range query {
		switch {
		case r == ' ':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			hasContent = true
		default:
			return ErrInvalidQuery
		}
	}
	if !hasContent {
		return ErrInvalidQuery
	}
	return nil
}

// IsLookupFailure reports whether err means the query could not be
// resolved and the user should try a different one.
func IsLookupFailure(err error) bool {
	return errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrNoResults) || errors.Is(err, ErrMalformedResponse)
}
