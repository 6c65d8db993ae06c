// Package google provides a client for the Google Places web service
// (text search and place details).
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// StatusOperational is the business_status of an open business.
const StatusOperational = "OPERATIONAL"

// detailsFields is the field mask requested from the details endpoint.
const detailsFields = "name,formatted_phone_number,international_phone_number,website," +
	"formatted_address,geometry,rating,user_ratings_total,business_status"

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
	PlaceDetails(ctx context.Context, placeID string) (*DetailsResponse, error)
}

// TextSearchRequest holds the parameters of one text search page.
type TextSearchRequest struct {
	Query     string
	Language  string
	PageToken string
}

// TextSearchResponse is one page of text search results.
type TextSearchResponse struct {
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// Place is a text search result summary.
type Place struct {
	PlaceID          string    `json:"place_id,omitempty"`
	Name             string    `json:"name,omitempty"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	BusinessStatus   string    `json:"business_status,omitempty"`
	Geometry         *Geometry `json:"geometry,omitempty"`
}

// DetailsResponse wraps a place details result.
type DetailsResponse struct {
	Result PlaceDetails `json:"result"`
	Status string       `json:"status,omitempty"`
}

// PlaceDetails holds the contact and reputation fields of one place.
// Numeric fields are pointers so that absence is distinguishable from zero.
type PlaceDetails struct {
	Name                     string    `json:"name,omitempty"`
	FormattedPhoneNumber     string    `json:"formatted_phone_number,omitempty"`
	InternationalPhoneNumber string    `json:"international_phone_number,omitempty"`
	Website                  string    `json:"website,omitempty"`
	FormattedAddress         string    `json:"formatted_address,omitempty"`
	Rating                   *float64  `json:"rating,omitempty"`
	UserRatingsTotal         *int      `json:"user_ratings_total,omitempty"`
	BusinessStatus           string    `json:"business_status,omitempty"`
	Geometry                 *Geometry `json:"geometry,omitempty"`
}

// Geometry holds a place's coordinates.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a latitude/longitude pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// APIError is returned when the API answers with a non-200 status. It is
// not retried.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

var _ resilience.StatusError = (*APIError)(nil)

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	}

	var result TextSearchResponse
	if err := c.get(ctx, "/textsearch/json", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string) (*DetailsResponse, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)

	var result DetailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "google: send request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "google: read response"))
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}
