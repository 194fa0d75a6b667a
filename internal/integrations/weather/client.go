package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"weather-agent/internal/domain"
)

const (
	DefaultGeocodeBaseURL = "https://geocode.xyz"
	DefaultWeatherBaseURL = "https://api.weather.gov"
	DefaultUserAgent      = "weather-agent"

	acceptLDJSON   = "application/ld+json"
	defaultTimeout = 10 * time.Second
)

// ErrMalformedPayload is returned when a response lacks the field a stage needs.
var ErrMalformedPayload = domain.ErrMalformedPayload

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("weather: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the geocode.xyz geoparser and the weather.gov API.
type Client struct {
	geocodeBaseURL string
	weatherBaseURL string
	userAgent      string
	httpClient     *http.Client

	// identical GETs in flight at the same time share one round trip
	inflight singleflight.Group
}

type Option func(*Client)

func WithGeocodeBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.geocodeBaseURL = strings.TrimSpace(baseURL)
	}
}

func WithWeatherBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.weatherBaseURL = strings.TrimSpace(baseURL)
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(userAgent)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client pointed at the public endpoints unless overridden.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		geocodeBaseURL: DefaultGeocodeBaseURL,
		weatherBaseURL: DefaultWeatherBaseURL,
		userAgent:      DefaultUserAgent,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.userAgent == "" {
		return nil, errors.New("weather: user agent must not be empty")
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func geocodeURL(baseURL, text string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultGeocodeBaseURL
	}
	return base + "/?scantext=" + url.QueryEscape(text) + "&geoitgo=Geoparse&geoit=JSON&region=US"
}

func pointsURL(baseURL string, geo domain.GeoResult) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultWeatherBaseURL
	}
	return base + "/points/" + geo.LatitudeText + "," + geo.LongitudeText
}

// Geocode resolves the first place mentioned in free text.
func (c *Client) Geocode(ctx context.Context, text string) (domain.GeoResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.GeoResult{}, errors.New("weather: geocode text must not be empty")
	}
	raw, err := c.get(ctx, geocodeURL(c.geocodeBaseURL, text))
	if err != nil {
		return domain.GeoResult{}, fmt.Errorf("weather: geocode request failed: %w", err)
	}
	return decodeGeocode(raw)
}

// ForecastEndpoint resolves the gridpoint forecast URL covering geo.
func (c *Client) ForecastEndpoint(ctx context.Context, geo domain.GeoResult) (domain.ForecastEndpoint, error) {
	if geo.LatitudeText == "" || geo.LongitudeText == "" {
		return "", fmt.Errorf("%w: coordinates are empty", ErrMalformedPayload)
	}
	raw, err := c.get(ctx, pointsURL(c.weatherBaseURL, geo))
	if err != nil {
		return "", fmt.Errorf("weather: points request failed: %w", err)
	}
	return decodePoint(raw)
}

// ShortForecast fetches the first period's short description from endpoint.
func (c *Client) ShortForecast(ctx context.Context, endpoint domain.ForecastEndpoint) (string, error) {
	u, err := url.Parse(string(endpoint))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: forecast endpoint %q is not an absolute URL", ErrMalformedPayload, endpoint)
	}
	raw, err := c.get(ctx, u.String())
	if err != nil {
		return "", fmt.Errorf("weather: forecast request failed: %w", err)
	}
	return decodeForecast(raw)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	v, err, _ := c.inflight.Do(target, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", acceptLDJSON)
		return c.doJSONRequest(req, target)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
