// Package tmdb is a small client for the TMDB v3 REST API.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"

	"movie-app/internal/metrics"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

var (
	ErrNotFound      = errors.New("tmdb: movie not found")
	ErrNotConfigured = errors.New("tmdb: api key not configured")
)

// StatusError is a non-200 answer from TMDB.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API returned status %d: %s", e.StatusCode, e.Body)
}

// Client is the TMDB API client.
type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

func NewClient(apiKey, baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
		attempts: 3,
		delay:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ---- response types ----

type DiscoverResponse struct {
	Page         int            `json:"page"`
	Results      []DiscoverItem `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

type DiscoverItem struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Popularity float64 `json:"popularity"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type CrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// MovieDetail is /movie/{id} with credits appended.
type MovieDetail struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	Tagline          string  `json:"tagline"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          int     `json:"runtime"`
	Genres           []Genre `json:"genres"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	OriginalLanguage string  `json:"original_language"`
	Adult            bool    `json:"adult"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Credits          Credits `json:"credits"`
}

// ---- client methods ----

// GetMovie fetches one movie with its credits.
func (c *Client) GetMovie(ctx context.Context, tmdbID int64) (*MovieDetail, error) {
	q := url.Values{}
	q.Set("append_to_response", "credits")

	var detail MovieDetail
	if err := c.get(ctx, "movie", "/movie/"+strconv.FormatInt(tmdbID, 10), q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// DiscoverPopular lists one page of movies sorted by popularity.
func (c *Client) DiscoverPopular(ctx context.Context, page int) (*DiscoverResponse, error) {
	q := url.Values{}
	q.Set("sort_by", "popularity.desc")
	q.Set("page", strconv.Itoa(page))

	var result DiscoverResponse
	if err := c.get(ctx, "discover", "/discover/movie", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// get performs a GET with retries on network errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	q.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + q.Encode()

	c.logger.DebugContext(ctx, "Fetching from TMDB", slog.String("endpoint", endpoint), slog.String("path", path))
	err := retry.Do(
		func() error { return c.doGet(ctx, reqURL, dst) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WarnContext(ctx, "Retrying TMDB request",
				slog.String("endpoint", endpoint), slog.Uint64("attempt", uint64(n+1)), slog.String("error", err.Error()))
		}),
	)
	metrics.RecordTMDBRequest(endpoint, err)
	return err
}

func (c *Client) doGet(ctx context.Context, reqURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build TMDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode TMDB response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}
