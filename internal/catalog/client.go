package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// ErrNotFound is returned when the catalog cannot find the requested resource.
var ErrNotFound = errors.New("catalog: not found")

// StatusError reports an unexpected upstream status other than 404.
type StatusError struct {
	StatusCode int
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: upstream returned %d for %s", e.StatusCode, e.Path)
}

// ValidationError reports a payload that does not match the expected schema.
type ValidationError struct {
	Resource string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: invalid %s payload: %v", e.Resource, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Client defines the contract for querying the external movie catalog.
type Client interface {
	GetMovie(ctx context.Context, tmdbID int64) (domain.MovieDetails, error)
	GetCredits(ctx context.Context, tmdbID int64) (domain.Credits, error)
	GetPerson(ctx context.Context, tmdbID int64) (domain.PersonDetails, error)
	GetPersons(ctx context.Context, tmdbIDs []int64) ([]domain.PersonDetails, error)
	Search(ctx context.Context, query string) ([]domain.MovieSummary, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL      string
	AccessToken  string
	Language     string
	ImageBaseURL string
	Timeout      time.Duration
	// BatchSize caps in-flight person requests in GetPersons.
	BatchSize  int
	BatchDelay time.Duration
	// RateLimit is expressed in requests per second; zero disables it.
	RateLimit float64
	Logger    logrus.FieldLogger
}

// HTTPClient implements Client over the TMDB v3 HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	language   string
	imageBase  string
	batchSize  int
	batchDelay time.Duration
	limiter    *rate.Limiter
	client     *http.Client
	validate   *validator.Validate
	logger     logrus.FieldLogger
}

// NewHTTPClient constructs a new HTTP-backed catalog client.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &HTTPClient{
		baseURL:    parsed,
		token:      opts.AccessToken,
		language:   opts.Language,
		imageBase:  strings.TrimRight(opts.ImageBaseURL, "/"),
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		limiter:    limiter,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
				MaxIdleConnsPerHost:   opts.BatchSize,
			},
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}, nil
}

// GetMovie retrieves movie details by catalog id.
func (c *HTTPClient) GetMovie(ctx context.Context, tmdbID int64) (domain.MovieDetails, error) {
	var payload movieDetailsPayload
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(tmdbID, 10), nil, &payload); err != nil {
		return domain.MovieDetails{}, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return domain.MovieDetails{}, &ValidationError{Resource: "movie", Err: err}
	}
	releaseDate, err := time.Parse(dateLayout, payload.ReleaseDate)
	if err != nil {
		return domain.MovieDetails{}, &ValidationError{Resource: "movie", Err: err}
	}
	return domain.MovieDetails{
		TmdbID:           payload.ID,
		Title:            payload.Title,
		OriginalTitle:    payload.OriginalTitle,
		OriginalLanguage: payload.OriginalLanguage,
		Overview:         payload.Overview,
		Poster:           c.imageURL(payload.PosterPath),
		Backdrop:         c.imageURL(payload.BackdropPath),
		ReleaseDate:      releaseDate,
		Runtime:          payload.Runtime,
		Tagline:          payload.Tagline,
	}, nil
}

// GetCredits retrieves the cast and crew of a movie. Crew jobs are mapped to
// the job enumeration; unmatched jobs come back as domain.JobUnknown.
func (c *HTTPClient) GetCredits(ctx context.Context, tmdbID int64) (domain.Credits, error) {
	var payload creditsPayload
	if err := c.get(ctx, "/movie/"+strconv.FormatInt(tmdbID, 10)+"/credits", nil, &payload); err != nil {
		return domain.Credits{}, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return domain.Credits{}, &ValidationError{Resource: "credits", Err: err}
	}

	credits := domain.Credits{
		Cast: make([]domain.CastCredit, 0, len(payload.Cast)),
		Crew: make([]domain.CrewCredit, 0, len(payload.Crew)),
	}
	for _, member := range payload.Cast {
		credits.Cast = append(credits.Cast, domain.CastCredit{
			TmdbID:    member.ID,
			Character: member.Character,
			Order:     member.Order,
		})
	}
	for _, member := range payload.Crew {
		credits.Crew = append(credits.Crew, domain.CrewCredit{
			TmdbID: member.ID,
			Job:    JobFromCrewJob(member.Job),
		})
	}
	return credits, nil
}

// GetPerson retrieves person details by catalog id.
func (c *HTTPClient) GetPerson(ctx context.Context, tmdbID int64) (domain.PersonDetails, error) {
	var payload personPayload
	if err := c.get(ctx, "/person/"+strconv.FormatInt(tmdbID, 10), nil, &payload); err != nil {
		return domain.PersonDetails{}, err
	}
	return c.convertPerson(payload)
}

// GetPersons fetches every requested person with bounded concurrency. Persons
// the catalog no longer knows are skipped; any other failure aborts the call.
func (c *HTTPClient) GetPersons(ctx context.Context, tmdbIDs []int64) ([]domain.PersonDetails, error) {
	found := make([]*domain.PersonDetails, len(tmdbIDs))
	err := forEachBatch(ctx, tmdbIDs, c.batchSize, c.batchDelay, func(ctx context.Context, idx int, id int64) error {
		person, err := c.GetPerson(ctx, id)
		if errors.Is(err, ErrNotFound) {
			c.logger.WithField("tmdb_person_id", id).Warn("catalog: person not found, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get person %d: %w", id, err)
		}
		found[idx] = &person
		return nil
	})
	if err != nil {
		return nil, err
	}

	persons := make([]domain.PersonDetails, 0, len(found))
	for _, p := range found {
		if p != nil {
			persons = append(persons, *p)
		}
	}
	return persons, nil
}

// Search looks up movies by title.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]domain.MovieSummary, error) {
	q := url.Values{}
	q.Set("query", query)
	var payload searchPayload
	if err := c.get(ctx, "/search/movie", q, &payload); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(payload); err != nil {
		return nil, &ValidationError{Resource: "search", Err: err}
	}
	results := make([]domain.MovieSummary, 0, len(payload.Results))
	for _, hit := range payload.Results {
		results = append(results, domain.MovieSummary{
			TmdbID:        hit.ID,
			Title:         hit.Title,
			OriginalTitle: hit.OriginalTitle,
			Overview:      hit.Overview,
			Poster:        c.imageURL(hit.PosterPath),
			ReleaseDate:   hit.ReleaseDate,
		})
	}
	return results, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, dst interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	endpoint := c.baseURL.JoinPath(path)
	if query == nil {
		query = url.Values{}
	}
	if c.language != "" {
		query.Set("language", c.language)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return &ValidationError{Resource: strings.TrimPrefix(path, "/"), Err: err}
		}
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		c.logger.WithFields(logrus.Fields{"status": resp.StatusCode, "path": path}).Warn("catalog: unexpected status")
		return &StatusError{StatusCode: resp.StatusCode, Path: path}
	}
}

func (c *HTTPClient) convertPerson(payload personPayload) (domain.PersonDetails, error) {
	if err := c.validate.Struct(payload); err != nil {
		return domain.PersonDetails{}, &ValidationError{Resource: "person", Err: err}
	}
	gender, err := GenderFromCode(payload.Gender)
	if err != nil {
		return domain.PersonDetails{}, &ValidationError{Resource: "person", Err: err}
	}
	birthday, err := parseOptionalDate(payload.Birthday)
	if err != nil {
		return domain.PersonDetails{}, &ValidationError{Resource: "person", Err: err}
	}
	deathday, err := parseOptionalDate(payload.Deathday)
	if err != nil {
		return domain.PersonDetails{}, &ValidationError{Resource: "person", Err: err}
	}
	return domain.PersonDetails{
		TmdbID:   payload.ID,
		Name:     payload.Name,
		Birthday: birthday,
		Deathday: deathday,
		Gender:   gender,
		KnownFor: JobFromDepartment(payload.KnownForDepartment),
		Picture:  c.imageURL(payload.ProfilePath),
	}, nil
}

// imageURL resolves a catalog relative image path to an absolute URL.
func (c *HTTPClient) imageURL(path *string) *string {
	if path == nil || strings.TrimSpace(*path) == "" {
		return nil
	}
	resolved := c.imageBase + "/" + strings.TrimLeft(*path, "/")
	return &resolved
}

const dateLayout = "2006-01-02"

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

type movieDetailsPayload struct {
	ID               int64   `json:"id" validate:"required"`
	Title            string  `json:"title" validate:"required"`
	OriginalTitle    string  `json:"original_title"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date" validate:"required"`
	Runtime          int     `json:"runtime" validate:"gte=0"`
	Tagline          string  `json:"tagline"`
}

type creditsPayload struct {
	Cast []castPayload `json:"cast" validate:"dive"`
	Crew []crewPayload `json:"crew" validate:"dive"`
}

type castPayload struct {
	ID        int64  `json:"id" validate:"required"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type crewPayload struct {
	ID  int64  `json:"id" validate:"required"`
	Job string `json:"job"`
}

type personPayload struct {
	ID                 int64   `json:"id" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	Birthday           *string `json:"birthday"`
	Deathday           *string `json:"deathday"`
	Gender             int     `json:"gender"`
	ProfilePath        *string `json:"profile_path"`
	KnownForDepartment string  `json:"known_for_department"`
}

type searchPayload struct {
	Results []searchHitPayload `json:"results" validate:"dive"`
}

type searchHitPayload struct {
	ID            int64   `json:"id" validate:"required"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	PosterPath    *string `json:"poster_path"`
	ReleaseDate   string  `json:"release_date"`
}
