// Package integration imports catalog movies and enriches them with credits
// and ratings.
package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/allocine"
	"github.com/Clark-Hu/cine-map/internal/catalog"
	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/repository"
)

// Outcome is the terminal state of a HandleMovie call.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeReplaced      Outcome = "replaced"
	OutcomeAlreadyExists Outcome = "already-exists"
	OutcomeNotFound      Outcome = "not-found"
)

// Result reports what HandleMovie did. MovieID is zero when the catalog does
// not know the movie.
type Result struct {
	Outcome    Outcome
	MovieID    int64
	IsNewMovie bool
}

// MovieStore is the movie persistence used by the pipeline.
type MovieStore interface {
	GetByTmdbID(ctx context.Context, tmdbID int64) (domain.Movie, error)
	Create(ctx context.Context, params repository.MovieParams) (domain.Movie, bool, error)
	UpdateByIdentity(ctx context.Context, params repository.MovieParams) (domain.Movie, error)
}

// PersonStore is the person persistence used by credits ingestion.
type PersonStore interface {
	InsertIgnoreConflicts(ctx context.Context, persons []domain.PersonDetails) (int64, error)
	FindByTmdbIDs(ctx context.Context, tmdbIDs []int64) ([]domain.Person, error)
	FindByNaturalKey(ctx context.Context, name string, birthday *time.Time) (domain.Person, error)
}

// CreditStore links persons to movies.
type CreditStore interface {
	InsertCast(ctx context.Context, rows []domain.Cast) (int64, error)
	InsertCrew(ctx context.Context, rows []domain.Crew) (int64, error)
}

// RatingStore persists scraped ratings.
type RatingStore interface {
	Upsert(ctx context.Context, params repository.RatingUpsertParams) (domain.AllocineRating, bool, error)
}

// Enqueuer schedules deferred enrichment.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind domain.JobKind, payload []byte) (uuid.UUID, error)
}

// Deps wires the pipeline collaborators.
type Deps struct {
	Catalog catalog.Client
	Scraper allocine.Scraper
	Movies  MovieStore
	Persons PersonStore
	Credits CreditStore
	Ratings RatingStore
	Queue   Enqueuer
	Logger  logrus.FieldLogger
}

// Pipeline orchestrates movie integration.
type Pipeline struct {
	catalog catalog.Client
	scraper allocine.Scraper
	movies  MovieStore
	persons PersonStore
	credits CreditStore
	ratings RatingStore
	queue   Enqueuer
	logger  logrus.FieldLogger
}

// New builds a Pipeline.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{
		catalog: deps.Catalog,
		scraper: deps.Scraper,
		movies:  deps.Movies,
		persons: deps.Persons,
		credits: deps.Credits,
		ratings: deps.Ratings,
		queue:   deps.Queue,
		logger:  logger,
	}
}

// HandleMovie imports the catalog movie tmdbID. An already imported movie is
// returned as-is unless replace is set. Credits and ratings are scheduled on
// the queue and never block or fail the call.
func (p *Pipeline) HandleMovie(ctx context.Context, tmdbID int64, replace bool) (Result, error) {
	log := p.logger.WithField("tmdb_id", tmdbID)

	existing, err := p.movies.GetByTmdbID(ctx, tmdbID)
	switch {
	case err == nil && !replace:
		return Result{Outcome: OutcomeAlreadyExists, MovieID: existing.ID}, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return Result{}, fmt.Errorf("lookup movie: %w", err)
	}
	hasExisting := err == nil

	details, err := p.catalog.GetMovie(ctx, tmdbID)
	if errors.Is(err, catalog.ErrNotFound) {
		log.Info("integration: movie unknown to catalog")
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("fetch movie: %w", err)
	}

	params := movieParams(details)
	var (
		movie  domain.Movie
		result Result
	)
	if hasExisting {
		movie, err = p.movies.UpdateByIdentity(ctx, params)
		if err != nil {
			return Result{}, fmt.Errorf("replace movie: %w", err)
		}
		result = Result{Outcome: OutcomeReplaced, MovieID: movie.ID}
	} else {
		var created bool
		movie, created, err = p.movies.Create(ctx, params)
		if err != nil {
			return Result{}, fmt.Errorf("create movie: %w", err)
		}
		result = Result{Outcome: OutcomeCreated, MovieID: movie.ID, IsNewMovie: created}
		if !created {
			// Same natural key imported from another source, or a lost race.
			if movie, err = p.movies.UpdateByIdentity(ctx, params); err != nil {
				return Result{}, fmt.Errorf("backfill movie: %w", err)
			}
			result = Result{Outcome: OutcomeAlreadyExists, MovieID: movie.ID}
		}
	}

	log.WithFields(logrus.Fields{"movie_id": movie.ID, "outcome": string(result.Outcome)}).Info("integration: movie stored")
	p.scheduleEnrichment(ctx, movie)
	return result, nil
}

func (p *Pipeline) scheduleEnrichment(ctx context.Context, movie domain.Movie) {
	if p.queue == nil {
		return
	}
	tmdbID := int64(0)
	if movie.TmdbID != nil {
		tmdbID = *movie.TmdbID
	}
	log := p.logger.WithFields(logrus.Fields{"movie_id": movie.ID, "tmdb_id": tmdbID})

	jobs := []struct {
		kind    domain.JobKind
		payload any
	}{
		{domain.JobKindCredits, domain.CreditsPayload{TmdbID: tmdbID, MovieID: movie.ID}},
		{domain.JobKindAllocine, domain.AllocinePayload{MovieID: movie.ID, TmdbID: tmdbID, Title: movie.Title, ReleaseDate: movie.ReleaseDate}},
	}
	for _, j := range jobs {
		raw, err := json.Marshal(j.payload)
		if err != nil {
			log.WithError(err).WithField("kind", string(j.kind)).Error("integration: encode job payload")
			continue
		}
		// Enrichment must not fail the request that created the movie.
		if _, err := p.queue.Enqueue(context.WithoutCancel(ctx), j.kind, raw); err != nil {
			log.WithError(err).WithField("kind", string(j.kind)).Error("integration: enqueue enrichment")
		}
	}
}

func movieParams(d domain.MovieDetails) repository.MovieParams {
	tmdbID := d.TmdbID
	params := repository.MovieParams{
		Title:       d.Title,
		ReleaseDate: d.ReleaseDate,
		TmdbID:      &tmdbID,
		Poster:      d.Poster,
	}
	if d.OriginalLanguage != "" {
		params.OriginalLanguage = &d.OriginalLanguage
	}
	if d.Overview != "" {
		params.Overview = &d.Overview
	}
	if d.Tagline != "" {
		params.Tagline = &d.Tagline
	}
	if d.Runtime > 0 {
		runtime := d.Runtime
		params.Duration = &runtime
	}
	return params
}
