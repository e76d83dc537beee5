// Package maps implements the draft to published lifecycle of curated maps.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/integration"
	"github.com/Clark-Hu/cine-map/internal/repository"
)

var (
	// ErrNotFound is returned when the map, or the movie to add, does not exist.
	ErrNotFound = errors.New("maps: not found")
	// ErrNotEditable is returned for any mutation of a published map.
	ErrNotEditable = errors.New("maps: not editable")
)

// InvalidToSaveError rejects a publication, listing the failing fields in
// the order title, description, movies.
type InvalidToSaveError struct {
	Fields []string
}

func (e *InvalidToSaveError) Error() string {
	return "maps: invalid to save: " + strings.Join(e.Fields, ", ")
}

// MapPatch is a partial update; nil fields keep their current value.
type MapPatch struct {
	Title       *string
	Description *string
	IsDraft     *bool
}

// Rules are the publication thresholds.
type Rules struct {
	MinTitleLength       int
	MinDescriptionLength int
	MinMovies            int
}

// DefaultRules returns the standard publication thresholds.
func DefaultRules() Rules {
	return Rules{MinTitleLength: 3, MinDescriptionLength: 5, MinMovies: 3}
}

// MovieHandler imports a catalog movie on demand.
type MovieHandler interface {
	HandleMovie(ctx context.Context, tmdbID int64, replace bool) (integration.Result, error)
}

// Service manages maps.
type Service struct {
	repo   *repository.Repository
	movies MovieHandler
	rules  Rules
	logger logrus.FieldLogger
}

// NewService builds a map service.
func NewService(repo *repository.Repository, movies MovieHandler, rules Rules, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{repo: repo, movies: movies, rules: rules, logger: logger}
}

// Create starts a new empty draft.
func (s *Service) Create(ctx context.Context) (domain.MapView, error) {
	m, err := s.repo.Maps.Create(ctx)
	if err != nil {
		return domain.MapView{}, fmt.Errorf("create map: %w", err)
	}
	s.logger.WithField("map_id", m.ID).Info("maps: created")
	return domain.MapView{Map: m, Movies: []domain.Movie{}}, nil
}

// FindOne returns a map with its movies.
func (s *Service) FindOne(ctx context.Context, id int64) (domain.MapView, error) {
	m, err := s.repo.Maps.Get(ctx, id)
	if err != nil {
		return domain.MapView{}, translate(err)
	}
	views, err := s.withMovies(ctx, []domain.Map{m})
	if err != nil {
		return domain.MapView{}, err
	}
	return views[0], nil
}

// FindAll returns every map with its movies.
func (s *Service) FindAll(ctx context.Context) ([]domain.MapView, error) {
	list, err := s.repo.Maps.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	return s.withMovies(ctx, list)
}

// Update merges patch over a draft map. When the merged state is published
// the map must satisfy the publication rules, otherwise nothing changes and
// an *InvalidToSaveError lists the failing fields.
func (s *Service) Update(ctx context.Context, id int64, patch MapPatch) (domain.MapView, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Maps.GetForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !current.IsDraft {
			return ErrNotEditable
		}

		merged := repository.MapUpdateParams{
			Title:       current.Title,
			Description: current.Description,
			IsDraft:     current.IsDraft,
		}
		if patch.Title != nil {
			merged.Title = *patch.Title
		}
		if patch.Description != nil {
			merged.Description = *patch.Description
		}
		if patch.IsDraft != nil {
			merged.IsDraft = *patch.IsDraft
		}

		if !merged.IsDraft {
			count, err := tx.Maps.CountMovies(ctx, id)
			if err != nil {
				return err
			}
			if fields := s.rules.Validate(merged.Title, merged.Description, count); len(fields) > 0 {
				return &InvalidToSaveError{Fields: fields}
			}
		}

		_, err = tx.Maps.Update(ctx, id, merged)
		return translate(err)
	})
	if err != nil {
		return domain.MapView{}, err
	}

	view, err := s.FindOne(ctx, id)
	if err != nil {
		return domain.MapView{}, err
	}
	if !view.IsDraft {
		s.logger.WithField("map_id", id).Info("maps: published")
	}
	return view, nil
}

// Validate returns the fields breaking the publication rules, in the order
// title, description, movies. Lengths are counted in runes.
func (r Rules) Validate(title, description string, movieCount int) []string {
	var fields []string
	if utf8.RuneCountInString(title) < r.MinTitleLength {
		fields = append(fields, "title")
	}
	if utf8.RuneCountInString(description) < r.MinDescriptionLength {
		fields = append(fields, "description")
	}
	if movieCount < r.MinMovies {
		fields = append(fields, "movies")
	}
	return fields
}

// AddMovie imports tmdbID if needed and links it to a draft map. Adding an
// already linked movie is a no-op.
func (s *Service) AddMovie(ctx context.Context, id, tmdbID int64) (domain.MapView, error) {
	if err := s.ensureDraft(ctx, id); err != nil {
		return domain.MapView{}, err
	}

	res, err := s.movies.HandleMovie(ctx, tmdbID, false)
	if err != nil {
		return domain.MapView{}, fmt.Errorf("integrate movie %d: %w", tmdbID, err)
	}
	if res.Outcome == integration.OutcomeNotFound {
		return domain.MapView{}, ErrNotFound
	}

	// The import above may be slow; re-check the state under a row lock.
	err = s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Maps.GetForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !current.IsDraft {
			return ErrNotEditable
		}
		_, err = tx.Maps.AddMovie(ctx, id, res.MovieID)
		return err
	})
	if err != nil {
		return domain.MapView{}, err
	}

	s.logger.WithFields(logrus.Fields{"map_id": id, "movie_id": res.MovieID, "tmdb_id": tmdbID}).Info("maps: movie added")
	return s.FindOne(ctx, id)
}

// RemoveMovie unlinks a movie from a draft map.
func (s *Service) RemoveMovie(ctx context.Context, id, movieID int64) (domain.MapView, error) {
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Maps.GetForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !current.IsDraft {
			return ErrNotEditable
		}
		return translate(tx.Maps.RemoveMovie(ctx, id, movieID))
	})
	if err != nil {
		return domain.MapView{}, err
	}
	return s.FindOne(ctx, id)
}

// Delete removes a draft map.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Maps.GetForUpdate(ctx, id)
		if err != nil {
			return translate(err)
		}
		if !current.IsDraft {
			return ErrNotEditable
		}
		return translate(tx.Maps.Delete(ctx, id))
	})
}

func (s *Service) ensureDraft(ctx context.Context, id int64) error {
	m, err := s.repo.Maps.Get(ctx, id)
	if err != nil {
		return translate(err)
	}
	if !m.IsDraft {
		return ErrNotEditable
	}
	return nil
}

func (s *Service) withMovies(ctx context.Context, list []domain.Map) ([]domain.MapView, error) {
	ids := make([]int64, len(list))
	for i, m := range list {
		ids[i] = m.ID
	}
	movies, err := s.repo.Maps.MoviesForMaps(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load map movies: %w", err)
	}
	views := make([]domain.MapView, len(list))
	for i, m := range list {
		linked := movies[m.ID]
		if linked == nil {
			linked = []domain.Movie{}
		}
		views[i] = domain.MapView{Map: m, Movies: linked}
	}
	return views, nil
}

func translate(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
