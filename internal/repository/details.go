package repository

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// WithCredits resolves cast, crew and ratings for movies in three queries.
// castLimit <= 0 keeps the whole cast.
func (r *Repository) WithCredits(ctx context.Context, movies []domain.Movie, castLimit int) ([]domain.MovieWithCredits, error) {
	if len(movies) == 0 {
		return []domain.MovieWithCredits{}, nil
	}
	ids := make([]int64, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}

	cast, err := r.Credits.CastForMovies(ctx, ids, castLimit)
	if err != nil {
		return nil, fmt.Errorf("load cast: %w", err)
	}
	crew, err := r.Credits.CrewForMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load crew: %w", err)
	}
	ratings, err := r.Ratings.ForMovies(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	out := make([]domain.MovieWithCredits, len(movies))
	for i, m := range movies {
		out[i] = domain.MovieWithCredits{
			Movie: m,
			Cast:  cast[m.ID],
			Crew:  crew[m.ID],
		}
		if rating, ok := ratings[m.ID]; ok {
			rating := rating
			out[i].AllocineRatings = &rating
		}
	}
	return out, nil
}

// MovieWithCredits loads a single movie with its full cast.
func (r *Repository) MovieWithCredits(ctx context.Context, id int64) (domain.MovieWithCredits, error) {
	movie, err := r.Movies.GetByID(ctx, id)
	if err != nil {
		return domain.MovieWithCredits{}, err
	}
	loaded, err := r.WithCredits(ctx, []domain.Movie{movie}, 0)
	if err != nil {
		return domain.MovieWithCredits{}, err
	}
	return loaded[0], nil
}
