package repository

import (
	"context"
	"fmt"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// RatingsRepository stores the one-per-movie Allocine ratings.
type RatingsRepository struct {
	db DBTX
}

// RatingUpsertParams captures the payload required to upsert a rating.
type RatingUpsertParams struct {
	MovieID   int64
	Critic    *int
	Spectator *int
	Link      *string
}

// Upsert inserts or replaces the rating row of a movie and indicates whether
// it was newly created. All-nil scores are stored as-is.
func (r *RatingsRepository) Upsert(ctx context.Context, params RatingUpsertParams) (domain.AllocineRating, bool, error) {
	const query = `
        INSERT INTO allocine_ratings (movie_id, critic, spectator, link)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (movie_id)
        DO UPDATE SET critic = EXCLUDED.critic,
                      spectator = EXCLUDED.spectator,
                      link = EXCLUDED.link,
                      updated_at = now()
        RETURNING movie_id, critic, spectator, link, (xmax = 0) AS inserted
    `

	var rating domain.AllocineRating
	var inserted bool
	err := r.db.QueryRow(ctx, query, params.MovieID, params.Critic, params.Spectator, params.Link).Scan(
		&rating.MovieID,
		&rating.Critic,
		&rating.Spectator,
		&rating.Link,
		&inserted,
	)
	if err != nil {
		return domain.AllocineRating{}, false, fmt.Errorf("upsert rating: %w", err)
	}
	return rating, inserted, nil
}

// Get retrieves the rating row of a movie.
func (r *RatingsRepository) Get(ctx context.Context, movieID int64) (domain.AllocineRating, error) {
	const query = `
        SELECT movie_id, critic, spectator, link
        FROM allocine_ratings
        WHERE movie_id = $1
    `
	var rating domain.AllocineRating
	err := r.db.QueryRow(ctx, query, movieID).Scan(
		&rating.MovieID,
		&rating.Critic,
		&rating.Spectator,
		&rating.Link,
	)
	if err != nil {
		return domain.AllocineRating{}, notFound(err)
	}
	return rating, nil
}

// ForMovies returns the rating rows of the given movies keyed by movie id.
func (r *RatingsRepository) ForMovies(ctx context.Context, movieIDs []int64) (map[int64]domain.AllocineRating, error) {
	const query = `
        SELECT movie_id, critic, spectator, link
        FROM allocine_ratings
        WHERE movie_id = ANY($1)
    `
	rows, err := r.db.Query(ctx, query, movieIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]domain.AllocineRating, len(movieIDs))
	for rows.Next() {
		var rating domain.AllocineRating
		if err := rows.Scan(&rating.MovieID, &rating.Critic, &rating.Spectator, &rating.Link); err != nil {
			return nil, err
		}
		out[rating.MovieID] = rating
	}
	return out, rows.Err()
}
