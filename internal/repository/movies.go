package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	db DBTX
}

const movieColumns = `
    id,
    title,
    release_date,
    tmdb_id,
    poster,
    original_language,
    overview,
    tagline,
    duration
`

// MovieParams bundles the writable movie fields.
type MovieParams struct {
	Title            string
	ReleaseDate      time.Time
	TmdbID           *int64
	Poster           *string
	OriginalLanguage *string
	Overview         *string
	Tagline          *string
	Duration         *int
}

// MovieListFilters encapsulates search and pagination options.
type MovieListFilters struct {
	Query  *string
	Limit  int
	Cursor *MovieCursor
}

// MovieCursor allows stable pagination by id.
type MovieCursor struct {
	ID int64 `json:"id"`
}

// MovieListResult returns the paginated payload.
type MovieListResult struct {
	Items      []domain.Movie
	NextCursor *string
}

// Create inserts a movie unless one with the same (title, release_date) or
// tmdb_id already exists, in which case the existing row is returned with
// created=false.
func (r *MoviesRepository) Create(ctx context.Context, params MovieParams) (domain.Movie, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO movies (title, release_date, tmdb_id, poster, original_language, overview, tagline, duration)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT DO NOTHING
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, params.Title, params.ReleaseDate, params.TmdbID, params.Poster,
		params.OriginalLanguage, params.Overview, params.Tagline, params.Duration)
	movie, err := scanMovie(row)
	if err == nil {
		return movie, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Movie{}, false, err
	}

	existing, err := r.FindByIdentity(ctx, params.Title, params.ReleaseDate, params.TmdbID)
	if err != nil {
		return domain.Movie{}, false, err
	}
	return existing, false, nil
}

// FindByIdentity returns the movie matching tmdbID, or (title, releaseDate)
// when no tmdb match exists.
func (r *MoviesRepository) FindByIdentity(ctx context.Context, title string, releaseDate time.Time, tmdbID *int64) (domain.Movie, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM movies
        WHERE (title = $1 AND release_date = $2) OR tmdb_id = $3
        ORDER BY (tmdb_id IS NOT DISTINCT FROM $3) DESC
        LIMIT 1
    `, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, title, releaseDate, tmdbID))
	if err != nil {
		return domain.Movie{}, notFound(err)
	}
	return movie, nil
}

// UpdateByIdentity overwrites the movie matched by FindByIdentity.
func (r *MoviesRepository) UpdateByIdentity(ctx context.Context, params MovieParams) (domain.Movie, error) {
	query := fmt.Sprintf(`
        UPDATE movies
        SET title = $1,
            release_date = $2,
            tmdb_id = $3,
            poster = $4,
            original_language = $5,
            overview = $6,
            tagline = $7,
            duration = $8,
            updated_at = now()
        WHERE id = (
            SELECT id FROM movies
            WHERE (title = $1 AND release_date = $2) OR tmdb_id = $3
            ORDER BY (tmdb_id IS NOT DISTINCT FROM $3) DESC
            LIMIT 1
        )
        RETURNING %s
    `, movieColumns)

	row := r.db.QueryRow(ctx, query, params.Title, params.ReleaseDate, params.TmdbID, params.Poster,
		params.OriginalLanguage, params.Overview, params.Tagline, params.Duration)
	movie, err := scanMovie(row)
	if err != nil {
		return domain.Movie{}, notFound(err)
	}
	return movie, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Movie{}, notFound(err)
	}
	return movie, nil
}

// GetByTmdbID fetches a movie by its catalog identifier.
func (r *MoviesRepository) GetByTmdbID(ctx context.Context, tmdbID int64) (domain.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE tmdb_id = $1`, movieColumns)
	movie, err := scanMovie(r.db.QueryRow(ctx, query, tmdbID))
	if err != nil {
		return domain.Movie{}, notFound(err)
	}
	return movie, nil
}

// Count returns the number of stored movies.
func (r *MoviesRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies`).Scan(&count)
	return count, err
}

// List returns movies that match the provided filters, newest first.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		where = append(where, fmt.Sprintf("title ILIKE %s", arg("%"+strings.TrimSpace(*filters.Query)+"%")))
	}
	if filters.Cursor != nil {
		where = append(where, fmt.Sprintf("id < %s", arg(filters.Cursor.ID)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(movieColumns)
	queryBuilder.WriteString(" FROM movies")

	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}

	queryBuilder.WriteString(" ORDER BY id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return MovieListResult{}, err
	}
	items, err := collectMovies(rows)
	if err != nil {
		return MovieListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		token, err := encodeCursor(MovieCursor{ID: items[len(items)-1].ID})
		if err != nil {
			return MovieListResult{}, err
		}
		nextCursor = &token
	}

	return MovieListResult{Items: items, NextCursor: nextCursor}, nil
}

func collectMovies(rows pgx.Rows) ([]domain.Movie, error) {
	defer rows.Close()
	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var movie domain.Movie
	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.ReleaseDate,
		&movie.TmdbID,
		&movie.Poster,
		&movie.OriginalLanguage,
		&movie.Overview,
		&movie.Tagline,
		&movie.Duration,
	)
	if err != nil {
		return domain.Movie{}, err
	}
	return movie, nil
}

func encodeCursor(c MovieCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a MovieCursor.
func DecodeCursor(token string) (*MovieCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor MovieCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
