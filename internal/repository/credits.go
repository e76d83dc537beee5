package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// CreditsRepository links persons to movies as cast or crew.
type CreditsRepository struct {
	db DBTX
}

// InsertCast bulk-inserts cast rows; duplicates on (person, movie, character)
// are dropped. It returns the number of rows inserted.
func (r *CreditsRepository) InsertCast(ctx context.Context, rows []domain.Cast) (int64, error) {
	batch := &pgx.Batch{}
	for _, c := range rows {
		batch.Queue(`
            INSERT INTO movie_cast (person_id, movie_id, character, cast_order)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT DO NOTHING
        `, c.PersonID, c.MovieID, c.Character, c.Order)
	}
	inserted, err := sendBatch(ctx, r.db, batch)
	if err != nil {
		return inserted, fmt.Errorf("insert cast: %w", err)
	}
	return inserted, nil
}

// InsertCrew bulk-inserts crew rows; duplicates on (person, movie, job) are
// dropped and rows with an unknown job are never written.
func (r *CreditsRepository) InsertCrew(ctx context.Context, rows []domain.Crew) (int64, error) {
	batch := &pgx.Batch{}
	for _, c := range rows {
		if c.Job == domain.JobUnknown || c.Job == "" {
			continue
		}
		batch.Queue(`
            INSERT INTO movie_crew (person_id, movie_id, job)
            VALUES ($1,$2,$3)
            ON CONFLICT DO NOTHING
        `, c.PersonID, c.MovieID, string(c.Job))
	}
	inserted, err := sendBatch(ctx, r.db, batch)
	if err != nil {
		return inserted, fmt.Errorf("insert crew: %w", err)
	}
	return inserted, nil
}

// CastForMovies returns the cast of each movie ordered by rank. A positive
// limit keeps only the first limit entries per movie.
func (r *CreditsRepository) CastForMovies(ctx context.Context, movieIDs []int64, limit int) (map[int64][]domain.CastMember, error) {
	const query = `
        SELECT movie_id, character, cast_order, id, name, birthday, deathday, gender, known_for, picture, tmdb_id
        FROM (
            SELECT c.movie_id, c.character, c.cast_order,
                   p.id, p.name, p.birthday, p.deathday, p.gender, p.known_for, p.picture, p.tmdb_id,
                   row_number() OVER (PARTITION BY c.movie_id ORDER BY c.cast_order NULLS LAST, p.id) AS rank
            FROM movie_cast c
            JOIN persons p ON p.id = c.person_id
            WHERE c.movie_id = ANY($1)
        ) ranked
        WHERE $2 <= 0 OR rank <= $2
        ORDER BY movie_id, rank
    `
	rows, err := r.db.Query(ctx, query, movieIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.CastMember, len(movieIDs))
	for rows.Next() {
		var (
			movieID  int64
			member   domain.CastMember
			gender   *string
			knownFor *string
		)
		p := &member.Person
		if err := rows.Scan(&movieID, &member.Character, &member.Order,
			&p.ID, &p.Name, &p.Birthday, &p.Deathday, &gender, &knownFor, &p.Picture, &p.TmdbID); err != nil {
			return nil, err
		}
		applyPersonEnums(p, gender, knownFor)
		out[movieID] = append(out[movieID], member)
	}
	return out, rows.Err()
}

// CrewForMovies returns the crew of each movie.
func (r *CreditsRepository) CrewForMovies(ctx context.Context, movieIDs []int64) (map[int64][]domain.CrewMember, error) {
	const query = `
        SELECT c.movie_id, c.job, p.id, p.name, p.birthday, p.deathday, p.gender, p.known_for, p.picture, p.tmdb_id
        FROM movie_crew c
        JOIN persons p ON p.id = c.person_id
        WHERE c.movie_id = ANY($1)
        ORDER BY c.movie_id, c.job, p.name
    `
	rows, err := r.db.Query(ctx, query, movieIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.CrewMember, len(movieIDs))
	for rows.Next() {
		var (
			movieID  int64
			member   domain.CrewMember
			job      string
			gender   *string
			knownFor *string
		)
		p := &member.Person
		if err := rows.Scan(&movieID, &job,
			&p.ID, &p.Name, &p.Birthday, &p.Deathday, &gender, &knownFor, &p.Picture, &p.TmdbID); err != nil {
			return nil, err
		}
		member.Job = domain.Job(job)
		applyPersonEnums(p, gender, knownFor)
		out[movieID] = append(out[movieID], member)
	}
	return out, rows.Err()
}

// CountForMovie returns the number of cast and crew rows linked to a movie.
func (r *CreditsRepository) CountForMovie(ctx context.Context, movieID int64) (cast, crew int64, err error) {
	err = r.db.QueryRow(ctx, `
        SELECT (SELECT count(*) FROM movie_cast WHERE movie_id = $1),
               (SELECT count(*) FROM movie_crew WHERE movie_id = $1)
    `, movieID).Scan(&cast, &crew)
	return cast, crew, err
}

func applyPersonEnums(p *domain.Person, gender, knownFor *string) {
	if gender != nil {
		g := domain.Gender(*gender)
		p.Gender = &g
	}
	if knownFor != nil {
		j := domain.Job(*knownFor)
		p.KnownFor = &j
	}
}
