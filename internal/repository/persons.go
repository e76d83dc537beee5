package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// PersonsRepository stores persons keyed by (name, birthday) or tmdb id.
type PersonsRepository struct {
	db DBTX
}

const personColumns = `id, name, birthday, deathday, gender, known_for, picture, tmdb_id`

// InsertIgnoreConflicts inserts every person, silently skipping rows that
// collide on (name, birthday) or tmdb_id. It returns the number inserted.
func (r *PersonsRepository) InsertIgnoreConflicts(ctx context.Context, persons []domain.PersonDetails) (int64, error) {
	batch := &pgx.Batch{}
	for _, p := range persons {
		batch.Queue(`
            INSERT INTO persons (name, birthday, deathday, gender, known_for, picture, tmdb_id)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT DO NOTHING
        `, p.Name, p.Birthday, p.Deathday, string(p.Gender), string(p.KnownFor), p.Picture, p.TmdbID)
	}
	inserted, err := sendBatch(ctx, r.db, batch)
	if err != nil {
		return inserted, fmt.Errorf("insert persons: %w", err)
	}
	return inserted, nil
}

// FindByTmdbIDs returns the stored persons among tmdbIDs. Missing ids are
// simply absent from the result.
func (r *PersonsRepository) FindByTmdbIDs(ctx context.Context, tmdbIDs []int64) ([]domain.Person, error) {
	if len(tmdbIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM persons WHERE tmdb_id = ANY($1)`, personColumns)
	rows, err := r.db.Query(ctx, query, tmdbIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []domain.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// FindByNaturalKey looks a person up by name and birthday, treating a nil
// birthday as equal to a stored NULL.
func (r *PersonsRepository) FindByNaturalKey(ctx context.Context, name string, birthday *time.Time) (domain.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM persons WHERE name = $1 AND birthday IS NOT DISTINCT FROM $2::date`, personColumns)
	p, err := scanPerson(r.db.QueryRow(ctx, query, name, birthday))
	if err != nil {
		return domain.Person{}, notFound(err)
	}
	return p, nil
}

// GetByID fetches a person by identifier.
func (r *PersonsRepository) GetByID(ctx context.Context, id int64) (domain.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM persons WHERE id = $1`, personColumns)
	p, err := scanPerson(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Person{}, notFound(err)
	}
	return p, nil
}

func scanPerson(row pgx.Row) (domain.Person, error) {
	var (
		p        domain.Person
		gender   *string
		knownFor *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Birthday, &p.Deathday, &gender, &knownFor, &p.Picture, &p.TmdbID); err != nil {
		return domain.Person{}, err
	}
	applyPersonEnums(&p, gender, knownFor)
	return p, nil
}
