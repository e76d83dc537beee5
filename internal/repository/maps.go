package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

// MapsRepository persists curated maps and their movie links.
type MapsRepository struct {
	db DBTX
}

const mapColumns = `id, title, description, is_draft, created_at, updated_at`

// MapUpdateParams holds the full, already merged state to persist.
type MapUpdateParams struct {
	Title       string
	Description string
	IsDraft     bool
}

// Create inserts an empty draft map.
func (r *MapsRepository) Create(ctx context.Context) (domain.Map, error) {
	query := fmt.Sprintf(`INSERT INTO maps DEFAULT VALUES RETURNING %s`, mapColumns)
	return scanMap(r.db.QueryRow(ctx, query))
}

// Get fetches a map by identifier.
func (r *MapsRepository) Get(ctx context.Context, id int64) (domain.Map, error) {
	query := fmt.Sprintf(`SELECT %s FROM maps WHERE id = $1`, mapColumns)
	m, err := scanMap(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Map{}, notFound(err)
	}
	return m, nil
}

// GetForUpdate fetches a map and locks its row until the surrounding
// transaction ends.
func (r *MapsRepository) GetForUpdate(ctx context.Context, id int64) (domain.Map, error) {
	query := fmt.Sprintf(`SELECT %s FROM maps WHERE id = $1 FOR UPDATE`, mapColumns)
	m, err := scanMap(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Map{}, notFound(err)
	}
	return m, nil
}

// List returns every map, oldest first.
func (r *MapsRepository) List(ctx context.Context) ([]domain.Map, error) {
	query := fmt.Sprintf(`SELECT %s FROM maps ORDER BY id`, mapColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	maps := make([]domain.Map, 0)
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

// Update overwrites the editable fields of a map.
func (r *MapsRepository) Update(ctx context.Context, id int64, params MapUpdateParams) (domain.Map, error) {
	query := fmt.Sprintf(`
        UPDATE maps
        SET title = $2, description = $3, is_draft = $4, updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, mapColumns)
	m, err := scanMap(r.db.QueryRow(ctx, query, id, params.Title, params.Description, params.IsDraft))
	if err != nil {
		return domain.Map{}, notFound(err)
	}
	return m, nil
}

// Delete removes a map; its movie links cascade.
func (r *MapsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM maps WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMovie links a movie to a map. Re-linking is a no-op reported as
// added=false.
func (r *MapsRepository) AddMovie(ctx context.Context, mapID, movieID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
        INSERT INTO movies_maps (map_id, movie_id)
        VALUES ($1,$2)
        ON CONFLICT DO NOTHING
    `, mapID, movieID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveMovie deletes the (map, movie) link, returning ErrNotFound when absent.
func (r *MapsRepository) RemoveMovie(ctx context.Context, mapID, movieID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM movies_maps WHERE map_id = $1 AND movie_id = $2`, mapID, movieID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMovies returns the number of movies linked to a map.
func (r *MapsRepository) CountMovies(ctx context.Context, mapID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM movies_maps WHERE map_id = $1`, mapID).Scan(&count)
	return count, err
}

// MoviesForMaps returns the movies of each map in insertion order.
func (r *MapsRepository) MoviesForMaps(ctx context.Context, mapIDs []int64) (map[int64][]domain.Movie, error) {
	const query = `
        SELECT mm.map_id, m.id, m.title, m.release_date, m.tmdb_id, m.poster,
               m.original_language, m.overview, m.tagline, m.duration
        FROM movies_maps mm
        JOIN movies m ON m.id = mm.movie_id
        WHERE mm.map_id = ANY($1)
        ORDER BY mm.map_id, mm.added_at, m.id
    `
	rows, err := r.db.Query(ctx, query, mapIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.Movie, len(mapIDs))
	for rows.Next() {
		var (
			mapID int64
			m     domain.Movie
		)
		if err := rows.Scan(&mapID, &m.ID, &m.Title, &m.ReleaseDate, &m.TmdbID, &m.Poster,
			&m.OriginalLanguage, &m.Overview, &m.Tagline, &m.Duration); err != nil {
			return nil, err
		}
		out[mapID] = append(out[mapID], m)
	}
	return out, rows.Err()
}

func scanMap(row pgx.Row) (domain.Map, error) {
	var m domain.Map
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.IsDraft, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.Map{}, err
	}
	return m, nil
}
