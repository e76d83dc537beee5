package integration

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/catalog"
	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/repository"
)

type fakeCatalog struct {
	movies     map[int64]domain.MovieDetails
	credits    map[int64]domain.Credits
	persons    map[int64]domain.PersonDetails
	movieErr   error
	movieCalls int
}

func (f *fakeCatalog) GetMovie(ctx context.Context, tmdbID int64) (domain.MovieDetails, error) {
	f.movieCalls++
	if f.movieErr != nil {
		return domain.MovieDetails{}, f.movieErr
	}
	m, ok := f.movies[tmdbID]
	if !ok {
		return domain.MovieDetails{}, catalog.ErrNotFound
	}
	return m, nil
}

func (f *fakeCatalog) GetCredits(ctx context.Context, tmdbID int64) (domain.Credits, error) {
	c, ok := f.credits[tmdbID]
	if !ok {
		return domain.Credits{}, catalog.ErrNotFound
	}
	return c, nil
}

func (f *fakeCatalog) GetPerson(ctx context.Context, tmdbID int64) (domain.PersonDetails, error) {
	p, ok := f.persons[tmdbID]
	if !ok {
		return domain.PersonDetails{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) GetPersons(ctx context.Context, ids []int64) ([]domain.PersonDetails, error) {
	var out []domain.PersonDetails
	for _, id := range ids {
		if p, ok := f.persons[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Search(ctx context.Context, query string) ([]domain.MovieSummary, error) {
	return nil, nil
}

type fakeScraper struct {
	ratings domain.Ratings
	err     error
	gotYear int
}

func (f *fakeScraper) GetRatings(ctx context.Context, title string, releaseYear int) (domain.Ratings, error) {
	f.gotYear = releaseYear
	return f.ratings, f.err
}

type enqueued struct {
	kind    domain.JobKind
	payload []byte
}

// memStore emulates the unique constraints of the real schema.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	movies     map[int64]domain.Movie
	persons    map[int64]domain.Person
	cast       map[[2]int64]map[string]domain.Cast
	crew       map[[3]int64]domain.Crew
	ratings    map[int64]domain.AllocineRating
	jobs       []enqueued
	enqueueErr error
}

func newMemStore() *memStore {
	return &memStore{
		movies:  map[int64]domain.Movie{},
		persons: map[int64]domain.Person{},
		cast:    map[[2]int64]map[string]domain.Cast{},
		crew:    map[[3]int64]domain.Crew{},
		ratings: map[int64]domain.AllocineRating{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) GetByTmdbID(ctx context.Context, tmdbID int64) (domain.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.movies {
		if m.TmdbID != nil && *m.TmdbID == tmdbID {
			return m, nil
		}
	}
	return domain.Movie{}, repository.ErrNotFound
}

func (s *memStore) matchMovie(p repository.MovieParams) (domain.Movie, bool) {
	for _, m := range s.movies {
		if p.TmdbID != nil && m.TmdbID != nil && *m.TmdbID == *p.TmdbID {
			return m, true
		}
	}
	for _, m := range s.movies {
		if m.Title == p.Title && m.ReleaseDate.Equal(p.ReleaseDate) {
			return m, true
		}
	}
	return domain.Movie{}, false
}

func movieFromParams(id int64, p repository.MovieParams) domain.Movie {
	return domain.Movie{
		ID:               id,
		Title:            p.Title,
		ReleaseDate:      p.ReleaseDate,
		TmdbID:           p.TmdbID,
		Poster:           p.Poster,
		OriginalLanguage: p.OriginalLanguage,
		Overview:         p.Overview,
		Tagline:          p.Tagline,
		Duration:         p.Duration,
	}
}

func (s *memStore) Create(ctx context.Context, p repository.MovieParams) (domain.Movie, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.matchMovie(p); ok {
		return existing, false, nil
	}
	m := movieFromParams(s.id(), p)
	s.movies[m.ID] = m
	return m, true, nil
}

func (s *memStore) UpdateByIdentity(ctx context.Context, p repository.MovieParams) (domain.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.matchMovie(p)
	if !ok {
		return domain.Movie{}, repository.ErrNotFound
	}
	m := movieFromParams(existing.ID, p)
	s.movies[m.ID] = m
	return m, nil
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *memStore) InsertIgnoreConflicts(ctx context.Context, persons []domain.PersonDetails) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
next:
	for _, d := range persons {
		for _, p := range s.persons {
			if (p.TmdbID != nil && *p.TmdbID == d.TmdbID) || (p.Name == d.Name && sameDay(p.Birthday, d.Birthday)) {
				continue next
			}
		}
		tmdbID, gender, job := d.TmdbID, d.Gender, d.KnownFor
		id := s.id()
		s.persons[id] = domain.Person{ID: id, Name: d.Name, Birthday: d.Birthday, TmdbID: &tmdbID, Gender: &gender, KnownFor: &job}
		inserted++
	}
	return inserted, nil
}

func (s *memStore) FindByTmdbIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Person
	for _, p := range s.persons {
		if p.TmdbID != nil && want[*p.TmdbID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) FindByNaturalKey(ctx context.Context, name string, birthday *time.Time) (domain.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.persons {
		if p.Name == name && sameDay(p.Birthday, birthday) {
			return p, nil
		}
	}
	return domain.Person{}, repository.ErrNotFound
}

func (s *memStore) InsertCast(ctx context.Context, rows []domain.Cast) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	for _, r := range rows {
		key := [2]int64{r.PersonID, r.MovieID}
		if s.cast[key] == nil {
			s.cast[key] = map[string]domain.Cast{}
		}
		if _, dup := s.cast[key][r.Character]; dup {
			continue
		}
		s.cast[key][r.Character] = r
		inserted++
	}
	return inserted, nil
}

var jobIndex = map[domain.Job]int64{
	domain.JobActor: 1, domain.JobScreenplay: 2, domain.JobDirector: 3, domain.JobEditor: 4,
	domain.JobDirectorOfPhotography: 5, domain.JobProducer: 6, domain.JobComposer: 7,
}

func (s *memStore) InsertCrew(ctx context.Context, rows []domain.Crew) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	for _, r := range rows {
		idx, ok := jobIndex[r.Job]
		if !ok {
			return inserted, errors.New("crew job violates check constraint")
		}
		key := [3]int64{r.PersonID, r.MovieID, idx}
		if _, dup := s.crew[key]; dup {
			continue
		}
		s.crew[key] = r
		inserted++
	}
	return inserted, nil
}

func (s *memStore) Upsert(ctx context.Context, p repository.RatingUpsertParams) (domain.AllocineRating, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.ratings[p.MovieID]
	r := domain.AllocineRating{MovieID: p.MovieID, Critic: p.Critic, Spectator: p.Spectator, Link: p.Link}
	s.ratings[p.MovieID] = r
	return r, !existed, nil
}

func (s *memStore) Enqueue(ctx context.Context, kind domain.JobKind, payload []byte) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enqueueErr != nil {
		return uuid.Nil, s.enqueueErr
	}
	s.jobs = append(s.jobs, enqueued{kind: kind, payload: payload})
	return uuid.New(), nil
}

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newPipeline(cat *fakeCatalog, scraper *fakeScraper, st *memStore) *Pipeline {
	return New(Deps{
		Catalog: cat,
		Scraper: scraper,
		Movies:  st,
		Persons: st,
		Credits: st,
		Ratings: st,
		Queue:   st,
		Logger:  quietLogger(),
	})
}
