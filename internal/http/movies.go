package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/repository"
)

const (
	defaultMovieListLimit = 100
	listCastLimit         = 10
	dateLayout            = "2006-01-02"
)

type movieListResponse struct {
	Items      []movieResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type movieResponse struct {
	ID               int64             `json:"id"`
	Title            string            `json:"title"`
	ReleaseDate      string            `json:"releaseDate"`
	TmdbID           *int64            `json:"tmdbId"`
	Poster           *string           `json:"poster"`
	OriginalLanguage *string           `json:"originalLanguage"`
	Overview         *string           `json:"overview"`
	Tagline          *string           `json:"tagline"`
	Duration         *int              `json:"duration"`
	Cast             []castResponse    `json:"cast"`
	Crew             []crewResponse    `json:"crew"`
	AllocineRatings  *allocineResponse `json:"allocineRatings"`
}

type personResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Birthday *string `json:"birthday"`
	Deathday *string `json:"deathday"`
	Gender   *string `json:"gender"`
	KnownFor *string `json:"knownFor"`
	Picture  *string `json:"picture"`
	TmdbID   *int64  `json:"tmdbId"`
}

type castResponse struct {
	Person    personResponse `json:"person"`
	Character string         `json:"character"`
	Order     *int           `json:"order"`
}

type crewResponse struct {
	Person personResponse `json:"person"`
	Job    string         `json:"job"`
}

type allocineResponse struct {
	Critic    *int    `json:"critic"`
	Spectator *int    `json:"spectator"`
	Link      *string `json:"link"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.respondInternal(w, err, "list movies")
		return
	}
	loaded, err := s.repo.WithCredits(r.Context(), result.Items, listCastLimit)
	if err != nil {
		s.respondInternal(w, err, "load movie credits")
		return
	}

	items := make([]movieResponse, 0, len(loaded))
	for _, movie := range loaded {
		items = append(items, toMovieResponse(movie))
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{Items: items, NextCursor: result.NextCursor})
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	movie, err := s.repo.MovieWithCredits(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, msgNotFound)
			return
		}
		s.respondInternal(w, err, "get movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMovieResponse(movie))
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	filters := repository.MovieListFilters{Limit: defaultMovieListLimit}

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit <= 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func toMovieResponse(movie domain.MovieWithCredits) movieResponse {
	resp := movieResponse{
		ID:               movie.ID,
		Title:            movie.Title,
		ReleaseDate:      movie.ReleaseDate.Format(dateLayout),
		TmdbID:           movie.TmdbID,
		Poster:           movie.Poster,
		OriginalLanguage: movie.OriginalLanguage,
		Overview:         movie.Overview,
		Tagline:          movie.Tagline,
		Duration:         movie.Duration,
		Cast:             make([]castResponse, 0, len(movie.Cast)),
		Crew:             make([]crewResponse, 0, len(movie.Crew)),
	}
	for _, c := range movie.Cast {
		resp.Cast = append(resp.Cast, castResponse{Person: toPersonResponse(c.Person), Character: c.Character, Order: c.Order})
	}
	for _, c := range movie.Crew {
		resp.Crew = append(resp.Crew, crewResponse{Person: toPersonResponse(c.Person), Job: string(c.Job)})
	}
	if movie.AllocineRatings != nil {
		resp.AllocineRatings = &allocineResponse{
			Critic:    movie.AllocineRatings.Critic,
			Spectator: movie.AllocineRatings.Spectator,
			Link:      movie.AllocineRatings.Link,
		}
	}
	return resp
}

func toPersonResponse(p domain.Person) personResponse {
	resp := personResponse{
		ID:       p.ID,
		Name:     p.Name,
		Birthday: formatDate(p.Birthday),
		Deathday: formatDate(p.Deathday),
		Picture:  p.Picture,
		TmdbID:   p.TmdbID,
	}
	if p.Gender != nil {
		g := string(*p.Gender)
		resp.Gender = &g
	}
	if p.KnownFor != nil {
		k := string(*p.KnownFor)
		resp.KnownFor = &k
	}
	return resp
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	val := t.Format(dateLayout)
	return &val
}
