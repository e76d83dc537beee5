package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

// fixture is the YAML document served by the mock. Field names follow the
// upstream snake_case JSON.
type fixture struct {
	Movies  []movieEntry  `yaml:"movies"`
	Persons []personEntry `yaml:"persons"`
}

type movieEntry struct {
	ID               int64       `yaml:"id" json:"id"`
	Title            string      `yaml:"title" json:"title"`
	OriginalTitle    string      `yaml:"original_title" json:"original_title"`
	OriginalLanguage string      `yaml:"original_language" json:"original_language"`
	Overview         string      `yaml:"overview" json:"overview"`
	PosterPath       *string     `yaml:"poster_path" json:"poster_path"`
	BackdropPath     *string     `yaml:"backdrop_path" json:"backdrop_path"`
	ReleaseDate      string      `yaml:"release_date" json:"release_date"`
	Runtime          int         `yaml:"runtime" json:"runtime"`
	Tagline          string      `yaml:"tagline" json:"tagline"`
	Credits          creditEntry `yaml:"credits" json:"-"`
}

type creditEntry struct {
	Cast []castEntry `yaml:"cast" json:"cast"`
	Crew []crewEntry `yaml:"crew" json:"crew"`
}

type castEntry struct {
	ID        int64  `yaml:"id" json:"id"`
	Character string `yaml:"character" json:"character"`
	Order     int    `yaml:"order" json:"order"`
}

type crewEntry struct {
	ID         int64  `yaml:"id" json:"id"`
	Department string `yaml:"department" json:"department"`
	Job        string `yaml:"job" json:"job"`
}

type personEntry struct {
	ID                 int64   `yaml:"id" json:"id"`
	Name               string  `yaml:"name" json:"name"`
	Birthday           *string `yaml:"birthday" json:"birthday"`
	Deathday           *string `yaml:"deathday" json:"deathday"`
	Gender             int     `yaml:"gender" json:"gender"`
	ProfilePath        *string `yaml:"profile_path" json:"profile_path"`
	KnownForDepartment string  `yaml:"known_for_department" json:"known_for_department"`
}

type catalog struct {
	movies  map[int64]movieEntry
	persons map[int64]personEntry
	order   []int64
}

func loadFixture(path string) (*catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var doc fixture
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	c := &catalog{
		movies:  make(map[int64]movieEntry, len(doc.Movies)),
		persons: make(map[int64]personEntry, len(doc.Persons)),
	}
	for _, m := range doc.Movies {
		if _, dup := c.movies[m.ID]; dup {
			return nil, fmt.Errorf("duplicate movie id %d", m.ID)
		}
		c.movies[m.ID] = m
		c.order = append(c.order, m.ID)
	}
	for _, p := range doc.Persons {
		c.persons[p.ID] = p
	}
	return c, nil
}

// routes mirrors the subset of the v3 API used by the catalog client. The
// token check only requires a bearer header to be present.
func (c *catalog) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requireBearer)
	r.Get("/3/movie/{id}", c.handleMovie)
	r.Get("/3/movie/{id}/credits", c.handleCredits)
	r.Get("/3/person/{id}", c.handlePerson)
	r.Get("/3/search/movie", c.handleSearch)
	return r
}

func (c *catalog) handleMovie(w http.ResponseWriter, r *http.Request) {
	movie, ok := c.movies[pathID(r)]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, movie)
}

func (c *catalog) handleCredits(w http.ResponseWriter, r *http.Request) {
	movie, ok := c.movies[pathID(r)]
	if !ok {
		notFound(w)
		return
	}
	credits := movie.Credits
	if credits.Cast == nil {
		credits.Cast = []castEntry{}
	}
	if credits.Crew == nil {
		credits.Crew = []crewEntry{}
	}
	writeJSON(w, struct {
		ID int64 `json:"id"`
		creditEntry
	}{ID: movie.ID, creditEntry: credits})
}

func (c *catalog) handlePerson(w http.ResponseWriter, r *http.Request) {
	person, ok := c.persons[pathID(r)]
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, person)
}

func (c *catalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("query")))
	results := make([]movieEntry, 0)
	for _, id := range c.order {
		m := c.movies[id]
		if query != "" && strings.Contains(strings.ToLower(m.Title), query) {
			results = append(results, m)
		}
	}
	writeJSON(w, map[string]interface{}{
		"page":          1,
		"results":       results,
		"total_results": len(results),
		"total_pages":   1,
	})
}

func requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
