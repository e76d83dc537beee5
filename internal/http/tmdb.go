package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/integration"
)

type searchHitResponse struct {
	ID            int64   `json:"id"`
	OriginalTitle string  `json:"originalTitle"`
	Overview      string  `json:"overview"`
	Poster        *string `json:"poster"`
	ReleaseDate   string  `json:"releaseDate"`
	Title         string  `json:"title"`
}

type importResponse struct {
	ID         int64 `json:"id"`
	IsNewMovie bool  `json:"isNewMovie"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	hits, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		s.respondInternal(w, err, "catalog search")
		return
	}

	resp := make([]searchHitResponse, 0, len(hits))
	for _, h := range hits {
		resp = append(resp, searchHitResponse{
			ID:            h.TmdbID,
			OriginalTitle: h.OriginalTitle,
			Overview:      h.Overview,
			Poster:        h.Poster,
			ReleaseDate:   h.ReleaseDate,
			Title:         h.Title,
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImportMovie(w http.ResponseWriter, r *http.Request) {
	tmdbID, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	replace := false
	if raw := strings.TrimSpace(r.URL.Query().Get("replace")); raw != "" {
		if replace, err = strconv.ParseBool(raw); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid replace value")
			return
		}
	}

	res, err := s.importer.HandleMovie(r.Context(), tmdbID, replace)
	if err != nil {
		s.respondInternal(w, err, "import movie")
		return
	}
	if res.Outcome == integration.OutcomeNotFound {
		s.respondError(w, http.StatusNotFound, msgNotFound)
		return
	}

	s.logger.WithFields(logrus.Fields{"tmdb_id": tmdbID, "movie_id": res.MovieID, "outcome": string(res.Outcome)}).Debug("http: movie imported")
	s.respondJSON(w, http.StatusCreated, importResponse{ID: res.MovieID, IsNewMovie: res.IsNewMovie})
}
