package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/maps"
)

type mapPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsDraft     *bool   `json:"isDraft"`
}

type mapAddMovieRequest struct {
	TmdbID int64 `json:"tmdbId" validate:"required,gt=0"`
}

type mapResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	IsDraft     bool               `json:"isDraft"`
	Movies      []mapMovieResponse `json:"movies"`
}

type mapMovieResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Poster      *string `json:"poster"`
	TmdbID      *int64  `json:"tmdbId"`
	ReleaseDate string  `json:"releaseDate"`
	Overview    *string `json:"overview"`
}

func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	view, err := s.maps.Create(r.Context())
	if err != nil {
		s.respondInternal(w, err, "create map")
		return
	}
	s.respondJSON(w, http.StatusCreated, toMapResponse(view))
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	views, err := s.maps.FindAll(r.Context())
	if err != nil {
		s.respondInternal(w, err, "list maps")
		return
	}
	resp := make([]mapResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toMapResponse(v))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.maps.FindOne(r.Context(), id)
	if err != nil {
		s.respondMapError(w, err, "get map")
		return
	}
	s.respondJSON(w, http.StatusOK, toMapResponse(view))
}

func (s *Server) handleUpdateMap(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req mapPatchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	view, err := s.maps.Update(r.Context(), id, maps.MapPatch{
		Title:       req.Title,
		Description: req.Description,
		IsDraft:     req.IsDraft,
	})
	if err != nil {
		s.respondMapError(w, err, "update map")
		return
	}
	s.respondJSON(w, http.StatusOK, toMapResponse(view))
}

func (s *Server) handleDeleteMap(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.maps.Delete(r.Context(), id); err != nil {
		s.respondMapError(w, err, "delete map")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMapMovie(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req mapAddMovieRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	view, err := s.maps.AddMovie(r.Context(), id, req.TmdbID)
	if err != nil {
		s.respondMapError(w, err, "add map movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMapResponse(view))
}

func (s *Server) handleRemoveMapMovie(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	movieID, err := idParam(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.maps.RemoveMovie(r.Context(), id, movieID)
	if err != nil {
		s.respondMapError(w, err, "remove map movie")
		return
	}
	s.respondJSON(w, http.StatusOK, toMapResponse(view))
}

// respondMapError maps service errors to statuses.
func (s *Server) respondMapError(w http.ResponseWriter, err error, op string) {
	var invalid *maps.InvalidToSaveError
	switch {
	case errors.Is(err, maps.ErrNotFound):
		s.respondError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, maps.ErrNotEditable):
		s.respondError(w, http.StatusBadRequest, msgNotEditable)
	case errors.As(err, &invalid):
		s.respondError(w, http.StatusBadRequest, invalid.Fields)
	default:
		s.respondInternal(w, err, op)
	}
}

func toMapResponse(view domain.MapView) mapResponse {
	resp := mapResponse{
		ID:          view.ID,
		Title:       view.Title,
		Description: view.Description,
		IsDraft:     view.IsDraft,
		Movies:      make([]mapMovieResponse, 0, len(view.Movies)),
	}
	for _, m := range view.Movies {
		resp.Movies = append(resp.Movies, mapMovieResponse{
			ID:          m.ID,
			Title:       m.Title,
			Poster:      m.Poster,
			TmdbID:      m.TmdbID,
			ReleaseDate: m.ReleaseDate.Format(dateLayout),
			Overview:    m.Overview,
		})
	}
	return resp
}
