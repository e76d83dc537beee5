package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
)

type importBody struct {
	ID         int64 `json:"id"`
	IsNewMovie bool  `json:"isNewMovie"`
}

type mapBody struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsDraft     bool   `json:"isDraft"`
	Movies      []struct {
		ID          int64   `json:"id"`
		Title       string  `json:"title"`
		Poster      *string `json:"poster"`
		TmdbID      *int64  `json:"tmdbId"`
		ReleaseDate string  `json:"releaseDate"`
		Overview    *string `json:"overview"`
	} `json:"movies"`
}

func TestImportMovie(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/tmdb/movie/550", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var first importBody
	decodeBody(t, rec, &first)
	if first.ID == 0 || !first.IsNewMovie {
		t.Fatalf("first import = %+v", first)
	}

	rec = doRequest(t, srv, http.MethodPost, "/tmdb/movie/550", "")
	var second importBody
	decodeBody(t, rec, &second)
	if rec.Code != http.StatusCreated || second.ID != first.ID || second.IsNewMovie {
		t.Fatalf("second import = %d %+v", rec.Code, second)
	}

	rec = doRequest(t, srv, http.MethodPost, "/tmdb/movie/550?replace=true", "")
	var replaced importBody
	decodeBody(t, rec, &replaced)
	if rec.Code != http.StatusCreated || replaced.ID != first.ID {
		t.Fatalf("replace = %d %+v", rec.Code, replaced)
	}

	count, err := srv.repo.Movies.Count(context.Background())
	if err != nil {
		t.Fatalf("count movies: %v", err)
	}
	if count != 1 {
		t.Fatalf("movies = %d, want 1", count)
	}
}

func TestImportMovie_Errors(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/tmdb/movie/4242", "")
	if rec.Code != http.StatusNotFound || rec.Body.String() != "{\"error\":\"Not found\"}\n" {
		t.Fatalf("unknown movie = %d %q", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/tmdb/movie/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/tmdb/movie/12?replace=maybe", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad replace status = %d, want 400", rec.Code)
	}
}

func TestMovies_ListAndGet(t *testing.T) {
	srv := buildTestServer(t)
	for _, id := range []int{10, 11, 12} {
		rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/tmdb/movie/%d", id), "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("import %d: %d", id, rec.Code)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/movies?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var page struct {
		Items []struct {
			ID              int64         `json:"id"`
			Title           string        `json:"title"`
			Cast            []interface{} `json:"cast"`
			Crew            []interface{} `json:"crew"`
			AllocineRatings interface{}   `json:"allocineRatings"`
		} `json:"items"`
		NextCursor *string `json:"nextCursor"`
	}
	decodeBody(t, rec, &page)
	if len(page.Items) != 2 || page.NextCursor == nil {
		t.Fatalf("first page = %+v", page)
	}
	if page.Items[0].Cast == nil || page.Items[0].Crew == nil || page.Items[0].AllocineRatings != nil {
		t.Fatalf("enrichment fields = %+v", page.Items[0])
	}

	rec = doRequest(t, srv, http.MethodGet, "/movies?limit=2&cursor="+url.QueryEscape(*page.NextCursor), "")
	var next struct {
		Items []struct {
			ID int64 `json:"id"`
		} `json:"items"`
	}
	decodeBody(t, rec, &next)
	if len(next.Items) != 1 {
		t.Fatalf("second page = %+v", next)
	}

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/movies/%d", page.Items[0].ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/movies/999999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing movie status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/movies?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestMaps_Lifecycle(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/maps", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created mapBody
	decodeBody(t, rec, &created)
	if !created.IsDraft || created.Movies == nil || len(created.Movies) != 0 {
		t.Fatalf("created map = %+v", created)
	}
	base := fmt.Sprintf("/maps/%d", created.ID)

	rec = doRequest(t, srv, http.MethodPatch, base, `{"isDraft":false}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("early publish status = %d", rec.Code)
	}
	var fields struct {
		Error []string `json:"error"`
	}
	decodeBody(t, rec, &fields)
	want := []string{"title", "description", "movies"}
	if fmt.Sprint(fields.Error) != fmt.Sprint(want) {
		t.Fatalf("fields = %v, want %v", fields.Error, want)
	}

	for _, tmdbID := range []int{101, 102, 103} {
		rec = doRequest(t, srv, http.MethodPost, base+"/movies", fmt.Sprintf(`{"tmdbId":%d}`, tmdbID))
		if rec.Code != http.StatusOK {
			t.Fatalf("add %d status = %d: %s", tmdbID, rec.Code, rec.Body.String())
		}
	}
	rec = doRequest(t, srv, http.MethodPost, base+"/movies", `{"tmdbId":5000}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown tmdb id status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPatch, base, `{"title":"Noir","description":"Rainy nights","isDraft":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d: %s", rec.Code, rec.Body.String())
	}
	var published mapBody
	decodeBody(t, rec, &published)
	if published.IsDraft || len(published.Movies) != 3 || published.Movies[0].ReleaseDate == "" {
		t.Fatalf("published map = %+v", published)
	}

	notEditable := "{\"error\":\"not editable map\"}\n"
	for _, c := range []struct{ method, target, body string }{
		{http.MethodPost, base + "/movies", `{"tmdbId":104}`},
		{http.MethodPatch, base, `{"title":"Other"}`},
		{http.MethodDelete, fmt.Sprintf("%s/movies/%d", base, published.Movies[0].ID), ""},
		{http.MethodDelete, base, ""},
	} {
		rec = doRequest(t, srv, c.method, c.target, c.body)
		if rec.Code != http.StatusBadRequest || rec.Body.String() != notEditable {
			t.Fatalf("%s %s = %d %q", c.method, c.target, rec.Code, rec.Body.String())
		}
	}

	rec = doRequest(t, srv, http.MethodGet, "/maps", "")
	var all []mapBody
	decodeBody(t, rec, &all)
	if len(all) != 1 || all[0].ID != created.ID {
		t.Fatalf("list maps = %+v", all)
	}
}

func TestMaps_RemoveAndDelete(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/maps", "")
	var created mapBody
	decodeBody(t, rec, &created)
	base := fmt.Sprintf("/maps/%d", created.ID)

	rec = doRequest(t, srv, http.MethodPost, base+"/movies", `{"tmdbId":7}`)
	var withMovie mapBody
	decodeBody(t, rec, &withMovie)
	if len(withMovie.Movies) != 1 {
		t.Fatalf("map movies = %+v", withMovie.Movies)
	}

	movieURL := fmt.Sprintf("%s/movies/%d", base, withMovie.Movies[0].ID)
	rec = doRequest(t, srv, http.MethodDelete, movieURL, "")
	var emptied mapBody
	decodeBody(t, rec, &emptied)
	if rec.Code != http.StatusOK || len(emptied.Movies) != 0 {
		t.Fatalf("remove = %d %+v", rec.Code, emptied)
	}

	rec = doRequest(t, srv, http.MethodDelete, movieURL, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove twice status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, base, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestMaps_BadRequests(t *testing.T) {
	srv := buildTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/maps/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/maps", "")
	var created mapBody
	decodeBody(t, rec, &created)
	base := fmt.Sprintf("/maps/%d", created.ID)

	rec = doRequest(t, srv, http.MethodPatch, base, `{"colour":"red"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, base+"/movies", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tmdbId status = %d, want 400", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPatch, "/maps/424242", `{"title":"Ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing map status = %d, want 404", rec.Code)
	}
}
