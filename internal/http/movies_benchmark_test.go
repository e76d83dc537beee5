package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func BenchmarkHandleListMovies(b *testing.B) {
	srv := buildTestServer(b)
	for i := 1; i <= 25; i++ {
		rec := doRequest(b, srv, http.MethodPost, fmt.Sprintf("/tmdb/movie/%d", i), "")
		if rec.Code != http.StatusCreated {
			b.Fatalf("import %d: status %d", i, rec.Code)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/movies?limit=20", nil)
		rec := httptest.NewRecorder()
		srv.handleListMovies(rec, req)
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
