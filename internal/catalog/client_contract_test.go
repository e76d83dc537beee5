package catalog

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestHTTPClientSmoke hits a live catalog when TMDB_SMOKE_TOKEN is set and
// checks that a well-known movie can be parsed end to end.
func TestHTTPClientSmoke(t *testing.T) {
	token := os.Getenv("TMDB_SMOKE_TOKEN")
	if token == "" {
		t.Skip("TMDB_SMOKE_TOKEN not provided")
	}
	baseURL := os.Getenv("TMDB_SMOKE_URL")
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	client, err := NewHTTPClient(Options{
		BaseURL:      baseURL,
		AccessToken:  token,
		Language:     "fr-FR",
		ImageBaseURL: "https://image.tmdb.org/t/p/original",
		Timeout:      3 * time.Second,
	})
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	movie, err := client.GetMovie(ctx, 27205)
	if err != nil {
		t.Fatalf("get movie: %v", err)
	}
	if movie.Title == "" || movie.ReleaseDate.IsZero() {
		t.Fatalf("unexpected movie payload: %+v", movie)
	}
}
