package domain

import "time"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID               int64
	Title            string
	ReleaseDate      time.Time
	TmdbID           *int64
	Poster           *string
	OriginalLanguage *string
	Overview         *string
	Tagline          *string
	Duration         *int
}

// MovieDetails is the normalized movie payload returned by the external catalog.
type MovieDetails struct {
	TmdbID           int64
	Title            string
	OriginalTitle    string
	OriginalLanguage string
	Overview         string
	Poster           *string
	Backdrop         *string
	ReleaseDate      time.Time
	Runtime          int
	Tagline          string
}

// MovieSummary is a catalog search hit.
type MovieSummary struct {
	TmdbID        int64
	Title         string
	OriginalTitle string
	Overview      string
	Poster        *string
	ReleaseDate   string
}

// CastMember is a person credited as an actor on a movie.
type CastMember struct {
	Person    Person
	Character string
	Order     *int
}

// CrewMember is a person credited with a job on a movie.
type CrewMember struct {
	Person Person
	Job    Job
}

// MovieWithCredits bundles a movie with its enrichment data.
type MovieWithCredits struct {
	Movie
	Cast            []CastMember
	Crew            []CrewMember
	AllocineRatings *AllocineRating
}
