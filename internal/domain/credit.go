package domain

// CastCredit is an actor entry of a catalog credits listing.
type CastCredit struct {
	TmdbID    int64
	Character string
	Order     int
}

// CrewCredit is a crew entry of a catalog credits listing, job already mapped.
type CrewCredit struct {
	TmdbID int64
	Job    Job
}

// Credits groups the cast and crew of a movie as returned by the catalog.
type Credits struct {
	Cast []CastCredit
	Crew []CrewCredit
}

// Cast is a persisted cast link row.
type Cast struct {
	MovieID   int64
	PersonID  int64
	Character string
	Order     *int
}

// Crew is a persisted crew link row.
type Crew struct {
	MovieID  int64
	PersonID int64
	Job      Job
}
