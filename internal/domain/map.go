package domain

import "time"

// Map is a curated collection of movies. A map starts as a draft and becomes
// read-only once published.
type Map struct {
	ID          int64
	Title       string
	Description string
	IsDraft     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MapView is a map with its linked movies resolved.
type MapView struct {
	Map
	Movies []Movie
}
