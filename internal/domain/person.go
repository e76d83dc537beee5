package domain

import "time"

// Gender is the closed set of genders exposed by the catalog.
type Gender string

const (
	GenderUnknown   Gender = "unknown"
	GenderWoman     Gender = "woman"
	GenderMan       Gender = "man"
	GenderNonBinary Gender = "non-binary"
)

// Job is the fixed job enumeration shared by crew credits and persons' known-for field.
type Job string

const (
	JobActor                 Job = "actor"
	JobScreenplay            Job = "screenplay"
	JobDirector              Job = "director"
	JobEditor                Job = "editor"
	JobDirectorOfPhotography Job = "director-of-photography"
	JobProducer              Job = "producer"
	JobComposer              Job = "composer"
	JobUnknown               Job = "unknown"
)

// Person represents a stored person.
type Person struct {
	ID       int64
	Name     string
	Birthday *time.Time
	Deathday *time.Time
	Gender   *Gender
	KnownFor *Job
	Picture  *string
	TmdbID   *int64
}

// PersonDetails is the normalized person payload returned by the external catalog.
type PersonDetails struct {
	TmdbID   int64
	Name     string
	Birthday *time.Time
	Deathday *time.Time
	Gender   Gender
	KnownFor Job
	Picture  *string
}
