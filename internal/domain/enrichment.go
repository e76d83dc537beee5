package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind names an enrichment task.
type JobKind string

const (
	JobKindCredits  JobKind = "credits"
	JobKindAllocine JobKind = "allocine"
)

// JobStatus is the lifecycle state of an enrichment job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// EnrichmentJob is a durable unit of deferred work.
type EnrichmentJob struct {
	ID        uuid.UUID
	Kind      JobKind
	Payload   []byte
	Status    JobStatus
	Attempts  int
	LastError *string
	RunAfter  time.Time
}

// CreditsPayload is the payload of a credits job.
type CreditsPayload struct {
	TmdbID  int64 `json:"tmdbId"`
	MovieID int64 `json:"movieId"`
}

// AllocinePayload is the payload of a ratings job.
type AllocinePayload struct {
	MovieID     int64     `json:"id"`
	TmdbID      int64     `json:"tmdbId"`
	Title       string    `json:"title"`
	ReleaseDate time.Time `json:"releaseDate"`
}
