package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cine-map/internal/catalog"
	"github.com/Clark-Hu/cine-map/internal/domain"
	"github.com/Clark-Hu/cine-map/internal/jobs"
	"github.com/Clark-Hu/cine-map/internal/repository"
)

// CreditsReport counts what IngestCredits wrote.
type CreditsReport struct {
	Persons int64
	Cast    int64
	Crew    int64
}

// IngestCredits fetches the cast and crew of tmdbID, stores the referenced
// persons and links them to movieID. Crew with an unknown job is dropped and
// duplicate links are ignored, so the call is safe to repeat.
func (p *Pipeline) IngestCredits(ctx context.Context, tmdbID, movieID int64) (CreditsReport, error) {
	log := p.logger.WithFields(logrus.Fields{"tmdb_id": tmdbID, "movie_id": movieID})

	credits, err := p.catalog.GetCredits(ctx, tmdbID)
	if err != nil {
		return CreditsReport{}, fmt.Errorf("fetch credits: %w", err)
	}

	crew := make([]domain.CrewCredit, 0, len(credits.Crew))
	for _, c := range credits.Crew {
		if c.Job != domain.JobUnknown {
			crew = append(crew, c)
		}
	}

	ids := uniquePersonIDs(credits.Cast, crew)
	details, err := p.catalog.GetPersons(ctx, ids)
	if err != nil {
		return CreditsReport{}, fmt.Errorf("fetch persons: %w", err)
	}

	var report CreditsReport
	if report.Persons, err = p.persons.InsertIgnoreConflicts(ctx, details); err != nil {
		return report, err
	}

	resolved, err := p.resolvePersons(ctx, ids, details)
	if err != nil {
		return report, err
	}

	crewRows := make([]domain.Crew, 0, len(crew))
	for _, c := range crew {
		if personID, ok := resolved[c.TmdbID]; ok {
			crewRows = append(crewRows, domain.Crew{MovieID: movieID, PersonID: personID, Job: c.Job})
		}
	}

	cast := append([]domain.CastCredit(nil), credits.Cast...)
	sort.SliceStable(cast, func(i, j int) bool { return cast[i].Order < cast[j].Order })
	castRows := make([]domain.Cast, 0, len(cast))
	for _, c := range cast {
		personID, ok := resolved[c.TmdbID]
		if !ok {
			continue
		}
		order := c.Order
		castRows = append(castRows, domain.Cast{MovieID: movieID, PersonID: personID, Character: c.Character, Order: &order})
	}

	if report.Crew, err = p.credits.InsertCrew(ctx, crewRows); err != nil {
		return report, err
	}
	if report.Cast, err = p.credits.InsertCast(ctx, castRows); err != nil {
		return report, err
	}

	if missing := len(ids) - len(resolved); missing > 0 {
		log.WithField("unresolved", missing).Warn("integration: some persons could not be resolved")
	}
	log.WithFields(logrus.Fields{
		"persons": report.Persons,
		"cast":    report.Cast,
		"crew":    report.Crew,
	}).Info("integration: credits ingested")
	return report, nil
}

// resolvePersons maps catalog person ids to stored ids. Persons whose insert
// collided on (name, birthday) with a row imported under another tmdb id are
// resolved through that natural key.
func (p *Pipeline) resolvePersons(ctx context.Context, ids []int64, details []domain.PersonDetails) (map[int64]int64, error) {
	stored, err := p.persons.FindByTmdbIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find persons: %w", err)
	}
	resolved := make(map[int64]int64, len(ids))
	for _, person := range stored {
		if person.TmdbID != nil {
			resolved[*person.TmdbID] = person.ID
		}
	}

	for _, d := range details {
		if _, ok := resolved[d.TmdbID]; ok {
			continue
		}
		person, err := p.persons.FindByNaturalKey(ctx, d.Name, d.Birthday)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find person %q: %w", d.Name, err)
		}
		resolved[d.TmdbID] = person.ID
	}
	return resolved, nil
}

func uniquePersonIDs(cast []domain.CastCredit, crew []domain.CrewCredit) []int64 {
	seen := make(map[int64]struct{}, len(cast)+len(crew))
	ids := make([]int64, 0, len(cast)+len(crew))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, c := range cast {
		add(c.TmdbID)
	}
	for _, c := range crew {
		add(c.TmdbID)
	}
	return ids
}

// IngestRatings scrapes the ratings of a movie and upserts them, storing an
// all-null row when nothing matched.
func (p *Pipeline) IngestRatings(ctx context.Context, movieID int64, title string, releaseDate time.Time) (domain.AllocineRating, error) {
	year := 0
	if !releaseDate.IsZero() {
		year = releaseDate.Year()
	}
	ratings, err := p.scraper.GetRatings(ctx, title, year)
	if err != nil {
		return domain.AllocineRating{}, fmt.Errorf("scrape ratings: %w", err)
	}
	stored, _, err := p.ratings.Upsert(ctx, repository.RatingUpsertParams{
		MovieID:   movieID,
		Critic:    ratings.Critic,
		Spectator: ratings.Spectator,
		Link:      ratings.Link,
	})
	if err != nil {
		return domain.AllocineRating{}, err
	}
	p.logger.WithFields(logrus.Fields{
		"movie_id": movieID,
		"matched":  ratings.Link != nil,
	}).Info("integration: ratings ingested")
	return stored, nil
}

// CreditsJob is the queue handler for credits jobs.
func (p *Pipeline) CreditsJob(ctx context.Context, job domain.EnrichmentJob) error {
	var payload domain.CreditsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return jobs.Permanent(fmt.Errorf("decode credits payload: %w", err))
	}
	_, err := p.IngestCredits(ctx, payload.TmdbID, payload.MovieID)
	return classify(err)
}

// AllocineJob is the queue handler for ratings jobs.
func (p *Pipeline) AllocineJob(ctx context.Context, job domain.EnrichmentJob) error {
	var payload domain.AllocinePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return jobs.Permanent(fmt.Errorf("decode allocine payload: %w", err))
	}
	_, err := p.IngestRatings(ctx, payload.MovieID, payload.Title, payload.ReleaseDate)
	return classify(err)
}

// Register attaches the enrichment handlers to a worker.
func (p *Pipeline) Register(w *jobs.Worker) {
	w.Handle(domain.JobKindCredits, p.CreditsJob)
	w.Handle(domain.JobKindAllocine, p.AllocineJob)
}

// classify marks errors that a retry cannot fix.
func classify(err error) error {
	var validationErr *catalog.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrNotFound), errors.As(err, &validationErr):
		return jobs.Permanent(err)
	default:
		return err
	}
}
