package integration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

type singleJobQueue struct {
	job       domain.EnrichmentJob
	claimed   bool
	completed bool
}

func (q *singleJobQueue) Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.EnrichmentJob, error) {
	if q.claimed {
		return nil, nil
	}
	q.claimed = true
	return []domain.EnrichmentJob{q.job}, nil
}

func (q *singleJobQueue) Complete(ctx context.Context, id uuid.UUID) error {
	q.completed = true
	return nil
}

func (q *singleJobQueue) Retry(ctx context.Context, id uuid.UUID, lastErr string, runAfter time.Time) error {
	return nil
}

func (q *singleJobQueue) Fail(ctx context.Context, id uuid.UUID, lastErr string) error {
	return nil
}
