package presence

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bilda/backend/internal/models"
)

// Cap on concurrent profile/project lookups per refresh cycle.
const enrichConcurrency = 8

// ProfileSource looks up the public profile snapshot for a user.
type ProfileSource interface {
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// ProjectSource looks up a project by ID.
type ProjectSource interface {
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// Enricher joins raw live sessions with profile and project display data.
// Nothing is cached between cycles: every refresh re-fetches, trading
// efficiency for freshness at the low cardinality of concurrently-live
// sessions.
type Enricher struct {
	profiles ProfileSource
	projects ProjectSource
	logger   *zap.Logger
}

// NewEnricher creates an enricher over the given lookup sources.
func NewEnricher(profiles ProfileSource, projects ProjectSource, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{profiles: profiles, projects: projects, logger: logger}
}

// Enrich returns one item per input session, in input order. A failed or
// empty lookup leaves the corresponding field nil; the session is never
// dropped and no other session's entry is affected.
func (e *Enricher) Enrich(ctx context.Context, sessions []models.LiveSession) []models.EnrichedLiveSession {
	items := make([]models.EnrichedLiveSession, len(sessions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, s := range sessions {
		i, s := i, s
		g.Go(func() error {
			item := models.EnrichedLiveSession{LiveSession: s}
			profile, err := e.profiles.GetProfileByUserID(ctx, s.UserID)
			if err != nil {
				e.logger.Debug("profile lookup failed", zap.String("user_id", s.UserID.String()), zap.Error(err))
			} else {
				item.Profile = profile
			}
			project, err := e.projects.GetProjectByID(ctx, s.ProjectID)
			if err != nil {
				e.logger.Debug("project lookup failed", zap.String("project_id", s.ProjectID.String()), zap.Error(err))
			} else {
				item.Project = project
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; partial failures degrade to nil fields

	return items
}
