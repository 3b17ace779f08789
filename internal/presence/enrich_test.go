package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/bilda/backend/internal/models"
)

type mapProfiles struct {
	profiles map[uuid.UUID]*models.Profile
	errFor   map[uuid.UUID]error
}

func (m mapProfiles) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	if err := m.errFor[userID]; err != nil {
		return nil, err
	}
	return m.profiles[userID], nil
}

type mapProjects struct {
	projects map[uuid.UUID]*models.Project
	errFor   map[uuid.UUID]error
}

func (m mapProjects) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if err := m.errFor[id]; err != nil {
		return nil, err
	}
	return m.projects[id], nil
}

func TestEnrichPreservesOrder(t *testing.T) {
	sessions := []models.LiveSession{
		session(uuid.New()),
		session(uuid.New()),
		session(uuid.New()),
	}
	profiles := mapProfiles{profiles: map[uuid.UUID]*models.Profile{}}
	projects := mapProjects{projects: map[uuid.UUID]*models.Project{}}
	for _, s := range sessions {
		profiles.profiles[s.UserID] = &models.Profile{UserID: s.UserID, Handle: "h-" + s.UserID.String()[:8]}
		projects.projects[s.ProjectID] = &models.Project{ID: s.ProjectID}
	}

	items := NewEnricher(profiles, projects, nil).Enrich(context.Background(), sessions)
	if len(items) != len(sessions) {
		t.Fatalf("Enrich() returned %d items, want %d", len(items), len(sessions))
	}
	for i := range sessions {
		if items[i].ID != sessions[i].ID {
			t.Fatalf("item %d out of order: got session %s, want %s", i, items[i].ID, sessions[i].ID)
		}
		if items[i].Profile == nil || items[i].Profile.UserID != sessions[i].UserID {
			t.Fatalf("item %d profile mismatch", i)
		}
		if items[i].Project == nil || items[i].Project.ID != sessions[i].ProjectID {
			t.Fatalf("item %d project mismatch", i)
		}
	}
}

func TestEnrichPartialFailureLeavesNilFields(t *testing.T) {
	good := session(uuid.New())
	badProfile := session(uuid.New())
	goneProject := session(uuid.New())

	profiles := mapProfiles{
		profiles: map[uuid.UUID]*models.Profile{
			good.UserID:        {UserID: good.UserID},
			goneProject.UserID: {UserID: goneProject.UserID},
		},
		errFor: map[uuid.UUID]error{badProfile.UserID: errors.New("timeout")},
	}
	projects := mapProjects{
		projects: map[uuid.UUID]*models.Project{
			good.ProjectID:       {ID: good.ProjectID},
			badProfile.ProjectID: {ID: badProfile.ProjectID},
			// goneProject's project deleted mid-session: lookup returns nil, nil
		},
	}

	items := NewEnricher(profiles, projects, nil).Enrich(context.Background(), []models.LiveSession{good, badProfile, goneProject})
	if len(items) != 3 {
		t.Fatalf("Enrich() returned %d items, want 3; failed lookups must not drop sessions", len(items))
	}

	if items[0].Profile == nil || items[0].Project == nil {
		t.Fatalf("fully resolvable session has nil fields: %+v", items[0])
	}
	if items[1].Profile != nil {
		t.Fatalf("failed profile lookup should leave nil, got %+v", items[1].Profile)
	}
	if items[1].Project == nil {
		t.Fatalf("profile failure must not affect project lookup")
	}
	if items[2].Project != nil {
		t.Fatalf("missing project should be nil, got %+v", items[2].Project)
	}
	if items[2].Profile == nil {
		t.Fatalf("project failure must not affect profile lookup")
	}
}

func TestEnrichEmptyInput(t *testing.T) {
	items := newTestEnricher().Enrich(context.Background(), nil)
	if len(items) != 0 {
		t.Fatalf("Enrich(nil) returned %d items, want 0", len(items))
	}
}
