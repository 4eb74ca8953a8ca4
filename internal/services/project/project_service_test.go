package project_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/project"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/testutil"
)

type fixture struct {
	svc    *project.Service
	users  *repositories.UserRepository
	client *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewTestDB(t)
	users := repositories.NewUserRepository(gdb)
	f := &fixture{
		svc:   project.NewService(repositories.NewProjectRepository(gdb), users, repositories.NewProfileRepository(gdb)),
		users: users,
	}
	f.client = f.user(t, "client", models.RoleClient)
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) project(t *testing.T) *models.Project {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.client.ID, project.CreateInput{
		Title:          "Build a landing page",
		Description:    "Single page, responsive",
		Budget:         500,
		SkillsRequired: []string{"html", " css ", "html"},
		Category:       "web",
	})
	require.NoError(t, err)
	return p
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, kind), "expected %v, got %v", kind, err)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("should create an open project with normalized skills", func(t *testing.T) {
		p := f.project(t)
		assert.Equal(t, models.ProjectOpen, p.Status)
		assert.Equal(t, []string{"html", "css"}, []string(p.SkillsRequired))
		assert.Empty(t, p.Applicants)
	})

	t.Run("should reject a project without a title", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.client.ID, project.CreateInput{Description: "x"})
		assertKind(t, err, apperr.KindValidation)
	})
}

func TestLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)
	p := f.project(t)

	p, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u.ID}, []uuid.UUID(p.Applicants))

	p, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectInProgress, p.Status)
	require.NotNil(t, p.SelectedFreelancer)
	assert.Equal(t, u.ID, *p.SelectedFreelancer)
	assert.True(t, p.IsAssigned)
	assert.NotNil(t, p.AcceptedAt)

	p, err = f.svc.Confirm(ctx, p.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, p.Confirm)
	assert.NotNil(t, p.ConfirmedAt)

	err = f.svc.Delete(ctx, f.client.ID, p.ID)
	assertKind(t, err, apperr.KindForbidden)

	stored, err := f.svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirm)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	t.Run("should reject applying twice", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)

		_, err = f.svc.Apply(ctx, p.ID, u.ID)
		assertKind(t, err, apperr.KindValidation)

		stored, err := f.svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Applicants, 1)
	})

	t.Run("should return not found for an unknown project or user", func(t *testing.T) {
		_, err := f.svc.Apply(ctx, uuid.New(), u.ID)
		assertKind(t, err, apperr.KindNotFound)

		p := f.project(t)
		_, err = f.svc.Apply(ctx, p.ID, uuid.New())
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("should reject applying to a project in progress", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		require.NoError(t, err)

		late := f.user(t, "late", models.RoleFreelancer)
		_, err = f.svc.Apply(ctx, p.ID, late.ID)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should keep application order in applicants", func(t *testing.T) {
		p := f.project(t)
		second := f.user(t, "second", models.RoleFreelancer)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.Apply(ctx, p.ID, second.ID)
		require.NoError(t, err)

		applicants, err := f.svc.Applicants(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, applicants, 2)
		assert.Equal(t, "freelancer", applicants[0].Username)
		assert.Equal(t, "second", applicants[1].Username)
	})
}

func TestUnapply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	t.Run("should forbid the selected freelancer even when listed as applicant", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		require.NoError(t, err)

		_, err = f.svc.Unapply(ctx, p.ID, u.ID)
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should reject a user who never applied", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Unapply(ctx, p.ID, u.ID)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should remove the applicant", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)

		p, err = f.svc.Unapply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		assert.Empty(t, p.Applicants)
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	t.Run("should reject an unknown status", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectStatus("Paused"), nil)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should require a freelancer to start the project", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, nil)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should return not found for a freelancer who did not apply", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		assertKind(t, err, apperr.KindNotFound)
	})

	t.Run("should only let the owner change the status", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, u.ID, p.ID, models.ProjectInProgress, &u.ID)
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should clear the assignment when reopened", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		require.NoError(t, err)

		p, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectOpen, nil)
		require.NoError(t, err)
		assert.Nil(t, p.SelectedFreelancer)
		assert.False(t, p.IsAssigned)
	})

	t.Run("should not reopen a confirmed project", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, p.ID, u.ID)
		require.NoError(t, err)

		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectOpen, nil)
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should unassign on completion", func(t *testing.T) {
		p := f.project(t)
		_, err := f.svc.Apply(ctx, p.ID, u.ID)
		require.NoError(t, err)
		_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
		require.NoError(t, err)

		p, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectCompleted, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectCompleted, p.Status)
		assert.False(t, p.IsAssigned)
		require.NotNil(t, p.SelectedFreelancer)
	})
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)
	other := f.user(t, "other", models.RoleFreelancer)

	p := f.project(t)
	_, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, p.ID, other.ID)
	require.NoError(t, err)

	t.Run("should forbid confirming before anyone is selected", func(t *testing.T) {
		_, err := f.svc.Confirm(ctx, p.ID, u.ID)
		assertKind(t, err, apperr.KindForbidden)
	})

	_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)

	t.Run("should forbid anyone but the selected freelancer", func(t *testing.T) {
		for _, id := range []uuid.UUID{other.ID, f.client.ID, uuid.New()} {
			_, err := f.svc.Confirm(ctx, p.ID, id)
			assertKind(t, err, apperr.KindForbidden)
		}
	})

	t.Run("should confirm for the selected freelancer", func(t *testing.T) {
		confirmed, err := f.svc.Confirm(ctx, p.ID, u.ID)
		require.NoError(t, err)
		assert.True(t, confirmed.Confirm)
	})

	t.Run("should not switch the freelancer after confirmation", func(t *testing.T) {
		_, err := f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &other.ID)
		assertKind(t, err, apperr.KindForbidden)
	})
}

func TestConfirmedProjectIsLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	p := f.project(t)
	_, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, p.ID, u.ID)
	require.NoError(t, err)

	_, err = f.svc.UndoAccept(ctx, f.client.ID, p.ID)
	assertKind(t, err, apperr.KindForbidden)

	err = f.svc.Delete(ctx, f.client.ID, p.ID)
	assertKind(t, err, apperr.KindForbidden)
}

func TestUndoAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	p := f.project(t)
	_, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)

	t.Run("should only let the owner undo", func(t *testing.T) {
		_, err := f.svc.UndoAccept(ctx, u.ID, p.ID)
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should reopen an unconfirmed project", func(t *testing.T) {
		p, err := f.svc.UndoAccept(ctx, f.client.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectOpen, p.Status)
		assert.Nil(t, p.SelectedFreelancer)
		assert.False(t, p.IsAssigned)
		assert.Equal(t, []uuid.UUID{u.ID}, []uuid.UUID(p.Applicants))
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	p := f.project(t)
	_, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, p.ID, u.ID)
	require.NoError(t, err)

	t.Run("should forbid anyone but the selected freelancer", func(t *testing.T) {
		_, err := f.svc.Withdraw(ctx, p.ID, f.client.ID)
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should release the assignment and leave the status as it was", func(t *testing.T) {
		_, err := f.svc.Withdraw(ctx, p.ID, u.ID)
		require.NoError(t, err)

		stored, err := f.svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, stored.Confirm)
		assert.Nil(t, stored.SelectedFreelancer)
		assert.False(t, stored.IsAssigned)
		assert.Nil(t, stored.AcceptedAt)
		assert.Nil(t, stored.ConfirmedAt)
		assert.Equal(t, models.ProjectInProgress, stored.Status)
	})

	t.Run("should allow deleting once withdrawn", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, f.client.ID, p.ID))
		_, err := f.svc.Get(ctx, p.ID)
		assertKind(t, err, apperr.KindNotFound)
	})
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewTestDB(t)
	repo := repositories.NewProjectRepository(gdb)
	users := repositories.NewUserRepository(gdb)
	svc := project.NewService(repo, users, repositories.NewProfileRepository(gdb))

	client := &models.User{Username: "client", Email: "c@example.com", Password: "x", Role: models.RoleClient}
	require.NoError(t, users.Create(ctx, client))
	p, err := svc.Create(ctx, client.ID, project.CreateInput{Title: "t", Description: "d"})
	require.NoError(t, err)

	stale, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, client.ID, p.ID, project.CreateInput{Title: "fresh", Description: "d"})
	require.NoError(t, err)

	stale.Title = "stale"
	err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, repositories.ErrConflict)
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)

	open := f.project(t)
	started := f.project(t)
	_, err := f.svc.Apply(ctx, open.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, started.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.client.ID, started.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)

	t.Run("should list the client's projects", func(t *testing.T) {
		out, err := f.svc.ListForClient(ctx, f.client.ID)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("should list only ongoing projects for the client", func(t *testing.T) {
		out, err := f.svc.ListOngoingForClient(ctx, f.client.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, started.ID, out[0].ID)
	})

	t.Run("should list projects the freelancer applied to", func(t *testing.T) {
		out, err := f.svc.ListApplied(ctx, u.ID)
		require.NoError(t, err)
		assert.Len(t, out, 2)
	})

	t.Run("should list projects assigned to the freelancer", func(t *testing.T) {
		out, err := f.svc.ListAssigned(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, started.ID, out[0].ID)
	})

	t.Run("should filter by status", func(t *testing.T) {
		out, err := f.svc.List(ctx, repositories.ProjectFilter{Status: models.ProjectOpen})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, open.ID, out[0].ID)

		_, err = f.svc.List(ctx, repositories.ProjectFilter{Status: "bogus"})
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should list categories of open projects", func(t *testing.T) {
		out, err := f.svc.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"web"}, out)
	})
}

func TestDisputesAndReviews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "freelancer", models.RoleFreelancer)
	admin := f.user(t, "admin", models.RoleAdmin)

	p := f.project(t)
	_, err := f.svc.Apply(ctx, p.ID, u.ID)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.client.ID, p.ID, models.ProjectInProgress, &u.ID)
	require.NoError(t, err)

	t.Run("should not review a project that is not completed", func(t *testing.T) {
		_, err := f.svc.CreateReview(ctx, p.ID, f.client.ID, project.ReviewInput{Rating: 5})
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should forbid outsiders from opening a dispute", func(t *testing.T) {
		_, err := f.svc.OpenDispute(ctx, p.ID, admin.ID, "no show")
		assertKind(t, err, apperr.KindForbidden)
	})

	var dispute *models.Dispute
	t.Run("should freeze the project while disputed", func(t *testing.T) {
		dispute, err = f.svc.OpenDispute(ctx, p.ID, f.client.ID, "deadline missed")
		require.NoError(t, err)
		assert.Equal(t, models.DisputeOpen, dispute.Status)

		stored, err := f.svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectDispute, stored.Status)
	})

	t.Run("should complete the project when resolved", func(t *testing.T) {
		require.NotNil(t, dispute)
		d, err := f.svc.ResolveDispute(ctx, admin.ID, dispute.ID, project.ResolveInput{
			Outcome:    models.DisputeResolved,
			Resolution: "work delivered late but accepted",
		})
		require.NoError(t, err)
		assert.Equal(t, models.DisputeResolved, d.Status)
		require.NotNil(t, d.ResolvedBy)
		assert.Equal(t, admin.ID, *d.ResolvedBy)

		stored, err := f.svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ProjectCompleted, stored.Status)

		_, err = f.svc.ResolveDispute(ctx, admin.ID, dispute.ID, project.ResolveInput{Outcome: models.DisputeRejected, Resolution: "again"})
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should let each party review the other once", func(t *testing.T) {
		rv, err := f.svc.CreateReview(ctx, p.ID, f.client.ID, project.ReviewInput{Rating: 4, Comment: " good "})
		require.NoError(t, err)
		assert.Equal(t, u.ID, rv.RevieweeID)
		assert.Equal(t, "good", rv.Comment)

		_, err = f.svc.CreateReview(ctx, p.ID, f.client.ID, project.ReviewInput{Rating: 1})
		assertKind(t, err, apperr.KindValidation)

		_, err = f.svc.CreateReview(ctx, p.ID, u.ID, project.ReviewInput{Rating: 5})
		require.NoError(t, err)

		reviews, err := f.svc.ListReviews(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		require.NotNil(t, reviews[0].Reviewer)
		assert.Equal(t, "client", reviews[0].Reviewer.Username)
	})

	t.Run("should reject an out of range rating", func(t *testing.T) {
		_, err := f.svc.CreateReview(ctx, p.ID, u.ID, project.ReviewInput{Rating: 9})
		assertKind(t, err, apperr.KindValidation)
	})
}
