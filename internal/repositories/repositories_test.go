package repositories_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/testutil"
)

func TestProjectRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a write based on a stale version", func(t *testing.T) {
		repo := repositories.NewProjectRepository(testutil.NewTestDB(t))
		p := &models.Project{ClientID: uuid.New(), Title: "Landing page"}
		require.NoError(t, repo.Create(ctx, p))
		assert.Equal(t, int64(1), p.Version)

		first, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		second, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)

		first.Title = "Landing page v2"
		require.NoError(t, repo.Update(ctx, first))
		assert.Equal(t, int64(2), first.Version)

		second.Title = "lost update"
		assert.ErrorIs(t, repo.Update(ctx, second), repositories.ErrConflict)
		assert.Equal(t, int64(1), second.Version)

		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Landing page v2", stored.Title)
	})

	t.Run("should clear nullable columns on update", func(t *testing.T) {
		repo := repositories.NewProjectRepository(testutil.NewTestDB(t))
		freelancer := uuid.New()
		p := &models.Project{ClientID: uuid.New(), Title: "API", SelectedFreelancer: &freelancer, IsAssigned: true}
		require.NoError(t, repo.Create(ctx, p))

		p.SelectedFreelancer = nil
		p.IsAssigned = false
		require.NoError(t, repo.Update(ctx, p))

		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.SelectedFreelancer)
		assert.False(t, stored.IsAssigned)
	})

	t.Run("should find projects by applicant", func(t *testing.T) {
		repo := repositories.NewProjectRepository(testutil.NewTestDB(t))
		applicant := uuid.New()
		applied := &models.Project{ClientID: uuid.New(), Title: "applied", Applicants: datatypes.JSONSlice[uuid.UUID]{uuid.New(), applicant}}
		other := &models.Project{ClientID: uuid.New(), Title: "other", Applicants: datatypes.JSONSlice[uuid.UUID]{uuid.New()}}
		require.NoError(t, repo.Create(ctx, applied))
		require.NoError(t, repo.Create(ctx, other))

		found, err := repo.ListByApplicant(ctx, applicant)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, applied.ID, found[0].ID)
		assert.Equal(t, []uuid.UUID(applied.Applicants), []uuid.UUID(found[0].Applicants))
	})

	t.Run("should list distinct categories of open projects", func(t *testing.T) {
		repo := repositories.NewProjectRepository(testutil.NewTestDB(t))
		require.NoError(t, repo.Create(ctx, &models.Project{ClientID: uuid.New(), Title: "a", Category: "design"}))
		require.NoError(t, repo.Create(ctx, &models.Project{ClientID: uuid.New(), Title: "b", Category: "design"}))
		require.NoError(t, repo.Create(ctx, &models.Project{ClientID: uuid.New(), Title: "c", Category: "backend"}))
		require.NoError(t, repo.Create(ctx, &models.Project{ClientID: uuid.New(), Title: "d", Category: "closed", Status: models.ProjectCompleted}))

		categories, err := repo.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"backend", "design"}, categories)
	})
}

func TestChatRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the existing chat when the project already has one", func(t *testing.T) {
		repo := repositories.NewChatRepository(testutil.NewTestDB(t))
		projectID := uuid.New()

		first, created, err := repo.CreateOnce(ctx, &models.Chat{ProjectID: projectID, ClientID: uuid.New(), FreelancerID: uuid.New()})
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := repo.CreateOnce(ctx, &models.Chat{ProjectID: projectID, ClientID: uuid.New(), FreelancerID: uuid.New()})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("should number messages in insertion order", func(t *testing.T) {
		repo := repositories.NewChatRepository(testutil.NewTestDB(t))
		chat, _, err := repo.CreateOnce(ctx, &models.Chat{ProjectID: uuid.New(), ClientID: uuid.New(), FreelancerID: uuid.New()})
		require.NoError(t, err)

		for _, text := range []string{"one", "two", "three"} {
			require.NoError(t, repo.AppendMessage(ctx, chat, &models.ChatMessage{SenderID: chat.ClientID, Text: text, Type: models.MessageText}))
		}

		msgs, err := repo.Messages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		for i, text := range []string{"one", "two", "three"} {
			assert.Equal(t, text, msgs[i].Text)
			assert.Equal(t, int64(i+1), msgs[i].Seq)
		}
		assert.Equal(t, int64(3), chat.MessageCount)
		assert.Equal(t, int64(4), chat.Version)
	})

	t.Run("should refuse an append from a stale chat", func(t *testing.T) {
		repo := repositories.NewChatRepository(testutil.NewTestDB(t))
		chat, _, err := repo.CreateOnce(ctx, &models.Chat{ProjectID: uuid.New(), ClientID: uuid.New(), FreelancerID: uuid.New()})
		require.NoError(t, err)
		stale := *chat

		require.NoError(t, repo.AppendMessage(ctx, chat, &models.ChatMessage{SenderID: chat.ClientID, Text: "first"}))
		err = repo.AppendMessage(ctx, &stale, &models.ChatMessage{SenderID: chat.FreelancerID, Text: "racing"})
		assert.ErrorIs(t, err, repositories.ErrConflict)

		msgs, err := repo.Messages(ctx, chat.ID)
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewUserRepository(testutil.NewTestDB(t))

	a := &models.User{Username: "alice", Email: "alice@example.com", Password: "x", Role: models.RoleClient}
	b := &models.User{Username: "bob", Email: "bob@example.com", Password: "x", Role: models.RoleFreelancer}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	users, err := repo.ListByIDs(ctx, []uuid.UUID{b.ID, uuid.New(), a.ID})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, "alice", users[1].Username)

	_, err = repo.GetByUsername(ctx, "carol")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
