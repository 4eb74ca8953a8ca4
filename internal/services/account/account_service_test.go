package account_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/account"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/testutil"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/utils"
)

type notification struct {
	userID uuid.UUID
	event  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, event string, _ interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID: userID, event: event})
	return nil
}

func newService(t *testing.T, ttl time.Duration) (*account.Service, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := account.NewService(repositories.NewUserRepository(testutil.NewTestDB(t)), notifier, account.Options{
		JWTSecret:     "secret",
		JWTExpiresMin: 5,
		VerifyCodeTTL: ttl,
	})
	return svc, notifier
}

func signUpVerified(t *testing.T, svc *account.Service, username string) *models.User {
	t.Helper()
	ctx := context.Background()
	u, code, err := svc.SignUp(ctx, account.SignUpInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	_, err = svc.VerifyCode(ctx, u.Username, code)
	require.NoError(t, err)
	return u
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, kind), "expected %v, got %v", kind, err)
}

func TestSignUpAndLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("should require verification before login", func(t *testing.T) {
		svc, _ := newService(t, time.Hour)
		u, code, err := svc.SignUp(ctx, account.SignUpInput{Username: "ana_dev", Email: "Ana@Example.com", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", u.Email)
		assert.Equal(t, models.RoleClient, u.Role)
		assert.Len(t, code, 6)

		_, _, err = svc.Login(ctx, "ana_dev", "secret123")
		assertKind(t, err, apperr.KindUnauthorized)

		_, err = svc.VerifyCode(ctx, "ana_dev", "000000x")
		assertKind(t, err, apperr.KindValidation)

		verified, err := svc.VerifyCode(ctx, "ana_dev", code)
		require.NoError(t, err)
		assert.True(t, verified.IsVerified)

		logged, token, err := svc.Login(ctx, "ana@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, u.ID, logged.ID)

		claims, err := utils.ParseJWT("secret", token)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.UserID)
	})

	t.Run("should reject a wrong password", func(t *testing.T) {
		svc, _ := newService(t, time.Hour)
		signUpVerified(t, svc, "bob")
		_, _, err := svc.Login(ctx, "bob", "nope-nope")
		assertKind(t, err, apperr.KindUnauthorized)
	})

	t.Run("should reject an expired code", func(t *testing.T) {
		svc, _ := newService(t, time.Nanosecond)
		u, code, err := svc.SignUp(ctx, account.SignUpInput{Username: "late", Email: "late@example.com", Password: "secret123"})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)

		_, err = svc.VerifyCode(ctx, u.Username, code)
		assertKind(t, err, apperr.KindValidation)
	})

	t.Run("should let an unverified account sign up again", func(t *testing.T) {
		svc, _ := newService(t, time.Hour)
		first, _, err := svc.SignUp(ctx, account.SignUpInput{Username: "again", Email: "again@example.com", Password: "secret123"})
		require.NoError(t, err)
		second, _, err := svc.SignUp(ctx, account.SignUpInput{Username: "again", Email: "again@example.com", Password: "secret456", Role: models.RoleFreelancer})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, models.RoleFreelancer, second.Role)
	})

	t.Run("should reject taken usernames and bad input", func(t *testing.T) {
		svc, _ := newService(t, time.Hour)
		signUpVerified(t, svc, "taken")

		_, _, err := svc.SignUp(ctx, account.SignUpInput{Username: "taken", Email: "other@example.com", Password: "secret123"})
		assertKind(t, err, apperr.KindValidation)

		_, _, err = svc.SignUp(ctx, account.SignUpInput{Username: "bad name!", Email: "x@example.com", Password: "secret123"})
		assertKind(t, err, apperr.KindValidation)

		_, _, err = svc.SignUp(ctx, account.SignUpInput{Username: "admin1", Email: "a@example.com", Password: "secret123", Role: models.RoleAdmin})
		assertKind(t, err, apperr.KindValidation)
	})
}

func TestUsernameUnique(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Hour)
	signUpVerified(t, svc, "carol")
	_, _, err := svc.SignUp(ctx, account.SignUpInput{Username: "pending", Email: "p@example.com", Password: "secret123"})
	require.NoError(t, err)

	unique, err := svc.IsUsernameUnique(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsUsernameUnique(ctx, "pending")
	require.NoError(t, err)
	assert.True(t, unique)

	_, err = svc.IsUsernameUnique(ctx, "x")
	assertKind(t, err, apperr.KindValidation)
}

func TestAnonymousMessages(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newService(t, time.Hour)
	u := signUpVerified(t, svc, "dave")

	t.Run("should store a message and notify the recipient", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, "dave", "great work on the logo")
		require.NoError(t, err)

		msgs, err := svc.ListMessages(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "great work on the logo", msgs[0].Content)
		require.Len(t, notifier.sent, 1)
		assert.Equal(t, u.ID, notifier.sent[0].userID)
	})

	t.Run("should refuse when the recipient is not accepting messages", func(t *testing.T) {
		updated, err := svc.SetAcceptMessages(ctx, u.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.IsAcceptingMessages)

		_, err = svc.SendMessage(ctx, "dave", "hello?")
		assertKind(t, err, apperr.KindForbidden)
	})

	t.Run("should return not found for an unknown user", func(t *testing.T) {
		_, err := svc.SendMessage(ctx, "nobody", "hello")
		assertKind(t, err, apperr.KindNotFound)
	})
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, time.Hour)

	first, token, err := svc.GoogleLogin(ctx, "Erin.Smith@gmail.com", "Erin Smith")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, first.IsVerified)
	assert.Equal(t, "erin.smith@gmail.com", first.Email)
	assert.Regexp(t, `^erinsmith_[0-9a-f]{6}$`, first.Username)

	second, _, err := svc.GoogleLogin(ctx, "erin.smith@gmail.com", "Erin")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Erin Smith", second.Name)
}
