package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gartstein/safework/internal/safework/cache"
	e "github.com/gartstein/safework/internal/safework/errors"
	"github.com/gartstein/safework/internal/safework/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

type recordingNotifier struct {
	tokens []string
	err    error
}

func (n *recordingNotifier) NotifyPasswordReset(_ context.Context, _ *models.User, token string, _ time.Time) error {
	n.tokens = append(n.tokens, token)
	return n.err
}

type serviceFixture struct {
	svc      *Service
	store    *mockUserStore
	notifier *recordingNotifier
	cache    *cache.Memory
	hasher   *Hasher
	user     *models.User
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	hasher := NewHasher(4)
	hash, err := hasher.Hash("Admin@123")
	require.NoError(t, err)

	user := testUser()
	user.PasswordHash = hash

	f := &serviceFixture{
		store:    &mockUserStore{},
		notifier: &recordingNotifier{},
		cache:    cache.NewMemory(context.Background(), 0),
		hasher:   hasher,
		user:     user,
	}
	f.svc, err = NewService(f.store, newTestIssuer(t, "test-secret"), hasher, f.cache, f.notifier,
		15*time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)
	return f
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)

		res, err := f.svc.Authenticate(ctx, "admin@safework.com", "Admin@123")
		require.NoError(t, err)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, f.user.ID, res.User.ID)
		assert.Equal(t, "Administrator", res.User.Role)

		id, err := f.svc.Authorize(res.Token)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, id.UserID)
		assert.Equal(t, models.RoleAdministrator, id.Role())
	})

	t.Run("wrong secret and unknown email are indistinguishable", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)
		f.store.On("GetUserByEmail", ctx, "nobody@safework.com").Return(nil, e.ErrNotFound)

		_, wrongSecret := f.svc.Authenticate(ctx, "admin@safework.com", "Wrong@123")
		_, unknown := f.svc.Authenticate(ctx, "nobody@safework.com", "Admin@123")

		assert.ErrorIs(t, wrongSecret, e.ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, e.ErrInvalidCredentials)
		assert.Equal(t, wrongSecret.Error(), unknown.Error())
	})

	t.Run("inactive user", func(t *testing.T) {
		f := newServiceFixture(t)
		f.user.Active = false
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)

		_, err := f.svc.Authenticate(ctx, "admin@safework.com", "Admin@123")
		assert.ErrorIs(t, err, e.ErrInvalidCredentials)
	})

	t.Run("store failure is not masked", func(t *testing.T) {
		f := newServiceFixture(t)
		boom := errors.New("connection refused")
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(nil, boom)

		_, err := f.svc.Authenticate(ctx, "admin@safework.com", "Admin@123")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, e.ErrInvalidCredentials)
	})
}

func TestAuthorizeRejects(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Authorize("")
	assert.ErrorIs(t, err, e.ErrInvalidToken)

	expired := newTestIssuer(t, "test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := expired.Issue(f.user)
	require.NoError(t, err)

	_, err = f.svc.Authorize(token)
	assert.ErrorIs(t, err, e.ErrTokenExpired)
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("token resets once", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)
		f.store.On("UpdateUserPassword", ctx, f.user.ID, mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "admin@safework.com"))
		require.Len(t, f.notifier.tokens, 1)
		token := f.notifier.tokens[0]

		require.NoError(t, f.svc.ResetPassword(ctx, token, "Newpass@456"))
		assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "Newpass@456"), e.ErrInvalidToken)

		f.store.AssertExpectations(t)
		hash := f.store.Calls[len(f.store.Calls)-1].Arguments.String(2)
		assert.NoError(t, f.hasher.Verify("Newpass@456", hash))
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "nobody@safework.com").Return(nil, e.ErrNotFound)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@safework.com"))
		assert.Empty(t, f.notifier.tokens)
	})

	t.Run("weak password keeps the token", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "admin@safework.com"))
		err := f.svc.ResetPassword(ctx, f.notifier.tokens[0], "short")
		assert.ErrorIs(t, err, e.ErrValidation)
		assert.NoError(t, f.svc.CheckResetToken(ctx, f.notifier.tokens[0]))
	})

	t.Run("failed delivery drops the token", func(t *testing.T) {
		f := newServiceFixture(t)
		f.notifier.err = errors.New("smtp down")
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)

		assert.Error(t, f.svc.RequestPasswordReset(ctx, "admin@safework.com"))
		require.Len(t, f.notifier.tokens, 1)
		assert.ErrorIs(t, f.svc.CheckResetToken(ctx, f.notifier.tokens[0]), e.ErrInvalidToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newServiceFixture(t)
		assert.ErrorIs(t, f.svc.ResetPassword(ctx, "nope", "Newpass@456"), e.ErrInvalidToken)
		assert.ErrorIs(t, f.svc.CheckResetToken(ctx, "nope"), e.ErrInvalidToken)
	})

	t.Run("check leaves the token usable", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.On("GetUserByEmail", ctx, "admin@safework.com").Return(f.user, nil)
		f.store.On("UpdateUserPassword", ctx, f.user.ID, mock.AnythingOfType("string")).Return(nil).Once()

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "admin@safework.com"))
		token := f.notifier.tokens[0]

		require.NoError(t, f.svc.CheckResetToken(ctx, token))
		require.NoError(t, f.svc.CheckResetToken(ctx, token))

		require.NoError(t, f.svc.ResetPassword(ctx, token, "Newpass@456"))
		assert.ErrorIs(t, f.svc.CheckResetToken(ctx, token), e.ErrInvalidToken)
		f.store.AssertExpectations(t)
	})
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := WithIdentity(context.Background(), &Identity{UserID: f.user.ID})
	f.store.On("GetUser", ctx, f.user.ID).Return(f.user, nil)
	f.store.On("UpdateUserPassword", ctx, f.user.ID, mock.AnythingOfType("string")).Return(nil).Once()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "Wrong@123", "Newpass@456"), e.ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, "Admin@123", "weak"), e.ErrValidation)
	require.NoError(t, f.svc.ChangePassword(ctx, "Admin@123", "Newpass@456"))
	f.store.AssertExpectations(t)

	assert.ErrorIs(t, f.svc.ChangePassword(context.Background(), "Admin@123", "Newpass@456"), e.ErrInvalidToken)
}

func TestMe(t *testing.T) {
	f := newServiceFixture(t)
	ctx := WithIdentity(context.Background(), &Identity{UserID: f.user.ID})
	f.store.On("GetUser", ctx, f.user.ID).Return(f.user, nil)

	me, err := f.svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.user.Email, me.Email)

	_, err = f.svc.Me(context.Background())
	assert.ErrorIs(t, err, e.ErrInvalidToken)
}
