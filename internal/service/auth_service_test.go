package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/mocks"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/repository"
	"github.com/iliyamo/storefront-orders/internal/utils"
)

type authDeps struct {
	users    *mocks.MockUserStore
	tokens   *mocks.MockTokenStore
	notifier *mocks.MockNotifier
}

func newAuthService(t *testing.T) (*AuthService, authDeps) {
	t.Helper()
	d := authDeps{users: new(mocks.MockUserStore), tokens: new(mocks.MockTokenStore), notifier: new(mocks.MockNotifier)}
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 1,
		BcryptCost:     bcrypt.MinCost,
		FrontendURL:    "https://shop.test/",
		ResetTTLMin:    60,
	}
	return NewAuthService(d.users, d.tokens, d.notifier, cfg), d
}

func userWithPassword(t *testing.T, id uint64, email, password string, admin bool) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{ID: id, Email: email, PasswordHash: hash, FirstName: "Mya", IsAdmin: admin}
}

func TestAuthService_Register(t *testing.T) {
	svc, d := newAuthService(t)
	d.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "new@example.com" && !u.IsAdmin && utils.VerifyPassword(u.PasswordHash, "password123")
	})).Return(nil).Run(func(args mock.Arguments) { args.Get(1).(*model.User).ID = 3 })
	d.tokens.On("StoreRefresh", mock.Anything, uint64(3), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	d.notifier.On("Dispatch", notify.KindWelcome, mock.Anything).Once()
	d.notifier.On("Dispatch", notify.KindAdminNewUser, mock.Anything).Once()

	sess, err := svc.Register(context.Background(), RegisterInput{Email: " New@Example.com ", Password: "password123", FirstName: "Mya"})
	require.NoError(t, err)

	claims, err := utils.ParseAccessToken("test-secret", sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), claims.UserID)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.Len(t, sess.Refresh.Raw, 96)
	d.notifier.AssertExpectations(t)
}

func TestAuthService_Register_Errors(t *testing.T) {
	svc, d := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "nope", Password: "password123"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "password123",
		City: strings.Repeat("c", model.MaxCityLen+1)})
	assert.ErrorIs(t, err, ErrValidation)

	d.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrEmailExists)
	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	d.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	svc, d := newAuthService(t)
	admin := userWithPassword(t, 1, "admin@example.com", "password123", true)
	d.users.On("GetByEmail", mock.Anything, "admin@example.com").Return(admin, nil)
	d.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)
	d.tokens.On("StoreRefresh", mock.Anything, uint64(1), mock.Anything, mock.Anything).Return(nil)

	sess, err := svc.Login(context.Background(), "Admin@example.com", "password123")
	require.NoError(t, err)
	claims, err := utils.ParseAccessToken("test-secret", sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)

	_, err = svc.Login(context.Background(), "admin@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	svc, d := newAuthService(t)
	hash := utils.HashToken("old-raw")
	d.tokens.On("ValidateRefresh", mock.Anything, hash).Return(uint64(7), nil).Once()
	d.users.On("GetByID", mock.Anything, uint64(7)).Return(&model.User{ID: 7}, nil)
	d.tokens.On("RevokeByHash", mock.Anything, hash).Return(nil).Once()
	d.tokens.On("StoreRefresh", mock.Anything, uint64(7), mock.Anything, mock.Anything).Return(nil).Once()

	sess, err := svc.Refresh(context.Background(), "old-raw")
	require.NoError(t, err)
	assert.NotEqual(t, "old-raw", sess.Refresh.Raw)
	d.tokens.AssertExpectations(t)

	d.tokens.On("ValidateRefresh", mock.Anything, utils.HashToken("revoked")).Return(uint64(0), repository.ErrNotFound)
	_, err = svc.Refresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	svc, d := newAuthService(t)
	d.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrNotFound)

	svc.ForgotPassword(context.Background(), "ghost@example.com")
	d.tokens.AssertNotCalled(t, "ReplaceReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestAuthService_ForgotPassword_SendsLink(t *testing.T) {
	svc, d := newAuthService(t)
	d.users.On("GetByEmail", mock.Anything, "mya@example.com").Return(&model.User{ID: 4, Email: "mya@example.com", FirstName: "Mya"}, nil)

	var storedHash string
	var storedExp time.Time
	d.tokens.On("ReplaceReset", mock.Anything, uint64(4), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return(nil).Run(func(args mock.Arguments) {
		storedHash = args.String(2)
		storedExp = args.Get(3).(time.Time)
	})
	var link string
	d.notifier.On("Dispatch", notify.KindPasswordReset, mock.Anything).Once().Run(func(args mock.Arguments) {
		link = args.Get(1).(notify.Message).Link
	})

	svc.ForgotPassword(context.Background(), "MYA@example.com")

	require.True(t, strings.HasPrefix(link, "https://shop.test/reset-password?token="))
	u, err := url.Parse(link)
	require.NoError(t, err)
	raw := u.Query().Get("token")
	assert.Len(t, raw, 64)
	assert.Equal(t, utils.HashToken(raw), storedHash)
	assert.NotEqual(t, raw, storedHash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), storedExp, 5*time.Second)
}

func TestAuthService_ResetPassword_SingleUse(t *testing.T) {
	svc, d := newAuthService(t)
	hash := utils.HashToken("raw-token")
	tok := &model.PasswordResetToken{ID: 9, UserID: 4, TokenHash: hash, ExpiresAt: time.Now().Add(time.Hour)}
	d.tokens.On("GetResetByHash", mock.Anything, hash).Return(tok, nil).Once()
	d.users.On("ResetPassword", mock.Anything, uint64(4), uint64(9), mock.MatchedBy(func(h string) bool {
		return utils.VerifyPassword(h, "brand-new-pass")
	})).Return(nil).Once()

	require.NoError(t, svc.ResetPassword(context.Background(), "raw-token", "brand-new-pass"))

	// the token row is gone after a successful reset
	d.tokens.On("GetResetByHash", mock.Anything, hash).Return(nil, repository.ErrNotFound)
	err := svc.ResetPassword(context.Background(), "raw-token", "another-pass")
	assert.ErrorIs(t, err, ErrInvalidToken)
	d.users.AssertNumberOfCalls(t, "ResetPassword", 1)
}

func TestAuthService_ResetPassword_Rejects(t *testing.T) {
	svc, d := newAuthService(t)
	expired := &model.PasswordResetToken{ID: 1, UserID: 4, ExpiresAt: time.Now().Add(-time.Minute)}
	d.tokens.On("GetResetByHash", mock.Anything, utils.HashToken("old")).Return(expired, nil)

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "old", "brand-new-pass"), ErrInvalidToken)
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "old", "short"), ErrValidation)
	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "", "brand-new-pass"), ErrValidation)
	d.users.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_ResetPassword_ConcurrentUse(t *testing.T) {
	svc, d := newAuthService(t)
	tok := &model.PasswordResetToken{ID: 1, UserID: 4, ExpiresAt: time.Now().Add(time.Hour)}
	d.tokens.On("GetResetByHash", mock.Anything, mock.Anything).Return(tok, nil)
	d.users.On("ResetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(repository.ErrNotFound)

	assert.ErrorIs(t, svc.ResetPassword(context.Background(), "raw", "brand-new-pass"), ErrInvalidToken)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc, d := newAuthService(t)
	d.users.On("GetByID", mock.Anything, uint64(4)).Return(&model.User{ID: 4, Email: "mya@example.com"}, nil)
	d.users.On("UpdateProfile", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.City == "Mandalay" && u.FirstName == "Mya"
	})).Return(nil)

	u, err := svc.UpdateProfile(context.Background(), 4, ProfileInput{FirstName: " Mya ", City: "Mandalay"})
	require.NoError(t, err)
	assert.Equal(t, "mya@example.com", u.Email)

	d.users.On("GetByID", mock.Anything, uint64(5)).Return(nil, repository.ErrNotFound)
	_, err = svc.UpdateProfile(context.Background(), 5, ProfileInput{})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.UpdateProfile(context.Background(), 4, ProfileInput{Phone: strings.Repeat("1", 51)})
	assert.ErrorIs(t, err, ErrValidation)
	d.users.AssertNumberOfCalls(t, "UpdateProfile", 1)
}
