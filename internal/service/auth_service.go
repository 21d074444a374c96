package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/repository"
	"github.com/iliyamo/storefront-orders/internal/utils"
)

// RegisterInput is the sign-up request.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
}

func (in ProfileInput) check() error {
	return checkLengths(
		model.Field{Name: "firstName", Value: strings.TrimSpace(in.FirstName), Max: model.MaxPersonNameLen},
		model.Field{Name: "lastName", Value: strings.TrimSpace(in.LastName), Max: model.MaxPersonNameLen},
		model.Field{Name: "phone", Value: strings.TrimSpace(in.Phone), Max: model.MaxPhoneLen},
		model.Field{Name: "address", Value: strings.TrimSpace(in.Address), Max: model.MaxUserAddressLen},
		model.Field{Name: "city", Value: strings.TrimSpace(in.City), Max: model.MaxCityLen},
	)
}

// Session is an issued token pair.
type Session struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// AuthService handles accounts, sessions and password resets.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	notifier Notifier
	cfg      config.Config
	now      func() time.Time
}

func NewAuthService(users UserStore, tokens TokenStore, n Notifier, cfg config.Config) *AuthService {
	return &AuthService{users: users, tokens: tokens, notifier: n, cfg: cfg, now: time.Now}
}

// Register creates a customer account and signs it in. Admin accounts
// are never created here.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, invalid("email and password are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, invalid("email is not a valid address")
	}
	if err := utils.ValidatePassword(in.Password); err != nil {
		return nil, invalid("%s", err.Error())
	}
	profile := ProfileInput{FirstName: in.FirstName, LastName: in.LastName, Phone: in.Phone, Address: in.Address, City: in.City}
	if err := profile.check(); err != nil {
		return nil, err
	}
	if err := checkLengths(model.Field{Name: "email", Value: in.Email, Max: model.MaxEmailLen}); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		City:         strings.TrimSpace(in.City),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notifier.Dispatch(notify.KindWelcome, notify.Message{To: u.Email, Name: u.FullName()})
	s.notifier.Dispatch(notify.KindAdminNewUser, notify.Message{Name: u.FullName(), Email: u.Email})
	slog.Info("user registered", "user_id", u.ID)
	return s.issue(ctx, u)
}

// Login checks credentials and returns a new token pair. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Session, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, invalid("refresh_token is required")
	}
	hash := utils.HashToken(raw)
	uid, err := s.tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("validate refresh: %w", err)
	}
	u, err := s.users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("revoke refresh: %w", err)
	}
	return s.issue(ctx, u)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return invalid("refresh_token is required")
	}
	return s.tokens.RevokeByHash(ctx, utils.HashToken(raw))
}

// LogoutAll ends every session of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role(), s.cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{User: u, Access: access, Refresh: refresh}, nil
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// UpdateProfile overwrites the editable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, id uint64, in ProfileInput) (*model.User, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	u, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FirstName = strings.TrimSpace(in.FirstName)
	u.LastName = strings.TrimSpace(in.LastName)
	u.Phone = strings.TrimSpace(in.Phone)
	u.Address = strings.TrimSpace(in.Address)
	u.City = strings.TrimSpace(in.City)
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// ForgotPassword emails a reset link when the address belongs to an
// account. It reports nothing back and internal failures are only
// logged, so the response never reveals which emails are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("forgot password: load user", "error", err)
		}
		return
	}
	tok, err := utils.NewResetToken(time.Duration(s.cfg.ResetTTLMin) * time.Minute)
	if err != nil {
		slog.Error("forgot password: generate token", "error", err)
		return
	}
	if err := s.tokens.ReplaceReset(ctx, u.ID, tok.Hash, tok.Exp); err != nil {
		slog.Error("forgot password: store token", "user_id", u.ID, "error", err)
		return
	}
	link := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(tok.Raw)
	s.notifier.Dispatch(notify.KindPasswordReset, notify.Message{To: u.Email, Name: u.FullName(), Link: link})
}

// ResetPassword redeems a reset token. The token is deleted in the same
// transaction that stores the new password, and all sessions are
// revoked.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" {
		return invalid("token is required")
	}
	if err := utils.ValidatePassword(newPassword); err != nil {
		return invalid("%s", err.Error())
	}
	t, err := s.tokens.GetResetByHash(ctx, utils.HashToken(rawToken))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("load reset token: %w", err)
	}
	if t.Expired(s.now().UTC()) {
		return ErrInvalidToken
	}
	hash, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.users.ResetPassword(ctx, t.UserID, t.ID, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	slog.Info("password reset", "user_id", t.UserID)
	return nil
}
