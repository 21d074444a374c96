package service

import (
	"context"
	"time"

	"github.com/iliyamo/storefront-orders/internal/currency"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/queue"
)

// OrderStore is the persistence the order and payment services need.
// *repository.OrderRepo implements it.
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Order, error)
	List(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.OrderStatus, tracking *string) error
	SetTracking(ctx context.Context, id uint64, tracking string) error
	SetPaymentRef(ctx context.Context, id uint64, ref string) error
}

// ProductStore resolves line item products.
type ProductStore interface {
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error)
}

// UserStore is implemented by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	ResetPassword(ctx context.Context, userID, tokenID uint64, passwordHash string) error
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
	ReplaceReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	GetResetByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error)
}

// Notifier is implemented by *notify.Dispatcher.
type Notifier interface {
	Dispatch(kind notify.Kind, msg notify.Message)
}

// EventPublisher is implemented by *queue.Publisher.
type EventPublisher interface {
	PublishAsync(ev queue.OrderEvent)
}

// RateSource is implemented by *currency.Cache.
type RateSource interface {
	Rate(ctx context.Context) currency.Quote
}

// Caller identifies who is acting on an order. Guests prove access to
// their own guest orders with the email used at checkout.
type Caller struct {
	UserID uint64
	Admin  bool
	Email  string
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// pageParams applies the listing defaults: page 1, 20 per page, at most
// 100.
func pageParams(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
