// Package mocks holds testify mocks for the service ports and the
// stores the handlers talk to directly.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/storefront-orders/internal/currency"
	"github.com/iliyamo/storefront-orders/internal/model"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/repository"
)

type MockOrderStore struct {
	mock.Mock
}

type MockProductStore struct {
	mock.Mock
}

type MockUserStore struct {
	mock.Mock
}

type MockTokenStore struct {
	mock.Mock
}

type MockNotifier struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

type MockRateSource struct {
	mock.Mock
}

type MockServiceRequestStore struct {
	mock.Mock
}

type MockStats struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, o *model.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderStore) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) GetByPaymentRef(ctx context.Context, ref string) (*model.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderStore) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderStore) List(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Order), args.Int(1), args.Error(2)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id uint64, from, to model.OrderStatus, tracking *string) error {
	args := m.Called(ctx, id, from, to, tracking)
	return args.Error(0)
}

func (m *MockOrderStore) SetTracking(ctx context.Context, id uint64, tracking string) error {
	args := m.Called(ctx, id, tracking)
	return args.Error(0)
}

func (m *MockOrderStore) SetPaymentRef(ctx context.Context, id uint64, ref string) error {
	args := m.Called(ctx, id, ref)
	return args.Error(0)
}

func (m *MockProductStore) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uint64]model.Product), args.Error(1)
}

func (m *MockProductStore) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.Product), args.Int(1), args.Error(2)
}

func (m *MockProductStore) Count(ctx context.Context, f model.ProductFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockProductStore) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductStore) Create(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductStore) Update(ctx context.Context, p *model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProductStore) Delete(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) UpdateProfile(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) ResetPassword(ctx context.Context, userID, tokenID uint64, passwordHash string) error {
	args := m.Called(ctx, userID, tokenID, passwordHash)
	return args.Error(0)
}

func (m *MockTokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	args := m.Called(ctx, userID, tokenHash, exp)
	return args.Error(0)
}

func (m *MockTokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockTokenStore) ReplaceReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	args := m.Called(ctx, userID, tokenHash, exp)
	return args.Error(0)
}

func (m *MockTokenStore) GetResetByHash(ctx context.Context, tokenHash string) (*model.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordResetToken), args.Error(1)
}

func (m *MockNotifier) Dispatch(kind notify.Kind, msg notify.Message) {
	m.Called(kind, msg)
}

func (m *MockPublisher) PublishAsync(ev queue.OrderEvent) {
	m.Called(ev)
}

func (m *MockRateSource) Rate(ctx context.Context) currency.Quote {
	args := m.Called(ctx)
	return args.Get(0).(currency.Quote)
}

func (m *MockServiceRequestStore) Create(ctx context.Context, sr *model.ServiceRequest) error {
	args := m.Called(ctx, sr)
	return args.Error(0)
}

func (m *MockServiceRequestStore) GetByID(ctx context.Context, id uint64) (*model.ServiceRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ServiceRequest), args.Error(1)
}

func (m *MockServiceRequestStore) List(ctx context.Context, status string, page, limit int) ([]model.ServiceRequest, int, error) {
	args := m.Called(ctx, status, page, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]model.ServiceRequest), args.Int(1), args.Error(2)
}

func (m *MockServiceRequestStore) UpdateStatus(ctx context.Context, id uint64, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStats) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DashboardStats), args.Error(1)
}
