package services_test

import (
	"context"
	"fmt"
	"testing"

	"checkout/internal/models"
	"checkout/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepository) DecrementInventory(ctx context.Context, id string, qty int) error {
	return m.Called(ctx, id, qty).Error(0)
}

func (m *MockProductRepository) IncrementSold(ctx context.Context, id string, qty int) error {
	return m.Called(ctx, id, qty).Error(0)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) AddLoyaltyPoints(ctx context.Context, id string, points int) error {
	return m.Called(ctx, id, points).Error(0)
}

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	args := m.Called(ctx, buyerID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOrderRepository) RecordRequest(ctx context.Context, id, authority string) error {
	return m.Called(ctx, id, authority).Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, id, refID string) (bool, error) {
	args := m.Called(ctx, id, refID)
	return args.Bool(0), args.Error(1)
}

// MockCouponRepository is a mock implementation of repositories.CouponRepository
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Coupon), args.Error(1)
}

func (m *MockCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return m.Called(ctx, coupon).Error(0)
}

func (m *MockCouponRepository) UsageCount(ctx context.Context, code, userID string) (int, error) {
	args := m.Called(ctx, code, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCouponRepository) RecordUsage(ctx context.Context, code, userID string) error {
	return m.Called(ctx, code, userID).Error(0)
}

// MockNotifier is a mock implementation of services.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendCode(ctx context.Context, phone, code string) error {
	return m.Called(ctx, phone, code).Error(0)
}

func (m *MockNotifier) SendPassword(ctx context.Context, phone, password string) error {
	return m.Called(ctx, phone, password).Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, body []byte) error {
	return m.Called(exchange, routingKey, body).Error(0)
}

// memSession is a map backed services.Session.
type memSession struct {
	id     string
	values map[string]interface{}
}

func newMemSession() *memSession {
	return &memSession{id: uuid.NewString(), values: make(map[string]interface{})}
}

func (s *memSession) ID() string                      { return s.id }
func (s *memSession) Get(key string) interface{}      { return s.values[key] }
func (s *memSession) Set(key string, val interface{}) { s.values[key] = val }
func (s *memSession) Delete(key string)               { delete(s.values, key) }

var (
	_ repositories.ProductRepository = (*MockProductRepository)(nil)
	_ repositories.UserRepository    = (*MockUserRepository)(nil)
	_ repositories.OrderRepository   = (*MockOrderRepository)(nil)
	_ repositories.CouponRepository  = (*MockCouponRepository)(nil)
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repositories.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}
