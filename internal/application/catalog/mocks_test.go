package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter catalog.ProductFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Touch(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOptionRepository is a mock implementation of OptionRepository
type MockOptionRepository struct {
	mock.Mock
}

func (m *MockOptionRepository) FindTreeByProduct(ctx context.Context, productID uuid.UUID) (catalog.OptionTree, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(catalog.OptionTree), args.Error(1)
}

func (m *MockOptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Option, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Option), args.Error(1)
}

func (m *MockOptionRepository) Create(ctx context.Context, option *catalog.Option) error {
	args := m.Called(ctx, option)
	return args.Error(0)
}

func (m *MockOptionRepository) Update(ctx context.Context, option *catalog.Option) error {
	args := m.Called(ctx, option)
	return args.Error(0)
}

func (m *MockOptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockVariantRepository is a mock implementation of VariantRepository
type MockVariantRepository struct {
	mock.Mock
}

func (m *MockVariantRepository) Create(ctx context.Context, variant *catalog.Variant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockVariantRepository) Update(ctx context.Context, variant *catalog.Variant) error {
	args := m.Called(ctx, variant)
	return args.Error(0)
}

func (m *MockVariantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVariantRepository) ClearMediaRefs(ctx context.Context, productID uuid.UUID, mediaIDs []string) error {
	args := m.Called(ctx, productID, mediaIDs)
	return args.Error(0)
}

// MockMediaRepository is a mock implementation of MediaRepository
type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]catalog.MediaItem, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.MediaItem), args.Error(1)
}

func (m *MockMediaRepository) Create(ctx context.Context, item *catalog.MediaItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockMediaRepository) Update(ctx context.Context, item *catalog.MediaItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockMediaRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockMediaRepository) ClearDefault(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockEventRecorder is a mock implementation of EventRecorder
type MockEventRecorder struct {
	mock.Mock
}

func (m *MockEventRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockObjectStorageService is a mock implementation of ObjectStorageService
type MockObjectStorageService struct {
	mock.Mock
}

func (m *MockObjectStorageService) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorageService) ObjectURL(storageKey string) string {
	args := m.Called(storageKey)
	return args.String(0)
}

// MockMetricsRecorder is a mock implementation of MetricsRecorder
type MockMetricsRecorder struct {
	mock.Mock
}

func (m *MockMetricsRecorder) RecordReconciliation(ctx context.Context, target string, operations int, err error) {
	m.Called(ctx, target, operations, err)
}

type testRepos struct {
	products *MockProductRepository
	options  *MockOptionRepository
	variants *MockVariantRepository
	media    *MockMediaRepository
	events   *MockEventRecorder
}

func newTestRepos() *testRepos {
	return &testRepos{
		products: new(MockProductRepository),
		options:  new(MockOptionRepository),
		variants: new(MockVariantRepository),
		media:    new(MockMediaRepository),
		events:   new(MockEventRecorder),
	}
}

func (r *testRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(r.products, r.options, r.variants, r.media, r.events)
}

func (r *testRepos) assertExpectations(t mock.TestingT) {
	r.products.AssertExpectations(t)
	r.options.AssertExpectations(t)
	r.variants.AssertExpectations(t)
	r.media.AssertExpectations(t)
	r.events.AssertExpectations(t)
}
