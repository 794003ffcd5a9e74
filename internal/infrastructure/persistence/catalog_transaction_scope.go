package persistence

import (
	"context"

	appcatalog "github.com/shopdesk/backoffice/internal/application/catalog"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// TxEventPublisher writes domain events inside a caller-provided transaction
type TxEventPublisher interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db        *gorm.DB
	publisher TxEventPublisher
}

// NewGormTransactionScope creates a new GormTransactionScope. Events recorded
// inside a transaction go to publisher; with a nil publisher they are dropped.
func NewGormTransactionScope(db *gorm.DB, publisher TxEventPublisher) *GormTransactionScope {
	return &GormTransactionScope{db: db, publisher: publisher}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
// Storage errors are translated before they are returned.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appcatalog.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, publisher: s.publisher}
		return fn(repos)
	})
	return TranslateError(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx        *gorm.DB
	publisher TxEventPublisher
}

// Products returns the product repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Options returns the option repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Options() catalog.OptionRepository {
	return NewGormOptionRepository(r.tx)
}

// Variants returns the variant repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Variants() catalog.VariantRepository {
	return NewGormVariantRepository(r.tx)
}

// Media returns the media repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Media() catalog.MediaRepository {
	return NewGormMediaRepository(r.tx)
}

// Events returns a recorder that writes to the outbox in the current transaction.
func (r *gormTransactionalRepositories) Events() appcatalog.EventRecorder {
	return &txEventRecorder{tx: r.tx, publisher: r.publisher}
}

type txEventRecorder struct {
	tx        *gorm.DB
	publisher TxEventPublisher
}

func (r *txEventRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if r.publisher == nil || len(events) == 0 {
		return nil
	}
	return r.publisher.PublishWithTx(ctx, r.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appcatalog.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appcatalog.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
