package catalog

import (
	"context"

	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// TransactionScope provides transactional access to catalog repositories.
// All repository operations performed inside Execute are part of one database
// transaction and are committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// EventRecorder persists domain events alongside the aggregate changes
// (transactional outbox), so events are only relayed for committed writes.
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// TransactionalRepositories provides access to all catalog repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// Products returns the product repository scoped to the current transaction
	Products() catalog.ProductRepository
	// Options returns the option repository scoped to the current transaction
	Options() catalog.OptionRepository
	// Variants returns the variant repository scoped to the current transaction
	Variants() catalog.VariantRepository
	// Media returns the media repository scoped to the current transaction
	Media() catalog.MediaRepository
	// Events returns the outbox recorder scoped to the current transaction
	Events() EventRecorder
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	products catalog.ProductRepository
	options  catalog.OptionRepository
	variants catalog.VariantRepository
	media    catalog.MediaRepository
	events   EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	products catalog.ProductRepository,
	options catalog.OptionRepository,
	variants catalog.VariantRepository,
	media catalog.MediaRepository,
	events EventRecorder,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		products: products,
		options:  options,
		variants: variants,
		media:    media,
		events:   events,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Products returns the product repository.
func (s *NoOpTransactionScope) Products() catalog.ProductRepository { return s.products }

// Options returns the option repository.
func (s *NoOpTransactionScope) Options() catalog.OptionRepository { return s.options }

// Variants returns the variant repository.
func (s *NoOpTransactionScope) Variants() catalog.VariantRepository { return s.variants }

// Media returns the media repository.
func (s *NoOpTransactionScope) Media() catalog.MediaRepository { return s.media }

// Events returns the event recorder.
func (s *NoOpTransactionScope) Events() EventRecorder { return s.events }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
