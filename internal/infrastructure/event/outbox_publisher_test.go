package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func catalogSerializer() *EventSerializer {
	serializer := NewEventSerializer()
	RegisterCatalogEvents(serializer)
	return serializer
}

func storedEvents(t *testing.T, db *gorm.DB) []models.OutboxEventModel {
	t.Helper()
	var rows []models.OutboxEventModel
	require.NoError(t, db.Order("event_type").Find(&rows).Error)
	return rows
}

func TestOutboxPublisher_StoresPendingEntries(t *testing.T) {
	db := setupOutboxDB(t)
	publisher := NewOutboxPublisher(catalogSerializer())

	product := &catalog.Product{Name: "Chair", SKU: "CHR-1"}
	product.ID = uuid.New()
	events := []shared.DomainEvent{
		catalog.NewProductCreatedEvent(product, uuid.New()),
		catalog.NewProductOptionsReconciledEvent(product, catalog.PlanSummary{}, uuid.New()),
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, events...)
	}))

	rows := storedEvents(t, db)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, shared.OutboxStatusPending, row.Status)
		assert.Equal(t, product.ID, row.AggregateID)
		assert.Zero(t, row.RetryCount)
		assert.NotEmpty(t, row.Payload)
	}
	assert.Equal(t, catalog.EventTypeProductCreated, rows[0].EventType)
	assert.Equal(t, catalog.EventTypeProductOptionsReconciled, rows[1].EventType)
}

func TestOutboxPublisher_NothingToPublish(t *testing.T) {
	db := setupOutboxDB(t)

	require.NoError(t, NewOutboxPublisher(catalogSerializer()).PublishWithTx(context.Background(), db))
	assert.Empty(t, storedEvents(t, db))
}

func TestOutboxPublisher_UnregisteredTypeFailsTheWrite(t *testing.T) {
	db := setupOutboxDB(t)
	publisher := NewOutboxPublisher(catalogSerializer())

	err := db.Transaction(func(tx *gorm.DB) error {
		return publisher.PublishWithTx(context.Background(), tx, newTestEvent("TestEvent", uuid.New()))
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TestEvent is not registered")
	assert.Empty(t, storedEvents(t, db))
}

func TestOutboxPublisher_RollsBackWithTheCatalogWrite(t *testing.T) {
	db := setupOutboxDB(t)
	serializer := NewEventSerializer()
	RegisterEvent[testEvent](serializer, "TestEvent")
	publisher := NewOutboxPublisher(serializer)

	writeErr := errors.New("variant insert failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := publisher.PublishWithTx(context.Background(), tx, newTestEvent("TestEvent", uuid.New())); err != nil {
			return err
		}
		return writeErr
	})

	assert.ErrorIs(t, err, writeErr)
	assert.Empty(t, storedEvents(t, db))
}
