package event

import "github.com/shopdesk/backoffice/internal/domain/catalog"

// RegisterCatalogEvents makes the catalog events decodable so the outbox
// processor can relay them.
func RegisterCatalogEvents(serializer *EventSerializer) {
	RegisterEvent[catalog.ProductCreatedEvent](serializer, catalog.EventTypeProductCreated)
	RegisterEvent[catalog.ProductUpdatedEvent](serializer, catalog.EventTypeProductUpdated)
	RegisterEvent[catalog.ProductDeletedEvent](serializer, catalog.EventTypeProductDeleted)
	RegisterEvent[catalog.ProductOptionsReconciledEvent](serializer, catalog.EventTypeProductOptionsReconciled)
	RegisterEvent[catalog.ProductMediaReplacedEvent](serializer, catalog.EventTypeProductMediaReplaced)
}
