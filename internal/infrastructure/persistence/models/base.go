package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// BaseModel holds the columns every catalog row carries
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entity returns the row's identity and timestamps in UTC
func (m BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// SetEntity copies identity and timestamps onto the row
func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel adds the write counter and author of an aggregate root.
// Version is bumped once per committed write of the aggregate.
type AggregateModel struct {
	BaseModel
	Version   int        `gorm:"not null;default:1"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// Root rebuilds the aggregate root header without pending events
func (m AggregateModel) Root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.Entity(),
		Version:    m.Version,
		CreatedBy:  m.CreatedBy,
	}
}

// SetRoot copies the aggregate root header onto the row
func (m *AggregateModel) SetRoot(a shared.BaseAggregateRoot) {
	m.SetEntity(a.BaseEntity)
	m.Version = a.Version
	m.CreatedBy = a.CreatedBy
}
