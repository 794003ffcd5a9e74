// Package models maps the catalog and outbox tables for GORM. Domain types
// stay free of ORM tags; each model converts to and from its domain type and
// the repositories only ever hand domain types to callers.
package models
