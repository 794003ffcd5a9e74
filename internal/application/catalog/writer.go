package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
)

// Writer executes reconciliation plans against the repositories of one
// transaction. It never opens or commits a transaction itself: callers run it
// inside TransactionScope.Execute so that a failing operation rolls back every
// write of the request.
type Writer struct{}

// NewWriter creates a new Writer
func NewWriter() *Writer {
	return &Writer{}
}

// ApplyOptionPlan executes the option/variant operations in plan order and
// records the identity of every created row in ids.
func (w *Writer) ApplyOptionPlan(ctx context.Context, repos TransactionalRepositories, plan *catalog.Plan, ids *IdentityMap) error {
	// client ref -> ID of options created by this plan
	created := make(map[string]uuid.UUID)
	now := time.Now().UTC()

	for _, op := range plan.Operations {
		if err := ctx.Err(); err != nil {
			return shared.NewTransientStorageError("Request cancelled while writing", err)
		}

		var err error
		switch op.Kind {
		case catalog.OpDeleteVariant:
			err = repos.Variants().Delete(ctx, op.VariantID)

		case catalog.OpDeleteOption:
			err = repos.Options().Delete(ctx, op.OptionID)

		case catalog.OpCreateOption:
			option := &catalog.Option{
				BaseEntity: shared.NewBaseEntity(),
				ProductID:  plan.ProductID,
				Name:       op.Option.Name,
				Position:   op.Option.Position,
			}
			if err = repos.Options().Create(ctx, option); err == nil {
				created[op.ClientRef] = option.ID
				ids.Options[op.ClientRef] = option.ID
			}

		case catalog.OpUpdateOption:
			option := &catalog.Option{
				BaseEntity: shared.BaseEntity{ID: op.OptionID, UpdatedAt: now},
				ProductID:  plan.ProductID,
				Name:       op.Option.Name,
				Position:   op.Option.Position,
			}
			err = repos.Options().Update(ctx, option)

		case catalog.OpCreateVariant:
			optionID := op.OptionID
			if optionID == uuid.Nil {
				id, ok := created[op.OptionRef]
				if !ok {
					return fmt.Errorf("create variant %s: parent option %q was not created", op.ClientRef, op.OptionRef)
				}
				optionID = id
			}
			variant := &catalog.Variant{BaseEntity: shared.NewBaseEntity(), OptionID: optionID}
			variant.Apply(*op.Variant)
			if err = repos.Variants().Create(ctx, variant); err == nil {
				ids.Variants[op.ClientRef] = variant.ID
			}

		case catalog.OpUpdateVariant:
			variant := &catalog.Variant{
				BaseEntity: shared.BaseEntity{ID: op.VariantID, UpdatedAt: now},
				OptionID:   op.OptionID,
			}
			variant.Apply(*op.Variant)
			err = repos.Variants().Update(ctx, variant)

		default:
			return fmt.Errorf("unknown operation kind %q", op.Kind)
		}

		if err != nil {
			return fmt.Errorf("%s: %w", op.Kind, err)
		}
	}
	return nil
}

// ApplyMediaPlan replaces the product's media according to plan.
// The default flag is cleared first whenever the plan sets one, so the
// single-default index holds after every statement. Variant media references
// to deleted items are cleared in the same transaction.
func (w *Writer) ApplyMediaPlan(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, plan catalog.MediaPlan, ids *IdentityMap) error {
	if plan.IsEmpty() {
		return nil
	}
	media := repos.Media()

	if setsDefault(plan) {
		if err := media.ClearDefault(ctx, productID); err != nil {
			return fmt.Errorf("clear default media: %w", err)
		}
	}

	if len(plan.Deletes) > 0 {
		storageIDs := make([]uuid.UUID, 0, len(plan.Deletes))
		for _, m := range plan.Deletes {
			storageIDs = append(storageIDs, m.ID)
		}
		if err := media.DeleteByIDs(ctx, storageIDs); err != nil {
			return fmt.Errorf("delete media: %w", err)
		}
		if err := repos.Variants().ClearMediaRefs(ctx, productID, plan.DeletedMediaIDs()); err != nil {
			return fmt.Errorf("clear variant media references: %w", err)
		}
	}

	now := time.Now().UTC()
	for _, u := range plan.Updates {
		item := u.Current
		item.URL = u.Values.URL
		item.Title = u.Values.Title
		item.IsDefault = u.Values.Default
		item.Order = u.Values.Order
		item.UpdatedAt = now
		if err := media.Update(ctx, &item); err != nil {
			return fmt.Errorf("update media %s: %w", item.MediaID, err)
		}
	}

	for _, c := range plan.Creates {
		item := &catalog.MediaItem{
			BaseEntity: shared.NewBaseEntity(),
			ProductID:  productID,
			MediaID:    c.MediaID,
			URL:        c.URL,
			Title:      c.Title,
			IsDefault:  c.Default,
			Order:      c.Order,
		}
		if err := media.Create(ctx, item); err != nil {
			return fmt.Errorf("create media %s: %w", item.MediaID, err)
		}
		ids.Media[c.MediaID] = item.ID
	}
	return nil
}

func setsDefault(plan catalog.MediaPlan) bool {
	for _, u := range plan.Updates {
		if u.Values.Default {
			return true
		}
	}
	for _, c := range plan.Creates {
		if c.Default {
			return true
		}
	}
	return false
}
