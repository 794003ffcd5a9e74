package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	appcatalog "github.com/shopdesk/backoffice/internal/application/catalog"
	"github.com/shopdesk/backoffice/internal/domain/catalog"
	"github.com/shopdesk/backoffice/internal/domain/shared"
	"github.com/shopdesk/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)

	// One connection so every statement sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.CatalogModels()...))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name, sku string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(name, sku, "", catalog.Pricing{Price: decimal.NewFromInt(10)}, uuid.New())
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), product))
	return product
}

func seedOption(t *testing.T, db *gorm.DB, productID uuid.UUID, name string, position int, variants ...string) *catalog.Option {
	t.Helper()
	ctx := context.Background()
	option := &catalog.Option{BaseEntity: shared.NewBaseEntity(), ProductID: productID, Name: name, Position: position}
	require.NoError(t, NewGormOptionRepository(db).Create(ctx, option))
	for i, v := range variants {
		variant := catalog.Variant{
			BaseEntity: shared.NewBaseEntity(),
			OptionID:   option.ID,
			Name:       v,
			SKU:        name + "-" + v,
			Pricing:    catalog.Pricing{Price: decimal.NewFromInt(int64(10 + i))},
			Position:   i,
		}
		require.NoError(t, NewGormVariantRepository(db).Create(ctx, &variant))
		option.Variants = append(option.Variants, variant)
	}
	return option
}

func strPtr(s string) *string { return &s }

func TestGormProductRepository(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	linen := seedProduct(t, db, "Linen Shirt", "LS-1")
	seedProduct(t, db, "Cotton Tee", "CT-1")
	seedProduct(t, db, "Wool Scarf", "LINEN-X")

	t.Run("find by id", func(t *testing.T) {
		found, err := repo.FindByID(ctx, linen.ID)
		require.NoError(t, err)
		assert.Equal(t, "Linen Shirt", found.Name)
		assert.Equal(t, 1, found.Version)
		assert.True(t, found.Price.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, linen.CreatedBy, found.CreatedBy)
	})

	t.Run("missing product", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("search matches name or sku case-insensitively", func(t *testing.T) {
		filter := catalog.ProductFilter{Page: 1, PageSize: 10, OrderBy: "name", OrderDir: "asc", Search: "LINEN"}
		products, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Linen Shirt", products[0].Name)
		assert.Equal(t, "Wool Scarf", products[1].Name)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("pagination", func(t *testing.T) {
		products, err := repo.FindAll(ctx, catalog.ProductFilter{Page: 2, PageSize: 2, OrderBy: "name", OrderDir: "asc"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "Wool Scarf", products[0].Name)
	})

	t.Run("update writes scalars and bumps the stored version", func(t *testing.T) {
		found, err := repo.FindByID(ctx, linen.ID)
		require.NoError(t, err)
		found.Description = "Breathable"
		found.Version = 40
		require.NoError(t, repo.Update(ctx, found))
		assert.Equal(t, 2, found.Version, "the in-memory version is ignored")

		again, err := repo.FindByID(ctx, linen.ID)
		require.NoError(t, err)
		assert.Equal(t, "Breathable", again.Description)
		assert.Equal(t, 2, again.Version)
	})
}

func TestGormProductRepository_Touch(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Mug", "M-1")
	stale := *product

	require.NoError(t, db.Model(&models.ProductModel{}).Where("id = ?", product.ID).
		Update("name", "Renamed Mug").Error)

	require.NoError(t, repo.Touch(ctx, &stale))
	assert.Equal(t, 2, stale.Version)
	assert.True(t, stale.UpdatedAt.After(product.UpdatedAt))

	stored, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Mug", stored.Name)
	assert.Equal(t, 2, stored.Version)

	missing := catalog.Product{BaseAggregateRoot: shared.NewAggregateRoot(uuid.Nil)}
	assert.ErrorIs(t, repo.Touch(ctx, &missing), shared.ErrNotFound)
}

func TestGormProductRepository_DeleteCascades(t *testing.T) {
	db := setupCatalogTestDB(t)
	ctx := context.Background()
	product := seedProduct(t, db, "Mug", "M-1")
	seedOption(t, db, product.ID, "Color", 0, "Red", "Blue")
	require.NoError(t, NewGormMediaRepository(db).Create(ctx, &catalog.MediaItem{
		BaseEntity: shared.NewBaseEntity(), ProductID: product.ID, MediaID: "front", URL: "https://cdn/front.jpg",
	}))

	require.NoError(t, NewGormProductRepository(db).Delete(ctx, product.ID))

	var options, variants, media int64
	db.Model(&models.ProductOptionModel{}).Count(&options)
	db.Model(&models.ProductVariantModel{}).Count(&variants)
	db.Model(&models.ProductMediaModel{}).Count(&media)
	assert.Zero(t, options)
	assert.Zero(t, variants)
	assert.Zero(t, media)

	assert.ErrorIs(t, NewGormProductRepository(db).Delete(ctx, product.ID), shared.ErrNotFound)
}

func TestGormOptionRepository(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormOptionRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Shirt", "S-1")
	other := seedProduct(t, db, "Other", "O-1")

	size := seedOption(t, db, product.ID, "Size", 1, "S", "M")
	color := seedOption(t, db, product.ID, "Color", 0, "Red")
	seedOption(t, db, other.ID, "Material", 0, "Silk")

	t.Run("tree is ordered and scoped to the product", func(t *testing.T) {
		tree, err := repo.FindTreeByProduct(ctx, product.ID)
		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, color.ID, tree[0].ID)
		assert.Equal(t, size.ID, tree[1].ID)
		require.Len(t, tree[1].Variants, 2)
		assert.Equal(t, "S", tree[1].Variants[0].Name)
		assert.Equal(t, "M", tree[1].Variants[1].Name)
	})

	t.Run("empty tree", func(t *testing.T) {
		tree, err := repo.FindTreeByProduct(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, tree)
	})

	t.Run("update renames and moves", func(t *testing.T) {
		size.Name = "Fit"
		size.Position = 5
		require.NoError(t, repo.Update(ctx, size))

		found, err := repo.FindByID(ctx, size.ID)
		require.NoError(t, err)
		assert.Equal(t, "Fit", found.Name)
		assert.Equal(t, 5, found.Position)
		assert.Len(t, found.Variants, 2)
	})

	t.Run("unknown option", func(t *testing.T) {
		missing := &catalog.Option{BaseEntity: shared.NewBaseEntity(), Name: "x"}
		assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, missing.ID), shared.ErrNotFound)
		_, err := repo.FindByID(ctx, missing.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("delete removes variants", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, color.ID))

		var variants int64
		db.Model(&models.ProductVariantModel{}).Where("option_id = ?", color.ID).Count(&variants)
		assert.Zero(t, variants)
	})
}

func TestGormVariantRepository(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormVariantRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Shirt", "S-1")
	color := seedOption(t, db, product.ID, "Color", 0, "Red", "Blue")
	size := seedOption(t, db, product.ID, "Size", 1)

	t.Run("update writes every column including the parent", func(t *testing.T) {
		red := color.Variants[0]
		sale := decimal.NewFromInt(7)
		red.OptionID = size.ID
		red.Name = "Large"
		red.SalePrice = &sale
		red.MediaRef = strPtr("front")
		red.Position = 3
		require.NoError(t, repo.Update(ctx, &red))

		found, err := NewGormOptionRepository(db).FindByID(ctx, size.ID)
		require.NoError(t, err)
		require.Len(t, found.Variants, 1)
		assert.Equal(t, "Large", found.Variants[0].Name)
		require.NotNil(t, found.Variants[0].SalePrice)
		assert.True(t, found.Variants[0].SalePrice.Equal(sale))
		assert.Equal(t, "front", *found.Variants[0].MediaRef)
	})

	t.Run("clearing the media reference writes NULL", func(t *testing.T) {
		blue := color.Variants[1]
		blue.MediaRef = strPtr("back")
		require.NoError(t, repo.Update(ctx, &blue))
		blue.MediaRef = nil
		require.NoError(t, repo.Update(ctx, &blue))

		found, err := NewGormOptionRepository(db).FindByID(ctx, color.ID)
		require.NoError(t, err)
		require.Len(t, found.Variants, 1)
		assert.Nil(t, found.Variants[0].MediaRef)
	})

	t.Run("clear media refs only touches the product's variants", func(t *testing.T) {
		other := seedProduct(t, db, "Other", "O-1")
		otherOpt := seedOption(t, db, other.ID, "Finish", 0, "Matte")
		matte := otherOpt.Variants[0]
		matte.MediaRef = strPtr("front")
		require.NoError(t, repo.Update(ctx, &matte))

		require.NoError(t, repo.ClearMediaRefs(ctx, product.ID, []string{"front"}))

		large, err := NewGormOptionRepository(db).FindByID(ctx, size.ID)
		require.NoError(t, err)
		assert.Nil(t, large.Variants[0].MediaRef)
		assert.True(t, large.Variants[0].UpdatedAt.After(color.Variants[0].UpdatedAt), "cleared rows carry a new updated_at")

		kept, err := NewGormOptionRepository(db).FindByID(ctx, otherOpt.ID)
		require.NoError(t, err)
		require.NotNil(t, kept.Variants[0].MediaRef)
		assert.Equal(t, "front", *kept.Variants[0].MediaRef)
	})

	t.Run("clear media refs with nothing to clear", func(t *testing.T) {
		assert.NoError(t, repo.ClearMediaRefs(ctx, product.ID, nil))
	})

	t.Run("unknown variant", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
	})
}

func TestGormMediaRepository(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewGormMediaRepository(db)
	ctx := context.Background()
	product := seedProduct(t, db, "Mug", "M-1")

	front := catalog.MediaItem{BaseEntity: shared.NewBaseEntity(), ProductID: product.ID, MediaID: "front", URL: "f", IsDefault: true, Order: 1}
	back := catalog.MediaItem{BaseEntity: shared.NewBaseEntity(), ProductID: product.ID, MediaID: "back", URL: "b", Order: 0}
	require.NoError(t, repo.Create(ctx, &front))
	require.NoError(t, repo.Create(ctx, &back))

	t.Run("ordered by sort order", func(t *testing.T) {
		items, err := repo.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "back", items[0].MediaID)
		assert.Equal(t, "front", items[1].MediaID)
	})

	t.Run("duplicate media_id is a constraint violation", func(t *testing.T) {
		dup := catalog.MediaItem{BaseEntity: shared.NewBaseEntity(), ProductID: product.ID, MediaID: "front", URL: "x"}
		assert.Error(t, repo.Create(ctx, &dup))
	})

	t.Run("clear default then promote", func(t *testing.T) {
		require.NoError(t, repo.ClearDefault(ctx, product.ID))
		back.IsDefault = true
		back.Title = strPtr("Back")
		require.NoError(t, repo.Update(ctx, &back))

		items, err := repo.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		assert.True(t, items[0].IsDefault)
		assert.Equal(t, "Back", *items[0].Title)
		assert.False(t, items[1].IsDefault)
	})

	t.Run("delete by ids", func(t *testing.T) {
		require.NoError(t, repo.DeleteByIDs(ctx, []uuid.UUID{front.ID}))
		require.NoError(t, repo.DeleteByIDs(ctx, nil))

		items, err := repo.FindByProduct(ctx, product.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "back", items[0].MediaID)
	})

	t.Run("update of a missing item", func(t *testing.T) {
		missing := catalog.MediaItem{BaseEntity: shared.NewBaseEntity()}
		assert.ErrorIs(t, repo.Update(ctx, &missing), shared.ErrNotFound)
	})
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	db := setupCatalogTestDB(t)
	scope := NewGormTransactionScope(db, nil)
	ctx := context.Background()
	product := seedProduct(t, db, "Shirt", "S-1")
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos appcatalog.TransactionalRepositories) error {
		option := &catalog.Option{BaseEntity: shared.NewBaseEntity(), ProductID: product.ID, Name: "Color"}
		if err := repos.Options().Create(ctx, option); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	tree, err := NewGormOptionRepository(db).FindTreeByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestProductService_SyncOptions_Persisted(t *testing.T) {
	db := setupCatalogTestDB(t)
	service := appcatalog.NewProductService(NewGormTransactionScope(db, nil), nil)
	ctx := context.Background()
	actor := uuid.New()
	price := decimal.NewFromInt(25)

	created, err := service.Create(ctx, actor, appcatalog.CreateProductRequest{
		Name:  "Shirt",
		SKU:   "S-1",
		Price: &price,
		ProductMedia: []appcatalog.MediaInput{
			{MediaID: "front", URL: "https://cdn/front.jpg", Default: true},
		},
	})
	require.NoError(t, err)
	productID := created.ID

	first, err := service.SyncOptions(ctx, actor, productID, []appcatalog.OptionInput{
		{OptionName: "Color", Variants: []appcatalog.VariantInput{
			{VariantName: "Red", SKU: "S-RED", Price: &price, Media: strPtr("front")},
			{VariantName: "Blue", SKU: "S-BLUE", Price: &price},
		}},
		{OptionName: "Size", Variants: []appcatalog.VariantInput{
			{VariantName: "Small", SKU: "S-S", Price: &price},
		}},
	})
	require.NoError(t, err)
	require.Len(t, first.Options, 2)
	assert.Len(t, first.CreatedIDs.Options, 2)
	assert.Len(t, first.CreatedIDs.Variants, 3)

	// Resubmit with Blue moved under Size and Small deleted
	color, sizeOpt := first.Options[0], first.Options[1]
	second, err := service.SyncOptions(ctx, actor, productID, []appcatalog.OptionInput{
		{OptionID: &color.OptionID, OptionName: "Color", Variants: []appcatalog.VariantInput{
			{VariantID: &color.Variants[0].VariantID, VariantName: "Red", SKU: "S-RED", Price: &price, Media: strPtr("front")},
		}},
		{OptionID: &sizeOpt.OptionID, OptionName: "Size", Variants: []appcatalog.VariantInput{
			{VariantID: &color.Variants[1].VariantID, VariantName: "Blue", SKU: "S-BLUE", Price: &price},
		}},
	})
	require.NoError(t, err)
	require.Len(t, second.Options, 2)
	require.Len(t, second.Options[1].Variants, 1)
	assert.Equal(t, "Blue", second.Options[1].Variants[0].VariantName)
	assert.Equal(t, "front", *second.Options[0].Variants[0].Media)

	stored, err := NewGormProductRepository(db).FindByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, second.Version, stored.Version)

	// Dropping the media clears the variant reference in the same write
	empty := []appcatalog.MediaInput{}
	third, err := service.Update(ctx, actor, productID, appcatalog.UpdateProductRequest{ProductMedia: &empty})
	require.NoError(t, err)
	assert.Empty(t, third.ProductMedia)
	assert.Nil(t, third.Options[0].Variants[0].Media)
}

func TestProductService_SyncOptions_FailureLeavesTreeUntouched(t *testing.T) {
	db := setupCatalogTestDB(t)
	service := appcatalog.NewProductService(NewGormTransactionScope(db, nil), nil)
	ctx := context.Background()
	price := decimal.NewFromInt(5)

	created, err := service.Create(ctx, uuid.New(), appcatalog.CreateProductRequest{Name: "Mug", Price: &price})
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_variants", func(tx *gorm.DB) {
		if tx.Statement.Table == "product_variants" {
			_ = tx.AddError(diskFull)
		}
	}))

	_, err = service.SyncOptions(ctx, uuid.New(), created.ID, []appcatalog.OptionInput{
		{OptionName: "Color", Variants: []appcatalog.VariantInput{{VariantName: "Red", SKU: "R", Price: &price}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)

	tree, err := NewGormOptionRepository(db).FindTreeByProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, tree)

	stored, err := NewGormProductRepository(db).FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Version, stored.Version)
}

// renameDuring commits a product rename right after the first insert into
// table, between the service reading the product and finishing its write
func renameDuring(t *testing.T, db *gorm.DB, table, name string) {
	t.Helper()
	fired := false
	hook := "test:rename_during_" + table
	require.NoError(t, db.Callback().Create().After("gorm:create").Register(hook, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		assert.NoError(t, tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE products SET name = ?", name).Error)
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove(hook) })
}

func TestProductService_SubtreeWritesKeepConcurrentProductEdits(t *testing.T) {
	db := setupCatalogTestDB(t)
	service := appcatalog.NewProductService(NewGormTransactionScope(db, nil), nil)
	ctx := context.Background()
	price := decimal.NewFromInt(8)

	created, err := service.Create(ctx, uuid.New(), appcatalog.CreateProductRequest{Name: "Mug", SKU: "M-1", Price: &price})
	require.NoError(t, err)

	t.Run("options sync", func(t *testing.T) {
		renameDuring(t, db, "product_options", "Renamed Mug")

		result, err := service.SyncOptions(ctx, uuid.New(), created.ID, []appcatalog.OptionInput{
			{OptionName: "Color", Variants: []appcatalog.VariantInput{{VariantName: "Red", SKU: "M-RED", Price: &price}}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed Mug", result.Name)
		assert.Equal(t, created.Version+1, result.Version)
	})

	t.Run("media-only update", func(t *testing.T) {
		renameDuring(t, db, "product_media", "Enamel Mug")
		media := []appcatalog.MediaInput{{MediaID: "front", URL: "https://cdn/front.jpg", Default: true}}

		result, err := service.Update(ctx, uuid.New(), created.ID, appcatalog.UpdateProductRequest{ProductMedia: &media})
		require.NoError(t, err)
		assert.Equal(t, "Enamel Mug", result.Name)
		assert.Equal(t, created.Version+2, result.Version)

		stored, err := NewGormProductRepository(db).FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Enamel Mug", stored.Name)
		assert.True(t, stored.Price.Equal(price))
	})
}
