package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/silkroute/storefront-backend/pkg/db/models"
	pkgerrors "github.com/silkroute/storefront-backend/pkg/errors"
)

// Reader is the read-only catalog surface the transactional core consumes.
// Catalog management (CRUD, caching, browsing) lives outside this core.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	FindActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActiveVariant(ctx context.Context, variantID, productID uuid.UUID) (*models.ProductVariant, error)
	ResolveScanCode(ctx context.Context, code string) (*models.Product, *models.ProductVariant, error)
}

type reader struct {
	db *gorm.DB
}

// NewReader builds a catalog reader bound to the provided DB.
func NewReader(db *gorm.DB) Reader {
	return &reader{db: db}
}

func (r *reader) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &reader{db: tx}
}

// FindActiveProduct returns the product only when it exists and is active. A
// product deactivated between cart-add and checkout fails here, it is never
// silently dropped.
func (r *reader) FindActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// FindActiveVariant returns the variant only when it is active and belongs to
// the given product.
func (r *reader) FindActiveVariant(ctx context.Context, variantID, productID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ? AND is_active = ?", variantID, productID, true).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found or inactive").
				WithDetails(map[string]any{"variant_id": variantID, "product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return &variant, nil
}

// ResolveScanCode maps a scanned identifier to a (product, variant) pair.
// Resolution order, first match wins:
//  1. variant scan code
//  2. variant barcode
//  3. product-level barcode
// Only active products and variants participate.
func (r *reader) ResolveScanCode(ctx context.Context, code string) (*models.Product, *models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&variant).Error
	if err == nil {
		product, perr := r.FindActiveProduct(ctx, variant.ProductID)
		if perr != nil {
			return nil, nil, perr
		}
		return product, &variant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve variant code")
	}

	err = r.db.WithContext(ctx).
		Where("barcode = ? AND is_active = ?", code, true).
		First(&variant).Error
	if err == nil {
		product, perr := r.FindActiveProduct(ctx, variant.ProductID)
		if perr != nil {
			return nil, nil, perr
		}
		return product, &variant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve variant barcode")
	}

	var product models.Product
	err = r.db.WithContext(ctx).
		Where("barcode = ? AND is_active = ?", code, true).
		First(&product).Error
	if err == nil {
		return &product, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve product barcode")
	}

	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "scan code did not resolve").
		WithDetails(map[string]any{"code": code})
}
