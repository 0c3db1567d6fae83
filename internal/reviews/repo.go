package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db/models"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/pagination"
)

// Repository encapsulates review persistence and the product aggregate it
// maintains.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the review row.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// LockProduct takes the product's row lock so concurrent submissions for the
// same product serialize before the quota recount. sqlite has no row locks;
// its driver drops the clause and writers serialize on the database lock.
func (r *Repository) LockProduct(ctx context.Context, productID uuid.UUID) error {
	var ids []uuid.UUID
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		Pluck("id", &ids).Error
}

// CountByBuyerProduct counts the buyer's reviews for the product.
func (r *Repository) CountByBuyerProduct(ctx context.Context, buyerID, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Count(&count).Error
	return count, err
}

// CountByBuyerProductOrder counts the buyer's reviews for the product under a
// specific order.
func (r *Repository) CountByBuyerProductOrder(ctx context.Context, buyerID, productID, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("buyer_id = ? AND product_id = ? AND order_id = ?", buyerID, productID, orderID).
		Count(&count).Error
	return count, err
}

// RatingStats returns the rating sum and review count for the product.
func (r *Repository) RatingStats(ctx context.Context, productID uuid.UUID) (int64, int64, error) {
	var row struct {
		Total int64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	return row.Total, row.Count, err
}

// UpdateProductAggregate writes the recomputed mean rating and count onto the
// product row.
func (r *Repository) UpdateProductAggregate(ctx context.Context, productID uuid.UUID, rating float64, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating":        rating,
			"reviews_count": count,
		}).Error
}

// ListOrdersWithProduct loads the buyer's orders containing the product, with
// timelines preloaded.
func (r *Repository) ListOrdersWithProduct(ctx context.Context, buyerID, productID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("StatusEntries").
		Joins("JOIN order_lines ON order_lines.order_id = orders.id").
		Where("orders.buyer_id = ? AND order_lines.product_id = ?", buyerID, productID).
		Group("orders.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByProduct returns the product's reviews newest first, keyset-paginated
// on (created_at, id).
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Review
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
