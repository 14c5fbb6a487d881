package products

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return p, err
}

// MarkSold flips is_sold exactly once. The guard in the WHERE clause makes a
// concurrent second flip a no-op; callers get false when nothing changed.
func (r *Repo) MarkSold(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND is_sold = ?", id, false).
		Updates(map[string]any{
			"is_sold":    true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
