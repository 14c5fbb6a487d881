package shipping

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ListActive(ctx context.Context) ([]Carrier, error) {
	var carriers []Carrier
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&carriers, "active = ?", true).Error
	return carriers, err
}

func (r *Repo) GetByCode(ctx context.Context, code string) (Carrier, error) {
	code = strings.ToLower(strings.TrimSpace(code))

	var c Carrier
	err := r.db.WithContext(ctx).First(&c, "code = ?", code).Error
	return c, err
}

func (r *Repo) GetByID(ctx context.Context, id string) (Carrier, error) {
	var c Carrier
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, err
}
