package repository

import (
	"context"

	"github.com/hollis-dev/snip/internal/app/model"
	"gorm.io/gorm"
)

// AccessEventRepository defines the data access contract for access
// events. The table is append-only.
type AccessEventRepository interface {
	Create(ctx context.Context, event *model.AccessEvent) error
}

type accessEventRepository struct {
	db *gorm.DB
}

// NewAccessEventRepository returns a GORM-backed AccessEventRepository.
func NewAccessEventRepository(db *gorm.DB) AccessEventRepository {
	return &accessEventRepository{db: db}
}

func (r *accessEventRepository) Create(ctx context.Context, event *model.AccessEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
