package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hollis-dev/snip/internal/app/model"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")

	// ErrCodeTaken signals that another link already owns the code. The
	// unique constraint on the code column is the arbiter when two
	// writers race for the same code.
	ErrCodeTaken = errors.New("code already taken")
)

// LinkRepository defines the data access contract for short links.
type LinkRepository interface {
	Create(ctx context.Context, link *model.ShortLink) error
	GetByCode(ctx context.Context, code string) (*model.ShortLink, error)
	List(ctx context.Context, limit, offset int) ([]model.ShortLink, error)
	Deactivate(ctx context.Context, code string) error
	DeactivateExpired(ctx context.Context, before time.Time) ([]string, error)
	AllCodes(ctx context.Context) ([]string, error)
}

type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository returns a GORM-backed LinkRepository.
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *linkRepository) List(ctx context.Context, limit, offset int) ([]model.ShortLink, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var result []model.ShortLink
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *linkRepository) Deactivate(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("code = ?", code).
		Update("active", false)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// DeactivateExpired flips active off for every link whose expiry lies
// before the cutoff and returns the affected codes so callers can evict
// them from the cache.
func (r *linkRepository) DeactivateExpired(ctx context.Context, before time.Time) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, before).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	if len(codes) == 0 {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("code IN ?", codes).
		Update("active", false).Error; err != nil {
		return nil, err
	}

	return codes, nil
}

func (r *linkRepository) AllCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// isUniqueViolation matches both gorm's translated sentinel and the raw
// Postgres SQLSTATE, since TranslateError does not cover every path.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
