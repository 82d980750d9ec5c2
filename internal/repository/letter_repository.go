package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
)

// Adjudication carries the fields written exactly once when a letter leaves Pending.
type Adjudication struct {
	Status     model.LetterStatus
	VerifiedBy uint
	VerifiedAt time.Time
	Comments   string
}

// LetterRepository defines letter persistence operations.
type LetterRepository interface {
	Create(ctx context.Context, letter *model.Letter) error
	FindByNumber(ctx context.Context, number string) (*model.Letter, error)
	// AdjudicateIfPending applies a only when the stored status is still Pending.
	// It reports false when no row matched.
	AdjudicateIfPending(ctx context.Context, number string, a Adjudication) (bool, error)
	Delete(ctx context.Context, number string) error
	List(ctx context.Context, uploadedBy *uint) ([]model.Letter, error)
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
}

type letterRepository struct {
	db *gorm.DB
}

// NewLetterRepository creates a new letter repository.
func NewLetterRepository(db *gorm.DB) LetterRepository {
	return &letterRepository{db: db}
}

// Create inserts a letter. A duplicate letter number surfaces as ErrConflict.
func (r *letterRepository) Create(ctx context.Context, letter *model.Letter) error {
	return translate(r.db.WithContext(ctx).Create(letter).Error)
}

// FindByNumber finds a letter by its public number.
func (r *letterRepository) FindByNumber(ctx context.Context, number string) (*model.Letter, error) {
	var letter model.Letter
	if err := r.db.WithContext(ctx).Where("letter_number = ?", number).First(&letter).Error; err != nil {
		return nil, translate(err)
	}
	return &letter, nil
}

func (r *letterRepository) AdjudicateIfPending(ctx context.Context, number string, a Adjudication) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Letter{}).
		Where("letter_number = ? AND status = ?", number, model.LetterStatusPending).
		Updates(map[string]interface{}{
			"status":                a.Status,
			"verified_by":           a.VerifiedBy,
			"verified_date":         a.VerifiedAt,
			"verification_comments": a.Comments,
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a letter row.
func (r *letterRepository) Delete(ctx context.Context, number string) error {
	res := r.db.WithContext(ctx).Where("letter_number = ?", number).Delete(&model.Letter{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns letters newest first, optionally restricted to one uploader.
func (r *letterRepository) List(ctx context.Context, uploadedBy *uint) ([]model.Letter, error) {
	var letters []model.Letter
	q := r.db.WithContext(ctx).Order("upload_date DESC")
	if uploadedBy != nil {
		q = q.Where("uploaded_by = ?", *uploadedBy)
	}
	if err := q.Find(&letters).Error; err != nil {
		return nil, translate(err)
	}
	return letters, nil
}

func (r *letterRepository) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	err := r.db.WithContext(ctx).
		Model(&model.Letter{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, translate(err)
	}
	return counts, nil
}
