package repository

import (
	"github.com/storefront/commerce-backend/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository allocates document numbers. Next must run on a
// transaction handle: the counter row stays locked until commit, so two
// checkouts in the same business serialize on it.
type SequenceRepository interface {
	WithTx(tx *gorm.DB) SequenceRepository
	Next(kind model.SequenceKind, businessID uint, year int) (int64, error)
}

type sequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

func (r *sequenceRepository) WithTx(tx *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: tx}
}

func (r *sequenceRepository) Next(kind model.SequenceKind, businessID uint, year int) (int64, error) {
	seed := model.DocumentSequence{BusinessID: businessID, Kind: kind, Year: year}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, err
	}

	var seq model.DocumentSequence
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND kind = ? AND year = ?", businessID, kind, year).
		First(&seq).Error
	if err != nil {
		return 0, err
	}

	next := seq.LastValue + 1
	err = r.db.Model(&model.DocumentSequence{}).
		Where("business_id = ? AND kind = ? AND year = ?", businessID, kind, year).
		Update("last_value", next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
