package postgres

import (
	"context"

	"github.com/atlas-data/atlas/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// offerMutableColumns are refreshed on re-scrape of the same external_id.
// Provenance fields (title, description, url, company_name, contract_type)
// and the dimension keys are insert-only.
var offerMutableColumns = []string{
	"description_cleaned",
	"salary_min", "salary_max",
	"profile_category", "profile_confidence", "profile_score",
	"education_level", "education_type",
	"remote_possible", "remote_days", "remote_percentage",
	"experience_years",
	"topic_id", "topic_label", "topic_confidence",
	"skills_extracted",
	"processed", "processing_date",
}

type OfferRepository interface {
	// Upsert inserts the offer or, when external_id already exists,
	// refreshes the mutable columns. Returns the offer_id either way.
	Upsert(ctx context.Context, o *models.Offer) (int64, error)
}

type offerRepo struct {
	db *gorm.DB
}

func NewOfferRepo(db *gorm.DB) OfferRepository {
	return &offerRepo{db: db}
}

func (r *offerRepo) Upsert(ctx context.Context, o *models.Offer) (int64, error) {
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(offerMutableColumns),
		}).
		Create(o).Error
	if err != nil {
		return 0, err
	}
	return o.OfferID, nil
}
