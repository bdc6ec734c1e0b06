package postgres

import (
	"context"

	"github.com/atlas-data/atlas/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SkillRepository interface {
	// EnsureSkills creates any skill rows not seen before; existing names
	// keep their original category.
	EnsureSkills(ctx context.Context, names []string, category string) error
	// LinkOffer records the offer-skill pair, insert-if-absent.
	LinkOffer(ctx context.Context, offerID int64, skillName string) error
}

type skillRepo struct {
	db *gorm.DB
}

func NewSkillRepo(db *gorm.DB) SkillRepository {
	return &skillRepo{db: db}
}

func (r *skillRepo) EnsureSkills(ctx context.Context, names []string, category string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]models.Skill, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Skill{SkillName: n, SkillCategory: category})
	}
	return dbFrom(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "skill_name"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *skillRepo) LinkOffer(ctx context.Context, offerID int64, skillName string) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Exec(`
		INSERT INTO fact_offer_skills (offer_id, skill_id)
		SELECT ?, skill_id FROM dim_skills WHERE skill_name = ?
		ON CONFLICT (offer_id, skill_id) DO NOTHING`,
		offerID, skillName).Error
}
