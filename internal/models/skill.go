package models

const (
	SkillCategoryTechnical = "technical"
	SkillCategorySoft      = "soft"
)

// Skill is a lazily-grown dimension row, unique by skill_name.
type Skill struct {
	SkillID       int64  `gorm:"column:skill_id;primaryKey;autoIncrement" json:"skill_id"`
	SkillName     string `gorm:"column:skill_name;type:text;uniqueIndex" json:"skill_name"`
	SkillCategory string `gorm:"column:skill_category;type:text" json:"skill_category"`
}

func (Skill) TableName() string { return "dim_skills" }

// OfferSkill links an offer to a skill, insert-if-absent per pair.
type OfferSkill struct {
	OfferID int64 `gorm:"column:offer_id;primaryKey" json:"offer_id"`
	SkillID int64 `gorm:"column:skill_id;primaryKey" json:"skill_id"`
}

func (OfferSkill) TableName() string { return "fact_offer_skills" }
