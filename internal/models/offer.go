package models

import (
	"time"

	"github.com/lib/pq"
)

// Offer is the fact row for one scraped job posting. external_id is unique
// per source; the write path upserts on it. Provenance fields (title,
// description, url, company) are insert-only, NLP-derived and salary fields
// are refreshed on re-scrape.
type Offer struct {
	OfferID       int64  `gorm:"column:offer_id;primaryKey;autoIncrement" json:"offer_id"`
	SourceID      int64  `gorm:"column:source_id" json:"source_id"`
	DateID        *int64 `gorm:"column:date_id" json:"date_id"`
	CommuneID     int64  `gorm:"column:commune_id" json:"commune_id"`
	JobCategoryID *int64 `gorm:"column:job_category_id" json:"job_category_id"`

	ExternalID string `gorm:"column:external_id;type:text;uniqueIndex" json:"external_id"`

	Title              string `gorm:"column:title;type:text" json:"title"`
	Description        string `gorm:"column:description;type:text" json:"description"`
	DescriptionCleaned string `gorm:"column:description_cleaned;type:text" json:"description_cleaned"`
	URL                string `gorm:"column:url;type:text" json:"url"`
	CompanyName        string `gorm:"column:company_name;type:text" json:"company_name"`
	ContractType       string `gorm:"column:contract_type;type:text" json:"contract_type"`

	SalaryMin *float64 `gorm:"column:salary_min" json:"salary_min"`
	SalaryMax *float64 `gorm:"column:salary_max" json:"salary_max"`

	PublishedDate *time.Time `gorm:"column:published_date;type:date" json:"published_date"`
	CollectedDate time.Time  `gorm:"column:collected_date;type:timestamptz" json:"collected_date"`

	ExperienceYears *int `gorm:"column:experience_years" json:"experience_years"`

	ProfileCategory   string `gorm:"column:profile_category;type:text" json:"profile_category"`
	ProfileConfidence *int   `gorm:"column:profile_confidence" json:"profile_confidence"`
	ProfileScore      int    `gorm:"column:profile_score" json:"profile_score"`

	EducationLevel *int    `gorm:"column:education_level" json:"education_level"`
	EducationType  *string `gorm:"column:education_type;type:text" json:"education_type"`

	RemotePossible   bool `gorm:"column:remote_possible" json:"remote_possible"`
	RemoteDays       *int `gorm:"column:remote_days" json:"remote_days"`
	RemotePercentage *int `gorm:"column:remote_percentage" json:"remote_percentage"`

	TopicID         *int     `gorm:"column:topic_id" json:"topic_id"`
	TopicLabel      *string  `gorm:"column:topic_label;type:text" json:"topic_label"`
	TopicConfidence *float64 `gorm:"column:topic_confidence" json:"topic_confidence"`

	SkillsExtracted pq.StringArray `gorm:"column:skills_extracted;type:text[]" json:"skills_extracted"`

	Processed      bool       `gorm:"column:processed" json:"processed"`
	ProcessingDate *time.Time `gorm:"column:processing_date;type:timestamptz" json:"processing_date"`
}

func (Offer) TableName() string { return "fact_job_offers" }
