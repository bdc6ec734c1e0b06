package models

import "time"

// Source is one scraping origin (official API or job board).
type Source struct {
	SourceID    int64  `gorm:"column:source_id;primaryKey;autoIncrement" json:"source_id"`
	SourceName  string `gorm:"column:source_name;type:text;uniqueIndex" json:"source_name"`
	SourceType  string `gorm:"column:source_type;type:text" json:"source_type"` // api | scraping
	IsOfficial  bool   `gorm:"column:is_official" json:"is_official"`
	Description string `gorm:"column:description;type:text" json:"description"`
}

func (Source) TableName() string { return "dim_sources" }

// DateDim is the calendar dimension, one row per distinct publication date.
type DateDim struct {
	DateID    int64     `gorm:"column:date_id;primaryKey;autoIncrement" json:"date_id"`
	FullDate  time.Time `gorm:"column:full_date;type:date;uniqueIndex" json:"full_date"`
	Year      int       `gorm:"column:year" json:"year"`
	Quarter   int       `gorm:"column:quarter" json:"quarter"`
	Month     int       `gorm:"column:month" json:"month"`
	MonthName string    `gorm:"column:month_name;type:text" json:"month_name"`
	Week      int       `gorm:"column:week" json:"week"`
	DayOfWeek int       `gorm:"column:day_of_week" json:"day_of_week"` // 1 = lundi
	DayName   string    `gorm:"column:day_name;type:text" json:"day_name"`
	IsWeekend bool      `gorm:"column:is_weekend" json:"is_weekend"`
}

func (DateDim) TableName() string { return "dim_dates" }

// JobCategory holds either a ROME referential entry or a heuristic
// category derived from the offer title.
type JobCategory struct {
	JobCategoryID int64  `gorm:"column:job_category_id;primaryKey;autoIncrement" json:"job_category_id"`
	CategoryName  string `gorm:"column:category_name;type:text" json:"category_name"`
	CategoryCode  string `gorm:"column:category_code;type:text;uniqueIndex" json:"category_code"`
	Level         int    `gorm:"column:level" json:"level"`
}

func (JobCategory) TableName() string { return "dim_job_categories" }
