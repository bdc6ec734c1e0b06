package postgres

import (
	"context"
	"time"

	"github.com/atlas-data/atlas/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DimensionRepository resolves the source, date and job-category foreign
// keys. Every get-or-create is a conflict-tolerant insert on the natural
// unique key followed by a read, so concurrent batch workers racing on the
// same dimension row both converge on the winner.
type DimensionRepository interface {
	GetOrCreateSource(ctx context.Context, name string) (int64, error)
	GetOrCreateDate(ctx context.Context, d time.Time) (int64, error)
	GetOrCreateJobCategory(ctx context.Context, name, code string) (int64, error)
}

type dimensionRepo struct {
	db *gorm.DB
}

func NewDimensionRepo(db *gorm.DB) DimensionRepository {
	return &dimensionRepo{db: db}
}

const officialSource = "france_travail"

func (r *dimensionRepo) GetOrCreateSource(ctx context.Context, name string) (int64, error) {
	db := dbFrom(ctx, r.db).WithContext(ctx)

	sourceType := "scraping"
	if name == officialSource {
		sourceType = "api"
	}
	src := models.Source{
		SourceName:  name,
		SourceType:  sourceType,
		IsOfficial:  name == officialSource,
		Description: "Source " + name,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_name"}},
		DoNothing: true,
	}).Create(&src).Error; err != nil {
		return 0, err
	}

	var row models.Source
	if err := db.Where("source_name = ?", name).Take(&row).Error; err != nil {
		return 0, err
	}
	return row.SourceID, nil
}

var (
	frenchMonths = []string{"", "Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
		"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre"}
	frenchDays = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"}
)

func (r *dimensionRepo) GetOrCreateDate(ctx context.Context, d time.Time) (int64, error) {
	db := dbFrom(ctx, r.db).WithContext(ctx)

	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	_, week := day.ISOWeek()
	// Monday-based index 0..6
	dow := (int(day.Weekday()) + 6) % 7

	row := models.DateDim{
		FullDate:  day,
		Year:      day.Year(),
		Quarter:   (int(day.Month())-1)/3 + 1,
		Month:     int(day.Month()),
		MonthName: frenchMonths[int(day.Month())],
		Week:      week,
		DayOfWeek: dow + 1,
		DayName:   frenchDays[dow],
		IsWeekend: dow >= 5,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "full_date"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return 0, err
	}

	var existing models.DateDim
	if err := db.Where("full_date = ?", day).Take(&existing).Error; err != nil {
		return 0, err
	}
	return existing.DateID, nil
}

func (r *dimensionRepo) GetOrCreateJobCategory(ctx context.Context, name, code string) (int64, error) {
	db := dbFrom(ctx, r.db).WithContext(ctx)

	row := models.JobCategory{
		CategoryName: name,
		CategoryCode: code,
		Level:        1,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_code"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return 0, err
	}

	var existing models.JobCategory
	if err := db.Where("category_code = ?", code).Take(&existing).Error; err != nil {
		return 0, err
	}
	return existing.JobCategoryID, nil
}
