package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/atlas-data/atlas/internal/models"
	"github.com/atlas-data/atlas/internal/utils"
	"gorm.io/gorm"
)

// normalizedNameSQL mirrors NormalizeForSearch on the database side so the
// stored display names can be compared against a search-normalized input.
const normalizedNameSQL = `LOWER(REPLACE(REPLACE(TRANSLATE(nom_commune,
	'àâäéèêëïîôùûüÿçÀÂÄÉÈÊËÏÎÔÙÛÜŸÇ',
	'aaaeeeeiioouuuycAAAEEEEIIOUUUYC'),
	'-', ' '), '''', ' '))`

type CommuneStats struct {
	TotalCommunes int64 `gorm:"column:total_communes" json:"total_communes"`
	Departements  int64 `gorm:"column:departements" json:"departements"`
	Regions       int64 `gorm:"column:regions" json:"regions"`
	WithGPS       int64 `gorm:"column:with_gps" json:"with_gps"`
}

type CommuneRepository interface {
	// FindByPostalAndName is the first resolution tier: exact postal code
	// plus case-insensitive or accent-normalized name match.
	FindByPostalAndName(ctx context.Context, postal, cityClean, cityNorm string) (int64, error)
	// FindByNormalizedName is the second tier: normalized name alone,
	// most populous commune first when several share the name.
	FindByNormalizedName(ctx context.Context, cityNorm string) (int64, error)
	// FindFuzzy is the last-resort tier, delegated to the find_commune
	// function shipped with the reference schema.
	FindFuzzy(ctx context.Context, cityClean, postal string) (int64, error)

	GetByID(ctx context.Context, id int64) (*models.Commune, error)
	Stats(ctx context.Context) (*CommuneStats, error)

	// Offline path only: the online ingestion never writes this table.
	ReplaceAll(ctx context.Context, communes []models.Commune) (int64, error)
	MissingCoordinates(ctx context.Context, limit int) ([]models.Commune, error)
	UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error
}

type communeRepo struct {
	db *gorm.DB
}

func NewCommuneRepo(db *gorm.DB) CommuneRepository {
	return &communeRepo{db: db}
}

func (r *communeRepo) FindByPostalAndName(ctx context.Context, postal, cityClean, cityNorm string) (int64, error) {
	var id int64
	res := dbFrom(ctx, r.db).WithContext(ctx).Raw(`
		SELECT commune_id FROM ref_communes_france
		WHERE code_postal = ?
		  AND (LOWER(nom_commune) = LOWER(?) OR `+normalizedNameSQL+` = ?)
		LIMIT 1`,
		postal, cityClean, cityNorm).Scan(&id)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, utils.ErrNotFound
	}
	return id, nil
}

func (r *communeRepo) FindByNormalizedName(ctx context.Context, cityNorm string) (int64, error) {
	var id int64
	res := dbFrom(ctx, r.db).WithContext(ctx).Raw(`
		SELECT commune_id FROM ref_communes_france
		WHERE `+normalizedNameSQL+` = ?
		ORDER BY population DESC NULLS LAST
		LIMIT 1`,
		cityNorm).Scan(&id)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, utils.ErrNotFound
	}
	return id, nil
}

func (r *communeRepo) FindFuzzy(ctx context.Context, cityClean, postal string) (int64, error) {
	var id sql.NullInt64
	res := dbFrom(ctx, r.db).WithContext(ctx).
		Raw(`SELECT find_commune(?, NULLIF(?, ''))`, cityClean, postal).Scan(&id)
	if res.Error != nil {
		return 0, res.Error
	}
	if !id.Valid {
		return 0, utils.ErrNotFound
	}
	return id.Int64, nil
}

func (r *communeRepo) GetByID(ctx context.Context, id int64) (*models.Commune, error) {
	var c models.Commune
	err := dbFrom(ctx, r.db).WithContext(ctx).
		Where("commune_id = ?", id).
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &c, err
}

func (r *communeRepo) Stats(ctx context.Context) (*CommuneStats, error) {
	var s CommuneStats
	err := dbFrom(ctx, r.db).WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_communes,
			COUNT(DISTINCT code_departement) AS departements,
			COUNT(DISTINCT code_region) AS regions,
			COUNT(latitude) AS with_gps
		FROM ref_communes_france`).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *communeRepo) ReplaceAll(ctx context.Context, communes []models.Commune) (int64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM ref_communes_france`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`ALTER SEQUENCE ref_communes_france_commune_id_seq RESTART WITH 1`).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(communes, 500).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(communes)), nil
}

func (r *communeRepo) MissingCoordinates(ctx context.Context, limit int) ([]models.Commune, error) {
	var rows []models.Commune
	err := r.db.WithContext(ctx).
		Where("latitude IS NULL OR longitude IS NULL").
		Order("commune_id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *communeRepo) UpdateCoordinates(ctx context.Context, id int64, lat, lon float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Commune{}).
		Where("commune_id = ?", id).
		Updates(map[string]any{"latitude": lat, "longitude": lon}).Error
}
