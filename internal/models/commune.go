package models

// Commune is one row of the French commune referential, loaded once by the
// offline importer and read-only on the ingestion path. The pair
// (code_insee, code_postal) is unique after load-time deduplication.
type Commune struct {
	CommuneID       int64  `gorm:"column:commune_id;primaryKey;autoIncrement" json:"commune_id"`
	CodeInsee       string `gorm:"column:code_insee;type:varchar(5);index" json:"code_insee"`
	CodePostal      string `gorm:"column:code_postal;type:varchar(5);index" json:"code_postal"`
	NomCommune      string `gorm:"column:nom_commune;type:text" json:"nom_commune"`
	NomDepartement  string `gorm:"column:nom_departement;type:text" json:"nom_departement"`
	NomRegion       string `gorm:"column:nom_region;type:text" json:"nom_region"`
	CodeDepartement string `gorm:"column:code_departement;type:varchar(3)" json:"code_departement"`
	CodeRegion      string `gorm:"column:code_region;type:varchar(2)" json:"code_region"`

	// Not every commune is geocoded; coordinates are back-filled by the
	// offline geocoding worker.
	Latitude   *float64 `gorm:"column:latitude;type:double precision" json:"latitude"`
	Longitude  *float64 `gorm:"column:longitude;type:double precision" json:"longitude"`
	Population *int64   `gorm:"column:population;type:bigint" json:"population"`
}

func (Commune) TableName() string { return "ref_communes_france" }
