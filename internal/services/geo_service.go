package services

import (
	"context"
	"errors"
	"strings"

	"github.com/atlas-data/atlas/internal/cache"
	"github.com/atlas-data/atlas/internal/geo"
	"github.com/atlas-data/atlas/internal/models"
	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/utils"
	"github.com/sirupsen/logrus"
)

// ReferenceStats describes the commune referential plus the matcher cache,
// for observability.
type ReferenceStats struct {
	TotalCommunes int64 `json:"total_communes"`
	Departements  int64 `json:"departements"`
	Regions       int64 `json:"regions"`
	WithGPS       int64 `json:"with_gps"`
	CacheSize     int   `json:"cache_size"`
}

// GeoService resolves free-text locations against the commune referential.
// An unresolved location is a (0, false) return, never an error; repository
// failures are logged and degrade to the next tier.
type GeoService interface {
	FindCommuneID(ctx context.Context, city, postal string) (int64, bool)
	CommuneInfo(ctx context.Context, communeID int64) (*models.Commune, error)
	Stats(ctx context.Context) (*ReferenceStats, error)
}

type geoService struct {
	communes pgrepo.CommuneRepository
	cache    cache.CommuneCache
	log      *logrus.Logger
}

func NewGeoService(communes pgrepo.CommuneRepository, c cache.CommuneCache, log *logrus.Logger) GeoService {
	return &geoService{communes: communes, cache: c, log: log}
}

// FindCommuneID tries, in order: exact postal code plus name, normalized
// name alone (most populous first), then the reference-side fuzzy search.
// Results, including misses, are memoized per (cleaned city, postal code).
func (s *geoService) FindCommuneID(ctx context.Context, city, postal string) (int64, bool) {
	if strings.TrimSpace(city) == "" {
		return 0, false
	}

	clean := geo.CleanCityName(city)
	key := clean + "|" + postal
	if e, ok := s.cache.Get(ctx, key); ok {
		return e.CommuneID, e.Found
	}

	norm := geo.NormalizeForSearch(clean)

	var (
		id    int64
		found bool
	)
	if postal != "" {
		id, found = s.tryTier(ctx, "postal+name", func() (int64, error) {
			return s.communes.FindByPostalAndName(ctx, postal, clean, norm)
		})
	}
	if !found {
		id, found = s.tryTier(ctx, "normalized-name", func() (int64, error) {
			return s.communes.FindByNormalizedName(ctx, norm)
		})
	}
	if !found {
		id, found = s.tryTier(ctx, "fuzzy", func() (int64, error) {
			return s.communes.FindFuzzy(ctx, clean, postal)
		})
	}

	s.cache.Set(ctx, key, cache.Entry{CommuneID: id, Found: found})

	if found {
		s.log.WithFields(logrus.Fields{"city": clean, "postal": postal, "commune_id": id}).
			Debug("commune resolved")
	} else {
		s.log.WithFields(logrus.Fields{"city": clean, "postal": postal}).
			Warn("commune not found")
	}
	return id, found
}

// tryTier treats not-found as a clean miss and any other repository error
// as a logged miss, so one failing tier never aborts the resolution.
func (s *geoService) tryTier(ctx context.Context, tier string, fn func() (int64, error)) (int64, bool) {
	id, err := fn()
	if err == nil {
		return id, true
	}
	if !errors.Is(err, utils.ErrNotFound) {
		s.log.WithError(err).WithField("tier", tier).Warn("commune lookup failed")
	}
	return 0, false
}

func (s *geoService) CommuneInfo(ctx context.Context, communeID int64) (*models.Commune, error) {
	const op = "GeoService.CommuneInfo"

	c, err := s.communes.GetByID(ctx, communeID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "commune not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get commune", err)
	}
	return c, nil
}

func (s *geoService) Stats(ctx context.Context) (*ReferenceStats, error) {
	const op = "GeoService.Stats"

	repoStats, err := s.communes.Stats(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to get reference stats", err)
	}
	return &ReferenceStats{
		TotalCommunes: repoStats.TotalCommunes,
		Departements:  repoStats.Departements,
		Regions:       repoStats.Regions,
		WithGPS:       repoStats.WithGPS,
		CacheSize:     s.cache.Len(ctx),
	}, nil
}
