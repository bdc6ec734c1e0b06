package postgres

import (
	"context"

	"github.com/atlas-data/atlas/internal/models"
	"gorm.io/gorm"
)

type IngestRunRepository interface {
	Insert(ctx context.Context, run *models.IngestRun) error
}

type ingestRunRepo struct {
	db *gorm.DB
}

func NewIngestRunRepo(db *gorm.DB) IngestRunRepository {
	return &ingestRunRepo{db: db}
}

func (r *ingestRunRepo) Insert(ctx context.Context, run *models.IngestRun) error {
	return dbFrom(ctx, r.db).WithContext(ctx).Create(run).Error
}
