package postgres

import (
	"context"

	"github.com/atlas-data/atlas/internal/models"
	"github.com/atlas-data/atlas/internal/utils"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DuplicateCandidate is the single best stored match for a probe vector.
// The similarity threshold decision belongs to the dedup service, not here.
type DuplicateCandidate struct {
	OfferID    int64   `gorm:"column:offer_id"`
	Similarity float64 `gorm:"column:similarity"`
	Title      string  `gorm:"column:title"`
}

type EmbeddingRepository interface {
	// NearestNeighbor returns the stored embedding closest to vec by
	// cosine similarity (1 - cosine distance), or utils.ErrNotFound when
	// no embeddings exist yet.
	NearestNeighbor(ctx context.Context, vec pgvector.Vector) (*DuplicateCandidate, error)
	// Upsert inserts or replaces the embedding row for an offer.
	Upsert(ctx context.Context, e *models.OfferEmbedding) error
}

type embeddingRepo struct {
	db *gorm.DB
}

func NewEmbeddingRepo(db *gorm.DB) EmbeddingRepository {
	return &embeddingRepo{db: db}
}

func (r *embeddingRepo) NearestNeighbor(ctx context.Context, vec pgvector.Vector) (*DuplicateCandidate, error) {
	var cand DuplicateCandidate
	res := dbFrom(ctx, r.db).WithContext(ctx).Raw(`
		SELECT
			jo.offer_id,
			1 - (je.embedding <=> ?) AS similarity,
			jo.title
		FROM job_embeddings je
		JOIN fact_job_offers jo ON jo.offer_id = je.offer_id
		ORDER BY je.embedding <=> ?
		LIMIT 1`,
		vec, vec).Scan(&cand)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrNotFound
	}
	return &cand, nil
}

func (r *embeddingRepo) Upsert(ctx context.Context, e *models.OfferEmbedding) error {
	return dbFrom(ctx, r.db).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "offer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "model_name", "created_at"}),
		}).
		Create(e).Error
}
