package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// OfferEmbedding holds the description embedding for one offer, 1:1 with
// fact_job_offers and replaced atomically on re-ingest.
type OfferEmbedding struct {
	OfferID   int64           `gorm:"column:offer_id;primaryKey" json:"offer_id"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding"`
	ModelName string          `gorm:"column:model_name;type:text" json:"model_name"`
	CreatedAt time.Time       `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (OfferEmbedding) TableName() string { return "job_embeddings" }
