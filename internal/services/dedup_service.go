package services

import (
	"context"
	"errors"

	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/utils"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

// DefaultDuplicateThreshold is the cosine-similarity cutoff above which a
// new offer is considered a re-post of a stored one. Tunable, not derived.
const DefaultDuplicateThreshold = 0.95

// DuplicateMatch identifies the stored offer a candidate duplicates.
type DuplicateMatch struct {
	OfferID    int64   `json:"offer_id"`
	Similarity float64 `json:"similarity"`
	Title      string  `json:"title"`
}

// DedupService decides, before any insert work, whether a candidate offer
// is a near-duplicate of an already-stored one. A failing similarity query
// degrades to "not a duplicate": a transient search failure must never
// block ingestion.
type DedupService interface {
	Check(ctx context.Context, embedding []float32) *DuplicateMatch
}

type dedupService struct {
	embeddings pgrepo.EmbeddingRepository
	threshold  float64
	log        *logrus.Logger
}

// NewDedupService builds the detector; threshold <= 0 selects the default.
func NewDedupService(embeddings pgrepo.EmbeddingRepository, threshold float64, log *logrus.Logger) DedupService {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &dedupService{embeddings: embeddings, threshold: threshold, log: log}
}

func (s *dedupService) Check(ctx context.Context, embedding []float32) *DuplicateMatch {
	if len(embedding) == 0 {
		return nil
	}

	cand, err := s.embeddings.NearestNeighbor(ctx, pgvector.NewVector(embedding))
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			s.log.WithError(err).Warn("duplicate check failed, treating offer as new")
		}
		return nil
	}

	// >= so a match exactly at the threshold counts as duplicate.
	if cand.Similarity >= s.threshold {
		return &DuplicateMatch{
			OfferID:    cand.OfferID,
			Similarity: cand.Similarity,
			Title:      cand.Title,
		}
	}
	return nil
}
