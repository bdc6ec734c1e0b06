package services

import (
	"context"
	"errors"
	"testing"

	"github.com/atlas-data/atlas/internal/models"
	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/utils"
	"github.com/pgvector/pgvector-go"
)

type fakeEmbeddingRepo struct {
	cand    *pgrepo.DuplicateCandidate
	err     error
	queries int
	upserts []models.OfferEmbedding
}

func (f *fakeEmbeddingRepo) NearestNeighbor(context.Context, pgvector.Vector) (*pgrepo.DuplicateCandidate, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	if f.cand == nil {
		return nil, utils.ErrNotFound
	}
	return f.cand, nil
}

func (f *fakeEmbeddingRepo) Upsert(_ context.Context, e *models.OfferEmbedding) error {
	f.upserts = append(f.upserts, *e)
	return nil
}

func TestDedupCheckThreshold(t *testing.T) {
	ctx := context.Background()
	probe := []float32{0.1, 0.2, 0.3}

	tests := []struct {
		name       string
		similarity float64
		duplicate  bool
	}{
		{"identical vector", 1.0, true},
		{"above threshold", 0.97, true},
		{"exactly at threshold", 0.95, true},
		{"just below threshold", 0.949999, false},
		{"clearly distinct", 0.40, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeEmbeddingRepo{cand: &pgrepo.DuplicateCandidate{
				OfferID:    17,
				Similarity: tt.similarity,
				Title:      "Data Engineer H/F",
			}}
			svc := NewDedupService(repo, 0, quietLogger())

			m := svc.Check(ctx, probe)
			if tt.duplicate {
				if m == nil {
					t.Fatalf("similarity %v: want a duplicate match, got nil", tt.similarity)
				}
				if m.OfferID != 17 || m.Title != "Data Engineer H/F" {
					t.Fatalf("match carries wrong identity: %+v", m)
				}
			} else if m != nil {
				t.Fatalf("similarity %v: got match %+v, want nil", tt.similarity, m)
			}
		})
	}
}

func TestDedupCheckCustomThreshold(t *testing.T) {
	ctx := context.Background()
	repo := &fakeEmbeddingRepo{cand: &pgrepo.DuplicateCandidate{OfferID: 1, Similarity: 0.90}}

	strict := NewDedupService(repo, 0.99, quietLogger())
	if m := strict.Check(ctx, []float32{1}); m != nil {
		t.Fatalf("0.90 against 0.99 cutoff: got %+v, want nil", m)
	}

	loose := NewDedupService(repo, 0.85, quietLogger())
	if m := loose.Check(ctx, []float32{1}); m == nil {
		t.Fatal("0.90 against 0.85 cutoff: want a match")
	}
}

func TestDedupCheckEmptyVector(t *testing.T) {
	repo := &fakeEmbeddingRepo{cand: &pgrepo.DuplicateCandidate{OfferID: 1, Similarity: 1.0}}
	svc := NewDedupService(repo, 0, quietLogger())

	if m := svc.Check(context.Background(), nil); m != nil {
		t.Fatalf("nil vector: got %+v, want nil", m)
	}
	if repo.queries != 0 {
		t.Fatalf("nil vector still ran %d similarity queries", repo.queries)
	}
}

func TestDedupCheckEmptyTable(t *testing.T) {
	svc := NewDedupService(&fakeEmbeddingRepo{}, 0, quietLogger())
	if m := svc.Check(context.Background(), []float32{0.5}); m != nil {
		t.Fatalf("empty table: got %+v, want nil", m)
	}
}

func TestDedupCheckFailsOpen(t *testing.T) {
	repo := &fakeEmbeddingRepo{err: errors.New("connection reset")}
	svc := NewDedupService(repo, 0, quietLogger())

	if m := svc.Check(context.Background(), []float32{0.5}); m != nil {
		t.Fatalf("query failure: got %+v, want nil (offer treated as new)", m)
	}
}
