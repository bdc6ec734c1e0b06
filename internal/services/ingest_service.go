package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-data/atlas/internal/ingest"
	"github.com/atlas-data/atlas/internal/models"
	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// TxRunner runs fn inside one unit of work; any error rolls it back.
type TxRunner interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// IngestService turns one scraped offer plus its NLP outputs into persisted
// rows, or a clean rejection. Duplicate detection runs before any dimension
// resolution; everything after it happens inside a single transaction.
type IngestService interface {
	Save(ctx context.Context, item ingest.Item) ingest.Result
	SaveBatch(ctx context.Context, source string, items []ingest.Item) ingest.BatchReport
}

type ingestService struct {
	dedup      DedupService
	geo        GeoService
	tx         TxRunner
	dims       pgrepo.DimensionRepository
	offers     pgrepo.OfferRepository
	skills     pgrepo.SkillRepository
	embeddings pgrepo.EmbeddingRepository
	runs       pgrepo.IngestRunRepository
	log        *logrus.Logger
}

func NewIngestService(
	dedup DedupService,
	geo GeoService,
	tx TxRunner,
	dims pgrepo.DimensionRepository,
	offers pgrepo.OfferRepository,
	skills pgrepo.SkillRepository,
	embeddings pgrepo.EmbeddingRepository,
	runs pgrepo.IngestRunRepository,
	log *logrus.Logger,
) IngestService {
	return &ingestService{
		dedup:      dedup,
		geo:        geo,
		tx:         tx,
		dims:       dims,
		offers:     offers,
		skills:     skills,
		embeddings: embeddings,
		runs:       runs,
		log:        log,
	}
}

// errNoCommune aborts the transaction when the location cannot be resolved;
// the offer is skipped rather than stored with a missing geography key.
var errNoCommune = errors.New("commune not resolved")

func (s *ingestService) Save(ctx context.Context, item ingest.Item) ingest.Result {
	raw, nlp := item.Raw, item.NLP

	if raw.ExternalID == "" {
		return ingest.Result{Success: false, Message: "external_id is required"}
	}

	// Duplicate check first: a rejected offer must cost no dimension work.
	if m := s.dedup.Check(ctx, nlp.EmbeddingVector); m != nil {
		s.log.WithFields(logrus.Fields{
			"external_id":       raw.ExternalID,
			"existing_offer_id": m.OfferID,
			"similarity":        m.Similarity,
		}).Warn("near-duplicate offer rejected")
		return ingest.Result{
			Success:         false,
			Duplicate:       true,
			Reason:          ingest.ReasonDuplicate,
			Message:         fmt.Sprintf("offer already stored (similarity: %.2f%%)", m.Similarity*100),
			ExistingOfferID: m.OfferID,
			Similarity:      m.Similarity,
			ExistingTitle:   m.Title,
		}
	}

	var (
		offerID    int64
		unresolved string
	)

	err := s.tx.Do(ctx, func(ctx context.Context) error {
		sourceName := raw.Source
		if sourceName == "" {
			sourceName = "unknown"
		}
		sourceID, err := s.dims.GetOrCreateSource(ctx, sourceName)
		if err != nil {
			return err
		}

		pubDate := ingest.ParsePublishedDate(raw.PublishedDate)
		var dateID *int64
		if pubDate != nil {
			id, err := s.dims.GetOrCreateDate(ctx, *pubDate)
			if err != nil {
				return err
			}
			dateID = &id
		}

		communeID, ok := s.geo.FindCommuneID(ctx, raw.LocationCity, raw.LocationPostalCode)
		if !ok {
			unresolved = raw.LocationCity
			if raw.LocationPostalCode != "" {
				unresolved = fmt.Sprintf("%s (%s)", raw.LocationCity, raw.LocationPostalCode)
			}
			return errNoCommune
		}

		catName, catCode := raw.JobRomeLabel, raw.JobRomeCode
		if catName == "" || catCode == "" {
			catName, catCode = ingest.JobCategoryFromTitle(raw.Title)
		}
		catID, err := s.dims.GetOrCreateJobCategory(ctx, catName, catCode)
		if err != nil {
			return err
		}

		salaryText := raw.SalaryText
		if salaryText == "" {
			salaryText = ingest.ExtractSalaryFromDescription(raw.Description)
		}
		salaryMin, salaryMax := ingest.ParseSalary(salaryText)

		descCleaned := nlp.DescriptionCleaned
		if descCleaned == "" {
			descCleaned = ingest.CleanDescription(raw.Description)
		}

		allSkills := append(append([]string{}, nlp.SkillsTech...), nlp.SkillsSoft...)

		now := time.Now().UTC()
		offer := models.Offer{
			SourceID:           sourceID,
			DateID:             dateID,
			CommuneID:          communeID,
			JobCategoryID:      &catID,
			ExternalID:         raw.ExternalID,
			Title:              raw.Title,
			Description:        raw.Description,
			DescriptionCleaned: descCleaned,
			URL:                raw.URL,
			CompanyName:        raw.CompanyName,
			ContractType:       raw.ContractType,
			SalaryMin:          salaryMin,
			SalaryMax:          salaryMax,
			PublishedDate:      pubDate,
			CollectedDate:      now,
			ExperienceYears:    ingest.ExperienceYears(nlp.ExperienceMin, nlp.ExperienceMax),
			ProfileCategory:    nlp.ProfileCategory,
			ProfileConfidence:  nlp.ProfileConfidence,
			ProfileScore:       nlp.ProfileScore,
			EducationLevel:     nlp.EducationLevel,
			EducationType:      nlp.EducationType,
			RemotePossible:     nlp.RemotePossible,
			RemoteDays:         nlp.RemoteDays,
			RemotePercentage:   nlp.RemotePercentage,
			TopicID:            nlp.TopicID,
			TopicLabel:         nlp.TopicLabel,
			TopicConfidence:    nlp.TopicConfidence,
			SkillsExtracted:    allSkills,
			Processed:          true,
			ProcessingDate:     &now,
		}

		offerID, err = s.offers.Upsert(ctx, &offer)
		if err != nil {
			return err
		}

		if err := s.skills.EnsureSkills(ctx, nlp.SkillsTech, models.SkillCategoryTechnical); err != nil {
			return err
		}
		if err := s.skills.EnsureSkills(ctx, nlp.SkillsSoft, models.SkillCategorySoft); err != nil {
			return err
		}
		for _, skill := range allSkills {
			if err := s.skills.LinkOffer(ctx, offerID, skill); err != nil {
				return err
			}
		}

		if len(nlp.EmbeddingVector) > 0 {
			emb := models.OfferEmbedding{
				OfferID:   offerID,
				Embedding: pgvector.NewVector(nlp.EmbeddingVector),
				ModelName: nlp.EmbeddingModel,
				CreatedAt: now,
			}
			if err := s.embeddings.Upsert(ctx, &emb); err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, errNoCommune) {
		return ingest.Result{
			Success: false,
			Reason:  ingest.ReasonNoCommune,
			Message: "commune not found for location: " + unresolved,
		}
	}
	if err != nil {
		s.log.WithError(err).WithField("external_id", raw.ExternalID).Error("offer ingestion failed")
		return ingest.Result{Success: false, Message: err.Error()}
	}

	s.log.WithFields(logrus.Fields{"external_id": raw.ExternalID, "offer_id": offerID}).
		Info("offer saved")
	return ingest.Result{Success: true, OfferID: offerID}
}

// SaveBatch ingests items sequentially. Cancellation is honored between
// offers, never mid-offer, so no partial orchestration state survives.
func (s *ingestService) SaveBatch(ctx context.Context, source string, items []ingest.Item) ingest.BatchReport {
	report := ingest.BatchReport{RunID: uuid.New(), Total: len(items)}
	started := time.Now().UTC()

	seenUnresolved := make(map[string]struct{})

	for _, item := range items {
		select {
		case <-ctx.Done():
			s.log.WithField("run_id", report.RunID).Warn("batch interrupted")
			return s.finishRun(context.WithoutCancel(ctx), source, started, report)
		default:
		}

		res := s.Save(ctx, item)
		switch {
		case res.Success:
			report.Inserted++
		case res.Duplicate:
			report.Duplicates++
		case res.Reason == ingest.ReasonNoCommune:
			report.Skipped++
			loc := item.Raw.LocationCity
			if _, dup := seenUnresolved[loc]; !dup && loc != "" {
				seenUnresolved[loc] = struct{}{}
				report.UnresolvedLocations = append(report.UnresolvedLocations, loc)
			}
		default:
			report.Errors++
		}
	}

	return s.finishRun(ctx, source, started, report)
}

func (s *ingestService) finishRun(ctx context.Context, source string, started time.Time, report ingest.BatchReport) ingest.BatchReport {
	stats, err := json.Marshal(report)
	if err == nil {
		run := models.IngestRun{
			RunID:      report.RunID.String(),
			Source:     source,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
			Stats:      datatypes.JSON(stats),
		}
		if err := s.runs.Insert(ctx, &run); err != nil {
			s.log.WithError(err).Warn("failed to persist ingest run")
		}
	}

	s.log.WithFields(logrus.Fields{
		"run_id":     report.RunID,
		"total":      report.Total,
		"inserted":   report.Inserted,
		"duplicates": report.Duplicates,
		"skipped":    report.Skipped,
		"errors":     report.Errors,
	}).Info("batch finished")
	return report
}
