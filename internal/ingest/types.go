// Package ingest defines the boundary records exchanged with the scraping
// and NLP collaborators, and the text cleanup applied before persistence.
package ingest

import "github.com/google/uuid"

// RawOffer is the normalized record produced by a scraping adapter.
type RawOffer struct {
	ExternalID         string `json:"external_id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	CompanyName        string `json:"company_name"`
	ContractType       string `json:"contract_type"`
	SalaryText         string `json:"salary_text"`
	LocationCity       string `json:"location_city"`
	LocationPostalCode string `json:"location_postal_code"`
	LocationInsee      string `json:"location_insee,omitempty"`
	PublishedDate      string `json:"published_date"` // ISO-8601, may be empty
	URL                string `json:"url"`
	Source             string `json:"source"`
	JobRomeCode        string `json:"job_rome_code,omitempty"`
	JobRomeLabel       string `json:"job_rome_label,omitempty"`
}

// NLPResult carries the extractor outputs for one offer. Everything is
// best-effort; a missing embedding simply skips duplicate detection.
type NLPResult struct {
	SkillsTech []string `json:"skills_tech"`
	SkillsSoft []string `json:"skills_soft"`

	EmbeddingVector []float32 `json:"embedding_vector"`
	EmbeddingModel  string    `json:"embedding_model"`

	DescriptionCleaned string `json:"description_cleaned"`

	ProfileCategory   string `json:"profile_category"`
	ProfileConfidence *int   `json:"profile_confidence"`
	ProfileScore      int    `json:"profile_score"`

	EducationLevel *int    `json:"education_level"`
	EducationType  *string `json:"education_type"`

	RemotePossible   bool `json:"remote_possible"`
	RemoteDays       *int `json:"remote_days"`
	RemotePercentage *int `json:"remote_percentage"`

	TopicID         *int     `json:"topic_id"`
	TopicLabel      *string  `json:"topic_label"`
	TopicConfidence *float64 `json:"topic_confidence"`

	ExperienceMin *int `json:"experience_min"`
	ExperienceMax *int `json:"experience_max"`
}

// Item pairs one scraped offer with its NLP outputs, the unit the batch
// driver iterates over.
type Item struct {
	Raw RawOffer  `json:"raw"`
	NLP NLPResult `json:"nlp"`
}

type RejectReason string

const (
	ReasonDuplicate RejectReason = "duplicate"
	ReasonNoCommune RejectReason = "no_commune"
)

// Result is what the API layer reports back to an operator. Duplicate and
// unresolved-commune rejections are distinguished so "genuinely a repeat"
// never looks like "our geography data is incomplete".
type Result struct {
	Success   bool         `json:"success"`
	Duplicate bool         `json:"duplicate"`
	Message   string       `json:"message,omitempty"`
	Reason    RejectReason `json:"reason,omitempty"`

	OfferID int64 `json:"offer_id,omitempty"`

	ExistingOfferID int64   `json:"existing_offer_id,omitempty"`
	Similarity      float64 `json:"similarity,omitempty"`
	ExistingTitle   string  `json:"existing_title,omitempty"`
}

// BatchReport aggregates one sequential batch run.
type BatchReport struct {
	RunID               uuid.UUID `json:"run_id"`
	Total               int       `json:"total"`
	Inserted            int       `json:"inserted"`
	Duplicates          int       `json:"duplicates"`
	Skipped             int       `json:"skipped"`
	Errors              int       `json:"errors"`
	UnresolvedLocations []string  `json:"unresolved_locations,omitempty"`
}
