package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/atlas-data/atlas/internal/ingest"
	"github.com/atlas-data/atlas/internal/models"
)

type fakeDedup struct {
	match  *DuplicateMatch
	checks int
}

func (f *fakeDedup) Check(context.Context, []float32) *DuplicateMatch {
	f.checks++
	return f.match
}

type fakeGeo struct {
	// "city|postal" -> commune id; absent keys are unresolved
	known   map[string]int64
	lookups int
}

func (f *fakeGeo) FindCommuneID(_ context.Context, city, postal string) (int64, bool) {
	f.lookups++
	id, ok := f.known[city+"|"+postal]
	return id, ok
}

func (f *fakeGeo) CommuneInfo(_ context.Context, id int64) (*models.Commune, error) {
	return &models.Commune{CommuneID: id}, nil
}

func (f *fakeGeo) Stats(context.Context) (*ReferenceStats, error) {
	return &ReferenceStats{}, nil
}

type fakeTx struct {
	entered    int
	rolledBack int
}

func (f *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.entered++
	if err := fn(ctx); err != nil {
		f.rolledBack++
		return err
	}
	return nil
}

type fakeDims struct {
	sources    map[string]int64
	dates      map[string]int64
	categories map[string]int64
	nextID     int64
	calls      int
}

func newFakeDims() *fakeDims {
	return &fakeDims{
		sources:    make(map[string]int64),
		dates:      make(map[string]int64),
		categories: make(map[string]int64),
	}
}

func (f *fakeDims) getOrCreate(m map[string]int64, key string) (int64, error) {
	f.calls++
	if id, ok := m[key]; ok {
		return id, nil
	}
	f.nextID++
	m[key] = f.nextID
	return f.nextID, nil
}

func (f *fakeDims) GetOrCreateSource(_ context.Context, name string) (int64, error) {
	return f.getOrCreate(f.sources, name)
}

func (f *fakeDims) GetOrCreateDate(_ context.Context, d time.Time) (int64, error) {
	return f.getOrCreate(f.dates, d.Format("2006-01-02"))
}

func (f *fakeDims) GetOrCreateJobCategory(_ context.Context, _, code string) (int64, error) {
	return f.getOrCreate(f.categories, code)
}

type fakeOffers struct {
	byExternal map[string]int64
	nextID     int64
	upserts    int
	last       *models.Offer
}

func newFakeOffers() *fakeOffers {
	return &fakeOffers{byExternal: make(map[string]int64)}
}

func (f *fakeOffers) Upsert(_ context.Context, o *models.Offer) (int64, error) {
	f.upserts++
	cp := *o
	f.last = &cp
	if id, ok := f.byExternal[o.ExternalID]; ok {
		return id, nil
	}
	f.nextID++
	f.byExternal[o.ExternalID] = f.nextID
	return f.nextID, nil
}

type fakeSkills struct {
	ensured map[string]string         // name -> category of first sighting
	links   map[int64]map[string]bool // offer id -> skill names
}

func newFakeSkills() *fakeSkills {
	return &fakeSkills{ensured: make(map[string]string), links: make(map[int64]map[string]bool)}
}

func (f *fakeSkills) EnsureSkills(_ context.Context, names []string, category string) error {
	for _, n := range names {
		if _, ok := f.ensured[n]; !ok {
			f.ensured[n] = category
		}
	}
	return nil
}

func (f *fakeSkills) LinkOffer(_ context.Context, offerID int64, skillName string) error {
	if f.links[offerID] == nil {
		f.links[offerID] = make(map[string]bool)
	}
	f.links[offerID][skillName] = true
	return nil
}

type fakeRuns struct {
	runs []models.IngestRun
}

func (f *fakeRuns) Insert(_ context.Context, run *models.IngestRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

type ingestFixture struct {
	svc        IngestService
	dedup      *fakeDedup
	geo        *fakeGeo
	tx         *fakeTx
	dims       *fakeDims
	offers     *fakeOffers
	skills     *fakeSkills
	embeddings *fakeEmbeddingRepo
	runs       *fakeRuns
}

func newIngestFixture() *ingestFixture {
	fx := &ingestFixture{
		dedup:      &fakeDedup{},
		geo:        &fakeGeo{known: map[string]int64{"Paris|75001": 100, "Lyon|": 200}},
		tx:         &fakeTx{},
		dims:       newFakeDims(),
		offers:     newFakeOffers(),
		skills:     newFakeSkills(),
		embeddings: &fakeEmbeddingRepo{},
		runs:       &fakeRuns{},
	}
	fx.svc = NewIngestService(fx.dedup, fx.geo, fx.tx, fx.dims, fx.offers,
		fx.skills, fx.embeddings, fx.runs, quietLogger())
	return fx
}

func parisItem(externalID string) ingest.Item {
	return ingest.Item{
		Raw: ingest.RawOffer{
			ExternalID:         externalID,
			Title:              "Data Engineer H/F",
			Description:        "<p>Pipeline &amp; entrepôt</p>",
			CompanyName:        "ACME",
			ContractType:       "CDI",
			SalaryText:         "45K-55K",
			LocationCity:       "Paris",
			LocationPostalCode: "75001",
			PublishedDate:      "2026-08-20",
			URL:                "https://example.com/offres/1",
			Source:             "wttj",
		},
		NLP: ingest.NLPResult{
			SkillsTech:      []string{"python", "sql"},
			SkillsSoft:      []string{"communication"},
			EmbeddingVector: []float32{0.1, 0.2},
			EmbeddingModel:  "all-mpnet-base-v2",
		},
	}
}

func TestSaveSuccess(t *testing.T) {
	fx := newIngestFixture()

	res := fx.svc.Save(context.Background(), parisItem("wttj-1"))
	if !res.Success {
		t.Fatalf("save failed: %+v", res)
	}
	if res.OfferID == 0 {
		t.Fatal("success result carries no offer id")
	}

	o := fx.offers.last
	if o == nil {
		t.Fatal("no offer written")
	}
	if o.CommuneID != 100 {
		t.Fatalf("commune id = %d, want 100", o.CommuneID)
	}
	if o.SalaryMin == nil || *o.SalaryMin != 45000 || o.SalaryMax == nil || *o.SalaryMax != 55000 {
		t.Fatalf("salary = %v / %v, want 45000 / 55000", o.SalaryMin, o.SalaryMax)
	}
	if strings.Contains(o.DescriptionCleaned, "<") || strings.Contains(o.DescriptionCleaned, "&amp;") {
		t.Fatalf("description not cleaned: %q", o.DescriptionCleaned)
	}
	if !o.Processed || o.ProcessingDate == nil {
		t.Fatal("offer not marked processed")
	}

	if got := fx.skills.ensured["python"]; got != models.SkillCategoryTechnical {
		t.Fatalf("python categorized as %q", got)
	}
	if got := fx.skills.ensured["communication"]; got != models.SkillCategorySoft {
		t.Fatalf("communication categorized as %q", got)
	}
	if linked := fx.skills.links[res.OfferID]; len(linked) != 3 {
		t.Fatalf("linked %d skills, want 3", len(linked))
	}

	if len(fx.embeddings.upserts) != 1 {
		t.Fatalf("stored %d embeddings, want 1", len(fx.embeddings.upserts))
	}
	if fx.embeddings.upserts[0].OfferID != res.OfferID {
		t.Fatal("embedding row points at the wrong offer")
	}
}

func TestSaveDuplicateCostsNoDimensionWork(t *testing.T) {
	fx := newIngestFixture()
	fx.dedup.match = &DuplicateMatch{OfferID: 42, Similarity: 0.97, Title: "Data Engineer"}

	res := fx.svc.Save(context.Background(), parisItem("wttj-dup"))
	if res.Success || !res.Duplicate || res.Reason != ingest.ReasonDuplicate {
		t.Fatalf("got %+v, want a duplicate rejection", res)
	}
	if res.ExistingOfferID != 42 || res.Similarity != 0.97 {
		t.Fatalf("rejection does not identify the stored offer: %+v", res)
	}

	if fx.tx.entered != 0 {
		t.Fatal("duplicate rejection opened a transaction")
	}
	if fx.dims.calls != 0 {
		t.Fatalf("duplicate rejection resolved %d dimensions", fx.dims.calls)
	}
	if fx.offers.upserts != 0 {
		t.Fatal("duplicate rejection wrote an offer")
	}
}

func TestSaveUnresolvedCommuneRejects(t *testing.T) {
	fx := newIngestFixture()

	item := parisItem("wttj-2")
	item.Raw.LocationCity = "Ville Inexistante"
	item.Raw.LocationPostalCode = "99999"

	res := fx.svc.Save(context.Background(), item)
	if res.Success || res.Duplicate {
		t.Fatalf("got %+v, want a non-duplicate rejection", res)
	}
	if res.Reason != ingest.ReasonNoCommune {
		t.Fatalf("reason = %q, want %q", res.Reason, ingest.ReasonNoCommune)
	}
	if !strings.Contains(res.Message, "Ville Inexistante") || !strings.Contains(res.Message, "99999") {
		t.Fatalf("message does not name the location: %q", res.Message)
	}

	if fx.tx.rolledBack != 1 {
		t.Fatal("rejection did not roll the transaction back")
	}
	if fx.offers.upserts != 0 || len(fx.skills.ensured) != 0 || len(fx.embeddings.upserts) != 0 {
		t.Fatal("rejected offer left rows behind")
	}
}

func TestSaveMissingExternalID(t *testing.T) {
	fx := newIngestFixture()

	item := parisItem("")
	res := fx.svc.Save(context.Background(), item)
	if res.Success || res.Duplicate {
		t.Fatalf("got %+v, want a plain failure", res)
	}
	if fx.dedup.checks != 0 || fx.tx.entered != 0 {
		t.Fatal("invalid item still reached the pipeline")
	}
}

func TestSaveSameExternalIDUpdatesNotDuplicates(t *testing.T) {
	fx := newIngestFixture()
	ctx := context.Background()

	first := fx.svc.Save(ctx, parisItem("wttj-3"))
	second := fx.svc.Save(ctx, parisItem("wttj-3"))

	if !first.Success || !second.Success {
		t.Fatalf("saves failed: %+v / %+v", first, second)
	}
	if first.OfferID != second.OfferID {
		t.Fatalf("same external id produced two offers: %d and %d", first.OfferID, second.OfferID)
	}
	if len(fx.offers.byExternal) != 1 {
		t.Fatalf("%d offer rows, want 1", len(fx.offers.byExternal))
	}
	if fx.offers.upserts != 2 {
		t.Fatalf("%d upserts, want 2", fx.offers.upserts)
	}
	// dimensions resolved to the same rows both times
	if len(fx.dims.sources) != 1 || len(fx.dims.dates) != 1 || len(fx.dims.categories) != 1 {
		t.Fatalf("dimension rows: %d sources, %d dates, %d categories; want 1 each",
			len(fx.dims.sources), len(fx.dims.dates), len(fx.dims.categories))
	}
}

func TestSaveWithoutEmbeddingSkipsVectorStore(t *testing.T) {
	fx := newIngestFixture()

	item := parisItem("wttj-4")
	item.NLP.EmbeddingVector = nil

	res := fx.svc.Save(context.Background(), item)
	if !res.Success {
		t.Fatalf("save failed: %+v", res)
	}
	if len(fx.embeddings.upserts) != 0 {
		t.Fatal("embedding row written for an offer without a vector")
	}
}

func TestSaveBatchReport(t *testing.T) {
	fx := newIngestFixture()

	missing := parisItem("wttj-m1")
	missing.Raw.LocationCity = "Atlantide"
	missing.Raw.LocationPostalCode = ""
	missingAgain := parisItem("wttj-m2")
	missingAgain.Raw.LocationCity = "Atlantide"
	missingAgain.Raw.LocationPostalCode = ""
	invalid := parisItem("")

	items := []ingest.Item{
		parisItem("wttj-b1"),
		parisItem("wttj-b2"),
		missing,
		missingAgain,
		invalid,
	}

	report := fx.svc.SaveBatch(context.Background(), "wttj", items)
	if report.Total != 5 || report.Inserted != 2 || report.Skipped != 2 || report.Errors != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.UnresolvedLocations) != 1 || report.UnresolvedLocations[0] != "Atlantide" {
		t.Fatalf("unresolved locations = %v, want [Atlantide]", report.UnresolvedLocations)
	}

	if len(fx.runs.runs) != 1 {
		t.Fatalf("%d run rows, want 1", len(fx.runs.runs))
	}
	run := fx.runs.runs[0]
	if run.Source != "wttj" || run.RunID != report.RunID.String() {
		t.Fatalf("run row = %+v", run)
	}
	var persisted ingest.BatchReport
	if err := json.Unmarshal(run.Stats, &persisted); err != nil {
		t.Fatalf("stats not valid JSON: %v", err)
	}
	if persisted.Inserted != report.Inserted || persisted.Skipped != report.Skipped {
		t.Fatalf("persisted stats %+v diverge from report %+v", persisted, report)
	}
}

func TestSaveBatchHonorsCancellation(t *testing.T) {
	fx := newIngestFixture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []ingest.Item{parisItem("wttj-c1"), parisItem("wttj-c2")}
	report := fx.svc.SaveBatch(ctx, "wttj", items)

	if report.Inserted != 0 {
		t.Fatalf("cancelled batch still inserted %d offers", report.Inserted)
	}
	// the interrupted run is still recorded
	if len(fx.runs.runs) != 1 {
		t.Fatalf("%d run rows, want 1", len(fx.runs.runs))
	}
}
