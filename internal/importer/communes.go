// Package importer loads the French commune referential from the official
// La Poste postal-code dataset and replaces ref_communes_france with it.
// This is the offline path; the ingestion services only ever read the
// table it produces.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/atlas-data/atlas/internal/models"
	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
	"github.com/atlas-data/atlas/internal/utils"
	"github.com/sirupsen/logrus"
)

// LaPosteCSVURL is the raw export of the base officielle des codes postaux.
const LaPosteCSVURL = "https://datanova.laposte.fr/data-fair/api/v1/datasets/laposte-hexasmal/raw"

type Loader struct {
	communes pgrepo.CommuneRepository
	client   *http.Client
	log      *logrus.Logger
}

func NewLoader(communes pgrepo.CommuneRepository, client *http.Client, log *logrus.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{communes: communes, client: client, log: log}
}

// Download fetches the La Poste CSV. The caller owns the returned body.
func (l *Loader) Download(ctx context.Context) (io.ReadCloser, error) {
	const op = "Loader.Download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, LaPosteCSVURL, nil)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to download referential", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, utils.E(utils.CodeUnavailable, op,
			fmt.Sprintf("referential download returned %d", resp.StatusCode), nil)
	}
	return resp.Body, nil
}

// header column candidates, in priority order; the dataset has shipped
// under several column namings over the years
var (
	inseeColumns  = []string{"code_commune_insee", "code_insee"}
	postalColumns = []string{"code_postal"}
	nameColumns   = []string{"nom_commune", "nom_de_la_commune", "libelle_acheminement"}
	coordColumns  = []string{"coordonnees_gps", "_geopoint"}
)

// Parse reads the semicolon-separated referential and returns one row per
// (code_insee, code_postal) pair, first occurrence kept. Rows without an
// INSEE code, a five-digit postal code or a name are skipped.
func Parse(r io.Reader) ([]models.Commune, error) {
	const op = "importer.Parse"

	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read CSV header", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}

	inseeIdx, ok := pick(cols, inseeColumns)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("no INSEE code column among %v", header), nil)
	}
	postalIdx, ok := pick(cols, postalColumns)
	if !ok {
		return nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("no postal code column among %v", header), nil)
	}
	nameIdx, _ := pick(cols, nameColumns)
	coordIdx, hasCoords := pick(cols, coordColumns)

	var communes []models.Commune
	seen := make(map[string]struct{})

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "malformed CSV record", err)
		}

		codeInsee := strings.TrimSpace(field(record, inseeIdx))
		codePostal := strings.TrimSpace(field(record, postalIdx))
		if codeInsee == "" || codePostal == "" {
			continue
		}
		key := codeInsee + "_" + codePostal
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		codeDept, ok := deptFromPostal(codePostal)
		if !ok {
			continue
		}

		nom := strings.TrimSpace(field(record, nameIdx))
		if nom == "" {
			continue
		}

		var lat, lon *float64
		if hasCoords {
			lat, lon = parseCoordinates(field(record, coordIdx))
		}

		codeRegion := deptToRegion[codeDept]
		c := models.Commune{
			CodeInsee:       codeInsee,
			CodePostal:      codePostal,
			CodeDepartement: codeDept,
			CodeRegion:      codeRegion,
			NomCommune:      nom,
			NomDepartement:  nameOr(departementNames, codeDept),
			NomRegion:       nameOr(regionNames, codeRegion),
			Latitude:        lat,
			Longitude:       lon,
		}
		communes = append(communes, c)
	}
	return communes, nil
}

// Import replaces the commune table. Several postal codes can share one
// INSEE code (large communes); only the first row per code_insee is kept,
// matching the unique constraint on the table.
func (l *Loader) Import(ctx context.Context, communes []models.Commune) (int64, error) {
	unique := dedupeByInsee(communes)
	if removed := len(communes) - len(unique); removed > 0 {
		l.log.WithField("removed", removed).Info("dropped duplicate INSEE codes")
	}
	if len(unique) == 0 {
		return 0, utils.E(utils.CodeInvalidArgument, "Loader.Import", "no communes to load", nil)
	}

	n, err := l.communes.ReplaceAll(ctx, unique)
	if err != nil {
		return 0, err
	}

	if stats, err := l.communes.Stats(ctx); err == nil {
		l.log.WithFields(logrus.Fields{
			"communes":     stats.TotalCommunes,
			"departements": stats.Departements,
			"regions":      stats.Regions,
			"with_gps":     stats.WithGPS,
		}).Info("commune referential loaded")
	}
	return n, nil
}

func dedupeByInsee(communes []models.Commune) []models.Commune {
	seen := make(map[string]struct{}, len(communes))
	out := communes[:0:0]
	for _, c := range communes {
		if _, dup := seen[c.CodeInsee]; dup {
			continue
		}
		seen[c.CodeInsee] = struct{}{}
		out = append(out, c)
	}
	return out
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ReplaceAll(name, "#", "")
}

func pick(cols map[string]int, candidates []string) (int, bool) {
	for _, c := range candidates {
		if i, ok := cols[c]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// parseCoordinates splits a "latitude, longitude" pair; anything malformed
// leaves the commune without coordinates for the geocoding worker.
func parseCoordinates(s string) (*float64, *float64) {
	s = strings.TrimSpace(s)
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return nil, nil
	}
	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, nil
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil, nil
	}
	return &latF, &lonF
}

func nameOr(m map[string]string, code string) string {
	if n, ok := m[code]; ok {
		return n
	}
	return "Inconnu"
}
