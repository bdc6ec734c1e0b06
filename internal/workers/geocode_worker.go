// Package workers holds the offline background jobs: slow, rate-limited
// work that must never run on the ingestion path.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	pgrepo "github.com/atlas-data/atlas/internal/repositories/postgres"
)

// DefaultGeocodeURL is the French national address API.
const DefaultGeocodeURL = "https://api-adresse.data.gouv.fr/search"

// GeocodeWorker back-fills latitude and longitude for communes the
// referential shipped without coordinates. The public API allows one
// request per second, so a full pass over the referential takes hours;
// run it detached and let context cancellation stop it between communes.
type GeocodeWorker struct {
	Communes pgrepo.CommuneRepository
	Client   *http.Client
	Logger   *logrus.Logger

	BaseURL   string
	BatchSize int
	// Interval is the pause between two geocoding requests.
	Interval time.Duration
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

func (w *GeocodeWorker) Run(ctx context.Context) error {
	if w.Communes == nil {
		return errors.New("GeocodeWorker missing dependency: Communes must be set")
	}
	if w.Client == nil {
		w.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if w.Logger == nil {
		w.Logger = logrus.New()
	}
	if w.BaseURL == "" {
		w.BaseURL = DefaultGeocodeURL
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.Interval <= 0 {
		w.Interval = 1100 * time.Millisecond
	}

	var updated, failed int
	for {
		batch, err := w.Communes.MissingCoordinates(ctx, w.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		progressed := false
		for _, c := range batch {
			select {
			case <-ctx.Done():
				w.logSummary(updated, failed)
				return ctx.Err()
			default:
			}

			lat, lon, ok := w.geocode(ctx, c.NomCommune, c.CodePostal)
			if ok {
				if err := w.Communes.UpdateCoordinates(ctx, c.CommuneID, lat, lon); err != nil {
					w.Logger.WithError(err).WithField("commune_id", c.CommuneID).
						Warn("failed to store coordinates")
					failed++
				} else {
					updated++
					progressed = true
				}
			} else {
				failed++
			}

			select {
			case <-ctx.Done():
				w.logSummary(updated, failed)
				return ctx.Err()
			case <-time.After(w.Interval):
			}
		}

		// a batch where nothing could be geocoded would loop forever on
		// the same rows
		if !progressed {
			break
		}
	}

	w.logSummary(updated, failed)
	return nil
}

// geocode asks for the commune with its postal code first, then by name
// alone, matching how ambiguous commune names resolve best.
func (w *GeocodeWorker) geocode(ctx context.Context, name, postal string) (lat, lon float64, ok bool) {
	if lat, lon, ok = w.query(ctx, name, postal); ok {
		return lat, lon, true
	}
	return w.query(ctx, name, "")
}

func (w *GeocodeWorker) query(ctx context.Context, name, postal string) (float64, float64, bool) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("type", "municipality")
	q.Set("limit", "1")
	if postal != "" {
		q.Set("postcode", postal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, false
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		w.Logger.WithError(err).WithField("commune", name).Warn("geocoding request failed")
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		w.Logger.WithFields(logrus.Fields{"commune": name, "status": resp.StatusCode}).
			Warn("geocoding request rejected")
		io.Copy(io.Discard, resp.Body)
		return 0, 0, false
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, false
	}
	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) < 2 {
		return 0, 0, false
	}
	coords := body.Features[0].Geometry.Coordinates
	return coords[1], coords[0], true
}

func (w *GeocodeWorker) logSummary(updated, failed int) {
	w.Logger.WithFields(logrus.Fields{
		"updated": updated,
		"failed":  failed,
	}).Info("geocoding pass finished")
}
