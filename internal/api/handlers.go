package api

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/Paulumo/System-Remaster-sub001/internal/cache"
	"github.com/Paulumo/System-Remaster-sub001/internal/dataset"
	"github.com/Paulumo/System-Remaster-sub001/internal/httputil"
	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
	"github.com/Paulumo/System-Remaster-sub001/internal/raster"
	"github.com/Paulumo/System-Remaster-sub001/internal/table"
)

// Default table grid steps.
const (
	defaultOATStep      = 5.0    // deg C
	defaultAltitudeStep = 1000.0 // ft
)

// loaded returns the current dataset or writes 503.
func loaded(w http.ResponseWriter, store *dataset.Store) *dataset.Loaded {
	ds := store.Get()
	if ds == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "no dataset loaded")
	}
	return ds
}

func badRequest(w http.ResponseWriter, err error) {
	httputil.WriteError(w, http.StatusBadRequest, err.Error())
}

// datasetVersion identifies a loaded dataset in cache keys.
func datasetVersion(ds *dataset.Loaded) string {
	return ds.Source + "@" + strconv.FormatInt(ds.LoadedAt.UnixNano(), 10)
}

// datasetHandler handles GET /api/v1/dataset.
func datasetHandler(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := loaded(w, store)
		if ds == nil {
			return
		}
		lo, hi := ds.Family.AltitudeSpan()
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"name":             ds.Dataset.Name,
			"aircraft":         ds.Dataset.Aircraft,
			"source":           ds.Source,
			"loaded_at":        ds.LoadedAt.UTC().Format(time.RFC3339),
			"oats":             ds.Family.OATs(),
			"altitude_span_ft": []float64{lo * perf.FeetPerThousand, hi * perf.FeetPerThousand},
			"wind_levels":      ds.Wind.Levels(),
			"weight_bands":     ds.Wind.BandWeights(),
		})
	}
}

// weightHandler handles GET /api/v1/weight?oat=&altitude_ft=&unit=.
func weightHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oat, err := requiredFloat(r, "oat")
		if err != nil {
			badRequest(w, err)
			return
		}
		altFt, err := requiredFloat(r, "altitude_ft")
		if err != nil {
			badRequest(w, err)
			return
		}
		unit, err := unitParam(r, deps.DefaultUnit)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, deps.Store)
		if ds == nil {
			return
		}

		res := ds.Family.WeightAt(oat, perf.FeetToChart(altFt))
		metrics.IncQueries("weight")
		if res.OutOfEnvelope() {
			metrics.IncOutOfEnvelope()
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"oat":             oat,
			"altitude_ft":     altFt,
			"result":          res,
			"exact":           res.Exact(),
			"out_of_envelope": res.OutOfEnvelope(),
			"weight_kg":       perf.ChartToKg(res.Weight),
			"weight":          unit.FromChart(res.Weight),
			"unit":            unit,
		})
	}
}

// creditHandler handles GET /api/v1/credit?wind=&weight_kg=&benefit=.
func creditHandler(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wind, err := requiredFloat(r, "wind")
		if err != nil {
			badRequest(w, err)
			return
		}
		weightKg, err := requiredFloat(r, "weight_kg")
		if err != nil {
			badRequest(w, err)
			return
		}
		benefit, err := floatOr(r, "benefit", 100)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, store)
		if ds == nil {
			return
		}

		credit := perf.CreditFor(wind, weightKg, benefit)
		tableCredit, clamped := ds.Wind.TableCredit(wind, perf.KgToChart(weightKg))
		metrics.IncQueries("credit")
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"wind":            wind,
			"weight_kg":       weightKg,
			"benefit":         benefit,
			"base_credit_kg":  perf.BaseCredit(wind),
			"credit_kg":       credit,
			"total_kg":        weightKg + credit,
			"table_credit_kg": tableCredit,
			"table_clamped":   clamped,
		})
	}
}

// curveHandler handles GET /api/v1/curve?oat=.
func curveHandler(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oat, err := requiredFloat(r, "oat")
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, store)
		if ds == nil {
			return
		}

		curve := ds.Family.CurveForTemperature(oat)
		metrics.IncQueries("curve")
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"oat":       oat,
			"clamped":   oat < ds.Family.MinOAT() || oat > ds.Family.MaxOAT(),
			"synthetic": !containsOAT(ds.Family.OATs(), curve.OAT),
			"curve":     curve,
		})
	}
}

func containsOAT(oats []float64, oat float64) bool {
	for _, o := range oats {
		if o == oat {
			return true
		}
	}
	return false
}

// intersectHandler handles GET /api/v1/intersect?oat=&probe=&axis=.
// probe and the returned crossings are in chart units: thousands of ft for
// altitude and hundreds of kg for weight.
func intersectHandler(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oat, err := requiredFloat(r, "oat")
		if err != nil {
			badRequest(w, err)
			return
		}
		probe, err := requiredFloat(r, "probe")
		if err != nil {
			badRequest(w, err)
			return
		}
		axis, err := probeAxisParam(r)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, store)
		if ds == nil {
			return
		}

		curve := ds.Family.CurveForTemperature(oat)
		crossings := perf.Intersect(curve, probe, axis)
		if crossings == nil {
			crossings = []float64{}
		}
		metrics.IncQueries("intersect")
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"oat":       oat,
			"probe":     probe,
			"axis":      axis.String(),
			"crossings": crossings,
		})
	}
}

// overlayHandler handles GET /api/v1/overlay and returns a JSON frame.
func overlayHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := overlayQuery(r, deps.DefaultUnit)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, deps.Store)
		if ds == nil {
			return
		}

		start := time.Now()
		frame := deps.Renderer.With(ds.Family, ds.Wind).Render(q)
		metrics.ObserveRender("json", time.Since(start))
		metrics.IncQueries("overlay")
		if frame.Result.OutOfEnvelope {
			metrics.IncOutOfEnvelope()
		}
		httputil.WriteJSON(w, http.StatusOK, frame)
	}
}

// overlayPNGHandler handles GET /api/v1/overlay.png. Encoded images are
// cached per dataset and query.
func overlayPNGHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := overlayQuery(r, deps.DefaultUnit)
		if err != nil {
			badRequest(w, err)
			return
		}
		ds := loaded(w, deps.Store)
		if ds == nil {
			return
		}

		render := func() ([]byte, error) {
			start := time.Now()
			frame := deps.Renderer.With(ds.Family, ds.Wind).Render(q)
			var buf bytes.Buffer
			if err := raster.EncodePNG(&buf, frame); err != nil {
				return nil, err
			}
			metrics.ObserveRender("png", time.Since(start))
			return buf.Bytes(), nil
		}

		var img []byte
		hit := false
		if deps.Cache != nil {
			img, hit, err = deps.Cache.GetOrRender(cache.Key(datasetVersion(ds), q), render)
		} else {
			img, err = render()
		}
		if err != nil {
			logger.Error("png render failed", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "render failed")
			return
		}
		metrics.IncQueries("overlay_png")

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(img)))
		if hit {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(img)
	}
}

// tableHandler handles GET /api/v1/table. Temperatures default to the
// dataset's sampled span in 5 deg steps; altitudes are given in ft and
// default to the sampled span in 1000 ft steps.
func tableHandler(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds := loaded(w, deps.Store)
		if ds == nil {
			return
		}
		loAlt, hiAlt := ds.Family.AltitudeSpan()

		var (
			p   [6]float64
			err error
		)
		defaults := [6]float64{
			ds.Family.MinOAT(), ds.Family.MaxOAT(), defaultOATStep,
			math.Ceil(loAlt) * perf.FeetPerThousand, math.Floor(hiAlt) * perf.FeetPerThousand, defaultAltitudeStep,
		}
		for i, name := range []string{"oat_min", "oat_max", "oat_step", "alt_min", "alt_max", "alt_step"} {
			if p[i], err = floatOr(r, name, defaults[i]); err != nil {
				badRequest(w, err)
				return
			}
		}

		altLo, altHi, altStep := perf.FeetToChart(p[3]), perf.FeetToChart(p[4]), perf.FeetToChart(p[5])

		// Size the grid before allocating any axis.
		nOATs, err := table.RangeLen(p[0], p[1], p[2])
		if err != nil {
			tableError(w, deps.Tables, &paramError{name: "oat", msg: err.Error()}, err)
			return
		}
		nAlts, err := table.RangeLen(altLo, altHi, altStep)
		if err != nil {
			tableError(w, deps.Tables, &paramError{name: "alt", msg: err.Error()}, err)
			return
		}
		if err := deps.Tables.CheckGrid(nOATs, nAlts); err != nil {
			tableError(w, deps.Tables, err, err)
			return
		}

		oats, err := table.Range(p[0], p[1], p[2])
		if err != nil {
			badRequest(w, err)
			return
		}
		alts, err := table.Range(altLo, altHi, altStep)
		if err != nil {
			badRequest(w, err)
			return
		}

		grid := table.Grid{OATs: oats, Altitudes: alts}
		rows, err := deps.Tables.Generate(r.Context(), ds.Family, grid)
		if errors.Is(err, table.ErrTooManyCells) {
			tableError(w, deps.Tables, err, err)
			return
		}
		if err != nil {
			logger.Warn("table generation failed", "error", err)
			httputil.WriteError(w, http.StatusServiceUnavailable, "table generation cancelled")
			return
		}
		metrics.AddTableCells(grid.Cells())
		metrics.IncQueries("table")

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"grid": grid,
			"rows": rows,
		})
	}
}

// tableError writes msg as a 400, adding the cell budget when cause is a
// budget failure.
func tableError(w http.ResponseWriter, gen *table.Generator, msg, cause error) {
	if errors.Is(cause, table.ErrTooManyCells) {
		httputil.WriteError(w, http.StatusBadRequest, msg.Error(), "max_cells", gen.MaxCells())
		return
	}
	badRequest(w, msg)
}
