package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

// paramError is a malformed or missing query parameter.
type paramError struct {
	name string
	msg  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s: %s", e.name, e.msg)
}

// floatParam parses an optional finite float. ok is false when the
// parameter is absent or empty.
func floatParam(r *http.Request, name string) (v float64, ok bool, err error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, &paramError{name: name, msg: fmt.Sprintf("invalid number %q", s)}
	}
	return v, true, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	v, ok, err := floatParam(r, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &paramError{name: name, msg: "required"}
	}
	return v, nil
}

func floatOr(r *http.Request, name string, def float64) (float64, error) {
	v, ok, err := floatParam(r, name)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

func optionalFloat(r *http.Request, name string) (*float64, error) {
	v, ok, err := floatParam(r, name)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func unitParam(r *http.Request, def perf.DisplayUnit) (perf.DisplayUnit, error) {
	s := r.URL.Query().Get("unit")
	if s == "" {
		return def, nil
	}
	u, err := perf.ParseDisplayUnit(s)
	if err != nil {
		return "", &paramError{name: "unit", msg: err.Error()}
	}
	return u, nil
}

// overlayQuery reads the overlay inputs shared by the JSON and PNG routes.
func overlayQuery(r *http.Request, def perf.DisplayUnit) (chart.OverlayQuery, error) {
	var q chart.OverlayQuery
	var err error
	if q.OAT, err = requiredFloat(r, "oat"); err != nil {
		return q, err
	}
	if q.AltitudeFt, err = requiredFloat(r, "altitude_ft"); err != nil {
		return q, err
	}
	if q.WindSpeed, err = optionalFloat(r, "wind"); err != nil {
		return q, err
	}
	if q.WindSpeed != nil && *q.WindSpeed < 0 {
		return q, &paramError{name: "wind", msg: "must not be negative"}
	}
	if q.BenefitPercent, err = optionalFloat(r, "benefit"); err != nil {
		return q, err
	}
	if q.Unit, err = unitParam(r, def); err != nil {
		return q, err
	}
	return q, nil
}

func probeAxisParam(r *http.Request) (perf.ProbeAxis, error) {
	switch s := r.URL.Query().Get("axis"); s {
	case "", "altitude":
		return perf.ProbeAltitude, nil
	case "weight":
		return perf.ProbeWeight, nil
	default:
		return 0, &paramError{name: "axis", msg: fmt.Sprintf("must be altitude or weight, got %q", s)}
	}
}
