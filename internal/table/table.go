// Package table computes HOGE weight tables over a temperature and altitude
// grid using a bounded worker pool.
package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

// ErrTooManyCells is returned when a grid exceeds the cell budget.
var ErrTooManyCells = errors.New("grid exceeds cell budget")

// Grid is the set of temperatures and altitudes to evaluate.
type Grid struct {
	OATs      []float64 `json:"oats"`
	Altitudes []float64 `json:"altitudes"` // thousands of ft
}

// Cells returns the number of grid cells.
func (g Grid) Cells() int {
	return len(g.OATs) * len(g.Altitudes)
}

// Cell is one evaluated grid point.
type Cell struct {
	OAT      float64          `json:"oat"`
	Altitude float64          `json:"altitude"`
	Result   perf.QueryResult `json:"result"`
}

// Row holds the cells for one temperature, ordered by altitude as given.
type Row struct {
	OAT   float64 `json:"oat"`
	Cells []Cell  `json:"cells"`
}

// MaxAxisLen bounds the length of one axis regardless of the cell budget.
const MaxAxisLen = 1 << 20

// RangeLen returns the number of values Range(lo, hi, step) would produce
// without allocating them. Axes longer than MaxAxisLen fail with
// ErrTooManyCells.
func RangeLen(lo, hi, step float64) (int, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return 0, fmt.Errorf("step must be positive, got %g", step)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || hi < lo {
		return 0, fmt.Errorf("invalid range [%g, %g]", lo, hi)
	}
	n := math.Floor((hi-lo)/step+1e-9) + 1
	if math.IsInf(n, 0) || n > MaxAxisLen {
		return 0, fmt.Errorf("%w: axis of %.0f values, limit %d", ErrTooManyCells, n, MaxAxisLen)
	}
	return int(n), nil
}

// Range returns lo, lo+step, ... up to and including hi.
func Range(lo, hi, step float64) ([]float64, error) {
	n, err := RangeLen(lo, hi, step)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out, nil
}

// job is a unit of work for the worker pool.
type job struct {
	row, col int
	oat      float64
	altitude float64
}

// Generator evaluates grids with a fixed number of workers.
type Generator struct {
	workers  int
	maxCells int
	logger   *slog.Logger
}

// NewGenerator creates a generator. workers below 1 means 1. maxCells of 0
// disables the cell budget.
func NewGenerator(workers, maxCells int, logger *slog.Logger) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{workers: workers, maxCells: maxCells, logger: logger}
}

// Workers returns the pool size.
func (gen *Generator) Workers() int { return gen.workers }

// MaxCells returns the cell budget, 0 when unlimited.
func (gen *Generator) MaxCells() int { return gen.maxCells }

// CheckGrid reports ErrTooManyCells when a grid of nOATs by nAlts cells
// exceeds the budget. Callers check before building the axes.
func (gen *Generator) CheckGrid(nOATs, nAlts int) error {
	cells := float64(nOATs) * float64(nAlts)
	if gen.maxCells > 0 && cells > float64(gen.maxCells) {
		return fmt.Errorf("%w: %.0f cells, budget %d", ErrTooManyCells, cells, gen.maxCells)
	}
	return nil
}

// Generate computes WeightAt for every grid cell. Rows follow g.OATs and cells
// follow g.Altitudes whatever order the workers finish in.
func (gen *Generator) Generate(ctx context.Context, family *perf.CurveFamily, g Grid) ([]Row, error) {
	if err := gen.CheckGrid(len(g.OATs), len(g.Altitudes)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]Row, len(g.OATs))
	for i, oat := range g.OATs {
		rows[i] = Row{OAT: oat, Cells: make([]Cell, len(g.Altitudes))}
	}
	if g.Cells() == 0 {
		return rows, nil
	}

	jobs := make(chan job, gen.workers*2)

	// Each worker writes a distinct cell, so no lock is needed on rows.
	var wg sync.WaitGroup
	for i := 0; i < gen.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				rows[j.row].Cells[j.col] = Cell{
					OAT:      j.oat,
					Altitude: j.altitude,
					Result:   family.WeightAt(j.oat, j.altitude),
				}
			}
		}()
	}

	var err error
feed:
	for r, oat := range g.OATs {
		for c, alt := range g.Altitudes {
			select {
			case jobs <- job{row: r, col: c, oat: oat, altitude: alt}:
			case <-ctx.Done():
				err = ctx.Err()
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		gen.logger.Warn("table generation cancelled", "cells", g.Cells(), "error", err)
		return nil, err
	}
	gen.logger.Debug("table generated", "cells", g.Cells(), "workers", gen.workers)
	return rows, nil
}
