// Package grid sweeps strategy yields over one or two parameter axes to
// produce the numeric surface behind sensitivity heatmaps. Sweeps are
// exhaustive rather than adaptive: operator-chosen resolutions stay small,
// so recomputing every cell is cheaper than being clever.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/vaultrun/vaultrun/internal/domain/strategy"
)

// Kind says what a swept axis measures. Utilization axes are clamped to the
// unit interval no matter what range was configured.
type Kind string

const (
	KindUtilization Kind = "utilization"
	KindLTV         Kind = "ltv"
	KindRaw         Kind = "raw"
)

// Axis defines one swept parameter: an inclusive [Min, Max] range sampled at
// Steps evenly spaced points. Steps of 1 degenerates to the single point Min.
type Axis struct {
	Name  string  `yaml:"name" json:"name"`
	Kind  Kind    `yaml:"kind" json:"kind"`
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
	Steps int     `yaml:"steps" json:"steps"`
}

func (a Axis) validate() error {
	if a.Steps < 1 {
		return fmt.Errorf("grid: axis %q needs at least 1 step, got %d", a.Name, a.Steps)
	}
	if a.Max < a.Min {
		return fmt.Errorf("grid: axis %q has max %v below min %v", a.Name, a.Max, a.Min)
	}
	return nil
}

// Values samples the axis. The returned slice is non-decreasing: clamping a
// utilization axis whose range leaves [0,1] repeats the clamped endpoints.
func (a Axis) Values() []float64 {
	if a.Steps <= 1 {
		return []float64{a.clamp(a.Min)}
	}
	vs := make([]float64, a.Steps)
	span := a.Max - a.Min
	for i := range vs {
		vs[i] = a.clamp(a.Min + span*float64(i)/float64(a.Steps-1))
	}
	return vs
}

func (a Axis) clamp(v float64) float64 {
	if a.Kind != KindUtilization {
		return v
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CellFunc evaluates one grid point. A strategy.DomainError marks the cell
// undefined; any other error aborts the sweep.
type CellFunc func(axis1Value, axis2Value float64) (float64, error)

// Grid is the computed surface: Cells is row-major with Axis1 as rows, and
// undefined cells hold NaN. For 1D sweeps Axis2 is nil and every row has a
// single column.
type Grid struct {
	Axis1       Axis        `json:"axis1"`
	Axis2       *Axis       `json:"axis2,omitempty"`
	Axis1Values []float64   `json:"axis1_values"`
	Axis2Values []float64   `json:"axis2_values,omitempty"`
	Cells       [][]float64 `json:"cells"`
}

// MarshalJSON encodes undefined cells as null; encoding/json rejects raw
// NaN values.
func (g *Grid) MarshalJSON() ([]byte, error) {
	cells := make([][]*float64, len(g.Cells))
	for i, row := range g.Cells {
		cells[i] = make([]*float64, len(row))
		for j, c := range row {
			if !math.IsNaN(c) {
				v := c
				cells[i][j] = &v
			}
		}
	}
	return json.Marshal(struct {
		Axis1       Axis         `json:"axis1"`
		Axis2       *Axis        `json:"axis2,omitempty"`
		Axis1Values []float64    `json:"axis1_values"`
		Axis2Values []float64    `json:"axis2_values,omitempty"`
		Cells       [][]*float64 `json:"cells"`
	}{g.Axis1, g.Axis2, g.Axis1Values, g.Axis2Values, cells})
}

// Undefined counts the cells a DomainError knocked out.
func (g *Grid) Undefined() int {
	n := 0
	for _, row := range g.Cells {
		for _, c := range row {
			if math.IsNaN(c) {
				n++
			}
		}
	}
	return n
}

// Build computes a 2D sweep sequentially.
func Build(axis1, axis2 Axis, fn CellFunc) (*Grid, error) {
	g, err := newGrid(axis1, &axis2)
	if err != nil {
		return nil, err
	}
	for i, v1 := range g.Axis1Values {
		if err := fillRow(g.Cells[i], v1, g.Axis2Values, fn); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BuildLine computes a 1D sweep over a single axis.
func BuildLine(axis Axis, fn func(v float64) (float64, error)) (*Grid, error) {
	g, err := newGrid(axis, nil)
	if err != nil {
		return nil, err
	}
	for i, v := range g.Axis1Values {
		cell, err := evalCell(func() (float64, error) { return fn(v) })
		if err != nil {
			return nil, err
		}
		g.Cells[i][0] = cell
	}
	return g, nil
}

func newGrid(axis1 Axis, axis2 *Axis) (*Grid, error) {
	if err := axis1.validate(); err != nil {
		return nil, err
	}
	g := &Grid{Axis1: axis1, Axis1Values: axis1.Values()}
	cols := 1
	if axis2 != nil {
		if err := axis2.validate(); err != nil {
			return nil, err
		}
		a2 := *axis2
		g.Axis2 = &a2
		g.Axis2Values = a2.Values()
		cols = len(g.Axis2Values)
	}
	g.Cells = make([][]float64, len(g.Axis1Values))
	for i := range g.Cells {
		g.Cells[i] = make([]float64, cols)
	}
	return g, nil
}

func fillRow(row []float64, v1 float64, axis2Values []float64, fn CellFunc) error {
	for j, v2 := range axis2Values {
		cell, err := evalCell(func() (float64, error) { return fn(v1, v2) })
		if err != nil {
			return err
		}
		row[j] = cell
	}
	return nil
}

func evalCell(fn func() (float64, error)) (float64, error) {
	v, err := fn()
	if err != nil {
		var domErr *strategy.DomainError
		if errors.As(err, &domErr) {
			// One bad cell must not blank the whole heatmap.
			return math.NaN(), nil
		}
		return 0, err
	}
	return v, nil
}
