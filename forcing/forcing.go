/*
Copyright © 2023 the LO authors.
This file is part of LO.

LO is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

LO is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with LO.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package forcing writes ocean climatology, initial condition and
// boundary condition files for ROMS in NetCDF format.
package forcing

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// TimeUnits are the units of the time variables.
const TimeUnits = "seconds since 1970-01-01 00:00:00"

// FillValue replaces missing (NaN) values in the output files.
const FillValue = 1e20

// timeDims are the names of the time variables and dimensions,
// without the "_time" suffix.
var timeDims = []string{"salt", "temp", "v3d", "v2d", "zeta", "ocean"}

// Grid holds the sizes of the model grid.
type Grid struct {
	N  int // vertical layers
	NR int // rho-point rows (eta)
	NC int // rho-point columns (xi)
}

type varInfo struct {
	dims            []string
	longName, units string
}

// standardVars are the fields every climatology file holds.
var standardVars = map[string]varInfo{
	"zeta": {[]string{"zeta_time", "eta_rho", "xi_rho"}, "sea surface height climatology", "meter"},
	"ubar": {[]string{"v2d_time", "eta_u", "xi_u"}, "vertically averaged u-momentum climatology", "meter second-1"},
	"vbar": {[]string{"v2d_time", "eta_v", "xi_v"}, "vertically averaged v-momentum climatology", "meter second-1"},
	"u":    {[]string{"v3d_time", "s_rho", "eta_u", "xi_u"}, "u-momentum component climatology", "meter second-1"},
	"v":    {[]string{"v3d_time", "s_rho", "eta_v", "xi_v"}, "v-momentum component climatology", "meter second-1"},
	"salt": {[]string{"salt_time", "s_rho", "eta_rho", "xi_rho"}, "salinity climatology", "g kg-1"},
	"temp": {[]string{"temp_time", "s_rho", "eta_rho", "xi_rho"}, "potential temperature climatology", "Celsius"},
}

// standardOrder is the order the standard fields are written in.
var standardOrder = []string{"zeta", "ubar", "vbar", "u", "v", "salt", "temp"}

// tracerDims are the dimensions of additional tracers.
var tracerDims = []string{"ocean_time", "s_rho", "eta_rho", "xi_rho"}

// Field is a time-varying field on the model grid.
type Field struct {
	LongName, Units string

	// Data has dimensions [time, (layer,) eta, xi].
	Data *sparse.DenseArray

	dims []string
}

// Fields holds the ocean fields to be written to a climatology file.
type Fields struct {
	Grid

	// Time holds the times of the fields [seconds since 1970-01-01].
	Time []float64

	Vars map[string]*Field
}

// NewFields returns an empty set of fields on grid g at the given times.
func NewFields(g Grid, time []float64) *Fields {
	return &Fields{Grid: g, Time: time, Vars: make(map[string]*Field)}
}

// dimLengths returns the lengths of the file dimensions.
func (f *Fields) dimLengths() map[string]int {
	o := map[string]int{
		"s_rho":   f.N,
		"eta_rho": f.NR,
		"xi_rho":  f.NC,
		"eta_u":   f.NR,
		"xi_u":    f.NC - 1,
		"eta_v":   f.NR - 1,
		"xi_v":    f.NC,
	}
	for _, t := range timeDims {
		o[t+"_time"] = len(f.Time)
	}
	return o
}

// Add adds standard field name (zeta, ubar, vbar, u, v, salt or temp).
func (f *Fields) Add(name string, data *sparse.DenseArray) error {
	info, ok := standardVars[name]
	if !ok {
		return fmt.Errorf("forcing: %s is not a standard field", name)
	}
	return f.add(name, &Field{LongName: info.longName, Units: info.units, Data: data, dims: info.dims})
}

// AddTracer adds a three-dimensional tracer field on rho points.
// "climatology" is appended to longName.
func (f *Fields) AddTracer(name, longName, units string, data *sparse.DenseArray) error {
	if _, ok := standardVars[name]; ok {
		return fmt.Errorf("forcing: %s is a standard field", name)
	}
	return f.add(name, &Field{LongName: longName + " climatology", Units: units, Data: data, dims: tracerDims})
}

func (f *Fields) add(name string, fld *Field) error {
	lengths := f.dimLengths()
	want := make([]int, len(fld.dims))
	for i, d := range fld.dims {
		want[i] = lengths[d]
	}
	if !sameShape(fld.Data.Shape, want) {
		return fmt.Errorf("forcing: field %s has shape %v but the grid requires %v", name, fld.Data.Shape, want)
	}
	f.Vars[name] = fld
	return nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// names returns the field names in the order they are written: the
// standard fields followed by the tracers in alphabetical order.
func (f *Fields) names() []string {
	var o, tracers []string
	for _, n := range standardOrder {
		if _, ok := f.Vars[n]; ok {
			o = append(o, n)
		}
	}
	for n := range f.Vars {
		if _, ok := standardVars[n]; !ok {
			tracers = append(tracers, n)
		}
	}
	sort.Strings(tracers)
	return append(o, tracers...)
}

// WriteClimatology writes f to w as a ROMS climatology file. Every
// standard field must be present. Missing values are written as FillValue.
func WriteClimatology(w *os.File, f *Fields) error {
	if len(f.Time) == 0 {
		return fmt.Errorf("forcing: no times to write")
	}
	for _, n := range standardOrder {
		if _, ok := f.Vars[n]; !ok {
			return fmt.Errorf("forcing: missing field %s", n)
		}
	}
	lengths := f.dimLengths()
	dims := make([]string, 0, len(lengths))
	for _, t := range timeDims {
		dims = append(dims, t+"_time")
	}
	dims = append(dims, "s_rho", "eta_rho", "xi_rho", "eta_u", "xi_u", "eta_v", "xi_v")
	dimLen := make([]int, len(dims))
	for i, d := range dims {
		dimLen[i] = lengths[d]
	}
	h := cdf.NewHeader(dims, dimLen)
	for _, t := range timeDims {
		name := t + "_time"
		h.AddVariable(name, []string{name}, []float64{0})
		h.AddAttribute(name, "units", TimeUnits)
	}
	h.AddAttribute("ocean_time", "long_name", "ocean time")
	names := f.names()
	for _, n := range names {
		v := f.Vars[n]
		h.AddVariable(n, v.dims, []float64{0})
		h.AddAttribute(n, "long_name", v.LongName)
		h.AddAttribute(n, "units", v.Units)
		h.AddAttribute(n, "_FillValue", []float64{FillValue})
	}
	h.Define()

	ff, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("forcing: creating climatology file: %v", err)
	}
	for _, t := range timeDims {
		if err := writeVar(ff, t+"_time", f.Time); err != nil {
			return err
		}
	}
	for _, n := range names {
		if err := writeVar(ff, n, fillNaN(f.Vars[n].Data.Elements)); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// fillNaN returns a copy of v with NaN values replaced by FillValue.
func fillNaN(v []float64) []float64 {
	o := make([]float64, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			o[i] = FillValue
		} else {
			o[i] = x
		}
	}
	return o
}

// ReadFields reads the fields and times from a climatology file.
// Fill values are read as NaN.
func ReadFields(rw cdf.ReaderWriterAt) (*Fields, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("forcing: opening fields file: %v", err)
	}
	dimLen := make(map[string]int)
	for i, d := range f.Header.Dimensions("") {
		dimLen[d] = f.Header.Lengths("")[i]
	}
	for _, d := range []string{"ocean_time", "s_rho", "eta_rho", "xi_rho"} {
		if _, ok := dimLen[d]; !ok {
			return nil, fmt.Errorf("forcing: fields file has no %s dimension", d)
		}
	}
	t, err := readVar(f, "ocean_time")
	if err != nil {
		return nil, err
	}
	o := NewFields(Grid{N: dimLen["s_rho"], NR: dimLen["eta_rho"], NC: dimLen["xi_rho"]}, t.Elements)
	for _, v := range f.Header.Variables() {
		if isTimeVar(v) {
			continue
		}
		data, err := readVar(f, v)
		if err != nil {
			return nil, err
		}
		if _, ok := standardVars[v]; ok {
			err = o.Add(v, data)
		} else {
			ln, _ := f.Header.GetAttribute(v, "long_name").(string)
			u, _ := f.Header.GetAttribute(v, "units").(string)
			err = o.AddTracer(v, stripClimatology(ln), u, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return o, nil
}

func isTimeVar(v string) bool {
	for _, t := range timeDims {
		if v == t+"_time" {
			return true
		}
	}
	return false
}
