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

package forcing

import (
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// WriteInitial writes an initial condition file to w holding the first
// time of every variable in climatology file clm.
func WriteInitial(clm cdf.ReaderWriterAt, w *os.File) error {
	in, err := cdf.Open(clm)
	if err != nil {
		return fmt.Errorf("forcing: opening climatology file: %v", err)
	}
	dims := in.Header.Dimensions("")
	lengths := append([]int{}, in.Header.Lengths("")...)
	for i, d := range dims {
		if strings.Contains(d, "time") {
			lengths[i] = 1
		}
	}
	h := cdf.NewHeader(dims, lengths)
	vars := in.Header.Variables()
	data := make(map[string]*sparse.DenseArray, len(vars))
	for _, v := range vars {
		a, err := readVar(in, v)
		if err != nil {
			return err
		}
		data[v] = firstTime(a)
		h.AddVariable(v, in.Header.Dimensions(v), []float64{0})
		copyAttributes(in.Header, h, v, v)
	}
	h.Define()
	out, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("forcing: creating initial condition file: %v", err)
	}
	for _, v := range vars {
		if err := writeVar(out, v, fillNaN(data[v].Elements)); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// firstTime returns the first element of a along its outermost dimension,
// keeping that dimension with length 1.
func firstTime(a *sparse.DenseArray) *sparse.DenseArray {
	shape := append([]int{1}, a.Shape[1:]...)
	o := sparse.ZerosDense(shape...)
	copy(o.Elements, a.Elements[:len(o.Elements)])
	return o
}

// Boundary is a side of the model domain.
type Boundary struct {
	Name string

	// dimPrefix is the prefix of the dimension the boundary is normal to.
	dimPrefix string

	// last is true if the boundary is at the end of that dimension.
	last bool
}

// Boundaries are the sides of the domain in the order they are written.
var Boundaries = []Boundary{
	{Name: "north", dimPrefix: "eta", last: true},
	{Name: "south", dimPrefix: "eta", last: false},
	{Name: "east", dimPrefix: "xi", last: true},
	{Name: "west", dimPrefix: "xi", last: false},
}

// boundaryNames maps climatology variable names to the names ROMS
// expects in boundary files.
var boundaryNames = map[string]string{
	"phytoplankton": "phyt",
	"zooplankton":   "zoop",
	"alkalinity":    "Talk",
}

// BoundaryName returns the name of variable v on boundary b.
func BoundaryName(v string, b Boundary) string {
	if n, ok := boundaryNames[v]; ok {
		v = n
	}
	return v + "_" + b.Name
}

type boundaryVar struct {
	name, src string
	dims      []string
	data      *sparse.DenseArray
}

// WriteBoundary writes a boundary condition file to w holding the edges of
// every field in climatology file clm. Fields with three or four
// dimensions are written once per boundary, without the dimension
// normal to the boundary; other variables are copied whole.
func WriteBoundary(clm cdf.ReaderWriterAt, w *os.File) error {
	in, err := cdf.Open(clm)
	if err != nil {
		return fmt.Errorf("forcing: opening climatology file: %v", err)
	}
	h := cdf.NewHeader(in.Header.Dimensions(""), in.Header.Lengths(""))
	var vars []boundaryVar
	for _, v := range in.Header.Variables() {
		a, err := readVar(in, v)
		if err != nil {
			return err
		}
		dims := in.Header.Dimensions(v)
		if nd := len(dims); nd != 3 && nd != 4 {
			vars = append(vars, boundaryVar{name: v, src: v, dims: dims, data: a})
			continue
		}
		for _, b := range Boundaries {
			bv, err := boundarySlice(v, dims, a, b)
			if err != nil {
				return err
			}
			vars = append(vars, bv)
		}
	}
	for _, bv := range vars {
		h.AddVariable(bv.name, bv.dims, []float64{0})
		copyAttributes(in.Header, h, bv.src, bv.name)
	}
	h.Define()
	out, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("forcing: creating boundary file: %v", err)
	}
	for _, bv := range vars {
		if err := writeVar(out, bv.name, fillNaN(bv.data.Elements)); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

// boundarySlice returns the values of variable v, with dimensions dims
// and data a, on boundary b.
func boundarySlice(v string, dims []string, a *sparse.DenseArray, b Boundary) (boundaryVar, error) {
	dim := -1
	var outDims []string
	for i, d := range dims {
		if strings.HasPrefix(d, b.dimPrefix) {
			if dim >= 0 {
				return boundaryVar{}, fmt.Errorf("forcing: variable %s has more than one %s dimension", v, b.dimPrefix)
			}
			dim = i
			continue
		}
		outDims = append(outDims, d)
	}
	if dim < 0 {
		return boundaryVar{}, fmt.Errorf("forcing: variable %s has no %s dimension", v, b.dimPrefix)
	}
	i := 0
	if b.last {
		i = a.Shape[dim] - 1
	}
	return boundaryVar{
		name: BoundaryName(v, b),
		src:  v,
		dims: outDims,
		data: edge(a, dim, i),
	}, nil
}

// edge returns the slice of a at index i of dimension dim.
func edge(a *sparse.DenseArray, dim, i int) *sparse.DenseArray {
	shape := make([]int, 0, len(a.Shape)-1)
	shape = append(shape, a.Shape[:dim]...)
	shape = append(shape, a.Shape[dim+1:]...)
	o := sparse.ZerosDense(shape...)
	full := make([]int, len(a.Shape))
	for j := range o.Elements {
		idx := o.IndexNd(j)
		copy(full[:dim], idx[:dim])
		full[dim] = i
		copy(full[dim+1:], idx[dim:])
		o.Elements[j] = a.Get(full...)
	}
	return o
}
