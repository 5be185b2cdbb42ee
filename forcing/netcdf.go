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
	"math"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// writeVar writes the values of variable name.
func writeVar(f *cdf.File, name string, v []float64) error {
	end := f.Header.Lengths(name)
	n := 1
	for _, l := range end {
		n *= l
	}
	if len(v) != n {
		return fmt.Errorf("forcing: variable %s has %d values but its dimensions require %d", name, len(v), n)
	}
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(v); err != nil {
		return fmt.Errorf("forcing: writing variable %s: %v", name, err)
	}
	return nil
}

// readVar reads variable name, replacing fill values with NaN.
func readVar(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("forcing: variable %s not in file", name)
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("forcing: reading variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float64:
		copy(data.Elements, b)
	case []float32:
		for i, v := range b {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("forcing: variable %s has unsupported type %T", name, buf)
	}
	if fv, ok := f.Header.GetAttribute(name, "_FillValue").([]float64); ok && len(fv) == 1 {
		for i, v := range data.Elements {
			if v == fv[0] {
				data.Elements[i] = math.NaN()
			}
		}
	}
	return data, nil
}

// stripClimatology removes "climatology" from an attribute value.
func stripClimatology(s string) string {
	return strings.TrimSpace(strings.Replace(s, "climatology", "", -1))
}

// copyAttributes adds the attributes of variable from in src to variable
// to in dst, removing "climatology" from text attributes.
func copyAttributes(src, dst *cdf.Header, from, to string) {
	for _, a := range src.Attributes(from) {
		val := src.GetAttribute(from, a)
		if s, ok := val.(string); ok {
			val = stripClimatology(s)
		}
		dst.AddAttribute(to, a, val)
	}
}
