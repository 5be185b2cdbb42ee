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

package pgrid

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ctessum/cdf"
)

// Write writes the grid to w as NetCDF with variables lon_rho, lat_rho,
// h (depth, positive down) and mask_rho (1 for water, 0 for land).
// Water cells shallower than the minimum depth are deepened to it.
func (g *Grid) Write(w *os.File) error {
	nr, nc := g.Shape()
	h := cdf.NewHeader([]string{"eta_rho", "xi_rho"}, []int{nr, nc})
	dims := []string{"eta_rho", "xi_rho"}
	for _, v := range []struct{ name, longName, units string }{
		{"lon_rho", "longitude of RHO-points", "degree_east"},
		{"lat_rho", "latitude of RHO-points", "degree_north"},
		{"h", "bathymetry at RHO-points", "meter"},
		{"mask_rho", "mask on RHO-points", ""},
	} {
		h.AddVariable(v.name, dims, []float64{0})
		h.AddAttribute(v.name, "long_name", v.longName)
		if v.units != "" {
			h.AddAttribute(v.name, "units", v.units)
		}
	}
	h.AddAttribute("", "grid_name", g.Name)
	if g.Def != nil {
		h.AddAttribute("", "nudging_edges", strings.Join(g.Def.NudgingEdges, " "))
		h.AddAttribute("", "nudging_days", g.Def.NudgingDays)
	}
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("pgrid: creating grid file: %v", err)
	}
	var minDepth float64
	if g.Def != nil {
		minDepth = g.Def.MinDepth
	}
	depth := make([]float64, len(g.Z.Elements))
	mask := make([]float64, len(g.Z.Elements))
	for i, z := range g.Z.Elements {
		switch {
		case math.IsNaN(z):
			// No data: treat as land.
		case z < 0:
			mask[i] = 1
			depth[i] = math.Max(-z, minDepth)
		default:
			depth[i] = -z
		}
	}
	for name, v := range map[string][]float64{
		"lon_rho":  g.Lon.Elements,
		"lat_rho":  g.Lat.Elements,
		"h":        depth,
		"mask_rho": mask,
	} {
		if err := writeVar(f, name, v); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeVar(f *cdf.File, name string, v []float64) error {
	end := f.Header.Lengths(name)
	w := f.Writer(name, make([]int, len(end)), end)
	if _, err := w.Write(v); err != nil {
		return fmt.Errorf("pgrid: writing variable %s: %v", name, err)
	}
	return nil
}
