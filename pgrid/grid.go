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

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// WGS84 ellipsoid semi-axes [m].
const (
	wgs84A = 6378137.0
	wgs84B = 6356752.314245
)

// EarthRadius returns the geocentric radius [m] of the WGS84 ellipsoid
// at latitude lat [degrees].
func EarthRadius(lat float64) float64 {
	c := math.Cos(lat * math.Pi / 180)
	s := math.Sin(lat * math.Pi / 180)
	num := math.Pow(wgs84A*wgs84A*c, 2) + math.Pow(wgs84B*wgs84B*s, 2)
	den := math.Pow(wgs84A*c, 2) + math.Pow(wgs84B*s, 2)
	return math.Sqrt(num / den)
}

// LLToXY returns the distances [m] east and north of (lon0, lat0) of
// the point (lon, lat), using a locally flat earth.
func LLToXY(lon, lat, lon0, lat0 float64) (x, y float64) {
	r := EarthRadius(lat0)
	x = r * math.Cos(lat0*math.Pi/180) * (lon - lon0) * math.Pi / 180
	y = r * (lat - lat0) * math.Pi / 180
	return x, y
}

// SimpleGrid returns evenly spaced longitudes and latitudes spanning
// bounds with a spacing of about res meters.
func SimpleGrid(bounds *geom.Bounds, res float64) (lon, lat []float64) {
	meanLat := (bounds.Min.Y + bounds.Max.Y) / 2
	r := EarthRadius(meanLat)
	dlonm := r * math.Cos(meanLat*math.Pi/180) * math.Pi * (bounds.Max.X - bounds.Min.X) / 180
	dlatm := r * math.Pi * (bounds.Max.Y - bounds.Min.Y) / 180
	nx := int(math.Ceil(dlonm / res))
	ny := int(math.Ceil(dlatm / res))
	lon = floats.Span(make([]float64, max(nx, 2)), bounds.Min.X, bounds.Max.X)
	lat = floats.Span(make([]float64, max(ny, 2)), bounds.Min.Y, bounds.Max.Y)
	lon[len(lon)-1], lat[len(lat)-1] = bounds.Max.X, bounds.Max.Y
	return lon, lat
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func checkBreaks(breaks, res []float64) error {
	if len(breaks) < 2 || len(breaks) != len(res) {
		return fmt.Errorf("pgrid: need at least 2 breakpoints with one resolution each, have %d and %d", len(breaks), len(res))
	}
	for i, r := range res {
		if r <= 0 {
			return fmt.Errorf("pgrid: resolution must be positive")
		}
		if i > 0 && breaks[i] <= breaks[i-1] {
			return fmt.Errorf("pgrid: breakpoints must increase: %v", breaks)
		}
	}
	return nil
}

// StretchedGrid returns longitudes and latitudes whose spacing [m]
// varies linearly between the resolutions given at the breakpoints. The
// vectors start and end at the first and last breakpoints.
func StretchedGrid(lons, xres, lats, yres []float64) (lon, lat []float64, err error) {
	if err := checkBreaks(lons, xres); err != nil {
		return nil, nil, err
	}
	if err := checkBreaks(lats, yres); err != nil {
		return nil, nil, err
	}
	meanLat := (lats[0] + lats[len(lats)-1]) / 2
	r := EarthRadius(meanLat)
	lon = stretch(lons, xres, r*math.Cos(meanLat*math.Pi/180)*math.Pi/180)
	lat = stretch(lats, yres, r*math.Pi/180)
	return lon, lat, nil
}

// stretch steps from the first to the last breakpoint, mPerDeg giving
// the meters per degree, and rescales the steps to end on the last
// breakpoint.
func stretch(breaks, res []float64, mPerDeg float64) []float64 {
	first, last := breaks[0], breaks[len(breaks)-1]
	o := []float64{first}
	for x := first; x < last; {
		x += interp(breaks, res, x) / mPerDeg
		o = append(o, x)
	}
	scale := (last - first) / (o[len(o)-1] - first)
	for i := range o {
		o[i] = first + (o[i]-first)*scale
	}
	o[len(o)-1] = last
	return o
}

// interp linearly interpolates y(x) at x0 from the breakpoints,
// holding the end values outside of them.
func interp(x, y []float64, x0 float64) float64 {
	if x0 <= x[0] {
		return y[0]
	}
	for i := 1; i < len(x); i++ {
		if x0 <= x[i] {
			f := (x0 - x[i-1]) / (x[i] - x[i-1])
			return y[i-1] + f*(y[i]-y[i-1])
		}
	}
	return y[len(y)-1]
}

// Mesh returns the [lat, lon] arrays of the grid points.
func Mesh(lonVec, latVec []float64) (lon, lat *sparse.DenseArray) {
	lon = sparse.ZerosDense(len(latVec), len(lonVec))
	lat = sparse.ZerosDense(len(latVec), len(lonVec))
	for j, y := range latVec {
		for i, x := range lonVec {
			lon.Set(x, j, i)
			lat.Set(y, j, i)
		}
	}
	return lon, lat
}

// AnalyticalEstuary returns the height [m] of an idealized shelf cut
// by a channel along 45°N that shoals toward the east.
func AnalyticalEstuary(lon, lat *sparse.DenseArray) *sparse.DenseArray {
	z := sparse.ZerosDense(lon.Shape...)
	for i := range z.Elements {
		x, y := LLToXY(lon.Elements[i], lat.Elements[i], 0, 45)
		shelf := x * 1e-3
		estuary := -20 + 20*x/1e5 + 20/1e4*math.Abs(y)
		z.Elements[i] = math.Min(shelf, estuary)
	}
	return z
}

// Grid is a model grid.
type Grid struct {
	Name string
	Def  *Definition

	// Lon, Lat and Z [m, positive up] have shape [eta, xi].
	Lon, Lat, Z *sparse.DenseArray
}

// Shape returns the number of rows and columns.
func (g *Grid) Shape() (nr, nc int) {
	return g.Lon.Shape[0], g.Lon.Shape[1]
}

// Bounds returns the lon/lat extent of the grid points.
func (g *Grid) Bounds() *geom.Bounds {
	b := geom.NewBounds()
	for i, x := range g.Lon.Elements {
		b.Extend(geom.Point{X: x, Y: g.Lat.Elements[i]}.Bounds())
	}
	return b
}

// trim removes the last row and column when their counts are odd.
func (g *Grid) trim(log logrus.FieldLogger) {
	nr, nc := g.Shape()
	if nr%2 == 0 && nc%2 == 0 {
		return
	}
	if nr%2 != 0 {
		log.Info("trimming row from grid")
		nr--
	}
	if nc%2 != 0 {
		log.Info("trimming column from grid")
		nc--
	}
	g.Lon = subset(g.Lon, nr, nc)
	g.Lat = subset(g.Lat, nr, nc)
	g.Z = subset(g.Z, nr, nc)
}

func subset(a *sparse.DenseArray, nr, nc int) *sparse.DenseArray {
	o := sparse.ZerosDense(nr, nc)
	for j := 0; j < nr; j++ {
		for i := 0; i < nc; i++ {
			o.Set(a.Get(j, i), j, i)
		}
	}
	return o
}

// Make creates the named grid and its bathymetry.
func (c *Config) Make(name string, log logrus.FieldLogger) (*Grid, error) {
	d, err := c.Definition(name)
	if err != nil {
		return nil, err
	}
	log = log.WithField("grid", name)
	var lonVec, latVec []float64
	if len(d.Bounds) == 4 {
		lonVec, latVec = SimpleGrid(d.Area(), d.Res)
	} else {
		lonVec, latVec, err = StretchedGrid(d.Lons, d.XRes, d.Lats, d.YRes)
		if err != nil {
			return nil, err
		}
	}
	g := &Grid{Name: name, Def: d}
	g.Lon, g.Lat = Mesh(lonVec, latVec)
	if d.Analytical {
		g.Z = AnalyticalEstuary(g.Lon, g.Lat)
	} else {
		var topo []*Topo
		for _, p := range c.TopoPaths(d) {
			t, err := LoadTopo(p)
			if err != nil {
				return nil, err
			}
			topo = append(topo, t)
		}
		g.Z = CombineBathymetry(g.Lon, g.Lat, topo)
		if d.UseZOffset {
			for i := range g.Z.Elements {
				g.Z.Elements[i] += d.ZOffset
			}
		}
	}
	if d.TrimGrid {
		g.trim(log)
	}
	nr, nc := g.Shape()
	log.WithFields(logrus.Fields{"rows": nr, "columns": nc}).Info("made grid")
	return g, nil
}
